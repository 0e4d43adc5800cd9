// Package tools defines the actions the assistant can take and the
// registry that exposes them to the language model as callable
// functions.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Param describes one parameter in a tool's function-calling schema.
type Param struct {
	Name        string
	Type        string // string, number, boolean, object, array
	Description string
	Required    bool
	Enum        []string
}

// Tool is one action the model can invoke. Execute never returns an
// error: failures come back as {success:false, error} result maps so
// the model can read them and recover.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Param
	Execute(ctx context.Context, args map[string]any) map[string]any
}

// Registry holds the tool set offered to the model.
type Registry struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool, replacing any prior tool with the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas renders the registry in the function-calling format the chat
// completions endpoint expects.
func (r *Registry) Schemas() []map[string]any {
	schemas := make([]map[string]any, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		properties := make(map[string]any)
		var required []string
		for _, p := range t.Parameters() {
			prop := map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		fn := map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters": map[string]any{
				"type":       "object",
				"properties": properties,
			},
		}
		if len(required) > 0 {
			fn["parameters"].(map[string]any)["required"] = required
		}
		schemas = append(schemas, map[string]any{
			"type":     "function",
			"function": fn,
		})
	}
	return schemas
}

// Execute runs the named tool. Unknown names, panics, and tool faults
// all come back as structured failure maps, never as errors or crashes.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result map[string]any) {
	t, ok := r.tools[name]
	if !ok {
		return map[string]any{
			"success": false,
			"error":   "herramienta no encontrada: " + name,
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			result = map[string]any{
				"success": false,
				"error":   fmt.Sprintf("error ejecutando %s: %v", name, rec),
			}
		}
	}()

	r.logger.Debug("executing tool", "tool", name, "args", args)
	return t.Execute(ctx, args)
}

// stringArg extracts a required or optional string argument.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// numberArg extracts a numeric argument; JSON numbers decode as float64
// but models occasionally send integers as strings.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// boolArg extracts a boolean argument, with a default.
func boolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// fail is shorthand for the structured failure shape.
func fail(format string, a ...any) map[string]any {
	return map[string]any{
		"success": false,
		"error":   fmt.Sprintf(format, a...),
	}
}

// Package agent runs the conversation loop: user text in, tool calls
// against the registry, assistant text out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mvidela/mayordomo/internal/config"
	"github.com/mvidela/mayordomo/internal/llm"
	"github.com/mvidela/mayordomo/internal/memory"
	"github.com/mvidela/mayordomo/internal/tools"
)

// maxIterations bounds the tool-call rounds within one turn. A model
// that keeps requesting tools is cut off here.
const maxIterations = 5

const (
	fallbackReply = "Lo siento, no pude completar tu pedido en esta ronda. ¿Podés reformularlo?"
	apologyReply  = "Perdón, tuve un problema procesando tu mensaje. Intentá de nuevo en un momento."
)

// Loop orchestrates one assistant.
type Loop struct {
	cfg      *config.Config
	client   llm.Client
	registry *tools.Registry
	history  memory.ConversationStore
	logger   *slog.Logger
}

// New builds the loop over its collaborators.
func New(cfg *config.Config, client llm.Client, registry *tools.Registry, history memory.ConversationStore, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:      cfg,
		client:   client,
		registry: registry,
		history:  history,
		logger:   logger,
	}
}

// Process handles one user turn and returns the assistant's reply. All
// faults are absorbed into an apology; this method never panics a
// front end.
func (l *Loop) Process(ctx context.Context, userID, message string) string {
	l.history.Append(userID, "user", message)

	reply, err := l.run(ctx, userID)
	if err != nil {
		l.logger.Error("turn failed", "user", userID, "error", err)
		reply = apologyReply
	}

	l.history.Append(userID, "assistant", reply)
	return reply
}

func (l *Loop) run(ctx context.Context, userID string) (string, error) {
	messages := []llm.Message{{Role: "system", Content: l.systemPrompt()}}
	for _, m := range l.history.Messages(userID) {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	ctx = tools.WithOwner(ctx, userID)
	schemas := l.registry.Schemas()

	for iteration := 0; iteration < maxIterations; iteration++ {
		resp, err := l.client.Chat(ctx, l.cfg.Agent.Model, messages, schemas)
		if err != nil {
			return "", fmt.Errorf("chat iteration %d: %w", iteration+1, err)
		}

		if !resp.HasToolCalls() {
			return strings.TrimSpace(resp.Message.Content), nil
		}

		messages = append(messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			messages = append(messages, l.executeCall(ctx, call))
		}
	}

	l.logger.Warn("tool budget exhausted", "user", userID, "iterations", maxIterations)
	return fallbackReply, nil
}

// executeCall runs one requested tool and shapes its result as the
// role=tool message the backend expects, tagged with the call id.
func (l *Loop) executeCall(ctx context.Context, call llm.ToolCall) llm.Message {
	args, err := call.ParseArguments()
	var result map[string]any
	if err != nil {
		result = map[string]any{
			"success": false,
			"error":   fmt.Sprintf("argumentos inválidos para %s: %v", call.Function.Name, err),
		}
	} else {
		result = l.registry.Execute(ctx, call.Function.Name, args)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{"success":false,"error":"resultado no serializable"}`)
	}

	l.logger.Debug("tool executed", "tool", call.Function.Name, "call_id", call.ID)
	return llm.Message{
		Role:       "tool",
		Content:    string(payload),
		ToolCallID: call.ID,
	}
}

// systemPrompt assembles the assistant's identity from config.
func (l *Loop) systemPrompt() string {
	a := l.cfg.Agent
	language := a.Language
	if language == "" {
		language = "es"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Eres %s, un asistente personal.", a.Name)
	if a.Personality != "" {
		b.WriteString(" " + a.Personality)
	}
	b.WriteString("\n\nPuedes gestionar tareas, eventos de calendario, recordatorios, alarmas y notificaciones de escritorio mediante las herramientas disponibles.")
	b.WriteString("\n\nPrincipios:")
	b.WriteString("\n- Usa las herramientas cuando el pedido lo requiera; no inventes resultados.")
	b.WriteString("\n- Confirma cada acción realizada con un resumen breve.")
	b.WriteString("\n- Si falta información esencial (hora, título), pídela antes de actuar.")
	fmt.Fprintf(&b, "\n- Responde siempre en el idioma \"%s\", de forma breve y directa.", language)
	fmt.Fprintf(&b, "\n\nFecha y hora actual: %s.", time.Now().Format("Monday 02/01/2006 15:04"))
	return b.String()
}

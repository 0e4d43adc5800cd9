// Package llm provides the chat-completions client used by the agent loop.
package llm

import "encoding/json"

// Message represents a chat message in the backend's wire format.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on role=tool results
}

// ToolCall is a function invocation requested by the model. The ID is
// echoed back on the corresponding tool-result message so the model can
// reconcile results with requests.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the requested function name and its arguments as
// a raw JSON object string, exactly as the protocol delivers them.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ParseArguments decodes the call's argument string into a map. An empty
// argument string yields an empty map.
func (c ToolCall) ParseArguments() (map[string]any, error) {
	args := map[string]any{}
	if c.Function.Arguments == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Usage reports token accounting for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the model's reply to one chat request.
type ChatResponse struct {
	Message      Message `json:"message"`
	Model        string  `json:"model"`
	FinishReason string  `json:"finish_reason"`
	Usage        Usage   `json:"usage"`
}

// HasToolCalls reports whether the response requests any tool invocations.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.Message.ToolCalls) > 0
}

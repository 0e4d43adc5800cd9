package llm

import "context"

// Client is the interface the agent loop consumes. The production
// implementation is [*OpenRouterClient]; tests substitute mocks.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the backend is reachable and the credentials work.
	Ping(ctx context.Context) error
}

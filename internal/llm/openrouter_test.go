package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatDecodesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "deepseek/deepseek-chat" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Tools) != 1 {
			t.Errorf("tools = %d, want 1", len(req.Tools))
		}

		resp := `{
			"id": "gen-1",
			"model": "deepseek/deepseek-chat",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "task_create", "arguments": "{\"title\":\"comprar pan\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	defer srv.Close()

	c := NewOpenRouterClient(srv.URL, "test-key", 0.7, nil)
	resp, err := c.Chat(context.Background(), "deepseek/deepseek-chat",
		[]Message{{Role: "user", Content: "crea una tarea"}},
		[]map[string]any{{"type": "function"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls")
	}
	call := resp.Message.ToolCalls[0]
	if call.ID != "call_1" || call.Function.Name != "task_create" {
		t.Errorf("unexpected call: %+v", call)
	}

	args, err := call.ParseArguments()
	if err != nil {
		t.Fatalf("ParseArguments: %v", err)
	}
	if args["title"] != "comprar pan" {
		t.Errorf("args = %v", args)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenRouterClient(srv.URL, "test-key", 0, nil)
	if _, err := c.Chat(context.Background(), "m", nil, nil); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestParseArgumentsEmpty(t *testing.T) {
	call := ToolCall{}
	args, err := call.ParseArguments()
	if err != nil {
		t.Fatalf("ParseArguments: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

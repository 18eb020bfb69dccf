package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func anthropicConversation() *Conversation {
	first := ToolCallPart("toolu_1", "push", map[string]any{"n": 1})
	first.ToolCall.Result = TextToolResult("pushed 1")
	second := ToolCallPart("toolu_2", "push", map[string]any{"n": 2})
	second.ToolCall.Result = ErrorToolResult("push failed")

	return &Conversation{
		SystemPrompt: "You are a test agent.",
		Messages: []Message{
			UserMessage("Run the numbers"),
			AssistantMessage(TextPart("pushing both"), first, second),
		},
		Tools: []Tool{{
			Name:        "push",
			Description: "Push a number",
			InputSchema: Schema{Type: "object", Properties: map[string]any{"n": map[string]any{"type": "integer"}}},
		}},
	}
}

func TestAnthropicAdjacentResultsMerged(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-api-key"); key != "key123" {
			t.Errorf("expected x-api-key header, got %q", key)
		}
		if v := r.Header.Get("anthropic-version"); v != "2023-06-01" {
			t.Errorf("expected default anthropic version, got %q", v)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":6}}`))
	}))
	defer server.Close()

	provider := &Anthropic{}
	completion, err := provider.Complete(context.Background(), anthropicConversation(), Request{
		Model: "claude-sonnet-4-5", APIKey: "key123", Endpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.MaxTokens != defaultAnthropicMaxTokens {
		t.Errorf("expected default max_tokens %d, got %d", defaultAnthropicMaxTokens, captured.MaxTokens)
	}

	// user task, assistant, merged tool results.
	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(captured.Messages))
	}
	results := captured.Messages[2]
	if results.Role != "user" {
		t.Errorf("tool results must ride on a user message, got %q", results.Role)
	}
	if len(results.Content) != 2 {
		t.Fatalf("adjacent tool results should merge into one message, got %d blocks", len(results.Content))
	}
	if results.Content[0].ToolUseID != "toolu_1" || results.Content[1].ToolUseID != "toolu_2" {
		t.Errorf("tool results out of order: %+v", results.Content)
	}
	if results.Content[0].IsError || !results.Content[1].IsError {
		t.Errorf("is_error flags wrong: %+v", results.Content)
	}

	if completion.Message.TextContent() != "ok" {
		t.Errorf("expected text %q, got %q", "ok", completion.Message.TextContent())
	}
}

func TestAnthropicParsesToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"calling"},{"type":"tool_use","id":"toolu_9","name":"push","input":{"n":3,"_is_done":true}}],"stop_reason":"tool_use","usage":{"input_tokens":1,"output_tokens":2}}`))
	}))
	defer server.Close()

	provider := &Anthropic{}
	completion, err := provider.Complete(context.Background(), anthropicConversation(), Request{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := completion.Message.ToolCalls()
	if len(calls) != 1 || calls[0].ID != "toolu_9" || calls[0].Name != "push" {
		t.Fatalf("unexpected tool calls %+v", calls)
	}
	if done, _ := calls[0].Arguments["_is_done"].(bool); !done {
		t.Errorf("expected _is_done argument preserved, got %v", calls[0].Arguments)
	}
}

func TestAnthropicMaxTokensStopReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"cut"}],"stop_reason":"max_tokens","usage":{}}`))
	}))
	defer server.Close()

	provider := &Anthropic{}
	completion, err := provider.Complete(context.Background(), anthropicConversation(), Request{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.Message.StopReason.Code != StopMaxTokens {
		t.Errorf("expected max_tokens stop, got %+v", completion.Message.StopReason)
	}
}

func TestAnthropicImageResultBlocks(t *testing.T) {
	result := &ToolResult{Content: []ContentPart{
		TextPart("screenshot taken"),
		ImagePart("image/png", "aW1n"),
	}}
	blocks := anthropicResultContent(result)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	img := blocks[1]
	if img.Type != "image" || img.Source == nil || img.Source.MediaType != "image/png" || img.Source.Data != "aW1n" {
		t.Errorf("unexpected image block %+v", img)
	}
}

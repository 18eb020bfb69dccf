package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func googleConversation() *Conversation {
	text := TextPart("pushing")
	text.ThoughtSignature = "sig-text"
	call := ToolCallPart("call_1", "push", map[string]any{"n": 1})
	call.ThoughtSignature = "sig-call"
	call.ToolCall.Result = &ToolResult{Content: []ContentPart{
		TextPart("pushed 1"),
		ImagePart("image/png", "aW1n"),
	}}

	return &Conversation{
		SystemPrompt: "You are a test agent.",
		Messages: []Message{
			UserMessage("Run the numbers"),
			AssistantMessage(text, call),
		},
		Tools: []Tool{{
			Name:        "push",
			Description: "Push a number",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]any{
					"n":                    map[string]any{"type": "integer"},
					"additionalProperties": false,
					"$schema":              "http://json-schema.org/draft-07/schema#",
				},
			},
		}},
	}
}

func TestGoogleThoughtSignatureRoundTrip(t *testing.T) {
	var captured googleRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-goog-api-key"); key != "key123" {
			t.Errorf("expected x-goog-api-key header, got %q", key)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-pro:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"next","thoughtSignature":"sig-next"},{"functionCall":{"name":"push","args":{"n":2}},"thoughtSignature":"sig-fc"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":5}}`))
	}))
	defer server.Close()

	provider := &Google{}
	completion, err := provider.Complete(context.Background(), googleConversation(), Request{
		Model: "gemini-2.5-pro", APIKey: "key123", Endpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// user, model, function, image user message.
	if len(captured.Contents) != 4 {
		t.Fatalf("expected 4 contents, got %d", len(captured.Contents))
	}
	model := captured.Contents[1]
	if model.Role != "model" {
		t.Fatalf("expected model role, got %q", model.Role)
	}
	if model.Parts[0].ThoughtSignature != "sig-text" || model.Parts[1].ThoughtSignature != "sig-call" {
		t.Errorf("thought signatures lost on replay: %+v", model.Parts)
	}
	fn := captured.Contents[2]
	if fn.Role != "function" || fn.Parts[0].FunctionResponse == nil {
		t.Fatalf("expected function role response, got %+v", fn)
	}
	if fn.Parts[0].FunctionResponse.Response["content"] != "pushed 1" {
		t.Errorf("unexpected response payload %+v", fn.Parts[0].FunctionResponse.Response)
	}
	images := captured.Contents[3]
	if images.Role != "user" || images.Parts[0].InlineData == nil || images.Parts[0].InlineData.MimeType != "image/png" {
		t.Errorf("image results should re-emit as user inline_data: %+v", images)
	}

	msg := completion.Message
	for _, part := range msg.Content {
		switch part.Kind {
		case ContentText:
			if part.ThoughtSignature != "sig-next" {
				t.Errorf("parsed text part lost signature: %+v", part)
			}
		case ContentToolCall:
			if part.ThoughtSignature != "sig-fc" {
				t.Errorf("parsed call part lost signature: %+v", part)
			}
			if !strings.HasPrefix(part.ToolCall.ID, "call_") {
				t.Errorf("expected synthesized call id, got %q", part.ToolCall.ID)
			}
		}
	}
	if completion.Usage.Input != 4 || completion.Usage.Output != 5 {
		t.Errorf("unexpected usage %+v", completion.Usage)
	}
}

func TestGoogleSchemaStripsUnsupported(t *testing.T) {
	schema := googleSchema(Schema{
		Type: "object",
		Properties: map[string]any{
			"n": map[string]any{"type": "integer", "$schema": "x"},
			"additionalProperties": false,
		},
		Required: []string{"n"},
	})

	props := schema["properties"].(map[string]any)
	if _, ok := props["additionalProperties"]; ok {
		t.Error("additionalProperties should be stripped")
	}
	nested := props["n"].(map[string]any)
	if _, ok := nested["$schema"]; ok {
		t.Error("$schema should be stripped recursively")
	}
	if schema["required"].([]string)[0] != "n" {
		t.Errorf("required list lost: %+v", schema)
	}
}

func TestGoogleErrorResultPayload(t *testing.T) {
	payload := googleResultPayload(ErrorToolResult("bad"))
	if payload["content"] != "bad" {
		t.Errorf("unexpected content %v", payload["content"])
	}
	if isErr, _ := payload["isError"].(bool); !isErr {
		t.Error("expected isError in payload")
	}
}

func TestGoogleMaxTokensStopReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"cut"}]},"finishReason":"MAX_TOKENS"}],"usageMetadata":{}}`))
	}))
	defer server.Close()

	provider := &Google{}
	completion, err := provider.Complete(context.Background(), googleConversation(), Request{Model: "gemini-2.5-pro", Endpoint: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.Message.StopReason.Code != StopMaxTokens {
		t.Errorf("expected max_tokens stop, got %+v", completion.Message.StopReason)
	}
}

func TestGoogleNoCandidatesIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	provider := &Google{}
	completion, err := provider.Complete(context.Background(), googleConversation(), Request{Model: "gemini-2.5-pro", Endpoint: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.Message.StopReason == nil || completion.Message.StopReason.Code != StopError {
		t.Errorf("expected error stop reason, got %+v", completion.Message.StopReason)
	}
}

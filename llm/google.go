package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Google implements the Gemini generateContent wire dialect. Tool calls
// are functionCall parts on model-role content; results are
// functionResponse parts on a function-role content, with image results
// re-emitted as an additional user message of inline_data parts. Every
// text and functionCall part may carry a thoughtSignature echo field
// that must round-trip verbatim.
//
// The wire format carries no call ids, so canonical ids are synthesized
// at parse time and results are matched back by call order.
type Google struct{}

func (p *Google) Name() string { return APIGoogle }

type googleInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type googleFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type googleFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type googlePart struct {
	Text             string                  `json:"text,omitempty"`
	InlineData       *googleInlineData       `json:"inline_data,omitempty"`
	FunctionCall     *googleFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *googleFunctionResponse `json:"functionResponse,omitempty"`
	ThoughtSignature string                  `json:"thoughtSignature,omitempty"`
}

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googleFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type googleTool struct {
	FunctionDeclarations []googleFunctionDeclaration `json:"functionDeclarations"`
}

type googleGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type googleRequest struct {
	SystemInstruction *googleContent          `json:"systemInstruction,omitempty"`
	Contents          []googleContent         `json:"contents"`
	Tools             []googleTool            `json:"tools,omitempty"`
	GenerationConfig  *googleGenerationConfig `json:"generationConfig,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []googlePart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *Google) Complete(ctx context.Context, conv *Conversation, req Request) (*Completion, error) {
	body, err := json.Marshal(p.buildRequest(conv, req))
	if err != nil {
		return nil, err
	}

	base := req.Endpoint
	if base == "" {
		base = DefaultGoogleBaseURL
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", base, req.Model)
	headers := map[string]string{"x-goog-api-key": req.APIKey}

	payload, err := postJSON(ctx, p.Name(), url, headers, body, req.Timeout)
	if err != nil {
		return &Completion{Message: AssistantMessageFromError(err)}, nil
	}

	var parsed googleResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "failed to parse generateContent response", Cause: err,
		}})}, nil
	}
	if len(parsed.Candidates) == 0 {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "generateContent returned no candidates",
		}})}, nil
	}

	candidate := parsed.Candidates[0]
	msg := Message{Role: RoleAssistant, StopReason: &StopReason{Code: StopOK}}
	for _, wire := range candidate.Content.Parts {
		switch {
		case wire.FunctionCall != nil:
			args := wire.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			part := ToolCallPart("call_"+uuid.New().String()[:8], wire.FunctionCall.Name, args)
			part.ThoughtSignature = wire.ThoughtSignature
			msg.Content = append(msg.Content, part)
		case wire.Text != "":
			part := TextPart(wire.Text)
			part.ThoughtSignature = wire.ThoughtSignature
			msg.Content = append(msg.Content, part)
		}
	}
	if candidate.FinishReason == "MAX_TOKENS" {
		msg.StopReason = &StopReason{Code: StopMaxTokens}
	}

	return &Completion{
		Message: msg,
		Usage: Usage{
			Input:  parsed.UsageMetadata.PromptTokenCount,
			Output: parsed.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

func (p *Google) buildRequest(conv *Conversation, req Request) googleRequest {
	var contents []googleContent

	for _, m := range conv.Messages {
		switch m.Role {
		case RoleUser:
			contents = append(contents, googleContent{
				Role:  "user",
				Parts: []googlePart{{Text: m.Text}},
			})
		case RoleAssistant:
			model := googleContent{Role: "model"}
			var responses []googlePart
			var images []googlePart
			for _, part := range m.Content {
				switch part.Kind {
				case ContentText:
					if part.Text != "" {
						model.Parts = append(model.Parts, googlePart{
							Text:             part.Text,
							ThoughtSignature: part.ThoughtSignature,
						})
					}
				case ContentToolCall:
					if part.ToolCall == nil {
						continue
					}
					tc := part.ToolCall
					args := tc.Arguments
					if args == nil {
						args = map[string]any{}
					}
					model.Parts = append(model.Parts, googlePart{
						FunctionCall:     &googleFunctionCall{Name: tc.Name, Args: args},
						ThoughtSignature: part.ThoughtSignature,
					})
					if tc.Result != nil {
						responses = append(responses, googlePart{
							FunctionResponse: &googleFunctionResponse{
								Name:     tc.Name,
								Response: googleResultPayload(tc.Result),
							},
						})
						images = append(images, googleResultImages(tc.Result)...)
					}
				}
			}
			contents = append(contents, model)
			if len(responses) > 0 {
				contents = append(contents, googleContent{Role: "function", Parts: responses})
			}
			if len(images) > 0 {
				contents = append(contents, googleContent{Role: "user", Parts: images})
			}
			if m.ToolError != "" {
				contents = append(contents, googleContent{
					Role:  "user",
					Parts: []googlePart{{Text: m.ToolError}},
				})
			}
		}
	}

	out := googleRequest{
		SystemInstruction: &googleContent{
			Parts: []googlePart{{Text: wrapSystemPrompt(conv.SystemPrompt)}},
		},
		Contents: contents,
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		out.GenerationConfig = &googleGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	if len(conv.Tools) > 0 {
		tool := googleTool{}
		for _, t := range conv.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, googleFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  googleSchema(t.InputSchema),
			})
		}
		out.Tools = []googleTool{tool}
	}
	return out
}

// googleResultPayload flattens a tool result's text into the response
// object the functionResponse part requires.
func googleResultPayload(result *ToolResult) map[string]any {
	payload := map[string]any{"content": result.Text()}
	if result.IsError {
		payload["isError"] = true
	}
	return payload
}

func googleResultImages(result *ToolResult) []googlePart {
	var parts []googlePart
	for _, part := range result.Content {
		if part.Kind == ContentImage {
			parts = append(parts, googlePart{
				InlineData: &googleInlineData{MimeType: part.MimeType, Data: part.Data},
			})
		}
	}
	return parts
}

// googleSchema converts a tool input schema to the Gemini parameter
// format, stripping JSON-Schema fields the API rejects.
func googleSchema(schema Schema) map[string]any {
	out := map[string]any{"type": schema.Type}
	if schema.Properties != nil {
		out["properties"] = stripUnsupported(schema.Properties)
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}

func stripUnsupported(value map[string]any) map[string]any {
	out := make(map[string]any, len(value))
	for k, v := range value {
		if k == "additionalProperties" || k == "$schema" {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = stripUnsupported(nested)
			continue
		}
		out[k] = v
	}
	return out
}

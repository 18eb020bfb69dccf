package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// OpenAIResponses implements the OpenAI Responses wire dialect: assistant
// output messages, function_call items and function_call_output items are
// all top-level input items keyed by call_id. Item ids and statuses are
// echo fields; the provider rejects a replayed conversation whose items
// lack the ids it assigned, so they are preserved verbatim on the
// canonical message and its tool call parts.
type OpenAIResponses struct{}

func (p *OpenAIResponses) Name() string { return APIOpenAIResponses }

type responsesContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesItem struct {
	Type      string                 `json:"type,omitempty"`
	Role      string                 `json:"role,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Content   []responsesContentPart `json:"content,omitempty"`
	CallID    string                 `json:"call_id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Arguments string                 `json:"arguments,omitempty"`
	Output    []responsesContentPart `json:"output,omitempty"`
}

type responsesTool struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

type responsesReasoning struct {
	Effort string `json:"effort"`
}

type responsesRequest struct {
	Model           string              `json:"model"`
	Instructions    string              `json:"instructions"`
	Input           []responsesItem     `json:"input"`
	Tools           []responsesTool     `json:"tools,omitempty"`
	Reasoning       *responsesReasoning `json:"reasoning,omitempty"`
	Temperature     *float64            `json:"temperature,omitempty"`
	MaxOutputTokens int                 `json:"max_output_tokens,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		ID      string `json:"id"`
		Status  string `json:"status"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		CallID    string `json:"call_id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"output"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *OpenAIResponses) Complete(ctx context.Context, conv *Conversation, req Request) (*Completion, error) {
	body, err := json.Marshal(p.buildRequest(conv, req))
	if err != nil {
		return nil, err
	}

	url := req.Endpoint
	if url == "" {
		url = DefaultOpenAIResponsesURL
	}
	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}

	payload, err := postJSON(ctx, p.Name(), url, headers, body, req.Timeout)
	if err != nil {
		return &Completion{Message: AssistantMessageFromError(err)}, nil
	}

	var parsed responsesResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "failed to parse responses payload", Cause: err,
		}})}, nil
	}
	if len(parsed.Output) == 0 {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "responses payload contained no output items",
		}})}, nil
	}

	msg := Message{Role: RoleAssistant, StopReason: &StopReason{Code: StopOK}}
	for _, item := range parsed.Output {
		switch item.Type {
		case "message":
			msg.OpenAIID = item.ID
			msg.OpenAIStatus = item.Status
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					msg.Content = append(msg.Content, TextPart(c.Text))
				}
			}
		case "function_call":
			args := map[string]any{}
			if item.Arguments != "" {
				if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
					return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
						Message: fmt.Sprintf("malformed function call arguments for %q", item.Name), Cause: err,
					}})}, nil
				}
			}
			part := ToolCallPart(item.CallID, item.Name, args)
			part.OpenAIID = item.ID
			part.OpenAIStatus = item.Status
			msg.Content = append(msg.Content, part)
		}
	}
	if parsed.IncompleteDetails != nil && parsed.IncompleteDetails.Reason == "max_output_tokens" {
		msg.StopReason = &StopReason{Code: StopMaxTokens}
	}

	return &Completion{
		Message: msg,
		Usage:   Usage{Input: parsed.Usage.InputTokens, Output: parsed.Usage.OutputTokens},
	}, nil
}

func (p *OpenAIResponses) buildRequest(conv *Conversation, req Request) responsesRequest {
	var input []responsesItem

	for _, m := range conv.Messages {
		switch m.Role {
		case RoleUser:
			input = append(input, responsesItem{
				Role:    "user",
				Content: []responsesContentPart{{Type: "input_text", Text: m.Text}},
			})
		case RoleAssistant:
			var texts []responsesContentPart
			for _, part := range m.Content {
				if part.Kind == ContentText && part.Text != "" {
					texts = append(texts, responsesContentPart{Type: "output_text", Text: part.Text})
				}
			}
			if len(texts) > 0 {
				input = append(input, responsesItem{
					Type:    "message",
					Role:    "assistant",
					ID:      m.OpenAIID,
					Status:  m.OpenAIStatus,
					Content: texts,
				})
			}
			for _, part := range m.Content {
				if part.Kind != ContentToolCall || part.ToolCall == nil {
					continue
				}
				tc := part.ToolCall
				rawArgs, _ := json.Marshal(tc.Arguments)
				input = append(input, responsesItem{
					Type:      "function_call",
					ID:        part.OpenAIID,
					Status:    part.OpenAIStatus,
					CallID:    tc.ID,
					Name:      tc.Name,
					Arguments: string(rawArgs),
				})
				if tc.Result != nil {
					input = append(input, responsesItem{
						Type:   "function_call_output",
						CallID: tc.ID,
						Output: responsesResultContent(tc.Result),
					})
				}
			}
			if m.ToolError != "" {
				input = append(input, responsesItem{
					Role:    "user",
					Content: []responsesContentPart{{Type: "input_text", Text: m.ToolError}},
				})
			}
		}
	}

	out := responsesRequest{
		Model:           req.Model,
		Instructions:    wrapSystemPrompt(conv.SystemPrompt),
		Input:           input,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.Reasoning != "" {
		out.Reasoning = &responsesReasoning{Effort: string(req.Reasoning)}
	}
	for _, t := range conv.Tools {
		out.Tools = append(out.Tools, responsesTool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return out
}

func responsesResultContent(result *ToolResult) []responsesContentPart {
	var parts []responsesContentPart
	for _, part := range result.Content {
		switch part.Kind {
		case ContentText:
			parts = append(parts, responsesContentPart{Type: "input_text", Text: part.Text})
		case ContentImage:
			parts = append(parts, responsesContentPart{
				Type:     "input_image",
				ImageURL: dataURL(part.MimeType, part.Data),
			})
		}
	}
	if parts == nil {
		parts = []responsesContentPart{{Type: "input_text", Text: ""}}
	}
	return parts
}

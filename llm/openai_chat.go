package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// OpenAIChat implements the OpenAI Chat Completions wire dialect: a flat
// message list where assistant tool calls ride on the assistant message
// and tool results are separate tool-role messages keyed by call id.
type OpenAIChat struct{}

func (p *OpenAIChat) Name() string { return APIOpenAIChat }

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatRequest struct {
	Model             string        `json:"model"`
	Messages          []chatMessage `json:"messages"`
	Tools             []chatTool    `json:"tools,omitempty"`
	ParallelToolCalls bool          `json:"parallel_tool_calls"`
	Temperature       *float64      `json:"temperature,omitempty"`
	MaxTokens         int           `json:"max_tokens,omitempty"`
	ReasoningEffort   string        `json:"reasoning_effort,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIChat) Complete(ctx context.Context, conv *Conversation, req Request) (*Completion, error) {
	body, err := json.Marshal(p.buildRequest(conv, req))
	if err != nil {
		return nil, err
	}

	url := req.Endpoint
	if url == "" {
		url = DefaultOpenAIChatURL
	}
	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}

	payload, err := postJSON(ctx, p.Name(), url, headers, body, req.Timeout)
	if err != nil {
		return &Completion{Message: AssistantMessageFromError(err)}, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "failed to parse chat completion response", Cause: err,
		}})}, nil
	}
	if len(parsed.Choices) == 0 {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "chat completion returned no choices",
		}})}, nil
	}

	choice := parsed.Choices[0]
	msg := Message{Role: RoleAssistant, StopReason: &StopReason{Code: StopOK}}
	if choice.Message.Content != "" {
		msg.Content = append(msg.Content, TextPart(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
					Message: fmt.Sprintf("malformed tool call arguments for %q", tc.Function.Name), Cause: err,
				}})}, nil
			}
		}
		msg.Content = append(msg.Content, ToolCallPart(tc.ID, tc.Function.Name, args))
	}
	if choice.FinishReason == "length" {
		msg.StopReason = &StopReason{Code: StopMaxTokens}
	}

	return &Completion{
		Message: msg,
		Usage:   Usage{Input: parsed.Usage.PromptTokens, Output: parsed.Usage.CompletionTokens},
	}, nil
}

func (p *OpenAIChat) buildRequest(conv *Conversation, req Request) chatRequest {
	messages := []chatMessage{{Role: "system", Content: wrapSystemPrompt(conv.SystemPrompt)}}

	for _, m := range conv.Messages {
		switch m.Role {
		case RoleUser:
			messages = append(messages, chatMessage{Role: "user", Content: m.Text})
		case RoleAssistant:
			assistant := chatMessage{Role: "assistant"}
			if text := m.TextContent(); text != "" {
				assistant.Content = text
			}
			var results []chatMessage
			for _, part := range m.Content {
				if part.Kind != ContentToolCall || part.ToolCall == nil {
					continue
				}
				tc := part.ToolCall
				rawArgs, _ := json.Marshal(tc.Arguments)
				assistant.ToolCalls = append(assistant.ToolCalls, chatToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: chatFunctionCall{
						Name:      tc.Name,
						Arguments: string(rawArgs),
					},
				})
				if tc.Result != nil {
					results = append(results, chatMessage{
						Role:       "tool",
						ToolCallID: tc.ID,
						Content:    chatResultContent(tc.Result),
					})
				}
			}
			messages = append(messages, assistant)
			messages = append(messages, results...)
			if m.ToolError != "" {
				messages = append(messages, chatMessage{Role: "user", Content: m.ToolError})
			}
		}
	}

	out := chatRequest{
		Model:             req.Model,
		Messages:          messages,
		ParallelToolCalls: false,
		Temperature:       req.Temperature,
		MaxTokens:         req.MaxTokens,
	}
	if req.Reasoning != "" && req.Reasoning != ReasoningNone {
		out.ReasoningEffort = string(req.Reasoning)
	}
	for _, t := range conv.Tools {
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func chatResultContent(result *ToolResult) []chatContentPart {
	var parts []chatContentPart
	for _, part := range result.Content {
		switch part.Kind {
		case ContentText:
			parts = append(parts, chatContentPart{Type: "text", Text: part.Text})
		case ContentImage:
			parts = append(parts, chatContentPart{
				Type:     "image_url",
				ImageURL: &chatImageURL{URL: dataURL(part.MimeType, part.Data)},
			})
		}
	}
	if parts == nil {
		parts = []chatContentPart{{Type: "text", Text: ""}}
	}
	return parts
}

func dataURL(mimeType, data string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, data)
}

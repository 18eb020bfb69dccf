package llm

import (
	"context"
	"encoding/json"
)

// defaultAnthropicMaxTokens is used when the caller sets no token
// budget; the Anthropic API requires max_tokens on every request.
const defaultAnthropicMaxTokens = 4096

// Anthropic implements the Anthropic Messages wire dialect. Tool use
// blocks ride on the assistant message; tool results are packed into a
// following user message, with results for adjacent calls merged into a
// single user message.
type Anthropic struct{}

func (p *Anthropic) Name() string { return APIAnthropic }

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Type string `json:"type"`

	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`

	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   []anthropicBlock `json:"content,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text"`
		ID    string         `json:"id"`
		Name  string         `json:"name"`
		Input map[string]any `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *Anthropic) Complete(ctx context.Context, conv *Conversation, req Request) (*Completion, error) {
	body, err := json.Marshal(p.buildRequest(conv, req))
	if err != nil {
		return nil, err
	}

	url := req.Endpoint
	if url == "" {
		url = DefaultAnthropicURL
	}
	version := req.APIVersion
	if version == "" {
		version = defaultAnthropicVersion
	}
	headers := map[string]string{
		"x-api-key":         req.APIKey,
		"anthropic-version": version,
	}

	payload, err := postJSON(ctx, p.Name(), url, headers, body, req.Timeout)
	if err != nil {
		return &Completion{Message: AssistantMessageFromError(err)}, nil
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "failed to parse messages response", Cause: err,
		}})}, nil
	}
	if len(parsed.Content) == 0 {
		return &Completion{Message: AssistantMessageFromError(&ParseError{LoopError: LoopError{
			Message: "messages response contained no content blocks",
		}})}, nil
	}

	msg := Message{Role: RoleAssistant, StopReason: &StopReason{Code: StopOK}}
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				msg.Content = append(msg.Content, TextPart(block.Text))
			}
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			msg.Content = append(msg.Content, ToolCallPart(block.ID, block.Name, args))
		}
	}
	if parsed.StopReason == "max_tokens" {
		msg.StopReason = &StopReason{Code: StopMaxTokens}
	}

	return &Completion{
		Message: msg,
		Usage:   Usage{Input: parsed.Usage.InputTokens, Output: parsed.Usage.OutputTokens},
	}, nil
}

func (p *Anthropic) buildRequest(conv *Conversation, req Request) anthropicRequest {
	var messages []anthropicMessage

	for _, m := range conv.Messages {
		switch m.Role {
		case RoleUser:
			messages = append(messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicBlock{{Type: "text", Text: m.Text}},
			})
		case RoleAssistant:
			assistant := anthropicMessage{Role: "assistant"}
			var results []anthropicBlock
			for _, part := range m.Content {
				switch part.Kind {
				case ContentText:
					if part.Text != "" {
						assistant.Content = append(assistant.Content, anthropicBlock{Type: "text", Text: part.Text})
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
					assistant.Content = append(assistant.Content, anthropicBlock{
						Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: args,
					})
					if tc.Result != nil {
						results = append(results, anthropicBlock{
							Type:      "tool_result",
							ToolUseID: tc.ID,
							Content:   anthropicResultContent(tc.Result),
							IsError:   tc.Result.IsError,
						})
					}
				}
			}
			messages = append(messages, assistant)
			if len(results) > 0 {
				messages = append(messages, anthropicMessage{Role: "user", Content: results})
			}
			if m.ToolError != "" {
				messages = append(messages, anthropicMessage{
					Role:    "user",
					Content: []anthropicBlock{{Type: "text", Text: m.ToolError}},
				})
			}
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	out := anthropicRequest{
		Model:       req.Model,
		System:      wrapSystemPrompt(conv.SystemPrompt),
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	for _, t := range conv.Tools {
		out.Tools = append(out.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return out
}

func anthropicResultContent(result *ToolResult) []anthropicBlock {
	var blocks []anthropicBlock
	for _, part := range result.Content {
		switch part.Kind {
		case ContentText:
			blocks = append(blocks, anthropicBlock{Type: "text", Text: part.Text})
		case ContentImage:
			blocks = append(blocks, anthropicBlock{
				Type: "image",
				Source: &anthropicImageSource{
					Type:      "base64",
					MediaType: part.MimeType,
					Data:      part.Data,
				},
			})
		}
	}
	if blocks == nil {
		blocks = []anthropicBlock{{Type: "text", Text: ""}}
	}
	return blocks
}

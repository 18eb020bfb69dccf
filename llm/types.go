// Package llm provides the canonical conversation model and wire-level
// provider adapters for the lowire agent loop. Four provider dialects
// (OpenAI Responses, OpenAI Chat Completions, Anthropic, Google) are
// normalized behind a single completion contract.
package llm

import (
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentKind is the discriminator tag for ContentPart.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentToolCall ContentKind = "tool_call"
)

// StopCode classifies why a completion ended.
type StopCode string

const (
	StopOK        StopCode = "ok"
	StopMaxTokens StopCode = "max_tokens"
	StopError     StopCode = "error"
)

// StopReason describes how the provider terminated a completion.
type StopReason struct {
	Code    StopCode `json:"code"`
	Message string   `json:"message,omitempty"`
}

// ToolCallData represents a model-initiated tool invocation. Result is
// attached by the scheduler once the call has been dispatched.
type ToolCallData struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    *ToolResult    `json:"result,omitempty"`
}

// ContentPart is a tagged union representing one part of a message.
//
// OpenAIID, OpenAIStatus and ThoughtSignature are provider echo fields:
// opaque round-trip tokens that must be replayed verbatim or the origin
// provider rejects the conversation. The core never interprets them.
type ContentPart struct {
	Kind     ContentKind   `json:"kind"`
	Text     string        `json:"text,omitempty"`
	MimeType string        `json:"mime_type,omitempty"`
	Data     string        `json:"data,omitempty"`
	ToolCall *ToolCallData `json:"tool_call,omitempty"`

	OpenAIID         string `json:"openai_id,omitempty"`
	OpenAIStatus     string `json:"openai_status,omitempty"`
	ThoughtSignature string `json:"thought_signature,omitempty"`
}

// TextPart creates a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ImagePart creates an image ContentPart from base64-encoded data.
func ImagePart(mimeType, data string) ContentPart {
	return ContentPart{Kind: ContentImage, MimeType: mimeType, Data: data}
}

// ToolCallPart creates a tool call ContentPart.
func ToolCallPart(id, name string, args map[string]any) ContentPart {
	return ContentPart{
		Kind:     ContentToolCall,
		ToolCall: &ToolCallData{ID: id, Name: name, Arguments: args},
	}
}

// Message is the fundamental unit of conversation. User messages carry a
// plain text body; assistant messages carry ordered content parts plus an
// optional stop reason and provider echo fields.
//
// ToolError holds a protocol-violation hint fed back to the model on the
// next turn when an assistant message arrived without any tool call.
// Adapters serialize it as a synthetic user message following the
// assistant one.
type Message struct {
	Role    Role          `json:"role"`
	Text    string        `json:"text,omitempty"`
	Content []ContentPart `json:"content,omitempty"`

	StopReason *StopReason `json:"stop_reason,omitempty"`
	ToolError  string      `json:"tool_error,omitempty"`

	OpenAIID     string `json:"openai_id,omitempty"`
	OpenAIStatus string `json:"openai_status,omitempty"`
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage creates an assistant Message from content parts.
func AssistantMessage(parts ...ContentPart) Message {
	return Message{Role: RoleAssistant, Content: parts}
}

// AssistantMessageFromError wraps a transport or parse failure as an
// assistant message with an error stop reason. Adapters return this
// instead of propagating the failure.
func AssistantMessageFromError(err error) Message {
	return Message{
		Role:       RoleAssistant,
		StopReason: &StopReason{Code: StopError, Message: err.Error()},
	}
}

// TextContent returns the concatenation of the message's text parts,
// joined with newlines. For user messages it returns the body.
func (m Message) TextContent() string {
	if m.Role == RoleUser {
		return m.Text
	}
	var texts []string
	for _, part := range m.Content {
		if part.Kind == ContentText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ToolCalls returns pointers to the tool call parts of the message, in
// declaration order. Pointers alias the message so the scheduler can
// attach results in place.
func (m *Message) ToolCalls() []*ToolCallData {
	var calls []*ToolCallData
	for i := range m.Content {
		if m.Content[i].Kind == ContentToolCall && m.Content[i].ToolCall != nil {
			calls = append(calls, m.Content[i].ToolCall)
		}
	}
	return calls
}

// Schema is a JSON-Schema-like object describing tool input.
type Schema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// Tool defines a tool the model can call.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Reserved _meta keys on tool results and tool call arguments.
const (
	MetaIntent  = "dev.lowire/intent"
	MetaHistory = "dev.lowire/history"
	MetaState   = "dev.lowire/state"
)

// HistoryItem is one entry of a tool result's persistent history fragment.
type HistoryItem struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// ResultMeta carries the persistent fragments a tool may attach to its
// result. History entries survive summarization as pseudo-XML lines;
// State entries are merged into the summarizer's state appendix.
type ResultMeta struct {
	History []HistoryItem     `json:"dev.lowire/history,omitempty"`
	State   map[string]string `json:"dev.lowire/state,omitempty"`
}

// ToolResult is produced by executing a tool.
type ToolResult struct {
	Content []ContentPart `json:"content"`
	IsError bool          `json:"isError,omitempty"`
	Meta    *ResultMeta   `json:"_meta,omitempty"`
}

// TextToolResult creates a plain text ToolResult.
func TextToolResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentPart{TextPart(text)}}
}

// ErrorToolResult creates an errored ToolResult with the given text.
func ErrorToolResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentPart{TextPart(text)}, IsError: true}
}

// Text returns the concatenation of the result's text parts.
func (r *ToolResult) Text() string {
	var sb strings.Builder
	for _, part := range r.Content {
		if part.Kind == ContentText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// Conversation is the evolving exchange the scheduler owns: a system
// prompt, ordered messages, and a stable tool list.
type Conversation struct {
	SystemPrompt string    `json:"systemPrompt"`
	Messages     []Message `json:"messages"`
	Tools        []Tool    `json:"tools"`
}

// LastAssistant returns a pointer to the most recent assistant message,
// or nil if there is none.
func (c *Conversation) LastAssistant() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return &c.Messages[i]
		}
	}
	return nil
}

// Usage tracks additive token consumption.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{Input: u.Input + other.Input, Output: u.Output + other.Output}
}

// Completion is the result of one provider round trip.
type Completion struct {
	Message Message `json:"message"`
	Usage   Usage   `json:"usage"`
}

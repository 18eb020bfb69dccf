package llm

import (
	"context"
	"fmt"
	"time"
)

// ReasoningEffort controls provider-side reasoning depth.
type ReasoningEffort string

const (
	ReasoningNone   ReasoningEffort = "none"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// Request carries the per-call parameters every adapter understands.
// Endpoint overrides the provider default URL; MaxTokens of zero means
// the provider default.
type Request struct {
	Model       string
	APIKey      string
	Endpoint    string
	APIVersion  string
	Temperature *float64
	Reasoning   ReasoningEffort
	MaxTokens   int
	Timeout     time.Duration
}

// Provider is the interface every wire dialect implements. Complete
// never returns an error for transport, empty-candidate, or parse
// failures: those are normalized into an assistant message with an
// error stop reason and zero usage, so the scheduler sees a uniform
// envelope. A non-nil error is returned only when the request body
// cannot be encoded; a nil conversation is not checked.
type Provider interface {
	// Name returns the API tag (e.g. "openai", "anthropic", "google").
	Name() string

	// Complete sends the conversation and returns the assistant reply.
	Complete(ctx context.Context, conv *Conversation, req Request) (*Completion, error)
}

// API tags for the supported wire dialects.
const (
	APIOpenAIResponses = "openai"
	APIOpenAIChat      = "openai-chat"
	APIAnthropic       = "anthropic"
	APIGoogle          = "google"
)

// ForAPI selects the provider adapter for an API tag.
func ForAPI(api string) (Provider, error) {
	switch api {
	case APIOpenAIResponses:
		return &OpenAIResponses{}, nil
	case APIOpenAIChat:
		return &OpenAIChat{}, nil
	case APIAnthropic:
		return &Anthropic{}, nil
	case APIGoogle:
		return &Google{}, nil
	default:
		return nil, &ConfigurationError{LoopError: LoopError{
			Message: fmt.Sprintf("unknown api %q", api),
		}}
	}
}

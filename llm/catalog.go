package llm

import "strings"

// APIForModel infers the API tag from a model identifier so callers may
// omit the explicit api option when the model family is unambiguous.
// Returns "" when the model is unknown.
func APIForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return APIOpenAIResponses
	case strings.HasPrefix(model, "claude"):
		return APIAnthropic
	case strings.HasPrefix(model, "gemini"):
		return APIGoogle
	default:
		return ""
	}
}

// Default provider endpoints, overridable per request.
const (
	DefaultOpenAIResponsesURL = "https://api.openai.com/v1/responses"
	DefaultOpenAIChatURL      = "https://api.openai.com/v1/chat/completions"
	DefaultAnthropicURL       = "https://api.anthropic.com/v1/messages"
	DefaultGoogleBaseURL      = "https://generativelanguage.googleapis.com/v1beta"

	defaultAnthropicVersion = "2023-06-01"
)

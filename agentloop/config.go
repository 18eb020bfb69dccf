package agentloop

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/lowire-dev/lowire/llm"
)

// OptionsFromEnv builds Options from LOWIRE_* environment variables,
// loading a .env file first when one is present. Missing variables leave
// the corresponding option at its zero value. When LOWIRE_API_KEY is
// unset, the conventional provider key variable for the resolved API is
// used instead.
func OptionsFromEnv() Options {
	_ = godotenv.Load()

	opts := Options{
		Model:        os.Getenv("LOWIRE_MODEL"),
		API:          os.Getenv("LOWIRE_API"),
		APIKey:       os.Getenv("LOWIRE_API_KEY"),
		APIEndpoint:  os.Getenv("LOWIRE_API_ENDPOINT"),
		APIVersion:   os.Getenv("LOWIRE_API_VERSION"),
		Reasoning:    llm.ReasoningEffort(os.Getenv("LOWIRE_REASONING")),
		SystemPrompt: os.Getenv("LOWIRE_SYSTEM_PROMPT"),
	}

	if ms := envInt("LOWIRE_API_TIMEOUT_MS"); ms > 0 {
		opts.APITimeout = time.Duration(ms) * time.Millisecond
	}
	opts.MaxTokens = envInt("LOWIRE_MAX_TOKENS")
	opts.MaxTurns = envInt("LOWIRE_MAX_TURNS")
	opts.MaxToolCalls = envInt("LOWIRE_MAX_TOOL_CALLS")
	opts.MaxToolCallRetries = envInt("LOWIRE_MAX_TOOL_CALL_RETRIES")
	opts.LoopDetectionWindow = envInt("LOWIRE_LOOP_DETECTION_WINDOW")
	opts.ToolOutputLimit = envInt("LOWIRE_TOOL_OUTPUT_LIMIT")
	if raw := os.Getenv("LOWIRE_TEMPERATURE"); raw != "" {
		if t, err := strconv.ParseFloat(raw, 64); err == nil {
			opts.Temperature = &t
		}
	}
	if raw := os.Getenv("LOWIRE_SUMMARIZE"); raw != "" {
		opts.Summarize, _ = strconv.ParseBool(raw)
	}

	if opts.APIKey == "" {
		api := opts.API
		if api == "" {
			api = llm.APIForModel(opts.Model)
		}
		switch api {
		case llm.APIOpenAIResponses, llm.APIOpenAIChat:
			opts.APIKey = os.Getenv("OPENAI_API_KEY")
		case llm.APIAnthropic:
			opts.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case llm.APIGoogle:
			opts.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	return opts
}

func envInt(name string) int {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/lowire-dev/lowire/llm"
)

// DefaultMaxTurns bounds a run when the caller sets no turn limit.
const DefaultMaxTurns = 100

// ToolCallback executes one tool call on behalf of the loop. The
// arguments map includes the reserved "_meta" key carrying the
// assistant's stated intent and the history/state opt-in flags; the
// callback is free to use or ignore it. A returned error is folded into
// the conversation as an error result and counted against the retry
// budget, it does not abort the run.
type ToolCallback func(ctx context.Context, name string, arguments map[string]any) (*llm.ToolResult, error)

// Options configures a Loop.
//
// MaxTokens is the run's token budget; each request's output ceiling is
// the remaining budget minus the input estimate. MaxToolCalls and MaxToolCallRetries of
// zero mean unlimited; MaxTurns of zero means DefaultMaxTurns.
type Options struct {
	Model        string              `mapstructure:"model"`
	API          string              `mapstructure:"api"`
	APIKey       string              `mapstructure:"apiKey"`
	APIEndpoint  string              `mapstructure:"apiEndpoint"`
	APIVersion   string              `mapstructure:"apiVersion"`
	APITimeout   time.Duration       `mapstructure:"apiTimeout"`
	Temperature  *float64            `mapstructure:"temperature"`
	Reasoning    llm.ReasoningEffort `mapstructure:"reasoning"`
	MaxTokens    int                 `mapstructure:"maxTokens"`
	SystemPrompt string              `mapstructure:"systemPrompt"`

	Tools    []llm.Tool   `mapstructure:"-"`
	CallTool ToolCallback `mapstructure:"-"`

	MaxTurns           int `mapstructure:"maxTurns"`
	MaxToolCalls       int `mapstructure:"maxToolCalls"`
	MaxToolCallRetries int `mapstructure:"maxToolCallRetries"`

	// LoopDetectionWindow aborts the run when the last N tool calls
	// repeat a pattern of length 1, 2, or 3. Zero disables detection.
	LoopDetectionWindow int `mapstructure:"loopDetectionWindow"`

	// ToolOutputLimit caps the character length of tool result text,
	// head and tail kept. ToolOutputLimits overrides it per tool name.
	// Zero means unlimited.
	ToolOutputLimit  int            `mapstructure:"toolOutputLimit"`
	ToolOutputLimits map[string]int `mapstructure:"toolOutputLimits"`

	Cache     *llm.ReplayCache  `mapstructure:"-"`
	Secrets   map[string]string `mapstructure:"secrets"`
	Summarize bool              `mapstructure:"summarize"`

	Hooks   Hooks         `mapstructure:"-"`
	Emitter *EventEmitter `mapstructure:"-"`
}

// OptionsFromMap decodes a loose key/value map into Options. Keys not
// recognized by the options struct are rejected rather than silently
// dropped, so a misspelled option surfaces at construction time.
func OptionsFromMap(raw map[string]any) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Options{}, fmt.Errorf("invalid options: %w", err)
	}
	return opts, nil
}

package agentloop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lowire-dev/lowire/llm"
)

// Status classifies the outcome of a run.
type Status string

const (
	StatusOK    Status = "ok"
	StatusBreak Status = "break"
	StatusError Status = "error"
)

// Result is the envelope returned by Run. Result is set on ok, Error on
// error. Usage and Turns reflect whatever was consumed before the run
// ended, regardless of status.
type Result struct {
	Status Status          `json:"status"`
	Result *llm.ToolResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Usage  llm.Usage       `json:"usage"`
	Turns  int             `json:"turns"`
}

// missingToolCallHint is fed back to the model when an assistant message
// arrives without a tool call.
const missingToolCallHint = `Error: tool call is expected in every assistant message. Call the "report_result" tool when the task is complete.`

// Loop is the turn scheduler. It owns the conversation for the duration
// of one Run and records every completion it obtains into an output
// replay cache, readable after the run via Output.
//
// A Loop is not safe for concurrent Runs; independent Loop instances
// share no state.
type Loop struct {
	id       string
	opts     Options
	provider llm.Provider
	emitter  *EventEmitter
	output   *llm.ReplayCache
}

// New constructs a Loop. The provider is selected by the api option, or
// inferred from the model name when api is empty.
func New(opts Options) (*Loop, error) {
	api := opts.API
	if api == "" {
		api = llm.APIForModel(opts.Model)
	}
	provider, err := llm.ForAPI(api)
	if err != nil {
		return nil, err
	}
	if len(opts.Tools) > 0 && opts.CallTool == nil {
		return nil, &llm.ConfigurationError{LoopError: llm.LoopError{
			Message: "callTool is required when tools are declared",
		}}
	}
	return &Loop{
		id:       uuid.New().String(),
		opts:     opts,
		provider: provider,
		emitter:  opts.Emitter,
		output:   llm.NewReplayCache(),
	}, nil
}

// ID returns the loop's run identifier.
func (l *Loop) ID() string { return l.id }

// SetProvider overrides the selected provider adapter.
func (l *Loop) SetProvider(p llm.Provider) { l.provider = p }

// Output returns the replay cache recorded by this Loop. It is created
// once in New, so successive Runs add to the same cache.
func (l *Loop) Output() *llm.ReplayCache { return l.output }

// budget tracks the run's remaining allowances. The has* flags
// distinguish "unlimited" from an exhausted counter.
type budget struct {
	tokens    int
	toolCalls int
	retries   int

	hasTokens    bool
	hasToolCalls bool
	hasRetries   bool
}

// Run drives the conversation until a tool call signals completion, a
// budget is exhausted, or the context is cancelled. Errors from event
// hooks and misconfiguration surface as a non-nil error; every other
// failure is normalized into the Result envelope.
func (l *Loop) Run(ctx context.Context, task string) (*Result, error) {
	conv := &llm.Conversation{
		SystemPrompt: l.opts.SystemPrompt,
		Messages:     []llm.Message{llm.UserMessage(task)},
		Tools:        WrapTools(l.opts.Tools),
	}

	b := budget{
		tokens:       l.opts.MaxTokens,
		toolCalls:    l.opts.MaxToolCalls,
		retries:      l.opts.MaxToolCallRetries,
		hasTokens:    l.opts.MaxTokens > 0,
		hasToolCalls: l.opts.MaxToolCalls > 0,
		hasRetries:   l.opts.MaxToolCallRetries > 0,
	}
	maxTurns := l.opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	var usage llm.Usage
	turns := 0

	finish := func(res *Result) (*Result, error) {
		l.emitter.Emit(EventRunEnd, map[string]any{"status": string(res.Status), "turns": res.Turns})
		return res, nil
	}
	fail := func(msg string) (*Result, error) {
		l.emitter.Emit(EventError, map[string]any{"error": msg})
		return finish(&Result{Status: StatusError, Error: msg, Usage: usage, Turns: turns})
	}
	interrupt := func() (*Result, error) {
		return finish(&Result{Status: StatusBreak, Usage: usage, Turns: turns})
	}

	l.emitter.Emit(EventRunStart, map[string]any{"model": l.opts.Model, "api": l.provider.Name()})

	for turn := 0; turn < maxTurns; turn++ {
		if b.hasTokens && b.tokens <= 0 {
			return fail(fmt.Sprintf("Budget tokens %d exhausted", l.opts.MaxTokens))
		}

		view := conv
		if l.opts.Summarize {
			msgs := summarizedView(task, conv)
			view = &llm.Conversation{SystemPrompt: conv.SystemPrompt, Messages: msgs, Tools: conv.Tools}
			l.emitter.Emit(EventSummarize, map[string]any{"messages": len(msgs)})
		}

		estimate := estimateTokens(view)
		if b.hasTokens && estimate >= b.tokens {
			return fail(fmt.Sprintf("Input token estimate %d exceeds budget %d", estimate, b.tokens))
		}

		if h := l.opts.Hooks.OnBeforeTurn; h != nil {
			if err := h(ctx, conv); err != nil {
				return nil, err
			}
		}
		if ctx.Err() != nil {
			return interrupt()
		}

		l.emitter.Emit(EventTurnStart, map[string]any{"turn": turn})

		completion, err := l.complete(ctx, view, l.request(b, estimate))
		if err != nil {
			return nil, err
		}
		usage = usage.Add(completion.Usage)
		if b.hasTokens {
			b.tokens -= completion.Usage.Input + completion.Usage.Output
		}

		msg := completion.Message
		if msg.StopReason != nil {
			switch msg.StopReason.Code {
			case llm.StopError:
				return fail(msg.StopReason.Message)
			case llm.StopMaxTokens:
				return fail("Max tokens exhausted")
			}
		}

		conv.Messages = append(conv.Messages, msg)
		appended := &conv.Messages[len(conv.Messages)-1]
		turns++

		if h := l.opts.Hooks.OnAfterTurn; h != nil {
			if err := h(ctx, conv); err != nil {
				return nil, err
			}
		}
		if ctx.Err() != nil {
			return interrupt()
		}

		calls := appended.ToolCalls()
		if len(calls) == 0 {
			appended.ToolError = missingToolCallHint
			l.emitter.Emit(EventTurnEnd, map[string]any{"turn": turn, "tool_calls": 0})
			continue
		}

		if w := l.opts.LoopDetectionWindow; w > 0 && detectCallLoop(conv, w) {
			return fail("Failed to perform step, repeating tool calls detected")
		}

		intent := appended.TextContent()
		errored := false
		var done *llm.ToolResult

		for _, call := range calls {
			if b.hasToolCalls {
				b.toolCalls--
				if b.toolCalls < 0 {
					return fail(fmt.Sprintf("Failed to perform step, max tool calls (%d) reached", l.opts.MaxToolCalls))
				}
			}

			if h := l.opts.Hooks.OnBeforeToolCall; h != nil {
				decision, err := h(ctx, call)
				if err != nil {
					return nil, err
				}
				if ctx.Err() != nil {
					return interrupt()
				}
				if decision == Disallow {
					call.Result = llm.ErrorToolResult("Tool call is disallowed.")
					errored = true
					continue
				}
			}

			l.emitter.Emit(EventToolCallStart, map[string]any{"id": call.ID, "name": call.Name})

			args := substituteSecrets(call.Arguments, l.opts.Secrets)
			args["_meta"] = map[string]any{
				llm.MetaIntent:  intent,
				llm.MetaHistory: true,
				llm.MetaState:   true,
			}

			result, callErr := l.opts.CallTool(ctx, call.Name, args)
			if callErr != nil {
				if h := l.opts.Hooks.OnToolCallError; h != nil {
					if err := h(ctx, call, callErr); err != nil {
						return nil, err
					}
				}
				if ctx.Err() != nil {
					return interrupt()
				}
				call.Result = llm.ErrorToolResult(fmt.Sprintf(
					"Error while executing tool %q: %v\n\nPlease try to recover and complete the task.",
					call.Name, callErr))
				errored = true
				l.emitter.Emit(EventToolCallEnd, map[string]any{"id": call.ID, "name": call.Name, "is_error": true})
				continue
			}
			if result == nil {
				result = llm.TextToolResult("")
			}
			truncateResult(result, call.Name, l.opts)
			call.Result = result

			if h := l.opts.Hooks.OnAfterToolCall; h != nil {
				decision, err := h(ctx, call)
				if err != nil {
					return nil, err
				}
				if decision == Disallow {
					call.Result = llm.ErrorToolResult("Tool result is disallowed to be reported.")
				}
			}

			if call.Result.IsError {
				errored = true
			} else if done == nil && signalsDone(call.Arguments) {
				done = call.Result
			}
			l.emitter.Emit(EventToolCallEnd, map[string]any{"id": call.ID, "name": call.Name, "is_error": call.Result.IsError})

			if ctx.Err() != nil {
				return interrupt()
			}
		}

		if done != nil {
			return finish(&Result{Status: StatusOK, Result: done, Usage: usage, Turns: turns})
		}

		if errored {
			if b.hasRetries {
				b.retries--
				if b.retries < 0 {
					return fail(fmt.Sprintf("Failed to perform action after %d tool call retries", l.opts.MaxToolCallRetries))
				}
			}
		} else {
			b.retries = l.opts.MaxToolCallRetries
		}
		l.emitter.Emit(EventTurnEnd, map[string]any{"turn": turn, "tool_calls": len(calls)})
	}

	return fail("Failed to perform step, max attempts reached")
}

// complete resolves one completion through the replay protocol: input
// cache first (copied into output on hit), then within-run output
// duplicates, then the live provider.
func (l *Loop) complete(ctx context.Context, view *llm.Conversation, req llm.Request) (*llm.Completion, error) {
	key, err := llm.Fingerprint(view)
	if err != nil {
		return nil, err
	}
	if msg, ok := l.opts.Cache.Get(key); ok {
		l.output.Set(key, msg)
		l.emitter.Emit(EventReplayHit, map[string]any{"fingerprint": key})
		return &llm.Completion{Message: msg}, nil
	}
	if msg, ok := l.output.Get(key); ok {
		l.emitter.Emit(EventReplayHit, map[string]any{"fingerprint": key})
		return &llm.Completion{Message: msg}, nil
	}

	completion, err := l.provider.Complete(ctx, view, req)
	if err != nil {
		return nil, err
	}
	l.output.Set(key, completion.Message)
	l.emitter.Emit(EventCompletion, map[string]any{
		"fingerprint": key,
		"input":       completion.Usage.Input,
		"output":      completion.Usage.Output,
	})
	return completion, nil
}

// request assembles the per-call provider parameters. With a token
// budget active, the provider's output ceiling is whatever remains after
// the input estimate.
func (l *Loop) request(b budget, estimate int) llm.Request {
	req := llm.Request{
		Model:       l.opts.Model,
		APIKey:      l.opts.APIKey,
		Endpoint:    l.opts.APIEndpoint,
		APIVersion:  l.opts.APIVersion,
		Temperature: l.opts.Temperature,
		Reasoning:   l.opts.Reasoning,
		MaxTokens:   l.opts.MaxTokens,
		Timeout:     l.opts.APITimeout,
	}
	if b.hasTokens {
		req.MaxTokens = b.tokens - estimate
	}
	return req
}

// estimateTokens is the cheap input-size heuristic: a quarter of the
// serialized conversation length. Deliberately an under-approximation:
// an input whose real token count reaches the remaining budget can still
// pass the budget check.
func estimateTokens(conv *llm.Conversation) int {
	raw, err := json.Marshal(conv)
	if err != nil {
		return 0
	}
	return len(raw) / 4
}

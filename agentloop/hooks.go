package agentloop

import (
	"context"

	"github.com/lowire-dev/lowire/llm"
)

// Decision is returned by the tool-call hooks. Disallow vetoes the
// guarded step; Allow (the zero value) lets it proceed.
type Decision string

const (
	Allow    Decision = ""
	Disallow Decision = "disallow"
)

// TurnHook runs at a turn boundary with the live conversation.
type TurnHook func(ctx context.Context, conv *llm.Conversation) error

// ToolCallHook runs before or after one tool call. Returning Disallow
// from the before hook skips the invocation; from the after hook it
// replaces the result with an error result.
type ToolCallHook func(ctx context.Context, call *llm.ToolCallData) (Decision, error)

// ToolErrorHook runs when the tool callback returns an error, before
// the error is folded into the conversation as an error result.
type ToolErrorHook func(ctx context.Context, call *llm.ToolCallData, err error) error

// Hooks bundles the optional event hooks a caller may attach to a Loop.
// Nil hooks are skipped. An error returned from any hook aborts the run
// and surfaces from Run directly, outside the result envelope.
type Hooks struct {
	OnBeforeTurn     TurnHook
	OnAfterTurn      TurnHook
	OnBeforeToolCall ToolCallHook
	OnAfterToolCall  ToolCallHook
	OnToolCallError  ToolErrorHook
}

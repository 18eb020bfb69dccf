// Package agentloop drives an autonomous agent conversation: given a
// natural-language task and a set of callable tools, a Loop repeatedly
// requests a completion from an LLM provider, dispatches the tool calls
// the assistant requests, folds the results back into the conversation,
// and stops when a tool call signals completion or a budget is hit.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Loop: the turn scheduler holding the conversation, enforcing
//     budgets (turns, tokens, tool calls, retries), and dispatching
//     tool calls to the caller-supplied callback.
//   - Options: construction-time configuration, decodable from a loose
//     map or from LOWIRE_* environment variables.
//   - Hooks: caller-supplied callables invoked at turn and tool-call
//     boundaries; the tool-call hooks may veto with Disallow.
//   - EventEmitter: typed event stream for host application integration.
//   - Summarizer: collapses prior turns into a single user recap while
//     keeping the most recent assistant message live.
//
// # Quick Start
//
//	loop, err := agentloop.New(agentloop.Options{
//	    Model:    "claude-sonnet-4-5",
//	    APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
//	    Tools:    []llm.Tool{searchTool},
//	    CallTool: dispatch,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := loop.Run(ctx, "Find the largest file in the repo")
package agentloop

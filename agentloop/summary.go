package agentloop

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/lowire-dev/lowire/llm"
)

// summarizedView collapses the conversation into a two-message view: a
// synthetic user recap of every prior turn plus the most recent
// assistant message kept live. With at most one assistant message there
// is nothing to collapse and the original messages are returned.
func summarizedView(task string, conv *llm.Conversation) []llm.Message {
	var assistants []*llm.Message
	for i := range conv.Messages {
		if conv.Messages[i].Role == llm.RoleAssistant {
			assistants = append(assistants, &conv.Messages[i])
		}
	}
	if len(assistants) <= 1 {
		return conv.Messages
	}

	prior := assistants[:len(assistants)-1]
	last := assistants[len(assistants)-1]

	var sb strings.Builder
	sb.WriteString("## Task\n")
	sb.WriteString(task)

	for i, msg := range prior {
		sb.WriteString(fmt.Sprintf("\n\n### Turn %d\n", i+1))
		writeTurn(&sb, msg)
	}

	writeStateAppendix(&sb, prior, last)

	return []llm.Message{llm.UserMessage(sb.String()), *last}
}

// writeTurn renders one prior assistant message: text parts interleaved
// with tool calls and their flattened results, in declaration order.
func writeTurn(sb *strings.Builder, msg *llm.Message) {
	var lines []string
	for _, part := range msg.Content {
		switch part.Kind {
		case llm.ContentText:
			if part.Text != "" {
				lines = append(lines, "[assistant] "+part.Text)
			}
		case llm.ContentToolCall:
			if part.ToolCall == nil {
				continue
			}
			call := part.ToolCall
			args, _ := json.Marshal(call.Arguments)
			lines = append(lines, fmt.Sprintf("[tool_call] %s(%s)", call.Name, args))
			if call.Result != nil {
				lines = append(lines, "[tool_result] "+flattenResult(call.Result))
				if call.Result.Meta != nil {
					for _, item := range call.Result.Meta.History {
						lines = append(lines, fmt.Sprintf("<%s>%s</%s>", item.Category, item.Content, item.Category))
					}
				}
			}
		}
	}
	if msg.ToolError != "" {
		lines = append(lines, "[error] "+msg.ToolError)
	}
	sb.WriteString(strings.Join(lines, "\n"))
}

// writeStateAppendix renders the union of the persistent state fragments
// attached to prior tool results. Entries also present on the last
// assistant message's results are omitted, those are still live.
func writeStateAppendix(sb *strings.Builder, prior []*llm.Message, last *llm.Message) {
	live := map[string]bool{}
	for _, call := range last.ToolCalls() {
		if call.Result != nil && call.Result.Meta != nil {
			for name := range call.Result.Meta.State {
				live[name] = true
			}
		}
	}

	var names []string
	states := map[string]string{}
	for _, msg := range prior {
		for _, call := range msg.ToolCalls() {
			if call.Result == nil || call.Result.Meta == nil {
				continue
			}
			// Sorted keys keep the recap, and with it the replay
			// fingerprint, deterministic across runs.
			for _, name := range slices.Sorted(maps.Keys(call.Result.Meta.State)) {
				if live[name] {
					continue
				}
				if _, seen := states[name]; !seen {
					names = append(names, name)
				}
				states[name] = call.Result.Meta.State[name]
			}
		}
	}

	for _, name := range names {
		sb.WriteString(fmt.Sprintf("\n\n### %s\n%s", name, states[name]))
	}
}

// flattenResult reduces a tool result to a single text line set: text
// parts joined by newlines, image parts replaced with a placeholder.
func flattenResult(result *llm.ToolResult) string {
	var parts []string
	for _, part := range result.Content {
		switch part.Kind {
		case llm.ContentText:
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
		case llm.ContentImage:
			parts = append(parts, fmt.Sprintf("[image %s]", part.MimeType))
		}
	}
	return strings.Join(parts, "\n")
}

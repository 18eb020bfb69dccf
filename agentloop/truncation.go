package agentloop

import (
	"fmt"

	"github.com/lowire-dev/lowire/llm"
)

// truncateOutput caps text at maxChars, keeping the head and tail and
// marking how much was removed from the middle.
func truncateOutput(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}
	half := maxChars / 2
	removed := len(runes) - maxChars
	return string(runes[:half]) +
		fmt.Sprintf("\n\n[%d characters truncated. Re-run the tool with more targeted parameters to see the removed part.]\n\n", removed) +
		string(runes[len(runes)-half:])
}

// truncateResult applies the configured output cap to the text parts of
// a tool result, in place. Image parts pass through untouched.
func truncateResult(result *llm.ToolResult, toolName string, opts Options) {
	limit := opts.ToolOutputLimit
	if perTool, ok := opts.ToolOutputLimits[toolName]; ok {
		limit = perTool
	}
	if limit <= 0 {
		return
	}
	for i := range result.Content {
		if result.Content[i].Kind == llm.ContentText {
			result.Content[i].Text = truncateOutput(result.Content[i].Text, limit)
		}
	}
}

package agentloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/lowire-dev/lowire/llm"
)

// callSignature fingerprints one tool call by name and argument hash.
func callSignature(name string, arguments map[string]any) string {
	raw, _ := json.Marshal(arguments)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%x", name, sum[:8])
}

// recentCallSignatures returns the signatures of the last count tool
// calls in the conversation, oldest first.
func recentCallSignatures(conv *llm.Conversation, count int) []string {
	var sigs []string
	for i := len(conv.Messages) - 1; i >= 0 && len(sigs) < count; i-- {
		if conv.Messages[i].Role != llm.RoleAssistant {
			continue
		}
		calls := conv.Messages[i].ToolCalls()
		for j := len(calls) - 1; j >= 0 && len(sigs) < count; j-- {
			sigs = append(sigs, callSignature(calls[j].Name, calls[j].Arguments))
		}
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// detectCallLoop reports whether the last window tool calls repeat a
// pattern of length 1, 2, or 3. A history shorter than the window never
// counts as a loop.
func detectCallLoop(conv *llm.Conversation, window int) bool {
	sigs := recentCallSignatures(conv, window)
	if len(sigs) < window {
		return false
	}
	for patternLen := 1; patternLen <= 3; patternLen++ {
		if window%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < window && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}

package llm

// systemPromptAddendum is appended to every caller-supplied system
// prompt. The loop's protocol depends on it: each assistant reply must
// carry at least one tool call, intent and call may not be split across
// replies, and secret placeholders pass through untouched so the secret
// substitution step can resolve them outside the model.
const systemPromptAddendum = `# Tool calling protocol

Every reply must include a tool call. State your intent and make the tool call in the same reply; never split them into separate messages.

When the task is complete, set the "_is_done" argument of your final tool call to true.

Secrets appear as placeholders like %NAME%. Preserve them verbatim in tool arguments; never expand or paraphrase them.`

// wrapSystemPrompt combines the conversation's system prompt with the
// tool calling protocol addendum.
func wrapSystemPrompt(systemPrompt string) string {
	if systemPrompt == "" {
		return systemPromptAddendum
	}
	return systemPrompt + "\n\n" + systemPromptAddendum
}

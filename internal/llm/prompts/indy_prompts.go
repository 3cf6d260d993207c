package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// AssistantSystem is the base system prompt for the function-calling chat.
const AssistantSystem = `You are Indy, an assistant that edits landing pages built from blocks.

A page is an ordered list of blocks. Each block has a blockType (hero, grid,
features, cta, testimonials, footer) and a blockData object.

Use the provided functions to change the page:
- updateBlock: merge "updates" into the block at "index". Only include keys you change.
- addBlock: add a block of "type" with "props" as its data at the end of the page.
- deleteBlock: remove the block at "index".
- savePage: persist the page when the user asks to save or publish.

RULES:
- Indexes are zero-based and must refer to an existing block.
- Preserve content the user has customized unless asked to replace it.
- Use design token names for colors and spacing when tokens are provided.
- If the request is a question or needs no change, answer in plain text without calling a function.`

// SelectionContext describes the page state appended to AssistantSystem.
func SelectionContext(blockTypes []string, selected int) string {
	var sb strings.Builder
	sb.WriteString("CURRENT PAGE:\n")
	if len(blockTypes) == 0 {
		sb.WriteString("  (no blocks)\n")
	}
	for i, bt := range blockTypes {
		marker := ""
		if i == selected {
			marker = "  <- selected"
		}
		sb.WriteString(fmt.Sprintf("  [%d] %s%s\n", i, bt, marker))
	}
	if selected >= 0 && selected < len(blockTypes) {
		sb.WriteString(fmt.Sprintf("\nThe user has selected block %d (%s). Requests without an explicit index refer to it.\n", selected, blockTypes[selected]))
	} else {
		sb.WriteString("\nNo block is selected.\n")
	}
	return sb.String()
}

// SelectedBlock embeds the selected block's schema summary and its data verbatim.
func SelectedBlock(index int, blockType, schemaSummary, currentJSON string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SELECTED BLOCK [%d] %s\n\n", index, blockType))
	sb.WriteString(schemaSummary)
	sb.WriteString("\n\nCurrent data:\n")
	sb.WriteString(currentJSON)
	return sb.String()
}

// GenerateSystem is the system prompt for single-block JSON generation.
const GenerateSystem = `You generate blockData for one landing page block.

Respond with a single JSON object matching the block schema. Do not wrap it in
markdown. Do not include keys that are not in the schema.

INTENTS:
- create: produce complete content for an empty block, starting from the defaults.
- replace: the block still holds its defaults; produce fresh content for every section.
- update: the user has customized the block; change only what the request asks for and
  return the sections you changed.`

// GenerateUser renders the user prompt for JSON generation.
func GenerateUser(userInput, intent, reason, contextJSON string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("INTENT: %s\n", intent))
	if reason != "" {
		sb.WriteString(fmt.Sprintf("WHY: %s\n", reason))
	}
	sb.WriteString("\nBLOCK CONTEXT:\n")
	sb.WriteString(contextJSON)
	sb.WriteString("\n\nREQUEST:\n")
	sb.WriteString(truncate(userInput, 2000))
	sb.WriteString("\n")
	return sb.String()
}

// PropertySystem is the system prompt for the property agent.
const PropertySystem = `You change one property of a landing page block.

You receive the block type, the target path, the current value at that path and
the schema for it. Respond with a JSON object {"value": <new value>} where the
value replaces whatever is at the target path. Keep the value's type consistent
with the schema. Use design token names when tokens are provided.`

// PropertyUser renders the user prompt for the property agent.
func PropertyUser(userInput, target, contextJSON string) string {
	return fmt.Sprintf("TARGET: %s\n\nCONTEXT:\n%s\n\nREQUEST:\n%s\n", target, contextJSON, truncate(userInput, 1000))
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "... [truncated]"
}

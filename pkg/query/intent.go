package query

import (
	"strings"
)

// Query intents.
const (
	IntentQuestion   = "question"
	IntentCommand    = "command"
	IntentExpression = "expression"
	IntentStatement  = "statement"
)

// questionWords open interrogative sentences.
var questionWords = map[string]bool{
	"what": true, "when": true, "where": true, "who": true,
	"why": true, "how": true, "which": true, "whose": true, "whom": true,
}

// imperativeVerbs are common sentence-initial verbs that mark a command.
// A fixed lexicon stands in for part-of-speech tagging.
var imperativeVerbs = map[string]bool{
	"add": true, "bring": true, "call": true, "check": true, "clear": true,
	"close": true, "create": true, "delete": true, "describe": true,
	"explain": true, "find": true, "fetch": true, "get": true, "give": true,
	"go": true, "help": true, "list": true, "look": true, "make": true,
	"open": true, "play": true, "put": true, "read": true, "remember": true,
	"remind": true, "remove": true, "run": true, "search": true, "send": true,
	"set": true, "show": true, "start": true, "stop": true, "summarize": true,
	"take": true, "tell": true, "translate": true, "turn": true,
	"update": true, "write": true,
}

// classifyIntent applies a fixed priority chain: question, then command, then
// expression, then statement.
func classifyIntent(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return IntentStatement
	}

	lowered := strings.ToLower(trimmed)
	tokens := strings.Fields(lowered)
	first := strings.Trim(tokens[0], ".,!?;:'\"")

	if strings.Contains(trimmed, "?") || questionWords[first] {
		return IntentQuestion
	}
	if imperativeVerbs[first] {
		return IntentCommand
	}
	if strings.Contains(trimmed, "!") {
		return IntentExpression
	}
	return IntentStatement
}

// ClassifyIntent exposes the heuristic intent chain for callers without an
// analyzer.
func ClassifyIntent(text string) string {
	return classifyIntent(text)
}

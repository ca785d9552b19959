// Package prompts holds the embedded system prompt templates and their
// placeholder substitution helpers.
package prompts

import (
	"strings"
	"time"

	_ "embed"
)

//go:embed decision.md
var decisionTemplate string

//go:embed extract.md
var extractTemplate string

//go:embed exit.md
var exitTemplate string

//go:embed scheduling.md
var schedulingTemplate string

//go:embed info_context.md
var infoContextTemplate string

//go:embed info_no_context.md
var infoNoContextTemplate string

// Greeting opens every new conversation.
const Greeting = "Hi! Thanks for your interest in the position. I'd love to learn a bit about you. Could you share your name and a little about your background?"

// Decision builds the routing prompt for one conversation turn.
func Decision(message, history, profileJSON string) string {
	return replace(decisionTemplate, map[string]string{
		"{{MESSAGE}}": message,
		"{{HISTORY}}": history,
		"{{PROFILE}}": profileJSON,
	})
}

// Extract builds the candidate information extraction prompt.
func Extract(history string) string {
	return replace(extractTemplate, map[string]string{
		"{{HISTORY}}": history,
	})
}

// Exit builds the conversation end detection prompt.
func Exit(message, history string) string {
	return replace(exitTemplate, map[string]string{
		"{{MESSAGE}}": message,
		"{{HISTORY}}": history,
	})
}

// Scheduling builds the interview scheduling prompt.
func Scheduling(message, history, profileJSON, slots string, today time.Time) string {
	return replace(schedulingTemplate, map[string]string{
		"{{MESSAGE}}": message,
		"{{HISTORY}}": history,
		"{{PROFILE}}": profileJSON,
		"{{SLOTS}}":   slots,
		"{{TODAY}}":   today.Format("Monday, January 2, 2006"),
	})
}

// InfoWithContext builds the question answering prompt over retrieved
// passages.
func InfoWithContext(question, context string) string {
	return replace(infoContextTemplate, map[string]string{
		"{{QUESTION}}": question,
		"{{CONTEXT}}":  context,
	})
}

// InfoWithoutContext builds the honest fallback prompt when retrieval found
// nothing.
func InfoWithoutContext(question string) string {
	return replace(infoNoContextTemplate, map[string]string{
		"{{QUESTION}}": question,
	})
}

func replace(template string, subs map[string]string) string {
	for placeholder, value := range subs {
		template = strings.ReplaceAll(template, placeholder, value)
	}
	return strings.TrimSpace(template)
}

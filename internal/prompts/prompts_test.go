package prompts

import (
	"strings"
	"testing"
	"time"
)

func TestTemplatesSubstituteAllPlaceholders(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

	built := map[string]string{
		"decision":        Decision("msg", "history", "{}"),
		"extract":         Extract("history"),
		"exit":            Exit("msg", "history"),
		"scheduling":      Scheduling("msg", "history", "{}", "1. Monday", today),
		"info context":    InfoWithContext("question", "context"),
		"info no context": InfoWithoutContext("question"),
	}

	for name, prompt := range built {
		if prompt == "" {
			t.Fatalf("%s prompt is empty", name)
		}
		if strings.Contains(prompt, "{{") || strings.Contains(prompt, "}}") {
			t.Fatalf("%s prompt has unresolved placeholders:\n%s", name, prompt)
		}
	}
}

func TestSchedulingIncludesDate(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	prompt := Scheduling("msg", "history", "{}", "slots", today)

	if !strings.Contains(prompt, "Wednesday, March 4, 2026") {
		t.Fatalf("expected formatted date in prompt:\n%s", prompt)
	}
}

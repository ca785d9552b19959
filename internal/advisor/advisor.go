// Package advisor holds the specialist units the agent routes conversation
// turns to: exit detection, scheduling and question answering.
package advisor

import (
	"fmt"
	"strings"

	"recruit-agent/internal/calendar"
)

// historyWindow caps how many recent turns are passed to the model.
const historyWindow = 8

// Message is one conversation turn as seen by an advisor.
type Message struct {
	Role    string
	Content string
}

// FormatHistory renders up to limit most recent messages as a plain
// transcript.
func FormatHistory(messages []Message, limit int) string {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	if len(messages) == 0 {
		return "(no messages yet)"
	}

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	return strings.TrimSpace(b.String())
}

// FormatSlots renders slots as a numbered list candidates can pick from.
func FormatSlots(slots []calendar.Slot) string {
	if len(slots) == 0 {
		return "(no slots available)"
	}

	var b strings.Builder
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s at %s with %s\n",
			i+1,
			slot.Start.Format("Monday, January 2"),
			slot.Start.Format("03:04 PM"),
			slot.Recruiter,
		)
	}

	return strings.TrimSpace(b.String())
}

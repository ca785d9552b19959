package timeparse

import (
	"strings"
	"time"
)

// Intent is the scheduling signal extracted from a candidate message.
type Intent struct {
	Detected   bool
	Confidence float64
	Candidates []Resolution
}

var intentKeywords = []string{
	"schedule",
	"appointment",
	"interview",
	"meeting",
	"available",
	"availability",
	"free",
	"when",
	"time",
	"date",
}

// ParseSchedulingIntent detects scheduling intent and normalizes every
// candidate time into the business window, with a small confidence penalty
// for any adjustment made. Intent comes from scheduling vocabulary or from a
// parseable time expression: "I can do Mondays only" names no scheduling word
// but still states a preference. A keyword hit without a parseable time
// counts at baseline confidence.
func ParseSchedulingIntent(message string, ref time.Time) Intent {
	text := strings.ToLower(message)

	detected := false
	for _, keyword := range intentKeywords {
		if strings.Contains(text, keyword) {
			detected = true
			break
		}
	}

	candidates := New(ref).Parse(text)

	if !detected && len(candidates) == 0 {
		return Intent{}
	}

	confidence := 0.5
	adjusted := make([]Resolution, 0, len(candidates))
	for _, r := range candidates {
		moved := ClampToBusinessHours(r.Time)
		if !IsBusinessDay(moved) {
			moved = NextBusinessDay(moved)
		}

		if !moved.Equal(r.Time) {
			r.Time = moved
			r.Confidence *= 0.9
			r.Interpretation += " (moved into business hours)"
		}

		adjusted = append(adjusted, r)
		if r.Confidence > confidence {
			confidence = r.Confidence
		}
	}

	return Intent{
		Detected:   true,
		Confidence: confidence,
		Candidates: adjusted,
	}
}

package advisor

import (
	"sort"
	"time"

	"recruit-agent/internal/calendar"
	"recruit-agent/internal/timeparse"
)

// MatchWindow is how far a slot may be from a stated preference and still
// count as matching it. Matching also requires the same calendar date.
const MatchWindow = 2 * time.Hour

const defaultOfferLimit = 3

// MatchSlots picks up to limit slots for the candidate. With stated
// preferences it returns the closest slots on the preferred dates and
// matched true. Without preferences, or when nothing is close enough, it
// falls back to the earliest slots; matched is false only when stated
// preferences could not be satisfied.
func MatchSlots(preferred []timeparse.Resolution, slots []calendar.Slot, limit int) ([]calendar.Slot, bool) {
	if limit <= 0 {
		limit = defaultOfferLimit
	}

	if len(preferred) == 0 {
		return chronological(slots, limit), true
	}

	type scored struct {
		slot calendar.Slot
		diff time.Duration
	}

	best := make(map[int64]scored)
	for _, pref := range preferred {
		for _, slot := range slots {
			if !sameDate(slot.Start, pref.Time) {
				continue
			}

			diff := slot.Start.Sub(pref.Time)
			if diff < 0 {
				diff = -diff
			}
			if diff > MatchWindow {
				continue
			}

			if current, ok := best[slot.ID]; !ok || diff < current.diff {
				best[slot.ID] = scored{slot: slot, diff: diff}
			}
		}
	}

	if len(best) == 0 {
		return chronological(slots, limit), false
	}

	ranked := make([]scored, 0, len(best))
	for _, s := range best {
		ranked = append(ranked, s)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].diff != ranked[j].diff {
			return ranked[i].diff < ranked[j].diff
		}
		return ranked[i].slot.Start.Before(ranked[j].slot.Start)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	matched := make([]calendar.Slot, 0, len(ranked))
	for _, s := range ranked {
		matched = append(matched, s.slot)
	}

	return matched, true
}

func chronological(slots []calendar.Slot, limit int) []calendar.Slot {
	sorted := make([]calendar.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return sorted
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

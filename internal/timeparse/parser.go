package timeparse

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Business hours for interviews. Candidate preferences outside this window are
// moved to the nearest slot inside it.
const (
	BusinessStartHour = 9
	BusinessEndHour   = 18
)

const defaultHour = 9

// Resolution is one concrete interpretation of a natural language time
// expression.
type Resolution struct {
	Time           time.Time
	Confidence     float64
	Interpretation string
}

// Parser resolves natural language time expressions relative to a fixed
// reference time. All resolutions share the reference location.
type Parser struct {
	ref time.Time
}

func New(ref time.Time) *Parser {
	if ref.IsZero() {
		ref = time.Now()
	}
	return &Parser{ref: ref}
}

var (
	weekdayRe = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|wed|thu|fri|sat|sun)s?\b`)
	inSpanRe  = regexp.MustCompile(`\bin\s+(\d+)\s+(day|days|week|weeks|month|months)\b`)

	clock12Re = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	hour12Re  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	clock24Re = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDayRe  = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
)

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// periodAnchors maps day period words to a representative hour.
var periodAnchors = map[string]int{
	"morning":   9,
	"afternoon": 14,
	"evening":   18,
	"night":     20,
}

// Parse returns every plausible interpretation of the expression, deduplicated
// to 15 minute precision and ordered by descending confidence.
func (p *Parser) Parse(expression string) []Resolution {
	text := strings.ToLower(strings.TrimSpace(expression))
	if text == "" {
		return nil
	}

	var results []Resolution
	results = append(results, p.parseRelative(text)...)
	results = append(results, p.parseWeekday(text)...)
	results = append(results, p.parseClock(text)...)
	results = append(results, p.parseCombined(text)...)
	results = append(results, p.parseAbsolute(text)...)

	return rank(results)
}

func (p *Parser) parseRelative(text string) []Resolution {
	var results []Resolution

	hour, minute, _ := p.timeOfDay(text)

	day := func(offset int, label string, confidence float64) Resolution {
		t := p.at(p.ref.AddDate(0, 0, offset), hour, minute)
		return Resolution{
			Time:           t,
			Confidence:     confidence,
			Interpretation: fmt.Sprintf("%s at %s", label, clockLabel(t)),
		}
	}

	switch {
	case strings.Contains(text, "tomorrow"):
		results = append(results, day(1, "Tomorrow", 0.9))
	case strings.Contains(text, "today"):
		results = append(results, day(0, "Today", 0.9))
	case strings.Contains(text, "yesterday"):
		results = append(results, day(-1, "Yesterday", 0.9))
	}

	if match := inSpanRe.FindStringSubmatch(text); match != nil {
		n, _ := strconv.Atoi(match[1])
		var t time.Time
		switch strings.TrimSuffix(match[2], "s") {
		case "day":
			t = p.ref.AddDate(0, 0, n)
		case "week":
			t = p.ref.AddDate(0, 0, 7*n)
		case "month":
			t = p.ref.AddDate(0, n, 0)
		}
		t = p.at(t, hour, minute)
		results = append(results, Resolution{
			Time:           t,
			Confidence:     0.85,
			Interpretation: fmt.Sprintf("In %s %s at %s", match[1], match[2], clockLabel(t)),
		})
	}

	if strings.Contains(text, "next week") {
		// Monday of the following week.
		t := p.ref.AddDate(0, 0, 7)
		for t.Weekday() != time.Monday {
			t = t.AddDate(0, 0, 1)
		}
		t = p.at(t, hour, minute)
		results = append(results, Resolution{
			Time:           t,
			Confidence:     0.8,
			Interpretation: fmt.Sprintf("Next week on Monday at %s", clockLabel(t)),
		})
	}

	return results
}

func (p *Parser) parseWeekday(text string) []Resolution {
	match := weekdayRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	target := weekdays[match[1]]

	hour := defaultHour
	minute := 0
	if h, ok := extractPeriod(text); ok {
		hour = h
	}

	t := p.at(p.nextWeekday(target, strings.Contains(text, "next")), hour, minute)

	results := []Resolution{{
		Time:           t,
		Confidence:     0.9,
		Interpretation: fmt.Sprintf("This %s at %s", t.Weekday(), clockLabel(t)),
	}}

	// A plural weekday ("mondays") is a standing preference, so the week
	// after counts as well.
	if strings.HasSuffix(match[0], "s") {
		next := t.AddDate(0, 0, 7)
		results = append(results, Resolution{
			Time:           next,
			Confidence:     0.85,
			Interpretation: fmt.Sprintf("The following %s at %s", next.Weekday(), clockLabel(next)),
		})
	}

	return results
}

func (p *Parser) parseClock(text string) []Resolution {
	if hour, minute, ok := extractClock(text); ok {
		t := p.at(p.ref.AddDate(0, 0, 1), hour, minute)
		return []Resolution{{
			Time:           t,
			Confidence:     0.85,
			Interpretation: fmt.Sprintf("Tomorrow at %s", clockLabel(t)),
		}}
	}

	if hour, ok := extractPeriod(text); ok {
		t := p.at(p.ref.AddDate(0, 0, 1), hour, 0)
		return []Resolution{{
			Time:           t,
			Confidence:     0.7,
			Interpretation: fmt.Sprintf("Tomorrow %s at %s", periodLabel(hour), clockLabel(t)),
		}}
	}

	return nil
}

// parseCombined promotes a weekday paired with an explicit time of day to the
// highest confidence interpretation.
func (p *Parser) parseCombined(text string) []Resolution {
	match := weekdayRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	hour, minute, explicit := p.timeOfDay(text)
	if !explicit {
		return nil
	}

	target := weekdays[match[1]]
	t := p.at(p.nextWeekday(target, strings.Contains(text, "next")), hour, minute)

	return []Resolution{{
		Time:           t,
		Confidence:     0.95,
		Interpretation: fmt.Sprintf("This %s at %s", t.Weekday(), clockLabel(t)),
	}}
}

func (p *Parser) parseAbsolute(text string) []Resolution {
	hour, minute, _ := p.timeOfDay(text)

	date := func(year int, month time.Month, day int) (time.Time, bool) {
		if day < 1 || day > 31 || month < time.January || month > time.December {
			return time.Time{}, false
		}
		t := time.Date(year, month, day, hour, minute, 0, 0, p.ref.Location())
		if t.Month() != month || t.Day() != day {
			return time.Time{}, false
		}
		// A passed date this year likely means next year.
		if t.Before(p.at(p.ref, 0, 0)) && year == p.ref.Year() {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}

	var results []Resolution
	add := func(t time.Time) {
		results = append(results, Resolution{
			Time:           t,
			Confidence:     0.9,
			Interpretation: fmt.Sprintf("%s %d at %s", t.Month(), t.Day(), clockLabel(t)),
		})
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := date(year, time.Month(month), day); ok {
			add(t)
			return results
		}
	}

	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := p.ref.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if t, ok := date(year, time.Month(month), day); ok {
			add(t)
			return results
		}
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])
		if t, ok := date(p.ref.Year(), months[m[1]], day); ok {
			add(t)
			return results
		}
	}

	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		if t, ok := date(p.ref.Year(), months[m[2]], day); ok {
			add(t)
		}
	}

	return results
}

// timeOfDay returns the time mentioned in the text, falling back to the
// default morning hour. explicit reports whether the text actually named a
// time or day period.
func (p *Parser) timeOfDay(text string) (hour, minute int, explicit bool) {
	if h, m, ok := extractClock(text); ok {
		return h, m, true
	}
	if h, ok := extractPeriod(text); ok {
		return h, 0, true
	}
	return defaultHour, 0, false
}

func extractClock(text string) (hour, minute int, ok bool) {
	if m := clock12Re.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if h, valid := to24Hour(hour, m[3]); valid && minute < 60 {
			return h, minute, true
		}
	}

	if m := hour12Re.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if h, valid := to24Hour(hour, m[2]); valid {
			return h, 0, true
		}
	}

	if m := clock24Re.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			return hour, minute, true
		}
	}

	return 0, 0, false
}

func to24Hour(hour int, meridiem string) (int, bool) {
	if hour < 1 || hour > 12 {
		return 0, false
	}
	if hour == 12 {
		hour = 0
	}
	if meridiem == "pm" {
		hour += 12
	}
	return hour, true
}

func extractPeriod(text string) (int, bool) {
	for period, hour := range periodAnchors {
		if strings.Contains(text, period) {
			return hour, true
		}
	}
	return 0, false
}

func periodLabel(hour int) string {
	for period, h := range periodAnchors {
		if h == hour {
			return period
		}
	}
	return "morning"
}

// nextWeekday returns the date of the next occurrence of the target weekday.
// A weekday matching the reference day, or the forceNext flag, rolls over to
// the following week.
func (p *Parser) nextWeekday(target time.Weekday, forceNext bool) time.Time {
	ahead := int(target) - int(p.ref.Weekday())
	if ahead <= 0 || forceNext {
		ahead += 7
	}
	return p.ref.AddDate(0, 0, ahead)
}

func (p *Parser) at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.ref.Location())
}

func clockLabel(t time.Time) string {
	return t.Format("03:04 PM")
}

// rank deduplicates resolutions to 15 minute precision, keeping the highest
// confidence interpretation per moment, ordered best first.
func rank(results []Resolution) []Resolution {
	best := make(map[time.Time]Resolution, len(results))
	order := make([]time.Time, 0, len(results))

	for _, r := range results {
		key := r.Time.Round(15 * time.Minute)
		current, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = r
			continue
		}
		if r.Confidence > current.Confidence {
			best[key] = r
		}
	}

	out := make([]Resolution, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Time.Before(out[j].Time)
	})

	return out
}

// IsBusinessDay reports whether t falls on a weekday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay returns the first weekday strictly after t, keeping the
// clock time.
func NextBusinessDay(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for !IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// ClampToBusinessHours moves t inside the interview window. Too early moves
// to opening time the same day, at or after closing moves to opening time the
// next day.
func ClampToBusinessHours(t time.Time) time.Time {
	switch {
	case t.Hour() < BusinessStartHour:
		return time.Date(t.Year(), t.Month(), t.Day(), BusinessStartHour, 0, 0, 0, t.Location())
	case t.Hour() >= BusinessEndHour:
		next := t.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), BusinessStartHour, 0, 0, 0, t.Location())
	default:
		return t
	}
}

package conversation

import (
	"strings"
	"sync"
	"time"

	"recruit-agent/internal/calendar"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile holds what is known about the candidate so far. Fields are filled
// in as the conversation progresses and never regress to unknown.
type Profile struct {
	Name                  string `json:"name,omitempty"`
	Experience            string `json:"experience,omitempty"`
	CurrentStatus         string `json:"current_status,omitempty"`
	InterestLevel         string `json:"interest_level,omitempty"`
	AvailabilityMentioned bool   `json:"availability_mentioned"`
	SchedulingFailed      bool   `json:"scheduling_failed,omitempty"`
}

// Merge returns the profile updated with the extracted values. Only fields
// carrying real information overwrite: empty strings and "unknown" never
// replace a known value, and boolean flags stay set once raised.
func (p Profile) Merge(extracted Profile) Profile {
	merged := p

	if known(extracted.Name) {
		merged.Name = strings.TrimSpace(extracted.Name)
	}
	if known(extracted.Experience) {
		merged.Experience = strings.TrimSpace(extracted.Experience)
	}
	if known(extracted.CurrentStatus) {
		merged.CurrentStatus = strings.TrimSpace(extracted.CurrentStatus)
	}
	if known(extracted.InterestLevel) {
		merged.InterestLevel = strings.ToLower(strings.TrimSpace(extracted.InterestLevel))
	}
	if extracted.AvailabilityMentioned {
		merged.AvailabilityMentioned = true
	}
	if extracted.SchedulingFailed {
		merged.SchedulingFailed = true
	}

	return merged
}

// HasExperience reports whether the candidate has shared anything about their
// background yet.
func (p Profile) HasExperience() bool {
	return known(p.Experience)
}

func known(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v != "" && v != "unknown" && v != "null" && v != "none"
}

// DecisionRecord captures one routing decision together with the profile
// snapshot at the time it was made.
type DecisionRecord struct {
	Decision  string    `json:"decision"`
	Reasoning string    `json:"reasoning,omitempty"`
	Response  string    `json:"response,omitempty"`
	Profile   Profile   `json:"profile"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the full mutable state of one conversation. Hold the State's lock
// for the duration of a turn: that serializes turns within one conversation
// and lets cross-conversation readers take consistent snapshots.
type State struct {
	mu sync.Mutex

	ID                  string           `json:"id"`
	CreatedAt           time.Time        `json:"created_at"`
	Turns               []Turn           `json:"turns"`
	Profile             Profile          `json:"profile"`
	Decisions           []DecisionRecord `json:"decisions"`
	FlexibilityAttempts int              `json:"flexibility_attempts"`
	OfferedSlots        []calendar.Slot  `json:"offered_slots,omitempty"`
	Ended               bool             `json:"ended"`
}

func (s *State) Lock()   { s.mu.Lock() }
func (s *State) Unlock() { s.mu.Unlock() }

// AddTurn appends a message to the conversation history.
func (s *State) AddTurn(role, content string) {
	s.Turns = append(s.Turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// AddDecision appends a routing decision with the current profile snapshot.
func (s *State) AddDecision(decision, reasoning, response string) {
	s.Decisions = append(s.Decisions, DecisionRecord{
		Decision:  decision,
		Reasoning: reasoning,
		Response:  response,
		Profile:   s.Profile,
		Timestamp: time.Now(),
	})
}

// LastDecision returns the most recent routing decision, or empty when no
// decision has been made yet.
func (s *State) LastDecision() string {
	if len(s.Decisions) == 0 {
		return ""
	}
	return s.Decisions[len(s.Decisions)-1].Decision
}

// Recent returns up to n most recent turns.
func (s *State) Recent(n int) []Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

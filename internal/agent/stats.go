package agent

import (
	"encoding/json"
	"fmt"
)

// Stats summarizes all conversations the agent has handled.
type Stats struct {
	Conversations int            `json:"conversations"`
	Ended         int            `json:"ended"`
	Decisions     map[string]int `json:"decisions"`
}

func (a *Agent) Stats() Stats {
	stats := Stats{Decisions: map[string]int{}}

	for _, conv := range a.conversations.All() {
		conv.Lock()
		stats.Conversations++
		if conv.Ended {
			stats.Ended++
		}
		for _, record := range conv.Decisions {
			stats.Decisions[record.Decision]++
		}
		conv.Unlock()
	}

	return stats
}

// Export renders one conversation as indented JSON for inspection or handoff.
func (a *Agent) Export(conversationID string) ([]byte, error) {
	conv := a.conversations.Get(conversationID)
	if conv == nil {
		return nil, fmt.Errorf("unknown conversation %q", conversationID)
	}

	conv.Lock()
	defer conv.Unlock()

	return json.MarshalIndent(conv, "", "  ")
}

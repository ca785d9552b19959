package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps active conversations in memory keyed by id.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*State
}

func NewStore() *Store {
	return &Store{conversations: make(map[string]*State)}
}

// GetOrCreate returns the conversation with the given id, creating it when
// missing. An empty id allocates a fresh one.
func (s *Store) GetOrCreate(id string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	if state, ok := s.conversations[id]; ok {
		return state
	}

	state := &State{
		ID:        id,
		CreatedAt: time.Now(),
	}
	s.conversations[id] = state

	return state
}

// Get returns the conversation with the given id, or nil when unknown.
func (s *Store) Get(id string) *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.conversations[id]
}

// Delete removes the conversation with the given id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
}

// All returns a snapshot of every active conversation.
func (s *Store) All() []*State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]*State, 0, len(s.conversations))
	for _, state := range s.conversations {
		states = append(states, state)
	}

	return states
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conversations)
}

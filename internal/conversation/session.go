// Package conversation holds per-session turn history.
package conversation

import (
	"sync"

	"github.com/memvra/docbot/internal/adapter"
)

// Defaults for session history.
const (
	DefaultWindow   = 10
	DefaultMaxTurns = 200
)

// Turn is one message in a conversation.
type Turn = adapter.Message

// Session is an ordered, bounded turn history. Reads and appends are safe for
// concurrent use; Lock and Unlock additionally serialize whole requests so
// turns from one session never interleave.
type Session struct {
	ID string

	req      sync.Mutex
	mu       sync.RWMutex
	turns    []Turn
	maxTurns int
}

// NewSession returns an empty session. maxTurns <= 0 uses DefaultMaxTurns.
func NewSession(id string, maxTurns int) *Session {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Session{ID: id, maxTurns: maxTurns}
}

// Lock acquires the request lock.
func (s *Session) Lock() { s.req.Lock() }

// Unlock releases the request lock.
func (s *Session) Unlock() { s.req.Unlock() }

// Append adds turns in order, dropping the oldest beyond the retention cap.
func (s *Session) Append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
	if over := len(s.turns) - s.maxTurns; over > 0 {
		s.turns = append([]Turn(nil), s.turns[over:]...)
	}
}

// Recent returns a copy of the last n turns, oldest first.
func (s *Session) Recent(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.turns) {
		n = len(s.turns)
	}
	out := make([]Turn, n)
	copy(out, s.turns[len(s.turns)-n:])
	return out
}

// LastAssistant returns the most recent assistant turn's content.
func (s *Session) LastAssistant() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == adapter.RoleAssistant {
			return s.turns[i].Content, true
		}
	}
	return "", false
}

// Clear empties the history and returns how many turns were dropped.
func (s *Session) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.turns)
	s.turns = nil
	return n
}

// Len returns the number of stored turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

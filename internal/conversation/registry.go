package conversation

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Registry maps session ids to sessions. Idle sessions expire after the TTL.
type Registry struct {
	cache    *cache.Cache
	maxTurns int
	mu       sync.Mutex
}

// NewRegistry creates a registry whose sessions expire after ttl without
// use. ttl <= 0 keeps sessions forever.
func NewRegistry(ttl time.Duration, maxTurns int) *Registry {
	cleanup := ttl / 6
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	return &Registry{
		cache:    cache.New(ttl, cleanup),
		maxTurns: maxTurns,
	}
}

// Get returns the session for id, creating it on a miss. Every call
// refreshes the session's expiry.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s *Session
	if x, found := r.cache.Get(id); found {
		s = x.(*Session)
	} else {
		s = NewSession(id, r.maxTurns)
	}
	r.cache.SetDefault(id, s)
	return s
}

// Lookup returns the session for id without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

// Delete forgets a session.
func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

// ClearAll empties the history of every live session and returns the total
// number of turns dropped. Sessions stay registered so callers holding one
// keep a valid, empty history.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, item := range r.cache.Items() {
		if s, ok := item.Object.(*Session); ok {
			total += s.Clear()
		}
	}
	return total
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

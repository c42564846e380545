package session

import (
	"sync"
	"time"
)

// Registry tracks every live session, keyed by token id.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*Token)}
}

// Add creates and registers a fresh session for the user.
func (r *Registry) Add(userID int32, username string) *Token {
	t := newToken(userID, username)
	r.mu.Lock()
	r.tokens[t.id] = t
	r.mu.Unlock()
	return t
}

// AddExisting registers an already-built token. Used by tests.
func (r *Registry) AddExisting(t *Token) {
	r.mu.Lock()
	r.tokens[t.id] = t
	r.mu.Unlock()
}

// Get returns the session for a token id, nil when unknown.
func (r *Registry) Get(tokenID string) *Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tokens[tokenID]
}

// GetByUserID returns any session owned by the user, nil when offline.
func (r *Registry) GetByUserID(userID int32) *Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.UserID == userID {
			return t
		}
	}
	return nil
}

// GetByUsername returns any session matching the safe username.
func (r *Registry) GetByUsername(username string) *Token {
	safe := SafeUsername(username)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.SafeUsername == safe {
			return t
		}
	}
	return nil
}

// Remove unregisters a session. Returns true when it was present.
func (r *Registry) Remove(tokenID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tokenID]; !ok {
		return false
	}
	delete(r.tokens, tokenID)
	return true
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

// Snapshot returns all live sessions at a moment in time.
// Callers iterate the returned slice, never the internal map.
func (r *Registry) Snapshot() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	return out
}

// OtherSessions returns the user's sessions except the given token id.
// Tournament sessions coexist; at login the caller evicts only the
// non-tournament ones.
func (r *Registry) OtherSessions(userID int32, exceptTokenID string) []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Token
	for _, t := range r.tokens {
		if t.UserID == userID && t.id != exceptTokenID {
			out = append(out, t)
		}
	}
	return out
}

// TimedOut returns sessions silent for longer than timeout, skipping
// sessions younger than grace (freshly logged in, first poll pending).
func (r *Registry) TimedOut(timeout, grace time.Duration) []*Token {
	now := time.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Token
	for _, t := range r.tokens {
		if now.Sub(t.LastPing()) > timeout && now.Sub(t.LoginTime()) > grace {
			out = append(out, t)
		}
	}
	return out
}

// EnqueueAll appends data to every session's queue, skipping excluded
// token ids.
func (r *Registry) EnqueueAll(data []byte, exclude ...string) {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	for _, t := range r.Snapshot() {
		if _, ok := skip[t.id]; ok {
			continue
		}
		t.Enqueue(data)
	}
}

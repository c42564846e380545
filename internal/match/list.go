package match

import (
	"sync"

	"github.com/rosupd/bancho/internal/clientpackets"
)

// List is the registry of live matches.
type List struct {
	mu      sync.RWMutex
	matches map[uint16]*Match
}

// NewList creates an empty match registry.
func NewList() *List {
	return &List{matches: make(map[uint16]*Match)}
}

// Create registers a new match under the smallest unused id.
// Returns nil when all 16-bit ids are taken.
func (l *List) Create(s clientpackets.MatchSettings) *Match {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := uint16(1); id != 0; id++ {
		if _, taken := l.matches[id]; taken {
			continue
		}
		m := newMatch(id, s)
		l.matches[id] = m
		return m
	}
	return nil
}

// Get returns the match, nil when unknown.
func (l *List) Get(id uint16) *Match {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.matches[id]
}

// Remove drops a match from the registry.
func (l *List) Remove(id uint16) {
	l.mu.Lock()
	delete(l.matches, id)
	l.mu.Unlock()
}

// Snapshot returns all live matches.
func (l *List) Snapshot() []*Match {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Match, 0, len(l.matches))
	for _, m := range l.matches {
		out = append(out, m)
	}
	return out
}

// Count returns the number of live matches.
func (l *List) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.matches)
}

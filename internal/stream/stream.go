package stream

import (
	"sync"

	"github.com/rosupd/bancho/internal/session"
)

// Manager holds named packet streams. A stream is a set of session ids;
// broadcasting to a stream enqueues the bytes to every member that is
// still alive in the session registry. Dead ids are pruned lazily on
// broadcast.
type Manager struct {
	sessions *session.Registry

	mu      sync.RWMutex
	streams map[string]map[string]struct{}
}

// NewManager creates a stream manager bound to the session registry.
func NewManager(sessions *session.Registry) *Manager {
	return &Manager{
		sessions: sessions,
		streams:  make(map[string]map[string]struct{}),
	}
}

// Add creates the named stream if it does not exist.
func (m *Manager) Add(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[name]; !ok {
		m.streams[name] = make(map[string]struct{})
	}
}

// Remove deletes the named stream and all its memberships.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, name)
}

// Exists reports whether the named stream is registered.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.streams[name]
	return ok
}

// Join adds a session to the stream. Creates the stream on demand so
// that join/leave never race with stream setup.
func (m *Manager) Join(name, tokenID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[name]
	if !ok {
		s = make(map[string]struct{})
		m.streams[name] = s
	}
	s[tokenID] = struct{}{}
}

// Leave removes a session from the stream. Unknown names are a no-op.
func (m *Manager) Leave(name, tokenID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streams[name]; ok {
		delete(s, tokenID)
	}
}

// LeaveAll removes a session from every stream it belongs to.
// Called on session destruction.
func (m *Manager) LeaveAll(tokenID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		delete(s, tokenID)
	}
}

// In reports whether the session belongs to the stream.
func (m *Manager) In(name, tokenID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[name]
	if !ok {
		return false
	}
	_, ok = s[tokenID]
	return ok
}

// Members returns a snapshot of the stream's session ids.
func (m *Manager) Members(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Size returns the member count of the stream.
func (m *Manager) Size(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams[name])
}

// Broadcast enqueues data to every live member of the stream, except
// the excluded token ids. Members whose session no longer exists are
// dropped from the stream.
func (m *Manager) Broadcast(name string, data []byte, exclude ...string) {
	members := m.Members(name)
	if len(members) == 0 {
		return
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var dead []string
	for _, id := range members {
		if _, ok := skip[id]; ok {
			continue
		}
		t := m.sessions.Get(id)
		if t == nil {
			dead = append(dead, id)
			continue
		}
		t.Enqueue(data)
	}
	if len(dead) > 0 {
		m.mu.Lock()
		if s, ok := m.streams[name]; ok {
			for _, id := range dead {
				delete(s, id)
			}
		}
		m.mu.Unlock()
	}
}

// Package channel tracks chat channels and their membership counts.
// Membership itself lives on sessions and in the stream manager; this
// package owns the channel attributes and the listing.
package channel

import (
	"strings"
	"sync"
)

// Channel is one chat channel. Temporary channels back multiplayer
// rooms and spectator groups; they are created and torn down by the
// server and never advertised in the channel listing.
type Channel struct {
	Name        string
	Description string
	PublicRead  bool
	PublicWrite bool
	Moderated   bool
	Temporary   bool
}

// ClientName returns the name shown to clients. Multiplayer and
// spectator channels share fixed display names so the client keeps a
// single tab for them.
func (c *Channel) ClientName() string {
	if strings.HasPrefix(c.Name, "#multi_") {
		return "#multiplayer"
	}
	if strings.HasPrefix(c.Name, "#spect_") {
		return "#spectator"
	}
	return c.Name
}

// StreamName returns the fanout stream backing this channel.
func (c *Channel) StreamName() string {
	return StreamName(c.Name)
}

// StreamName maps a channel name to its fanout stream name.
func StreamName(channel string) string {
	return "chat/" + channel
}

// List is the registry of live channels.
type List struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewList creates an empty channel registry.
func NewList() *List {
	return &List{channels: make(map[string]*Channel)}
}

// Add registers a channel. An existing channel with the same name is
// replaced, which is how reload_settings refreshes attributes.
func (l *List) Add(c *Channel) {
	l.mu.Lock()
	l.channels[c.Name] = c
	l.mu.Unlock()
}

// AddTemporary registers a hidden server-managed channel that is
// readable and writable by its members.
func (l *List) AddTemporary(name string) *Channel {
	c := &Channel{
		Name:        name,
		Description: "Chat",
		PublicRead:  true,
		PublicWrite: true,
		Temporary:   true,
	}
	l.Add(c)
	return c
}

// Remove drops a channel from the registry.
func (l *List) Remove(name string) {
	l.mu.Lock()
	delete(l.channels, name)
	l.mu.Unlock()
}

// Get returns the channel, nil when unknown.
func (l *List) Get(name string) *Channel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.channels[name]
}

// Snapshot returns all channels.
func (l *List) Snapshot() []*Channel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Channel, 0, len(l.channels))
	for _, c := range l.channels {
		out = append(out, c)
	}
	return out
}

// Public returns the channels advertised in the listing: permanent
// channels the user may read.
func (l *List) Public() []*Channel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Channel
	for _, c := range l.channels {
		if !c.Temporary && c.PublicRead {
			out = append(out, c)
		}
	}
	return out
}

package bancho

import (
	"context"
	"fmt"

	"github.com/rosupd/bancho/internal/clientpackets"
	"github.com/rosupd/bancho/internal/serverpackets"
	"github.com/rosupd/bancho/internal/session"
)

// spectStream is the fanout stream carrying a host's replay frames.
func spectStream(hostUserID int32) string {
	return fmt.Sprintf("spect/%d", hostUserID)
}

// spectChannel is the temporary chat channel shared by a host and
// their spectators.
func spectChannel(hostUserID int32) string {
	return fmt.Sprintf("#spect_%d", hostUserID)
}

func (h *Hub) handleStartSpectating(ctx context.Context, t *session.Token, payload []byte) error {
	hostUserID, err := clientpackets.ParseUserID(payload)
	if err != nil {
		return err
	}
	host := h.Sessions.GetByUserID(hostUserID)
	if host == nil || host.ID() == t.ID() {
		return nil
	}

	// Re-spectating another player implies leaving the current host.
	if cur, _ := t.Spectating(); cur != "" {
		h.stopSpectating(t)
	}

	streamName := spectStream(hostUserID)
	chName := spectChannel(hostUserID)
	if !h.Streams.Exists(streamName) {
		h.Streams.Add(streamName)
		h.Channels.AddTemporary(chName)
		h.Streams.Add("chat/" + chName)
		h.joinChannel(host, chName)
	}

	// Existing spectators learn about the newcomer, and vice versa.
	for _, fellowID := range h.Streams.Members(streamName) {
		if fellow := h.Sessions.Get(fellowID); fellow != nil {
			fellow.Enqueue(serverpackets.FellowSpectatorJoined(t.UserID))
			t.Enqueue(serverpackets.FellowSpectatorJoined(fellow.UserID))
		}
	}

	h.Streams.Join(streamName, t.ID())
	t.SetSpectating(host.ID(), hostUserID)
	h.joinChannel(t, chName)
	host.Enqueue(serverpackets.SpectatorJoined(t.UserID))
	h.log.Debug().Int32("spectator", t.UserID).Int32("host", hostUserID).Msg("spectating started")
	return nil
}

// stopSpectating detaches the session from its host and tears the
// spectator infrastructure down once the last spectator leaves.
func (h *Hub) stopSpectating(t *session.Token) {
	hostTokenID, hostUserID := t.Spectating()
	if hostTokenID == "" {
		return
	}
	streamName := spectStream(hostUserID)
	chName := spectChannel(hostUserID)

	h.Streams.Leave(streamName, t.ID())
	h.partChannel(t, chName, true)
	t.SetSpectating("", 0)

	host := h.Sessions.Get(hostTokenID)
	if host != nil {
		host.Enqueue(serverpackets.SpectatorLeft(t.UserID))
	}
	for _, fellowID := range h.Streams.Members(streamName) {
		if fellow := h.Sessions.Get(fellowID); fellow != nil {
			fellow.Enqueue(serverpackets.FellowSpectatorLeft(t.UserID))
		}
	}

	if h.Streams.Size(streamName) == 0 {
		h.Streams.Remove(streamName)
		if host != nil {
			h.partChannel(host, chName, true)
		}
		h.Channels.Remove(chName)
		h.Streams.Remove("chat/" + chName)
	}
}

func (h *Hub) handleStopSpectating(ctx context.Context, t *session.Token, payload []byte) error {
	h.stopSpectating(t)
	return nil
}

// handleSpectateFrames relays the host's replay frames to every
// attached spectator.
func (h *Hub) handleSpectateFrames(ctx context.Context, t *session.Token, payload []byte) error {
	streamName := spectStream(t.UserID)
	if !h.Streams.Exists(streamName) {
		return nil
	}
	h.Streams.Broadcast(streamName, serverpackets.SpectateFrames(payload))
	return nil
}

// handleCantSpectate tells the host and fellows the spectator lacks
// the current beatmap.
func (h *Hub) handleCantSpectate(ctx context.Context, t *session.Token, payload []byte) error {
	hostTokenID, hostUserID := t.Spectating()
	if hostTokenID == "" {
		return nil
	}
	out := serverpackets.CantSpectate(t.UserID)
	if host := h.Sessions.Get(hostTokenID); host != nil {
		host.Enqueue(out)
	}
	h.Streams.Broadcast(spectStream(hostUserID), out, t.ID())
	return nil
}

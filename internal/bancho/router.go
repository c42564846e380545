package bancho

import (
	"context"
	"strconv"
	"time"

	"github.com/rosupd/bancho/internal/packet"
	"github.com/rosupd/bancho/internal/serverpackets"
	"github.com/rosupd/bancho/internal/session"
)

// handler processes one client packet's payload.
type handler func(h *Hub, ctx context.Context, t *session.Token, payload []byte) error

// handlers is the static dispatch table. Unknown ids are skipped using
// the declared payload length, which keeps us in sync with newer
// clients that send packets we don't care about.
var handlers = map[packet.ID]handler{
	packet.ClientChangeAction:        (*Hub).handleChangeAction,
	packet.ClientSendPublicMessage:   (*Hub).handlePublicMessage,
	packet.ClientLogout:              (*Hub).handleLogout,
	packet.ClientRequestStatusUpdate: (*Hub).handleRequestStatusUpdate,
	packet.ClientPong:                (*Hub).handlePong,
	packet.ClientSendPrivateMessage:  (*Hub).handlePrivateMessage,
	packet.ClientChannelJoin:         (*Hub).handleChannelJoin,
	packet.ClientChannelPart:         (*Hub).handleChannelPart,
	packet.ClientFriendAdd:           (*Hub).handleFriendAdd,
	packet.ClientFriendRemove:        (*Hub).handleFriendRemove,
	packet.ClientUserStatsRequest:    (*Hub).handleUserStatsRequest,
	packet.ClientUserPanelRequest:    (*Hub).handleUserPanelRequest,
	packet.ClientSetAwayMessage:      (*Hub).handleSetAwayMessage,
	packet.ClientReceiveUpdates:      (*Hub).handleNoop,
	packet.ClientBeatmapInfoRequest:  (*Hub).handleBeatmapInfoRequest,

	packet.ClientStartSpectating: (*Hub).handleStartSpectating,
	packet.ClientStopSpectating:  (*Hub).handleStopSpectating,
	packet.ClientSpectateFrames:  (*Hub).handleSpectateFrames,
	packet.ClientCantSpectate:    (*Hub).handleCantSpectate,

	packet.ClientJoinLobby:                (*Hub).handleJoinLobby,
	packet.ClientPartLobby:                (*Hub).handlePartLobby,
	packet.ClientCreateMatch:              (*Hub).handleCreateMatch,
	packet.ClientJoinMatch:                (*Hub).handleJoinMatch,
	packet.ClientPartMatch:                (*Hub).handlePartMatch,
	packet.ClientMatchChangeSlot:          (*Hub).handleMatchChangeSlot,
	packet.ClientMatchReady:               (*Hub).handleMatchReady,
	packet.ClientMatchNotReady:            (*Hub).handleMatchNotReady,
	packet.ClientMatchLock:                (*Hub).handleMatchLock,
	packet.ClientMatchChangeSettings:      (*Hub).handleMatchChangeSettings,
	packet.ClientMatchStart:               (*Hub).handleMatchStart,
	packet.ClientMatchScoreUpdate:         (*Hub).handleMatchScoreUpdate,
	packet.ClientMatchComplete:            (*Hub).handleMatchComplete,
	packet.ClientMatchChangeMods:          (*Hub).handleMatchChangeMods,
	packet.ClientMatchLoadComplete:        (*Hub).handleMatchLoadComplete,
	packet.ClientMatchNoBeatmap:           (*Hub).handleMatchNoBeatmap,
	packet.ClientMatchHasBeatmap:          (*Hub).handleMatchHasBeatmap,
	packet.ClientMatchFailed:              (*Hub).handleMatchFailed,
	packet.ClientMatchSkipRequest:         (*Hub).handleMatchSkipRequest,
	packet.ClientMatchChangeTeam:          (*Hub).handleMatchChangeTeam,
	packet.ClientMatchChangePassword:      (*Hub).handleMatchChangePassword,
	packet.ClientMatchTransferHost:        (*Hub).handleMatchTransferHost,
	packet.ClientInvite:                   (*Hub).handleMatchInvite,
	packet.ClientMatchAbort:               (*Hub).handleMatchAbort,
	packet.ClientTournamentMatchInfoReq:   (*Hub).handleTournamentMatchInfo,
	packet.ClientSpecialJoinMatchChannel:  (*Hub).handleSpecialJoinMatchChannel,
	packet.ClientSpecialLeaveMatchChannel: (*Hub).handleSpecialLeaveMatchChannel,
}

// restrictedAllowed are the packet ids processed for restricted
// sessions. Everything else is silently dropped.
var restrictedAllowed = map[packet.ID]struct{}{
	packet.ClientChangeAction:        {},
	packet.ClientLogout:              {},
	packet.ClientRequestStatusUpdate: {},
	packet.ClientPong:                {},
	packet.ClientSendPrivateMessage:  {},
	packet.ClientChannelJoin:         {},
	packet.ClientChannelPart:         {},
	packet.ClientUserStatsRequest:    {},
	packet.ClientUserPanelRequest:    {},
	packet.ClientReceiveUpdates:      {},
	packet.ClientSetAwayMessage:      {},
}

// HandleRequest processes one bancho POST body for an existing
// session. Returns the response bytes and whether the token was known.
func (h *Hub) HandleRequest(ctx context.Context, tokenID string, body []byte) ([]byte, bool) {
	t := h.Sessions.Get(tokenID)
	if t == nil {
		// Stale token after a restart or timeout: the restart packet
		// comes first so the client relogs before showing the message.
		out := serverpackets.Restart(0)
		return append(out, serverpackets.Notification("Your session has expired, logging you back in...")...), false
	}

	// One request at a time per session.
	t.Processing.Lock()
	defer t.Processing.Unlock()
	t.UpdatePingTime()

	restricted := t.Restricted()
	for len(body) >= packet.HeaderSize {
		id, length, err := packet.ReadFrameHeader(body)
		if err != nil {
			break
		}
		if len(body) < packet.HeaderSize+length {
			h.log.Warn().
				Uint16("id", uint16(id)).
				Int("declared", length).
				Int("have", len(body)-packet.HeaderSize).
				Msg("truncated frame, dropping rest of request")
			break
		}
		payload := body[packet.HeaderSize : packet.HeaderSize+length]
		body = body[packet.HeaderSize+length:]

		fn, ok := handlers[id]
		if !ok {
			continue
		}
		if restricted {
			if _, allowed := restrictedAllowed[id]; !allowed {
				continue
			}
		}
		h.metrics.PacketsIn.WithLabelValues(strconv.Itoa(int(id))).Inc()
		if err := fn(h, ctx, t, payload); err != nil {
			h.log.Warn().
				Err(err).
				Uint16("id", uint16(id)).
				Int32("user", t.UserID).
				Msg("packet handler failed")
		}
		if t.Kicked() {
			break
		}
	}

	out := t.FetchQueue()
	if t.Kicked() {
		h.DestroySession(ctx, t, true)
	}
	return out, true
}

// handleNoop accepts a packet without acting on it.
func (h *Hub) handleNoop(ctx context.Context, t *session.Token, payload []byte) error {
	return nil
}

// handleBeatmapInfoRequest handles a packet stock clients stopped
// sending years ago. Receiving one means a patched client slipped past
// the version gate, so the sender is restricted.
func (h *Hub) handleBeatmapInfoRequest(ctx context.Context, t *session.Token, payload []byte) error {
	h.restrictWithLog(ctx, t.UserID,
		"Outdated client bypassing the version gate",
		"The user sent a beatmap info request, which current clients no longer emit.")
	return nil
}

// handlePong is the idle keepalive.
func (h *Hub) handlePong(ctx context.Context, t *session.Token, payload []byte) error {
	return nil
}

// handleLogout destroys the session unless the login was moments ago;
// the client fires a spurious logout right after connecting.
func (h *Hub) handleLogout(ctx context.Context, t *session.Token, payload []byte) error {
	if time.Since(t.LoginTime()) < 5*time.Second {
		return nil
	}
	t.MarkKicked()
	return nil
}

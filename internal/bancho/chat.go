package bancho

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rosupd/bancho/internal/channel"
	"github.com/rosupd/bancho/internal/clientpackets"
	"github.com/rosupd/bancho/internal/constants"
	"github.com/rosupd/bancho/internal/serverpackets"
	"github.com/rosupd/bancho/internal/session"
)

func (h *Hub) handleChangeAction(ctx context.Context, t *session.Token, payload []byte) error {
	a, err := clientpackets.ParseChangeAction(payload)
	if err != nil {
		return err
	}
	oldMode := t.Action().GameMode
	t.SetAction(session.Action{
		ID:        a.ActionID,
		Text:      a.Text,
		MD5:       a.MD5,
		Mods:      a.Mods,
		GameMode:  a.GameMode,
		BeatmapID: a.BeatmapID,
	})
	if a.GameMode != oldMode {
		h.RefreshStats(ctx, t)
	}
	h.BroadcastPresence(t)
	return nil
}

func (h *Hub) handleRequestStatusUpdate(ctx context.Context, t *session.Token, payload []byte) error {
	h.RefreshStats(ctx, t)
	return nil
}

// resolveChannelAlias maps the client-facing #multiplayer and
// #spectator tabs onto the session's actual temporary channel.
func (h *Hub) resolveChannelAlias(t *session.Token, name string) string {
	switch name {
	case "#multiplayer":
		if id := t.MatchID(); id >= 0 {
			return fmt.Sprintf("#multi_%d", id)
		}
		return ""
	case "#spectator":
		_, hostUserID := t.Spectating()
		if hostUserID != 0 {
			return fmt.Sprintf("#spect_%d", hostUserID)
		}
		// The host chats in its own spectator channel.
		if h.Streams.Exists(fmt.Sprintf("chat/#spect_%d", t.UserID)) {
			return fmt.Sprintf("#spect_%d", t.UserID)
		}
		return ""
	default:
		return name
	}
}

// checkSpam bumps the sender's chat counter and silences on abuse.
// Returns true when the message must be dropped.
func (h *Hub) checkSpam(ctx context.Context, t *session.Token) bool {
	if t.Silenced() {
		left := int32(time.Until(t.SilenceEnd()) / time.Second)
		t.Enqueue(serverpackets.SilenceEnd(left))
		return true
	}
	if t.SpamInc() > h.cfg.SilenceThreshold {
		if err := h.SilenceUser(ctx, t.UserID, h.cfg.SilencePenalty, "spamming (auto silence)"); err != nil {
			h.log.Error().Err(err).Int32("user", t.UserID).Msg("auto silence failed")
		}
		return true
	}
	return false
}

func (h *Hub) handlePublicMessage(ctx context.Context, t *session.Token, payload []byte) error {
	msg, err := clientpackets.ParseMessage(payload)
	if err != nil {
		return err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}
	name := h.resolveChannelAlias(t, msg.To)
	if name == "" {
		return nil
	}
	ch := h.Channels.Get(name)
	if ch == nil || !t.InChannel(name) {
		return nil
	}
	isMod := t.Privileges()&(constants.AdminChatMod|constants.AdminManageUsers) != 0
	if (!ch.PublicWrite || ch.Moderated) && !isMod {
		return nil
	}
	if h.checkSpam(ctx, t) {
		return nil
	}

	h.metrics.ChatMessages.Inc()
	out := serverpackets.SendMessage(t.Username, msg.Content, ch.ClientName(), t.UserID)
	h.Streams.Broadcast(ch.StreamName(), out, t.ID())

	// Bot commands are public in public channels.
	if strings.HasPrefix(msg.Content, "!") {
		if reply, handled := h.Bot.Handle(t.UserID, t.Username, msg.Content); handled && reply != "" {
			botLine := serverpackets.SendMessage(h.cfg.BotUsername, reply, ch.ClientName(), h.cfg.BotUserID)
			h.Streams.Broadcast(ch.StreamName(), botLine)
		}
	}
	return nil
}

func (h *Hub) handlePrivateMessage(ctx context.Context, t *session.Token, payload []byte) error {
	msg, err := clientpackets.ParseMessage(payload)
	if err != nil {
		return err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}
	if h.checkSpam(ctx, t) {
		return nil
	}
	h.metrics.ChatMessages.Inc()

	if msg.To == h.cfg.BotUsername {
		reply, handled := h.Bot.Handle(t.UserID, t.Username, msg.Content)
		if !handled {
			reply = "I'm sorry, I don't understand. Type !help for a list of commands."
		}
		if reply != "" {
			t.Enqueue(serverpackets.SendMessage(h.cfg.BotUsername, reply, t.Username, h.cfg.BotUserID))
		}
		return nil
	}

	target := h.Sessions.GetByUsername(msg.To)
	if target == nil {
		return nil
	}
	if target.Silenced() {
		t.Enqueue(serverpackets.TargetIsSilenced(msg.To))
		return nil
	}
	if target.BlockNonFriendPM() && !h.isFriend(ctx, target.UserID, t.UserID) {
		t.Enqueue(serverpackets.UserPMBlocked(msg.To))
		return nil
	}
	target.Enqueue(serverpackets.SendMessage(t.Username, msg.Content, target.Username, t.UserID))
	if away := target.AwayMessage(); away != "" {
		t.Enqueue(serverpackets.SendMessage(target.Username,
			fmt.Sprintf("This user is away: %s", away), t.Username, target.UserID))
	}
	return nil
}

// isFriend reports whether ownerID has friendID on their friend list.
func (h *Hub) isFriend(ctx context.Context, ownerID, friendID int32) bool {
	friends, err := h.db.Users().Friends(ctx, ownerID)
	if err != nil {
		return false
	}
	for _, id := range friends {
		if id == friendID {
			return true
		}
	}
	return false
}

// joinChannel adds the session to a channel and confirms the tab.
func (h *Hub) joinChannel(t *session.Token, name string) bool {
	ch := h.Channels.Get(name)
	if ch == nil {
		return false
	}
	if !ch.PublicRead && t.Privileges()&(constants.AdminChatMod|constants.AdminManageUsers) == 0 {
		return false
	}
	h.Streams.Join(ch.StreamName(), t.ID())
	t.JoinChannel(name)
	t.Enqueue(serverpackets.ChannelJoinSuccess(ch.ClientName()))
	return true
}

// partChannel removes the session; kick controls whether the client's
// tab is closed too.
func (h *Hub) partChannel(t *session.Token, name string, kick bool) {
	h.Streams.Leave(channel.StreamName(name), t.ID())
	t.PartChannel(name)
	if kick {
		if ch := h.Channels.Get(name); ch != nil {
			t.Enqueue(serverpackets.ChannelKicked(ch.ClientName()))
		}
	}
}

func (h *Hub) handleChannelJoin(ctx context.Context, t *session.Token, payload []byte) error {
	name, err := clientpackets.ParseChannelName(payload)
	if err != nil {
		return err
	}
	resolved := h.resolveChannelAlias(t, name)
	if resolved == "" || !h.joinChannel(t, resolved) {
		// Close the half-open tab on the client.
		t.Enqueue(serverpackets.ChannelKicked(name))
	}
	return nil
}

func (h *Hub) handleChannelPart(ctx context.Context, t *session.Token, payload []byte) error {
	name, err := clientpackets.ParseChannelName(payload)
	if err != nil {
		return err
	}
	resolved := h.resolveChannelAlias(t, name)
	if resolved == "" {
		return nil
	}
	h.partChannel(t, resolved, false)
	return nil
}

func (h *Hub) handleFriendAdd(ctx context.Context, t *session.Token, payload []byte) error {
	id, err := clientpackets.ParseUserID(payload)
	if err != nil {
		return err
	}
	if id == t.UserID || id == h.cfg.BotUserID {
		return nil
	}
	return h.db.Users().AddFriend(ctx, t.UserID, id)
}

func (h *Hub) handleFriendRemove(ctx context.Context, t *session.Token, payload []byte) error {
	id, err := clientpackets.ParseUserID(payload)
	if err != nil {
		return err
	}
	return h.db.Users().RemoveFriend(ctx, t.UserID, id)
}

func (h *Hub) handleUserStatsRequest(ctx context.Context, t *session.Token, payload []byte) error {
	ids, err := clientpackets.ParseUserIDList(payload)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == h.cfg.BotUserID {
			t.Enqueue(serverpackets.BotStats(h.cfg.BotUserID, "always here for you"))
			continue
		}
		other := h.Sessions.GetByUserID(id)
		if other == nil || other.Restricted() {
			continue
		}
		t.Enqueue(serverpackets.UserStats(other))
	}
	return nil
}

func (h *Hub) handleUserPanelRequest(ctx context.Context, t *session.Token, payload []byte) error {
	ids, err := clientpackets.ParseUserIDList(payload)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == h.cfg.BotUserID {
			t.Enqueue(serverpackets.BotPresence(h.cfg.BotUserID, h.cfg.BotUsername))
			continue
		}
		other := h.Sessions.GetByUserID(id)
		if other == nil || other.Restricted() {
			continue
		}
		t.Enqueue(serverpackets.UserPresence(other, h.clientRank(other)))
	}
	return nil
}

func (h *Hub) handleSetAwayMessage(ctx context.Context, t *session.Token, payload []byte) error {
	msg, err := clientpackets.ParseAwayMessage(payload)
	if err != nil {
		return err
	}
	t.SetAwayMessage(msg)
	if msg == "" {
		t.Enqueue(serverpackets.Notification("You are no longer marked as away."))
	} else {
		t.Enqueue(serverpackets.Notification(fmt.Sprintf("You are now marked as away: %s", msg)))
	}
	return nil
}

package bancho

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rosupd/bancho/internal/constants"
	"github.com/rosupd/bancho/internal/serverpackets"
)

// Pub/sub channels the web frontend publishes on. The names are shared
// with the website and must not change.
const (
	chanDisconnect   = "peppy:disconnect"
	chanBan          = "peppy:ban"
	chanSilence      = "peppy:silence"
	chanNotification = "peppy:notification"
	chanUpdateStats  = "peppy:update_cached_stats"
	chanReload       = "peppy:reload_settings"
	chanRefreshPrivs = "peppy:refresh_privs"
	chanBotMessage   = "peppy:bot_msg"
	chanRestart      = "peppy:restart"

	// Published by us so the website applies a queued username change
	// once its owner is offline.
	chanChangeUsername = "peppy:change_username"
)

// RunPubSub consumes the frontend bridge until ctx is cancelled.
// go-redis reconnects the subscription on transport errors.
func (h *Hub) RunPubSub(ctx context.Context) error {
	sub := h.cache.Subscribe(ctx,
		chanDisconnect, chanBan, chanSilence, chanNotification,
		chanUpdateStats, chanReload, chanRefreshPrivs, chanBotMessage,
		chanRestart)
	defer sub.Close()

	h.log.Info().Msg("pubsub bridge running")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.dispatchPubSub(ctx, msg)
		}
	}
}

func (h *Hub) dispatchPubSub(ctx context.Context, msg *redis.Message) {
	log := h.log.With().Str("channel", msg.Channel).Logger()
	switch msg.Channel {
	case chanDisconnect:
		var body struct {
			UserID int32  `json:"userID"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &body); err != nil {
			log.Warn().Err(err).Msg("bad payload")
			return
		}
		if t := h.Sessions.GetByUserID(body.UserID); t != nil {
			h.Kick(t, body.Reason)
			h.DestroySession(ctx, t, true)
		}

	case chanBan:
		userID, err := strconv.Atoi(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("bad payload")
			return
		}
		t := h.Sessions.GetByUserID(int32(userID))
		if t == nil {
			return
		}
		u, err := h.db.Users().ByID(ctx, int32(userID))
		if err != nil {
			log.Error().Err(err).Msg("reloading banned user")
			return
		}
		// A full ban disconnects; a restriction keeps the session
		// online in restricted mode.
		if u.Privileges&(constants.UserPublic|constants.UserNormal) == 0 {
			t.Enqueue(serverpackets.UserID(constants.LoginBanned))
			h.Kick(t, "You have been banned.")
			h.DestroySession(ctx, t, true)
			return
		}
		t.SetPrivileges(u.Privileges)
		if u.Privileges&constants.UserPublic == 0 && !t.Restricted() {
			t.SetRestricted(true)
			t.Enqueue(serverpackets.AccountRestricted())
		}

	case chanSilence:
		userID, err := strconv.Atoi(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("bad payload")
			return
		}
		t := h.Sessions.GetByUserID(int32(userID))
		if t == nil {
			return
		}
		u, err := h.db.Users().ByID(ctx, int32(userID))
		if err != nil {
			log.Error().Err(err).Msg("reloading silence")
			return
		}
		left := time.Until(time.Unix(u.SilenceEnd, 0))
		if left < 0 {
			left = 0
		}
		t.Silence(left)
		t.Enqueue(serverpackets.SilenceEnd(int32(left / time.Second)))
		h.Streams.Broadcast(StreamMain, serverpackets.UserSilenced(t.UserID))

	case chanNotification:
		var body struct {
			UserID  int32  `json:"userID"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &body); err != nil {
			log.Warn().Err(err).Msg("bad payload")
			return
		}
		if t := h.Sessions.GetByUserID(body.UserID); t != nil {
			t.Enqueue(serverpackets.Notification(body.Message))
		}

	case chanUpdateStats:
		userID, err := strconv.Atoi(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("bad payload")
			return
		}
		if t := h.Sessions.GetByUserID(int32(userID)); t != nil {
			h.RefreshStats(ctx, t)
			h.BroadcastPresence(t)
		}

	case chanReload:
		if err := h.reloadChannels(ctx); err != nil {
			log.Error().Err(err).Msg("reloading channels")
		}

	case chanRefreshPrivs:
		userID, err := strconv.Atoi(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("bad payload")
			return
		}
		t := h.Sessions.GetByUserID(int32(userID))
		if t == nil {
			return
		}
		u, err := h.db.Users().ByID(ctx, int32(userID))
		if err != nil {
			log.Error().Err(err).Msg("reloading privileges")
			return
		}
		t.SetPrivileges(u.Privileges)
		t.SetRestricted(u.Privileges&constants.UserNormal != 0 &&
			u.Privileges&constants.UserPublic == 0)
		t.Enqueue(serverpackets.BanchoPrivileges(int32(h.clientRank(t))))

	case chanBotMessage:
		var body struct {
			To      string `json:"to"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &body); err != nil {
			log.Warn().Err(err).Msg("bad payload")
			return
		}
		h.botMessage(body.To, body.Message)

	case chanRestart:
		seconds, err := strconv.Atoi(msg.Payload)
		if err != nil || seconds < 0 {
			seconds = 5
		}
		// Clients get twice the announced delay so they reconnect after
		// the new process is accepting connections.
		h.ScheduleRestart(time.Duration(seconds) * 2 * time.Second)
	}
}

// botMessage delivers a bot line to a channel or a single user.
func (h *Hub) botMessage(to, message string) {
	if len(to) > 0 && to[0] == '#' {
		if ch := h.Channels.Get(to); ch != nil {
			h.Streams.Broadcast(ch.StreamName(),
				serverpackets.SendMessage(h.cfg.BotUsername, message, ch.ClientName(), h.cfg.BotUserID))
		}
		return
	}
	if t := h.Sessions.GetByUsername(to); t != nil {
		t.Enqueue(serverpackets.SendMessage(h.cfg.BotUsername, message, t.Username, h.cfg.BotUserID))
	}
}

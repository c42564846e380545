// Package bancho ties the server together: the login pipeline, the
// packet router, chat, spectating, multiplayer and the redis bridge
// all live here, on top of the session registry and stream manager.
package bancho

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rosupd/bancho/internal/bot"
	"github.com/rosupd/bancho/internal/cache"
	"github.com/rosupd/bancho/internal/channel"
	"github.com/rosupd/bancho/internal/config"
	"github.com/rosupd/bancho/internal/constants"
	"github.com/rosupd/bancho/internal/db"
	"github.com/rosupd/bancho/internal/geo"
	"github.com/rosupd/bancho/internal/match"
	"github.com/rosupd/bancho/internal/metrics"
	"github.com/rosupd/bancho/internal/pp"
	"github.com/rosupd/bancho/internal/serverpackets"
	"github.com/rosupd/bancho/internal/session"
	"github.com/rosupd/bancho/internal/stream"
)

// Well-known stream names.
const (
	StreamMain  = "main"  // every online session
	StreamLobby = "lobby" // sessions browsing the multiplayer lobby
)

// Hub is the live server state and its collaborators.
type Hub struct {
	cfg     config.Config
	log     zerolog.Logger
	db      *db.DB
	cache   *cache.Cache
	geo     *geo.Resolver
	pp      *pp.Client
	metrics *metrics.Metrics

	Sessions *session.Registry
	Streams  *stream.Manager
	Channels *channel.List
	Matches  *match.List
	Bot      *bot.Bot

	restartPending atomic.Bool
	startedAt      time.Time
}

// New wires a Hub. Channels are loaded from the database; the bot is
// registered with its moderation hooks.
func New(cfg config.Config, log zerolog.Logger, database *db.DB, redis *cache.Cache, resolver *geo.Resolver, ppClient *pp.Client, m *metrics.Metrics) (*Hub, error) {
	sessions := session.NewRegistry()
	h := &Hub{
		cfg:       cfg,
		log:       log.With().Str("component", "bancho").Logger(),
		db:        database,
		cache:     redis,
		geo:       resolver,
		pp:        ppClient,
		metrics:   m,
		Sessions:  sessions,
		Streams:   stream.NewManager(sessions),
		Channels:  channel.NewList(),
		Matches:   match.NewList(),
		startedAt: time.Now(),
	}
	h.Streams.Add(StreamMain)
	h.Streams.Add(StreamLobby)

	if err := h.reloadChannels(context.Background()); err != nil {
		return nil, err
	}

	h.Bot = bot.New(cfg.BotUserID, cfg.BotUsername, bot.Hooks{
		Alert:       h.Announce,
		Silence:     h.silenceByUsername,
		Unsilence:   h.unsilenceByUsername,
		Kick:        h.kickByUsername,
		OnlineCount: sessions.Count,
		IsAdmin:     h.userIsAdmin,
		IsMod:       h.userIsMod,
	}, cfg.EnablePyCommand, cfg.PyCommandWhitelist)
	return h, nil
}

// reloadChannels replaces the channel registry contents from the
// database, keeping temporary channels intact.
func (h *Hub) reloadChannels(ctx context.Context) error {
	rows, err := h.db.Channels().All(ctx)
	if err != nil {
		return fmt.Errorf("loading channels: %w", err)
	}
	for _, row := range rows {
		h.Channels.Add(&channel.Channel{
			Name:        row.Name,
			Description: row.Description,
			PublicRead:  row.PublicRead,
			PublicWrite: row.PublicWrite,
			Moderated:   row.Moderated,
		})
		h.Streams.Add(channel.StreamName(row.Name))
	}
	h.log.Info().Int("count", len(rows)).Msg("channels loaded")
	return nil
}

// Announce pops a notification on every connected client.
func (h *Hub) Announce(message string) {
	h.Streams.Broadcast(StreamMain, serverpackets.Notification(message))
}

// BroadcastPresence pushes a user's panel and stats to everyone.
// Restricted sessions stay invisible.
func (h *Hub) BroadcastPresence(t *session.Token) {
	if t.Restricted() {
		return
	}
	rank := h.clientRank(t)
	h.Streams.Broadcast(StreamMain, serverpackets.UserPresence(t, rank))
	h.Streams.Broadcast(StreamMain, serverpackets.UserStats(t))
}

// clientRank derives the client-side badge byte from privileges.
func (h *Hub) clientRank(t *session.Token) uint8 {
	priv := t.Privileges()
	rank := uint8(constants.RankPlayer)
	if priv&constants.UserDonor != 0 {
		rank |= constants.RankSupporter
	}
	if priv&constants.AdminChatMod != 0 {
		rank |= constants.RankMod
	}
	if priv&constants.AdminManageUsers != 0 {
		rank |= constants.RankAdmin
	}
	if priv&constants.UserTournamentStaff != 0 {
		rank |= constants.RankTournamentStaff
	}
	return rank
}

// userIsAdmin checks a live session's privileges for admin commands.
func (h *Hub) userIsAdmin(userID int32) bool {
	t := h.Sessions.GetByUserID(userID)
	return t != nil && t.Privileges()&constants.AdminManageUsers != 0
}

// userIsMod checks a live session's privileges for moderation commands.
func (h *Hub) userIsMod(userID int32) bool {
	t := h.Sessions.GetByUserID(userID)
	return t != nil && t.Privileges()&(constants.AdminChatMod|constants.AdminManageUsers) != 0
}

// RefreshStats reloads a session's stats row and leaderboard rank,
// then pushes the fresh numbers to the owner.
func (h *Hub) RefreshStats(ctx context.Context, t *session.Token) {
	mode := t.Action().GameMode
	stats, err := h.db.Users().Stats(ctx, t.UserID, mode)
	if err != nil {
		h.log.Error().Err(err).Int32("user", t.UserID).Msg("loading stats")
		return
	}
	rank, err := h.cache.GameRank(ctx, t.UserID, mode)
	if err != nil {
		h.log.Warn().Err(err).Int32("user", t.UserID).Msg("loading rank")
	}
	t.SetStats(session.Stats{
		RankedScore: stats.RankedScore,
		Accuracy:    float32(stats.Accuracy),
		Playcount:   stats.Playcount,
		TotalScore:  stats.TotalScore,
		PP:          stats.PP,
		GameRank:    rank,
	})
	t.Enqueue(serverpackets.UserStats(t))
}

// DestroySession tears a session down: leaves match, stops spectating,
// parts channels, removes it from every stream, and tells everyone.
func (h *Hub) DestroySession(ctx context.Context, t *session.Token, announce bool) {
	if matchID := t.MatchID(); matchID >= 0 {
		h.leaveMatch(t)
	}
	if hostToken, _ := t.Spectating(); hostToken != "" {
		h.stopSpectating(t)
	}
	// A spectated host takes their followers down with them.
	if h.Streams.Exists(spectStream(t.UserID)) {
		for _, followerID := range h.Streams.Members(spectStream(t.UserID)) {
			if follower := h.Sessions.Get(followerID); follower != nil {
				h.stopSpectating(follower)
			}
		}
	}
	for _, name := range t.JoinedChannels() {
		h.partChannel(t, name, false)
	}
	h.Streams.LeaveAll(t.ID())
	h.Sessions.Remove(t.ID())

	if announce && !t.Restricted() {
		h.Streams.Broadcast(StreamMain, serverpackets.Logout(t.UserID))
	}

	if err := h.db.Users().TouchActivity(ctx, t.UserID); err != nil {
		h.log.Warn().Err(err).Int32("user", t.UserID).Msg("touching last activity")
	}

	// A queued rename can only be applied while its owner is offline.
	if pending, err := h.cache.PendingUsernameChange(ctx, t.UserID); err != nil {
		h.log.Warn().Err(err).Int32("user", t.UserID).Msg("checking pending username change")
	} else if pending != "" {
		if err := h.cache.Publish(ctx, chanChangeUsername, fmt.Sprintf(`{"userID":%d}`, t.UserID)); err != nil {
			h.log.Warn().Err(err).Int32("user", t.UserID).Msg("publishing username change")
		}
	}

	if err := h.cache.SetOnlineCount(ctx, h.Sessions.Count()); err != nil {
		h.log.Warn().Err(err).Msg("updating online count")
	}
	h.metrics.OnlineSessions.Set(float64(h.Sessions.Count()))
	h.log.Info().Str("token", t.ID()).Int32("user", t.UserID).Str("username", t.Username).Msg("session destroyed")
}

// restrictWithLog restricts a user and records why: the public bit is
// stripped, the reason lands in ban_logs, the website hears about it on
// the bus, and a live session drops into restricted mode immediately.
func (h *Hub) restrictWithLog(ctx context.Context, userID int32, summary, detail string) {
	if t := h.Sessions.GetByUserID(userID); t != nil {
		t.SetRestricted(true)
		t.Enqueue(serverpackets.AccountRestricted())
	}
	if err := h.db.Users().Restrict(ctx, userID); err != nil {
		h.log.Error().Err(err).Int32("user", userID).Msg("restricting user")
	}
	if err := h.db.Users().InsertBanLog(ctx, h.cfg.BotUserID, userID, summary, detail); err != nil {
		h.log.Warn().Err(err).Int32("user", userID).Msg("recording ban log")
	}
	if err := h.cache.Publish(ctx, chanBan, strconv.Itoa(int(userID))); err != nil {
		h.log.Warn().Err(err).Int32("user", userID).Msg("publishing restriction")
	}
	h.log.Warn().Int32("user", userID).Str("summary", summary).Msg("user restricted")
}

// Kick schedules a session for destruction and tells the client.
func (h *Hub) Kick(t *session.Token, reason string) {
	if reason != "" {
		t.Enqueue(serverpackets.Notification(reason))
	}
	t.Enqueue(serverpackets.UserID(constants.LoginFailed))
	t.MarkKicked()
}

// kickByUsername backs the bot's !kick command.
func (h *Hub) kickByUsername(username string) error {
	t := h.Sessions.GetByUsername(username)
	if t == nil {
		return fmt.Errorf("user %s is not online", username)
	}
	h.Kick(t, "You have been kicked from the server.")
	return nil
}

// SilenceUser applies a silence to a user: database, live session and
// the public silence announcement.
func (h *Hub) SilenceUser(ctx context.Context, userID int32, d time.Duration, reason string) error {
	end := time.Now().Add(d)
	if err := h.db.Users().Silence(ctx, userID, end.Unix(), reason); err != nil {
		return err
	}
	if t := h.Sessions.GetByUserID(userID); t != nil {
		t.Silence(d)
		t.Enqueue(serverpackets.SilenceEnd(int32(d / time.Second)))
	}
	h.Streams.Broadcast(StreamMain, serverpackets.UserSilenced(userID))
	return nil
}

func (h *Hub) silenceByUsername(username string, d time.Duration, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t := h.Sessions.GetByUsername(username)
	if t == nil {
		u, err := h.db.Users().ByUsernameSafe(ctx, session.SafeUsername(username))
		if err != nil {
			return fmt.Errorf("user %s not found", username)
		}
		return h.SilenceUser(ctx, u.ID, d, reason)
	}
	return h.SilenceUser(ctx, t.UserID, d, reason)
}

func (h *Hub) unsilenceByUsername(username string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	u, err := h.db.Users().ByUsernameSafe(ctx, session.SafeUsername(username))
	if err != nil {
		return fmt.Errorf("user %s not found", username)
	}
	if err := h.db.Users().Silence(ctx, u.ID, 0, ""); err != nil {
		return err
	}
	if t := h.Sessions.GetByUserID(u.ID); t != nil {
		t.Silence(0)
		t.Enqueue(serverpackets.SilenceEnd(0))
	}
	return nil
}

// ScheduleRestart announces a restart and asks every client to
// reconnect after the delay.
func (h *Hub) ScheduleRestart(delay time.Duration) {
	h.restartPending.Store(true)
	h.Announce(fmt.Sprintf("%s is restarting, you will be reconnected automatically.", h.cfg.ServerName))
	h.Streams.Broadcast(StreamMain, serverpackets.Restart(int32(delay/time.Millisecond)))
}

// RestartPending reports whether a restart broadcast has gone out.
func (h *Hub) RestartPending() bool {
	return h.restartPending.Load()
}

// Uptime returns time since the hub was built.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.startedAt)
}

package bancho

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/rosupd/bancho/internal/clientpackets"
	"github.com/rosupd/bancho/internal/match"
	"github.com/rosupd/bancho/internal/pp"
	"github.com/rosupd/bancho/internal/serverpackets"
	"github.com/rosupd/bancho/internal/session"
)

// broadcastMatchUpdate pushes new match state to members (with the
// password) and to the lobby (censored).
func (h *Hub) broadcastMatchUpdate(m *match.Match) {
	d := m.Data()
	h.Streams.Broadcast(m.StreamName(), serverpackets.UpdateMatch(d, false))
	h.Streams.Broadcast(StreamLobby, serverpackets.UpdateMatch(d, true))
}

// currentMatch returns the session's match, nil when not in one.
func (h *Hub) currentMatch(t *session.Token) *match.Match {
	id := t.MatchID()
	if id < 0 {
		return nil
	}
	return h.Matches.Get(uint16(id))
}

// seatInMatch wires a session into a match it has just joined.
func (h *Hub) seatInMatch(t *session.Token, m *match.Match) {
	t.SetMatchID(int32(m.ID()))
	h.Streams.Join(m.StreamName(), t.ID())
	h.joinChannel(t, m.ChatChannel())
	t.Enqueue(serverpackets.MatchJoinSuccess(m.Data()))
}

// leaveMatch removes the session from its match, transferring host or
// disposing the room as needed.
func (h *Hub) leaveMatch(t *session.Token) {
	m := h.currentMatch(t)
	if m == nil {
		t.SetMatchID(-1)
		return
	}
	res := m.Leave(t.ID())
	h.Streams.Leave(m.StreamName(), t.ID())
	h.Streams.Leave(m.PlayingStreamName(), t.ID())
	h.partChannel(t, m.ChatChannel(), true)
	t.SetMatchID(-1)

	if !res.Left {
		return
	}
	if res.Empty {
		h.disposeMatch(m)
		return
	}
	if res.HostChanged {
		if newHost := h.Sessions.GetByUserID(res.NewHostID); newHost != nil {
			newHost.Enqueue(serverpackets.MatchTransferHost())
		}
	}
	h.broadcastMatchUpdate(m)
}

// disposeMatch tears down an empty match.
func (h *Hub) disposeMatch(m *match.Match) {
	h.Matches.Remove(m.ID())
	h.Streams.Remove(m.StreamName())
	h.Streams.Remove(m.PlayingStreamName())
	h.Channels.Remove(m.ChatChannel())
	h.Streams.Remove("chat/" + m.ChatChannel())
	h.Streams.Broadcast(StreamLobby, serverpackets.DisposeMatch(int32(m.ID())))
	h.metrics.LiveMatches.Set(float64(h.Matches.Count()))
	h.log.Info().Uint16("match", m.ID()).Msg("match disposed")
}

func (h *Hub) handleJoinLobby(ctx context.Context, t *session.Token, payload []byte) error {
	h.Streams.Join(StreamLobby, t.ID())
	for _, m := range h.Matches.Snapshot() {
		t.Enqueue(serverpackets.NewMatch(m.Data()))
	}
	return nil
}

func (h *Hub) handlePartLobby(ctx context.Context, t *session.Token, payload []byte) error {
	h.Streams.Leave(StreamLobby, t.ID())
	return nil
}

func (h *Hub) handleCreateMatch(ctx context.Context, t *session.Token, payload []byte) error {
	settings, err := clientpackets.ParseMatchSettings(payload)
	if err != nil {
		return err
	}
	settings.HostUserID = t.UserID
	m := h.Matches.Create(settings)
	if m == nil {
		t.Enqueue(serverpackets.MatchJoinFail())
		return fmt.Errorf("no free match ids")
	}
	h.Streams.Add(m.StreamName())
	h.Streams.Add(m.PlayingStreamName())
	h.Channels.AddTemporary(m.ChatChannel())
	h.Streams.Add("chat/" + m.ChatChannel())

	if err := m.Join(t.UserID, t.ID(), settings.Password); err != nil {
		h.disposeMatch(m)
		t.Enqueue(serverpackets.MatchJoinFail())
		return err
	}
	h.seatInMatch(t, m)
	h.Streams.Broadcast(StreamLobby, serverpackets.NewMatch(m.Data()))
	h.metrics.LiveMatches.Set(float64(h.Matches.Count()))
	h.log.Info().Uint16("match", m.ID()).Int32("host", t.UserID).Str("name", m.Name()).Msg("match created")
	return nil
}

func (h *Hub) handleJoinMatch(ctx context.Context, t *session.Token, payload []byte) error {
	req, err := clientpackets.ParseJoinMatch(payload)
	if err != nil {
		return err
	}
	m := h.Matches.Get(uint16(req.MatchID))
	if m == nil {
		t.Enqueue(serverpackets.MatchJoinFail())
		return nil
	}
	if err := m.Join(t.UserID, t.ID(), req.Password); err != nil {
		t.Enqueue(serverpackets.MatchJoinFail())
		return nil
	}
	h.seatInMatch(t, m)
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handlePartMatch(ctx context.Context, t *session.Token, payload []byte) error {
	h.leaveMatch(t)
	return nil
}

func (h *Hub) handleMatchChangeSlot(ctx context.Context, t *session.Token, payload []byte) error {
	slotID, err := clientpackets.ParseSlotID(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	if err := m.ChangeSlot(t.ID(), int(slotID)); err != nil {
		return nil
	}
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) setSlotStatus(t *session.Token, status uint8) {
	m := h.currentMatch(t)
	if m == nil {
		return
	}
	if err := m.SetStatus(t.ID(), status); err == nil {
		h.broadcastMatchUpdate(m)
	}
}

func (h *Hub) handleMatchReady(ctx context.Context, t *session.Token, payload []byte) error {
	h.setSlotStatus(t, match.StatusReady)
	return nil
}

func (h *Hub) handleMatchNotReady(ctx context.Context, t *session.Token, payload []byte) error {
	h.setSlotStatus(t, match.StatusNotReady)
	return nil
}

func (h *Hub) handleMatchNoBeatmap(ctx context.Context, t *session.Token, payload []byte) error {
	h.setSlotStatus(t, match.StatusNoMap)
	return nil
}

func (h *Hub) handleMatchHasBeatmap(ctx context.Context, t *session.Token, payload []byte) error {
	h.setSlotStatus(t, match.StatusNotReady)
	return nil
}

func (h *Hub) handleMatchLock(ctx context.Context, t *session.Token, payload []byte) error {
	slotID, err := clientpackets.ParseSlotID(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil || m.HostUserID() != t.UserID {
		return nil
	}
	kicked, err := m.Lock(int(slotID))
	if err != nil {
		return nil
	}
	if kicked != "" {
		if victim := h.Sessions.Get(kicked); victim != nil {
			h.leaveMatch(victim)
		}
	}
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handleMatchChangeSettings(ctx context.Context, t *session.Token, payload []byte) error {
	settings, err := clientpackets.ParseMatchSettings(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil || m.HostUserID() != t.UserID {
		return nil
	}
	m.ChangeSettings(settings)
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handleMatchStart(ctx context.Context, t *session.Token, payload []byte) error {
	m := h.currentMatch(t)
	if m == nil || m.HostUserID() != t.UserID {
		return nil
	}
	playing := m.Start()
	d := m.Data()
	start := serverpackets.MatchStart(d)
	for _, tokenID := range playing {
		h.Streams.Join(m.PlayingStreamName(), tokenID)
		if member := h.Sessions.Get(tokenID); member != nil {
			member.Enqueue(start)
		}
	}
	h.broadcastMatchUpdate(m)
	h.log.Info().Uint16("match", m.ID()).Int("players", len(playing)).Msg("match started")
	return nil
}

// scoreFrameTotalOffset is the byte position of the total score field
// inside a score frame, used by the PP-competition rewrite.
const scoreFrameTotalOffset = 17

func (h *Hub) handleMatchScoreUpdate(ctx context.Context, t *session.Token, payload []byte) error {
	frame, err := clientpackets.ParseScoreFrame(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	slotID, err := m.RecordScore(t.ID(), frame.TotalScore, frame.CurrentHP)
	if err != nil {
		return nil
	}
	out := frame.RewriteSlot(uint8(slotID))

	if m.PPCompetition() {
		d := m.Data()
		acc := pp.Accuracy(d.GameMode,
			int32(frame.Count300), int32(frame.Count100), int32(frame.Count50),
			int32(frame.CountGeki), int32(frame.CountKatu), int32(frame.CountMiss))
		passed := int32(frame.Count300) + int32(frame.Count100) +
			int32(frame.Count50) + int32(frame.CountMiss)
		ppVal := h.pp.Calculate(ctx, pp.Request{
			BeatmapID:     d.BeatmapID,
			Mode:          d.GameMode,
			Mods:          d.Mods | d.SlotMods[slotID],
			MaxCombo:      int32(frame.MaxCombo),
			Accuracy:      acc,
			MissCount:     int32(frame.CountMiss),
			PassedObjects: passed,
		})
		if len(out) >= scoreFrameTotalOffset+4 {
			binary.LittleEndian.PutUint32(out[scoreFrameTotalOffset:], uint32(ppVal))
		}
	}

	h.Streams.Broadcast(m.PlayingStreamName(), serverpackets.MatchScoreUpdate(out), t.ID())
	return nil
}

func (h *Hub) handleMatchComplete(ctx context.Context, t *session.Token, payload []byte) error {
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	all, err := m.PlayerCompleted(t.ID())
	if err != nil || !all {
		return nil
	}
	m.FinishGame()
	h.Streams.Broadcast(m.PlayingStreamName(), serverpackets.MatchComplete())
	for _, tokenID := range m.MemberTokens() {
		h.Streams.Leave(m.PlayingStreamName(), tokenID)
	}
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handleMatchChangeMods(ctx context.Context, t *session.Token, payload []byte) error {
	mods, err := clientpackets.ParseMods(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	if err := m.ChangeMods(t.ID(), t.UserID, mods); err != nil {
		return nil
	}
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handleMatchLoadComplete(ctx context.Context, t *session.Token, payload []byte) error {
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	all, err := m.PlayerLoaded(t.ID())
	if err != nil || !all {
		return nil
	}
	h.Streams.Broadcast(m.PlayingStreamName(), serverpackets.MatchAllPlayersLoaded())
	return nil
}

func (h *Hub) handleMatchFailed(ctx context.Context, t *session.Token, payload []byte) error {
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	slotID, err := m.PlayerFailed(t.ID())
	if err != nil {
		return nil
	}
	h.Streams.Broadcast(m.PlayingStreamName(), serverpackets.MatchPlayerFailed(int32(slotID)), t.ID())
	return nil
}

func (h *Hub) handleMatchSkipRequest(ctx context.Context, t *session.Token, payload []byte) error {
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	slotID, all, err := m.SkipRequest(t.ID())
	if err != nil {
		return nil
	}
	h.Streams.Broadcast(m.PlayingStreamName(), serverpackets.MatchPlayerSkipped(int32(slotID)))
	if all {
		h.Streams.Broadcast(m.PlayingStreamName(), serverpackets.MatchSkip())
	}
	return nil
}

func (h *Hub) handleMatchChangeTeam(ctx context.Context, t *session.Token, payload []byte) error {
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	if err := m.ChangeTeam(t.ID()); err != nil {
		return nil
	}
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handleMatchChangePassword(ctx context.Context, t *session.Token, payload []byte) error {
	password, err := clientpackets.ParseMatchPassword(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil || m.HostUserID() != t.UserID {
		return nil
	}
	m.ChangePassword(password)
	h.Streams.Broadcast(m.StreamName(), serverpackets.MatchChangePassword(password))
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handleMatchTransferHost(ctx context.Context, t *session.Token, payload []byte) error {
	slotID, err := clientpackets.ParseSlotID(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil || m.HostUserID() != t.UserID {
		return nil
	}
	newHostID, err := m.TransferHost(int(slotID))
	if err != nil {
		return nil
	}
	if newHost := h.Sessions.GetByUserID(newHostID); newHost != nil {
		newHost.Enqueue(serverpackets.MatchTransferHost())
	}
	h.broadcastMatchUpdate(m)
	return nil
}

func (h *Hub) handleMatchInvite(ctx context.Context, t *session.Token, payload []byte) error {
	targetID, err := clientpackets.ParseUserID(payload)
	if err != nil {
		return err
	}
	m := h.currentMatch(t)
	if m == nil {
		return nil
	}
	target := h.Sessions.GetByUserID(targetID)
	if target == nil || targetID == h.cfg.BotUserID {
		return nil
	}
	d := m.Data()
	link := fmt.Sprintf("Come join my multiplayer match: [osump://%d/%s %s]",
		d.ID, d.Password, d.Name)
	target.Enqueue(serverpackets.MatchInvite(t.Username, t.UserID, target.Username, link))
	return nil
}

// handleMatchAbort ends an in-progress game early. Clients drop back
// to the room when the update shows the game is no longer running.
func (h *Hub) handleMatchAbort(ctx context.Context, t *session.Token, payload []byte) error {
	m := h.currentMatch(t)
	if m == nil || m.HostUserID() != t.UserID || !m.InProgress() {
		return nil
	}
	m.FinishGame()
	h.Streams.Broadcast(m.PlayingStreamName(), serverpackets.MatchComplete())
	for _, tokenID := range m.MemberTokens() {
		h.Streams.Leave(m.PlayingStreamName(), tokenID)
	}
	h.broadcastMatchUpdate(m)
	h.log.Info().Uint16("match", m.ID()).Msg("match aborted")
	return nil
}

// handleTournamentMatchInfo serves the tournament client's match
// status poll. Passwords are censored; spectating tourney clients are
// not members.
func (h *Hub) handleTournamentMatchInfo(ctx context.Context, t *session.Token, payload []byte) error {
	matchID, err := clientpackets.ParseUserID(payload)
	if err != nil {
		return err
	}
	m := h.Matches.Get(uint16(matchID))
	if m == nil {
		return nil
	}
	t.Enqueue(serverpackets.UpdateMatch(m.Data(), true))
	return nil
}

func (h *Hub) handleSpecialJoinMatchChannel(ctx context.Context, t *session.Token, payload []byte) error {
	matchID, err := clientpackets.ParseUserID(payload)
	if err != nil {
		return err
	}
	if m := h.Matches.Get(uint16(matchID)); m != nil {
		h.joinChannel(t, m.ChatChannel())
	}
	return nil
}

func (h *Hub) handleSpecialLeaveMatchChannel(ctx context.Context, t *session.Token, payload []byte) error {
	matchID, err := clientpackets.ParseUserID(payload)
	if err != nil {
		return err
	}
	if m := h.Matches.Get(uint16(matchID)); m != nil {
		h.partChannel(t, m.ChatChannel(), true)
	}
	return nil
}

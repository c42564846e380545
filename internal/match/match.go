// Package match implements the multiplayer match engine: sixteen-slot
// rooms with a host, per-slot state, and the in-game lifecycle from
// start to completion. All mutation happens under the per-match lock;
// methods return snapshots and decision values, never live state, so
// the caller can broadcast without holding the lock.
package match

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rosupd/bancho/internal/clientpackets"
	"github.com/rosupd/bancho/internal/constants"
	"github.com/rosupd/bancho/internal/serverpackets"
)

var (
	ErrFull          = errors.New("match is full")
	ErrWrongPassword = errors.New("wrong password")
	ErrNotInMatch    = errors.New("player not in this match")
	ErrBadSlot       = errors.New("invalid slot")
)

// timeMods are the speed-altering mods that stay global under free mod.
const timeMods = constants.ModDoubleTime | constants.ModNightcore | constants.ModHalfTime

// Match is one multiplayer room.
type Match struct {
	mu sync.Mutex

	id          uint16
	name        string
	password    string
	beatmapName string
	beatmapID   int32
	beatmapMD5  string

	inProgress  bool
	mods        int32
	hostUserID  int32
	gameMode    uint8
	scoringType uint8
	teamType    uint8
	freeMod     bool
	seed        int32

	slots [16]Slot
}

func newMatch(id uint16, s clientpackets.MatchSettings) *Match {
	m := &Match{
		id:          id,
		name:        s.Name,
		password:    s.Password,
		beatmapName: s.BeatmapName,
		beatmapID:   s.BeatmapID,
		beatmapMD5:  s.BeatmapMD5,
		mods:        s.Mods,
		hostUserID:  s.HostUserID,
		gameMode:    s.GameMode,
		scoringType: s.ScoringType,
		teamType:    s.TeamType,
		freeMod:     s.FreeMod,
		seed:        s.Seed,
	}
	for i := range m.slots {
		m.slots[i].reset()
	}
	return m
}

// ID returns the match id.
func (m *Match) ID() uint16 { return m.id }

// ChatChannel returns the backing temporary channel name.
func (m *Match) ChatChannel() string {
	return fmt.Sprintf("#multi_%d", m.id)
}

// StreamName returns the fanout stream carrying member updates.
func (m *Match) StreamName() string {
	return fmt.Sprintf("multi/%d", m.id)
}

// PlayingStreamName returns the fanout stream carrying in-game traffic.
func (m *Match) PlayingStreamName() string {
	return fmt.Sprintf("multi/%d/playing", m.id)
}

// HostUserID returns the current host.
func (m *Match) HostUserID() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostUserID
}

// InProgress reports whether a game is running.
func (m *Match) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress
}

// PPCompetition reports whether live scores are ranked by performance
// points instead of raw score. Hosts opt in by prefixing the room name
// with "PP:".
func (m *Match) PPCompetition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.HasPrefix(m.name, "PP:")
}

// Name returns the room name.
func (m *Match) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Data exports a wire snapshot for serialization.
func (m *Match) Data() serverpackets.MatchData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dataLocked()
}

func (m *Match) dataLocked() serverpackets.MatchData {
	d := serverpackets.MatchData{
		ID:          m.id,
		InProgress:  m.inProgress,
		Mods:        m.mods,
		Name:        m.name,
		Password:    m.password,
		BeatmapName: m.beatmapName,
		BeatmapID:   m.beatmapID,
		BeatmapMD5:  m.beatmapMD5,
		HostUserID:  m.hostUserID,
		GameMode:    m.gameMode,
		ScoringType: m.scoringType,
		TeamType:    m.teamType,
		FreeMod:     m.freeMod,
		Seed:        m.seed,
	}
	for i, s := range m.slots {
		d.SlotStatuses[i] = s.Status
		d.SlotTeams[i] = s.Team
		d.SlotMods[i] = s.Mods
		if s.Occupied() {
			d.SlotOccupied[i] = true
			d.SlotUserIDs[i] = s.UserID
		}
	}
	return d
}

func (m *Match) slotByToken(tokenID string) int {
	for i := range m.slots {
		if m.slots[i].Occupied() && m.slots[i].TokenID == tokenID {
			return i
		}
	}
	return -1
}

// SlotByToken returns the slot index of a member, -1 when absent.
func (m *Match) SlotByToken(tokenID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotByToken(tokenID)
}

// MemberTokens returns the session ids of all members.
func (m *Match) MemberTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for i := range m.slots {
		if m.slots[i].Occupied() {
			out = append(out, m.slots[i].TokenID)
		}
	}
	return out
}

// MemberCount returns the number of players in the room.
func (m *Match) MemberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.slots {
		if m.slots[i].Occupied() {
			n++
		}
	}
	return n
}

// Join seats a player in the first free slot. Password is checked
// verbatim; team modes balance the new player onto a team by parity.
func (m *Match) Join(userID int32, tokenID, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.password != "" && password != m.password {
		return ErrWrongPassword
	}
	for i := range m.slots {
		if m.slots[i].Status != StatusFree {
			continue
		}
		m.slots[i] = Slot{
			Status:  StatusNotReady,
			UserID:  userID,
			TokenID: tokenID,
		}
		if m.teamType == TypeTeamVs || m.teamType == TypeTagTeamVs {
			if i%2 == 0 {
				m.slots[i].Team = TeamRed
			} else {
				m.slots[i].Team = TeamBlue
			}
		}
		return nil
	}
	return ErrFull
}

// LeaveResult describes what changed when a member left.
type LeaveResult struct {
	Left        bool
	Empty       bool
	HostChanged bool
	NewHostID   int32
	NewHostSlot int
}

// Leave removes a member. When the host leaves and players remain,
// the first occupied slot inherits the host.
func (m *Match) Leave(tokenID string) LeaveResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return LeaveResult{}
	}
	wasHost := m.slots[idx].UserID == m.hostUserID
	m.slots[idx].reset()

	res := LeaveResult{Left: true, Empty: true}
	for i := range m.slots {
		if m.slots[i].Occupied() {
			res.Empty = false
			break
		}
	}
	if res.Empty {
		return res
	}
	if wasHost {
		for i := range m.slots {
			if m.slots[i].Occupied() {
				m.hostUserID = m.slots[i].UserID
				res.HostChanged = true
				res.NewHostID = m.hostUserID
				res.NewHostSlot = i
				break
			}
		}
	}
	return res
}

// ChangeSlot moves a member into a free slot.
func (m *Match) ChangeSlot(tokenID string, target int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if target < 0 || target > 15 {
		return ErrBadSlot
	}
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return ErrNotInMatch
	}
	if idx == target || m.slots[target].Status != StatusFree {
		return ErrBadSlot
	}
	m.slots[target].copyFrom(&m.slots[idx])
	m.slots[idx].reset()
	return nil
}

// SetStatus sets the member's slot status (ready, not ready, no map,
// has map).
func (m *Match) SetStatus(tokenID string, status uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return ErrNotInMatch
	}
	m.slots[idx].Status = status
	return nil
}

// Lock toggles a slot's lock. Locking an occupied slot kicks its
// player; the host cannot be kicked this way.
func (m *Match) Lock(slotID int) (kickedToken string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slotID < 0 || slotID > 15 {
		return "", ErrBadSlot
	}
	s := &m.slots[slotID]
	switch {
	case s.Status == StatusLocked:
		s.reset()
	case s.Status == StatusFree:
		s.Status = StatusLocked
	case s.Occupied():
		if s.UserID == m.hostUserID {
			return "", ErrBadSlot
		}
		kickedToken = s.TokenID
		s.reset()
		s.Status = StatusLocked
	}
	return kickedToken, nil
}

// ChangeTeam flips a member between red and blue. Only meaningful in
// team modes.
func (m *Match) ChangeTeam(tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.teamType != TypeTeamVs && m.teamType != TypeTagTeamVs {
		return nil
	}
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return ErrNotInMatch
	}
	if m.slots[idx].Team == TeamRed {
		m.slots[idx].Team = TeamBlue
	} else {
		m.slots[idx].Team = TeamRed
	}
	return nil
}

// ChangeMods applies a mods update. Under free mod the host controls
// only the global time-altering mods and their own slot; everyone else
// controls their own slot. Without free mod only the host may change
// the global mods.
func (m *Match) ChangeMods(tokenID string, userID int32, mods int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return ErrNotInMatch
	}
	if !m.freeMod {
		if userID != m.hostUserID {
			return nil
		}
		m.mods = mods
		return nil
	}
	if userID == m.hostUserID {
		m.mods = mods & timeMods
	}
	m.slots[idx].Mods = mods &^ timeMods
	return nil
}

// ChangeSettings applies a host settings update: room name, beatmap,
// mode, scoring, team type and the free mod toggle. Ready players drop
// back to not ready when the beatmap changes.
func (m *Match) ChangeSettings(s clientpackets.MatchSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()

	beatmapChanged := s.BeatmapMD5 != m.beatmapMD5
	m.name = s.Name
	m.beatmapName = s.BeatmapName
	m.beatmapID = s.BeatmapID
	m.beatmapMD5 = s.BeatmapMD5
	m.gameMode = s.GameMode
	m.scoringType = s.ScoringType
	m.seed = s.Seed

	if s.FreeMod != m.freeMod {
		m.freeMod = s.FreeMod
		if m.freeMod {
			for i := range m.slots {
				if m.slots[i].Occupied() {
					m.slots[i].Mods = m.mods &^ timeMods
				}
			}
			m.mods &= timeMods
		} else {
			for i := range m.slots {
				m.slots[i].Mods = 0
			}
		}
	}

	if s.TeamType != m.teamType {
		m.teamType = s.TeamType
		if m.teamType == TypeTeamVs || m.teamType == TypeTagTeamVs {
			for i := range m.slots {
				if !m.slots[i].Occupied() {
					continue
				}
				if i%2 == 0 {
					m.slots[i].Team = TeamRed
				} else {
					m.slots[i].Team = TeamBlue
				}
			}
		} else {
			for i := range m.slots {
				m.slots[i].Team = TeamNone
			}
		}
	}

	if beatmapChanged {
		for i := range m.slots {
			if m.slots[i].Status == StatusReady {
				m.slots[i].Status = StatusNotReady
			}
		}
	}
}

// ChangePassword replaces the join password.
func (m *Match) ChangePassword(password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.password = password
}

// TransferHost hands the room to the player in the given slot.
func (m *Match) TransferHost(slotID int) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slotID < 0 || slotID > 15 || !m.slots[slotID].Occupied() {
		return 0, ErrBadSlot
	}
	m.hostUserID = m.slots[slotID].UserID
	return m.hostUserID, nil
}

// Start begins a game. Every occupied slot that has the beatmap moves
// to playing with fresh per-game flags. Returns the session ids of the
// players who entered gameplay.
func (m *Match) Start() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inProgress = true
	var playing []string
	for i := range m.slots {
		s := &m.slots[i]
		if !s.Occupied() || s.Status == StatusNoMap {
			continue
		}
		s.Status = StatusPlaying
		s.Loaded = false
		s.Skipped = false
		s.Complete = false
		s.Failed = false
		s.Score = 0
		s.HP = 0
		playing = append(playing, s.TokenID)
	}
	return playing
}

// PlayerLoaded marks a member loaded; reports whether every playing
// member has now loaded.
func (m *Match) PlayerLoaded(tokenID string) (all bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return false, ErrNotInMatch
	}
	m.slots[idx].Loaded = true
	return m.everyPlayingLocked(func(s *Slot) bool { return s.Loaded }), nil
}

// SkipRequest records a skip vote; returns the voter's slot and
// whether all playing members have voted.
func (m *Match) SkipRequest(tokenID string) (slotID int, all bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return 0, false, ErrNotInMatch
	}
	m.slots[idx].Skipped = true
	return idx, m.everyPlayingLocked(func(s *Slot) bool { return s.Skipped }), nil
}

// PlayerCompleted marks a member done; reports whether the whole game
// is complete.
func (m *Match) PlayerCompleted(tokenID string) (all bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return false, ErrNotInMatch
	}
	m.slots[idx].Complete = true
	return m.everyPlayingLocked(func(s *Slot) bool { return s.Complete }), nil
}

// RecordScore stores a member's live score and hp from an in-game
// score frame and returns their slot id.
func (m *Match) RecordScore(tokenID string, score int32, hp uint8) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return 0, ErrNotInMatch
	}
	m.slots[idx].Score = score
	m.slots[idx].HP = hp
	return idx, nil
}

// SlotScore returns a slot's live score and hp.
func (m *Match) SlotScore(slotID int) (int32, uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slotID < 0 || slotID > 15 {
		return 0, 0
	}
	return m.slots[slotID].Score, m.slots[slotID].HP
}

// PlayerFailed marks a member failed and returns their slot id.
func (m *Match) PlayerFailed(tokenID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotByToken(tokenID)
	if idx < 0 {
		return 0, ErrNotInMatch
	}
	m.slots[idx].Failed = true
	return idx, nil
}

// FinishGame ends the game and returns every playing slot to the
// lobby in the not-ready state.
func (m *Match) FinishGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inProgress = false
	for i := range m.slots {
		s := &m.slots[i]
		if s.Status == StatusPlaying || s.Status == StatusComplete {
			s.Status = StatusNotReady
		}
		s.Loaded = false
		s.Skipped = false
		s.Complete = false
		s.Failed = false
		s.Score = 0
		s.HP = 0
	}
}

func (m *Match) everyPlayingLocked(pred func(*Slot) bool) bool {
	for i := range m.slots {
		if m.slots[i].Status == StatusPlaying && !pred(&m.slots[i]) {
			return false
		}
	}
	return true
}

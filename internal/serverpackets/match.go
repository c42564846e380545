package serverpackets

import (
	"github.com/rosupd/bancho/internal/packet"
)

// MatchData is the wire-level snapshot of a multiplayer match.
// The match engine exports one of these under its own lock so that
// serialization here never touches live state.
type MatchData struct {
	ID          uint16
	InProgress  bool
	Mods        int32
	Name        string
	Password    string
	BeatmapName string
	BeatmapID   int32
	BeatmapMD5  string

	SlotStatuses [16]uint8
	SlotTeams    [16]uint8
	SlotUserIDs  [16]int32
	SlotOccupied [16]bool
	SlotMods     [16]int32

	HostUserID  int32
	GameMode    uint8
	ScoringType uint8
	TeamType    uint8
	FreeMod     bool
	Seed        int32
}

// writeMatch serializes the match body shared by every match packet.
// When censor is set a non-empty password is replaced with "*" so the
// client shows the lock icon without learning the password; an empty
// one passes through.
func writeMatch(w *packet.Writer, m MatchData, censor bool) *packet.Writer {
	w.WriteU16(m.ID)
	if m.InProgress {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
	w.WriteU8(0) // match type, unused by modern clients
	w.WriteU32(uint32(m.Mods))
	w.WriteString(m.Name)
	if censor && m.Password != "" {
		w.WriteString("*")
	} else {
		w.WriteString(m.Password)
	}
	w.WriteString(m.BeatmapName)
	w.WriteI32(m.BeatmapID)
	w.WriteString(m.BeatmapMD5)
	for i := 0; i < 16; i++ {
		w.WriteU8(m.SlotStatuses[i])
	}
	for i := 0; i < 16; i++ {
		w.WriteU8(m.SlotTeams[i])
	}
	for i := 0; i < 16; i++ {
		if m.SlotOccupied[i] {
			w.WriteI32(m.SlotUserIDs[i])
		}
	}
	w.WriteI32(m.HostUserID)
	w.WriteU8(m.GameMode)
	w.WriteU8(m.ScoringType)
	w.WriteU8(m.TeamType)
	if m.FreeMod {
		w.WriteU8(1)
		for i := 0; i < 16; i++ {
			w.WriteI32(m.SlotMods[i])
		}
	} else {
		w.WriteU8(0)
	}
	w.WriteI32(m.Seed)
	return w
}

// NewMatch advertises a freshly created match to the lobby.
// Passwords are always censored in lobby listings.
func NewMatch(m MatchData) []byte {
	return finish(writeMatch(packet.Get(), m, true), packet.ServerNewMatch)
}

// UpdateMatch pushes new match state. Members get the real password,
// the lobby gets the censored variant.
func UpdateMatch(m MatchData, censor bool) []byte {
	return finish(writeMatch(packet.Get(), m, censor), packet.ServerUpdateMatch)
}

// MatchJoinSuccess confirms a join with the full (uncensored) state.
func MatchJoinSuccess(m MatchData) []byte {
	return finish(writeMatch(packet.Get(), m, false), packet.ServerMatchJoinSuccess)
}

// MatchJoinFail rejects a join attempt.
func MatchJoinFail() []byte {
	return packet.Simple(packet.ServerMatchJoinFail)
}

// DisposeMatch removes a match from the lobby listing.
func DisposeMatch(matchID int32) []byte {
	return finish(packet.Get().WriteI32(matchID), packet.ServerDisposeMatch)
}

// MatchStart moves all ready members into gameplay.
func MatchStart(m MatchData) []byte {
	return finish(writeMatch(packet.Get(), m, false), packet.ServerMatchStart)
}

// MatchScoreUpdate relays one player's in-game score frame. The slot id
// byte has already been rewritten by the match engine.
func MatchScoreUpdate(frame []byte) []byte {
	return finish(packet.Get().WriteRaw(frame), packet.ServerMatchScoreUpdate)
}

// MatchTransferHost tells a member they are the new host.
func MatchTransferHost() []byte {
	return packet.Simple(packet.ServerMatchTransferHost)
}

// MatchAllPlayersLoaded signals that gameplay may begin rendering.
func MatchAllPlayersLoaded() []byte {
	return packet.Simple(packet.ServerMatchAllPlayersLoaded)
}

// MatchPlayerFailed announces a member failing, by slot id.
func MatchPlayerFailed(slotID int32) []byte {
	return finish(packet.Get().WriteI32(slotID), packet.ServerMatchPlayerFailed)
}

// MatchComplete ends the game for all playing members.
func MatchComplete() []byte {
	return packet.Simple(packet.ServerMatchComplete)
}

// MatchSkip skips the beatmap intro for everyone.
func MatchSkip() []byte {
	return packet.Simple(packet.ServerMatchSkip)
}

// MatchPlayerSkipped announces one member's skip vote, by slot id.
func MatchPlayerSkipped(slotID int32) []byte {
	return finish(packet.Get().WriteI32(slotID), packet.ServerMatchPlayerSkipped)
}

// MatchChangePassword pushes the new password to members.
func MatchChangePassword(password string) []byte {
	return finish(packet.Get().WriteString(password), packet.ServerMatchChangePassword)
}

// MatchInvite carries a clickable invite line to the target player.
func MatchInvite(from string, senderID int32, target, inviteLink string) []byte {
	w := packet.Get().
		WriteString(from).
		WriteString(inviteLink).
		WriteString(target).
		WriteI32(senderID)
	return finish(w, packet.ServerInvite)
}

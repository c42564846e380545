package serverpackets

import (
	"github.com/rosupd/bancho/internal/packet"
	"github.com/rosupd/bancho/internal/session"
)

// UserPresence builds the user-panel packet from a session snapshot.
// Timezone is shifted by +24 so the byte is always positive.
func UserPresence(t *session.Token, rank uint8) []byte {
	country, lat, lon := t.Location()
	gameRank := t.Stats().GameRank
	w := packet.Get().
		WriteI32(t.UserID).
		WriteString(t.Username).
		WriteU8(uint8(int(t.TimeOffset()) + 24)).
		WriteU8(country).
		WriteU8(rank).
		WriteF32(lon).
		WriteF32(lat).
		WriteI32(gameRank)
	return finish(w, packet.ServerUserPanel)
}

// UserStats builds the user-stats packet from a session snapshot.
// Accuracy travels as a 0..1 fraction; PP replaces ranked score display
// on clients configured for it, but the wire field order is fixed.
func UserStats(t *session.Token) []byte {
	a := t.Action()
	s := t.Stats()
	w := packet.Get().
		WriteI32(t.UserID).
		WriteU8(a.ID).
		WriteString(a.Text).
		WriteString(a.MD5).
		WriteI32(a.Mods).
		WriteU8(a.GameMode).
		WriteI32(a.BeatmapID).
		WriteU64(uint64(s.RankedScore)).
		WriteF32(s.Accuracy / 100).
		WriteU32(uint32(s.Playcount)).
		WriteU64(uint64(s.TotalScore)).
		WriteU32(uint32(s.GameRank)).
		WriteU16(uint16(s.PP))
	return finish(w, packet.ServerUserStats)
}

// BotStats builds a fixed stats block for the chat bot so it renders
// as permanently idle.
func BotStats(userID int32, statusText string) []byte {
	w := packet.Get().
		WriteI32(userID).
		WriteU8(0).
		WriteString(statusText).
		WriteString("").
		WriteI32(0).
		WriteU8(0).
		WriteI32(0).
		WriteU64(0).
		WriteF32(1.0).
		WriteU32(0).
		WriteU64(0).
		WriteU32(0).
		WriteU16(0)
	return finish(w, packet.ServerUserStats)
}

// BotPresence builds the user-panel packet for the chat bot.
func BotPresence(userID int32, username string) []byte {
	w := packet.Get().
		WriteI32(userID).
		WriteString(username).
		WriteU8(24). // UTC
		WriteU8(0).  // unknown country
		WriteU8(0).
		WriteF32(0).
		WriteF32(0).
		WriteI32(0)
	return finish(w, packet.ServerUserPanel)
}

// Logout announces a user leaving to everyone still online.
func Logout(userID int32) []byte {
	w := packet.Get().
		WriteI32(userID).
		WriteU8(0)
	return finish(w, packet.ServerUserLogout)
}

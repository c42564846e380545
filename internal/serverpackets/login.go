// Package serverpackets builds the byte payloads the server sends to
// osu! clients. Each builder returns a fully framed packet ready to be
// enqueued on a session or broadcast over a stream.
package serverpackets

import (
	"github.com/rosupd/bancho/internal/packet"
)

// finish copies the framed packet out of the pooled writer and returns
// the writer to the pool. Finish's result aliases the pool buffer, so
// every builder goes through here.
func finish(w *packet.Writer, id packet.ID) []byte {
	out := append([]byte(nil), w.Finish(id)...)
	w.Put()
	return out
}

// UserID acknowledges a login. Positive values are the user id;
// negative values are login error codes.
func UserID(id int32) []byte {
	return finish(packet.Get().WriteI32(id), packet.ServerUserID)
}

// ProtocolVersion announces the bancho protocol revision.
func ProtocolVersion(version int32) []byte {
	return finish(packet.Get().WriteI32(version), packet.ServerProtocolVersion)
}

// BanchoPrivileges sends the client-side rank badge bits.
func BanchoPrivileges(rank int32) []byte {
	return finish(packet.Get().WriteI32(rank), packet.ServerSupporterGMT)
}

// FriendsList sends the user's friend ids.
func FriendsList(ids []int32) []byte {
	return finish(packet.Get().WriteIntList(ids), packet.ServerFriendsList)
}

// SilenceEnd tells the client how many seconds of silence remain.
// Zero lifts the silence.
func SilenceEnd(seconds int32) []byte {
	return finish(packet.Get().WriteI32(seconds), packet.ServerSilenceEnd)
}

// MainMenuIcon sets the clickable image on the client main menu.
func MainMenuIcon(iconURL, clickURL string) []byte {
	return finish(packet.Get().WriteString(iconURL+"|"+clickURL), packet.ServerMainMenuIcon)
}

// AccountRestricted informs the client it is in restricted mode.
func AccountRestricted() []byte {
	return packet.Simple(packet.ServerAccountRestricted)
}

// Restart asks the client to reconnect after the given delay.
func Restart(delayMS int32) []byte {
	return finish(packet.Get().WriteI32(delayMS), packet.ServerRestart)
}

package serverpackets

import (
	"github.com/rosupd/bancho/internal/packet"
)

// SpectatorJoined tells a host that a spectator attached.
func SpectatorJoined(userID int32) []byte {
	return finish(packet.Get().WriteI32(userID), packet.ServerSpectatorJoined)
}

// SpectatorLeft tells a host that a spectator detached.
func SpectatorLeft(userID int32) []byte {
	return finish(packet.Get().WriteI32(userID), packet.ServerSpectatorLeft)
}

// FellowSpectatorJoined tells existing spectators about a new one.
func FellowSpectatorJoined(userID int32) []byte {
	return finish(packet.Get().WriteI32(userID), packet.ServerFellowSpectatorJoined)
}

// FellowSpectatorLeft tells remaining spectators one of them detached.
func FellowSpectatorLeft(userID int32) []byte {
	return finish(packet.Get().WriteI32(userID), packet.ServerFellowSpectatorLeft)
}

// SpectateFrames relays a host's replay frame blob untouched.
func SpectateFrames(frames []byte) []byte {
	return finish(packet.Get().WriteRaw(frames), packet.ServerSpectateFrames)
}

// CantSpectate tells the host a spectator lacks the current beatmap.
func CantSpectate(userID int32) []byte {
	return finish(packet.Get().WriteI32(userID), packet.ServerSpectatorCantSpectate)
}

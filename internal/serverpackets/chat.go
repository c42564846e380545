package serverpackets

import (
	"github.com/rosupd/bancho/internal/packet"
)

// Notification pops a toast message on the client.
func Notification(message string) []byte {
	return finish(packet.Get().WriteString(message), packet.ServerNotification)
}

// SendMessage delivers a chat line. Target is a channel name for public
// chat or the recipient's username for private messages.
func SendMessage(from, message, target string, senderID int32) []byte {
	w := packet.Get().
		WriteString(from).
		WriteString(message).
		WriteString(target).
		WriteI32(senderID)
	return finish(w, packet.ServerSendMessage)
}

// ChannelJoinSuccess confirms a channel join.
func ChannelJoinSuccess(name string) []byte {
	return finish(packet.Get().WriteString(name), packet.ServerChannelJoinSuccess)
}

// ChannelInfo advertises one channel in the listing.
func ChannelInfo(name, description string, memberCount uint16) []byte {
	w := packet.Get().
		WriteString(name).
		WriteString(description).
		WriteU16(memberCount)
	return finish(w, packet.ServerChannelInfo)
}

// ChannelInfoEnd marks the end of the channel listing.
func ChannelInfoEnd() []byte {
	return packet.Simple(packet.ServerChannelInfoEnd)
}

// ChannelKicked removes the client from a channel tab.
func ChannelKicked(name string) []byte {
	return finish(packet.Get().WriteString(name), packet.ServerChannelKicked)
}

// UserSilenced announces a user's silence to everyone.
func UserSilenced(userID int32) []byte {
	return finish(packet.Get().WriteI32(userID), packet.ServerUserSilenced)
}

// TargetIsSilenced tells a sender their PM target cannot receive it.
func TargetIsSilenced(target string) []byte {
	w := packet.Get().
		WriteString("").
		WriteString("").
		WriteString(target).
		WriteI32(0)
	return finish(w, packet.ServerTargetIsSilenced)
}

// UserPMBlocked tells a sender the target blocks non-friend messages.
func UserPMBlocked(target string) []byte {
	w := packet.Get().
		WriteString("").
		WriteString("").
		WriteString(target).
		WriteI32(0)
	return finish(w, packet.ServerUserPMBlocked)
}

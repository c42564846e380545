// Package clientpackets decodes the payloads of packets arriving from
// osu! clients. Parsers take the payload bytes (frame header already
// stripped) and return typed structs; a short or malformed payload
// returns an error and the frame is dropped by the router.
package clientpackets

import (
	"fmt"

	"github.com/rosupd/bancho/internal/packet"
)

// ChangeAction is the client's activity update.
type ChangeAction struct {
	ActionID  uint8
	Text      string
	MD5       string
	Mods      int32
	GameMode  uint8
	BeatmapID int32
}

// ParseChangeAction decodes a change-action payload.
func ParseChangeAction(data []byte) (ChangeAction, error) {
	var out ChangeAction
	r := packet.NewReader(data)
	var err error
	if out.ActionID, err = r.ReadU8(); err != nil {
		return out, fmt.Errorf("change action: %w", err)
	}
	if out.Text, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("change action: %w", err)
	}
	if out.MD5, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("change action: %w", err)
	}
	if out.Mods, err = r.ReadI32(); err != nil {
		return out, fmt.Errorf("change action: %w", err)
	}
	if out.GameMode, err = r.ReadU8(); err != nil {
		return out, fmt.Errorf("change action: %w", err)
	}
	if out.BeatmapID, err = r.ReadI32(); err != nil {
		return out, fmt.Errorf("change action: %w", err)
	}
	return out, nil
}

// Message is a chat line from the client. For public chat To is a
// channel name; for private messages it is the recipient's username.
type Message struct {
	From    string
	Content string
	To      string
}

// ParseMessage decodes a public or private chat payload.
func ParseMessage(data []byte) (Message, error) {
	var out Message
	r := packet.NewReader(data)
	var err error
	if out.From, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("message: %w", err)
	}
	if out.Content, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("message: %w", err)
	}
	if out.To, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("message: %w", err)
	}
	// Trailing sender id, ignored: the server trusts the session.
	return out, nil
}

// ParseChannelName decodes a channel join or part payload.
func ParseChannelName(data []byte) (string, error) {
	name, err := packet.NewReader(data).ReadString()
	if err != nil {
		return "", fmt.Errorf("channel name: %w", err)
	}
	return name, nil
}

// ParseUserID decodes a single i32 user id payload
// (start spectating, friend add, friend remove).
func ParseUserID(data []byte) (int32, error) {
	id, err := packet.NewReader(data).ReadI32()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	return id, nil
}

// ParseUserIDList decodes the stats/presence request payloads.
func ParseUserIDList(data []byte) ([]int32, error) {
	ids, err := packet.NewReader(data).ReadIntList()
	if err != nil {
		return nil, fmt.Errorf("user id list: %w", err)
	}
	return ids, nil
}

// ParseAwayMessage decodes the set-away-message payload.
// An empty message clears the away state.
func ParseAwayMessage(data []byte) (string, error) {
	r := packet.NewReader(data)
	if _, err := r.ReadString(); err != nil { // sender, ignored
		return "", fmt.Errorf("away message: %w", err)
	}
	msg, err := r.ReadString()
	if err != nil {
		return "", fmt.Errorf("away message: %w", err)
	}
	return msg, nil
}

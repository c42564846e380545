package clientpackets

import (
	"fmt"

	"github.com/rosupd/bancho/internal/packet"
)

// MatchSettings carries the client's view of a match. Sent when
// creating a match and when the host changes settings.
type MatchSettings struct {
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

	HostUserID  int32
	GameMode    uint8
	ScoringType uint8
	TeamType    uint8
	FreeMod     bool
	SlotMods    [16]int32
	Seed        int32
}

// slotStatusOccupied is the mask of slot statuses that carry a user id
// on the wire (not ready, ready, no map, playing, complete).
const slotStatusOccupied = 4 | 8 | 16 | 32 | 64

// ParseMatchSettings decodes a create-match or change-settings payload.
// User ids appear only for occupied slots, so slot statuses must be
// read before the id block.
func ParseMatchSettings(data []byte) (MatchSettings, error) {
	var out MatchSettings
	r := packet.NewReader(data)

	id, err := r.ReadU16()
	if err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	out.ID = id
	inProgress, err := r.ReadU8()
	if err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	out.InProgress = inProgress != 0
	if _, err = r.ReadU8(); err != nil { // match type, unused
		return out, fmt.Errorf("match settings: %w", err)
	}
	mods, err := r.ReadU32()
	if err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	out.Mods = int32(mods)
	if out.Name, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	if out.Password, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	if out.BeatmapName, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	if out.BeatmapID, err = r.ReadI32(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	if out.BeatmapMD5, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	for i := 0; i < 16; i++ {
		if out.SlotStatuses[i], err = r.ReadU8(); err != nil {
			return out, fmt.Errorf("match settings slot %d: %w", i, err)
		}
	}
	for i := 0; i < 16; i++ {
		if out.SlotTeams[i], err = r.ReadU8(); err != nil {
			return out, fmt.Errorf("match settings team %d: %w", i, err)
		}
	}
	for i := 0; i < 16; i++ {
		if out.SlotStatuses[i]&slotStatusOccupied == 0 {
			continue
		}
		out.SlotOccupied[i] = true
		if out.SlotUserIDs[i], err = r.ReadI32(); err != nil {
			return out, fmt.Errorf("match settings user %d: %w", i, err)
		}
	}
	if out.HostUserID, err = r.ReadI32(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	if out.GameMode, err = r.ReadU8(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	if out.ScoringType, err = r.ReadU8(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	if out.TeamType, err = r.ReadU8(); err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	freeMod, err := r.ReadU8()
	if err != nil {
		return out, fmt.Errorf("match settings: %w", err)
	}
	out.FreeMod = freeMod != 0
	if out.FreeMod {
		for i := 0; i < 16; i++ {
			if out.SlotMods[i], err = r.ReadI32(); err != nil {
				return out, fmt.Errorf("match settings mods %d: %w", i, err)
			}
		}
	}
	// Old clients omit the seed.
	if r.Remaining() >= 4 {
		if out.Seed, err = r.ReadI32(); err != nil {
			return out, fmt.Errorf("match settings: %w", err)
		}
	}
	return out, nil
}

// JoinMatch is the client's attempt to enter an existing match.
type JoinMatch struct {
	MatchID  int32
	Password string
}

// ParseJoinMatch decodes a join-match payload.
func ParseJoinMatch(data []byte) (JoinMatch, error) {
	var out JoinMatch
	r := packet.NewReader(data)
	var err error
	if out.MatchID, err = r.ReadI32(); err != nil {
		return out, fmt.Errorf("join match: %w", err)
	}
	if out.Password, err = r.ReadString(); err != nil {
		return out, fmt.Errorf("join match: %w", err)
	}
	return out, nil
}

// ParseSlotID decodes the change-slot and lock-slot payloads.
func ParseSlotID(data []byte) (int32, error) {
	id, err := packet.NewReader(data).ReadI32()
	if err != nil {
		return 0, fmt.Errorf("slot id: %w", err)
	}
	return id, nil
}

// ParseMods decodes the change-mods payload.
func ParseMods(data []byte) (int32, error) {
	mods, err := packet.NewReader(data).ReadI32()
	if err != nil {
		return 0, fmt.Errorf("mods: %w", err)
	}
	return mods, nil
}

// ParseMatchPassword decodes the change-password payload, which the
// client sends inside a full match settings blob.
func ParseMatchPassword(data []byte) (string, error) {
	s, err := ParseMatchSettings(data)
	if err != nil {
		return "", fmt.Errorf("match password: %w", err)
	}
	return s.Password, nil
}

// ScoreFrame is the decoded in-game score update. The raw payload is
// relayed to other members with only the slot byte rewritten, but the
// engine needs a few decoded fields for the results ranking.
type ScoreFrame struct {
	Time       int32
	SlotID     uint8
	Count300   uint16
	Count100   uint16
	Count50    uint16
	CountGeki  uint16
	CountKatu  uint16
	CountMiss  uint16
	TotalScore int32
	MaxCombo   uint16
	CurrentHP  uint8
	Failed     bool
	Raw        []byte
}

// scoreFrameSlotOffset is the byte position of the slot id inside the
// score frame payload (after the i32 time field).
const scoreFrameSlotOffset = 4

// ParseScoreFrame decodes the fields the engine needs and keeps the raw
// bytes for relaying.
func ParseScoreFrame(data []byte) (ScoreFrame, error) {
	var out ScoreFrame
	r := packet.NewReader(data)
	var err error
	if out.Time, err = r.ReadI32(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.SlotID, err = r.ReadU8(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.Count300, err = r.ReadU16(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.Count100, err = r.ReadU16(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.Count50, err = r.ReadU16(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.CountGeki, err = r.ReadU16(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.CountKatu, err = r.ReadU16(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.CountMiss, err = r.ReadU16(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.TotalScore, err = r.ReadI32(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if out.MaxCombo, err = r.ReadU16(); err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	if _, err = r.ReadU16(); err != nil { // current combo, unused
		return out, fmt.Errorf("score frame: %w", err)
	}
	if _, err = r.ReadU8(); err != nil { // perfect flag, unused
		return out, fmt.Errorf("score frame: %w", err)
	}
	hp, err := r.ReadU8()
	if err != nil {
		return out, fmt.Errorf("score frame: %w", err)
	}
	// The current-hp byte reads 254 when the player has failed.
	out.CurrentHP = hp
	out.Failed = hp == 254
	out.Raw = data
	return out, nil
}

// RewriteSlot returns a copy of the raw score frame with the slot byte
// replaced, so each member sees the sender in its lobby slot.
func (f ScoreFrame) RewriteSlot(slotID uint8) []byte {
	out := append([]byte(nil), f.Raw...)
	if len(out) > scoreFrameSlotOffset {
		out[scoreFrameSlotOffset] = slotID
	}
	return out
}

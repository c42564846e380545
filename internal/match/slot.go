package match

// Slot status bits. A slot carries exactly one status; Occupied masks
// the statuses that mean a player is sitting in the slot.
const (
	StatusFree     uint8 = 1
	StatusLocked   uint8 = 2
	StatusNotReady uint8 = 4
	StatusReady    uint8 = 8
	StatusNoMap    uint8 = 16
	StatusPlaying  uint8 = 32
	StatusComplete uint8 = 64
	StatusQuit     uint8 = 128

	StatusOccupied = StatusNotReady | StatusReady | StatusNoMap | StatusPlaying | StatusComplete
)

// Team assignments within a slot.
const (
	TeamNone uint8 = 0
	TeamBlue uint8 = 1
	TeamRed  uint8 = 2
)

// Team types.
const (
	TypeHeadToHead uint8 = 0
	TypeTagCoop    uint8 = 1
	TypeTeamVs     uint8 = 2
	TypeTagTeamVs  uint8 = 3
)

// Scoring types.
const (
	ScoringScore    uint8 = 0
	ScoringAccuracy uint8 = 1
	ScoringCombo    uint8 = 2
	ScoringScoreV2  uint8 = 3
)

// Slot is one of the sixteen member positions in a match.
type Slot struct {
	Status  uint8
	Team    uint8
	UserID  int32  // -1 when empty
	TokenID string // "" when empty
	Mods    int32

	// Per-game state, reset when a game starts.
	Loaded   bool
	Skipped  bool
	Complete bool
	Failed   bool
	Score    int32
	HP       uint8
}

// Occupied reports whether a player sits in the slot.
func (s *Slot) Occupied() bool {
	return s.Status&StatusOccupied != 0
}

// reset returns the slot to the free state.
func (s *Slot) reset() {
	*s = Slot{Status: StatusFree, UserID: -1}
}

// copyFrom moves a player between slots, preserving team and mods.
func (s *Slot) copyFrom(src *Slot) {
	s.Status = src.Status
	s.Team = src.Team
	s.UserID = src.UserID
	s.TokenID = src.TokenID
	s.Mods = src.Mods
}

package constants

// osu! Bancho Protocol Constants
//
// These values are defined by the upstream osu! client and must match it
// exactly; they are shared between the codec, the handlers, and the
// multiplayer engine.

// ProtocolVersion is the bancho protocol revision announced at login
// and in the cho-protocol response header. Always 19 for modern clients.
const ProtocolVersion = 19

// Login reply error codes, sent as a negative user id in ServerUserID.
const (
	LoginFailed            = -1
	LoginUpdateRequired    = -2
	LoginBanned            = -3
	LoginError             = -5
	LoginNeedsVerification = -8
)

// Action kinds carried in the client's change-action packet.
const (
	ActionIdle         = 0
	ActionAFK          = 1
	ActionPlaying      = 2
	ActionEditing      = 3
	ActionModding      = 4
	ActionMultiplayer  = 5
	ActionWatching     = 6
	ActionUnknown      = 7
	ActionTesting      = 8
	ActionSubmitting   = 9
	ActionPaused       = 10
	ActionLobby        = 11
	ActionMultiplaying = 12
	ActionOsuDirect    = 13
)

// Game modes.
const (
	ModeStandard = 0
	ModeTaiko    = 1
	ModeCatch    = 2
	ModeMania    = 3
)

// Mod bitmask values used by the match engine and the PP adapter.
const (
	ModNoFail      = 1 << 0
	ModEasy        = 1 << 1
	ModHidden      = 1 << 3
	ModHardRock    = 1 << 4
	ModSuddenDeath = 1 << 5
	ModDoubleTime  = 1 << 6
	ModRelax       = 1 << 7
	ModHalfTime    = 1 << 8
	ModNightcore   = 1 << 9
	ModFlashlight  = 1 << 10
	ModSpunOut     = 1 << 12
	ModAutopilot   = 1 << 13
)

// Client-side rank badges (the "user rank" byte in user-presence and the
// bancho-privileges packet). Mirrors the client's Permissions enum usage.
const (
	RankNormal          = 0
	RankPlayer          = 1
	RankBAT             = 2
	RankSupporter       = 4
	RankMod             = 6
	RankPeppy           = 8
	RankAdmin           = 16
	RankTournamentStaff = 32
)

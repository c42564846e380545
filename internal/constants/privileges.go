package constants

// Server-side privilege bits stored in users.privileges.
// These mirror the values used by the web frontend and must stay in sync
// with the database contents.
const (
	UserPublic              = 1 << 0
	UserNormal              = 1 << 1
	UserDonor               = 1 << 2
	AdminAccessPanel        = 1 << 3
	AdminManageUsers        = 1 << 4
	AdminBanUsers           = 1 << 5
	AdminSilenceUsers       = 1 << 6
	AdminWipeUsers          = 1 << 7
	AdminManageBeatmaps     = 1 << 8
	AdminManageServers      = 1 << 9
	AdminManageSettings     = 1 << 10
	AdminManageBetaKeys     = 1 << 11
	AdminManageReports      = 1 << 12
	AdminManageDocs         = 1 << 13
	AdminManageBadges       = 1 << 14
	AdminViewRAPLogs        = 1 << 15
	AdminManagePrivileges   = 1 << 16
	AdminSendAlerts         = 1 << 17
	AdminChatMod            = 1 << 18
	AdminKickUsers          = 1 << 19
	UserPendingVerification = 1 << 20
	UserTournamentStaff     = 1 << 21
)

package packet

// ID is a bancho packet identifier (little-endian u16 on the wire).
type ID uint16

// Packet id catalog, mirroring the upstream osu! client constants.
// Client* ids arrive from the client, Server* ids are sent by us.
// The numeric values are fixed by the client and must never change.
const (
	ClientChangeAction             ID = 0
	ClientSendPublicMessage        ID = 1
	ClientLogout                   ID = 2
	ClientRequestStatusUpdate      ID = 3
	ClientPong                     ID = 4
	ServerUserID                   ID = 5
	ServerCommandError             ID = 6
	ServerSendMessage              ID = 7
	ServerPing                     ID = 8
	ServerHandleIRCUsernameChange  ID = 9
	ServerHandleIRCQuit            ID = 10
	ServerUserStats                ID = 11
	ServerUserLogout               ID = 12
	ServerSpectatorJoined          ID = 13
	ServerSpectatorLeft            ID = 14
	ServerSpectateFrames           ID = 15
	ClientStartSpectating          ID = 16
	ClientStopSpectating           ID = 17
	ClientSpectateFrames           ID = 18
	ServerVersionUpdate            ID = 19
	ClientErrorReport              ID = 20
	ClientCantSpectate             ID = 21
	ServerSpectatorCantSpectate    ID = 22
	ServerGetAttention             ID = 23
	ServerNotification             ID = 24
	ClientSendPrivateMessage       ID = 25
	ServerUpdateMatch              ID = 26
	ServerNewMatch                 ID = 27
	ServerDisposeMatch             ID = 28
	ClientPartLobby                ID = 29
	ClientJoinLobby                ID = 30
	ClientCreateMatch              ID = 31
	ClientJoinMatch                ID = 32
	ClientPartMatch                ID = 33
	ServerMatchJoinSuccess         ID = 36
	ServerMatchJoinFail            ID = 37
	ClientMatchChangeSlot          ID = 38
	ClientMatchReady               ID = 39
	ClientMatchLock                ID = 40
	ClientMatchChangeSettings      ID = 41
	ServerFellowSpectatorJoined    ID = 42
	ServerFellowSpectatorLeft      ID = 43
	ClientMatchStart               ID = 44
	ServerMatchStart               ID = 46
	ClientMatchScoreUpdate         ID = 47
	ServerMatchScoreUpdate         ID = 48
	ClientMatchComplete            ID = 49
	ServerMatchTransferHost        ID = 50
	ClientMatchChangeMods          ID = 51
	ClientMatchLoadComplete        ID = 52
	ServerMatchAllPlayersLoaded    ID = 53
	ClientMatchNoBeatmap           ID = 54
	ClientMatchNotReady            ID = 55
	ClientMatchFailed              ID = 56
	ServerMatchPlayerFailed        ID = 57
	ServerMatchComplete            ID = 58
	ClientMatchHasBeatmap          ID = 59
	ClientMatchSkipRequest         ID = 60
	ServerMatchSkip                ID = 61
	ServerUnauthorised             ID = 62
	ClientChannelJoin              ID = 63
	ServerChannelJoinSuccess       ID = 64
	ServerChannelInfo              ID = 65
	ServerChannelKicked            ID = 66
	ServerChannelAvailableAutojoin ID = 67
	ClientBeatmapInfoRequest       ID = 68
	ServerBeatmapInfoReply         ID = 69
	ClientMatchTransferHost        ID = 70
	ServerSupporterGMT             ID = 71
	ServerFriendsList              ID = 72
	ClientFriendAdd                ID = 73
	ClientFriendRemove             ID = 74
	ServerProtocolVersion          ID = 75
	ServerMainMenuIcon             ID = 76
	ClientMatchChangeTeam          ID = 77
	ClientChannelPart              ID = 78
	ClientReceiveUpdates           ID = 79
	ServerTopBotnet                ID = 80
	ServerMatchPlayerSkipped       ID = 81
	ClientSetAwayMessage           ID = 82
	ServerUserPanel                ID = 83
	ServerIRCOnly                  ID = 84
	ClientUserStatsRequest         ID = 85
	ServerRestart                  ID = 86
	ClientInvite                   ID = 87
	ServerInvite                   ID = 88
	ServerChannelInfoEnd           ID = 89
	ClientMatchChangePassword      ID = 90
	ServerMatchChangePassword      ID = 91
	ServerSilenceEnd               ID = 92
	ClientTournamentMatchInfoReq   ID = 93
	ServerUserSilenced             ID = 94
	ServerUserPresenceSingle       ID = 95
	ServerUserPresenceBundle       ID = 96
	ClientUserPanelRequest         ID = 97
	ClientUserPanelRequestFullList ID = 98
	ServerUserPMBlocked            ID = 100
	ServerTargetIsSilenced         ID = 101
	ServerVersionUpdateForced      ID = 102
	ServerSwitchServer             ID = 103
	ServerAccountRestricted        ID = 104
	ServerJumpscare                ID = 105
	ClientMatchAbort               ID = 106
	ServerSwitchTourneyServer      ID = 107
	ClientSpecialJoinMatchChannel  ID = 108
	ClientSpecialLeaveMatchChannel ID = 109
)

// HeaderSize is the fixed frame header: u16 id, one pad byte, u32 length.
const HeaderSize = 7

package session

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Token represents one logged-in client session.
//
// Locking: Processing serializes whole HTTP requests for this session
// (overlapping polls from buggy clients). mu guards the mutable state
// fields. queueMu guards only the outbound byte queue so that other
// sessions can enqueue to us without touching our state lock.
type Token struct {
	id           string
	UserID       int32
	Username     string
	SafeUsername string

	// Processing serializes concurrent requests for the same session.
	Processing sync.Mutex

	mu             sync.Mutex
	privileges     int32
	country        uint8
	countryCode    string
	timeOffset     int8
	latitude       float32
	longitude      float32
	restricted     bool
	admin          bool
	tournament     bool
	blockNonFriend bool
	awayMessage    string

	// Action state broadcast in user-stats.
	actionID   uint8
	actionText string
	actionMD5  string
	actionMods int32
	gameMode   uint8
	beatmapID  int32

	// Stats snapshot.
	rankedScore int64
	accuracy    float32
	playcount   int32
	totalScore  int64
	pp          int32
	gameRank    int32

	joinedChannels map[string]struct{}
	spectating     string // host session id, "" when not spectating
	spectatingUser int32
	matchID        int32 // -1 when not in a match

	silenceEndAt time.Time
	spamCounter  int32

	loginTime time.Time
	lastPing  atomic.Int64 // unix nano
	kicked    atomic.Bool

	queueMu sync.Mutex
	queue   []byte
}

// newToken creates a session with a fresh 128-bit opaque id.
func newToken(userID int32, username string) *Token {
	t := &Token{
		id:             strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:         userID,
		Username:       username,
		SafeUsername:   SafeUsername(username),
		countryCode:    "XX",
		matchID:        -1,
		joinedChannels: make(map[string]struct{}),
		loginTime:      time.Now(),
	}
	t.lastPing.Store(time.Now().UnixNano())
	return t
}

// SafeUsername lowercases a username and replaces spaces with underscores,
// matching the users.username_safe column.
func SafeUsername(username string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(username), " ", "_"))
}

// ID returns the opaque session id sent in the cho-token header.
func (t *Token) ID() string { return t.id }

// Enqueue appends outbound bytes to the session's send queue.
// Safe to call from any goroutine; order of enqueues is preserved.
func (t *Token) Enqueue(data []byte) {
	if len(data) == 0 {
		return
	}
	t.queueMu.Lock()
	t.queue = append(t.queue, data...)
	t.queueMu.Unlock()
}

// FetchQueue atomically returns all bytes enqueued since the previous
// FetchQueue (or session start) and resets the queue.
func (t *Token) FetchQueue() []byte {
	t.queueMu.Lock()
	out := t.queue
	t.queue = nil
	t.queueMu.Unlock()
	return out
}

// QueueLen returns the current queue size in bytes.
func (t *Token) QueueLen() int {
	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	return len(t.queue)
}

// UpdatePingTime records HTTP contact for the timeout sweep.
func (t *Token) UpdatePingTime() {
	t.lastPing.Store(time.Now().UnixNano())
}

// LastPing returns the time of the last HTTP contact.
func (t *Token) LastPing() time.Time {
	return time.Unix(0, t.lastPing.Load())
}

// LoginTime returns the session creation time.
func (t *Token) LoginTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loginTime
}

// MarkKicked defers destruction until the current request drains.
func (t *Token) MarkKicked() { t.kicked.Store(true) }

// Kicked reports whether the session is scheduled for destruction.
func (t *Token) Kicked() bool { return t.kicked.Load() }

// SetIdentity installs privilege-derived flags after login.
func (t *Token) SetIdentity(privileges int32, restricted, admin, tournament bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.privileges = privileges
	t.restricted = restricted
	t.admin = admin
	t.tournament = tournament
}

// Privileges returns the raw privilege bits.
func (t *Token) Privileges() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.privileges
}

// SetPrivileges replaces the privilege bits (refresh_privs bridge).
func (t *Token) SetPrivileges(p int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.privileges = p
}

// Restricted reports the cheat-restricted state.
func (t *Token) Restricted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restricted
}

// SetRestricted toggles the restricted flag.
func (t *Token) SetRestricted(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restricted = v
}

// Admin reports whether the user carries the manage-users privilege.
func (t *Token) Admin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.admin
}

// Tournament reports whether this is a tournament-client session.
// Tournament sessions do not evict each other at login.
func (t *Token) Tournament() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tournament
}

// SetBlockNonFriendPM toggles the block-non-friend-DM client setting.
func (t *Token) SetBlockNonFriendPM(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blockNonFriend = v
}

// BlockNonFriendPM reports the block-non-friend-DM client setting.
func (t *Token) BlockNonFriendPM() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blockNonFriend
}

// SetAwayMessage sets (or clears) the away auto-reply.
func (t *Token) SetAwayMessage(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.awayMessage = msg
}

// AwayMessage returns the away auto-reply, "" when unset.
func (t *Token) AwayMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.awayMessage
}

// SetLocation stores geolocation data resolved at login.
func (t *Token) SetLocation(countryCode string, country uint8, lat, lon float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.countryCode = countryCode
	t.country = country
	t.latitude = lat
	t.longitude = lon
}

// Location returns country id, latitude and longitude for user-presence.
func (t *Token) Location() (uint8, float32, float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.country, t.latitude, t.longitude
}

// CountryCode returns the two-letter country code.
func (t *Token) CountryCode() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countryCode
}

// SetTimeOffset stores the client's UTC offset.
func (t *Token) SetTimeOffset(off int8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeOffset = off
}

// TimeOffset returns the client's UTC offset.
func (t *Token) TimeOffset() int8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeOffset
}

// Action is the session's currently-broadcast activity.
type Action struct {
	ID        uint8
	Text      string
	MD5       string
	Mods      int32
	GameMode  uint8
	BeatmapID int32
}

// SetAction replaces the action state (change-action packet).
func (t *Token) SetAction(a Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actionID = a.ID
	t.actionText = a.Text
	t.actionMD5 = a.MD5
	t.actionMods = a.Mods
	t.gameMode = a.GameMode
	t.beatmapID = a.BeatmapID
}

// Action returns the current action state.
func (t *Token) Action() Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Action{
		ID:        t.actionID,
		Text:      t.actionText,
		MD5:       t.actionMD5,
		Mods:      t.actionMods,
		GameMode:  t.gameMode,
		BeatmapID: t.beatmapID,
	}
}

// Stats is a session's cached ranking snapshot.
type Stats struct {
	RankedScore int64
	Accuracy    float32
	Playcount   int32
	TotalScore  int64
	PP          int32
	GameRank    int32
}

// SetStats replaces the cached stats snapshot.
func (t *Token) SetStats(s Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rankedScore = s.RankedScore
	t.accuracy = s.Accuracy
	t.playcount = s.Playcount
	t.totalScore = s.TotalScore
	t.pp = s.PP
	t.gameRank = s.GameRank
}

// Stats returns the cached stats snapshot.
func (t *Token) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		RankedScore: t.rankedScore,
		Accuracy:    t.accuracy,
		Playcount:   t.playcount,
		TotalScore:  t.totalScore,
		PP:          t.pp,
		GameRank:    t.gameRank,
	}
}

// JoinChannel records channel membership on the session side.
func (t *Token) JoinChannel(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joinedChannels[name] = struct{}{}
}

// PartChannel removes channel membership on the session side.
func (t *Token) PartChannel(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.joinedChannels, name)
}

// InChannel reports whether the session has joined the channel.
func (t *Token) InChannel(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.joinedChannels[name]
	return ok
}

// JoinedChannels returns a snapshot of the joined channel names.
func (t *Token) JoinedChannels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.joinedChannels))
	for name := range t.joinedChannels {
		out = append(out, name)
	}
	return out
}

// SetSpectating records the host this session follows ("" to clear).
func (t *Token) SetSpectating(hostTokenID string, hostUserID int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spectating = hostTokenID
	t.spectatingUser = hostUserID
}

// Spectating returns the followed host's session id and user id.
func (t *Token) Spectating() (string, int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spectating, t.spectatingUser
}

// SetMatchID records the joined match (-1 to clear).
func (t *Token) SetMatchID(id int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.matchID = id
}

// MatchID returns the joined match id, -1 when not in a match.
func (t *Token) MatchID() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.matchID
}

// Silence mutes the session for the given duration.
func (t *Token) Silence(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.silenceEndAt = time.Now().Add(d)
}

// SilenceEnd returns when the current silence expires (zero when none).
func (t *Token) SilenceEnd() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.silenceEndAt
}

// Silenced reports whether the session is currently muted.
func (t *Token) Silenced() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Now().Before(t.silenceEndAt)
}

// SpamInc bumps the chat counter and returns the new value.
func (t *Token) SpamInc() int {
	return int(atomic.AddInt32(&t.spamCounter, 1))
}

// SpamReset clears the chat counter (periodic ticker).
func (t *Token) SpamReset() {
	atomic.StoreInt32(&t.spamCounter, 0)
}

package bancho

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/rosupd/bancho/internal/constants"
	"github.com/rosupd/bancho/internal/db"
	"github.com/rosupd/bancho/internal/geo"
	"github.com/rosupd/bancho/internal/serverpackets"
	"github.com/rosupd/bancho/internal/session"
)

// Hardware hash signatures reported by clients running under wine.
// Mac and disk hashes are meaningless there, so multi-account matching
// falls back to the unique id alone.
const (
	wineAdaptersMD5 = "b4ec3c4334a0249dae95c284ec5983df"
	wineDiskMD5     = "ffae06fb022871fe9beb58b005c5e21d"
)

// loginRequest is the parsed login body.
type loginRequest struct {
	Username    string
	PasswordMD5 string
	Version     string
	TimeOffset  int8
	BlockPM     bool
	AdaptersMD5 string
	UniqueMD5   string
	DiskMD5     string
	Tournament  bool
	Wine        bool
}

// parseLogin decodes the three-line login body:
//
//	username\npassword_md5\nversion|utc_offset|display_city|client_hashes|block_pm\n
func parseLogin(body []byte) (loginRequest, error) {
	var out loginRequest
	lines := strings.SplitN(string(body), "\n", 4)
	if len(lines) < 3 {
		return out, fmt.Errorf("login body has %d lines", len(lines))
	}
	out.Username = strings.TrimSpace(lines[0])
	out.PasswordMD5 = strings.TrimSpace(lines[1])
	if out.Username == "" || len(out.PasswordMD5) != 32 {
		return out, fmt.Errorf("bad credentials format")
	}

	parts := strings.Split(strings.TrimSpace(lines[2]), "|")
	if len(parts) < 5 {
		return out, fmt.Errorf("client line has %d fields", len(parts))
	}
	out.Version = parts[0]
	if off, err := strconv.Atoi(parts[1]); err == nil {
		out.TimeOffset = int8(off)
	}
	out.BlockPM = parts[4] == "1"

	hashes := strings.Split(parts[3], ":")
	if len(hashes) >= 5 {
		out.AdaptersMD5 = hashes[2]
		out.UniqueMD5 = hashes[3]
		out.DiskMD5 = hashes[4]
	}
	out.Tournament = strings.Contains(out.Version, "tourney")
	out.Wine = out.AdaptersMD5 == wineAdaptersMD5 || out.DiskMD5 == wineDiskMD5
	return out, nil
}

// clientYear extracts the build year from a version like b20200414.2.
func clientYear(version string) int {
	v := strings.TrimPrefix(version, "b")
	if len(v) < 4 {
		return 0
	}
	year, err := strconv.Atoi(v[:4])
	if err != nil {
		return 0
	}
	return year
}

// Login runs the full login pipeline. It always returns a response
// body; on failure the token id is "" and the body carries the error
// reply the client understands.
func (h *Hub) Login(ctx context.Context, body []byte, ip string) (tokenID string, resp []byte) {
	started := time.Now()
	req, err := parseLogin(body)
	if err != nil {
		h.log.Warn().Err(err).Str("ip", ip).Msg("malformed login request")
		h.metrics.Logins.WithLabelValues("malformed").Inc()
		return "", serverpackets.UserID(constants.LoginError)
	}

	log := h.log.With().Str("username", req.Username).Str("ip", ip).Logger()

	user, err := h.db.Users().ByUsernameSafe(ctx, session.SafeUsername(req.Username))
	if err != nil {
		if !db.IsNotFound(err) {
			log.Error().Err(err).Msg("login user lookup failed")
		}
		h.metrics.Logins.WithLabelValues("unknown_user").Inc()
		return "", loginFailure(constants.LoginFailed, "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.PasswordMD5)); err != nil {
		h.metrics.Logins.WithLabelValues("wrong_password").Inc()
		return "", loginFailure(constants.LoginFailed, "")
	}

	if user.ID == h.cfg.BotUserID {
		log.Warn().Msg("login attempt for the bot account")
		h.metrics.Logins.WithLabelValues("bot_account").Inc()
		return "", loginFailure(constants.LoginFailed, "")
	}

	if user.Privileges&constants.UserPendingVerification != 0 {
		if !h.verifyFirstLogin(ctx, user, req, log) {
			return "", loginFailure(constants.LoginNeedsVerification, "")
		}
	}

	banned := user.Privileges&(constants.UserPublic|constants.UserNormal) == 0
	if banned {
		h.metrics.Logins.WithLabelValues("banned").Inc()
		return "", loginFailure(constants.LoginBanned, "You are banned. Visit the website for more information.")
	}
	restricted := user.Privileges&constants.UserNormal != 0 &&
		user.Privileges&constants.UserPublic == 0

	if year := clientYear(req.Version); year != 0 && year < h.cfg.MinimumClientYear {
		h.metrics.Logins.WithLabelValues("old_client").Inc()
		return "", loginFailure(constants.LoginUpdateRequired, "Your osu! client is too old for this server. Please update it.")
	}
	if strings.Contains(req.Version, "fallback") {
		h.metrics.Logins.WithLabelValues("fallback_client").Inc()
		return "", loginFailure(constants.LoginUpdateRequired, "Fallback clients are not supported.")
	}
	lowerVersion := strings.ToLower(req.Version)
	for _, marker := range []string{"hack", "cheat", "mod", "multi"} {
		if strings.Contains(lowerVersion, marker) {
			log.Warn().Str("version", req.Version).Msg("tampered client version")
			h.metrics.Logins.WithLabelValues("tampered_client").Inc()
			return "", loginFailure(constants.LoginFailed, "")
		}
	}

	// Donor expiry: strip the bit on the way in so the badge is right.
	if user.Privileges&constants.UserDonor != 0 && user.DonorExpire > 0 && user.DonorExpire < time.Now().Unix() {
		newPrivs := user.Privileges &^ constants.UserDonor
		if err := h.db.Users().ExpireDonor(ctx, user.ID, newPrivs); err != nil {
			log.Error().Err(err).Msg("expiring donor")
		} else {
			user.Privileges = newPrivs
		}
	}

	unfrozen := false
	switch classifyFrozen(user.Frozen, user.FirstLoginAfterFrozen, time.Now().Unix()) {
	case frozenResolved:
		// The website marked the check as passed; this login clears
		// the freeze.
		if err := h.db.Users().Unfreeze(ctx, user.ID); err != nil {
			log.Error().Err(err).Msg("unfreezing account")
		} else {
			user.Frozen = 0
			user.FirstLoginAfterFrozen = 0
			unfrozen = true
		}
	case frozenExpired:
		h.restrictWithLog(ctx, user.ID,
			"Frozen account deadline expired",
			fmt.Sprintf("The account was frozen and its deadline (%d) passed without a resolution.", user.Frozen))
		h.metrics.Logins.WithLabelValues("frozen_expired").Inc()
		return "", loginFailure(constants.LoginBanned,
			"Your account has been restricted: the freeze deadline has passed. Contact staff to resolve it.")
	}

	// One active game session per user; tournament clients coexist.
	for _, other := range h.Sessions.OtherSessions(user.ID, "") {
		if req.Tournament && other.Tournament() {
			continue
		}
		if !req.Tournament && other.Tournament() {
			continue
		}
		h.Kick(other, "You logged in from somewhere else.")
	}

	t := h.Sessions.Add(user.ID, user.Username)
	t.SetIdentity(user.Privileges,
		restricted,
		user.Privileges&constants.AdminManageUsers != 0,
		req.Tournament)
	t.SetTimeOffset(req.TimeOffset)
	t.SetBlockNonFriendPM(req.BlockPM)
	if user.SilenceEnd > time.Now().Unix() {
		t.Silence(time.Until(time.Unix(user.SilenceEnd, 0)))
	}

	h.locateSession(ctx, t, user.ID, ip)
	h.auditHardware(ctx, t, req, ip, log)
	if err := h.db.Users().TouchActivity(ctx, user.ID); err != nil {
		log.Warn().Err(err).Msg("touching last activity")
	}

	if unfrozen {
		t.Enqueue(serverpackets.Notification(
			"Your account has been unfrozen. Welcome back!"))
	} else if user.Frozen != 0 {
		t.Enqueue(serverpackets.Notification(
			"Your account is frozen pending a liveness check. Contact staff to resolve it."))
	}

	h.welcome(ctx, t)

	if t.Admin() {
		t.Enqueue(serverpackets.Notification(
			fmt.Sprintf("Login took %dms.", time.Since(started).Milliseconds())))
	}

	if err := h.cache.SetOnlineCount(ctx, h.Sessions.Count()); err != nil {
		log.Warn().Err(err).Msg("updating online count")
	}
	h.metrics.OnlineSessions.Set(float64(h.Sessions.Count()))
	h.metrics.Logins.WithLabelValues("ok").Inc()
	log.Info().
		Int32("user", user.ID).
		Bool("restricted", restricted).
		Bool("tournament", req.Tournament).
		Dur("took", time.Since(started)).
		Msg("login complete")
	return t.ID(), t.FetchQueue()
}

// loginFailure builds an error reply. The notification precedes the
// failure marker so the client shows it before tearing the login down.
func loginFailure(code int32, notification string) []byte {
	var out []byte
	if notification != "" {
		out = serverpackets.Notification(notification)
	}
	return append(out, serverpackets.UserID(code)...)
}

// frozenAction is what a login must do about an account's freeze state.
type frozenAction int

const (
	frozenNone     frozenAction = iota // not frozen
	frozenResolved                     // check passed on the website, unfreeze now
	frozenWarn                         // still inside the deadline, warn and allow
	frozenExpired                      // deadline passed, restrict and deny
)

// classifyFrozen maps the two freeze columns and the clock to the
// action the login pipeline takes.
func classifyFrozen(frozen, firstLoginAfterFrozen, now int64) frozenAction {
	switch {
	case frozen == 0:
		return frozenNone
	case firstLoginAfterFrozen != 0:
		return frozenResolved
	case now > frozen:
		return frozenExpired
	default:
		return frozenWarn
	}
}

// verifyFirstLogin vets an account still pending hardware verification.
// The first login's hardware decides: matching an existing activated
// account bans the new one and restricts the original; a clean match
// activates the account and reports true so the login proceeds. Any
// state where the check cannot run denies the login.
func (h *Hub) verifyFirstLogin(ctx context.Context, user *db.User, req loginRequest, log zerolog.Logger) bool {
	if req.AdaptersMD5 == "" || req.UniqueMD5 == "" || req.DiskMD5 == "" {
		log.Warn().Msg("first login without hardware hashes")
		h.metrics.Logins.WithLabelValues("pending_verification").Inc()
		return false
	}
	matches, err := h.db.Clients().ActivatedHardwareMatches(ctx, user.ID,
		req.AdaptersMD5, req.UniqueMD5, req.DiskMD5, req.Wine)
	if err != nil {
		log.Error().Err(err).Msg("matching hardware for verification")
		h.metrics.Logins.WithLabelValues("pending_verification").Inc()
		return false
	}
	if len(matches) > 0 {
		original := matches[0]
		if err := h.db.Users().Ban(ctx, user.ID); err != nil {
			log.Error().Err(err).Msg("banning multiaccount")
		}
		if err := h.db.Users().InsertBanLog(ctx, h.cfg.BotUserID, user.ID,
			"Multiaccount detected on first login",
			fmt.Sprintf("The hardware is already registered to account %d.", original)); err != nil {
			log.Warn().Err(err).Msg("recording ban log")
		}
		h.restrictWithLog(ctx, original,
			"Multiaccount detected",
			fmt.Sprintf("Account %d was created on this user's hardware.", user.ID))
		h.metrics.Logins.WithLabelValues("multiaccount").Inc()
		log.Warn().Ints32("matched_users", matches).Msg("multiaccount on first login")
		return false
	}
	if err := h.db.Users().Activate(ctx, user.ID); err != nil {
		log.Error().Err(err).Msg("activating account")
		h.metrics.Logins.WithLabelValues("pending_verification").Inc()
		return false
	}
	user.Privileges = user.Privileges&^constants.UserPendingVerification |
		constants.UserPublic | constants.UserNormal
	log.Info().Msg("account verified on first login")
	return true
}

// locateSession resolves geolocation and keeps users_stats.country in
// step with it.
func (h *Hub) locateSession(ctx context.Context, t *session.Token, userID int32, ip string) {
	loc := h.geo.Resolve(ctx, ip)
	stored, err := h.db.Users().Country(ctx, userID)
	if err != nil && !db.IsNotFound(err) {
		h.log.Warn().Err(err).Int32("user", userID).Msg("loading stored country")
	}
	code := loc.CountryCode
	if code == "XX" && stored != "" {
		code = stored
	}
	t.SetLocation(code, geo.CountryID(code), loc.Latitude, loc.Longitude)
	if loc.CountryCode != "XX" && !strings.EqualFold(stored, loc.CountryCode) {
		if err := h.db.Users().SetCountry(ctx, userID, loc.CountryCode); err != nil {
			h.log.Warn().Err(err).Int32("user", userID).Msg("updating country")
		}
	}
}

// auditHardware records hardware and IP history and flags hardware
// shared with banned accounts.
func (h *Hub) auditHardware(ctx context.Context, t *session.Token, req loginRequest, ip string, log zerolog.Logger) {
	if req.UniqueMD5 == "" {
		return
	}
	if err := h.db.Clients().LogHardware(ctx, t.UserID, req.AdaptersMD5, req.UniqueMD5, req.DiskMD5); err != nil {
		log.Warn().Err(err).Msg("logging hardware")
	}
	if ip != "" {
		if err := h.db.Clients().LogIP(ctx, t.UserID, ip); err != nil {
			log.Warn().Err(err).Msg("logging ip")
		}
	}
	matches, err := h.db.Clients().BannedHardwareMatches(ctx, t.UserID, req.AdaptersMD5, req.UniqueMD5, req.DiskMD5, req.Wine)
	if err != nil {
		log.Warn().Err(err).Msg("matching hardware")
		return
	}
	if len(matches) > 0 && !t.Admin() {
		log.Warn().
			Ints32("matched_users", matches).
			Bool("wine", req.Wine).
			Msg("hardware shared with banned accounts")
	}
}

// welcome enqueues the full post-login sequence on the new session.
// The first four packets are order-sensitive: the client expects the
// silence state before the login reply, then the protocol version and
// its privilege byte.
func (h *Hub) welcome(ctx context.Context, t *session.Token) {
	silenceLeft := int32(0)
	if end := t.SilenceEnd(); time.Now().Before(end) {
		silenceLeft = int32(time.Until(end) / time.Second)
	}
	t.Enqueue(serverpackets.SilenceEnd(silenceLeft))
	t.Enqueue(serverpackets.UserID(t.UserID))
	t.Enqueue(serverpackets.ProtocolVersion(constants.ProtocolVersion))
	t.Enqueue(serverpackets.BanchoPrivileges(int32(h.clientRank(t))))

	if t.Restricted() {
		t.Enqueue(serverpackets.AccountRestricted())
		t.Enqueue(serverpackets.SendMessage(h.cfg.BotUsername,
			"Your account is currently in restricted mode. Visit the website for more information.",
			t.Username, h.cfg.BotUserID))
	}

	h.RefreshStats(ctx, t)
	t.Enqueue(serverpackets.UserPresence(t, h.clientRank(t)))

	friends, err := h.db.Users().Friends(ctx, t.UserID)
	if err != nil {
		h.log.Warn().Err(err).Int32("user", t.UserID).Msg("loading friends")
	}
	t.Enqueue(serverpackets.FriendsList(friends))

	// Channel listing, then the default autojoins.
	for _, c := range h.Channels.Public() {
		t.Enqueue(serverpackets.ChannelInfo(c.Name, c.Description, uint16(h.Streams.Size(c.StreamName()))))
	}
	t.Enqueue(serverpackets.ChannelInfoEnd())
	for _, name := range []string{"#osu", "#announce"} {
		if h.Channels.Get(name) != nil {
			h.joinChannel(t, name)
		}
	}

	settings, err := h.db.Settings().Load(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("loading bancho settings")
	} else {
		if settings.MenuIcon != "" {
			t.Enqueue(serverpackets.MainMenuIcon(settings.MenuIcon, "https://"+h.cfg.Domain))
		}
		if settings.LoginNotification != "" {
			t.Enqueue(serverpackets.Notification(settings.LoginNotification))
		}
	}
	t.Enqueue(serverpackets.Notification(
		fmt.Sprintf("Welcome to %s! There are %d users online.", h.cfg.ServerName, h.Sessions.Count())))

	// The bot is always online.
	t.Enqueue(serverpackets.BotPresence(h.cfg.BotUserID, h.cfg.BotUsername))
	t.Enqueue(serverpackets.BotStats(h.cfg.BotUserID, "always here for you"))

	// Everyone already online, and us to everyone else.
	for _, other := range h.Sessions.Snapshot() {
		if other.ID() == t.ID() || other.Restricted() {
			continue
		}
		t.Enqueue(serverpackets.UserPresence(other, h.clientRank(other)))
	}
	h.Streams.Join(StreamMain, t.ID())
	h.BroadcastPresence(t)
}

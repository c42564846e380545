package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rosupd/bancho/internal/constants"
)

// User is the account row the login pipeline needs.
type User struct {
	ID           int32  `db:"id"`
	Username     string `db:"username"`
	UsernameSafe string `db:"username_safe"`
	PasswordHash string `db:"password_md5"` // bcrypt over the client's md5
	Privileges   int32  `db:"privileges"`
	SilenceEnd   int64  `db:"silence_end"` // unix seconds, 0 = none
	DonorExpire  int64  `db:"donor_expire"`
	Frozen       int64  `db:"frozen"`

	// Set by the website once a frozen user completes their check;
	// the next login clears the freeze.
	FirstLoginAfterFrozen int64 `db:"firstloginafterfrozen"`
}

// ModeStats is one game mode's row slice from users_stats.
type ModeStats struct {
	RankedScore int64   `db:"ranked_score"`
	Accuracy    float64 `db:"avg_accuracy"`
	Playcount   int32   `db:"playcount"`
	TotalScore  int64   `db:"total_score"`
	PP          int32   `db:"pp"`
}

// modeSuffix maps a game mode to the users_stats column suffix.
var modeSuffix = [4]string{"std", "taiko", "ctb", "mania"}

// UsersRepo reads and writes account rows.
type UsersRepo struct {
	db *sqlx.DB
}

// NewUsersRepo creates a UsersRepo.
func NewUsersRepo(db *sqlx.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

// ByUsernameSafe loads a user by the normalized username.
func (r *UsersRepo) ByUsernameSafe(ctx context.Context, safe string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, username, username_safe, password_md5, privileges,
		       silence_end, donor_expire, frozen, firstloginafterfrozen
		FROM users
		WHERE username_safe = ?
		LIMIT 1`, safe)
	if err != nil {
		return nil, fmt.Errorf("loading user %q: %w", safe, err)
	}
	return &u, nil
}

// ByID loads a user by id.
func (r *UsersRepo) ByID(ctx context.Context, id int32) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, username, username_safe, password_md5, privileges,
		       silence_end, donor_expire, frozen, firstloginafterfrozen
		FROM users
		WHERE id = ?
		LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}
	return &u, nil
}

// Stats loads the mode-specific stats columns.
func (r *UsersRepo) Stats(ctx context.Context, userID int32, mode uint8) (*ModeStats, error) {
	if int(mode) >= len(modeSuffix) {
		mode = 0
	}
	sfx := modeSuffix[mode]
	var s ModeStats
	query := fmt.Sprintf(`
		SELECT ranked_score_%[1]s AS ranked_score,
		       avg_accuracy_%[1]s AS avg_accuracy,
		       playcount_%[1]s AS playcount,
		       total_score_%[1]s AS total_score,
		       pp_%[1]s AS pp
		FROM users_stats
		WHERE id = ?
		LIMIT 1`, sfx)
	if err := r.db.GetContext(ctx, &s, query, userID); err != nil {
		return nil, fmt.Errorf("loading stats for user %d mode %d: %w", userID, mode, err)
	}
	return &s, nil
}

// Country returns the stored two-letter country code.
func (r *UsersRepo) Country(ctx context.Context, userID int32) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code,
		`SELECT country FROM users_stats WHERE id = ? LIMIT 1`, userID)
	if err != nil {
		return "", fmt.Errorf("loading country for user %d: %w", userID, err)
	}
	return code, nil
}

// SetCountry stores a freshly geolocated country code.
func (r *UsersRepo) SetCountry(ctx context.Context, userID int32, code string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users_stats SET country = ? WHERE id = ?`, code, userID)
	if err != nil {
		return fmt.Errorf("updating country for user %d: %w", userID, err)
	}
	return nil
}

// TouchActivity bumps latest_activity to now.
func (r *UsersRepo) TouchActivity(ctx context.Context, userID int32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET latest_activity = ? WHERE id = ?`,
		time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("touching activity for user %d: %w", userID, err)
	}
	return nil
}

// SetPrivileges replaces the privilege bits.
func (r *UsersRepo) SetPrivileges(ctx context.Context, userID int32, privileges int32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET privileges = ? WHERE id = ?`, privileges, userID)
	if err != nil {
		return fmt.Errorf("updating privileges for user %d: %w", userID, err)
	}
	return nil
}

// ExpireDonor strips the donor bit once donor_expire has passed.
func (r *UsersRepo) ExpireDonor(ctx context.Context, userID int32, newPrivileges int32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET privileges = ?, donor_expire = 0 WHERE id = ?`,
		newPrivileges, userID)
	if err != nil {
		return fmt.Errorf("expiring donor for user %d: %w", userID, err)
	}
	return nil
}

// Unfreeze clears the freeze deadline and the website's resolution flag.
func (r *UsersRepo) Unfreeze(ctx context.Context, userID int32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET frozen = 0, firstloginafterfrozen = 0 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("unfreezing user %d: %w", userID, err)
	}
	return nil
}

// Restrict strips the public bit and stamps the ban time.
func (r *UsersRepo) Restrict(ctx context.Context, userID int32) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET privileges = privileges & ?, ban_datetime = UNIX_TIMESTAMP()
		WHERE id = ?`,
		^int32(constants.UserPublic), userID)
	if err != nil {
		return fmt.Errorf("restricting user %d: %w", userID, err)
	}
	return nil
}

// Ban strips the public, normal and pending bits and stamps the ban
// time.
func (r *UsersRepo) Ban(ctx context.Context, userID int32) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET privileges = privileges & ?, ban_datetime = UNIX_TIMESTAMP()
		WHERE id = ?`,
		^int32(constants.UserPublic|constants.UserNormal|constants.UserPendingVerification), userID)
	if err != nil {
		return fmt.Errorf("banning user %d: %w", userID, err)
	}
	return nil
}

// InsertBanLog records why an account was restricted or banned. The
// website shows these rows to staff.
func (r *UsersRepo) InsertBanLog(ctx context.Context, fromID, toID int32, summary, detail string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ban_logs (from_id, to_id, ts, summary, detail)
		VALUES (?, ?, UNIX_TIMESTAMP(), ?, ?)`,
		fromID, toID, summary, detail)
	if err != nil {
		return fmt.Errorf("recording ban log for user %d: %w", toID, err)
	}
	return nil
}

// Activate clears the pending-verification flag and grants the standard
// bits once the first login's hardware checks out.
func (r *UsersRepo) Activate(ctx context.Context, userID int32) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET privileges = (privileges & ?) | ?
		WHERE id = ?`,
		^int32(constants.UserPendingVerification),
		int32(constants.UserPublic|constants.UserNormal), userID)
	if err != nil {
		return fmt.Errorf("activating user %d: %w", userID, err)
	}
	return nil
}

// Silence stores a silence ending at the given unix time.
func (r *UsersRepo) Silence(ctx context.Context, userID int32, endUnix int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET silence_end = ?, silence_reason = ? WHERE id = ?`,
		endUnix, reason, userID)
	if err != nil {
		return fmt.Errorf("silencing user %d: %w", userID, err)
	}
	return nil
}

// Friends returns the user's friend ids.
func (r *UsersRepo) Friends(ctx context.Context, userID int32) ([]int32, error) {
	var ids []int32
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user2 FROM users_relationships WHERE user1 = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading friends for user %d: %w", userID, err)
	}
	return ids, nil
}

// AddFriend records a one-directional friendship.
func (r *UsersRepo) AddFriend(ctx context.Context, userID, friendID int32) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO users_relationships (user1, user2) VALUES (?, ?)`,
		userID, friendID)
	if err != nil {
		return fmt.Errorf("adding friend %d for user %d: %w", friendID, userID, err)
	}
	return nil
}

// RemoveFriend deletes a one-directional friendship.
func (r *UsersRepo) RemoveFriend(ctx context.Context, userID, friendID int32) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM users_relationships WHERE user1 = ? AND user2 = ?`,
		userID, friendID)
	if err != nil {
		return fmt.Errorf("removing friend %d for user %d: %w", friendID, userID, err)
	}
	return nil
}

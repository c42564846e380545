package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ClientsRepo records login hardware and IP history, used for multi
// account detection.
type ClientsRepo struct {
	db *sqlx.DB
}

// NewClientsRepo creates a ClientsRepo.
func NewClientsRepo(db *sqlx.DB) *ClientsRepo {
	return &ClientsRepo{db: db}
}

// LogHardware upserts one hardware triple occurrence for the user.
// Rows are marked activated: only verified accounts reach this point,
// and activated rows are what first-login vetting matches against.
func (r *ClientsRepo) LogHardware(ctx context.Context, userID int32, mac, uniqueID, diskID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO hw_user (userid, mac, unique_id, disk_id, occurencies, activated)
		VALUES (?, ?, ?, ?, 1, 1)
		ON DUPLICATE KEY UPDATE occurencies = occurencies + 1, activated = 1`,
		userID, mac, uniqueID, diskID)
	if err != nil {
		return fmt.Errorf("logging hardware for user %d: %w", userID, err)
	}
	return nil
}

// BannedHardwareMatches returns distinct banned or restricted users
// who logged in with the same hardware triple. Wine clients match on
// unique id only since mac and disk id are not meaningful there.
func (r *ClientsRepo) BannedHardwareMatches(ctx context.Context, userID int32, mac, uniqueID, diskID string, wine bool) ([]int32, error) {
	var (
		ids   []int32
		query string
		args  []any
	)
	if wine {
		query = `
			SELECT DISTINCT hw.userid
			FROM hw_user hw
			JOIN users u ON u.id = hw.userid
			WHERE hw.unique_id = ? AND hw.userid != ?
			  AND (u.privileges & 3) != 3`
		args = []any{uniqueID, userID}
	} else {
		query = `
			SELECT DISTINCT hw.userid
			FROM hw_user hw
			JOIN users u ON u.id = hw.userid
			WHERE hw.mac = ? AND hw.unique_id = ? AND hw.disk_id = ?
			  AND hw.userid != ?
			  AND (u.privileges & 3) != 3`
		args = []any{mac, uniqueID, diskID, userID}
	}
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("matching banned hardware for user %d: %w", userID, err)
	}
	return ids, nil
}

// ActivatedHardwareMatches returns other activated accounts that
// logged in with the same hardware triple, used to vet an account's
// first login. Wine clients match on unique id only.
func (r *ClientsRepo) ActivatedHardwareMatches(ctx context.Context, userID int32, mac, uniqueID, diskID string, wine bool) ([]int32, error) {
	var (
		ids   []int32
		query string
		args  []any
	)
	if wine {
		query = `
			SELECT DISTINCT userid
			FROM hw_user
			WHERE unique_id = ? AND userid != ? AND activated = 1`
		args = []any{uniqueID, userID}
	} else {
		query = `
			SELECT DISTINCT userid
			FROM hw_user
			WHERE mac = ? AND unique_id = ? AND disk_id = ?
			  AND userid != ? AND activated = 1`
		args = []any{mac, uniqueID, diskID, userID}
	}
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("matching activated hardware for user %d: %w", userID, err)
	}
	return ids, nil
}

// LogIP upserts one IP occurrence for the user.
func (r *ClientsRepo) LogIP(ctx context.Context, userID int32, ip string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ip_user (userid, ip, occurencies)
		VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE occurencies = occurencies + 1`,
		userID, ip)
	if err != nil {
		return fmt.Errorf("logging ip for user %d: %w", userID, err)
	}
	return nil
}

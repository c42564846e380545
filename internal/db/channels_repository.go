package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ChannelRow is one permanent chat channel definition.
type ChannelRow struct {
	Name        string `db:"name"`
	Description string `db:"description"`
	PublicRead  bool   `db:"public_read"`
	PublicWrite bool   `db:"public_write"`
	Moderated   bool   `db:"moderated"`
}

// ChannelsRepo reads the chat channel definitions.
type ChannelsRepo struct {
	db *sqlx.DB
}

// NewChannelsRepo creates a ChannelsRepo.
func NewChannelsRepo(db *sqlx.DB) *ChannelsRepo {
	return &ChannelsRepo{db: db}
}

// All returns every configured channel.
func (r *ChannelsRepo) All(ctx context.Context) ([]ChannelRow, error) {
	var rows []ChannelRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT name, description, public_read, public_write, moderated
		FROM bancho_channels`)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}
	return rows, nil
}

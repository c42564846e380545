package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// BanchoSettings are the server toggles editable from the admin panel.
type BanchoSettings struct {
	Maintenance       bool
	MenuIcon          string
	LoginNotification string
}

// SettingsRepo reads the bancho_settings key/value table.
type SettingsRepo struct {
	db *sqlx.DB
}

// NewSettingsRepo creates a SettingsRepo.
func NewSettingsRepo(db *sqlx.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

type settingRow struct {
	Name        string `db:"name"`
	ValueInt    int64  `db:"value_int"`
	ValueString string `db:"value_string"`
}

// Load reads every known setting; unknown names are ignored so the
// panel can add rows without breaking old servers.
func (r *SettingsRepo) Load(ctx context.Context) (BanchoSettings, error) {
	var rows []settingRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT name, value_int, value_string FROM bancho_settings`)
	if err != nil {
		return BanchoSettings{}, fmt.Errorf("loading bancho settings: %w", err)
	}
	var out BanchoSettings
	for _, row := range rows {
		switch row.Name {
		case "bancho_maintenance":
			out.Maintenance = row.ValueInt != 0
		case "menu_icon":
			out.MenuIcon = row.ValueString
		case "login_notification":
			out.LoginNotification = row.ValueString
		}
	}
	return out, nil
}

// Package db wraps the MySQL database behind typed repositories.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = sql.ErrNoRows

// DB is the shared database handle.
type DB struct {
	conn *sqlx.DB
}

// New wraps an existing connection handle.
func New(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, dsn string, poolSize int) (*DB, error) {
	conn, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}
	conn.SetMaxOpenConns(poolSize)
	conn.SetMaxIdleConns(poolSize)
	conn.SetConnMaxLifetime(time.Hour)
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}
	return New(conn), nil
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Users returns the user repository.
func (d *DB) Users() *UsersRepo { return NewUsersRepo(d.conn) }

// Channels returns the channel repository.
func (d *DB) Channels() *ChannelsRepo { return NewChannelsRepo(d.conn) }

// Clients returns the hardware and IP log repository.
func (d *DB) Clients() *ClientsRepo { return NewClientsRepo(d.conn) }

// Settings returns the bancho settings repository.
func (d *DB) Settings() *SettingsRepo { return NewSettingsRepo(d.conn) }

// IsNotFound reports whether err means no matching row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"wheelofnames/internal/rowstore"
)

// DB wraps sql.DB for Postgres (pgx) or SQLite.
type DB struct {
	Client  *sql.DB
	Dialect rowstore.Dialect
}

// NewDB opens a connection for driver "postgres" or "sqlite" with sane
// defaults and pings it.
func NewDB(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		name    string
		dialect rowstore.Dialect
	)
	switch driver {
	case "postgres", "pgx":
		name, dialect = "pgx", rowstore.Postgres
	case "sqlite", "sqlite3":
		name, dialect = "sqlite3", rowstore.SQLite
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == rowstore.SQLite {
		// one writer; keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &DB{Client: db, Dialect: dialect}, nil
}

// Healthy verifies the database answers within healthTimeout.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

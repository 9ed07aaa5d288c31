package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=investtrack sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id          UUID PRIMARY KEY,
	symbol      TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	asset_type  TEXT NOT NULL,
	currency    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS acquisition_lots (
	id               UUID PRIMARY KEY,
	user_id          TEXT NOT NULL,
	asset_id         UUID NOT NULL REFERENCES assets(id),
	quantity         NUMERIC(28, 8) NOT NULL CHECK (quantity > 0),
	unit_price       NUMERIC(28, 8) NOT NULL CHECK (unit_price > 0),
	currency         TEXT NOT NULL,
	fee              NUMERIC(28, 8) NOT NULL DEFAULT 0 CHECK (fee >= 0),
	acquisition_date TIMESTAMPTZ NOT NULL,
	notes            TEXT NOT NULL DEFAULT '',
	tags             TEXT[] NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_acquisition_lots_user ON acquisition_lots (user_id, acquisition_date);

CREATE TABLE IF NOT EXISTS price_snapshots (
	id       UUID PRIMARY KEY,
	asset_id UUID NOT NULL REFERENCES assets(id),
	price    NUMERIC(28, 8) NOT NULL,
	currency TEXT NOT NULL,
	as_of    TIMESTAMPTZ NOT NULL,
	source   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_snapshots_asset_as_of ON price_snapshots (asset_id, as_of DESC);
`

// EnsureSchema creates the tables used by the repositories when they do not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

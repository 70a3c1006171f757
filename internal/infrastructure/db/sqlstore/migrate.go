package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

const schemaVersion = 1

// migrations are written once for both drivers; column types that differ are
// expanded per driver before execution.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		seq           {{serial_pk}},
		id            TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT 'MEMBER',
		token         TEXT,
		created_at    {{timestamp}} NOT NULL,
		updated_at    {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		seq         {{serial_pk}},
		id          TEXT NOT NULL UNIQUE,
		code        TEXT NOT NULL,
		title       TEXT NOT NULL,
		author      TEXT NOT NULL,
		stock       INTEGER NOT NULL DEFAULT 0,
		borrowed    BOOLEAN NOT NULL DEFAULT FALSE,
		borrower_id TEXT REFERENCES users(id),
		borrowed_at {{timestamp}},
		created_at  {{timestamp}} NOT NULL,
		updated_at  {{timestamp}} NOT NULL,
		CHECK (
			(borrowed AND borrower_id IS NOT NULL AND borrowed_at IS NOT NULL) OR
			(NOT borrowed AND borrower_id IS NULL AND borrowed_at IS NULL)
		)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_borrower ON books(borrower_id)`,
	`CREATE TABLE IF NOT EXISTS penalties (
		seq        {{serial_pk}},
		id         TEXT NOT NULL UNIQUE,
		user_id    TEXT NOT NULL REFERENCES users(id),
		start_date {{timestamp}} NOT NULL,
		end_date   {{timestamp}} NOT NULL,
		CHECK (end_date > start_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_penalties_user ON penalties(user_id)`,
}

func dialect(driverName string) *strings.Replacer {
	if driverName == DriverPostgres {
		return strings.NewReplacer("{{serial_pk}}", "BIGSERIAL PRIMARY KEY", "{{timestamp}}", "TIMESTAMPTZ")
	}
	return strings.NewReplacer("{{serial_pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{timestamp}}", "TIMESTAMP")
}

// Migrate brings the schema up to schemaVersion. Running it on an up to date
// database is a no-op.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}

	var raw string
	err := db.GetContext(ctx, &raw, `SELECT value FROM meta WHERE key = 'schema_version'`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storeErr("read schema version", err)
	}
	if current, _ := strconv.Atoi(raw); current >= schemaVersion {
		return nil
	}

	d := dialect(db.DriverName())
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range migrations {
			if _, err := tx.ExecContext(ctx, d.Replace(stmt)); err != nil {
				return fmt.Errorf("apply migration: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
			strconv.Itoa(schemaVersion))
		return err
	})
}

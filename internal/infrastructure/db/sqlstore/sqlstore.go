// Package sqlstore implements the credential, inventory and penalty stores on
// a relational database through sqlx. Postgres (pgx) is the production driver;
// sqlite3 serves local runs and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/librario/lending-api/internal/core/domain"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"

	defaultTimeout    = 5 * time.Second
	pgUniqueViolation = "23505"
)

// Config captures the settings required to open the database.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Timeout bounds every store call. Exceeding it surfaces as
	// domain.ErrStoreUnavailable.
	Timeout time.Duration
}

// queryer is satisfied by both *DB and *sqlx.Tx.
type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// DB is the connection pool shared by the repositories.
type DB struct {
	*sqlx.DB
	timeout time.Duration
}

// Connect opens the pool for cfg.Driver and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var db *sqlx.DB
	switch cfg.Driver {
	case DriverPostgres:
		pgCfg, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		pgCfg.ConnectTimeout = timeout
		db = sqlx.NewDb(stdlib.OpenDB(*pgCfg), DriverPostgres)
	case DriverSQLite:
		var err error
		db, err = sqlx.Open(DriverSQLite, sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite has a single writer; one connection keeps transactions serial.
		cfg.MaxOpenConns = 1
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", cfg.Driver, err)
	}

	return &DB{DB: db, timeout: timeout}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL"
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}

func (db *DB) isPostgres() bool {
	return db.DriverName() == DriverPostgres
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// storeErr wraps err with op. Timeouts and connection faults become
// domain.ErrStoreUnavailable; domain errors pass through untouched.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainErr(err) {
		return err
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		domain.ErrUserNotFound,
		domain.ErrBookNotFound,
		domain.ErrDuplicateEmail,
		domain.ErrAlreadyBorrowed,
		domain.ErrBorrowLimitExceeded,
		domain.ErrNotBorrowedByUser,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

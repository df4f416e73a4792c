package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver           string // "sqlite" (default) | "postgres"
	DSN              string // file path or ":memory:" for sqlite
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is a database/sql handle plus, for Postgres, the pgx pool behind it.
type DB struct {
	SQL    *sql.DB
	Pool   *pgxpool.Pool
	driver string
	logger *slog.Logger
}

// Open connects to the configured store. Postgres goes through a pgx pool
// wrapped as *sql.DB; SQLite uses the pure-Go modernc driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "", DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	case DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	}
	return nil, common.NewAppError(common.CodeConfig, "unknown store driver "+strconv.Quote(cfg.Driver), nil)
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("repository.open", "driver", DriverSQLite, "dsn", dsn)
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, storeErr("open sqlite", err)
	}
	// a second connection to :memory: would see an empty database
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, storeErr("apply pragma", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storeErr("ping sqlite", err)
	}
	return &DB{SQL: db, driver: DriverSQLite, logger: logger}, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("repository.open", "driver", DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("repository.open.failed", "error", err)
		return nil, storeErr("parse dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("repository.open.failed", "error", err)
		return nil, storeErr("connect", err)
	}

	logger.Info("repository.open.ok", "driver", DriverPostgres)
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, driver: DriverPostgres, logger: logger}, nil
}

// Close closes the database connections gracefully.
func (d *DB) Close() {
	d.logger.Info("repository.close")
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.logger.Error("repository.close.failed", "error", err)
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// HealthCheck pings the store to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if d.Pool != nil {
		err = d.Pool.Ping(ctx)
	} else {
		err = d.SQL.PingContext(ctx)
	}
	if err != nil {
		d.logger.Error("repository.ping.failed", "driver", d.driver, "error", err)
		return storeErr("ping", err)
	}
	d.logger.Debug("repository.ping.ok", "driver", d.driver)
	return nil
}

// Driver returns the dialect the handle speaks.
func (d *DB) Driver() string {
	return d.driver
}

const schema = `
CREATE TABLE IF NOT EXISTS source_files (
	id           TEXT PRIMARY KEY,
	source_path  TEXT NOT NULL,
	filename     TEXT NOT NULL,
	file_ext     TEXT NOT NULL,
	file_size    BIGINT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	uploaded_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS document_records (
	id                 TEXT PRIMARY KEY,
	file_id            TEXT REFERENCES source_files(id),
	file_name          TEXT NOT NULL,
	source_path        TEXT NOT NULL,
	file_size          BIGINT NOT NULL,
	content_hash       TEXT NOT NULL,
	format             TEXT NOT NULL,
	source_method      TEXT NOT NULL,
	status             TEXT NOT NULL,
	error_message      TEXT,
	document_type      TEXT NOT NULL,
	document_number    TEXT,
	analysis_method    TEXT NOT NULL,
	confidence         DOUBLE PRECISION NOT NULL,
	document_json      TEXT NOT NULL,
	reconstructed_text TEXT NOT NULL,
	uploaded_at        TEXT NOT NULL,
	processed_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_document_records_status ON document_records(status);
CREATE INDEX IF NOT EXISTS idx_document_records_hash ON document_records(content_hash);
`

// Migrate creates the tables if they do not exist. The DDL is shared by both
// dialects.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			d.logger.Error("repository.migrate.failed", "error", err)
			return storeErr("migrate", err)
		}
	}
	d.logger.Info("repository.migrate.ok", "driver", d.driver)
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func storeErr(message string, err error) error {
	return common.NewAppError(common.CodeStore, message, errors.Join(common.ErrDatabase, err))
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (collection, name)
);
`

// filter fields end up inside a JSON path expression
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite is an embedded single-file backend built on the pure Go
// modernc.org/sqlite driver. Path ":memory:" keeps everything in memory.
type SQLite struct {
	db      *sql.DB
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, cfg config.SQLiteConfig, timeout time.Duration) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one connection: a single writer, and :memory: databases are
	// per-connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	s := &SQLite{
		db:      db,
		path:    path,
		timeout: timeout,
		logger:  slog.Default().With("component", "sqlite-store", "path", path),
	}
	s.logger.Info("sqlite store ready")
	return s, nil
}

func (s *SQLite) Find(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	where, args, err := sqliteWhere(collection, filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM records WHERE `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()
	return scanBodies(rows)
}

func (s *SQLite) Insert(ctx context.Context, collection string, record Record) error {
	name, err := requireName(record)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, name, body) VALUES (?, ?, ?)`,
		collection, name, string(body)); err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, collection string, filter Filter, fields Record) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	where, args, err := sqliteWhere(collection, filter)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			rowID int64
			body  []byte
		)
		err := tx.QueryRowContext(ctx,
			`SELECT rowid, body FROM records WHERE `+where+` ORDER BY rowid LIMIT 1`, args...).Scan(&rowID, &body)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("selecting %s record: %w", collection, err)
		}
		var current Record
		if err := json.Unmarshal(body, &current); err != nil {
			return fmt.Errorf("decoding record: %w", err)
		}
		maps.Copy(current, fields)
		merged, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE records SET name = ?, body = ?, updated_at = CURRENT_TIMESTAMP WHERE rowid = ?`,
			current.Name(), string(merged), rowID)
		if err != nil {
			return fmt.Errorf("updating %s record: %w", collection, err)
		}
		return nil
	})
}

// Upsert replaces the record with the same name in one statement.
func (s *SQLite) Upsert(ctx context.Context, collection string, record Record) error {
	name, err := requireName(record)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, name, body) VALUES (?, ?, ?)
		ON CONFLICT (collection, name) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		collection, name, string(body)); err != nil {
		return fmt.Errorf("upserting into %s: %w", collection, err)
	}
	return nil
}

func (s *SQLite) DropAll(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	s.logger.Warn("store dropped")
	return nil
}

// Ping checks the connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func sqliteWhere(collection string, filter Filter) (string, []any, error) {
	where := "collection = ?"
	args := []any{collection}
	for _, field := range slices.Sorted(maps.Keys(filter)) {
		if !fieldPattern.MatchString(field) {
			return "", nil, fmt.Errorf("invalid filter field %q", field)
		}
		where += " AND json_extract(body, ?) = ?"
		args = append(args, "$."+field, filter[field])
	}
	return where, args, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS records (
	seq        BIGSERIAL,
	collection TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	body       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, name)
);
CREATE INDEX IF NOT EXISTS idx_records_body ON records USING GIN (body jsonb_path_ops);
`

// Postgres stores every collection in one JSONB table keyed by
// (collection, name).
type Postgres struct {
	client  *postgres.Client
	timeout time.Duration
	logger  *slog.Logger
}

// OpenPostgres connects with lib/pq and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, cfg config.PostgresConfig, timeout time.Duration) (*Postgres, error) {
	client, err := postgres.Open(ctx, dsn, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := client.DB.ExecContext(ctx, postgresSchema); err != nil {
		client.Close()
		return nil, fmt.Errorf("applying postgres schema: %w", err)
	}
	p := &Postgres{
		client:  client,
		timeout: timeout,
		logger:  slog.Default().With("component", "postgres-store"),
	}
	p.logger.Info("postgres store ready")
	return p, nil
}

func (p *Postgres) Find(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	containment, err := containmentJSON(filter)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}
	rows, err := p.client.DB.QueryContext(ctx,
		`SELECT body FROM records WHERE collection = $1 AND body @> $2::jsonb ORDER BY seq`,
		collection, string(containment))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()
	return scanBodies(rows)
}

func (p *Postgres) Insert(ctx context.Context, collection string, record Record) error {
	name, err := requireName(record)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := p.client.DB.ExecContext(ctx,
		`INSERT INTO records (collection, name, body) VALUES ($1, $2, $3::jsonb)`,
		collection, name, string(body)); err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, collection string, filter Filter, fields Record) error {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	containment, err := containmentJSON(filter)
	if err != nil {
		return fmt.Errorf("encoding filter: %w", err)
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	return p.client.InTx(ctx, func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRowContext(ctx,
			`SELECT name FROM records WHERE collection = $1 AND body @> $2::jsonb ORDER BY seq LIMIT 1 FOR UPDATE`,
			collection, string(containment)).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("locking %s record: %w", collection, err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE records
			SET body = body || $3::jsonb,
				name = COALESCE($3::jsonb->>'name', name),
				updated_at = now()
			WHERE collection = $1 AND name = $2`,
			collection, name, string(patch))
		if err != nil {
			return fmt.Errorf("updating %s record %q: %w", collection, name, err)
		}
		return nil
	})
}

// Upsert replaces the record with the same name in one statement.
func (p *Postgres) Upsert(ctx context.Context, collection string, record Record) error {
	name, err := requireName(record)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := p.client.DB.ExecContext(ctx,
		`INSERT INTO records (collection, name, body) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		collection, name, string(body)); err != nil {
		return fmt.Errorf("upserting into %s: %w", collection, err)
	}
	return nil
}

func (p *Postgres) DropAll(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.client.DB.ExecContext(ctx, `TRUNCATE records`); err != nil {
		return fmt.Errorf("truncating records: %w", err)
	}
	p.logger.Warn("store dropped")
	return nil
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.client.DB.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.client.Close()
}

func scanBodies(rows *sql.Rows) ([]Record, error) {
	out := make([]Record, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var r Record
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

// containmentJSON renders filter as a jsonb containment operand; an empty
// filter matches every record.
func containmentJSON(filter Filter) ([]byte, error) {
	if filter == nil {
		filter = Filter{}
	}
	return json.Marshal(filter)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

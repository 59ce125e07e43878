// Package postgres opens the lib/pq connection pool behind the rerank audit
// store and applies its schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
)

// schema is applied in order inside one transaction by Migrate.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rerank_events (
		id              BIGSERIAL PRIMARY KEY,
		request_id      TEXT NOT NULL DEFAULT '',
		query           TEXT NOT NULL,
		strategy        TEXT NOT NULL,
		query_type      TEXT NOT NULL,
		similarity      TEXT NOT NULL,
		outcome         TEXT NOT NULL,
		input_docs      INTEGER NOT NULL,
		output_docs     INTEGER NOT NULL,
		expansion_terms INTEGER NOT NULL,
		second_query    TEXT NOT NULL DEFAULT '',
		error_message   TEXT NOT NULL DEFAULT '',
		cache_hit       BOOLEAN NOT NULL DEFAULT FALSE,
		latency_ms      BIGINT NOT NULL,
		occurred_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rerank_events_occurred_at_idx ON rerank_events (occurred_at)`,
	`CREATE TABLE IF NOT EXISTS rerank_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

type Client struct {
	DB *sql.DB
}

func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{DB: db}, nil
}

// Migrate creates the audit tables when missing.
func (c *Client) Migrate(ctx context.Context) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// InTx runs fn in a transaction, rolling back when fn fails.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
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

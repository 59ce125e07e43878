// Package store persists rerank events and periodic statistics snapshots
// to PostgreSQL. Writes go through a circuit breaker so an unavailable
// database sheds load instead of stalling the consumer.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/resilience"
)

// eventColumns is the insert column order of rerank_events.
var eventColumns = []string{
	"request_id", "query", "strategy", "query_type", "similarity", "outcome",
	"input_docs", "output_docs", "expansion_terms", "second_query",
	"error_message", "cache_hit", "latency_ms", "occurred_at",
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// defaultSnapshotTimeout bounds one snapshot write.
const defaultSnapshotTimeout = 5 * time.Second

type Store struct {
	db              Execer
	breaker         *resilience.CircuitBreaker
	logger          *slog.Logger
	snapshotTimeout time.Duration
}

func New(db Execer, breaker *resilience.CircuitBreaker) *Store {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("analytics-store", resilience.CircuitBreakerConfig{})
	}
	return &Store{
		db:              db,
		breaker:         breaker,
		logger:          slog.Default().With("component", "analytics-store"),
		snapshotTimeout: defaultSnapshotTimeout,
	}
}

// InsertEvents writes events with one multi-row INSERT.
func (s *Store) InsertEvents(ctx context.Context, events []analytics.RerankEvent) error {
	if len(events) == 0 {
		return nil
	}
	stmt, args := insertEventsStatement(events)
	err := s.breaker.Execute(func() error {
		_, err := s.db.ExecContext(ctx, stmt, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting %d rerank events: %w", len(events), err)
	}
	s.logger.Debug("rerank events stored", "count", len(events))
	return nil
}

func insertEventsStatement(events []analytics.RerankEvent) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO rerank_events (")
	b.WriteString(strings.Join(eventColumns, ", "))
	b.WriteString(") VALUES ")
	args := make([]any, 0, len(events)*len(eventColumns))
	for i, e := range events {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range eventColumns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*len(eventColumns)+j+1)
		}
		b.WriteByte(')')
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		args = append(args,
			e.RequestID, e.Query, e.Strategy, e.QueryType, e.Similarity, e.Outcome,
			e.InputDocs, e.OutputDocs, e.ExpansionTerms, e.SecondQuery,
			e.ErrorMessage, e.CacheHit, e.LatencyMs, ts.UTC(),
		)
	}
	return b.String(), args
}

// SaveSnapshot stores stats as one JSONB row.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	err = s.breaker.Execute(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO rerank_snapshots (data, captured_at) VALUES ($1, $2)`,
			data, stats.CapturedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving stats snapshot: %w", err)
	}
	s.logger.Info("stats snapshot saved", "total_requests", stats.TotalRequests)
	return nil
}

// saveSnapshotWithin runs SaveSnapshot under the snapshot timeout so a
// stalled database cannot block the save loop.
func (s *Store) saveSnapshotWithin(ctx context.Context, stats analytics.Stats) error {
	return resilience.WithTimeout(ctx, s.snapshotTimeout, "stats snapshot", func(ctx context.Context) error {
		return s.SaveSnapshot(ctx, stats)
	})
}

// StartPeriodicSave snapshots agg every interval and once more on shutdown.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.saveSnapshotWithin(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				if err := s.saveSnapshotWithin(context.WithoutCancel(ctx), agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

// Schema creates the two tables the store needs. The unique primary key on
// (user_id, action_id) is the idempotency guard; scores carry one row per
// user mutated only by the atomic upsert in ApplyAction.
const Schema = `
CREATE TABLE IF NOT EXISTS actions (
	user_id     TEXT        NOT NULL,
	action_id   TEXT        NOT NULL,
	action_type TEXT        NOT NULL,
	increment   BIGINT      NOT NULL CHECK (increment > 0),
	ts          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, action_id)
);

CREATE TABLE IF NOT EXISTS scores (
	user_id      TEXT        PRIMARY KEY,
	username     TEXT        NOT NULL DEFAULT '',
	score        BIGINT      NOT NULL CHECK (score >= 0),
	last_updated TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS scores_rank_idx ON scores (score DESC, last_updated ASC, user_id ASC);
`

// PostgresStore implements Store on PostgreSQL. The database provides the
// per-user serialization the pipeline must not emulate itself: the ledger
// insert and the score upsert run inside one transaction, and the increment
// is applied row-side rather than read-modify-write.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ApplyAction commits the ledger row and the score increment in one tx.
func (s *PostgresStore) ApplyAction(ctx context.Context, a model.Action) (ApplyResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreApplyLatency(float64(time.Since(start).Milliseconds()))
	}()

	if a.TS.IsZero() {
		a.TS = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`INSERT INTO actions (user_id, action_id, action_type, increment, ts)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, action_id) DO NOTHING`,
		a.UserID, a.ActionID, a.ActionType, a.Increment, a.TS,
	)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("insert action: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Duplicate: surface the prior record, mutate nothing.
		var prior model.Action
		err := tx.QueryRow(ctx,
			`SELECT user_id, action_id, action_type, increment, ts
			 FROM actions WHERE user_id = $1 AND action_id = $2`,
			a.UserID, a.ActionID,
		).Scan(&prior.UserID, &prior.ActionID, &prior.ActionType, &prior.Increment, &prior.TS)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("load prior action: %w", err)
		}
		return ApplyResult{Applied: false, Prior: &prior}, nil
	}

	var newScore int64
	err = tx.QueryRow(ctx,
		`INSERT INTO scores (user_id, username, score, last_updated)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET score = scores.score + EXCLUDED.score,
		     last_updated = EXCLUDED.last_updated,
		     username = COALESCE(NULLIF(EXCLUDED.username, ''), scores.username)
		 RETURNING score`,
		a.UserID, a.Username, a.Increment, a.TS,
	).Scan(&newScore)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("increment score: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ApplyResult{}, fmt.Errorf("commit: %w", err)
	}
	return ApplyResult{Applied: true, NewScore: newScore}, nil
}

// TopN returns the top N entries ordered by score desc.
func (s *PostgresStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, username, score, last_updated
		 FROM scores
		 ORDER BY score DESC, last_updated ASC, user_id ASC
		 LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("top-n query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score, &e.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Rank returns the current rank and score for a user.
func (s *PostgresStore) Rank(ctx context.Context, userID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var e Entry
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, username, score, last_updated, rank FROM (
			SELECT user_id, username, score, last_updated,
			       ROW_NUMBER() OVER (ORDER BY score DESC, last_updated ASC, user_id ASC) AS rank
			FROM scores
		 ) ranked WHERE user_id = $1`, userID,
	).Scan(&e.UserID, &e.Username, &e.Score, &e.LastUpdated, &e.Rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("rank query: %w", err)
	}
	return e, nil
}

// Count returns the total number of users holding a score.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scores`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return count, nil
}

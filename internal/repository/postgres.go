package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	state       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);`

// PostgresStore persists sessions in Postgres via pgx.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, st *pipeline.State) error {
	b, err := encodeState(st)
	if err != nil {
		return err
	}
	var finished *time.Time
	if !st.FinishedAt.IsZero() {
		finished = &st.FinishedAt
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, status, outcome, state, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE
		SET status = EXCLUDED.status, outcome = EXCLUDED.outcome,
		    state = EXCLUDED.state, finished_at = EXCLUDED.finished_at`,
		st.SessionID, string(st.Status), string(st.Outcome()), b, st.StartedAt, finished)
	if err != nil {
		s.logger.Error("session save failed", "session_id", st.SessionID, "error", err)
		return common.WrapError(err, "save session")
	}
	s.logger.Info("session saved", "session_id", st.SessionID, "status", st.Status)
	return nil
}

func (s *PostgresStore) LoadSession(ctx context.Context, sessionID string) (*pipeline.State, error) {
	var b []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM sessions WHERE session_id = $1`, sessionID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "load session")
	}
	return decodeState(b)
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, status, outcome, created_at, COALESCE(finished_at, 'epoch'::timestamptz)
		FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, common.WrapError(err, "list sessions")
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sm SessionSummary
		if err := rows.Scan(&sm.SessionID, &sm.Status, &sm.Outcome, &sm.CreatedAt, &sm.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

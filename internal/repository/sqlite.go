package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	state       TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	finished_at TEXT
);`

// SQLiteStore persists sessions in a local SQLite file, or in memory with
// the ":memory:" DSN. Used by the batch CLI and tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, st *pipeline.State) error {
	b, err := encodeState(st)
	if err != nil {
		return err
	}
	var finished any
	if !st.FinishedAt.IsZero() {
		finished = st.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, status, outcome, state, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE
		SET status = excluded.status, outcome = excluded.outcome,
		    state = excluded.state, finished_at = excluded.finished_at`,
		st.SessionID, string(st.Status), string(st.Outcome()), string(b),
		st.StartedAt.UTC().Format(time.RFC3339Nano), finished)
	if err != nil {
		s.logger.Error("session save failed", "session_id", st.SessionID, "error", err)
		return common.WrapError(err, "save session")
	}
	s.logger.Info("session saved", "session_id", st.SessionID, "status", st.Status)
	return nil
}

func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) (*pipeline.State, error) {
	var b string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE session_id = ?`, sessionID).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "load session")
	}
	return decodeState([]byte(b))
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, status, outcome, created_at, COALESCE(finished_at, '')
		FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, common.WrapError(err, "list sessions")
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sm SessionSummary
		var created, finished string
		if err := rows.Scan(&sm.SessionID, &sm.Status, &sm.Outcome, &created, &finished); err != nil {
			return nil, err
		}
		sm.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		if finished != "" {
			sm.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

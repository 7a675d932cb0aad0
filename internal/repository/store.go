package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joseph-ayodele/docstruct/internal/pipeline"
	"github.com/joseph-ayodele/docstruct/internal/record"
)

// SessionSummary is the listing view of one stored session.
type SessionSummary struct {
	SessionID  string
	Status     string
	Outcome    string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// SessionStore persists terminal pipeline states per session.
type SessionStore interface {
	SaveSession(ctx context.Context, st *pipeline.State) error
	LoadSession(ctx context.Context, sessionID string) (*pipeline.State, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	Close() error
}

// storedState is the persisted envelope. Records are excluded from the
// state's own JSON shape, so they travel alongside it here.
type storedState struct {
	State   *pipeline.State  `json:"state"`
	Records []*record.Record `json:"records"`
}

func encodeState(st *pipeline.State) ([]byte, error) {
	b, err := json.Marshal(storedState{State: st, Records: st.Records})
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return b, nil
}

func decodeState(b []byte) (*pipeline.State, error) {
	var env storedState
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if env.State == nil {
		return nil, fmt.Errorf("stored session has no state")
	}
	env.State.Records = env.Records
	return env.State, nil
}

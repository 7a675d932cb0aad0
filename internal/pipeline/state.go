package pipeline

import (
	"time"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/schema"
	"github.com/joseph-ayodele/docstruct/internal/tables"
)

// StageError is one non-fatal (or terminal) failure recorded during a run.
// Entries are only ever appended, never removed.
type StageError struct {
	Stage      string    `json:"stage"`
	Code       string    `json:"code"`
	DocumentID string    `json:"document_id,omitempty"`
	Document   string    `json:"document,omitempty"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

// State is the envelope threading through the orchestrator for one session.
// Optional fields stay nil until their producing stage completes. It is
// exclusively owned by one Run invocation; nothing is shared across sessions.
type State struct {
	SessionID  string                  `json:"session_id"`
	Status     constants.SessionStatus `json:"status"`
	Documents  []document.Document     `json:"-"`
	Schema     *schema.Schema          `json:"schema,omitempty"`
	Records    []*record.Record        `json:"-"`
	Plan       *tables.Plan            `json:"plan,omitempty"`
	Tables     []tables.Table          `json:"tables,omitempty"`
	Errors     []StageError            `json:"errors"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at,omitempty"`
}

// Outcome classifies a terminal state for callers.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
)

// Outcome distinguishes fully succeeded, partially succeeded with document
// failures, and failed runs.
func (s *State) Outcome() Outcome {
	switch {
	case s.Status == constants.StatusFailed:
		return OutcomeFailed
	case len(s.Errors) > 0:
		return OutcomePartial
	default:
		return OutcomeSucceeded
	}
}

func (s *State) addError(stage, code, docID, docName, message string) {
	s.Errors = append(s.Errors, StageError{
		Stage:      stage,
		Code:       code,
		DocumentID: docID,
		Document:   docName,
		Message:    message,
		At:         time.Now().UTC(),
	})
}

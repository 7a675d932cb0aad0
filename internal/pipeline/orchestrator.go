package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/llm"
	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/tables"
)

const (
	stageSchema  = "schema_inference"
	stageExtract = "guided_extraction"
	stageTables  = "table_synthesis"
)

// Orchestrator sequences the three stages over one session's state:
// schema inference, guided extraction, table synthesis. Stages run strictly
// forward; no stage re-enters an earlier one.
type Orchestrator struct {
	logger      *slog.Logger
	capability  llm.Capability
	concurrency int
}

type Option func(*Orchestrator)

// WithExtractConcurrency bounds parallel per-document extraction.
func WithExtractConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func NewOrchestrator(capability llm.Capability, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		logger:      logger,
		capability:  capability,
		concurrency: constants.ExtractConcurrencyDefault,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline for one session. The returned State is always
// non-nil and terminal, with all accumulated errors preserved; err is non-nil
// only when the terminal status is FAILED.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, docs []document.Document) (*State, error) {
	st := &State{
		SessionID: sessionID,
		Status:    constants.StatusPending,
		Documents: docs,
		StartedAt: time.Now().UTC(),
	}

	if len(docs) == 0 {
		return o.fail(st, stageSchema, common.CodeSchemaInference, "no documents in session")
	}

	// Stage 1: schema inference. Fatal on failure: every later stage
	// depends on the schema, there is no partial-success mode here.
	s, err := o.capability.InferSchema(ctx, docs)
	if err != nil {
		o.logger.Error("pipeline.schema.failed", "session_id", sessionID, "error", err)
		return o.fail(st, stageSchema, common.CodeSchemaInference, err.Error())
	}
	st.Schema = s
	st.Status = constants.StatusSchemaInferred
	o.logger.Info("pipeline.schema.inferred", "session_id", sessionID,
		"sections", len(s.Sections), "paths", len(s.LeafPaths()))

	// Stage 2: guided extraction, per-document and independent.
	st.Records = o.extractAll(ctx, st)
	if err := ctx.Err(); err != nil {
		o.logger.Warn("pipeline.cancelled", "session_id", sessionID)
		return o.fail(st, stageExtract, common.CodeDocumentExtraction, common.ErrCancelled.Error())
	}
	if len(st.Records) == 0 {
		return o.fail(st, stageExtract, common.CodeDocumentExtraction, "all documents failed extraction")
	}
	st.Status = constants.StatusExtracted
	o.logger.Info("pipeline.extracted", "session_id", sessionID,
		"records", len(st.Records), "failures", len(st.Errors))

	// Stage 3: table synthesis. Never fails outright: an unusable plan is
	// replaced with the deterministic fallback, unplanned fields are routed
	// to the catch-all table and recorded as non-fatal errors.
	plan, err := o.capability.PlanTables(ctx, st.Schema, st.Records)
	if err != nil {
		o.logger.Warn("pipeline.plan.fallback", "session_id", sessionID, "error", err)
		st.addError(stageTables, common.CodeTablePlanning, "", "", err.Error())
		plan = tables.Fallback(st.Schema, st.Records)
	}
	st.Plan = plan

	var unplanned []string
	st.Tables, unplanned = tables.Synthesize(st.Schema, st.Records, plan)
	for _, path := range unplanned {
		st.addError(stageTables, common.CodeTablePlanning, "", "",
			"field "+path+" not covered by plan; routed to catch-all table")
	}
	st.Status = constants.StatusTablesReady
	st.FinishedAt = time.Now().UTC()
	o.logger.Info("pipeline.done", "session_id", sessionID,
		"tables", len(st.Tables), "outcome", st.Outcome())
	return st, nil
}

// extractAll runs per-document extraction with bounded concurrency. Each
// worker reads its own document and the by-then-immutable schema, and writes
// to a distinct result slot; the merged sequence follows input document
// order regardless of completion order.
func (o *Orchestrator) extractAll(ctx context.Context, st *State) []*record.Record {
	slots := make([]*record.Record, len(st.Documents))
	jobs := make(chan int)

	var mu sync.Mutex // guards st.Errors
	var wg sync.WaitGroup

	workers := o.concurrency
	if workers > len(st.Documents) {
		workers = len(st.Documents)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				doc := st.Documents[i]
				rec, err := o.capability.ExtractRecord(ctx, st.Schema, doc)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						continue
					}
					o.logger.Warn("pipeline.extract.document_failed",
						"session_id", st.SessionID, "document", doc.Name, "error", err)
					mu.Lock()
					st.addError(stageExtract, common.CodeDocumentExtraction,
						doc.ID.String(), doc.Name, err.Error())
					mu.Unlock()
					continue
				}
				rec.Index = i
				slots[i] = rec
			}
		}()
	}

	// stop issuing new tasks as soon as the session is cancelled
feed:
	for i := range st.Documents {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	out := make([]*record.Record, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func (o *Orchestrator) fail(st *State, stage, code, message string) (*State, error) {
	st.addError(stage, code, "", "", message)
	st.Status = constants.StatusFailed
	st.FinishedAt = time.Now().UTC()
	return st, common.NewAppError(code, message, nil)
}

package llm

import (
	"context"

	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/schema"
	"github.com/joseph-ayodele/docstruct/internal/tables"
)

// Capability is the generative-extraction dependency the pipeline calls as a
// black box. Implementations are inherently non-deterministic; callers must
// not assume referential transparency.
type Capability interface {
	// InferSchema derives one unified field schema from the full document
	// set, analyzed jointly so the schema generalizes across the batch.
	InferSchema(ctx context.Context, docs []document.Document) (*schema.Schema, error)

	// ExtractRecord maps one document onto the schema. Every schema path
	// must appear in the result; values without evidence carry the explicit
	// not-found marker.
	ExtractRecord(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error)

	// PlanTables proposes a relational decomposition of the records. The
	// caller enforces the no-data-loss invariant on the result and falls
	// back to a deterministic plan when this fails.
	PlanTables(ctx context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error)
}

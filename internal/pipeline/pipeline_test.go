package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/schema"
	"github.com/joseph-ayodele/docstruct/internal/tables"
)

// stubCapability lets each test script the three stage calls independently.
type stubCapability struct {
	inferSchema   func(ctx context.Context, docs []document.Document) (*schema.Schema, error)
	extractRecord func(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error)
	planTables    func(ctx context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error)
}

func (c *stubCapability) InferSchema(ctx context.Context, docs []document.Document) (*schema.Schema, error) {
	return c.inferSchema(ctx, docs)
}

func (c *stubCapability) ExtractRecord(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
	return c.extractRecord(ctx, s, doc)
}

func (c *stubCapability) PlanTables(ctx context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error) {
	return c.planTables(ctx, s, recs)
}

func testSchema() *schema.Schema {
	return &schema.Schema{
		Title: "receipts",
		Sections: []schema.Section{{
			Name: "core",
			Fields: []schema.Field{
				{Name: "vendor", Type: schema.TypeString},
				{Name: "total", Type: schema.TypeNumber},
			},
		}},
	}
}

func recordFor(t *testing.T, s *schema.Schema, doc document.Document) *record.Record {
	t.Helper()
	payload := fmt.Sprintf(`{"core":{
		"vendor":{"value":"Vendor of %s","reason":"header","confidence":0.9},
		"total":{"value":"12.50","reason":"footer","confidence":0.8}}}`, doc.Name)
	rec, err := record.Decode(s, doc.ID, doc.Name, 0, []byte(payload))
	require.NoError(t, err)
	return rec
}

// workingStub extracts every document and plans with the fallback, the
// no-surprises baseline individual tests override piecewise.
func workingStub(t *testing.T) *stubCapability {
	t.Helper()
	return &stubCapability{
		inferSchema: func(ctx context.Context, docs []document.Document) (*schema.Schema, error) {
			return testSchema(), nil
		},
		extractRecord: func(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
			return recordFor(t, s, doc), nil
		},
		planTables: func(ctx context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error) {
			return tables.Fallback(s, recs), nil
		},
	}
}

func makeDocs(names ...string) []document.Document {
	docs := make([]document.Document, 0, len(names))
	for _, n := range names {
		docs = append(docs, document.New(n, []byte("content of "+n)))
	}
	return docs
}

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunHappyPath(t *testing.T) {
	o := NewOrchestrator(workingStub(t), quiet())
	st, err := o.Run(context.Background(), "s1", makeDocs("a.txt", "b.txt"))

	require.NoError(t, err)
	assert.Equal(t, constants.StatusTablesReady, st.Status)
	assert.Equal(t, OutcomeSucceeded, st.Outcome())
	assert.Empty(t, st.Errors)
	require.Len(t, st.Records, 2)
	assert.Equal(t, "a.txt", st.Records[0].DocumentName)
	assert.Equal(t, "b.txt", st.Records[1].DocumentName)
	require.NotEmpty(t, st.Tables)
	assert.False(t, st.FinishedAt.IsZero())
}

func TestRunEmptySessionFails(t *testing.T) {
	o := NewOrchestrator(workingStub(t), quiet())
	st, err := o.Run(context.Background(), "s1", nil)

	require.Error(t, err)
	assert.Equal(t, constants.StatusFailed, st.Status)
	assert.Equal(t, OutcomeFailed, st.Outcome())
}

func TestRunPartialFailureKeepsRemainingDocuments(t *testing.T) {
	stub := workingStub(t)
	stub.extractRecord = func(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
		if doc.Name == "doc3.txt" {
			return nil, errors.New("unreadable content")
		}
		return recordFor(t, s, doc), nil
	}
	o := NewOrchestrator(stub, quiet())

	docs := makeDocs("doc1.txt", "doc2.txt", "doc3.txt", "doc4.txt", "doc5.txt")
	st, err := o.Run(context.Background(), "s1", docs)

	require.NoError(t, err, "one bad document must not fail the session")
	assert.Equal(t, constants.StatusTablesReady, st.Status)
	assert.Equal(t, OutcomePartial, st.Outcome())

	require.Len(t, st.Records, 4)
	var got []string
	for _, rec := range st.Records {
		got = append(got, rec.DocumentName)
	}
	assert.Equal(t, []string{"doc1.txt", "doc2.txt", "doc4.txt", "doc5.txt"}, got)

	require.Len(t, st.Errors, 1)
	e := st.Errors[0]
	assert.Equal(t, stageExtract, e.Stage)
	assert.Equal(t, common.CodeDocumentExtraction, e.Code)
	assert.Equal(t, "doc3.txt", e.Document)
	assert.Equal(t, docs[2].ID.String(), e.DocumentID)
	assert.Contains(t, e.Message, "unreadable content")
}

func TestRunRecordsFollowInputOrderNotCompletionOrder(t *testing.T) {
	// completion is forced to C, A, B while input order is A, B, C
	doneC := make(chan struct{})
	doneA := make(chan struct{})

	stub := workingStub(t)
	stub.extractRecord = func(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
		switch doc.Name {
		case "a.txt":
			<-doneC
			defer close(doneA)
		case "b.txt":
			<-doneA
		case "c.txt":
			defer close(doneC)
		}
		return recordFor(t, s, doc), nil
	}
	o := NewOrchestrator(stub, quiet(), WithExtractConcurrency(3))

	st, err := o.Run(context.Background(), "s1", makeDocs("a.txt", "b.txt", "c.txt"))
	require.NoError(t, err)

	var got []string
	for _, rec := range st.Records {
		got = append(got, rec.DocumentName)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, got)
	for i, rec := range st.Records {
		assert.Equal(t, i, rec.Index)
	}
}

func TestRunSchemaInferenceFailureIsTerminal(t *testing.T) {
	stub := workingStub(t)
	stub.inferSchema = func(ctx context.Context, docs []document.Document) (*schema.Schema, error) {
		return nil, errors.New("model returned no usable schema")
	}
	stub.extractRecord = func(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
		t.Fatal("extraction must not run after schema inference fails")
		return nil, nil
	}
	o := NewOrchestrator(stub, quiet())

	st, err := o.Run(context.Background(), "s1", makeDocs("a.txt"))
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeSchemaInference, appErr.Code)

	assert.Equal(t, constants.StatusFailed, st.Status)
	assert.Nil(t, st.Schema)
	assert.Empty(t, st.Tables)
	require.Len(t, st.Errors, 1)
	assert.Equal(t, stageSchema, st.Errors[0].Stage)
}

func TestRunAllDocumentsFailed(t *testing.T) {
	stub := workingStub(t)
	stub.extractRecord = func(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
		return nil, errors.New("garbage in")
	}
	o := NewOrchestrator(stub, quiet())

	st, err := o.Run(context.Background(), "s1", makeDocs("a.txt", "b.txt"))
	require.Error(t, err)
	assert.Equal(t, constants.StatusFailed, st.Status)
	assert.Empty(t, st.Records)
	assert.Empty(t, st.Tables)

	// one error per document plus the terminal stage error
	require.Len(t, st.Errors, 3)
	perDoc := 0
	for _, e := range st.Errors {
		assert.Equal(t, common.CodeDocumentExtraction, e.Code)
		if e.Document != "" {
			perDoc++
		}
	}
	assert.Equal(t, 2, perDoc)
}

func TestRunPlanFailureFallsBackToDeterministicPlan(t *testing.T) {
	stub := workingStub(t)
	stub.planTables = func(ctx context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error) {
		return nil, errors.New("plan did not validate")
	}
	o := NewOrchestrator(stub, quiet())

	st, err := o.Run(context.Background(), "s1", makeDocs("a.txt"))
	require.NoError(t, err, "an unusable plan degrades, it does not fail the session")
	assert.Equal(t, constants.StatusTablesReady, st.Status)
	assert.Equal(t, OutcomePartial, st.Outcome())
	require.NotNil(t, st.Plan)
	require.NotEmpty(t, st.Tables)

	require.Len(t, st.Errors, 1)
	assert.Equal(t, stageTables, st.Errors[0].Stage)
	assert.Equal(t, common.CodeTablePlanning, st.Errors[0].Code)
}

func TestRunUnplannedFieldsAreRecordedNotDropped(t *testing.T) {
	stub := workingStub(t)
	stub.planTables = func(ctx context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error) {
		// a plan that silently forgets core.total
		return &tables.Plan{Tables: []tables.Spec{{
			Name:    "vendors",
			Columns: []tables.Column{{Name: "vendor", FieldPath: "core.vendor"}},
		}}}, nil
	}
	o := NewOrchestrator(stub, quiet())

	st, err := o.Run(context.Background(), "s1", makeDocs("a.txt"))
	require.NoError(t, err)
	assert.Equal(t, constants.StatusTablesReady, st.Status)

	last := st.Tables[len(st.Tables)-1]
	assert.Equal(t, constants.CatchAllTableName, last.Name)

	require.Len(t, st.Errors, 1)
	assert.Equal(t, stageTables, st.Errors[0].Stage)
	assert.Contains(t, st.Errors[0].Message, "core.total")
}

func TestRunCancellationStopsFeedingWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{}, 16)
	stub := workingStub(t)
	stub.extractRecord = func(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
		started <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return recordFor(t, s, doc), nil
		}
	}
	o := NewOrchestrator(stub, quiet(), WithExtractConcurrency(1))

	go func() {
		<-started
		cancel()
	}()

	docs := makeDocs("a.txt", "b.txt", "c.txt", "d.txt")
	st, err := o.Run(ctx, "s1", docs)

	require.Error(t, err)
	assert.Equal(t, constants.StatusFailed, st.Status)
	assert.Equal(t, OutcomeFailed, st.Outcome())
	assert.True(t, strings.Contains(err.Error(), common.ErrCancelled.Error()))
	assert.Empty(t, st.Records, "cancelled extractions produce no partial records")
	assert.NotNil(t, st.Schema, "state reached before cancellation is preserved")
}

func TestStateSerializationOmitsDocumentContent(t *testing.T) {
	o := NewOrchestrator(workingStub(t), quiet())
	st, err := o.Run(context.Background(), "s1", makeDocs("a.txt"))
	require.NoError(t, err)

	b, err := json.Marshal(st)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "content of a.txt")
	assert.Contains(t, string(b), `"status":"TABLES_READY"`)
}

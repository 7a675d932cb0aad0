package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/llm"
	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/schema"
	"github.com/joseph-ayodele/docstruct/internal/tables"
)

// Client implements llm.Capability against an OpenAI-compatible
// chat/completions endpoint.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		log:   logger,
	}
}

// InferSchema analyzes the whole batch jointly and returns the unified schema.
func (c *Client) InferSchema(ctx context.Context, docs []document.Document) (*schema.Schema, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.infer_schema.start", "req_id", rid, "model", c.cfg.Model, "documents", len(docs))

	content, err := c.chat(ctx,
		[]map[string]any{
			{"role": "system", "content": llm.BuildSchemaSystemPrompt()},
			{"role": "user", "content": llm.BuildBatchParts(docs)},
		})
	if err != nil {
		c.log.Error("llm.infer_schema.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	payload, err := llm.ExtractJSONBlock(content)
	if err != nil {
		return nil, fmt.Errorf("schema output: %w", err)
	}
	s, err := schema.Decode(payload)
	if err != nil {
		return nil, err
	}
	c.log.Info("llm.infer_schema.done", "req_id", rid,
		"sections", len(s.Sections), "paths", len(s.LeafPaths()),
		"elapsed_ms", time.Since(start).Milliseconds())
	return s, nil
}

// ExtractRecord maps one document onto the schema. The model output is
// validated against a JSON-Schema derived from the field schema before
// decoding; malformed output is reported as an extraction failure.
func (c *Client) ExtractRecord(ctx context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.extract_record.start", "req_id", rid, "model", c.cfg.Model,
		"document", doc.Name, "kind", doc.Kind)

	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	userParts := append(
		[]map[string]any{llm.TextPart(llm.BuildMappingUserPrompt(string(schemaJSON)))},
		llm.BuildDocumentParts(doc)...,
	)
	content, err := c.chat(ctx,
		[]map[string]any{
			{"role": "system", "content": llm.BuildMappingSystemPrompt()},
			{"role": "user", "content": userParts},
		})
	if err != nil {
		c.log.Error("llm.extract_record.failed", "req_id", rid, "document", doc.Name,
			"error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	payload, err := llm.ExtractJSONBlock(content)
	if err != nil {
		return nil, fmt.Errorf("record output: %w", err)
	}
	if err := schema.ValidateJSONAgainstSchema(schema.BuildRecordJSONSchema(s), payload); err != nil {
		// shape drift is common; the decoder fills gaps with explicit
		// not-found markers, so log and continue rather than discard
		c.log.Warn("llm.extract_record.loose_shape", "req_id", rid, "document", doc.Name, "error", err)
	}
	rec, err := record.Decode(s, doc.ID, doc.Name, 0, payload)
	if err != nil {
		return nil, err
	}
	if err := rec.Conforms(s); err != nil {
		return nil, fmt.Errorf("extractor output rejected: %w", err)
	}
	c.log.Info("llm.extract_record.done", "req_id", rid, "document", doc.Name,
		"elapsed_ms", time.Since(start).Milliseconds())
	return rec, nil
}

// PlanTables asks the model for a relational decomposition of the records.
func (c *Client) PlanTables(ctx context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.plan_tables.start", "req_id", rid, "model", c.cfg.Model, "records", len(recs))

	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	inventoryJSON, err := json.Marshal(inventory(s, recs))
	if err != nil {
		return nil, fmt.Errorf("marshal inventory: %w", err)
	}

	content, err := c.chat(ctx,
		[]map[string]any{
			{"role": "system", "content": llm.BuildPlanningSystemPrompt()},
			{"role": "user", "content": llm.BuildPlanningUserPrompt(string(schemaJSON), string(inventoryJSON))},
		})
	if err != nil {
		c.log.Error("llm.plan_tables.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	payload, err := llm.ExtractJSONBlock(content)
	if err != nil {
		return nil, fmt.Errorf("plan output: %w", err)
	}
	plan, err := tables.DecodePlan(payload)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(s); err != nil {
		return nil, fmt.Errorf("plan rejected: %w", err)
	}
	c.log.Info("llm.plan_tables.done", "req_id", rid, "tables", len(plan.Tables),
		"elapsed_ms", time.Since(start).Milliseconds())
	return plan, nil
}

// inventory summarizes records for the planning prompt: per document, each
// leaf path with its exportable value and list lengths. This keeps the
// prompt compact while exposing co-occurrence structure.
func inventory(s *schema.Schema, recs []*record.Record) []map[string]any {
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		fields := map[string]any{}
		for _, path := range s.LeafPaths() {
			n := rec.ValueAt(path)
			if n == nil {
				continue
			}
			switch n.Kind {
			case record.KindScalar:
				if n.Value != nil && !n.Value.IsNotFound() {
					fields[path] = n.Value.Export()
				}
			case record.KindList:
				fields[path] = map[string]any{"elements": len(n.Items)}
			}
		}
		out = append(out, map[string]any{
			"document": rec.DocumentName,
			"fields":   fields,
		})
	}
	return out
}

// chat performs one chat/completions round-trip and returns the first
// choice's content.
func (c *Client) chat(ctx context.Context, messages []map[string]any) (string, error) {
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.httpc, endpoint, body, headers, c.log)
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

package tables

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docstruct/internal/schema"
)

// Column maps one table column to a schema field path. For child tables the
// path is relative to the owning list element.
type Column struct {
	Name      string `json:"name"`
	FieldPath string `json:"field_path"`
}

// Spec describes one planned table. Source is empty for tables with one row
// per document, or the dotted path of a list field for one-row-per-element
// child tables; child tables carry a LinkColumn back to the parent row.
type Spec struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source,omitempty"`
	LinkColumn  string   `json:"link_column,omitempty"`
	Columns     []Column `json:"columns"`
}

// DroppedField marks a field deliberately excluded from every table. Fields
// may only be dropped with a reason; anything else unplanned is routed to
// the catch-all table instead.
type DroppedField struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Plan is the ordered relational decomposition of a session's records.
type Plan struct {
	Tables  []Spec         `json:"tables"`
	Dropped []DroppedField `json:"dropped,omitempty"`
}

// DecodePlan parses a plan from capability JSON output.
func DecodePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode table plan: %w", err)
	}
	return &p, nil
}

// Validate checks p against s: table names and columns present, list sources
// resolving to list fields, column paths resolving to declared fields.
func (p *Plan) Validate(s *schema.Schema) error {
	if len(p.Tables) == 0 {
		return fmt.Errorf("plan has no tables")
	}
	names := map[string]struct{}{}
	for _, t := range p.Tables {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("plan table with empty name")
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("duplicate plan table %q", t.Name)
		}
		names[t.Name] = struct{}{}
		if len(t.Columns) == 0 {
			return fmt.Errorf("plan table %q has no columns", t.Name)
		}
		if t.Source != "" {
			f := s.FieldAt(t.Source)
			if f == nil || f.Type != schema.TypeList {
				return fmt.Errorf("plan table %q: source %q is not a list field", t.Name, t.Source)
			}
			rel := map[string]struct{}{}
			for _, ep := range s.ElementPaths(t.Source) {
				rel[ep] = struct{}{}
			}
			for _, c := range t.Columns {
				if _, ok := rel[c.FieldPath]; !ok {
					return fmt.Errorf("plan table %q: column %q does not resolve inside %q", t.Name, c.FieldPath, t.Source)
				}
			}
			continue
		}
		for _, c := range t.Columns {
			if s.FieldAt(c.FieldPath) == nil {
				return fmt.Errorf("plan table %q: unknown field path %q", t.Name, c.FieldPath)
			}
		}
	}
	for _, d := range p.Dropped {
		if strings.TrimSpace(d.Path) == "" {
			return fmt.Errorf("dropped field with empty path")
		}
		if strings.TrimSpace(d.Reason) == "" {
			return fmt.Errorf("dropped field %q has no reason", d.Path)
		}
	}
	return nil
}

// coveredPaths returns the set of absolute paths the plan maps to at least
// one column. Child tables cover only the element fields their columns name,
// as source.relative paths, so a partial child table leaves the remaining
// element fields uncovered.
func (p *Plan) coveredPaths() map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range p.Tables {
		for _, c := range t.Columns {
			if t.Source != "" {
				out[t.Source+"."+c.FieldPath] = struct{}{}
				continue
			}
			out[c.FieldPath] = struct{}{}
		}
	}
	for _, d := range p.Dropped {
		out[d.Path] = struct{}{}
	}
	return out
}

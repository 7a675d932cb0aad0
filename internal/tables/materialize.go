package tables

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/schema"
)

// Table is the materialized output for one plan entry: a header row of
// column names and one row per matching record or sub-record. Missing values
// are emitted as the empty string, never as an absent column.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Synthesize turns records into tables following plan. A nil or invalid plan
// (the caller decides validity) may be replaced with Fallback beforehand;
// here plan is taken as-is. Fields used by at least one record but mapped
// nowhere are routed into a catch-all table; the returned slice of paths
// identifies them so the caller can record a non-fatal planning error.
func Synthesize(s *schema.Schema, recs []*record.Record, plan *Plan) ([]Table, []string) {
	var out []Table
	for _, spec := range plan.Tables {
		if spec.Source != "" {
			out = append(out, materializeChild(spec, recs))
			continue
		}
		out = append(out, materializeDocs(spec, recs))
	}

	unplanned := unplannedPaths(s, recs, plan)
	if len(unplanned) > 0 {
		out = append(out, catchAll(s, unplanned, recs))
	}
	if len(out) == 0 {
		// no usable plan and nothing extracted: still emit the catch-all
		// shape so callers always receive at least one table
		out = append(out, Table{
			Name:    constants.CatchAllTableName,
			Columns: []string{"document_id", "field_path", "value"},
		})
	}
	return out, unplanned
}

// materializeDocs emits one row per document, in ingestion order. A leading
// document_id column identifies the row for child-table links, and
// source_file keeps rows traceable to their input.
func materializeDocs(spec Spec, recs []*record.Record) Table {
	t := Table{Name: spec.Name, Columns: []string{"document_id", "source_file"}}
	for _, c := range spec.Columns {
		t.Columns = append(t.Columns, c.Name)
	}
	for _, rec := range recs {
		row := []string{rec.DocumentID.String(), rec.DocumentName}
		for _, c := range spec.Columns {
			row = append(row, cell(rec.ValueAt(c.FieldPath)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// materializeChild emits one row per element of the source list across all
// records: document order first, then intra-document element order.
func materializeChild(spec Spec, recs []*record.Record) Table {
	link := spec.LinkColumn
	if link == "" {
		link = "document_id"
	}
	t := Table{Name: spec.Name, Columns: []string{link}}
	for _, c := range spec.Columns {
		t.Columns = append(t.Columns, c.Name)
	}
	for _, rec := range recs {
		list := rec.ValueAt(spec.Source)
		if list == nil || list.Kind != record.KindList {
			continue
		}
		for _, item := range list.Items {
			row := []string{rec.DocumentID.String()}
			for _, c := range spec.Columns {
				row = append(row, cell(lookupIn(item, c.FieldPath)))
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// catchAll routes unplanned fields into a long-format table so no extracted
// value is silently lost.
func catchAll(s *schema.Schema, paths []string, recs []*record.Record) Table {
	t := Table{
		Name:    constants.CatchAllTableName,
		Columns: []string{"document_id", "field_path", "value"},
	}
	for _, rec := range recs {
		for _, p := range paths {
			n := rec.ValueAt(p)
			if n == nil {
				// an element field of a list, named source.relative
				if lp, rel, ok := splitListPath(s, p); ok {
					emitElementRows(&t, rec, lp, []string{rel})
				}
				continue
			}
			switch n.Kind {
			case record.KindScalar:
				if n.Value != nil && !n.Value.IsNotFound() {
					t.Rows = append(t.Rows, []string{rec.DocumentID.String(), p, cell(n)})
				}
			case record.KindList:
				emitElementRows(&t, rec, p, s.ElementPaths(p))
			}
		}
	}
	return t
}

// emitElementRows appends one long-format row per populated element field of
// the record's list at lp, restricted to the given relative paths.
func emitElementRows(t *Table, rec *record.Record, lp string, rels []string) {
	list := rec.ValueAt(lp)
	if list == nil || list.Kind != record.KindList {
		return
	}
	for i, item := range list.Items {
		for _, rel := range rels {
			child := lookupIn(item, rel)
			if child != nil && child.Kind == record.KindScalar && child.Value != nil && !child.Value.IsNotFound() {
				idx := lp + "[" + strconv.Itoa(i) + "]." + rel
				t.Rows = append(t.Rows, []string{rec.DocumentID.String(), idx, cell(child)})
			}
		}
	}
}

// splitListPath splits an element path into its owning list path and the
// relative element path, when the prefix resolves to a declared list field.
func splitListPath(s *schema.Schema, p string) (string, string, bool) {
	for i := strings.LastIndex(p, "."); i > 0; i = strings.LastIndex(p[:i], ".") {
		if f := s.FieldAt(p[:i]); f != nil && f.Type == schema.TypeList {
			return p[:i], p[i+1:], true
		}
	}
	return "", "", false
}

// unplannedPaths lists paths carrying data in at least one record that the
// plan maps to no table and does not explicitly drop. For list fields the
// element fields are checked individually: a child table covering only some
// of them leaves the rest unplanned. A list with no covered element fields at
// all is reported once, by its own path.
func unplannedPaths(s *schema.Schema, recs []*record.Record, plan *Plan) []string {
	covered := plan.coveredPaths()
	var out []string
	for _, path := range s.LeafPaths() {
		if _, ok := covered[path]; ok {
			continue
		}
		if !pathUsed(path, recs) {
			continue
		}
		f := s.FieldAt(path)
		if f == nil || f.Type != schema.TypeList {
			out = append(out, path)
			continue
		}
		var missing []string
		rels := s.ElementPaths(path)
		for _, rel := range rels {
			if _, ok := covered[path+"."+rel]; !ok {
				missing = append(missing, path+"."+rel)
			}
		}
		if len(missing) == len(rels) {
			out = append(out, path)
			continue
		}
		out = append(out, missing...)
	}
	return out
}

func pathUsed(path string, recs []*record.Record) bool {
	for _, rec := range recs {
		n := rec.ValueAt(path)
		if n == nil {
			continue
		}
		switch n.Kind {
		case record.KindScalar:
			if n.Value != nil && !n.Value.IsNotFound() {
				return true
			}
		case record.KindList:
			if len(n.Items) > 0 {
				return true
			}
		}
	}
	return false
}

func lookupIn(item *record.Node, rel string) *record.Node {
	n := item
	for _, part := range splitPath(rel) {
		if n == nil || n.Kind != record.KindGroup {
			return nil
		}
		n = n.Children[part]
	}
	return n
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '.' {
			parts = append(parts, p[start:i])
			start = i + 1
		}
	}
	return append(parts, p[start:])
}

// cell renders one table cell: normalized value when present, else the raw
// extracted text; not-found and absent values render as the empty marker.
func cell(n *record.Node) string {
	if n == nil || n.Kind != record.KindScalar || n.Value == nil {
		return ""
	}
	switch v := n.Value.Export().(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return n.Value.Raw
	}
}

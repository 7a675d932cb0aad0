package tables

import (
	"strings"

	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/schema"
)

// Fallback builds a deterministic plan when the capability's plan is missing
// or unusable. Scalar fields land in a primary one-row-per-document table,
// every list field becomes a child table linked by document_id, and sections
// whose fields appear in few of the documents carrying the rest of the data
// are split into their own tables to avoid null-heavy sparse rows.
func Fallback(s *schema.Schema, recs []*record.Record) *Plan {
	var listPaths []string
	scalarBySection := map[string][]string{}
	var sectionOrder []string
	for _, path := range s.LeafPaths() {
		f := s.FieldAt(path)
		if f != nil && f.Type == schema.TypeList {
			listPaths = append(listPaths, path)
			continue
		}
		sec := path[:strings.Index(path, ".")]
		if _, seen := scalarBySection[sec]; !seen {
			sectionOrder = append(sectionOrder, sec)
		}
		scalarBySection[sec] = append(scalarBySection[sec], path)
	}

	sparse := sparseSections(scalarBySection, recs)

	plan := &Plan{}
	primary := Spec{
		Name:        "documents",
		Description: "one row per source document",
	}
	for _, sec := range sectionOrder {
		if sparse[sec] {
			continue
		}
		for _, path := range scalarBySection[sec] {
			primary.Columns = append(primary.Columns, Column{Name: columnName(path), FieldPath: path})
		}
	}
	if len(primary.Columns) > 0 {
		plan.Tables = append(plan.Tables, primary)
	}

	for _, sec := range sectionOrder {
		if !sparse[sec] {
			continue
		}
		t := Spec{
			Name:        sec,
			Description: "fields present in only part of the batch",
		}
		for _, path := range scalarBySection[sec] {
			t.Columns = append(t.Columns, Column{Name: columnName(path), FieldPath: path})
		}
		plan.Tables = append(plan.Tables, t)
	}

	for _, lp := range listPaths {
		t := Spec{
			Name:        columnName(lp),
			Description: "one row per repeated element of " + lp,
			Source:      lp,
			LinkColumn:  "document_id",
		}
		for _, rel := range s.ElementPaths(lp) {
			t.Columns = append(t.Columns, Column{Name: columnName(rel), FieldPath: rel})
		}
		plan.Tables = append(plan.Tables, t)
	}
	return plan
}

// sparseSections marks sections whose fields co-occur with the rest of the
// batch poorly: present in fewer than half of the documents that have any
// data at all. Keeping them out of the primary table keeps it dense.
func sparseSections(scalarBySection map[string][]string, recs []*record.Record) map[string]bool {
	populated := 0
	present := map[string]int{}
	for _, rec := range recs {
		any := false
		for sec, paths := range scalarBySection {
			found := false
			for _, p := range paths {
				if n := rec.ValueAt(p); n != nil && n.Kind == record.KindScalar && n.Value != nil && !n.Value.IsNotFound() {
					found = true
					break
				}
			}
			if found {
				present[sec]++
				any = true
			}
		}
		if any {
			populated++
		}
	}

	out := map[string]bool{}
	if populated == 0 {
		return out
	}
	for sec, paths := range scalarBySection {
		if len(paths) >= 2 && present[sec]*2 < populated {
			out[sec] = true
		}
	}
	return out
}

func columnName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType is the declared value type of a schema field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
	TypeEnum   FieldType = "enum"
	TypeList   FieldType = "list"
	TypeGroup  FieldType = "group"
)

// Field describes one extractable field. Group and list fields carry the
// shape of their children in Fields; for a list that shape applies to every
// element.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Synonyms    []string  `json:"synonyms,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Format      string    `json:"format,omitempty"`
	Fields      []Field   `json:"fields,omitempty"`
}

// Section is a named grouping of related fields, e.g. "core" or "financial".
type Section struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Schema is the unified field schema inferred once per session. It is
// immutable after inference; every later stage reads it concurrently.
type Schema struct {
	Title       string    `json:"title"`
	Version     string    `json:"version,omitempty"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections"`
}

// Decode parses a schema from capability JSON output.
func Decode(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks structural invariants: at least one field overall, unique
// dotted paths, enum fields with values, list/group fields with children.
func (s *Schema) Validate() error {
	if len(s.Sections) == 0 {
		return fmt.Errorf("schema has no sections")
	}
	seen := map[string]struct{}{}
	total := 0
	for _, sec := range s.Sections {
		if strings.TrimSpace(sec.Name) == "" {
			return fmt.Errorf("schema section with empty name")
		}
		for _, f := range sec.Fields {
			total++
			if err := validateField(sec.Name, f, seen); err != nil {
				return err
			}
		}
	}
	if total == 0 {
		return fmt.Errorf("schema has no fields")
	}
	return nil
}

func validateField(prefix string, f Field, seen map[string]struct{}) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("field with empty name under %q", prefix)
	}
	path := prefix + "." + f.Name
	if _, dup := seen[path]; dup {
		return fmt.Errorf("duplicate field path %q", path)
	}
	seen[path] = struct{}{}

	switch f.Type {
	case TypeString, TypeNumber, TypeDate:
	case TypeEnum:
		if len(f.Enum) == 0 {
			return fmt.Errorf("enum field %q has no values", path)
		}
	case TypeList, TypeGroup:
		if len(f.Fields) == 0 {
			return fmt.Errorf("%s field %q has no child fields", f.Type, path)
		}
		for _, c := range f.Fields {
			if err := validateField(path, c, seen); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("field %q has unknown type %q", path, f.Type)
	}
	return nil
}

// LeafPaths returns the dotted paths of every leaf field in declaration
// order. List fields contribute their own path (the list as a whole); paths
// inside list elements are reported by ElementPaths.
func (s *Schema) LeafPaths() []string {
	var out []string
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			out = append(out, fieldPaths(sec.Name, f)...)
		}
	}
	return out
}

func fieldPaths(prefix string, f Field) []string {
	path := prefix + "." + f.Name
	switch f.Type {
	case TypeGroup:
		var out []string
		for _, c := range f.Fields {
			out = append(out, fieldPaths(path, c)...)
		}
		return out
	default:
		// scalars and lists are both addressable leaves of the document tree
		return []string{path}
	}
}

// ElementPaths returns the relative dotted paths of the leaves of one list
// element for the list field at path, or nil if path is not a list field.
func (s *Schema) ElementPaths(path string) []string {
	f := s.FieldAt(path)
	if f == nil || f.Type != TypeList {
		return nil
	}
	var out []string
	for _, c := range f.Fields {
		for _, p := range fieldPaths("", c) {
			out = append(out, strings.TrimPrefix(p, "."))
		}
	}
	return out
}

// FieldAt resolves a dotted path to its field descriptor, or nil.
func (s *Schema) FieldAt(path string) *Field {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return nil
	}
	for _, sec := range s.Sections {
		if sec.Name != parts[0] {
			continue
		}
		return fieldAt(sec.Fields, parts[1:])
	}
	return nil
}

func fieldAt(fields []Field, parts []string) *Field {
	for i := range fields {
		f := &fields[i]
		if f.Name != parts[0] {
			continue
		}
		if len(parts) == 1 {
			return f
		}
		return fieldAt(f.Fields, parts[1:])
	}
	return nil
}

package record

import (
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docstruct/internal/schema"
)

// NodeKind tags the variant of a Node.
type NodeKind int

const (
	KindScalar NodeKind = iota
	KindList
	KindGroup
)

// Node is one position in a structured record: a tagged variant over
// confidence-tagged values so traversal is exhaustive instead of relying on
// untyped nested maps.
type Node struct {
	Kind     NodeKind         `json:"kind"`
	Value    *Value           `json:"value,omitempty"`    // KindScalar
	Items    []*Node          `json:"items,omitempty"`    // KindList; each item is a KindGroup
	Children map[string]*Node `json:"children,omitempty"` // KindGroup
}

// Record is one document's extracted data shaped to the field schema.
// Immutable once produced; owned by its session.
type Record struct {
	DocumentID   uuid.UUID        `json:"document_id"`
	DocumentName string           `json:"document"`
	Index        int              `json:"index"` // ingestion order of the source document
	Sections     map[string]*Node `json:"sections"`
}

// ValueAt resolves a dotted path ("section.field" or deeper) to its scalar
// or list node, or nil.
func (r *Record) ValueAt(path string) *Node {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return nil
	}
	node, ok := r.Sections[parts[0]]
	if !ok {
		return nil
	}
	for _, p := range parts[1:] {
		if node == nil || node.Kind != KindGroup {
			return nil
		}
		node = node.Children[p]
	}
	return node
}

// Conforms checks that every leaf path declared by s is present in r, that
// every list element covers the list's element paths, and that every scalar
// carries a raw value with confidence in [0,1].
func (r *Record) Conforms(s *schema.Schema) error {
	for _, path := range s.LeafPaths() {
		node := r.ValueAt(path)
		if node == nil {
			return &ConformanceError{Path: path, Reason: "missing"}
		}
		f := s.FieldAt(path)
		if f != nil && f.Type == schema.TypeList {
			if node.Kind != KindList {
				return &ConformanceError{Path: path, Reason: "expected list"}
			}
			for _, item := range node.Items {
				for _, rel := range s.ElementPaths(path) {
					if lookupRelative(item, rel) == nil {
						return &ConformanceError{Path: path + "[]." + rel, Reason: "missing"}
					}
				}
			}
			continue
		}
		if node.Kind != KindScalar || node.Value == nil {
			return &ConformanceError{Path: path, Reason: "expected scalar"}
		}
		if node.Value.Raw == "" {
			return &ConformanceError{Path: path, Reason: "empty raw value"}
		}
		if node.Value.Confidence < 0 || node.Value.Confidence > 1 {
			return &ConformanceError{Path: path, Reason: "confidence out of range"}
		}
	}
	return nil
}

func lookupRelative(n *Node, rel string) *Node {
	for _, p := range strings.Split(rel, ".") {
		if n == nil || n.Kind != KindGroup {
			return nil
		}
		n = n.Children[p]
	}
	return n
}

// ConformanceError reports a record that does not match its schema.
type ConformanceError struct {
	Path   string
	Reason string
}

func (e *ConformanceError) Error() string {
	return "record does not conform at " + e.Path + ": " + e.Reason
}

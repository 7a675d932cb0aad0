package record

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docstruct/internal/schema"
)

// Decode builds a Record from capability JSON output, shaped strictly to s.
// Fields the output omits or nulls out become explicit not-found markers;
// confidence is clamped into [0,1]; normalized values are re-derived locally
// when the capability did not supply one.
func Decode(s *schema.Schema, docID uuid.UUID, docName string, index int, data []byte) (*Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode record json: %w", err)
	}

	rec := &Record{
		DocumentID:   docID,
		DocumentName: docName,
		Index:        index,
		Sections:     make(map[string]*Node, len(s.Sections)),
	}
	for _, sec := range s.Sections {
		src, _ := raw[sec.Name].(map[string]any)
		rec.Sections[sec.Name] = decodeGroup(sec.Fields, src)
	}
	return rec, nil
}

func decodeGroup(fields []schema.Field, src map[string]any) *Node {
	g := &Node{Kind: KindGroup, Children: make(map[string]*Node, len(fields))}
	for _, f := range fields {
		var v any
		if src != nil {
			v = src[f.Name]
		}
		g.Children[f.Name] = decodeField(f, v)
	}
	return g
}

func decodeField(f schema.Field, v any) *Node {
	switch f.Type {
	case schema.TypeGroup:
		m, _ := v.(map[string]any)
		return decodeGroup(f.Fields, m)
	case schema.TypeList:
		items, _ := v.([]any)
		n := &Node{Kind: KindList}
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			n.Items = append(n.Items, decodeGroup(f.Fields, m))
		}
		return n
	default:
		return &Node{Kind: KindScalar, Value: decodeValue(f, v)}
	}
}

func decodeValue(f schema.Field, v any) *Value {
	m, ok := v.(map[string]any)
	if !ok {
		return NotFound("field absent from extractor output")
	}

	raw := stringify(m["value"])
	if raw == "" {
		reason, _ := m["reason"].(string)
		return NotFound(reason)
	}

	val := &Value{Raw: raw}
	if r, ok := m["reason"].(string); ok {
		val.Reason = r
	}
	if c, ok := m["confidence"].(float64); ok {
		val.Confidence = ClampConfidence(float32(c))
	}
	if nv, present := m["normalized_value"]; present && nv != nil {
		val.Normalized = nv
	} else {
		val.Normalized = Normalize(f, raw)
	}
	return val
}

// stringify renders the raw extracted value as text. The raw form is always
// the literal text seen in the document, so non-string JSON values are
// formatted back to text rather than rejected.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

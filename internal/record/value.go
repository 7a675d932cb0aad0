package record

import (
	"github.com/joseph-ayodele/docstruct/constants"
)

// Value is the atomic extraction result attached to every leaf field: the
// literal extracted text, an optional type-coerced form, a short
// justification tied to the evidence, and the extractor's own confidence.
type Value struct {
	Raw        string  `json:"value"`
	Normalized any     `json:"normalized_value,omitempty"`
	Reason     string  `json:"reason"`
	Confidence float32 `json:"confidence"`
}

// NotFound returns the explicit marker value used when a schema field has no
// supporting evidence. Fields are marked, never omitted.
func NotFound(reason string) *Value {
	if reason == "" {
		reason = "no supporting evidence found in document"
	}
	return &Value{Raw: constants.NotFoundMarker, Reason: reason, Confidence: 0}
}

// IsNotFound reports whether v carries the explicit not-found marker.
func (v *Value) IsNotFound() bool {
	return v.Raw == constants.NotFoundMarker
}

// Export returns the value to place in a table cell: the normalized form
// when present, else the raw text. Not-found values export as empty.
func (v *Value) Export() any {
	if v.IsNotFound() {
		return nil
	}
	if v.Normalized != nil {
		return v.Normalized
	}
	return v.Raw
}

// ClampConfidence forces c into [0,1].
func ClampConfidence(c float32) float32 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

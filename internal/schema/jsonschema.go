package schema

// BuildRecordJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the structured-record shape for s. We pass this to
// the capability as a structured output constraint and also use it locally
// to validate what comes back before decoding.
func BuildRecordJSONSchema(s *Schema) map[string]any {
	sections := map[string]any{}
	var required []string
	for _, sec := range s.Sections {
		sections[sec.Name] = fieldsObject(sec.Fields)
		required = append(required, sec.Name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           sections,
		"required":             required,
	}
}

func fieldsObject(fields []Field) map[string]any {
	props := map[string]any{}
	var required []string
	for _, f := range fields {
		props[f.Name] = fieldProp(f)
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func fieldProp(f Field) map[string]any {
	switch f.Type {
	case TypeGroup:
		return fieldsObject(f.Fields)
	case TypeList:
		return map[string]any{
			"type":  "array",
			"items": fieldsObject(f.Fields),
		}
	default:
		return taggedValueProp()
	}
}

// taggedValueProp is the schema of one confidence-tagged leaf. The raw value
// may be any JSON scalar or null; confidence is the extractor's own
// self-assessment in [0,1].
func taggedValueProp() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"value":            map[string]any{},
			"normalized_value": map[string]any{},
			"reason":           map[string]any{"type": "string"},
			"confidence":       map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"value", "reason"},
	}
}

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceSchema() *Schema {
	return &Schema{
		Title: "invoice batch",
		Sections: []Section{
			{
				Name: "core",
				Fields: []Field{
					{Name: "vendor_name", Type: TypeString, Synonyms: []string{"supplier", "seller"}},
					{Name: "total", Type: TypeNumber, Format: "currency"},
					{Name: "issue_date", Type: TypeDate},
					{Name: "address", Type: TypeGroup, Fields: []Field{
						{Name: "city", Type: TypeString},
						{Name: "country", Type: TypeString},
					}},
				},
			},
			{
				Name: "items",
				Fields: []Field{
					{Name: "line_items", Type: TypeList, Fields: []Field{
						{Name: "description", Type: TypeString},
						{Name: "amount", Type: TypeNumber},
					}},
				},
			},
		},
	}
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	require.NoError(t, invoiceSchema().Validate())
}

func TestValidateRejectsEmptySchema(t *testing.T) {
	s := &Schema{Title: "empty"}
	require.Error(t, s.Validate())
}

func TestValidateRejectsDuplicatePaths(t *testing.T) {
	s := &Schema{
		Sections: []Section{{
			Name: "core",
			Fields: []Field{
				{Name: "total", Type: TypeNumber},
				{Name: "total", Type: TypeString},
			},
		}},
	}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field path")
}

func TestValidateRejectsEnumWithoutValues(t *testing.T) {
	s := &Schema{
		Sections: []Section{{
			Name:   "core",
			Fields: []Field{{Name: "currency", Type: TypeEnum}},
		}},
	}
	require.Error(t, s.Validate())
}

func TestLeafPathsFlattenGroupsKeepLists(t *testing.T) {
	paths := invoiceSchema().LeafPaths()
	assert.Equal(t, []string{
		"core.vendor_name",
		"core.total",
		"core.issue_date",
		"core.address.city",
		"core.address.country",
		"items.line_items",
	}, paths)
}

func TestElementPaths(t *testing.T) {
	s := invoiceSchema()
	assert.Equal(t, []string{"description", "amount"}, s.ElementPaths("items.line_items"))
	assert.Nil(t, s.ElementPaths("core.total"))
	assert.Nil(t, s.ElementPaths("nope"))
}

func TestFieldAtResolvesNestedPaths(t *testing.T) {
	s := invoiceSchema()

	f := s.FieldAt("core.address.city")
	require.NotNil(t, f)
	assert.Equal(t, TypeString, f.Type)

	assert.Nil(t, s.FieldAt("core.missing"))
	assert.Nil(t, s.FieldAt("core"))
}

func TestDecodeValidatesStructure(t *testing.T) {
	_, err := Decode([]byte(`{"title":"x","sections":[]}`))
	require.Error(t, err)

	s, err := Decode([]byte(`{
		"title": "receipts",
		"sections": [
			{"name": "core", "fields": [
				{"name": "merchant", "type": "string", "synonyms": ["store","shop"]},
				{"name": "total", "type": "number"}
			]}
		]
	}`))
	require.NoError(t, err)
	assert.Len(t, s.LeafPaths(), 2)
	assert.Equal(t, []string{"store", "shop"}, s.FieldAt("core.merchant").Synonyms)
}

func TestRecordJSONSchemaValidation(t *testing.T) {
	s := invoiceSchema()
	js := BuildRecordJSONSchema(s)

	good := []byte(`{
		"core": {
			"vendor_name": {"value": "ACME", "reason": "header", "confidence": 0.95},
			"total": {"value": "12.50", "normalized_value": 12.5, "reason": "footer total", "confidence": 0.9},
			"issue_date": {"value": "2025-01-05", "reason": "top right", "confidence": 0.8},
			"address": {
				"city": {"value": "Lagos", "reason": "address block"},
				"country": {"value": "NG", "reason": "address block"}
			}
		},
		"items": {
			"line_items": [
				{"description": {"value": "Widget", "reason": "row 1"}, "amount": {"value": "5.00", "reason": "row 1"}}
			]
		}
	}`)
	require.NoError(t, ValidateJSONAgainstSchema(js, good))

	badConfidence := []byte(`{
		"core": {
			"vendor_name": {"value": "ACME", "reason": "header", "confidence": 1.5},
			"total": {"value": "1", "reason": "r"},
			"issue_date": {"value": "1", "reason": "r"},
			"address": {"city": {"value": "x", "reason": "r"}, "country": {"value": "x", "reason": "r"}}
		},
		"items": {"line_items": []}
	}`)
	require.Error(t, ValidateJSONAgainstSchema(js, badConfidence))
}

package record

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/docstruct/internal/schema"
)

func TestNormalizeDate(t *testing.T) {
	f := schema.Field{Name: "d", Type: schema.TypeDate}

	assert.Equal(t, "2025-03-07", Normalize(f, "2025-03-07"))
	assert.Equal(t, "2025-03-07", Normalize(f, "03/07/2025"))
	assert.Equal(t, "2025-03-07", Normalize(f, "Mar 7, 2025"))
	assert.Equal(t, "2025-03-07", Normalize(f, "7 March 2025"))
	assert.Nil(t, Normalize(f, "not a date"))
}

func TestNormalizeNumber(t *testing.T) {
	f := schema.Field{Name: "n", Type: schema.TypeNumber}

	assert.Equal(t, 1234.56, Normalize(f, "$1,234.56"))
	assert.Equal(t, 1234.56, Normalize(f, "1.234,56"))
	assert.Equal(t, 12345678.9, Normalize(f, "12.345.678,90"))
	assert.Equal(t, 1234567.0, Normalize(f, "1,234,567"))
	assert.Equal(t, 99.9, Normalize(f, "99,9"))
	assert.Equal(t, -42.0, Normalize(f, "-42"))
	assert.Equal(t, 99.9, Normalize(f, "99.9 EUR"))
	assert.Nil(t, Normalize(f, "n/a"))
}

func TestNormalizeEnumMatchesCaseInsensitively(t *testing.T) {
	f := schema.Field{Name: "cur", Type: schema.TypeEnum, Enum: []string{"USD", "EUR"}}

	assert.Equal(t, "USD", Normalize(f, "usd"))
	assert.Equal(t, "EUR", Normalize(f, "Eur"))
	assert.Nil(t, Normalize(f, "GBP"))
}

func TestNormalizeString(t *testing.T) {
	assert.Equal(t, "hello", Normalize(schema.Field{Type: schema.TypeString}, "  hello  "))
	assert.Equal(t, "a@b.com",
		Normalize(schema.Field{Type: schema.TypeString, Format: "email"}, "A@B.Com"))
	assert.Nil(t, Normalize(schema.Field{Type: schema.TypeString}, "   "))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, float32(0), ClampConfidence(-0.5))
	assert.Equal(t, float32(1), ClampConfidence(1.7))
	assert.Equal(t, float32(0.42), ClampConfidence(0.42))
}

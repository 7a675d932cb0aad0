package record

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/docstruct/internal/schema"
)

var reCurrencyJunk = regexp.MustCompile(`[^\d.,\-]`)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02T15:04:05Z07:00",
}

// Normalize type-coerces raw extracted text per the field's declared type.
// It returns nil when coercion fails; the raw text is still kept on the
// Value, so a failed normalization never loses data.
func Normalize(f schema.Field, raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	switch f.Type {
	case schema.TypeDate:
		return normalizeDate(s)
	case schema.TypeNumber:
		return normalizeNumber(s)
	case schema.TypeEnum:
		for _, e := range f.Enum {
			if strings.EqualFold(s, e) {
				return e
			}
		}
		return nil
	case schema.TypeString:
		if f.Format == "email" {
			return strings.ToLower(s)
		}
		return s
	default:
		return nil
	}
}

func normalizeDate(s string) any {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return nil
}

func normalizeNumber(s string) any {
	// strip currency symbols, units and whitespace; keep digits and separators
	cleaned := reCurrencyJunk.ReplaceAllString(s, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}
	// "1.234,56" (comma decimal) vs "1,234.56" (comma thousands): when both
	// separators appear, the last one is the decimal point
	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	if strings.Count(cleaned, ",") == 1 && lastComma > lastDot {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return f
}

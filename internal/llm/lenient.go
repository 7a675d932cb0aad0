package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONBlock pulls a JSON object out of model output that may be
// wrapped in markdown fences or surrounded by prose. Returns the trimmed
// payload or an error when no balanced object is present.
func ExtractJSONBlock(content string) ([]byte, error) {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	s = s[start : end+1]

	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}
	return []byte(s), nil
}

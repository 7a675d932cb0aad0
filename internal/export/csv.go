package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docstruct/internal/tables"
)

var reUnsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// TableCSV renders one table as CSV bytes: header row, then data rows.
func (s *Service) TableCSV(t tables.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTablesCSV writes one CSV file per table into dir, creating it when
// needed. Returns the written file paths in table order.
func (s *Service) WriteTablesCSV(tbls []tables.Table, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var written []string
	for _, t := range tbls {
		b, err := s.TableCSV(t)
		if err != nil {
			return written, fmt.Errorf("table %q: %w", t.Name, err)
		}
		path := filepath.Join(dir, safeFileName(t.Name)+".csv")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		s.logger.Info("export.csv.written", "table", t.Name, "path", path, "rows", len(t.Rows))
		written = append(written, path)
	}
	return written, nil
}

func safeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "table"
	}
	return reUnsafeName.ReplaceAllString(name, "_")
}

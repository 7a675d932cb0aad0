package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docstruct/internal/tables"
)

// Service renders materialized tables into downloadable formats.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// TablesXLSX returns an XLSX workbook (as bytes) with one sheet per table.
// Sheet rows mirror the table exactly: header row first, then data rows with
// empty cells for missing values.
func (s *Service) TablesXLSX(tbls []tables.Table) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()

	for ti, t := range tbls {
		sheet := sheetName(t.Name, ti)
		if ti == 0 {
			// excelize seeds a default first sheet; rename it
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("new sheet %q: %w", sheet, err)
			}
		}

		for i, h := range t.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			_ = f.SetCellValue(sheet, cell, h)
		}
		for ri, row := range t.Rows {
			for ci, v := range row {
				cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
				_ = f.SetCellValue(sheet, cell, v)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Debug("export.xlsx.done", "tables", len(tbls),
		"bytes", buf.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// sheetName keeps sheet names valid for Excel: non-empty and at most 31 chars.
func sheetName(name string, idx int) string {
	if name == "" {
		name = fmt.Sprintf("table_%d", idx+1)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// Package export renders well reports as spreadsheets.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order.
const (
	SheetHeader  = "Header"
	SheetSpecs   = "Specs"
	SheetGeology = "Geology"
)

// column order for well-known row keys; other keys follow alphabetically
var preferredColumns = map[string]int{"size": 0, "depth": 1, "weight": 2}

type Exporter struct {
	logger *slog.Logger
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// ReportXLSX returns the report as XLSX bytes with one sheet per section.
func (e *Exporter) ReportXLSX(source string, report domain.WellReport) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetHeader); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetSpecs, SheetGeology} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	w := &sheetWriter{f: f}
	w.header(report.Header)
	w.specs(report.Specs)
	w.geology(report.Geology)
	if w.err != nil {
		return nil, fmt.Errorf("xlsx fill: %w", w.err)
	}

	_ = f.SetColWidth(SheetHeader, "A", "A", 20)
	_ = f.SetColWidth(SheetHeader, "B", "B", 40)
	_ = f.SetColWidth(SheetSpecs, "A", "F", 16)
	_ = f.SetColWidth(SheetGeology, "A", "A", 14)
	_ = f.SetColWidth(SheetGeology, "B", "B", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"source", source,
		"header_fields", len(report.Header),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so the fill code stays linear.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) row(sheet string, row int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) header(header map[string]any) {
	w.row(SheetHeader, 1, "Field", "Value")
	for i, k := range sortedKeys(header) {
		w.row(SheetHeader, i+2, k, cellValue(header[k]))
	}
}

// specs writes each list section as a titled table, separated by a blank row.
// Scalar entries are written as key/value rows at the end.
func (w *sheetWriter) specs(specs map[string]any) {
	row := 1
	var scalars []string
	for _, k := range sortedKeys(specs) {
		records, ok := specs[k].([]any)
		if !ok {
			scalars = append(scalars, k)
			continue
		}

		w.row(SheetSpecs, row, k)
		row++
		columns := recordColumns(records)
		header := make([]any, len(columns))
		for i, c := range columns {
			header[i] = c
		}
		w.row(SheetSpecs, row, header...)
		row++
		for _, r := range records {
			rec, _ := r.(map[string]any)
			values := make([]any, len(columns))
			for i, c := range columns {
				values[i] = cellValue(rec[c])
			}
			w.row(SheetSpecs, row, values...)
			row++
		}
		row++
	}
	for _, k := range scalars {
		w.row(SheetSpecs, row, k, cellValue(specs[k]))
		row++
	}
}

func (w *sheetWriter) geology(geology map[string]any) {
	w.row(SheetGeology, 1, "Gas Peak", cellValue(geology[domain.GeologyGasPeak]))

	row := 3
	for _, k := range sortedKeys(geology) {
		if k == domain.GeologyGasPeak {
			continue
		}
		items, ok := geology[k].([]any)
		if !ok {
			w.row(SheetGeology, row, k, cellValue(geology[k]))
			row++
			continue
		}
		for i, item := range items {
			label := ""
			if i == 0 {
				label = k
			}
			w.row(SheetGeology, row, label, cellValue(item))
			row++
		}
		if len(items) == 0 {
			w.row(SheetGeology, row, k, "")
			row++
		}
	}
}

// recordColumns is the union of record keys, well-known keys first.
func recordColumns(records []any) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		pi, iok := preferredColumns[cols[i]]
		pj, jok := preferredColumns[cols[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return cols[i] < cols[j]
		}
	})
	return cols
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

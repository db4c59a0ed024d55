package extract

import (
	"context"
	"strings"
	"unicode"
)

// Specs keys.
const (
	SpecsCasing = "casing"
	SpecsMud    = "mud"
)

var mudHeaderWords = []string{"mud", "fluid", "ppg", "density", "viscosity"}

// SpecsExtractor reads casing and mud programmes from rendered tables.
type SpecsExtractor struct{}

// NewSpecsExtractor creates a SpecsExtractor.
func NewSpecsExtractor() *SpecsExtractor {
	return &SpecsExtractor{}
}

// ExtractSpecs classifies every table as a mud table when its header mentions
// drilling fluid, and as a casing table otherwise. A table whose first row
// starts with a number has no header and is read positionally as size, depth,
// weight.
func (e *SpecsExtractor) ExtractSpecs(ctx context.Context, tables string) (map[string]any, error) {
	casing := []any{}
	mud := []any{}

	for _, t := range ParseTables(tables) {
		if headerIsData(t.Header) {
			for _, row := range append([][]string{t.Header}, t.Rows...) {
				if rec := casingRecord(row, 0, 1, 2); rec != nil {
					casing = append(casing, rec)
				}
			}
			continue
		}

		if mentionsAny(t.Header, mudHeaderWords) {
			for _, row := range t.Rows {
				mud = append(mud, keyedRecord(t.Header, row))
			}
			continue
		}

		size, depth, weight := casingColumns(t.Header)
		for _, row := range t.Rows {
			if rec := casingRecord(row, size, depth, weight); rec != nil {
				casing = append(casing, rec)
			}
		}
	}

	return map[string]any{SpecsCasing: casing, SpecsMud: mud}, nil
}

func headerIsData(header []string) bool {
	if len(header) == 0 || header[0] == "" {
		return false
	}
	return unicode.IsDigit(rune(header[0][0]))
}

func mentionsAny(cells []string, words []string) bool {
	for _, c := range cells {
		lc := strings.ToLower(c)
		for _, w := range words {
			if strings.Contains(lc, w) {
				return true
			}
		}
	}
	return false
}

// casingColumns locates size, depth and weight by header name, falling back
// to the first three columns. A missing weight column is -1.
func casingColumns(header []string) (size, depth, weight int) {
	size, depth, weight = -1, -1, -1
	for i, h := range header {
		lh := strings.ToLower(h)
		switch {
		case size < 0 && (strings.Contains(lh, "size") || strings.Contains(lh, "od") || strings.Contains(lh, "diameter") || strings.Contains(lh, "casing")):
			size = i
		case depth < 0 && (strings.Contains(lh, "depth") || strings.Contains(lh, "shoe") || strings.Contains(lh, "setting")):
			depth = i
		case weight < 0 && (strings.Contains(lh, "weight") || strings.Contains(lh, "lb")):
			weight = i
		}
	}
	if size < 0 {
		size = 0
	}
	if depth < 0 {
		depth = 1
	}
	if weight < 0 && len(header) > 2 && size != 2 && depth != 2 {
		weight = 2
	}
	return size, depth, weight
}

func casingRecord(row []string, size, depth, weight int) map[string]any {
	if size >= len(row) || depth >= len(row) || row[size] == "" {
		return nil
	}
	rec := map[string]any{
		"size":  row[size],
		"depth": ParseNumber(row[depth]),
	}
	if weight >= 0 && weight < len(row) && row[weight] != "" {
		rec["weight"] = ParseNumber(row[weight])
	}
	return rec
}

func keyedRecord(header, row []string) map[string]any {
	rec := make(map[string]any, len(header))
	for i, h := range header {
		key := fieldKey(h)
		if key == "" || i >= len(row) {
			continue
		}
		rec[key] = ParseNumber(row[i])
	}
	return rec
}

// fieldKey turns a column header into a snake_case key.
func fieldKey(h string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if underscore && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
			underscore = false
			continue
		}
		underscore = true
	}
	return sb.String()
}

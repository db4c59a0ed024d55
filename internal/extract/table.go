package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Table is a parsed pipe-delimited table. Header is the first row.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseTables reads every pipe-delimited table in markdown. Tables are
// separated by any non-table line; separator rows are skipped.
func ParseTables(markdown string) []Table {
	var tables []Table
	var current *Table

	flush := func() {
		if current != nil && len(current.Header) > 0 {
			tables = append(tables, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "|") {
			flush()
			continue
		}
		cells := splitCells(line)
		if isSeparator(cells) {
			continue
		}
		if current == nil {
			current = &Table{Header: cells}
			continue
		}
		current.Rows = append(current.Rows, cells)
	}
	flush()
	return tables
}

// splitCells splits a "| a | b |" row, honouring escaped pipes.
func splitCells(line string) []string {
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = strings.TrimSuffix(line, "|")
	}

	var cells []string
	var sb strings.Builder
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			sb.WriteByte('|')
			i++
		case line[i] == '|':
			cells = append(cells, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteByte(line[i])
		}
	}
	return append(cells, strings.TrimSpace(sb.String()))
}

var separatorCell = regexp.MustCompile(`^:?-{3,}:?$`)

func isSeparator(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !separatorCell.MatchString(c) {
			return false
		}
	}
	return true
}

var leadingNumber = regexp.MustCompile(`^-?\d[\d,]*(?:\.\d+)?`)

// ParseNumber reads the leading number of s ("1,500 m" is 1500). Integers are
// returned as int, decimals as float64; anything else is returned unchanged.
func ParseNumber(s string) any {
	s = strings.TrimSpace(s)
	m := leadingNumber.FindString(s)
	if m == "" {
		return s
	}
	m = strings.ReplaceAll(m, ",", "")
	if !strings.Contains(m, ".") {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(m, 64); err == nil {
		return f
	}
	return s
}

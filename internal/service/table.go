package service

import (
	"strings"
)

const separatorCell = "---"

// RenderTable renders rows as a pipe-delimited block: the first row as header,
// a separator row, then the data rows. Ragged rows are padded to the widest row.
// It returns an empty string when there is nothing to render.
func RenderTable(rows [][]string) string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow(&sb, rows[0], width)
	sep := make([]string, width)
	for i := range sep {
		sep[i] = separatorCell
	}
	writeRow(&sb, sep, width)
	for _, row := range rows[1:] {
		writeRow(&sb, row, width)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func writeRow(sb *strings.Builder, row []string, width int) {
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(row) {
			cell = cleanCell(row[i])
		}
		sb.WriteString(" ")
		sb.WriteString(cell)
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

func cleanCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

package pdf

import (
	"math"
	"sort"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/text"
)

// minLineTolerance is the smallest vertical distance, in points, that still
// separates two lines.
const minLineTolerance = 2.0

// GroupLines assembles positioned fragments into lines in reading order (top
// of the page first, PDF coordinates grow upwards). Fragments whose baselines
// are within half a glyph height of each other belong to the same line.
func GroupLines(fragments []text.TextFragment) []domain.TextLine {
	frags := make([]text.TextFragment, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) != "" {
			frags = append(frags, f)
		}
	}
	if len(frags) == 0 {
		return nil
	}

	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Y != frags[j].Y {
			return frags[i].Y > frags[j].Y
		}
		return frags[i].X < frags[j].X
	})

	var lines []domain.TextLine
	var current []text.TextFragment
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, buildLine(current))
		}
		current = nil
	}

	for _, f := range frags {
		if len(current) > 0 && math.Abs(current[0].Y-f.Y) > tolerance(current[0], f) {
			flush()
		}
		current = append(current, f)
	}
	flush()
	return lines
}

func tolerance(a, b text.TextFragment) float64 {
	h := math.Max(a.Height, b.Height)
	if h == 0 {
		h = math.Max(a.FontSize, b.FontSize)
	}
	return math.Max(h/2, minLineTolerance)
}

func buildLine(frags []text.TextFragment) domain.TextLine {
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

	var sb strings.Builder
	minX, minY := frags[0].X, frags[0].Y
	maxX, maxY := frags[0].X+frags[0].Width, frags[0].Y+frags[0].Height
	prevEnd := frags[0].X

	for i, f := range frags {
		if i > 0 {
			gap := f.X - prevEnd
			space := f.FontSize * 0.2
			if space == 0 {
				space = 1
			}
			if gap > space && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(f.Text, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(f.Text)
		prevEnd = f.X + f.Width

		minX = math.Min(minX, f.X)
		minY = math.Min(minY, f.Y)
		maxX = math.Max(maxX, f.X+f.Width)
		maxY = math.Max(maxY, f.Y+f.Height)
	}

	return domain.TextLine{
		Text: strings.TrimSpace(sb.String()),
		BBox: domain.BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY},
	}
}

// modelPage converts fragments into the page shape the table detector reads.
func modelPage(number int, width, height float64, fragments []text.TextFragment) *model.Page {
	p := model.NewPage(width, height)
	p.Number = number
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		p.RawText = append(p.RawText, model.TextFragment{
			Text:     f.Text,
			BBox:     model.NewBBox(f.X, f.Y, f.Width, f.Height),
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return p
}

// TableRegions converts detected tables into cell text grids. Tables without
// any non-empty cell are skipped.
func TableRegions(tables []*model.Table) []domain.TableRegion {
	regions := make([]domain.TableRegion, 0, len(tables))
	for _, t := range tables {
		if t == nil {
			continue
		}
		rows := make([][]string, 0, len(t.Rows))
		nonEmpty := false
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = strings.TrimSpace(c.Text)
				if cells[i] != "" {
					nonEmpty = true
				}
			}
			rows = append(rows, cells)
		}
		if !nonEmpty {
			continue
		}
		regions = append(regions, domain.TableRegion{
			BBox: domain.BBox{X: t.BBox.X, Y: t.BBox.Y, Width: t.BBox.Width, Height: t.BBox.Height},
			Rows: rows,
		})
	}
	return regions
}

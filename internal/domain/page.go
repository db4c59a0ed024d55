package domain

// Page is one page of a source document in reading order.
type Page struct {
	// Number is 1-based.
	Number int
	// Text is the raw extractable text; used as prose when table detection fails.
	Text string
}

// BBox is an axis-aligned rectangle in page coordinates.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// Center returns the centre point of the box.
func (b BBox) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// TextLine is a line of page text with its position.
type TextLine struct {
	Text string
	BBox BBox
}

// TableRegion is a detected table with its cell text, first row as header.
type TableRegion struct {
	BBox BBox
	Rows [][]string
}

// PageLayout is what a table detector reports for one page.
type PageLayout struct {
	Lines  []TextLine
	Tables []TableRegion
}

// RawText joins every line of the layout, tables included.
func (l PageLayout) RawText() string {
	out := make([]byte, 0, 256)
	for i, line := range l.Lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, line.Text...)
	}
	return string(out)
}

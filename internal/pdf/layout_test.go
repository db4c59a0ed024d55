package pdf

import (
	"testing"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/text"
)

func frag(s string, x, y, w float64) text.TextFragment {
	return text.TextFragment{Text: s, X: x, Y: y, Width: w, Height: 10, FontSize: 10}
}

func TestGroupLines_ReadingOrder(t *testing.T) {
	lines := GroupLines([]text.TextFragment{
		frag("shale", 10, 680, 30),
		frag("Geology", 40, 700, 45),
		frag("4.0", 10, 701, 20),
		frag("   ", 10, 600, 5),
	})

	require.Len(t, lines, 2)
	assert.Equal(t, "4.0 Geology", lines[0].Text)
	assert.Equal(t, "shale", lines[1].Text)
	assert.Equal(t, domain.BBox{X: 10, Y: 700, Width: 75, Height: 11}, lines[0].BBox)
}

func TestGroupLines_AdjacentFragmentsJoinWithoutSpace(t *testing.T) {
	lines := GroupLines([]text.TextFragment{
		frag("Cas", 10, 500, 15),
		frag("ing", 25, 500, 15),
	})

	require.Len(t, lines, 1)
	assert.Equal(t, "Casing", lines[0].Text)
}

func TestGroupLines_Empty(t *testing.T) {
	assert.Nil(t, GroupLines(nil))
}

func TestModelPage(t *testing.T) {
	p := modelPage(3, 612, 792, []text.TextFragment{frag("a", 1, 2, 3), frag(" ", 0, 0, 1)})

	assert.Equal(t, 3, p.Number)
	require.Len(t, p.RawText, 1)
	assert.Equal(t, model.NewBBox(1, 2, 3, 10), p.RawText[0].BBox)
}

func TestTableRegions(t *testing.T) {
	table := model.NewTable(2, 3)
	table.BBox = model.NewBBox(0, 100, 300, 40)
	for i, v := range []string{"Size", "Depth", "Weight"} {
		table.Rows[0][i].Text = v
	}
	for i, v := range []string{"13 3/8 ", "1500", "54.5"} {
		table.Rows[1][i].Text = v
	}

	regions := TableRegions([]*model.Table{table, model.NewTable(1, 1), nil})

	require.Len(t, regions, 1)
	assert.Equal(t, domain.BBox{X: 0, Y: 100, Width: 300, Height: 40}, regions[0].BBox)
	assert.Equal(t, [][]string{{"Size", "Depth", "Weight"}, {"13 3/8", "1500", "54.5"}}, regions[0].Rows)
}

func TestJoinLines(t *testing.T) {
	assert.Equal(t, "a\nb", joinLines([]domain.TextLine{{Text: "a"}, {Text: "b"}}))
}

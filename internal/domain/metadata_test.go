package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMetadata_KeepsScalars(t *testing.T) {
	res := SanitizeMetadata(map[string]any{
		"source":  "report.pdf",
		"page":    3,
		"depth":   float32(1500.5),
		"cased":   true,
		"count":   uint8(2),
		"section": "4.0 Geology",
	})

	assert.Empty(t, res.Dropped)
	assert.Equal(t, "report.pdf", res.Clean["source"])
	assert.Equal(t, int64(3), res.Clean["page"])
	assert.Equal(t, float64(float32(1500.5)), res.Clean["depth"])
	assert.Equal(t, true, res.Clean["cased"])
	assert.Equal(t, int64(2), res.Clean["count"])
}

func TestNormalizeScalar_LargeUnsigned(t *testing.T) {
	v, ok := NormalizeScalar(uint64(math.MaxUint64))
	require.True(t, ok)
	assert.Equal(t, float64(math.MaxUint64), v)

	v, ok = NormalizeScalar(uint64(math.MaxInt64) + 1)
	require.True(t, ok)
	f, isFloat := v.(float64)
	require.True(t, isFloat)
	assert.Positive(t, f)

	v, ok = NormalizeScalar(uint(math.MaxInt64))
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), v)

	v, ok = NormalizeScalar(uint64(42))
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestSanitizeMetadata_DropsNonScalars(t *testing.T) {
	res := SanitizeMetadata(map[string]any{
		"source": "report.pdf",
		"tags":   []string{"a", "b"},
		"nested": map[string]any{"x": 1},
		"empty":  nil,
		"ptr":    new(int),
	})

	assert.Equal(t, []string{"empty", "nested", "ptr", "tags"}, res.Dropped)
	assert.Equal(t, map[string]any{"source": "report.pdf"}, res.Clean)
}

func TestSanitizeMetadata_Empty(t *testing.T) {
	res := SanitizeMetadata(nil)
	assert.NotNil(t, res.Clean)
	assert.Empty(t, res.Clean)
	assert.Empty(t, res.Dropped)
}

func TestScalarEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same int kinds", 1, int64(1), true},
		{"string vs int", "1", 1, false},
		{"case differs", "Geology", "geology", false},
		{"whitespace differs", "Geology ", "Geology", false},
		{"floats", 54.5, float32(54.5), true},
		{"int vs float", 1, 1.0, false},
		{"non scalar", []int{1}, []int{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScalarEqual(tt.a, tt.b))
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	meta := ChunkMetadata{Source: "r.pdf", Page: 1, Section: "Header"}.Map()
	clean := SanitizeMetadata(meta).Clean

	assert.True(t, Filter{"page": 1}.Matches(clean))
	assert.True(t, Filter{"page": 1, "section": "Header"}.Matches(clean))
	assert.False(t, Filter{"page": "1"}.Matches(clean))
	assert.False(t, Filter{"page": 1, "section": "Geology"}.Matches(clean))
	assert.False(t, Filter{"missing": "x"}.Matches(clean))
	assert.True(t, Filter{}.Matches(clean))
}

func TestFilter_Validate(t *testing.T) {
	require.NoError(t, Filter{"page": 1, "section": "Geology"}.Validate())

	err := Filter{"page": []int{1, 2}}.Validate()
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestChunk_JSONShape(t *testing.T) {
	c := Chunk{
		Text:     "Operator: X",
		Metadata: ChunkMetadata{Source: "report.pdf", Page: 1, Section: DefaultSection},
	}

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Operator: X","metadata":{"source":"report.pdf","page":1,"section":"Header"}}`, string(b))

	var back Chunk
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, c, back)
}

func TestStoredChunk_Chunk(t *testing.T) {
	s := StoredChunk{
		ID:       "id-1",
		Text:     "body",
		Metadata: SanitizeMetadata(ChunkMetadata{Source: "r.pdf", Page: 4, Section: "4.0 Geology"}.Map()).Clean,
	}

	c := s.Chunk()
	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, ChunkMetadata{Source: "r.pdf", Page: 4, Section: "4.0 Geology"}, c.Metadata)
}

func TestDomainError_Is(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("insert: %w", Wrap(ErrStoreUnavailable, cause))

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEmptyQuery)
	assert.Contains(t, err.Error(), "STORE_UNAVAILABLE")
}

func TestEmptyGeology(t *testing.T) {
	g := EmptyGeology()
	assert.Equal(t, []any{}, g[GeologyIssues])
	v, ok := g[GeologyGasPeak]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestBBox_Contains(t *testing.T) {
	b := BBox{X: 10, Y: 10, Width: 100, Height: 50}
	assert.True(t, b.Contains(10, 10))
	assert.True(t, b.Contains(60, 35))
	assert.False(t, b.Contains(200, 35))

	x, y := b.Center()
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 35.0, y)
}

func TestPageLayout_RawText(t *testing.T) {
	l := PageLayout{Lines: []TextLine{{Text: "a"}, {Text: "b"}}}
	assert.Equal(t, "a\nb", l.RawText())
	assert.Equal(t, "", PageLayout{}.RawText())
}

// Package storetest holds the behaviour every ChunkStore backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.ChunkStore

// EmbeddedFactory returns an empty store that embeds with embedder.
type EmbeddedFactory func(t *testing.T, embedder store.EmbeddingClient) store.ChunkStore

// NoEmbedMarker makes KeywordEmbedder fail for any text containing it.
const NoEmbedMarker = "NOEMBED"

// KeywordEmbedder places texts on one axis per keyword so cosine ranking is
// predictable. The last component is a small constant so no vector is zero.
type KeywordEmbedder struct {
	Dims int
}

var embedderKeywords = []string{"casing", "depth", "geology", "operator"}

func (e KeywordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, NoEmbedMarker) {
		return nil, errors.New("embedding rejected")
	}
	vec := make([]float32, e.Dims)
	lower := strings.ToLower(text)
	for i, kw := range embedderKeywords {
		if i < e.Dims-1 && strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	vec[e.Dims-1] = 0.01
	return vec, nil
}

// RunEmbedded checks relevance ordering for stores that carry embeddings.
func RunEmbedded(t *testing.T, dims int, newStore EmbeddedFactory) {
	ctx := context.Background()

	t.Run("chunks without a vector rank after embedded chunks", func(t *testing.T) {
		s := newStore(t, KeywordEmbedder{Dims: dims})
		_, err := s.Insert(ctx, []domain.Chunk{
			chunk(NoEmbedMarker+" casing depth", 1, "5.0 Casing"),
			chunk("casing shoe set at depth 1500", 2, "5.0 Casing"),
			chunk("mud weight 9.5 ppg", 3, "6.0 Mud"),
		})
		require.NoError(t, err)

		texts, err := s.QueryByRelevance(ctx, "casing depth", 5, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"casing shoe set at depth 1500",
			"mud weight 9.5 ppg",
			NoEmbedMarker + " casing depth",
		}, texts)
	})

	t.Run("embedded ranking respects filter", func(t *testing.T) {
		s := newStore(t, KeywordEmbedder{Dims: dims})
		_, err := s.Insert(ctx, []domain.Chunk{
			chunk("Operator: Northwind", 1, "Header"),
			chunk("4.0 Geology shale", 2, "4.0 Geology"),
			chunk("casing in geology notes", 2, "4.0 Geology"),
		})
		require.NoError(t, err)

		texts, err := s.QueryByRelevance(ctx, "casing", 1, domain.Filter{"page": 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"casing in geology notes"}, texts)
	})
}

func chunk(text string, page int, section string) domain.Chunk {
	return domain.Chunk{
		Text:     text,
		Metadata: domain.ChunkMetadata{Source: "report.pdf", Page: page, Section: section},
	}
}

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("insert empty is a no-op", func(t *testing.T) {
		s := newStore(t)

		ids, err := s.Insert(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("duplicates get distinct ids", func(t *testing.T) {
		s := newStore(t)
		c := chunk("Operator: X", 1, "Header")

		ids, err := s.Insert(ctx, []domain.Chunk{c, c})
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])

		more, err := s.Insert(ctx, []domain.Chunk{c})
		require.NoError(t, err)
		assert.NotContains(t, ids, more[0])

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("filter is exact", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{
			chunk("exact", 1, "Geology"),
			chunk("lower", 2, "geology"),
			chunk("padded", 3, "Geology "),
			chunk("numbered", 4, "4.0 Geology"),
		})
		require.NoError(t, err)

		texts, err := s.QueryByFilter(ctx, domain.Filter{"section": "Geology"}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"exact"}, texts)
	})

	t.Run("filter compares types", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{chunk("page one", 1, "Header")})
		require.NoError(t, err)

		texts, err := s.QueryByFilter(ctx, domain.Filter{"page": 1}, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"page one"}, texts)

		texts, err = s.QueryByFilter(ctx, domain.Filter{"page": "1"}, 5)
		require.NoError(t, err)
		assert.Empty(t, texts)
	})

	t.Run("filter ands every pair", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{
			chunk("a", 1, "Header"),
			chunk("b", 2, "Header"),
		})
		require.NoError(t, err)

		texts, err := s.QueryByFilter(ctx, domain.Filter{"page": 2, "section": "Header", "source": "report.pdf"}, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, texts)
	})

	t.Run("no match returns empty", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{chunk("a", 1, "Header")})
		require.NoError(t, err)

		texts, err := s.QueryByFilter(ctx, domain.Filter{"section": "Nonexistent"}, 5)
		require.NoError(t, err)
		assert.NotNil(t, texts)
		assert.Empty(t, texts)
	})

	t.Run("filter keeps insertion order and default limit", func(t *testing.T) {
		s := newStore(t)
		var chunks []domain.Chunk
		for i := 1; i <= 7; i++ {
			chunks = append(chunks, chunk(fmt.Sprintf("page %d", i), i, "Geology"))
		}
		_, err := s.Insert(ctx, chunks)
		require.NoError(t, err)

		texts, err := s.QueryByFilter(ctx, domain.Filter{"section": "Geology"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"page 1", "page 2", "page 3", "page 4", "page 5"}, texts)

		again, err := s.QueryByFilter(ctx, domain.Filter{"section": "Geology"}, 0)
		require.NoError(t, err)
		assert.Equal(t, texts, again)
	})

	t.Run("relevance without query or filter fails", func(t *testing.T) {
		s := newStore(t)

		_, err := s.QueryByRelevance(ctx, "", 5, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	})

	t.Run("relevance ranks matching text first", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{
			chunk("Operator: Northwind Energy", 1, "Header"),
			chunk("shale with gas shows and lost circulation", 2, "4.0 Geology"),
			chunk("casing shoe set at depth 1500", 3, "5.0 Casing"),
		})
		require.NoError(t, err)

		texts, err := s.QueryByRelevance(ctx, "casing depth", 3, nil)
		require.NoError(t, err)
		require.NotEmpty(t, texts)
		assert.Equal(t, "casing shoe set at depth 1500", texts[0])
	})

	t.Run("relevance respects filter", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{
			chunk("casing shoe at 1500", 3, "5.0 Casing"),
			chunk("casing mentioned in geology", 4, "4.0 Geology"),
		})
		require.NoError(t, err)

		texts, err := s.QueryByRelevance(ctx, "casing", 5, domain.Filter{"section": "4.0 Geology"})
		require.NoError(t, err)
		assert.Equal(t, []string{"casing mentioned in geology"}, texts)
	})

	t.Run("relevance with filter only keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{
			chunk("first", 1, "Geology"),
			chunk("other", 2, "Header"),
			chunk("second", 3, "Geology"),
		})
		require.NoError(t, err)

		texts, err := s.QueryByRelevance(ctx, "", 5, domain.Filter{"section": "Geology"})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, texts)
	})

	t.Run("reset is idempotent", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, []domain.Chunk{chunk("a", 1, "Header")})
		require.NoError(t, err)

		require.NoError(t, s.Reset(ctx))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, s.Reset(ctx))
		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

// Package store defines the chunk persistence contract shared by every backend
// and the ranking used for relevance queries.
package store

import (
	"context"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
)

// DefaultLimit is used when a query asks for zero or fewer results.
const DefaultLimit = 5

// DefaultCollection names the chunk collection when none is configured.
const DefaultCollection = "well_reports"

// ChunkStore persists chunks and answers filter and relevance queries.
type ChunkStore interface {
	// Insert writes chunks with fresh identifiers and returns them in input order.
	// Empty input is a no-op.
	Insert(ctx context.Context, chunks []domain.Chunk) ([]string, error)
	// QueryByFilter returns texts whose metadata equals every filter pair, in insertion order.
	QueryByFilter(ctx context.Context, filter domain.Filter, limit int) ([]string, error)
	// QueryByRelevance ranks texts by similarity to query, optionally restricted by filter.
	QueryByRelevance(ctx context.Context, query string, limit int, filter domain.Filter) ([]string, error)
	// Reset removes every stored chunk. Resetting an empty store is a no-op.
	Reset(ctx context.Context) error
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// EmbeddingClient generates embeddings for relevance scoring.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// NormalizeLimit applies DefaultLimit to non-positive limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// CheckRelevanceQuery rejects a relevance query that has neither text nor filter,
// and filters with non-scalar values.
func CheckRelevanceQuery(query string, filter domain.Filter) error {
	if strings.TrimSpace(query) == "" && len(filter) == 0 {
		return domain.ErrEmptyQuery
	}
	return filter.Validate()
}

// Package memory is an in-process ChunkStore.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/google/uuid"
)

type record struct {
	chunk     domain.StoredChunk
	embedding []float32
}

// Store keeps chunks in insertion order.
type Store struct {
	mu         sync.RWMutex
	collection string
	records    []record
	nextSeq    int64
	embedder   store.EmbeddingClient
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithEmbedder enables embedding-based relevance ranking.
func WithEmbedder(e store.EmbeddingClient) Option {
	return func(s *Store) { s.embedder = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store for collection.
func New(collection string, opts ...Option) *Store {
	if collection == "" {
		collection = store.DefaultCollection
	}
	s := &Store{collection: collection, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.ChunkStore = (*Store)(nil)

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// Insert stores chunks with fresh identifiers.
func (s *Store) Insert(ctx context.Context, chunks []domain.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors := store.EmbedTexts(ctx, s.embedder, texts, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		res := domain.SanitizeMetadata(c.Metadata.Map())
		if len(res.Dropped) > 0 {
			s.logger.Debug("dropped non-scalar metadata", "collection", s.collection, "keys", res.Dropped)
		}
		s.nextSeq++
		ids[i] = uuid.NewString()
		s.records = append(s.records, record{
			chunk: domain.StoredChunk{
				ID:       ids[i],
				Seq:      s.nextSeq,
				Text:     c.Text,
				Metadata: res.Clean,
			},
			embedding: vectors[i],
		})
	}
	return ids, nil
}

// QueryByFilter returns matching texts in insertion order.
func (s *Store) QueryByFilter(ctx context.Context, filter domain.Filter, limit int) ([]string, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	limit = store.NormalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, limit)
	for _, r := range s.records {
		if len(out) == limit {
			break
		}
		if filter.Matches(r.chunk.Metadata) {
			out = append(out, r.chunk.Text)
		}
	}
	return out, nil
}

// QueryByRelevance ranks the filtered chunks against query.
func (s *Store) QueryByRelevance(ctx context.Context, query string, limit int, filter domain.Filter) ([]string, error) {
	if err := store.CheckRelevanceQuery(query, filter); err != nil {
		return nil, err
	}
	queryVec := store.EmbedQuery(ctx, s.embedder, query, s.logger)

	s.mu.RLock()
	candidates := make([]store.Candidate, 0, len(s.records))
	for _, r := range s.records {
		if !filter.Matches(r.chunk.Metadata) {
			continue
		}
		candidates = append(candidates, store.Candidate{Seq: r.chunk.Seq, Text: r.chunk.Text, Embedding: r.embedding})
	}
	s.mu.RUnlock()

	return store.Rank(query, queryVec, candidates, limit), nil
}

// Chunks returns a copy of every stored chunk in insertion order.
func (s *Store) Chunks(ctx context.Context) ([]domain.StoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StoredChunk, len(s.records))
	for i, r := range s.records {
		out[i] = r.chunk
	}
	return out, nil
}

// Reset removes every chunk.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

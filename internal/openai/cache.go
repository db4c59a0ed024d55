package openai

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Embedder is the embedding surface shared by Client and CachedClient.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// CachedClient keeps recently generated embeddings keyed by text. Repeated
// queries and re-ingested documents do not hit the API again.
type CachedClient struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedClient wraps next with an LRU cache holding up to size vectors.
func NewCachedClient(next Embedder, size int) (*CachedClient, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedClient{next: next, cache: cache}, nil
}

func (c *CachedClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.next.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}

// GenerateEmbeddings sends only the texts missing from the cache.
func (c *CachedClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var positions []int

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		positions = append(positions, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.next.GenerateEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i, v := range vecs {
		out[positions[i]] = v
		if v != nil {
			c.cache.Add(missing[i], v)
		}
	}
	return out, nil
}

// Len reports the number of cached vectors.
func (c *CachedClient) Len() int {
	return c.cache.Len()
}

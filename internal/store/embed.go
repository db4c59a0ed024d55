package store

import (
	"context"
	"log/slog"
)

// BatchEmbeddingClient is implemented by clients that embed many texts in one call.
type BatchEmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedTexts embeds texts with client, using the batch call when available.
// Embeddings are optional for every backend: on failure the texts are returned
// without vectors and relevance falls back to lexical scoring.
func EmbedTexts(ctx context.Context, client EmbeddingClient, texts []string, logger *slog.Logger) [][]float32 {
	out := make([][]float32, len(texts))
	if client == nil || len(texts) == 0 {
		return out
	}
	if logger == nil {
		logger = slog.Default()
	}

	if batch, ok := client.(BatchEmbeddingClient); ok {
		vecs, err := batch.GenerateEmbeddings(ctx, texts)
		if err == nil && len(vecs) == len(texts) {
			return vecs
		}
		logger.Warn("batch embedding failed, storing chunks without vectors", "count", len(texts), "error", err)
		return out
	}

	for i, t := range texts {
		if t == "" {
			continue
		}
		vec, err := client.GenerateEmbedding(ctx, t)
		if err != nil {
			logger.Warn("embedding failed, storing chunk without vector", "index", i, "error", err)
			continue
		}
		out[i] = vec
	}
	return out
}

// EmbedQuery embeds a relevance query, returning nil when there is no client,
// no query text, or the call fails.
func EmbedQuery(ctx context.Context, client EmbeddingClient, query string, logger *slog.Logger) []float32 {
	if client == nil || query == "" {
		return nil
	}
	vec, err := client.GenerateEmbedding(ctx, query)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("query embedding failed, using lexical ranking", "error", err)
		return nil
	}
	return vec
}

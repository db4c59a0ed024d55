//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbeddings_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	ctx := context.Background()

	vecs, err := client.GenerateEmbeddings(ctx, []string{
		"4.0 Geology\nshale with gas shows, partial losses at 2100 m",
		"5.0 Casing\n| 13 3/8 | 1500 | 54.5 |",
	})

	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.Len(t, v, DefaultEmbeddingDimensions)
	}

	q, err := client.GenerateEmbedding(ctx, "casing depth")
	require.NoError(t, err)
	assert.Len(t, q, DefaultEmbeddingDimensions)
}

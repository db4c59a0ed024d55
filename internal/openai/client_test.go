package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func vector(dims int, seed float32) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = seed + float32(i)*0.001
	}
	return v
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	text := "5.0 Casing\n| 13 3/8 | 1500 | 54.5 |"
	expected := vector(1536, 0)

	mockAPI.On("CreateEmbeddings", ctx, []string{text}).Return([][]float32{expected}, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Equal(t, expected, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"Test text"}).Return(nil, errors.New("API rate limit exceeded"))

	embedding, err := client.GenerateEmbedding(ctx, "Test text")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Contains(t, err.Error(), "failed to create embedding")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"Test text"}).Return([][]float32{make([]float32, 512)}, nil)

	embedding, err := client.GenerateEmbedding(ctx, "Test text")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	assert.Contains(t, err.Error(), "got 512, expected 1536")
}

func TestClient_GenerateEmbeddings_SkipsEmptyAndKeepsOrder(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 3}

	ctx := context.Background()
	a, b := []float32{1, 0, 0}, []float32{0, 1, 0}
	mockAPI.On("CreateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{a, b}, nil)

	vecs, err := client.GenerateEmbeddings(ctx, []string{"a", "", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{a, nil, b}, vecs)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbeddings_Batches(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1}

	texts := make([]string, maxBatchSize+1)
	for i := range texts {
		texts[i] = "chunk"
	}
	full := make([][]float32, maxBatchSize)
	for i := range full {
		full[i] = []float32{1}
	}
	mockAPI.On("CreateEmbeddings", mock.Anything, mock.MatchedBy(func(in []string) bool { return len(in) == maxBatchSize })).
		Return(full, nil).Once()
	mockAPI.On("CreateEmbeddings", mock.Anything, mock.MatchedBy(func(in []string) bool { return len(in) == 1 })).
		Return([][]float32{{2}}, nil).Once()

	vecs, err := client.GenerateEmbeddings(context.Background(), texts)

	require.NoError(t, err)
	assert.Len(t, vecs, maxBatchSize+1)
	assert.Equal(t, []float32{2}, vecs[maxBatchSize])
	mockAPI.AssertExpectations(t)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.Dimensions())
}

func TestNewClientWithConfig_Dimensions(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "k", EmbeddingDimensions: 256})

	assert.Equal(t, 256, client.Dimensions())
}

func TestNewClientFromEnv_NoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestNewClientFromEnv_WithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	client, err := NewClientFromEnv()

	assert.NotNil(t, client)
	assert.NoError(t, err)
}

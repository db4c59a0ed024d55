package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func TestCachedClient_GenerateEmbedding_CachesResult(t *testing.T) {
	next := new(MockEmbedder)
	next.On("GenerateEmbedding", mock.Anything, "casing depth").Return([]float32{1, 2}, nil).Once()

	c, err := NewCachedClient(next, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err := c.GenerateEmbedding(context.Background(), "casing depth")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, v)
	}
	assert.Equal(t, 1, c.Len())
	next.AssertExpectations(t)
}

func TestCachedClient_GenerateEmbedding_ErrorNotCached(t *testing.T) {
	next := new(MockEmbedder)
	next.On("GenerateEmbedding", mock.Anything, "q").Return(nil, errors.New("boom")).Once()
	next.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1}, nil).Once()

	c, err := NewCachedClient(next, 0)
	require.NoError(t, err)

	_, err = c.GenerateEmbedding(context.Background(), "q")
	assert.Error(t, err)

	v, err := c.GenerateEmbedding(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
}

func TestCachedClient_GenerateEmbeddings_OnlySendsMisses(t *testing.T) {
	next := new(MockEmbedder)
	next.On("GenerateEmbedding", mock.Anything, "a").Return([]float32{1}, nil).Once()
	next.On("GenerateEmbeddings", mock.Anything, []string{"b", "c"}).Return([][]float32{{2}, {3}}, nil).Once()

	c, err := NewCachedClient(next, 8)
	require.NoError(t, err)

	_, err = c.GenerateEmbedding(context.Background(), "a")
	require.NoError(t, err)

	vecs, err := c.GenerateEmbeddings(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vecs)

	again, err := c.GenerateEmbeddings(context.Background(), []string{"c", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}, {2}}, again)
	next.AssertExpectations(t)
}

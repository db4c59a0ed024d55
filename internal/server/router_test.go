package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/wellrag/internal/api/handlers"
	"github.com/cloo-solutions/wellrag/internal/api/middleware"
	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/cloo-solutions/wellrag/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentProcessor struct {
	mock.Mock
}

func (m *MockDocumentProcessor) Run(ctx context.Context, path, source string) (*service.DocumentResult, error) {
	args := m.Called(ctx, path, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentResult), args.Error(1)
}

func setupRouter(t *testing.T, validator middleware.TokenValidator) http.Handler {
	t.Helper()
	s := memory.New("")
	_, err := s.Insert(context.Background(), []domain.Chunk{
		{Text: "Well Name: A-1", Metadata: domain.ChunkMetadata{Source: "a1.pdf", Page: 1, Section: "Header"}},
		{Text: "Sandstone", Metadata: domain.ChunkMetadata{Source: "a1.pdf", Page: 2, Section: "Geology"}},
	})
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		TokenValidator:  validator,
		DocumentHandler: handlers.NewDocumentHandler(new(MockDocumentProcessor), nil, nil),
		ChunkHandler:    handlers.NewChunkHandler(s, service.NewRetrievalOrchestrator(s, service.DefaultRetrievalConfig(), nil)),
		StoreKind:       "memory",
	})
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := setupRouter(t, middleware.StaticToken("secret"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data": {"status": "ok", "store": "memory"}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router := setupRouter(t, middleware.StaticToken("secret"))

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/documents/abc"},
		{http.MethodGet, "/chunks/count"},
		{http.MethodPost, "/chunks/filter"},
		{http.MethodPost, "/chunks/search"},
		{http.MethodDelete, "/chunks"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_AuthenticatedRoutes_WithValidAuth(t *testing.T) {
	router := setupRouter(t, middleware.StaticToken("secret"))

	body, err := json.Marshal(map[string]any{"filter": map[string]any{"section": "Geology"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/chunks/filter", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data": {"texts": ["Sandstone"], "count": 1}}`, w.Body.String())
}

func TestRouter_AuthDisabled(t *testing.T) {
	router := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/chunks/count", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data": {"count": 2}}`, w.Body.String())
}

func TestRouter_ResetChunks(t *testing.T) {
	router := setupRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/chunks", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chunks/count", nil))
	assert.JSONEq(t, `{"data": {"count": 0}}`, w.Body.String())
}

func TestRouter_DocumentArchiveDisabled(t *testing.T) {
	router := setupRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/abc", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/wellrag/internal/api"
	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store"
)

// ChunkSearcher answers relevance queries.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, limit int, filter domain.Filter) ([]string, error)
}

type ChunkHandler struct {
	store    store.ChunkStore
	searcher ChunkSearcher
}

func NewChunkHandler(s store.ChunkStore, searcher ChunkSearcher) *ChunkHandler {
	return &ChunkHandler{store: s, searcher: searcher}
}

type FilterRequest struct {
	Filter json.RawMessage `json:"filter"`
	Limit  int             `json:"limit"`
}

type SearchRequest struct {
	Query  string          `json:"query"`
	Filter json.RawMessage `json:"filter,omitempty"`
	Limit  int             `json:"limit"`
}

type ChunksResponse struct {
	Texts []string `json:"texts"`
	Count int      `json:"count"`
}

type CountResponse struct {
	Count int `json:"count"`
}

func (h *ChunkHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter, err := decodeFilter(req.Filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	texts, err := h.store.QueryByFilter(r.Context(), filter, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChunksResponse{Texts: texts, Count: len(texts)})
}

func (h *ChunkHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter, err := decodeFilter(req.Filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	texts, err := h.searcher.Search(r.Context(), req.Query, req.Limit, filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChunksResponse{Texts: texts, Count: len(texts)})
}

func (h *ChunkHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, CountResponse{Count: n})
}

func (h *ChunkHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeFilter keeps JSON integers as int64 so {"page": 1} matches the stored page.
func decodeFilter(raw json.RawMessage) (domain.Filter, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	values, err := store.DecodeMetadata(raw)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidFilter, err)
	}
	filter := domain.Filter(values)
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return filter, nil
}

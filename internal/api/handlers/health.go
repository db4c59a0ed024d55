package handlers

import (
	"net/http"

	"github.com/cloo-solutions/wellrag/internal/api"
)

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// Health reports liveness and the configured store backend.
func Health(storeKind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, HealthResponse{Status: "ok", Store: storeKind})
	}
}

package server

import (
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/wellrag/internal/api/handlers"
	"github.com/cloo-solutions/wellrag/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxBodyBytes bounds uploads; well reports run to tens of megabytes.
const DefaultMaxBodyBytes int64 = 64 * 1024 * 1024

type RouterConfig struct {
	// TokenValidator guards every route except /health. Nil disables auth.
	TokenValidator  middleware.TokenValidator
	DocumentHandler *handlers.DocumentHandler
	ChunkHandler    *handlers.ChunkHandler
	StoreKind       string
	MaxBodyBytes    int64
	// Logger receives one access record per request. Nil uses slog.Default.
	Logger          *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", handlers.Health(cfg.StoreKind))

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.TokenValidator))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/{digest}", cfg.DocumentHandler.Get)
		})

		r.Route("/chunks", func(r chi.Router) {
			r.Get("/count", cfg.ChunkHandler.Count)
			r.Post("/filter", cfg.ChunkHandler.Filter)
			r.Post("/search", cfg.ChunkHandler.Search)
			r.Delete("/", cfg.ChunkHandler.Reset)
		})
	})

	return r
}

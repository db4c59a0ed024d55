// Package app implements the wellrag commands.
package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/cloo-solutions/wellrag/internal/config"
	"github.com/cloo-solutions/wellrag/internal/database"
	"github.com/cloo-solutions/wellrag/internal/export"
	"github.com/cloo-solutions/wellrag/internal/extract"
	"github.com/cloo-solutions/wellrag/internal/openai"
	"github.com/cloo-solutions/wellrag/internal/pdf"
	"github.com/cloo-solutions/wellrag/internal/repository"
	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/cloo-solutions/wellrag/internal/storage"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/cloo-solutions/wellrag/internal/store/memory"
	"github.com/cloo-solutions/wellrag/internal/store/sqlite"
	goopenai "github.com/sashabaranov/go-openai"
)

// Runtime is everything a command needs, built once from config.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    store.ChunkStore
	Pipeline *service.Pipeline
	Runner   *service.DocumentRunner
	Archive  *storage.Archive
	Exporter *export.Exporter

	closers []func()
}

type runtimeOptions struct {
	noMigrate   bool
	withArchive bool
}

type RuntimeOption func(*runtimeOptions)

// SkipMigrations leaves the PostgreSQL schema untouched.
func SkipMigrations(skip bool) RuntimeOption {
	return func(o *runtimeOptions) { o.noMigrate = skip }
}

// WithArchive connects the S3 archive when it is configured.
func WithArchive() RuntimeOption {
	return func(o *runtimeOptions) { o.withArchive = true }
}

// NewRuntime loads config and wires the store, embedder, pipeline and archive.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewRuntimeFromConfig(ctx, cfg, opts...)
}

func NewRuntimeFromConfig(ctx context.Context, cfg *config.Config, opts ...RuntimeOption) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := newLogger(cfg.Debug)
	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Exporter: export.NewExporter(logger),
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	chunkStore, closeStore, err := openStore(ctx, cfg, embedder, rt.Logger, o.noMigrate)
	if err != nil {
		return nil, err
	}
	rt.Store = chunkStore
	rt.closers = append(rt.closers, closeStore)

	rt.Pipeline = service.NewPipeline(chunkStore, service.Extractors{
		Header:  extract.NewHeaderExtractor(),
		Specs:   extract.NewSpecsExtractor(),
		Geology: extract.NewGeologyExtractor(),
	}, service.PipelineConfig{
		Chunk: service.DefaultChunkConfig(),
		Retrieval: service.RetrievalConfig{
			GeologySection: cfg.GeologySection,
			GeologyLimit:   cfg.GeologyLimit,
			SpecsKeywords:  cfg.SpecsKeywords,
		},
		StoreKind:  cfg.Store,
		Collection: cfg.Collection,
	}, rt.Logger)

	var archiver service.Archiver
	if o.withArchive && cfg.HasS3() {
		archive, err := newArchive(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Archive = archive
		archiver = archive
	}

	rt.Runner = service.NewDocumentRunner(rt.Pipeline, openPDF(rt.Logger), archiver, rt.Logger)
	return rt, nil
}

// Close releases the store.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newEmbedder returns nil when no OpenAI key is configured; stores then rank lexically.
func newEmbedder(cfg *config.Config) (store.EmbeddingClient, error) {
	if !cfg.HasOpenAI() {
		return nil, nil
	}
	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	if cfg.EmbeddingCacheSize <= 0 {
		return client, nil
	}
	cached, err := openai.NewCachedClient(client, cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return cached, nil
}

func openStore(ctx context.Context, cfg *config.Config, embedder store.EmbeddingClient, logger *slog.Logger, noMigrate bool) (store.ChunkStore, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		opts := []memory.Option{memory.WithLogger(logger)}
		if embedder != nil {
			opts = append(opts, memory.WithEmbedder(embedder))
		}
		return memory.New(cfg.Collection, opts...), func() {}, nil

	case config.StoreSQLite:
		opts := []sqlite.Option{sqlite.WithLogger(logger)}
		if embedder != nil {
			opts = append(opts, sqlite.WithEmbedder(embedder))
		}
		s, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.Collection, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil

	case config.StorePostgres:
		if !noMigrate {
			if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsDir); err != nil {
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("connected to database")
		return repository.NewChunkRepository(pool, cfg.Collection, embedder, logger), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func newArchive(ctx context.Context, cfg *config.Config) (*storage.Archive, error) {
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	return storage.NewArchive(client), nil
}

func openPDF(logger *slog.Logger) service.DocumentOpener {
	return func(path string) (service.PageDocument, error) {
		doc, err := pdf.Open(path, logger)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}

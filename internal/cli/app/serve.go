package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/wellrag/internal/api/handlers"
	"github.com/cloo-solutions/wellrag/internal/api/middleware"
	"github.com/cloo-solutions/wellrag/internal/config"
	"github.com/cloo-solutions/wellrag/internal/jobs"
	"github.com/cloo-solutions/wellrag/internal/server"
	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Start the wellrag HTTP API. With --watch the inbox worker runs alongside the server.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default: WELLRAG_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("watch", false, "Also process PDFs dropped into WELLRAG_INBOX_DIR")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	rt, err := NewRuntimeFromConfig(ctx, cfg, SkipMigrations(noMigrate), WithArchive())
	if err != nil {
		return err
	}
	defer rt.Close()

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		worker, err := newInboxWorker(rt)
		if err != nil {
			return err
		}
		go worker.Start(ctx)
		defer worker.Stop()
		log.Printf("inbox worker watching %s", cfg.InboxDir)
	}

	var archive handlers.ReportArchive
	if rt.Archive != nil {
		archive = rt.Archive
	}
	var validator middleware.TokenValidator
	if cfg.APIToken != "" {
		validator = middleware.StaticToken(cfg.APIToken)
	}

	router := server.NewRouter(server.RouterConfig{
		TokenValidator:  validator,
		DocumentHandler: handlers.NewDocumentHandler(rt.Runner, archive, rt.Exporter),
		ChunkHandler:    handlers.NewChunkHandler(rt.Store, service.NewRetrievalOrchestrator(rt.Store, service.RetrievalConfig{}, rt.Logger)),
		StoreKind:       cfg.Store,
		MaxBodyBytes:    cfg.MaxUploadMiB << 20,
		Logger:          rt.Logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s (store: %s)", cfg.Port, cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// initTelemetry starts Sentry when a DSN is configured: 10% trace sampling in
// production, everything in development.
func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}

func newInboxWorker(rt *Runtime) (*jobs.Worker, error) {
	processor, err := jobs.NewInboxProcessor(rt.Config.InboxDir, rt.Runner)
	if err != nil {
		return nil, err
	}
	return jobs.NewWorker(processor, rt.Config.PollInterval), nil
}

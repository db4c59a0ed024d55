package app

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/wellrag/internal/config"
	"github.com/spf13/cobra"
)

func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process PDFs dropped into the inbox directory",
		Long: `Poll WELLRAG_INBOX_DIR for PDFs. Each file is extracted and moved to done/
next to its <name>.report.json; files that fail three times move to failed/.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().String("dir", "", "Inbox directory (default: WELLRAG_INBOX_DIR)")
	cmd.Flags().Duration("interval", 0, "Poll interval (default: WELLRAG_POLL_INTERVAL)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.InboxDir = dir
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.PollInterval = interval
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	rt, err := NewRuntimeFromConfig(ctx, cfg, WithArchive())
	if err != nil {
		return err
	}
	defer rt.Close()

	worker, err := newInboxWorker(rt)
	if err != nil {
		return err
	}
	log.Printf("watching %s every %s", cfg.InboxDir, cfg.PollInterval)
	worker.Start(ctx)
	return nil
}

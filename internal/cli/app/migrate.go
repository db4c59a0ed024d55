package app

import (
	"errors"
	"fmt"

	"github.com/cloo-solutions/wellrag/internal/config"
	"github.com/cloo-solutions/wellrag/internal/database"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return errors.New("WELLRAG_DATABASE_URL is required")
			}
			dir, _ := cmd.Flags().GetString("dir")
			return database.Migrate(cfg.DatabaseURL, dir)
		},
	}
	cmd.Flags().String("dir", database.DefaultMigrationsDir, "Migrations directory")
	return cmd
}

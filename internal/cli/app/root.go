package app

import (
	"github.com/cloo-solutions/wellrag/internal/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the wellrag command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wellrag",
		Short: "Extract structured well reports from drilling PDFs",
		Long: `wellrag chunks well report PDFs page by page, stores the chunks for filter and
relevance queries, and extracts a header/specs/geology report.

Environment variables (prefix WELLRAG_):
  STORE            memory, sqlite or postgres (default: sqlite)
  SQLITE_PATH      SQLite database file (default: ./wellrag.db)
  DATABASE_URL     PostgreSQL URL for the postgres store
  COLLECTION       Chunk collection name (default: well_reports)
  OPENAI_API_KEY   Enables embedding-based relevance ranking`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(IngestCmd())
	rootCmd.AddCommand(ExtractCmd())
	rootCmd.AddCommand(QueryCmd())
	rootCmd.AddCommand(ResetCmd())
	rootCmd.AddCommand(ExportCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(WatchCmd())
	rootCmd.AddCommand(MigrateCmd())

	return rootCmd
}

package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <pdf>...",
		Short: "Chunk PDFs and store their pages",
		Long:  "Split each PDF into one chunk per page, tag chunks with their section and store them in the configured chunk store.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
	cmd.Flags().String("source", "", "Source name stored with the chunks (default: file name; single file only)")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	if source != "" && len(args) > 1 {
		return fmt.Errorf("--source applies to a single file")
	}

	rt, err := NewRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	for _, path := range args {
		result, err := rt.Runner.Ingest(cmd.Context(), path, source)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		fmt.Fprintf(out, "%s: %d chunks stored", path, len(result.IDs))
		if failed := result.Report.FailedPages(); len(failed) > 0 {
			fmt.Fprintf(out, " (text fallback on pages %v)", failed)
		}
		fmt.Fprintln(out)
	}
	return nil
}

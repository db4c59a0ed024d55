package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cloo-solutions/wellrag/internal/extract"
	"github.com/spf13/cobra"
)

func ExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract a well report from a PDF",
		Long: `Ingest a PDF, then extract the header, specs and geology sections into one
JSON report. The report goes to stdout unless --output is given.`,
		Example: `  wellrag extract A-1.pdf
  wellrag extract A-1.pdf -o A-1.json --xlsx A-1.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}
	cmd.Flags().StringP("output", "o", "", "Write the report JSON to this file")
	cmd.Flags().String("xlsx", "", "Also write the report as an XLSX workbook")
	cmd.Flags().String("source", "", "Source name stored with the chunks (default: file name)")
	cmd.Flags().Bool("summary", false, "Include the run summary in the JSON output")
	cmd.Flags().Bool("archive", false, "Archive the PDF and report to S3 when configured")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	source, _ := cmd.Flags().GetString("source")
	withSummary, _ := cmd.Flags().GetBool("summary")
	archive, _ := cmd.Flags().GetBool("archive")

	var opts []RuntimeOption
	if archive {
		opts = append(opts, WithArchive())
	}
	rt, err := NewRuntime(cmd.Context(), opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.Runner.Run(cmd.Context(), args[0], source)
	if err != nil {
		return fmt.Errorf("extract %s: %w", args[0], err)
	}

	if err := extract.ValidateReport(result.Report); err != nil {
		rt.Logger.Warn("report failed shape validation", "source", result.Source, "error", err)
	}
	if len(result.Summary.ExtractorFailures) > 0 {
		rt.Logger.Warn("extractors failed, sections left empty",
			"source", result.Source, "extractors", result.Summary.ExtractorFailures)
	}

	var payload any = result.Report
	if withSummary {
		payload = result
	}
	if err := writeJSON(cmd.OutOrStdout(), output, payload); err != nil {
		return err
	}

	if xlsxPath != "" {
		data, err := rt.Exporter.ReportXLSX(result.Source, result.Report)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", xlsxPath, err)
		}
	}
	return nil
}

// writeJSON writes v indented to path, or to stdout when path is empty.
func writeJSON(stdout io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

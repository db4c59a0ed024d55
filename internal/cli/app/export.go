package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/export"
	"github.com/cloo-solutions/wellrag/internal/extract"
	"github.com/spf13/cobra"
)

func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <report.json>",
		Short: "Convert a saved report to XLSX",
		Long: `Convert a report written by "extract" or by the inbox worker into an XLSX
workbook with Header, Specs and Geology sheets.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}
	cmd.Flags().StringP("output", "o", "", "Workbook path (default: <report>.xlsx)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".xlsx"
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	source, report, err := readReport(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if source == "" {
		source = filepath.Base(args[0])
	}

	workbook, err := export.NewExporter(newLogger(false)).ReportXLSX(source, report)
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	if err := os.WriteFile(output, workbook, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
	return nil
}

// readReport accepts a bare report or a document result wrapping one.
func readReport(data []byte) (string, domain.WellReport, error) {
	var wrapped struct {
		Source string          `json:"source"`
		Report json.RawMessage `json:"report"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return "", domain.WellReport{}, domain.Wrap(domain.ErrInvalidReportShape, err)
	}
	if len(wrapped.Report) > 0 {
		data = wrapped.Report
	}

	if err := extract.ValidateReportJSON(data); err != nil {
		return "", domain.WellReport{}, err
	}
	var report domain.WellReport
	if err := json.Unmarshal(data, &report); err != nil {
		return "", domain.WellReport{}, domain.Wrap(domain.ErrInvalidReportShape, err)
	}
	return wrapped.Source, report, nil
}

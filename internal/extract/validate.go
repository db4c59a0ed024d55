package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// reportSchema is the persisted WellReport shape: three required object sections,
// with geology always carrying an issues list and a gas_peak number or null.
var reportSchema = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []any{"header", "specs", "geology"},
	"properties": map[string]any{
		"header": map[string]any{"type": "object"},
		"specs":  map[string]any{"type": "object"},
		"geology": map[string]any{
			"type":     "object",
			"required": []any{"issues", "gas_peak"},
			"properties": map[string]any{
				"issues":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"gas_peak": map[string]any{"type": []any{"number", "null"}},
			},
		},
	},
}

var compiledReportSchema = mustCompile(reportSchema)

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("report.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	return compiler.MustCompile("report.json")
}

// ValidateReport checks report against the WellReport JSON shape.
func ValidateReport(report domain.WellReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return ValidateReportJSON(data)
}

// ValidateReportJSON checks raw JSON against the WellReport shape.
func ValidateReportJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Wrap(domain.ErrInvalidReportShape, err)
	}
	if err := compiledReportSchema.Validate(v); err != nil {
		return domain.Wrap(domain.ErrInvalidReportShape, err)
	}
	return nil
}

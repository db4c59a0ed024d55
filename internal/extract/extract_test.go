package extract

import (
	"context"
	"testing"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderExtractor(t *testing.T) {
	text := `DAILY DRILLING REPORT
Well Name: Discovery Well #1
Operator:   Example Energy Corporation
Field: Reeves
Spud Date: 2024-01-15
Completion Date: 2024-03-20`

	got, err := NewHeaderExtractor().ExtractHeader(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"well_name":       "Discovery Well #1",
		"operator":        "Example Energy Corporation",
		"field":           "Reeves",
		"spud_date":       "2024-01-15",
		"completion_date": "2024-03-20",
		"duration_days":   65,
	}, got)
}

func TestHeaderExtractor_MissingFields(t *testing.T) {
	got, err := NewHeaderExtractor().ExtractHeader(context.Background(), "Operator: X")

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"well_name": "", "spud_date": "", "operator": "X"}, got)
}

func TestHeaderExtractor_EmptyText(t *testing.T) {
	got, err := NewHeaderExtractor().ExtractHeader(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"well_name": "", "spud_date": ""}, got)
}

func TestDurationDays(t *testing.T) {
	days, ok := DurationDays("2023-01-01", "2023-01-10")
	assert.True(t, ok)
	assert.Equal(t, 9, days)

	_, ok = DurationDays("2023-01-01", "soon")
	assert.False(t, ok)
}

func TestParseTables(t *testing.T) {
	md := "| Size | Depth |\n| --- | --- |\n| 9 5/8 | 1000 |\n\nprose\n| a\\|b | c |\n|:---|---:|"

	tables := ParseTables(md)

	require.Len(t, tables, 2)
	assert.Equal(t, []string{"Size", "Depth"}, tables[0].Header)
	assert.Equal(t, [][]string{{"9 5/8", "1000"}}, tables[0].Rows)
	assert.Equal(t, []string{"a|b", "c"}, tables[1].Header)
	assert.Empty(t, tables[1].Rows)
}

func TestParseTables_Empty(t *testing.T) {
	assert.Empty(t, ParseTables(""))
	assert.Empty(t, ParseTables("no tables here"))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"1500", 1500},
		{"1,500 m", 1500},
		{"54.5", 54.5},
		{"-3", -3},
		{"13 3/8", 13},
		{"surface", "surface"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumber(tt.in))
		})
	}
}

func TestSpecsExtractor_HeaderlessCasingRow(t *testing.T) {
	got, err := NewSpecsExtractor().ExtractSpecs(context.Background(), "| 13 3/8 | 1500 | 54.5 |\n| --- | --- | --- |")

	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"size": "13 3/8", "depth": 1500, "weight": 54.5},
	}, got[SpecsCasing])
	assert.Equal(t, []any{}, got[SpecsMud])
}

func TestSpecsExtractor_NamedColumns(t *testing.T) {
	md := "| Hole | Casing Size | Shoe Depth | Weight lb/ft |\n| --- | --- | --- | --- |\n" +
		"| 17 1/2 | 13 3/8 | 500 | 54.5 |\n| 12 1/4 | 9 5/8 | 1,500 | 40 |\n\n" +
		"| Interval | Mud Type | Density ppg |\n| --- | --- | --- |\n| 0-500 | Spud mud | 9.2 |"

	got, err := NewSpecsExtractor().ExtractSpecs(context.Background(), md)

	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"size": "13 3/8", "depth": 500, "weight": 54.5},
		map[string]any{"size": "9 5/8", "depth": 1500, "weight": 40},
	}, got[SpecsCasing])
	assert.Equal(t, []any{
		map[string]any{"interval": 0, "mud_type": "Spud mud", "density_ppg": 9.2},
	}, got[SpecsMud])
}

func TestSpecsExtractor_Empty(t *testing.T) {
	got, err := NewSpecsExtractor().ExtractSpecs(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, map[string]any{SpecsCasing: []any{}, SpecsMud: []any{}}, got)
}

func TestFieldKey(t *testing.T) {
	assert.Equal(t, "density_ppg", fieldKey(" Density (ppg) "))
	assert.Equal(t, "mud_type", fieldKey("Mud Type"))
	assert.Equal(t, "", fieldKey("--"))
}

func TestGeologyExtractor(t *testing.T) {
	text := `4.0 Geology
Drilled through the Wolfcamp Formation into Bone Spring Formation.
Background gas 2% with gas peak of 12.5% at 2100 m.
Partial losses while drilling shale.
Connection gas 8 %.
Partial losses while drilling shale.`

	got, err := NewGeologyExtractor().ExtractGeology(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, []any{
		"Background gas 2% with gas peak of 12.5% at 2100 m.",
		"Partial losses while drilling shale.",
	}, got[domain.GeologyIssues])
	assert.Equal(t, 12.5, got[domain.GeologyGasPeak])
	assert.Equal(t, []any{"Wolfcamp Formation", "Bone Spring Formation"}, got[GeologyFormations])
}

func TestGeologyExtractor_EmptyInput(t *testing.T) {
	got, err := NewGeologyExtractor().ExtractGeology(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, domain.EmptyGeology(), got)
}

func TestGeologyExtractor_CustomKeywords(t *testing.T) {
	got, err := NewGeologyExtractor("H2S").ExtractGeology(context.Background(), "h2s detected at 900 m\nstuck pipe")

	require.NoError(t, err)
	assert.Equal(t, []any{"h2s detected at 900 m"}, got[domain.GeologyIssues])
	assert.Nil(t, got[domain.GeologyGasPeak])
}

func TestValidateReport(t *testing.T) {
	ok := domain.WellReport{
		Header:  map[string]any{"well_name": "A"},
		Specs:   map[string]any{},
		Geology: domain.EmptyGeology(),
	}
	require.NoError(t, ValidateReport(ok))

	bad := domain.WellReport{
		Header:  map[string]any{},
		Specs:   map[string]any{},
		Geology: map[string]any{"issues": []any{}},
	}
	assert.ErrorIs(t, ValidateReport(bad), domain.ErrInvalidReportShape)
}

func TestValidateReportJSON(t *testing.T) {
	assert.NoError(t, ValidateReportJSON([]byte(`{"header":{},"specs":{},"geology":{"issues":[],"gas_peak":4.5}}`)))
	assert.ErrorIs(t, ValidateReportJSON([]byte(`{"header":{},"specs":{}}`)), domain.ErrInvalidReportShape)
	assert.ErrorIs(t, ValidateReportJSON([]byte(`{"header":null,"specs":{},"geology":{"issues":[],"gas_peak":null}}`)), domain.ErrInvalidReportShape)
	assert.ErrorIs(t, ValidateReportJSON([]byte(`not json`)), domain.ErrInvalidReportShape)
}

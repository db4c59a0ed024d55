package domain

// Geology keys that always exist in a report.
const (
	GeologyIssues  = "issues"
	GeologyGasPeak = "gas_peak"
)

// WellReport is the merged three-section record. Every section is always present.
type WellReport struct {
	Header  map[string]any `json:"header"`
	Specs   map[string]any `json:"specs"`
	Geology map[string]any `json:"geology"`
}

// EmptyHeader returns the canonical empty header section.
func EmptyHeader() map[string]any { return map[string]any{} }

// EmptySpecs returns the canonical empty specs section.
func EmptySpecs() map[string]any { return map[string]any{} }

// EmptyGeology returns the canonical empty geology section.
func EmptyGeology() map[string]any {
	return map[string]any{
		GeologyIssues:  []any{},
		GeologyGasPeak: nil,
	}
}

// Package extract holds the rule-based field extractors for well reports.
package extract

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the date format recognised in report headers.
const DateLayout = "2006-01-02"

type headerField struct {
	key      string
	pattern  *regexp.Regexp
	required bool
}

func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?mi)^[ \t]*` + label + `[ \t]*:[ \t]*(.+?)[ \t]*$`)
}

var headerFields = []headerField{
	{key: "well_name", pattern: labelPattern(`Well\s+Name`), required: true},
	{key: "operator", pattern: labelPattern(`Operator`)},
	{key: "field", pattern: labelPattern(`Field`)},
	{key: "rig", pattern: labelPattern(`Rig`)},
	{key: "spud_date", pattern: labelPattern(`Spud\s+Date`), required: true},
	{key: "completion_date", pattern: labelPattern(`Completion\s+Date`)},
}

// HeaderExtractor reads labelled "Key: value" lines from page-1 text.
// well_name and spud_date are always present, empty when not found.
type HeaderExtractor struct{}

// NewHeaderExtractor creates a HeaderExtractor.
func NewHeaderExtractor() *HeaderExtractor {
	return &HeaderExtractor{}
}

func (e *HeaderExtractor) ExtractHeader(ctx context.Context, text string) (map[string]any, error) {
	out := make(map[string]any, len(headerFields)+1)
	for _, f := range headerFields {
		m := f.pattern.FindStringSubmatch(text)
		switch {
		case m != nil:
			out[f.key] = strings.TrimSpace(m[1])
		case f.required:
			out[f.key] = ""
		}
	}

	spud, _ := out["spud_date"].(string)
	completion, _ := out["completion_date"].(string)
	if days, ok := DurationDays(spud, completion); ok {
		out["duration_days"] = days
	}
	return out, nil
}

// DurationDays returns the whole days between two DateLayout dates.
func DurationDays(start, end string) (int, bool) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return 0, false
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return 0, false
	}
	return int(e.Sub(s).Hours() / 24), true
}

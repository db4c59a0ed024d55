package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
)

// GeologyFormations lists formation names found in the geology block.
const GeologyFormations = "formations"

// DefaultIssueKeywords are the drilling problems reported as geology issues.
var DefaultIssueKeywords = []string{
	"lost circulation", "losses", "kick", "influx", "stuck", "washout",
	"gas peak", "cavings", "tight hole", "fishing",
}

var (
	percentPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	formationPattern = regexp.MustCompile(`\b((?:[A-Z][a-zA-Z]*\s+)+)Formation\b`)
)

// GeologyExtractor finds drilling issues, the peak gas reading and formations.
type GeologyExtractor struct {
	keywords []string
}

// NewGeologyExtractor creates a GeologyExtractor. No keywords means DefaultIssueKeywords.
func NewGeologyExtractor(keywords ...string) *GeologyExtractor {
	if len(keywords) == 0 {
		keywords = DefaultIssueKeywords
	}
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	return &GeologyExtractor{keywords: lower}
}

// ExtractGeology never fails on empty input: it returns the empty geology shape.
func (e *GeologyExtractor) ExtractGeology(ctx context.Context, text string) (map[string]any, error) {
	out := domain.EmptyGeology()

	issues := []any{}
	seenIssue := map[string]bool{}
	var peak *float64
	formations := []any{}
	seenFormation := map[string]bool{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if !seenIssue[line] && e.isIssue(lower) {
			issues = append(issues, line)
			seenIssue[line] = true
		}

		if strings.Contains(lower, "gas") {
			for _, m := range percentPattern.FindAllStringSubmatch(line, -1) {
				v, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					continue
				}
				if peak == nil || v > *peak {
					peak = &v
				}
			}
		}

		for _, m := range formationPattern.FindAllStringSubmatch(line, -1) {
			name := strings.TrimSpace(m[1]) + " Formation"
			if !seenFormation[name] {
				formations = append(formations, name)
				seenFormation[name] = true
			}
		}
	}

	out[domain.GeologyIssues] = issues
	if peak != nil {
		out[domain.GeologyGasPeak] = *peak
	}
	if len(formations) > 0 {
		out[GeologyFormations] = formations
	}
	return out, nil
}

func (e *GeologyExtractor) isIssue(lower string) bool {
	for _, k := range e.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

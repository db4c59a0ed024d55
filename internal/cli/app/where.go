package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
)

// ParseWhere turns repeated key=value flags into a filter. Values parse as an
// integer, then a float, then a bool, else stay strings; quote a value
// ("page='3'") to keep it a string.
func ParseWhere(pairs []string) (domain.Filter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(domain.Filter, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --where %q: expected key=value", pair)
		}
		if _, dup := filter[key]; dup {
			return nil, fmt.Errorf("invalid --where %q: duplicate key %s", pair, key)
		}
		filter[key] = parseValue(strings.TrimSpace(raw))
	}
	return filter, nil
}

func parseValue(raw string) any {
	if len(raw) >= 2 {
		if q := raw[0]; (q == '\'' || q == '"') && raw[len(raw)-1] == q {
			return raw[1 : len(raw)-1]
		}
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && strings.ContainsAny(raw, "0123456789") {
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

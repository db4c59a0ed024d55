package domain

import (
	"math"
	"sort"
)

// SanitizeResult is the outcome of SanitizeMetadata.
type SanitizeResult struct {
	Clean   map[string]any
	Dropped []string
}

// SanitizeMetadata keeps only scalar values (string, bool, integers, floats) and
// reports every key it removed. Integers are normalised to int64 and floats to
// float64 so equality filters compare like with like. It never fails.
func SanitizeMetadata(meta map[string]any) SanitizeResult {
	res := SanitizeResult{Clean: make(map[string]any, len(meta))}
	for k, v := range meta {
		norm, ok := NormalizeScalar(v)
		if !ok {
			res.Dropped = append(res.Dropped, k)
			continue
		}
		res.Clean[k] = norm
	}
	sort.Strings(res.Dropped)
	return res
}

// NormalizeScalar maps a scalar value onto string, bool, int64 or float64.
// Unsigned values above math.MaxInt64 become float64 rather than wrapping.
// The second return is false for nil and every non-scalar value.
func NormalizeScalar(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return t, true
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return unsignedScalar(uint64(t)), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return unsignedScalar(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return nil, false
	}
}

// ScalarEqual compares two scalars after normalisation. Values of different
// kinds never match, so the string "1" is not equal to the integer 1.
func ScalarEqual(a, b any) bool {
	na, ok := NormalizeScalar(a)
	if !ok {
		return false
	}
	nb, ok := NormalizeScalar(b)
	if !ok {
		return false
	}
	return na == nb
}

// Filter is an exact-match metadata filter; all pairs must match.
type Filter map[string]any

// Validate rejects filters carrying non-scalar values.
func (f Filter) Validate() error {
	for _, v := range f {
		if _, ok := NormalizeScalar(v); !ok {
			return ErrInvalidFilter
		}
	}
	return nil
}

// Matches reports whether meta satisfies every pair of the filter.
func (f Filter) Matches(meta map[string]any) bool {
	for k, want := range f {
		got, ok := meta[k]
		if !ok || !ScalarEqual(got, want) {
			return false
		}
	}
	return true
}

func unsignedScalar(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize maps a scalar onto the representation used for equality tests.
// Numeric kinds collapse onto float64 so 8001 and 8001.0 are equal, but a
// string never equals a number: "08001" and 8001 stay distinct.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// SameValue reports whether a and b are equal under typed equality.
func SameValue(a, b any) bool {
	na, nb := Normalize(a), Normalize(b)
	if !hashable(na) || !hashable(nb) {
		return false
	}
	return na == nb
}

// Index maps each distinct value of a column to the position of its first
// occurrence, matching a left-to-right linear scan.
type Index map[any]int

// NewIndex builds the first-occurrence index of values.
func NewIndex(values []any) Index {
	idx := make(Index, len(values))
	for i, v := range values {
		k := Normalize(v)
		if !hashable(k) {
			continue
		}
		if _, seen := idx[k]; !seen {
			idx[k] = i
		}
	}
	return idx
}

// Lookup returns the first position holding v.
func (idx Index) Lookup(v any) (int, bool) {
	k := Normalize(v)
	if !hashable(k) {
		return 0, false
	}
	i, ok := idx[k]
	return i, ok
}

// ToFloat converts numbers and numeric strings to finite float64 values.
// Strings may carry surrounding whitespace, a leading dollar sign and
// thousands separators. NaN and infinities are rejected.
func ToFloat(v any) (float64, bool) {
	switch n := Normalize(v).(type) {
	case float64:
		return n, IsFinite(n)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		s = strings.TrimPrefix(s, "$")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && IsFinite(f)
	default:
		return 0, false
	}
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ParseFloat is an Apply function turning a column into float64 values.
// Empty strings and nil become nil.
func ParseFloat(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, ok := ToFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: %v (%T) is not numeric", ErrValidation, v, v)
	}
	return f, nil
}

func hashable(v any) bool {
	switch v.(type) {
	case nil, string, float64, bool:
		return true
	default:
		return false
	}
}

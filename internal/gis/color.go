package gis

import (
	"fmt"
	"math"

	"civicmap/internal/types"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// MissingValues are the Census annotation codes that stand in for missing
// estimates, plus nil. See
// https://www.census.gov/data/developers/data-sets/acs-1year/notes-on-acs-estimate-and-annotation-values.html
var MissingValues = []any{
	nil,
	-999999999,
	-888888888,
	-666666666,
	-555555555,
	-333333333,
	-222222222,
}

// Default choropleth colors.
const (
	DefaultLowColor      = "#764aed"
	DefaultHighColor     = "#fc6665"
	DefaultFallbackColor = "grey"
)

// IsMissing reports whether v is one of the sentinels.
func IsMissing(v any, sentinels []any) bool {
	for _, s := range sentinels {
		if types.SameValue(v, s) {
			return true
		}
	}
	return false
}

// ColorScale maps a value within [lo, hi] to a CSS color.
type ColorScale interface {
	Color(lo, hi, value float64) string
}

// LinearScale interpolates in RGB between two colors. Values outside
// [lo, hi] are clamped.
type LinearScale struct {
	Low  colorful.Color
	High colorful.Color
}

// NewLinearScale parses two hex colors such as "#764aed".
func NewLinearScale(low, high string) (LinearScale, error) {
	lo, err := colorful.Hex(low)
	if err != nil {
		return LinearScale{}, fmt.Errorf("%w: low color %q: %v", types.ErrValidation, low, err)
	}
	hi, err := colorful.Hex(high)
	if err != nil {
		return LinearScale{}, fmt.Errorf("%w: high color %q: %v", types.ErrValidation, high, err)
	}
	return LinearScale{Low: lo, High: hi}, nil
}

// DefaultScale returns the purple-to-red scale used when none is configured.
func DefaultScale() LinearScale {
	s, _ := NewLinearScale(DefaultLowColor, DefaultHighColor)
	return s
}

// Color implements ColorScale.
func (s LinearScale) Color(lo, hi, value float64) string {
	t := 0.0
	if hi > lo {
		t = (value - lo) / (hi - lo)
	}
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Min(1, math.Max(0, t))
	return s.Low.BlendRgb(s.High, t).Clamped().Hex()
}

// valueRange returns the min and max of the numeric, non-missing values.
func valueRange(values []any, sentinels []any) (float64, float64, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for i, v := range values {
		if IsMissing(v, sentinels) {
			continue
		}
		f, ok := types.Normalize(v).(float64)
		if !ok {
			return 0, 0, fmt.Errorf("%w: value %v (%T) at row %d is not numeric", types.ErrValidation, v, v, i)
		}
		if !types.IsFinite(f) {
			return 0, 0, fmt.Errorf("%w: value %v at row %d is not a finite number", types.ErrValidation, f, i)
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
		n++
	}
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: no values left to color by after removing missing-data codes", types.ErrValidation)
	}
	return lo, hi, nil
}

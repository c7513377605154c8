package gis

import (
	"fmt"
	"path/filepath"

	"civicmap/internal/types"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// Alias pairs a feature property with the label shown for it in the tooltip.
type Alias struct {
	Field string
	Alias string
}

// MapOptions controls MakeMap. The zero value draws every feature in the
// base style with a tooltip of every joined column.
type MapOptions struct {
	// ColorBy names a numeric dataset column to shade features by.
	ColorBy string
	// Include selects the tooltip rows: nil for every joined column,
	// []string for those fields, or []Alias for fields with labels.
	Include any
	// JoinOnAlias, when set, shows the join field first under this label.
	JoinOnAlias string
	// Map receives the layer when set.
	Map *Map
	// SaveTo writes the map as HTML to this path when set.
	SaveTo string
	// Trim narrows the shapefile to the joined features before reading it.
	Trim bool

	Scale         ColorScale
	Style         Style
	FallbackColor string
	MissingValues []any
}

// DefaultStyle is the outline style of every map layer.
var DefaultStyle = Style{Color: "black", Weight: 2, FillOpacity: 0.5}

func (o MapOptions) withDefaults() MapOptions {
	if o.Scale == nil {
		o.Scale = DefaultScale()
	}
	if o.Style == (Style{}) {
		o.Style = DefaultStyle
	}
	if o.FallbackColor == "" {
		o.FallbackColor = DefaultFallbackColor
	}
	if o.MissingValues == nil {
		o.MissingValues = MissingValues
	}
	return o
}

// MakeMap reads the shapefile at path, joins data onto its features by the
// joinOn column and returns a styled layer. data is never modified.
func MakeMap(path string, data *types.Dataset, joinOn string, opts MapOptions) (*Layer, error) {
	opts = opts.withDefaults()

	joiner, props, err := splitJoin(data, joinOn)
	if err != nil {
		return nil, err
	}
	if opts.ColorBy != "" && !props.Has(opts.ColorBy) {
		return nil, fmt.Errorf("%w: color_by column %q not found in the data's keys %v",
			types.ErrLookup, opts.ColorBy, props.Columns())
	}
	tooltip, err := buildTooltip(opts.Include, props.Columns(), joinOn, opts.JoinOnAlias)
	if err != nil {
		return nil, err
	}

	path = ResolvePath(path)
	if opts.Trim {
		trimmed, err := Trim(path, joinOn, joiner, "")
		if err != nil {
			return nil, err
		}
		path = trimmed
	}

	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	join(fc, joiner, props, joinOn)

	style, err := styleFunc(opts, props)
	if err != nil {
		return nil, err
	}

	layer := &Layer{
		Name:    filepath.Base(path),
		Data:    fc,
		Style:   style,
		Tooltip: tooltip,
	}
	zap.L().Debug("built map layer",
		zap.String("layer", layer.Name),
		zap.Int("features", len(fc.Features)),
		zap.Int("rows", len(joiner)))

	if opts.Map != nil {
		layer.AddTo(opts.Map)
	}
	if opts.SaveTo != "" {
		if err := saveLayer(layer, opts.Map, opts.SaveTo); err != nil {
			return nil, err
		}
	}
	return layer, nil
}

// styleFunc returns the base style, shaded by the ColorBy column when set.
func styleFunc(opts MapOptions, props *types.Dataset) (StyleFunc, error) {
	base := opts.Style
	if opts.ColorBy == "" {
		return func(*geojson.Feature) Style { return base }, nil
	}

	values, _ := props.Column(opts.ColorBy)
	lo, hi, err := valueRange(values, opts.MissingValues)
	if err != nil {
		return nil, fmt.Errorf("color_by %q: %w", opts.ColorBy, err)
	}

	field := opts.ColorBy
	return func(f *geojson.Feature) Style {
		s := base
		v := f.Properties[field]
		x, ok := types.Normalize(v).(float64)
		if !ok || IsMissing(v, opts.MissingValues) {
			s.FillColor = opts.FallbackColor
			return s
		}
		s.FillColor = opts.Scale.Color(lo, hi, x)
		return s
	}, nil
}

// buildTooltip resolves the Include option against the joined columns.
func buildTooltip(include any, columns []string, joinOn, joinOnAlias string) (Tooltip, error) {
	t := Tooltip{Localize: true}

	switch inc := include.(type) {
	case nil:
		t.Fields = append([]string{}, columns...)
		t.Aliases = append([]string{}, columns...)
	case []string:
		t.Fields = append([]string{}, inc...)
		t.Aliases = append([]string{}, inc...)
	case []Alias:
		for _, a := range inc {
			t.Fields = append(t.Fields, a.Field)
			t.Aliases = append(t.Aliases, a.Alias)
		}
	default:
		return Tooltip{}, fmt.Errorf("%w: include must be []string or []gis.Alias, got %T; "+
			"use []gis.Alias{{Field, Alias}} for renamed fields in a fixed order", types.ErrUsage, include)
	}

	if joinOnAlias != "" {
		t.Fields = append([]string{joinOn}, t.Fields...)
		t.Aliases = append([]string{joinOnAlias}, t.Aliases...)
	}
	if t.Fields == nil {
		t.Fields, t.Aliases = []string{}, []string{}
	}
	return t, nil
}

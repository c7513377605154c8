package gis

import (
	"fmt"
	"strings"

	"civicmap/internal/types"

	"github.com/paulmach/orb/geojson"
)

// splitJoin validates data and separates the join column (the joiner) from
// the columns that will be merged onto features. data itself is not touched.
func splitJoin(data *types.Dataset, joinOn string) ([]any, *types.Dataset, error) {
	if data == nil {
		return nil, nil, fmt.Errorf("%w: no data to join", types.ErrUsage)
	}
	if !data.Has(joinOn) {
		return nil, nil, fmt.Errorf("%w: the join_on parameter %q was not found in the data's keys: [%s]",
			types.ErrLookup, joinOn, strings.Join(data.Columns(), ", "))
	}
	if err := data.Validate(); err != nil {
		return nil, nil, err
	}

	work := data.Clone()
	joiner, _ := work.Delete(joinOn)
	return joiner, work, nil
}

// Join copies dataset rows onto features whose joinOn property matches the
// dataset's joinOn column. Every other dataset column is first set to nil on
// every feature so all features share one property schema. A feature takes
// the row of the first matching joiner entry; features without the property
// or without a match keep the nils and are never dropped.
//
// Matching is typed: a string "08001" does not match the number 8001.
func Join(fc *geojson.FeatureCollection, data *types.Dataset, joinOn string) error {
	joiner, props, err := splitJoin(data, joinOn)
	if err != nil {
		return err
	}
	join(fc, joiner, props, joinOn)
	return nil
}

func join(fc *geojson.FeatureCollection, joiner []any, props *types.Dataset, joinOn string) {
	names := props.Columns()
	cols := make([][]any, len(names))
	for i, name := range names {
		cols[i], _ = props.Column(name)
	}
	idx := types.NewIndex(joiner)

	for _, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = make(geojson.Properties, len(names))
		}
		for _, name := range names {
			f.Properties[name] = nil
		}

		key, ok := f.Properties[joinOn]
		if !ok {
			continue
		}
		row, ok := idx.Lookup(key)
		if !ok {
			continue
		}
		for i, name := range names {
			f.Properties[name] = cols[i][row]
		}
	}
}

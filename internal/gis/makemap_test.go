package gis

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"civicmap/internal/types"

	"github.com/google/go-cmp/cmp"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collection(props ...geojson.Properties) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range props {
		f := geojson.NewFeature(orb.Point{0, 0})
		f.Properties = p
		fc.Append(f)
	}
	return fc
}

func dataset(t *testing.T, cols ...any) *types.Dataset {
	t.Helper()
	d := types.NewDataset()
	for i := 0; i < len(cols); i += 2 {
		require.NoError(t, d.Set(cols[i].(string), cols[i+1]))
	}
	return d
}

func TestJoin(t *testing.T) {
	t.Parallel()

	fc := collection(
		geojson.Properties{"GEOID": "1"},
		geojson.Properties{"GEOID": "2"},
		geojson.Properties{"GEOID": "3"},
		geojson.Properties{"NAME": "no key"},
	)
	data := dataset(t,
		"GEOID", []string{"2", "1", "1"},
		"pop", []int{20, 10, 11},
		"name", []string{"two", "one", "one again"},
	)
	require.NoError(t, Join(fc, data, "GEOID"))

	want := []geojson.Properties{
		{"GEOID": "1", "pop": 10, "name": "one"},
		{"GEOID": "2", "pop": 20, "name": "two"},
		{"GEOID": "3", "pop": nil, "name": nil},
		{"NAME": "no key", "pop": nil, "name": nil},
	}
	for i, f := range fc.Features {
		if diff := cmp.Diff(want[i], f.Properties); diff != "" {
			t.Errorf("feature %d properties mismatch (-want +got):\n%s", i, diff)
		}
	}
	assert.Equal(t, []string{"GEOID", "pop", "name"}, data.Columns(), "data must not change")
}

func TestJoinTypedEquality(t *testing.T) {
	t.Parallel()

	fc := collection(
		geojson.Properties{"GEOID": int64(8001)},
		geojson.Properties{"GEOID": int64(5)},
	)
	data := dataset(t,
		"GEOID", []any{"08001", 5.0},
		"v", []string{"string key", "numeric key"},
	)
	require.NoError(t, Join(fc, data, "GEOID"))

	assert.Nil(t, fc.Features[0].Properties["v"])
	assert.Equal(t, "numeric key", fc.Features[1].Properties["v"])
}

func TestJoinValidation(t *testing.T) {
	t.Parallel()

	t.Run("unknown join column", func(t *testing.T) {
		data := dataset(t, "GEOID", []string{"1"}, "pop", []int{1})
		err := Join(collection(), data, "geoid")
		require.ErrorIs(t, err, types.ErrLookup)
		assert.Contains(t, err.Error(), "GEOID, pop")
	})

	t.Run("ragged columns", func(t *testing.T) {
		data := dataset(t, "GEOID", []string{"1", "2"}, "pop", []int{1})
		assert.ErrorIs(t, Join(collection(), data, "GEOID"), types.ErrValidation)
	})

	t.Run("no data", func(t *testing.T) {
		assert.ErrorIs(t, Join(collection(), nil, "GEOID"), types.ErrUsage)
	})
}

func TestLinearScale(t *testing.T) {
	t.Parallel()
	s := DefaultScale()

	assert.Equal(t, DefaultLowColor, s.Color(0, 10, 0))
	assert.Equal(t, DefaultHighColor, s.Color(0, 10, 10))
	assert.Equal(t, DefaultHighColor, s.Color(0, 10, 99), "clamped")
	assert.Equal(t, DefaultLowColor, s.Color(5, 5, 5), "flat range")
	assert.Equal(t, DefaultLowColor, s.Color(0, 10, math.NaN()), "NaN value")

	_, err := NewLinearScale("not a color", "#000000")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestValueRange(t *testing.T) {
	t.Parallel()

	lo, hi, err := valueRange([]any{nil, 3, -999999999, 7.5, int64(-2)}, MissingValues)
	require.NoError(t, err)
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 7.5, hi)

	_, _, err = valueRange([]any{nil, -666666666}, MissingValues)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, _, err = valueRange([]any{1, "two"}, MissingValues)
	assert.ErrorIs(t, err, types.ErrValidation)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, _, err = valueRange([]any{100.0, bad, 200.0}, MissingValues)
		assert.ErrorIs(t, err, types.ErrValidation, "%v", bad)
	}
}

func TestEverySentinelFallsBack(t *testing.T) {
	t.Parallel()
	opts := MapOptions{ColorBy: "v", FallbackColor: "#cccccc"}.withDefaults()

	// Each code as the CLI's --numeric produces it (float64), as an API
	// integer and as a database int64.
	var cases []any
	for _, m := range MissingValues {
		if m == nil {
			cases = append(cases, nil)
			continue
		}
		n := m.(int)
		cases = append(cases, float64(n), n, int64(n))
	}
	require.Len(t, cases, 1+3*(len(MissingValues)-1))

	values := append([]any{10.0, 20.0}, cases...)
	props := dataset(t, "v", values)
	style, err := styleFunc(opts, props)
	require.NoError(t, err)

	for _, v := range cases {
		assert.True(t, IsMissing(v, MissingValues), "IsMissing(%#v)", v)
		f := geojson.NewFeature(orb.Point{0, 0})
		f.Properties = geojson.Properties{"v": v}
		assert.Equal(t, "#cccccc", style(f).FillColor, "value %#v", v)
	}

	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties = geojson.Properties{"v": 20.0}
	assert.Equal(t, DefaultHighColor, style(f).FillColor)

	missing := geojson.NewFeature(orb.Point{0, 0})
	assert.Equal(t, "#cccccc", style(missing).FillColor, "feature without the property")

	for _, v := range []any{0, -1.0, "-999999999", -999999998} {
		assert.False(t, IsMissing(v, MissingValues), "IsMissing(%#v)", v)
	}
}

func TestBounds(t *testing.T) {
	t.Parallel()

	b, err := Bounds([]float64{-105, 39, -104, 40})
	require.NoError(t, err)
	assert.Equal(t, [2][2]float64{{39, -105}, {40, -104}}, b)

	b, err = Bounds([]float64{-105, 39, 0, -104, 40, 10})
	require.NoError(t, err)
	assert.Equal(t, [2][2]float64{{39, -105}, {40, -104}}, b)

	_, err = Bounds([]float64{1, 2, 3})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestBuildTooltip(t *testing.T) {
	t.Parallel()
	cols := []string{"income", "name"}

	tests := []struct {
		name    string
		include any
		alias   string
		want    Tooltip
	}{
		{
			name: "all columns",
			want: Tooltip{Fields: cols, Aliases: cols, Localize: true},
		},
		{
			name:    "field list",
			include: []string{"name"},
			want:    Tooltip{Fields: []string{"name"}, Aliases: []string{"name"}, Localize: true},
		},
		{
			name:    "aliases in order",
			include: []Alias{{Field: "name", Alias: "Tract"}, {Field: "income", Alias: "Median income"}},
			want:    Tooltip{Fields: []string{"name", "income"}, Aliases: []string{"Tract", "Median income"}, Localize: true},
		},
		{
			name:    "join field shown first",
			include: []string{"income"},
			alias:   "GEOID",
			want:    Tooltip{Fields: []string{"GEOID", "income"}, Aliases: []string{"GEOID", "income"}, Localize: true},
		},
		{
			name:    "empty list",
			include: []string{},
			want:    Tooltip{Fields: []string{}, Aliases: []string{}, Localize: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildTooltip(tt.include, cols, "GEOID", tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := buildTooltip(map[string]string{"name": "Tract"}, cols, "GEOID", "")
	require.ErrorIs(t, err, types.ErrUsage)
	assert.Contains(t, err.Error(), "[]gis.Alias")
}

func tracts(t *testing.T, dir string) string {
	t.Helper()
	return writePolygons(t, dir, "tracts",
		[]shp.Field{shp.StringField("GEOID", 5)},
		[]fixture{
			{rings: [][]shp.Point{square(-105, 39, -104.5, 39.5)}, attrs: []string{"01"}},
			{rings: [][]shp.Point{square(-104.5, 39, -104, 39.5)}, attrs: []string{"02"}},
			{rings: [][]shp.Point{square(-104, 39, -103.5, 40)}, attrs: []string{"03"}},
		})
}

func incomeData(t *testing.T) *types.Dataset {
	return dataset(t,
		"GEOID", []string{"02", "01", "09"},
		"income", []any{200, 100, 5},
		"name", []string{"Tract 2", "Tract 1", "Elsewhere"},
	)
}

func TestMakeMap(t *testing.T) {
	t.Parallel()
	path := tracts(t, t.TempDir())
	data := incomeData(t)
	before := data.Clone()

	layer, err := MakeMap(path, data, "GEOID", MapOptions{ColorBy: "income"})
	require.NoError(t, err)

	assert.Equal(t, "tracts.shp", layer.Name)
	require.Len(t, layer.Data.Features, 3)
	assert.Equal(t, []float64{-105, 39, -103.5, 40}, []float64(layer.Data.BBox))

	f := layer.Data.Features
	assert.Equal(t, 100, f[0].Properties["income"])
	assert.Equal(t, "Tract 2", f[1].Properties["name"])
	assert.Nil(t, f[2].Properties["income"])
	assert.Nil(t, f[2].Properties["name"])

	// The color range comes from the whole column, so 5 is the low end.
	assert.Equal(t, DefaultHighColor, layer.Style(f[1]).FillColor)
	assert.NotEqual(t, DefaultLowColor, layer.Style(f[0]).FillColor)
	assert.Equal(t, DefaultFallbackColor, layer.Style(f[2]).FillColor)

	s := layer.Style(f[0])
	assert.Equal(t, "black", s.Color)
	assert.Equal(t, 2.0, s.Weight)
	assert.Equal(t, 0.5, s.FillOpacity)

	assert.Equal(t, []string{"income", "name"}, layer.Tooltip.Fields)

	if diff := cmp.Diff(before.Columns(), data.Columns()); diff != "" {
		t.Errorf("data columns changed (-before +after):\n%s", diff)
	}
	for _, name := range before.Columns() {
		want, _ := before.Column(name)
		got, _ := data.Column(name)
		assert.Equal(t, want, got, name)
	}
}

func TestMakeMapIsRepeatable(t *testing.T) {
	t.Parallel()
	path := tracts(t, t.TempDir())
	data := incomeData(t)

	first, err := MakeMap(path, data, "GEOID", MapOptions{})
	require.NoError(t, err)
	second, err := MakeMap(path, data, "GEOID", MapOptions{})
	require.NoError(t, err)

	for i := range first.Data.Features {
		if diff := cmp.Diff(first.Data.Features[i].Properties, second.Data.Features[i].Properties); diff != "" {
			t.Errorf("feature %d differs between runs:\n%s", i, diff)
		}
	}
	assert.Empty(t, first.Style(first.Data.Features[0]).FillColor)
}

func TestMakeMapMissingValues(t *testing.T) {
	t.Parallel()
	path := tracts(t, t.TempDir())

	data := dataset(t,
		"GEOID", []string{"01", "02"},
		"income", []any{-666666666, 50},
	)
	layer, err := MakeMap(path, data, "GEOID", MapOptions{ColorBy: "income", FallbackColor: "#cccccc"})
	require.NoError(t, err)
	assert.Equal(t, "#cccccc", layer.Style(layer.Data.Features[0]).FillColor)
	assert.Equal(t, DefaultLowColor, layer.Style(layer.Data.Features[1]).FillColor)

	allMissing := dataset(t,
		"GEOID", []string{"01", "02"},
		"income", []any{nil, -999999999},
	)
	_, err = MakeMap(path, allMissing, "GEOID", MapOptions{ColorBy: "income"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestMakeMapRejectsNonFiniteValues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := tracts(t, dir)
	out := filepath.Join(dir, "nan.html")

	data := dataset(t,
		"GEOID", []string{"01", "02", "03"},
		"income", []any{math.NaN(), 100.0, 200.0},
	)
	_, err := MakeMap(path, data, "GEOID", MapOptions{ColorBy: "income", SaveTo: out})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.NoFileExists(t, out)
}

func TestMakeMapSaveKeepsZeroStyle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := tracts(t, dir)
	out := filepath.Join(dir, "outline.html")

	_, err := MakeMap(path, incomeData(t), "GEOID", MapOptions{
		Style:  Style{Color: "black", Weight: 0, FillOpacity: 0},
		SaveTo: out,
	})
	require.NoError(t, err)

	page, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(page), `"weight":0`)
	assert.Contains(t, string(page), `"fillOpacity":0`)
}

func TestMakeMapErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := tracts(t, dir)

	_, err := MakeMap(path, incomeData(t), "geoid", MapOptions{})
	assert.ErrorIs(t, err, types.ErrLookup)

	_, err = MakeMap(path, incomeData(t), "GEOID", MapOptions{ColorBy: "population"})
	assert.ErrorIs(t, err, types.ErrLookup)

	_, err = MakeMap(path, incomeData(t), "GEOID", MapOptions{ColorBy: "name"})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = MakeMap(path, incomeData(t), "GEOID", MapOptions{Include: "income"})
	assert.ErrorIs(t, err, types.ErrUsage)

	_, err = MakeMap(filepath.Join(dir, "missing"), incomeData(t), "GEOID", MapOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMakeMapTrim(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := tracts(t, dir)

	layer, err := MakeMap(path, incomeData(t), "GEOID", MapOptions{Trim: true})
	require.NoError(t, err)
	assert.Equal(t, "tracts_trimmed.shp", layer.Name)
	require.Len(t, layer.Data.Features, 2)
	assert.FileExists(t, filepath.Join(dir, "tracts_trimmed.shp"))
}

func TestMakeMapSave(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := tracts(t, dir)
	out := filepath.Join(dir, "maps", "income.html")

	m := NewMap()
	layer, err := MakeMap(path, incomeData(t), "GEOID", MapOptions{
		ColorBy:     "income",
		Include:     []Alias{{Field: "income", Alias: "Median <income>"}},
		JoinOnAlias: "Tract",
		Map:         m,
		SaveTo:      out,
	})
	require.NoError(t, err)
	require.Len(t, m.Layers(), 1)
	assert.Same(t, layer, m.Layers()[0])

	page, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "L.geoJSON")
	assert.Contains(t, html, "tracts.shp")
	assert.Contains(t, html, "basemaps.cartocdn.com")
	assert.Contains(t, html, DefaultHighColor)
	assert.NotContains(t, html, "Median <income>")
	assert.True(t, strings.Contains(html, "map.fitBounds"))
	assert.Contains(t, html, "[[39,-105],[40,-103.5]]")
}

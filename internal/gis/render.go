package gis

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"civicmap/internal/types"

	"github.com/paulmach/orb/geojson"
)

// Default base map.
const (
	DefaultTiles       = "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`
)

//go:embed map.html.tmpl
var mapTemplateText string

var mapTemplate = template.Must(template.New("map").Parse(mapTemplateText))

// Style is the Leaflet path style of one feature. A zero Weight or
// FillOpacity is drawn as given.
type Style struct {
	Color       string  `json:"color,omitempty"`
	Weight      float64 `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
	FillColor   string  `json:"fillColor,omitempty"`
}

// StyleFunc picks the style of a feature.
type StyleFunc func(*geojson.Feature) Style

// Tooltip lists the feature properties shown on hover, in order, with the
// label shown for each. Localize formats numbers for the reader's locale.
type Tooltip struct {
	Fields   []string `json:"fields"`
	Aliases  []string `json:"aliases"`
	Localize bool     `json:"localize"`
}

// Layer is a styled feature collection ready to be drawn on a Map.
type Layer struct {
	Name    string
	Data    *geojson.FeatureCollection
	Style   StyleFunc
	Tooltip Tooltip
}

// AddTo attaches the layer to m and returns the layer.
func (l *Layer) AddTo(m *Map) *Layer {
	m.AddLayer(l)
	return l
}

// Map is an interactive web map made of a tiled base map and vector layers.
type Map struct {
	Tiles       string
	Attribution string
	Center      [2]float64
	Zoom        int

	layers []*Layer
	bounds *[2][2]float64
}

// NewMap returns a map using the default tiles, centered on the contiguous US.
func NewMap() *Map {
	return &Map{
		Tiles:       DefaultTiles,
		Attribution: DefaultAttribution,
		Center:      [2]float64{39.8, -98.6},
		Zoom:        4,
	}
}

// AddLayer appends a layer; layers are drawn in the order they were added.
func (m *Map) AddLayer(l *Layer) {
	m.layers = append(m.layers, l)
}

// Layers returns the layers attached to m.
func (m *Map) Layers() []*Layer {
	return m.layers
}

// FitBounds sets the viewport to the [[south, west], [north, east]] corners.
func (m *Map) FitBounds(b [2][2]float64) {
	m.bounds = &b
}

// Bounds converts a GeoJSON bbox ([minX, minY, maxX, maxY], or the 3-D
// [minX, minY, minZ, maxX, maxY, maxZ]) into Leaflet's
// [[minLat, minLon], [maxLat, maxLon]] order.
func Bounds(bbox []float64) ([2][2]float64, error) {
	switch len(bbox) {
	case 4:
		return [2][2]float64{{bbox[1], bbox[0]}, {bbox[3], bbox[2]}}, nil
	case 6:
		return [2][2]float64{{bbox[1], bbox[0]}, {bbox[4], bbox[3]}}, nil
	default:
		return [2][2]float64{}, fmt.Errorf("%w: bbox must hold 4 or 6 numbers, got %d", types.ErrValidation, len(bbox))
	}
}

type layerView struct {
	Name     string
	Features template.JS
	Styles   template.JS
	Tooltip  template.JS
}

type mapView struct {
	Tiles       string
	Attribution template.HTML
	Center      template.JS
	Zoom        int
	Bounds      template.JS
	Layers      []layerView
}

func jsValue(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

func (l *Layer) view() (layerView, error) {
	fc := l.Data
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	features, err := fc.MarshalJSON()
	if err != nil {
		return layerView{}, fmt.Errorf("encode layer %s: %w", l.Name, err)
	}

	styles := make([]Style, len(fc.Features))
	for i, f := range fc.Features {
		if l.Style == nil {
			styles[i] = DefaultStyle
			continue
		}
		styles[i] = l.Style(f)
	}
	s, err := jsValue(styles)
	if err != nil {
		return layerView{}, err
	}
	tt, err := jsValue(l.Tooltip)
	if err != nil {
		return layerView{}, err
	}
	return layerView{Name: l.Name, Features: template.JS(features), Styles: s, Tooltip: tt}, nil
}

// Save writes the map as a standalone HTML page.
func (m *Map) Save(path string) error {
	center, err := jsValue(m.Center)
	if err != nil {
		return err
	}
	view := mapView{
		Tiles:       m.Tiles,
		Attribution: template.HTML(m.Attribution),
		Center:      center,
		Zoom:        m.Zoom,
		Bounds:      "null",
	}
	if m.bounds != nil {
		if view.Bounds, err = jsValue(m.bounds); err != nil {
			return err
		}
	}
	for _, l := range m.layers {
		lv, err := l.view()
		if err != nil {
			return err
		}
		view.Layers = append(view.Layers, lv)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create map %s: %w", path, err)
	}
	if err := mapTemplate.Execute(f, view); err != nil {
		f.Close()
		return fmt.Errorf("render map %s: %w", path, err)
	}
	return f.Close()
}

// saveLayer draws layer on m (a new default map when nil), zooms to the
// layer's bbox and writes the page to path.
func saveLayer(layer *Layer, m *Map, path string) error {
	if m == nil {
		m = NewMap()
		m.AddLayer(layer)
	}
	if layer.Data != nil && len(layer.Data.BBox) > 0 {
		b, err := Bounds(layer.Data.BBox)
		if err != nil {
			return err
		}
		m.FitBounds(b)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return m.Save(path)
}

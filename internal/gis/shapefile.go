package gis

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ResolvePath turns a user supplied shapefile location into a path ending in
// ".shp" (or ".zip"). Census downloads unpack into a directory with the same
// name as the shapefile inside it, so a directory d holding d/<base(d)>.shp
// resolves to that file. A path without an extension gets ".shp" appended.
func ResolvePath(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		nested := filepath.Join(path, filepath.Base(path)+".shp")
		if _, err := os.Stat(nested); err == nil {
			return nested
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp", ".zip":
		return path
	default:
		return path + ".shp"
	}
}

// basename strips the ".shp" extension from a resolved path.
func basename(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// shapeSource is a reader over one shapefile together with whatever the
// underlying format exposes about its declared geometry type.
type shapeSource struct {
	shp.SequentialReader
	geometryType shp.ShapeType
	typeKnown    bool
}

// openShapes opens a resolved .shp or .zip path for sequential reading.
func openShapes(path string) (*shapeSource, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		zr, err := shp.OpenZip(path)
		if err != nil {
			return nil, fmt.Errorf("open shapefile archive %s: %w", path, err)
		}
		return &shapeSource{SequentialReader: zr}, nil
	}

	// shp.Open does not report a missing attribute table; it just has no fields.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	if _, err := os.Stat(basename(path) + ".dbf"); err != nil {
		return nil, fmt.Errorf("open attribute table: %w", err)
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	return &shapeSource{SequentialReader: r, geometryType: r.GeometryType, typeKnown: true}, nil
}

// fieldIndex returns the position of the named field in the DBF schema.
func fieldIndex(fields []shp.Field, name string) int {
	for i, f := range fields {
		if f.String() == name {
			return i
		}
	}
	return -1
}

func fieldNames(fields []shp.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return names
}

// fieldValue converts a raw DBF cell into a typed scalar the way the field
// declares it: integers for whole numeric fields, floats for decimal ones,
// booleans for logical ones and strings otherwise. Blank numbers are nil.
func fieldValue(f shp.Field, raw string) any {
	raw = strings.Trim(raw, " \t\r\n\x00")
	switch f.Fieldtype {
	case 'N':
		if raw == "" || strings.Trim(raw, "*") == "" {
			return nil
		}
		if f.Precision == 0 {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n
			}
		}
		if x, err := strconv.ParseFloat(raw, 64); err == nil {
			return x
		}
		return raw
	case 'F':
		if raw == "" {
			return nil
		}
		if x, err := strconv.ParseFloat(raw, 64); err == nil {
			return x
		}
		return raw
	case 'L':
		switch strings.ToUpper(raw) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		default:
			return nil
		}
	default:
		return raw
	}
}

// record reads the typed attributes of the current row.
func record(src shp.SequentialReader, fields []shp.Field) geojson.Properties {
	props := make(geojson.Properties, len(fields))
	for i, f := range fields {
		props[f.String()] = fieldValue(f, src.Attribute(i))
	}
	return props
}

// shapeParts splits the flat point list of a multi-part shape into rings.
// Parts holds the start index of each ring; the last runs to the end.
func shapeParts(parts []int32, points []shp.Point) [][]shp.Point {
	out := make([][]shp.Point, 0, len(parts))
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if start < 0 || start > end || end > len(points) {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

// polygonShape returns the parts and points of any polygon variant.
func polygonShape(s shp.Shape) ([]int32, []shp.Point, bool) {
	switch p := s.(type) {
	case *shp.Polygon:
		return p.Parts, p.Points, true
	case *shp.PolygonZ:
		return p.Parts, p.Points, true
	case *shp.PolygonM:
		return p.Parts, p.Points, true
	default:
		return nil, nil, false
	}
}

func isPolygonType(t shp.ShapeType) bool {
	return t == shp.POLYGON || t == shp.POLYGONZ || t == shp.POLYGONM
}

func toRing(points []shp.Point) orb.Ring {
	r := make(orb.Ring, len(points))
	for i, p := range points {
		r[i] = orb.Point{p.X, p.Y}
	}
	return r
}

func toLine(points []shp.Point) orb.LineString {
	return orb.LineString(toRing(points))
}

// shapeGeometry converts a shapefile shape into an orb geometry. Polygon rings
// follow the shapefile winding rule: clockwise rings start a new polygon and
// counter-clockwise rings are holes of the polygon before them.
func shapeGeometry(s shp.Shape) orb.Geometry {
	if parts, points, ok := polygonShape(s); ok {
		var polys orb.MultiPolygon
		for _, ring := range shapeParts(parts, points) {
			r := toRing(ring)
			if len(r) == 0 {
				continue
			}
			if len(polys) == 0 || r.Orientation() != orb.CCW {
				polys = append(polys, orb.Polygon{r})
				continue
			}
			last := len(polys) - 1
			polys[last] = append(polys[last], r)
		}
		if len(polys) == 1 {
			return polys[0]
		}
		return polys
	}

	switch g := s.(type) {
	case *shp.Point:
		return orb.Point{g.X, g.Y}
	case *shp.PointZ:
		return orb.Point{g.X, g.Y}
	case *shp.PointM:
		return orb.Point{g.X, g.Y}
	case *shp.MultiPoint:
		return multiPoint(g.Points)
	case *shp.MultiPointZ:
		return multiPoint(g.Points)
	case *shp.MultiPointM:
		return multiPoint(g.Points)
	case *shp.PolyLine:
		return lines(g.Parts, g.Points)
	case *shp.PolyLineZ:
		return lines(g.Parts, g.Points)
	case *shp.PolyLineM:
		return lines(g.Parts, g.Points)
	default:
		return nil
	}
}

func multiPoint(points []shp.Point) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

func lines(parts []int32, points []shp.Point) orb.Geometry {
	var mls orb.MultiLineString
	for _, part := range shapeParts(parts, points) {
		mls = append(mls, toLine(part))
	}
	if len(mls) == 1 {
		return mls[0]
	}
	return mls
}

// ReadFeatureCollection loads every shape and record of a shapefile into a
// GeoJSON feature collection. The collection bbox is the extent of all
// shapes as a plain [minX, minY, maxX, maxY] list.
func ReadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	path = ResolvePath(path)
	src, err := openShapes(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	fields := src.Fields()
	fc := geojson.NewFeatureCollection()

	var box shp.Box
	n := 0
	for src.Next() {
		_, shape := src.Shape()
		if shape == nil {
			continue
		}
		f := geojson.NewFeature(shapeGeometry(shape))
		f.Properties = record(src, fields)
		fc.Append(f)

		if _, isNull := shape.(*shp.Null); !isNull {
			if n == 0 {
				box = shape.BBox()
			} else {
				box.Extend(shape.BBox())
			}
			n++
		}
	}
	if err := src.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}

	if n > 0 {
		fc.BBox = geojson.BBox{box.MinX, box.MinY, box.MaxX, box.MaxY}
	}
	return fc, nil
}

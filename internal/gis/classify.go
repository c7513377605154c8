package gis

import (
	"fmt"

	"civicmap/internal/types"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"
)

// CoordinatesInShape reports, for each point (xs[i], ys[i]), the recordKey
// value of the first polygon in file order that contains it, or nil when no
// polygon does. Points use the shapefile's own axis order, which is
// (longitude, latitude) for geographic data.
//
// Every ring of a feature is tested as an independent simple polygon; holes
// are not subtracted. Boundaries and vertices count as inside. Once a point is
// assigned it is never overwritten by a later polygon. There is no spatial
// index, so this is meant for small polygon layers.
func CoordinatesInShape(xs, ys []float64, path, recordKey string) ([]any, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: got %d x coordinates and %d y coordinates; they must be the same length",
			types.ErrValidation, len(xs), len(ys))
	}

	path = ResolvePath(path)
	src, err := openShapes(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if src.typeKnown && !isPolygonType(src.geometryType) {
		return nil, fmt.Errorf("%w: %s has shape type %d; containment needs a polygon shapefile",
			types.ErrValidation, path, src.geometryType)
	}

	fields := src.Fields()
	key := fieldIndex(fields, recordKey)
	if key < 0 {
		return nil, fmt.Errorf("%w: record key %q not found in %s; fields are %v",
			types.ErrLookup, recordKey, path, fieldNames(fields))
	}

	points := make([]orb.Point, len(xs))
	for i := range xs {
		points[i] = orb.Point{xs[i], ys[i]}
	}
	ids := make([]any, len(points))
	assigned := make([]bool, len(points))
	remaining := len(points)

	log := zap.L()
	log.Info("reading shapefile", zap.String("path", path))

	n := 0
	for src.Next() {
		_, shape := src.Shape()
		if _, isNull := shape.(*shp.Null); isNull || shape == nil {
			continue
		}
		parts, pts, ok := polygonShape(shape)
		if !ok {
			return nil, fmt.Errorf("%w: %s holds a %T; containment needs polygons", types.ErrValidation, path, shape)
		}
		n++
		log.Debug("checking shape", zap.Int("shape", n))
		if remaining == 0 {
			continue
		}

		value := fieldValue(fields[key], src.Attribute(key))
		for _, ring := range shapeParts(parts, pts) {
			r := toRing(ring)
			if len(r) == 0 {
				continue
			}
			for i, p := range points {
				if assigned[i] || !planar.RingContains(r, p) {
					continue
				}
				ids[i] = value
				assigned[i] = true
				remaining--
			}
		}
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	return ids, nil
}

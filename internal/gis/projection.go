package gis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"civicmap/internal/types"
)

// Projector converts longitude/latitude in decimal degrees into the planar
// coordinates of a projected shapefile.
type Projector interface {
	Forward(lon, lat float64) (x, y float64)
}

// LambertConformal is a two standard parallel Lambert Conformal Conic
// projection on an ellipsoid. Angles are degrees; SemiMajor and the false
// origin are in the output unit.
type LambertConformal struct {
	Lat0, Lon0    float64
	Lat1, Lat2    float64
	FalseEasting  float64
	FalseNorthing float64
	SemiMajor     float64
	E2            float64
}

const (
	ftPerMeter = 3.2808333333333334 // US survey foot
	grs80A     = 6378137.0          // NAD83 semi-major axis (metres)
	grs80E2    = 0.00669438002290   // NAD83 eccentricity squared
)

// TexasNorthCentral is NAD83 / Texas North Central (ftUS), EPSG:2276.
var TexasNorthCentral = LambertConformal{
	Lat0:          31.66666666666667,
	Lon0:          -98.5,
	Lat1:          32.13333333333333,
	Lat2:          33.96666666666667,
	FalseEasting:  1968500.0,
	FalseNorthing: 6561666.666666666,
	SemiMajor:     grs80A * ftPerMeter,
	E2:            grs80E2,
}

// Projections are the named projections accepted by LookupProjection.
var Projections = map[string]Projector{
	"epsg:2276": TexasNorthCentral,
}

// LookupProjection returns a projection by its EPSG name, e.g. "EPSG:2276".
func LookupProjection(name string) (Projector, error) {
	if p, ok := Projections[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	known := make([]string, 0, len(Projections))
	for k := range Projections {
		known = append(known, k)
	}
	sort.Strings(known)
	return nil, fmt.Errorf("%w: unknown projection %q, known: %v", types.ErrLookup, name, known)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func (p LambertConformal) m(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-p.E2*s*s)
}

func (p LambertConformal) t(phi float64) float64 {
	e := math.Sqrt(p.E2)
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
}

// Forward implements Projector.
func (p LambertConformal) Forward(lon, lat float64) (x, y float64) {
	phi0, phi1, phi2 := radians(p.Lat0), radians(p.Lat1), radians(p.Lat2)
	m1, m2 := p.m(phi1), p.m(phi2)
	t1, t2 := p.t(phi1), p.t(phi2)

	n := math.Log(m1/m2) / math.Log(t1/t2)
	f := m1 / (n * math.Pow(t1, n))
	rho0 := p.SemiMajor * f * math.Pow(p.t(phi0), n)
	rho := p.SemiMajor * f * math.Pow(p.t(radians(lat)), n)
	theta := n * radians(lon-p.Lon0)

	x = p.FalseEasting + rho*math.Sin(theta)
	y = p.FalseNorthing + rho0 - rho*math.Cos(theta)
	return x, y
}

// ProjectAll converts parallel longitude and latitude slices in place.
func ProjectAll(p Projector, xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("%w: got %d x coordinates and %d y coordinates; they must be the same length",
			types.ErrValidation, len(xs), len(ys))
	}
	for i := range xs {
		xs[i], ys[i] = p.Forward(xs[i], ys[i])
	}
	return nil
}

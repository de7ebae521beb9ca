package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the mean Earth radius used by the spherical distance model.
const EarthRadiusMeters = 6371000.0

// Immutable geographic position in WGS84 degrees.
//
// Providers and callers exchange positions as [lon, lat] pairs; every adapter converts
// them into GeoPoint at the parse boundary so nothing downstream deals with axis order.
type GeoPoint struct {
	Lon float64
	Lat float64
}

// Return the point as [lon, lat] for external API compatibility.
func (p GeoPoint) CoordsToList() []float64 { return []float64{p.Lon, p.Lat} }

// Return the point as an orb.Point (lon, lat).
func (p GeoPoint) Orb() orb.Point { return orb.Point{p.Lon, p.Lat} }

// Build a GeoPoint from a provider [lon, lat] pair.
func GeoPointFromList(c []float64) (GeoPoint, bool) {
	if len(c) != 2 {
		return GeoPoint{}, false
	}
	p := GeoPoint{Lon: c[0], Lat: c[1]}
	if !p.Valid() {
		return GeoPoint{}, false
	}
	return p, true
}

// Valid reports whether the point lies within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b GeoPoint) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon

	// Rounding can push h just past 1 for near-antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// PathLength sums the haversine distance between consecutive points.
func PathLength(points []GeoPoint) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

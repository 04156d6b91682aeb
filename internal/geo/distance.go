package geo

import (
	"math"

	"github.com/ukydev/ambulance-tracker/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by HaversineKm.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b models.Location) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return EarthRadiusKm * c
}

// Lerp moves a toward b by fraction t on each axis independently.
func Lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// BearingDegrees returns the initial bearing from a to b, 0 is north, in [0, 360).
func BearingDegrees(a, b models.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Offset returns base shifted by the given degree deltas.
func Offset(base models.Location, dLat, dLon float64) models.Location {
	return models.Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

// JitterMeters returns a point up to meters away from base on each axis,
// using u and v in [-1, 1] as the random factors.
func JitterMeters(base models.Location, meters, u, v float64) models.Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	return models.Location{
		Lat: base.Lat + u*(meters/latMetersPerDeg),
		Lon: base.Lon + v*(meters/lonMetersPerDeg),
	}
}

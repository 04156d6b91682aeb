package geo

import (
	"github.com/mmcloughlin/geohash"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// DefaultGeohashPrecision gives cells of roughly 150m, enough to bucket map markers.
const DefaultGeohashPrecision uint = 7

// Geohash encodes loc at the given precision.
func Geohash(loc models.Location, precision uint) string {
	return geohash.EncodeWithPrecision(loc.Lat, loc.Lon, precision)
}

// GeohashNeighbors returns the eight cells surrounding hash.
func GeohashNeighbors(hash string) []string {
	return geohash.Neighbors(hash)
}

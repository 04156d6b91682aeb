package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/ukydev/ambulance-tracker/internal/models"
)

// ErrInvalidCoordinate is returned for NaN, infinite or out-of-range coordinates.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate rejects coordinates that would corrupt distance math.
func Validate(loc models.Location) error {
	if math.IsNaN(loc.Lat) || math.IsInf(loc.Lat, 0) || math.IsNaN(loc.Lon) || math.IsInf(loc.Lon, 0) {
		return fmt.Errorf("%w: non-finite value (%v, %v)", ErrInvalidCoordinate, loc.Lat, loc.Lon)
	}
	if loc.Lat < -90 || loc.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, loc.Lat)
	}
	if loc.Lon < -180 || loc.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, loc.Lon)
	}
	return nil
}

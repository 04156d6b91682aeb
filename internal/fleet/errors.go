package fleet

import (
	"errors"

	"github.com/ukydev/ambulance-tracker/internal/geo"
)

var (
	ErrInvalidCoordinate = geo.ErrInvalidCoordinate
	ErrInvalidRequest    = errors.New("invalid dispatch request")
	ErrVehicleNotFound   = errors.New("vehicle not found")
	ErrVehicleNotArrived = errors.New("vehicle has not arrived")
	ErrEmptyFleet        = errors.New("fleet seed is empty")
	ErrDuplicateVehicle  = errors.New("duplicate vehicle id")
)

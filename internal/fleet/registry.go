package fleet

import (
	"fmt"

	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// vehicle is the mutable record behind a models.Vehicle.
type vehicle struct {
	models.Vehicle

	// legStartKm is the distance to target when the current leg began; the
	// enroute speed ramp is measured from it.
	legStartKm float64
	// episode changes on every dispatch and recycle so timers armed for an
	// earlier episode can tell they are stale.
	episode uint64
}

func (s *Service) newVehicle(sv SeedVehicle) (*vehicle, error) {
	pos := geo.Offset(s.reference, sv.DLat, sv.DLon)
	if sv.Position != nil {
		pos = *sv.Position
	}
	if err := geo.Validate(pos); err != nil {
		return nil, fmt.Errorf("seed vehicle %s: %w", sv.ID, err)
	}

	v := &vehicle{Vehicle: models.Vehicle{
		ID:        sv.ID,
		CallSign:  sv.CallSign,
		Position:  pos,
		Status:    sv.Status,
		RequestID: sv.RequestID,
	}}
	if sv.Destination != nil {
		if err := geo.Validate(sv.Destination.Location); err != nil {
			return nil, fmt.Errorf("seed vehicle %s destination: %w", sv.ID, err)
		}
		d := *sv.Destination
		v.Destination = &d
	}

	switch v.Status {
	case models.StatusWaiting, models.StatusArrived:
		v.Speed = 0
	case models.StatusDispatched:
		v.Speed = sv.Speed
		if v.Speed <= 0 {
			v.Speed = s.cfg.DispatchSpeedKmh
		}
	case models.StatusEnroute:
		v.Speed = sv.Speed
		if v.Speed <= 0 {
			v.Speed = s.cfg.CruiseSpeedKmh
		}
	}

	s.measure(v)
	v.legStartKm = v.DistanceKm
	return v, nil
}

// targetOf returns the point v converges on: its destination if it has one,
// the rider location otherwise.
func (s *Service) targetOf(v *vehicle) models.Location {
	if v.Destination != nil {
		return v.Destination.Location
	}
	return s.reference
}

// measure recomputes every field derived from position and target.
func (s *Service) measure(v *vehicle) {
	target := s.targetOf(v)
	v.DistanceKm = geo.HaversineKm(v.Position, target)
	if v.DistanceKm > 0 {
		v.Heading = geo.BearingDegrees(v.Position, target)
	}
	v.ETAMinutes = s.eta(v)
	v.Geohash = geo.Geohash(v.Position, s.cfg.GeohashPrecision)
}

func (s *Service) eta(v *vehicle) int {
	if v.Status == models.StatusArrived {
		return 0
	}
	if m, ok := geo.ETAMinutes(v.DistanceKm, v.Speed); ok {
		return m
	}
	return s.cfg.ETASentinel
}

func (s *Service) findLocked(pred func(*vehicle) bool) *vehicle {
	for _, v := range s.vehicles {
		if pred(v) {
			return v
		}
	}
	return nil
}

func (s *Service) byIDLocked(id string) *vehicle {
	return s.findLocked(func(v *vehicle) bool { return v.ID == id })
}

func copyVehicle(v *vehicle) models.Vehicle {
	out := v.Vehicle
	if v.Destination != nil {
		d := *v.Destination
		out.Destination = &d
	}
	return out
}

// snapshotLocked copies the fleet. bump advances the sequence number and is
// set for snapshots that are about to be broadcast.
func (s *Service) snapshotLocked(bump bool) models.Snapshot {
	if bump {
		s.sequence++
	}
	out := models.Snapshot{
		Sequence:  s.sequence,
		Timestamp: s.now(),
		Vehicles:  make([]models.Vehicle, len(s.vehicles)),
	}
	for i, v := range s.vehicles {
		out.Vehicles[i] = copyVehicle(v)
	}
	return out
}

// Snapshot returns a value copy of the whole fleet.
func (s *Service) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(false)
}

// ListVehicles returns a value copy of every vehicle in fleet order.
func (s *Service) ListVehicles() []models.Vehicle {
	return s.Snapshot().Vehicles
}

// FindVehicle returns the first vehicle, in fleet order, matching pred.
func (s *Service) FindVehicle(pred func(models.Vehicle) bool) (models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vehicles {
		c := copyVehicle(v)
		if pred(c) {
			return c, true
		}
	}
	return models.Vehicle{}, false
}

// Vehicle returns the vehicle with the given id.
func (s *Service) Vehicle(id string) (models.Vehicle, bool) {
	return s.FindVehicle(func(v models.Vehicle) bool { return v.ID == id })
}

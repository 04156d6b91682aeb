package models

import "time"

// VehicleStatus is the dispatch state of a simulated ambulance.
type VehicleStatus string

const (
	StatusWaiting    VehicleStatus = "waiting"
	StatusDispatched VehicleStatus = "dispatched"
	StatusEnroute    VehicleStatus = "enroute"
	StatusArrived    VehicleStatus = "arrived"
)

// IsValid reports whether s is one of the four known statuses.
func (s VehicleStatus) IsValid() bool {
	switch s {
	case StatusWaiting, StatusDispatched, StatusEnroute, StatusArrived:
		return true
	default:
		return false
	}
}

// IsMoving reports whether vehicles in this status advance on every tick.
func (s VehicleStatus) IsMoving() bool {
	return s == StatusDispatched || s == StatusEnroute
}

// Vehicle is a value copy of one ambulance as seen by subscribers.
type Vehicle struct {
	ID          string        `bson:"id" json:"id"`
	CallSign    string        `bson:"display_label" json:"display_label"`
	Position    Location      `bson:"position" json:"position"`
	Status      VehicleStatus `bson:"status" json:"status"`
	Speed       float64       `bson:"speed" json:"speed"` // km/h
	DistanceKm  float64       `bson:"distance_km" json:"distance_km"`
	ETAMinutes  int           `bson:"eta_minutes" json:"eta_minutes"`
	Heading     float64       `bson:"heading" json:"heading"` // degrees, 0 is north
	Destination *Destination  `bson:"destination,omitempty" json:"destination,omitempty"`
	RequestID   string        `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Geohash     string        `bson:"geohash" json:"geohash"`
}

// Snapshot is the ordered fleet state pushed to every subscriber.
type Snapshot struct {
	Sequence  uint64    `bson:"sequence" json:"sequence"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Vehicles  []Vehicle `bson:"vehicles" json:"vehicles"`
}

// Vehicle returns the vehicle with the given id.
func (s Snapshot) Vehicle(id string) (Vehicle, bool) {
	for _, v := range s.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Telemetry is one recorded trail point of a moving vehicle.
type Telemetry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID  string             `bson:"vehicle_id" json:"vehicle_id"`
	RequestID  string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	Location   Location           `bson:"location" json:"location"`
	Speed      float64            `bson:"speed" json:"speed"`
	Status     VehicleStatus      `bson:"status" json:"status"`
	DistanceKm float64            `bson:"distance_km" json:"distance_km"`
	ETAMinutes int                `bson:"eta_minutes" json:"eta_minutes"`
}

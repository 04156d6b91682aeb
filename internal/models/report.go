package models

import "time"

// ReportStatus tracks an accident report from submission to completion.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportProcessing ReportStatus = "processing"
	ReportResponded  ReportStatus = "responded"
	ReportCompleted  ReportStatus = "completed"
)

// Report represents an accident report and the ambulance assigned to it.
type Report struct {
	ID          string       `json:"id" bson:"_id"`
	Description string       `json:"description" bson:"description"`
	Location    Location     `json:"location" bson:"location"`
	Address     string       `json:"address,omitempty" bson:"address,omitempty"`
	Status      ReportStatus `json:"status" bson:"status"`
	VehicleID   string       `json:"vehicle_id,omitempty" bson:"vehicle_id,omitempty"`
	ETAMinutes  int          `json:"eta_minutes,omitempty" bson:"eta_minutes,omitempty"`
	DistanceKm  float64      `json:"distance_km,omitempty" bson:"distance_km,omitempty"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
	RespondedAt *time.Time   `json:"responded_at,omitempty" bson:"responded_at,omitempty"`

	// DispatchSequence is the fleet snapshot sequence produced by the
	// dispatch; older snapshots say nothing about this assignment.
	DispatchSequence uint64 `json:"-" bson:"dispatch_sequence,omitempty"`
}

// CreateReportRequest is the payload accepted when a rider reports an accident.
type CreateReportRequest struct {
	Description string   `json:"description"`
	Location    Location `json:"location"`
	Address     string   `json:"address,omitempty"`
}

// DispatchRequest asks for an idle ambulance to be sent to a destination.
type DispatchRequest struct {
	RequestID   string      `json:"request_id"`
	Destination Destination `json:"destination"`
}

// DispatchResult reports the outcome of a dispatch. Assigned is false when
// every vehicle is busy.
type DispatchResult struct {
	RequestID  string  `json:"request_id"`
	Assigned   bool    `json:"assigned"`
	VehicleID  string  `json:"vehicle_id,omitempty"`
	DistanceKm float64 `json:"distance_km,omitempty"`
	ETAMinutes int     `json:"eta_minutes,omitempty"`
	Sequence   uint64  `json:"sequence,omitempty"`
}

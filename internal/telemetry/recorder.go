// Package telemetry records the trail of moving vehicles.
package telemetry

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/db"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Recorder turns fleet snapshots into trail points. Observe only queues;
// Run performs the inserts.
type Recorder struct {
	coll    db.TelemetryCollection
	queue   chan models.Telemetry
	timeout time.Duration

	mu      sync.Mutex
	lastSeq uint64
	status  map[string]models.VehicleStatus
}

func NewRecorder(coll db.TelemetryCollection, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		coll:    coll,
		queue:   make(chan models.Telemetry, buffer),
		timeout: 5 * time.Second,
		status:  make(map[string]models.VehicleStatus),
	}
}

// Observe queues one point per moving vehicle, plus one for any vehicle whose
// status changed, so the trail ends where the vehicle arrived. Snapshots that
// were already seen are ignored.
func (r *Recorder) Observe(snap models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.Sequence != 0 && snap.Sequence <= r.lastSeq {
		return
	}
	r.lastSeq = snap.Sequence

	for _, v := range snap.Vehicles {
		prev, seen := r.status[v.ID]
		r.status[v.ID] = v.Status
		if !v.Status.IsMoving() && (!seen || prev == v.Status) {
			continue
		}
		point := models.Telemetry{
			VehicleID:  v.ID,
			RequestID:  v.RequestID,
			Timestamp:  snap.Timestamp,
			Location:   v.Position,
			Speed:      v.Speed,
			Status:     v.Status,
			DistanceKm: v.DistanceKm,
			ETAMinutes: v.ETAMinutes,
		}
		select {
		case r.queue <- point:
		default:
			log.WithField("vehicle_id", v.ID).Warn("Telemetry queue full, dropping point")
		}
	}
}

// Run stores queued points until ctx is done.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case point := <-r.queue:
			insertCtx, cancel := context.WithTimeout(ctx, r.timeout)
			err := r.coll.InsertTelemetry(insertCtx, point)
			cancel()
			if err != nil {
				log.WithError(err).WithField("vehicle_id", point.VehicleID).Error("Failed to store telemetry")
			}
		}
	}
}

package fleet

import (
	"fmt"

	"github.com/ukydev/ambulance-tracker/internal/models"
)

// SeedVehicle describes one vehicle created at construction. Position, when
// set, is absolute; otherwise the vehicle is placed at the reference point
// shifted by DLat/DLon degrees.
type SeedVehicle struct {
	ID          string
	CallSign    string
	DLat, DLon  float64
	Position    *models.Location
	Status      models.VehicleStatus
	Speed       float64
	Destination *models.Destination
	RequestID   string
}

// DefaultSeed is a four-vehicle fleet showing every status.
func DefaultSeed() []SeedVehicle {
	return []SeedVehicle{
		{ID: "amb-1", CallSign: "Alpha-12", DLat: 0.008, DLon: 0.015, Status: models.StatusEnroute, Speed: 45},
		{ID: "amb-2", CallSign: "Bravo-45", DLat: -0.015, DLon: -0.02, Status: models.StatusWaiting},
		{ID: "amb-3", CallSign: "Delta-78", DLat: -0.03, DLon: 0.04, Status: models.StatusDispatched, Speed: 20},
		{ID: "amb-4", CallSign: "Echo-31", DLat: 0.0006, DLon: -0.0008, Status: models.StatusArrived},
	}
}

// SeedFromSnapshot rebuilds a seed from a checkpointed snapshot so a restarted
// process resumes with the same vehicles, positions and assignments.
func SeedFromSnapshot(snap models.Snapshot) []SeedVehicle {
	seed := make([]SeedVehicle, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		pos := v.Position
		sv := SeedVehicle{
			ID:        v.ID,
			CallSign:  v.CallSign,
			Position:  &pos,
			Status:    v.Status,
			Speed:     v.Speed,
			RequestID: v.RequestID,
		}
		if v.Destination != nil {
			d := *v.Destination
			sv.Destination = &d
		}
		seed = append(seed, sv)
	}
	return seed
}

func validateSeed(seed []SeedVehicle) error {
	if len(seed) == 0 {
		return ErrEmptyFleet
	}
	seen := make(map[string]struct{}, len(seed))
	for _, sv := range seed {
		if sv.ID == "" {
			return fmt.Errorf("seed vehicle %q: empty id", sv.CallSign)
		}
		if _, dup := seen[sv.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateVehicle, sv.ID)
		}
		seen[sv.ID] = struct{}{}
		if !sv.Status.IsValid() {
			return fmt.Errorf("seed vehicle %s: unknown status %q", sv.ID, sv.Status)
		}
	}
	return nil
}

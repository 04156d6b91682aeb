package fleet

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Dispatch sends the first waiting vehicle to dest. When every vehicle is
// busy the result has Assigned == false and nothing changes; an error is only
// returned for invalid input. The assigned vehicle's distance and ETA are
// computed before Dispatch returns, and the update loop is started if idle.
func (s *Service) Dispatch(requestID string, dest models.Destination) (models.DispatchResult, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return models.DispatchResult{}, fmt.Errorf("%w: empty request id", ErrInvalidRequest)
	}
	if err := geo.Validate(dest.Location); err != nil {
		return models.DispatchResult{}, fmt.Errorf("destination: %w", err)
	}
	result := models.DispatchResult{RequestID: requestID}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	v := s.findLocked(func(v *vehicle) bool { return v.Status == models.StatusWaiting })
	if v == nil {
		s.mu.Unlock()
		log.WithField("request_id", requestID).Warn("No vehicle available for dispatch")
		return result, nil
	}

	v.episode++
	v.Status = models.StatusDispatched
	v.Speed = s.cfg.DispatchSpeedKmh
	d := dest
	v.Destination = &d
	v.RequestID = requestID
	s.measure(v)
	v.legStartKm = v.DistanceKm

	if s.tracking {
		s.scheduleMobilizationLocked(v)
	} else {
		s.startLocked()
	}

	result.Assigned = true
	result.VehicleID = v.ID
	result.DistanceKm = v.DistanceKm
	result.ETAMinutes = v.ETAMinutes
	snap := s.snapshotLocked(true)
	result.Sequence = snap.Sequence
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"request_id":  requestID,
		"vehicle_id":  result.VehicleID,
		"distance_km": result.DistanceKm,
		"eta_minutes": result.ETAMinutes,
	}).Info("Vehicle dispatched")

	s.broadcaster.Publish(snap)
	return result, nil
}

func (s *Service) scheduleMobilizationLocked(v *vehicle) {
	if t, ok := s.timers[v.ID]; ok {
		t.Stop()
	}
	id, episode, gen := v.ID, v.episode, s.generation
	s.timers[id] = time.AfterFunc(s.cfg.MobilizationDelay, func() {
		s.mobilize(id, episode, gen)
	})
}

// mobilize moves a dispatched vehicle to enroute. Timers from an earlier
// tracking session or an earlier dispatch episode are ignored.
func (s *Service) mobilize(id string, episode, gen uint64) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if !s.tracking || gen != s.generation {
		s.mu.Unlock()
		return
	}
	v := s.byIDLocked(id)
	if v == nil || v.episode != episode || v.Status != models.StatusDispatched {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)

	v.Status = models.StatusEnroute
	v.Speed = s.cfg.CruiseSpeedKmh
	v.legStartKm = v.DistanceKm
	s.measure(v)
	snap := s.snapshotLocked(true)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"vehicle_id": id,
		"request_id": v.RequestID,
	}).Info("Vehicle enroute")
	s.broadcaster.Publish(snap)
}

// Recycle returns an arrived vehicle to the waiting pool and clears its
// assignment.
func (s *Service) Recycle(id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	v := s.byIDLocked(id)
	if v == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	if v.Status != models.StatusArrived {
		status := v.Status
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrVehicleNotArrived, id, status)
	}
	requestID := v.RequestID

	v.episode++
	v.Status = models.StatusWaiting
	v.Speed = 0
	v.Destination = nil
	v.RequestID = ""
	s.measure(v)
	v.legStartKm = v.DistanceKm
	snap := s.snapshotLocked(true)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"vehicle_id": id,
		"request_id": requestID,
	}).Info("Vehicle recycled")
	s.broadcaster.Publish(snap)
	return nil
}

// ActiveVehicle returns the first vehicle that is dispatched or enroute.
func (s *Service) ActiveVehicle() (models.Vehicle, bool) {
	return s.FindVehicle(func(v models.Vehicle) bool { return v.Status.IsMoving() })
}

// NearestIdleVehicle returns the waiting vehicle closest to the rider.
func (s *Service) NearestIdleVehicle() (models.Vehicle, bool) {
	var (
		best  models.Vehicle
		found bool
	)
	for _, v := range s.ListVehicles() {
		if v.Status != models.StatusWaiting {
			continue
		}
		if !found || v.DistanceKm < best.DistanceKm {
			best, found = v, true
		}
	}
	return best, found
}

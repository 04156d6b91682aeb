package fleet

import (
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Tick advances the simulation by one step and broadcasts the result. The
// tracking loop calls it once per period; callers may also step manually.
func (s *Service) Tick() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.stepLocked()
	snap := s.snapshotLocked(true)
	s.mu.Unlock()

	s.broadcaster.Publish(snap)
}

// advance is the loop's tick. It does nothing if the loop that scheduled it
// belongs to an earlier tracking session.
func (s *Service) advance(gen uint64) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if !s.tracking || gen != s.generation {
		s.mu.Unlock()
		return
	}
	now := s.now()
	if late := now.Sub(s.lastTick); late > s.deadline() {
		s.missed++
		log.WithFields(log.Fields{
			"late":             late,
			"interval":         s.cfg.TickInterval,
			"missed_deadlines": s.missed,
		}).Warn("Fleet tick missed its deadline")
	}
	s.lastTick = now
	s.ticks++

	s.stepLocked()
	snap := s.snapshotLocked(true)
	s.mu.Unlock()

	s.broadcaster.Publish(snap)
}

func (s *Service) stepLocked() {
	for _, v := range s.vehicles {
		if !v.Status.IsMoving() {
			continue
		}
		target := s.targetOf(v)

		factor := s.cfg.DispatchedMoveFactor
		if v.Status == models.StatusEnroute {
			factor = s.cfg.EnrouteMoveFactor
		}
		v.Position = geo.Lerp(v.Position, target, factor)
		v.DistanceKm = geo.HaversineKm(v.Position, target)

		switch {
		case v.Status == models.StatusEnroute && v.DistanceKm < s.cfg.ArrivalThresholdKm:
			v.Status = models.StatusArrived
			v.Speed = 0
			log.WithFields(log.Fields{
				"vehicle_id": v.ID,
				"request_id": v.RequestID,
			}).Info("Vehicle arrived")
		case v.Status == models.StatusEnroute:
			v.Speed = s.enrouteSpeed(v.legStartKm, v.DistanceKm)
		default:
			v.Speed = s.cfg.DispatchSpeedKmh
		}
		s.measure(v)
	}
}

// enrouteSpeed slows the vehicle linearly as it closes in on its target.
func (s *Service) enrouteSpeed(legStartKm, distanceKm float64) float64 {
	speed := s.cfg.CruiseSpeedKmh - s.cfg.SlowdownPerKm*(legStartKm-distanceKm)
	if math.IsNaN(speed) {
		return s.cfg.MinSpeedKmh
	}
	return math.Min(s.cfg.CruiseSpeedKmh, math.Max(s.cfg.MinSpeedKmh, speed))
}

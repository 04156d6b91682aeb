// Package fleet simulates a small ambulance fleet: vehicles converge on their
// targets on a fixed cadence, move through the dispatch state machine and
// every change is pushed to subscribers as a consistent snapshot.
package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Service owns the fleet. All mutations are serialized by opMu, which is held
// for the mutation and the broadcast that follows it, so subscribers observe
// snapshots in order and never see a half-updated fleet.
type Service struct {
	cfg Config
	now func() time.Time

	opMu sync.Mutex

	mu         sync.RWMutex
	vehicles   []*vehicle
	reference  models.Location
	tracking   bool
	generation uint64
	stopCh     chan struct{}
	timers     map[string]*time.Timer
	sequence   uint64
	lastTick   time.Time
	ticks      uint64
	missed     uint64

	broadcaster *Broadcaster
}

// Option customizes a Service at construction.
type Option func(*options)

type options struct {
	cfg      Config
	seed     []SeedVehicle
	now      func() time.Time
	sequence uint64
}

// WithConfig overrides the simulation constants.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithSeed replaces the default fleet.
func WithSeed(seed []SeedVehicle) Option {
	return func(o *options) { o.seed = seed }
}

// WithClock replaces time.Now for snapshot timestamps and tick health.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSequence continues snapshot numbering after seq, typically the
// sequence of the checkpoint the fleet was restored from.
func WithSequence(seq uint64) Option {
	return func(o *options) { o.sequence = seq }
}

// New creates the fleet around reference, the rider's initial location.
func New(reference models.Location, opts ...Option) (*Service, error) {
	o := options{cfg: DefaultConfig(), seed: DefaultSeed(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if err := geo.Validate(reference); err != nil {
		return nil, fmt.Errorf("reference location: %w", err)
	}
	if err := validateSeed(o.seed); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:         o.cfg.withDefaults(),
		now:         o.now,
		reference:   reference,
		sequence:    o.sequence,
		timers:      make(map[string]*time.Timer),
		broadcaster: NewBroadcaster(),
	}
	for _, sv := range o.seed {
		v, err := s.newVehicle(sv)
		if err != nil {
			return nil, err
		}
		s.vehicles = append(s.vehicles, v)
	}

	log.WithFields(log.Fields{
		"vehicles":  len(s.vehicles),
		"reference": fmt.Sprintf("%.5f,%.5f", reference.Lat, reference.Lon),
		"tick":      s.cfg.TickInterval,
	}).Info("Fleet initialized")
	return s, nil
}

// Config returns the effective simulation constants.
func (s *Service) Config() Config {
	return s.cfg
}

// SetReferenceLocation moves the rider. Vehicles without an assigned
// destination are re-measured against the new point.
func (s *Service) SetReferenceLocation(loc models.Location) error {
	if err := geo.Validate(loc); err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.reference = loc
	for _, v := range s.vehicles {
		if v.Destination == nil {
			s.measure(v)
		}
	}
	snap := s.snapshotLocked(true)
	s.mu.Unlock()

	s.broadcaster.Publish(snap)
	return nil
}

// Reference returns the rider location.
func (s *Service) Reference() models.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reference
}

// StartTracking starts the update loop. It is a no-op when already running.
func (s *Service) StartTracking() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracking {
		s.startLocked()
	}
}

// StopTracking halts the update loop and renders pending mobilization timers
// inert. Fleet state is kept.
func (s *Service) StopTracking() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracking {
		return
	}
	s.tracking = false
	s.generation++
	close(s.stopCh)
	s.stopCh = nil
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	log.WithField("generation", s.generation).Info("Tracking stopped")
}

// IsTracking reports whether the update loop is running.
func (s *Service) IsTracking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracking
}

func (s *Service) startLocked() {
	s.tracking = true
	s.generation++
	s.stopCh = make(chan struct{})
	s.lastTick = s.now()
	go s.loop(s.generation, s.stopCh)

	for _, v := range s.vehicles {
		if v.Status == models.StatusDispatched {
			s.scheduleMobilizationLocked(v)
		}
	}
	log.WithFields(log.Fields{
		"generation": s.generation,
		"interval":   s.cfg.TickInterval,
	}).Info("Tracking started")
}

func (s *Service) loop(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.advance(gen)
		}
	}
}

// Subscribe registers fn and immediately delivers the current snapshot to it.
// A nil fn is ignored and yields a nil Subscription, whose Unsubscribe is a
// no-op.
func (s *Service) Subscribe(fn Observer) *Subscription {
	if fn == nil {
		return nil
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	sub := s.broadcaster.Add(fn)
	fn(s.Snapshot())
	return sub
}

// SubscribeChan is the channel form of Subscribe. The channel receives the
// current snapshot first and is closed when cancel is called or ctx is done.
func (s *Service) SubscribeChan(ctx context.Context, buffer int) (<-chan models.Snapshot, func()) {
	return subscribeChan(ctx, buffer, s.Subscribe)
}

// Subscribers returns the number of registered observers.
func (s *Service) Subscribers() int {
	return s.broadcaster.Len()
}

// Health describes whether the tick loop keeps its cadence.
type Health struct {
	Tracking        bool      `json:"tracking"`
	Healthy         bool      `json:"healthy"`
	Ticks           uint64    `json:"ticks"`
	MissedDeadlines uint64    `json:"missed_deadlines"`
	LastTick        time.Time `json:"last_tick"`
	Vehicles        int       `json:"vehicles"`
	Subscribers     int       `json:"subscribers"`
}

// Health reports the tick loop state. A tracking service whose last tick is
// older than MissedTickTolerance periods is unhealthy.
func (s *Service) Health() Health {
	s.mu.RLock()
	h := Health{
		Tracking:        s.tracking,
		Ticks:           s.ticks,
		MissedDeadlines: s.missed,
		LastTick:        s.lastTick,
		Vehicles:        len(s.vehicles),
	}
	s.mu.RUnlock()

	h.Subscribers = s.broadcaster.Len()
	h.Healthy = !h.Tracking || s.now().Sub(h.LastTick) <= s.deadline()
	return h
}

func (s *Service) deadline() time.Duration {
	return time.Duration(s.cfg.MissedTickTolerance) * s.cfg.TickInterval
}

// Package reports manages accident reports and the ambulance assigned to each.
//
// A report is created pending and a dispatch is attempted right away. It is
// processing while its ambulance is on the way, responded once the ambulance
// arrives and completed when that ambulance is recycled. Pending reports are
// dispatched again whenever a vehicle becomes free.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/db"
	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

var ErrInvalidReport = errors.New("invalid report")

// Dispatcher assigns an idle vehicle to a request.
type Dispatcher interface {
	Dispatch(requestID string, dest models.Destination) (models.DispatchResult, error)
}

type Service struct {
	repo     db.ReportCollection
	dispatch Dispatcher
	now      func() time.Time

	// serializes Create and Sync so a report is never dispatched twice
	syncMu sync.Mutex

	mu     sync.Mutex
	latest *models.Snapshot
	signal chan struct{}
}

func NewService(repo db.ReportCollection, dispatch Dispatcher) *Service {
	return &Service{
		repo:     repo,
		dispatch: dispatch,
		now:      time.Now,
		signal:   make(chan struct{}, 1),
	}
}

// Create stores a new report and tries to dispatch an ambulance to it.
func (s *Service) Create(ctx context.Context, req models.CreateReportRequest) (models.Report, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return models.Report{}, fmt.Errorf("%w: description is required", ErrInvalidReport)
	}
	if err := geo.Validate(req.Location); err != nil {
		return models.Report{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	older, err := s.repo.FindReports(ctx, models.ReportPending)
	if err != nil {
		return models.Report{}, fmt.Errorf("list pending reports: %w", err)
	}

	now := s.now()
	report := models.Report{
		ID:          uuid.NewString(),
		Description: req.Description,
		Location:    req.Location,
		Address:     strings.TrimSpace(req.Address),
		Status:      models.ReportPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertReport(ctx, report); err != nil {
		return models.Report{}, fmt.Errorf("insert report: %w", err)
	}
	log.WithFields(log.Fields{
		"report_id": report.ID,
		"address":   report.Address,
	}).Info("Report created")

	// Older pending reports get the first free vehicles.
	free, err := s.dispatchOldestFirst(ctx, older)
	if err != nil {
		return report, err
	}
	if !free {
		log.WithField("report_id", report.ID).Info("Older reports still waiting, report left pending")
		return report, nil
	}
	return s.tryDispatch(ctx, report)
}

// dispatchOldestFirst dispatches pending, which is ordered newest first, from
// the oldest report on. It stops at the first report left unassigned and
// reports whether every report was assigned.
func (s *Service) dispatchOldestFirst(ctx context.Context, pending []models.Report) (bool, error) {
	for i := len(pending) - 1; i >= 0; i-- {
		r, err := s.tryDispatch(ctx, pending[i])
		if err != nil {
			return false, err
		}
		if r.Status == models.ReportPending {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) tryDispatch(ctx context.Context, report models.Report) (models.Report, error) {
	res, err := s.dispatch.Dispatch(report.ID, models.Destination{Location: report.Location, Address: report.Address})
	if err != nil {
		return report, fmt.Errorf("dispatch report %s: %w", report.ID, err)
	}
	if !res.Assigned {
		log.WithField("report_id", report.ID).Info("All units busy, report left pending")
		return report, nil
	}

	report.Status = models.ReportProcessing
	report.VehicleID = res.VehicleID
	report.ETAMinutes = res.ETAMinutes
	report.DistanceKm = res.DistanceKm
	report.DispatchSequence = res.Sequence
	report.UpdatedAt = s.now()
	if err := s.repo.UpdateReport(ctx, report); err != nil {
		return report, fmt.Errorf("update report: %w", err)
	}
	return report, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Report, error) {
	return s.repo.FindReportByID(ctx, id)
}

// List returns reports newest first. An empty status lists all of them.
func (s *Service) List(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	return s.repo.FindReports(ctx, status)
}

// Observe records snap for the next Sync. It never blocks.
func (s *Service) Observe(snap models.Snapshot) {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Run syncs reports with the latest observed snapshot until ctx is done.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.signal:
			s.mu.Lock()
			snap := s.latest
			s.mu.Unlock()
			if snap == nil {
				continue
			}
			if err := s.Sync(ctx, *snap); err != nil {
				log.WithError(err).Warn("Report sync failed")
			}
		}
	}
}

// Sync advances open reports to match the fleet and dispatches pending
// reports, oldest first, when the snapshot shows a free vehicle.
func (s *Service) Sync(ctx context.Context, snap models.Snapshot) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	for _, status := range []models.ReportStatus{models.ReportProcessing, models.ReportResponded} {
		open, err := s.repo.FindReports(ctx, status)
		if err != nil {
			return fmt.Errorf("list %s reports: %w", status, err)
		}
		for _, r := range open {
			if next, changed := s.advance(r, snap); changed {
				if err := s.repo.UpdateReport(ctx, next); err != nil {
					return fmt.Errorf("update report %s: %w", r.ID, err)
				}
				if next.Status != r.Status {
					log.WithFields(log.Fields{
						"report_id":  r.ID,
						"vehicle_id": r.VehicleID,
						"status":     next.Status,
					}).Info("Report status changed")
				}
			}
		}
	}

	if !hasWaiting(snap) {
		return nil
	}
	pending, err := s.repo.FindReports(ctx, models.ReportPending)
	if err != nil {
		return fmt.Errorf("list pending reports: %w", err)
	}
	_, err = s.dispatchOldestFirst(ctx, pending)
	return err
}

func (s *Service) advance(r models.Report, snap models.Snapshot) (models.Report, bool) {
	if snap.Sequence < r.DispatchSequence {
		return r, false
	}
	v, ok := snap.Vehicle(r.VehicleID)
	if !ok {
		return r, false
	}
	now := s.now()

	if v.RequestID != r.ID {
		// The vehicle has been recycled and possibly reassigned.
		r.Status = models.ReportCompleted
		r.UpdatedAt = now
		if r.RespondedAt == nil {
			r.RespondedAt = &now
		}
		return r, true
	}

	changed := false
	if r.Status == models.ReportProcessing && v.Status == models.StatusArrived {
		r.Status = models.ReportResponded
		r.RespondedAt = &now
		changed = true
	}
	if r.ETAMinutes != v.ETAMinutes || r.DistanceKm != v.DistanceKm {
		r.ETAMinutes = v.ETAMinutes
		r.DistanceKm = v.DistanceKm
		changed = true
	}
	if changed {
		r.UpdatedAt = now
	}
	return r, changed
}

func hasWaiting(snap models.Snapshot) bool {
	for _, v := range snap.Vehicles {
		if v.Status == models.StatusWaiting {
			return true
		}
	}
	return false
}

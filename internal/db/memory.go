package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ukydev/ambulance-tracker/internal/models"
)

// MemoryTelemetry keeps a bounded trail per vehicle in memory.
type MemoryTelemetry struct {
	mu       sync.RWMutex
	perTrail int
	trails   map[string][]models.Telemetry
}

// NewMemoryTelemetry keeps at most perVehicle points for each vehicle.
func NewMemoryTelemetry(perVehicle int) *MemoryTelemetry {
	if perVehicle <= 0 {
		perVehicle = 500
	}
	return &MemoryTelemetry{perTrail: perVehicle, trails: make(map[string][]models.Telemetry)}
}

func (m *MemoryTelemetry) InsertTelemetry(_ context.Context, t models.Telemetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trail := append(m.trails[t.VehicleID], t)
	if len(trail) > m.perTrail {
		trail = trail[len(trail)-m.perTrail:]
	}
	m.trails[t.VehicleID] = trail
	return nil
}

func (m *MemoryTelemetry) FindTelemetry(_ context.Context, vehicleID string, limit int64) ([]models.Telemetry, error) {
	m.mu.RLock()
	out := []models.Telemetry{}
	for id, trail := range m.trails {
		if vehicleID == "" || id == vehicleID {
			out = append(out, trail...)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryReports stores reports in memory.
type MemoryReports struct {
	mu      sync.RWMutex
	reports map[string]models.Report
}

func NewMemoryReports() *MemoryReports {
	return &MemoryReports{reports: make(map[string]models.Report)}
}

func (m *MemoryReports) InsertReport(_ context.Context, r models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[r.ID]; exists {
		return fmt.Errorf("report %s already exists", r.ID)
	}
	m.reports[r.ID] = r
	return nil
}

func (m *MemoryReports) UpdateReport(_ context.Context, r models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[r.ID]; !exists {
		return fmt.Errorf("report %s: %w", r.ID, ErrNotFound)
	}
	m.reports[r.ID] = r
	return nil
}

func (m *MemoryReports) FindReportByID(_ context.Context, id string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (m *MemoryReports) FindReports(_ context.Context, status models.ReportStatus) ([]models.Report, error) {
	m.mu.RLock()
	out := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

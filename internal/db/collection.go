package db

import (
	"context"
	"errors"

	"github.com/ukydev/ambulance-tracker/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// TelemetryCollection defines the interface for telemetry trail operations.
type TelemetryCollection interface {
	InsertTelemetry(ctx context.Context, telemetry models.Telemetry) error
	FindTelemetry(ctx context.Context, vehicleID string, limit int64) ([]models.Telemetry, error)
}

// ReportCollection defines the interface for accident report operations.
type ReportCollection interface {
	InsertReport(ctx context.Context, report models.Report) error
	UpdateReport(ctx context.Context, report models.Report) error
	FindReportByID(ctx context.Context, id string) (*models.Report, error)
	FindReports(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
}

// Cursor defines the interface for cursor operations.
type Cursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

func TestMemoryTelemetry(t *testing.T) {
	m := NewMemoryTelemetry(2)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.InsertTelemetry(ctx, models.Telemetry{
			VehicleID: "amb-1",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Speed:     float64(i),
		}))
	}
	require.NoError(t, m.InsertTelemetry(ctx, models.Telemetry{VehicleID: "amb-2", Timestamp: base}))

	trail, err := m.FindTelemetry(ctx, "amb-1", 0)
	require.NoError(t, err)
	require.Len(t, trail, 2, "trail is bounded")
	assert.Equal(t, 2.0, trail[0].Speed, "newest first")

	all, err := m.FindTelemetry(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := m.FindTelemetry(ctx, "amb-9", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryReports(t *testing.T) {
	m := NewMemoryReports()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.InsertReport(ctx, models.Report{ID: "a", Status: models.ReportPending, CreatedAt: base}))
	require.NoError(t, m.InsertReport(ctx, models.Report{ID: "b", Status: models.ReportProcessing, CreatedAt: base.Add(time.Minute)}))
	assert.Error(t, m.InsertReport(ctx, models.Report{ID: "a"}))

	all, err := m.FindReports(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	pending, err := m.FindReports(ctx, models.ReportPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	err = m.UpdateReport(ctx, models.Report{ID: "zz"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindReportByID(ctx, "zz")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.UpdateReport(ctx, models.Report{ID: "a", Status: models.ReportCompleted}))
	got, err := m.FindReportByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, got.Status)
}

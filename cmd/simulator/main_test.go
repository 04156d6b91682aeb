package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ambulance-tracker/internal/db"
	"github.com/ukydev/ambulance-tracker/internal/fleet"
	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/handlers"
	"github.com/ukydev/ambulance-tracker/internal/models"
	"github.com/ukydev/ambulance-tracker/internal/reports"
)

var rider = models.Location{Lat: 12.9716, Lon: 77.5946}

func newTracker(t *testing.T, seed []fleet.SeedVehicle) (*fleet.Service, *httptest.Server) {
	t.Helper()
	cfg := fleet.DefaultConfig()
	cfg.TickInterval = time.Hour
	cfg.MobilizationDelay = time.Hour
	f, err := fleet.New(rider, fleet.WithConfig(cfg), fleet.WithSeed(seed))
	require.NoError(t, err)
	t.Cleanup(f.StopTracking)

	mux := http.NewServeMux()
	handlers.Register(mux,
		handlers.NewFleetHandler(f),
		handlers.NewReportHandler(reports.NewService(db.NewMemoryReports(), f)),
		handlers.NewTelemetryHandler(db.NewMemoryTelemetry(0)),
		nil,
	)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestRandomIncident_WithinRadius(t *testing.T) {
	sim := NewSimulator(nil, rider, 1000, 42)
	for i := 0; i < 50; i++ {
		req := sim.randomIncident()
		require.NoError(t, geo.Validate(req.Location))
		// each axis is jittered by at most the radius
		assert.LessOrEqual(t, geo.HaversineKm(rider, req.Location), 1.5)
		assert.NotEmpty(t, req.Description)
		assert.NotEmpty(t, req.Address)
	}
}

func TestClient_SetLocationAndTracking(t *testing.T) {
	f, srv := newTracker(t, []fleet.SeedVehicle{{ID: "a", Status: models.StatusWaiting, DLat: 0.01}})
	client := NewClient(srv.URL + "/api")

	loc := models.Location{Lat: 12.98, Lon: 77.6}
	require.NoError(t, client.SetLocation(loc))
	assert.Equal(t, loc, f.Reference())

	require.NoError(t, client.StartTracking())
	assert.True(t, f.IsTracking())
}

func TestReportIncident(t *testing.T) {
	f, srv := newTracker(t, []fleet.SeedVehicle{{ID: "a", Status: models.StatusWaiting, DLat: 0.01}})
	sim := NewSimulator(NewClient(srv.URL+"/api"), rider, 500, 1)

	report, err := sim.ReportIncident()
	require.NoError(t, err)
	assert.Equal(t, models.ReportProcessing, report.Status)
	assert.Equal(t, "a", report.VehicleID)

	v, ok := f.Vehicle("a")
	require.True(t, ok)
	assert.Equal(t, report.ID, v.RequestID)

	report, err = sim.ReportIncident()
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status, "only vehicle is busy")
}

func TestRecycleArrived(t *testing.T) {
	f, srv := newTracker(t, []fleet.SeedVehicle{
		{ID: "a", Status: models.StatusArrived},
		{ID: "b", Status: models.StatusWaiting, DLat: 0.01},
		{ID: "c", Status: models.StatusArrived, DLon: 0.001},
	})
	sim := NewSimulator(NewClient(srv.URL+"/api"), rider, 500, 1)

	n, err := sim.RecycleArrived()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, v := range f.ListVehicles() {
		assert.Equal(t, models.StatusWaiting, v.Status, v.ID)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := NewClient(srv.URL)

	_, err := client.CreateReport(models.CreateReportRequest{Description: "x", Location: rider})
	assert.Error(t, err)
	_, err = client.Vehicles()
	assert.Error(t, err)

	sim := NewSimulator(client, rider, 500, 1)
	assert.NotPanics(t, sim.Step)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ambulance-tracker/internal/db"
	"github.com/ukydev/ambulance-tracker/internal/fleet"
	"github.com/ukydev/ambulance-tracker/internal/markers"
	"github.com/ukydev/ambulance-tracker/internal/models"
	"github.com/ukydev/ambulance-tracker/internal/reports"
)

var rider = models.Location{Lat: 12.9716, Lon: 77.5946}

type testServer struct {
	mux       *http.ServeMux
	fleet     *fleet.Service
	telemetry *db.MemoryTelemetry
}

func newTestServer(t *testing.T, seed ...fleet.SeedVehicle) *testServer {
	t.Helper()
	cfg := fleet.DefaultConfig()
	cfg.TickInterval = time.Hour
	cfg.MobilizationDelay = time.Hour
	opts := []fleet.Option{fleet.WithConfig(cfg)}
	if len(seed) > 0 {
		opts = append(opts, fleet.WithSeed(seed))
	}
	f, err := fleet.New(rider, opts...)
	require.NoError(t, err)
	t.Cleanup(f.StopTracking)

	tel := db.NewMemoryTelemetry(10)
	mux := http.NewServeMux()
	Register(mux,
		NewFleetHandler(f),
		NewReportHandler(reports.NewService(db.NewMemoryReports(), f)),
		NewTelemetryHandler(tel),
		nil,
	)
	return &testServer{mux: mux, fleet: f, telemetry: tel}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestVehicles(t *testing.T) {
	s := newTestServer(t)

	w := s.do("GET", "/api/vehicles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	snap := decode[models.Snapshot](t, w)
	assert.Len(t, snap.Vehicles, 4)

	w = s.do("GET", "/api/vehicles?format=google", nil)
	require.Equal(t, http.StatusOK, w.Code)
	g := decode[markers.GoogleSnapshot](t, w)
	require.Len(t, g.Markers, 4)
	assert.Equal(t, "Alpha-12", g.Markers[0].Label)

	w = s.do("GET", "/api/vehicles?format=mapbox", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FeatureCollection", decode[markers.FeatureCollection](t, w).Type)

	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/vehicles?format=svg", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do("DELETE", "/api/vehicles", nil).Code)
}

func TestActiveAndNearestIdle(t *testing.T) {
	s := newTestServer(t, fleet.SeedVehicle{ID: "a", Status: models.StatusWaiting, DLat: 0.01})

	assert.Equal(t, http.StatusNotFound, s.do("GET", "/api/vehicles/active", nil).Code)

	w := s.do("GET", "/api/vehicles/nearest-idle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a", decode[models.Vehicle](t, w).ID)

	w = s.do("POST", "/api/dispatch", map[string]interface{}{
		"destination": map[string]float64{"lat": 12.98, "lon": 77.60},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/api/vehicles/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusDispatched, decode[models.Vehicle](t, w).Status)
	assert.Equal(t, http.StatusNotFound, s.do("GET", "/api/vehicles/nearest-idle", nil).Code)
}

func TestLocation(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/api/location", models.Location{Lat: 12.99, Lon: 77.61})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Location{Lat: 12.99, Lon: 77.61}, s.fleet.Reference())

	w = s.do("GET", "/api/location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12.99, decode[models.Location](t, w).Lat)

	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/location", models.Location{Lat: 200}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/location", "{not json").Code)
}

func TestTracking(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/api/tracking/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[trackingResponse](t, w).Tracking)

	w = s.do("POST", "/api/tracking/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[trackingResponse](t, w).Tracking)

	assert.Equal(t, http.StatusMethodNotAllowed, s.do("GET", "/api/tracking/start", nil).Code)
}

func TestDispatch(t *testing.T) {
	s := newTestServer(t,
		fleet.SeedVehicle{ID: "a", Status: models.StatusWaiting, DLat: 0.01},
	)

	w := s.do("POST", "/api/dispatch", models.DispatchRequest{
		RequestID:   "r1",
		Destination: models.Destination{Location: models.Location{Lat: 12.98, Lon: 77.60}, Address: "MG Road"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.DispatchResult](t, w)
	assert.True(t, res.Assigned)
	assert.Equal(t, "a", res.VehicleID)
	assert.Equal(t, "r1", res.RequestID)
	assert.Greater(t, res.ETAMinutes, 0)

	w = s.do("POST", "/api/dispatch", models.DispatchRequest{
		Destination: models.Destination{Location: rider},
	})
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[models.DispatchResult](t, w)
	assert.False(t, res.Assigned)
	assert.NotEmpty(t, res.RequestID, "generated request id")

	w = s.do("POST", "/api/dispatch", models.DispatchRequest{
		Destination: models.Destination{Location: models.Location{Lat: 12, Lon: 500}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecycle(t *testing.T) {
	s := newTestServer(t,
		fleet.SeedVehicle{ID: "a", Status: models.StatusArrived},
		fleet.SeedVehicle{ID: "b", Status: models.StatusWaiting},
	)

	w := s.do("POST", "/api/vehicles/a/recycle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusWaiting, decode[models.Vehicle](t, w).Status)

	assert.Equal(t, http.StatusConflict, s.do("POST", "/api/vehicles/b/recycle", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/api/vehicles/zz/recycle", nil).Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	h := decode[fleet.Health](t, w)
	assert.True(t, h.Healthy)
	assert.Equal(t, 4, h.Vehicles)
}

func TestReports(t *testing.T) {
	s := newTestServer(t,
		fleet.SeedVehicle{ID: "a", Status: models.StatusWaiting, DLat: 0.01},
	)

	w := s.do("POST", "/api/reports", models.CreateReportRequest{
		Description: "Bike accident",
		Location:    models.Location{Lat: 12.98, Lon: 77.60},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[models.Report](t, w)
	assert.Equal(t, models.ReportProcessing, first.Status)
	assert.Equal(t, "a", first.VehicleID)

	w = s.do("POST", "/api/reports", models.CreateReportRequest{
		Description: "Second incident",
		Location:    rider,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.ReportPending, decode[models.Report](t, w).Status)

	w = s.do("GET", "/api/reports/"+first.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID, decode[models.Report](t, w).ID)

	w = s.do("GET", "/api/reports?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Report](t, w), 1)

	assert.Equal(t, http.StatusNotFound, s.do("GET", "/api/reports/nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/reports?status=lost", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/reports", models.CreateReportRequest{Location: rider}).Code)
}

// MockReportService is a mock implementation of ReportService.
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Create(ctx context.Context, req models.CreateReportRequest) (models.Report, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Report), args.Error(1)
}

func (m *MockReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportService) List(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func TestReportHandler_Errors(t *testing.T) {
	svc := new(MockReportService)
	h := NewReportHandler(svc)

	t.Run("store failure", func(t *testing.T) {
		svc.On("Create", mock.Anything, mock.Anything).Return(models.Report{}, assert.AnError).Once()
		w := httptest.NewRecorder()
		h.Reports(w, httptest.NewRequest("POST", "/api/reports", bytes.NewBufferString(`{"description":"x"}`)))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("dispatch failure keeps report", func(t *testing.T) {
		svc.On("Create", mock.Anything, mock.Anything).
			Return(models.Report{ID: "r1", Status: models.ReportPending}, fmt.Errorf("dispatch: %w", assert.AnError)).Once()
		w := httptest.NewRecorder()
		h.Reports(w, httptest.NewRequest("POST", "/api/reports", bytes.NewBufferString(`{"description":"x"}`)))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("list failure", func(t *testing.T) {
		svc.On("List", mock.Anything, models.ReportStatus("")).Return(nil, assert.AnError).Once()
		w := httptest.NewRecorder()
		h.Reports(w, httptest.NewRequest("GET", "/api/reports", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Reports(w, httptest.NewRequest("PUT", "/api/reports", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	svc.AssertExpectations(t)
}

func TestTelemetry(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.telemetry.InsertTelemetry(ctx, models.Telemetry{
			VehicleID: "amb-1",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.telemetry.InsertTelemetry(ctx, models.Telemetry{VehicleID: "amb-2", Timestamp: base}))

	w := s.do("GET", "/api/telemetry?vehicle_id=amb-1&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trail := decode[[]models.Telemetry](t, w)
	require.Len(t, trail, 2)
	assert.True(t, trail[0].Timestamp.Equal(base.Add(2*time.Second)))

	w = s.do("GET", "/api/telemetry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Telemetry](t, w), 4)

	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/telemetry?limit=-1", nil).Code)
}

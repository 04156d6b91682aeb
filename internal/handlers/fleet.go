package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/fleet"
	"github.com/ukydev/ambulance-tracker/internal/markers"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// FleetService is the part of the fleet the HTTP layer drives.
type FleetService interface {
	Snapshot() models.Snapshot
	ActiveVehicle() (models.Vehicle, bool)
	NearestIdleVehicle() (models.Vehicle, bool)
	Vehicle(id string) (models.Vehicle, bool)
	Reference() models.Location
	SetReferenceLocation(loc models.Location) error
	StartTracking()
	StopTracking()
	IsTracking() bool
	Dispatch(requestID string, dest models.Destination) (models.DispatchResult, error)
	Recycle(id string) error
	Health() fleet.Health
}

// FleetHandler handles vehicle, tracking and dispatch requests.
type FleetHandler struct {
	fleet FleetService
}

func NewFleetHandler(f FleetService) *FleetHandler {
	return &FleetHandler{fleet: f}
}

// Vehicles returns the current snapshot, optionally as map markers.
func (h *FleetHandler) Vehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format, err := markers.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, markers.Render(h.fleet.Snapshot(), format))
}

// Active returns the first dispatched or enroute vehicle.
func (h *FleetHandler) Active(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, ok := h.fleet.ActiveVehicle()
	if !ok {
		http.Error(w, "No active vehicle", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// NearestIdle returns the waiting vehicle closest to the rider.
func (h *FleetHandler) NearestIdle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, ok := h.fleet.NearestIdleVehicle()
	if !ok {
		http.Error(w, "All units busy", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Location updates the rider's position.
func (h *FleetHandler) Location(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.fleet.Reference())
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var loc models.Location
	if !decodeBody(w, r, &loc) {
		return
	}
	if err := h.fleet.SetReferenceLocation(loc); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, h.fleet.Reference())
}

type trackingResponse struct {
	Tracking bool `json:"tracking"`
}

func (h *FleetHandler) StartTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.fleet.StartTracking()
	writeJSON(w, http.StatusOK, trackingResponse{Tracking: h.fleet.IsTracking()})
}

func (h *FleetHandler) StopTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.fleet.StopTracking()
	writeJSON(w, http.StatusOK, trackingResponse{Tracking: h.fleet.IsTracking()})
}

// Dispatch sends an idle vehicle to the destination. A missing request_id is
// generated. "All units busy" is a 200 with assigned=false.
func (h *FleetHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.DispatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}

	res, err := h.fleet.Dispatch(req.RequestID, req.Destination)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Recycle returns an arrived vehicle to the waiting pool.
func (h *FleetHandler) Recycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	if err := h.fleet.Recycle(id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	v, _ := h.fleet.Vehicle(id)
	writeJSON(w, http.StatusOK, v)
}

// Health reports the tick loop state; 503 when it has stalled.
func (h *FleetHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.fleet.Health()
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fleet.ErrInvalidCoordinate), errors.Is(err, fleet.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, fleet.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, fleet.ErrVehicleNotArrived):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

package handlers

import (
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/db"
)

const (
	defaultTrailLimit = 100
	maxTrailLimit     = 1000
)

type TelemetryHandler struct {
	collection db.TelemetryCollection
}

func NewTelemetryHandler(c db.TelemetryCollection) *TelemetryHandler {
	return &TelemetryHandler{collection: c}
}

// Trail returns recorded points, newest first, filtered by ?vehicle_id=.
func (h *TelemetryHandler) Trail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := int64(defaultTrailLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxTrailLimit)
	}

	trail, err := h.collection.FindTelemetry(r.Context(), r.URL.Query().Get("vehicle_id"), limit)
	if err != nil {
		log.WithError(err).Error("Failed to query telemetry")
		http.Error(w, "Failed to query telemetry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

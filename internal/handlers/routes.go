// Package handlers exposes the fleet, reports and telemetry over HTTP.
package handlers

import "net/http"

// Register mounts every route on mux. stream may be nil to disable /ws.
func Register(mux *http.ServeMux, f *FleetHandler, rep *ReportHandler, tel *TelemetryHandler, stream http.Handler) {
	mux.HandleFunc("/health", f.Health)

	mux.HandleFunc("/api/vehicles", f.Vehicles)
	mux.HandleFunc("/api/vehicles/active", f.Active)
	mux.HandleFunc("/api/vehicles/nearest-idle", f.NearestIdle)
	mux.HandleFunc("/api/vehicles/{id}/recycle", f.Recycle)
	mux.HandleFunc("/api/location", f.Location)
	mux.HandleFunc("/api/tracking/start", f.StartTracking)
	mux.HandleFunc("/api/tracking/stop", f.StopTracking)
	mux.HandleFunc("/api/dispatch", f.Dispatch)

	mux.HandleFunc("/api/reports", rep.Reports)
	mux.HandleFunc("/api/reports/{id}", rep.Report)

	mux.HandleFunc("/api/telemetry", tel.Trail)

	if stream != nil {
		mux.Handle("/ws", stream)
	}
}

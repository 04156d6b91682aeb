package handlers

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/db"
	"github.com/ukydev/ambulance-tracker/internal/models"
	"github.com/ukydev/ambulance-tracker/internal/reports"
)

// ReportService creates and looks up accident reports.
type ReportService interface {
	Create(ctx context.Context, req models.CreateReportRequest) (models.Report, error)
	Get(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
}

type ReportHandler struct {
	reports ReportService
}

func NewReportHandler(s ReportService) *ReportHandler {
	return &ReportHandler{reports: s}
}

// Reports lists reports on GET and creates one on POST.
func (h *ReportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ReportHandler) create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	report, err := h.reports.Create(r.Context(), req)
	if errors.Is(err, reports.ErrInvalidReport) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		// The report exists even when the dispatch attempt failed.
		if report.ID == "" {
			log.WithError(err).Error("Failed to create report")
			http.Error(w, "Failed to create report", http.StatusInternalServerError)
			return
		}
		log.WithError(err).WithField("report_id", report.ID).Warn("Report created without dispatch")
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *ReportHandler) list(w http.ResponseWriter, r *http.Request) {
	status := models.ReportStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.ReportPending, models.ReportProcessing, models.ReportResponded, models.ReportCompleted:
	default:
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	list, err := h.reports.List(r.Context(), status)
	if err != nil {
		log.WithError(err).Error("Failed to list reports")
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Report returns one report by id.
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	report, err := h.reports.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to get report")
		http.Error(w, "Failed to get report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

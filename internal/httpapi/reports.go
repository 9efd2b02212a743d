package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/saferoad/routesafety/internal/store"
)

const maxReportBodyBytes = 1 << 20

// ReportListResponse is the JSON response for GET /v1/reports/accidents
type ReportListResponse struct {
	Reports []*store.AccidentReport `json:"reports"`
	Count   int                     `json:"count"`
}

// CreateAccidentReport handles POST /v1/reports/accidents
func (h *Handler) CreateAccidentReport(w http.ResponseWriter, r *http.Request) {
	input, err := store.DecodeReportInput(http.MaxBytesReader(w, r.Body, maxReportBodyBytes))
	if err != nil {
		writeError(w, r, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	report, err := input.Report()
	if err != nil {
		writeError(w, r, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	created, err := h.reports.CreateReport(r.Context(), report)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/reports/accidents/"+created.ID)
	writeJSON(w, r, http.StatusCreated, created)
}

// ListAccidentReports handles GET /v1/reports/accidents?region=&limit=
func (h *Handler) ListAccidentReports(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{Region: r.URL.Query().Get("region")}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, r, status.Errorf(codes.InvalidArgument, "limit must be a non-negative integer, got %q", raw))
			return
		}
		filter.Limit = limit
	}

	reports, err := h.reports.ListReports(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []*store.AccidentReport{}
	}

	writeJSON(w, r, http.StatusOK, ReportListResponse{Reports: reports, Count: len(reports)})
}

// GetAccidentReport handles GET /v1/reports/accidents/{id}
func (h *Handler) GetAccidentReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// Health handles GET /v1/health with a database connectivity check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			body["status"] = "error"
			body["database"] = "disconnected"
			body["error"] = err.Error()
			writeJSON(w, r, http.StatusServiceUnavailable, body)
			return
		}
	} else {
		body["database"] = "disabled"
	}

	writeJSON(w, r, http.StatusOK, body)
}

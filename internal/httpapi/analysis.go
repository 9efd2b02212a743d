package httpapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/saferoad/routesafety/internal/export"
	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/route"
	"github.com/saferoad/routesafety/internal/logging"
)

// StepResponse is one route step in an analysis response
type StepResponse struct {
	Instructions  string      `json:"instructions"`
	StartLocation geo.Point   `json:"start_location"`
	Path          []geo.Point `json:"path"`
}

// AnalysisResponse is the JSON response for GET /v1/routes/analyze
type AnalysisResponse struct {
	RequestID        string               `json:"request_id"`
	Origin           string               `json:"origin"`
	Destination      string               `json:"destination"`
	Center           geo.Point            `json:"center"`
	Summary          string               `json:"summary,omitempty"`
	StartAddress     string               `json:"start_address,omitempty"`
	EndAddress       string               `json:"end_address,omitempty"`
	DistanceMeters   int32                `json:"distance_meters"`
	DurationSeconds  int32                `json:"duration_seconds"`
	OverviewPolyline string               `json:"overview_polyline"`
	Steps            []StepResponse       `json:"steps"`
	Features         []route.Feature      `json:"features"`
	Markers          []route.SafetyMarker `json:"markers"`
	CompletedAt      time.Time            `json:"completed_at"`
}

// NewAnalysisResponse flattens an analysis for JSON clients
func NewAnalysisResponse(a *route.Analysis) AnalysisResponse {
	resp := AnalysisResponse{
		RequestID:   a.RequestID,
		Origin:      a.Origin,
		Destination: a.Destination,
		Center:      a.Center,
		Steps:       []StepResponse{},
		Features:    a.Features,
		Markers:     a.Markers,
		CompletedAt: a.CompletedAt,
	}
	if resp.Features == nil {
		resp.Features = []route.Feature{}
	}
	if resp.Markers == nil {
		resp.Markers = []route.SafetyMarker{}
	}

	if r := a.Route; r != nil {
		resp.Summary = r.Summary
		resp.StartAddress = r.StartAddress
		resp.EndAddress = r.EndAddress
		resp.DistanceMeters = r.DistanceMeters
		resp.DurationSeconds = r.DurationSeconds
		resp.OverviewPolyline = geo.EncodePolyline(r.OverviewPath)
		for _, s := range r.Steps {
			path := s.Path
			if path == nil {
				path = []geo.Point{}
			}
			resp.Steps = append(resp.Steps, StepResponse{
				Instructions:  s.Instructions,
				StartLocation: s.StartLocation,
				Path:          path,
			})
		}
	}
	return resp
}

// AnalyzeRoute handles GET /v1/routes/analyze?origin=&destination=
func (h *Handler) AnalyzeRoute(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.analyze(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, NewAnalysisResponse(analysis))
}

// AnalyzeRouteKML handles GET /v1/routes/analyze.kml?origin=&destination=
func (h *Handler) AnalyzeRouteKML(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.analyze(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Render fully before writing so a failure can still produce an error response
	var buf bytes.Buffer
	if err := export.WriteKML(&buf, analysis); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="route-`+analysis.RequestID+`.kml"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Error("Failed to write KML response", "error", err)
	}
}

func (h *Handler) analyze(r *http.Request) (*route.Analysis, error) {
	query := r.URL.Query()
	return h.analyzer.Analyze(r.Context(), query.Get("origin"), query.Get("destination"))
}

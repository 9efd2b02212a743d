package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/route"
	"github.com/saferoad/routesafety/internal/logging"
)

// Directions statuses that mean the locations resolved to no route
const (
	directionsZeroResults = "ZERO_RESULTS"
	directionsNotFound    = "NOT_FOUND"
)

// DirectionsProvider resolves a driving route between two free-form locations
type DirectionsProvider interface {
	Route(ctx context.Context, origin, destination string) (*route.DirectionsResult, error)
}

// MarkerSampler finds safety landmarks along a path
type MarkerSampler interface {
	Sample(ctx context.Context, path []geo.Point) []route.SafetyMarker
}

// FeatureDetector finds junctions and curves on a route
type FeatureDetector interface {
	Detect(ctx context.Context, r *route.Route) []route.Feature
}

// AnalysisService sequences a route request with landmark sampling and feature detection
type AnalysisService struct {
	directions DirectionsProvider
	sampler    MarkerSampler
	detector   FeatureDetector
	now        func() time.Time
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(directions DirectionsProvider, sampler MarkerSampler, detector FeatureDetector) *AnalysisService {
	return &AnalysisService{
		directions: directions,
		sampler:    sampler,
		detector:   detector,
		now:        time.Now,
	}
}

// Analyze requests a route and returns its features and safety markers.
// Any directions failure aborts the analysis before sampling or detection.
func (s *AnalysisService) Analyze(ctx context.Context, origin, destination string) (*route.Analysis, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return nil, status.Error(codes.InvalidArgument, "origin and destination are required")
	}

	requestID := uuid.NewString()
	logger := logging.FromContext(ctx).With(slog.String("request_id", requestID))
	ctx = logging.WithLogger(ctx, logger)
	start := s.now()

	result, err := s.directions.Route(ctx, origin, destination)
	if err != nil {
		logging.LogError(logger, "Directions request failed", err,
			slog.String("origin", origin),
			slog.String("destination", destination))
		return nil, status.Error(codes.Unavailable, fmt.Sprintf("directions request failed: %v", err))
	}
	if err := directionsStatusError(result); err != nil {
		logger.Warn("Directions request not successful",
			slog.String("status", resultStatus(result)),
			slog.String("origin", origin),
			slog.String("destination", destination))
		return nil, err
	}

	r := result.Route
	markers := s.sampler.Sample(ctx, r.OverviewPath)
	features := s.detector.Detect(ctx, r)

	analysis := &route.Analysis{
		RequestID:   requestID,
		Origin:      origin,
		Destination: destination,
		Route:       r,
		Features:    features,
		Markers:     markers,
		Center:      r.Center(),
		CompletedAt: s.now(),
	}

	logging.LogOperation(logger, "analyze_route",
		slog.Duration("duration", analysis.CompletedAt.Sub(start)),
		slog.Int("steps", len(r.Steps)),
		slog.Int("junctions", analysis.CountFeatures(route.Junction)),
		slog.Int("curves", analysis.CountFeatures(route.Curve)),
		slog.Int("markers", len(markers)))

	return analysis, nil
}

// resultStatus returns the directions status, or "" when there is no result
func resultStatus(result *route.DirectionsResult) string {
	if result == nil {
		return ""
	}
	return result.Status
}

// directionsStatusError maps a non-OK directions result to a status error
func directionsStatusError(result *route.DirectionsResult) error {
	if result == nil {
		return status.Error(codes.Unavailable, "directions provider returned no result")
	}

	switch result.Status {
	case route.DirectionsStatusOK:
		if result.Route == nil {
			return status.Error(codes.Unavailable, "directions provider returned no route")
		}
		return nil
	case directionsZeroResults, directionsNotFound:
		return status.Errorf(codes.NotFound, "no route found: %s", result.Status)
	default:
		msg := fmt.Sprintf("directions request failed: %s", result.Status)
		if result.ErrorMessage != "" {
			msg += ": " + result.ErrorMessage
		}
		return status.Error(codes.Unavailable, msg)
	}
}

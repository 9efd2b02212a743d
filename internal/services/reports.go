package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/saferoad/routesafety/internal/logging"
	"github.com/saferoad/routesafety/internal/store"
)

// ReportStore persists accident reports
type ReportStore interface {
	CreateReport(ctx context.Context, report store.AccidentReport) (*store.AccidentReport, error)
	GetReport(ctx context.Context, id string) (*store.AccidentReport, error)
	ListReports(ctx context.Context, filter store.ListFilter) ([]*store.AccidentReport, error)
}

// ReportsService records and retrieves accident reports
type ReportsService struct {
	store ReportStore
}

// NewReportsService creates a new ReportsService
func NewReportsService(reports ReportStore) *ReportsService {
	return &ReportsService{store: reports}
}

// CreateReport stores a new accident report
func (s *ReportsService) CreateReport(ctx context.Context, report store.AccidentReport) (*store.AccidentReport, error) {
	logger := logging.FromContext(ctx)

	created, err := s.store.CreateReport(ctx, report)
	if err != nil {
		return nil, reportError(logger, "Failed to create accident report", err)
	}

	logger.Info("Accident report created",
		slog.String("id", created.ID),
		slog.String("region", created.Region),
		slog.Int("vehicles", len(created.Vehicles)))
	return created, nil
}

// GetReport returns one accident report
func (s *ReportsService) GetReport(ctx context.Context, id string) (*store.AccidentReport, error) {
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "report id is required")
	}

	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, reportError(logging.FromContext(ctx), "Failed to get accident report", err)
	}
	return report, nil
}

// ListReports returns accident reports newest first
func (s *ReportsService) ListReports(ctx context.Context, filter store.ListFilter) ([]*store.AccidentReport, error) {
	if filter.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}

	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, reportError(logging.FromContext(ctx), "Failed to list accident reports", err)
	}
	return reports, nil
}

// reportError maps store errors onto status codes, logging unexpected failures
func reportError(logger *slog.Logger, message string, err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidReport):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		logging.LogError(logger, message, err)
		return status.Error(codes.Internal, "report storage failed")
	}
}

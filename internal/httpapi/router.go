// Package httpapi exposes route analysis and accident reports over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/saferoad/routesafety/internal/lib/route"
	"github.com/saferoad/routesafety/internal/logging"
	"github.com/saferoad/routesafety/internal/store"
)

// Analyzer runs a route analysis
type Analyzer interface {
	Analyze(ctx context.Context, origin, destination string) (*route.Analysis, error)
}

// Reports records and retrieves accident reports
type Reports interface {
	CreateReport(ctx context.Context, report store.AccidentReport) (*store.AccidentReport, error)
	GetReport(ctx context.Context, id string) (*store.AccidentReport, error)
	ListReports(ctx context.Context, filter store.ListFilter) ([]*store.AccidentReport, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router
type Options struct {
	CorsOrigins    []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Handler serves the v1 HTTP API
type Handler struct {
	analyzer Analyzer
	reports  Reports
	db       Pinger
}

// NewHandler creates a new Handler
func NewHandler(analyzer Analyzer, reports Reports, db Pinger) *Handler {
	return &Handler{analyzer: analyzer, reports: reports, db: db}
}

// NewRouter mounts the API under /v1
func NewRouter(h *Handler, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.CorsOrigins) == 0 {
		opts.CorsOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))

			r.Get("/routes/analyze", h.AnalyzeRoute)
			r.Get("/routes/analyze.kml", h.AnalyzeRouteKML)

			r.Post("/reports/accidents", h.CreateAccidentReport)
			r.Get("/reports/accidents", h.ListAccidentReports)
			r.Get("/reports/accidents/{id}", h.GetAccidentReport)
		})
	})

	return r
}

// requestLogger attaches a request scoped logger to the context and logs each request
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.With(
				slog.String("http_request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), logger)))

			logging.LogOperation(logger, "http_request",
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/dpup/prefab"
	"github.com/joho/godotenv"

	"github.com/saferoad/routesafety/internal/clients/google"
	"github.com/saferoad/routesafety/internal/config"
	"github.com/saferoad/routesafety/internal/httpapi"
	"github.com/saferoad/routesafety/internal/lib/features"
	"github.com/saferoad/routesafety/internal/lib/landmarks"
	"github.com/saferoad/routesafety/internal/logging"
	"github.com/saferoad/routesafety/internal/services"
	"github.com/saferoad/routesafety/internal/store"
)

func main() {
	// Optional local overrides; real deployments set the environment directly
	_ = godotenv.Load()

	// Configuration is loaded from prefab.yaml and PF__ environment variables
	appConfig, err := config.Load(prefab.Config)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if key := os.Getenv(config.EnvPrefix + "GOOGLE_API_KEY"); key != "" {
		appConfig.Google.APIKey = key
	}
	if err := appConfig.RequireAPIKey(); err != nil {
		log.Fatal(err)
	}

	logger := logging.NewStructuredLogger(os.Stdout, logging.ParseLevel(appConfig.Server.LogLevel))
	slog.SetDefault(logger)

	reportStore, err := store.Open(context.Background(), appConfig.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open report store: %v", err)
	}
	defer reportStore.Close()

	// External API client serves both directions and nearby search
	googleClient := google.NewClientWithHTTPDoer(appConfig.Google.APIKey, appConfig.Google.BaseURL,
		&http.Client{Timeout: appConfig.Google.Timeout})

	analysisService := services.NewAnalysisService(
		googleClient,
		landmarks.NewSampler(googleClient, appConfig.Analysis.Landmarks),
		features.NewDetector(appConfig.Analysis.Detection),
	)
	reportsService := services.NewReportsService(reportStore)

	router := httpapi.NewRouter(
		httpapi.NewHandler(analysisService, reportsService, reportStore),
		httpapi.Options{
			CorsOrigins:    appConfig.Server.CorsOrigins,
			RequestTimeout: appConfig.Server.RequestTimeout,
			Logger:         logger,
		},
	)

	logger.Info("Route safety API server starting",
		slog.String("store", appConfig.Store.Path),
		slog.Duration("request_timeout", appConfig.Server.RequestTimeout),
		slog.Int("max_concurrent_queries", appConfig.Analysis.Landmarks.MaxConcurrentQueries))

	// Create Prefab server with GRPC reflection enabled
	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithGRPCReflection(),
		prefab.WithHTTPHandlerFunc("/v1/", router.ServeHTTP),
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// homepageHandler serves a plain text index at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	index := `routesafety

Junctions, curves, schools and hospitals along a driving route.

API Endpoints:
  GET  /v1/routes/analyze?origin=&destination=       Analyze a route (JSON)
  GET  /v1/routes/analyze.kml?origin=&destination=   Analyze a route (KML)
  POST /v1/reports/accidents                         Record an accident report
  GET  /v1/reports/accidents?region=&limit=          List accident reports
  GET  /v1/reports/accidents/{id}                    Get one accident report
  GET  /v1/health                                    Liveness and database check

Example Usage:
  curl "/v1/routes/analyze?origin=Fort+Kochi&destination=Edappally"
`

	if _, err := fmt.Fprint(w, index); err != nil {
		slog.Error("Failed to write index", "error", err)
	}
}

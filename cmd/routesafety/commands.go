package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/saferoad/routesafety/internal/clients/google"
	"github.com/saferoad/routesafety/internal/config"
	"github.com/saferoad/routesafety/internal/export"
	"github.com/saferoad/routesafety/internal/httpapi"
	"github.com/saferoad/routesafety/internal/lib/features"
	"github.com/saferoad/routesafety/internal/lib/landmarks"
	"github.com/saferoad/routesafety/internal/logging"
	"github.com/saferoad/routesafety/internal/services"
	"github.com/saferoad/routesafety/internal/store"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "routesafety",
		Short: "Route safety feature extraction",
		Long: `Analyze driving routes for junctions, curves and nearby schools and hospitals,
and manage accident reports.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Accident report database path (overrides store.path)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose (debug) logging")

	rootCmd.AddCommand(newAnalyzeCmd(opts), newReportsCmd(opts))
	return rootCmd
}

// setup loads configuration and returns a context carrying a stderr logger
func (o *globalOptions) setup(cmd *cobra.Command) (context.Context, *config.Config, error) {
	k, err := config.NewKoanf(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(k)
	if err != nil {
		return nil, nil, err
	}
	if o.dbPath != "" {
		cfg.Store.Path = o.dbPath
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(cmd.ErrOrStderr(), level)

	return logging.WithLogger(cmd.Context(), logger), cfg, nil
}

func (o *globalOptions) openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return store.Open(ctx, cfg.Store.Path)
}

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var (
		origin      string
		destination string
		format      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a driving route",
		Long:  `Request a driving route and report its junctions, curves and nearby safety landmarks as JSON or KML.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "kml" {
				return fmt.Errorf("unknown format %q (want json or kml)", format)
			}

			ctx, cfg, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Analysis.Landmarks.MaxConcurrentQueries = concurrency
			}

			client := google.NewClientWithHTTPDoer(cfg.Google.APIKey, cfg.Google.BaseURL,
				&http.Client{Timeout: cfg.Google.Timeout})
			service := services.NewAnalysisService(
				client,
				landmarks.NewSampler(client, cfg.Analysis.Landmarks),
				features.NewDetector(cfg.Analysis.Detection),
			)

			analysis, err := service.Analyze(ctx, origin, destination)
			if err != nil {
				return err
			}

			if format == "kml" {
				return export.WriteKML(cmd.OutOrStdout(), analysis)
			}
			return writeJSON(cmd.OutOrStdout(), httpapi.NewAnalysisResponse(analysis))
		},
	}

	cmd.Flags().StringVarP(&origin, "origin", "o", "", "Route origin (address or place)")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Route destination (address or place)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or kml")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Concurrent nearby searches (1 keeps them serial)")
	_ = cmd.MarkFlagRequired("origin")
	_ = cmd.MarkFlagRequired("destination")

	return cmd
}

func newReportsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage accident reports",
	}
	cmd.AddCommand(newReportsListCmd(opts), newReportsAddCmd(opts))
	return cmd
}

func newReportsListCmd(opts *globalOptions) *cobra.Command {
	var filter store.ListFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accident reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			db, err := opts.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			reports, err := services.NewReportsService(db).ListReports(ctx, filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), httpapi.ReportListResponse{Reports: reports, Count: len(reports)})
		},
	}

	cmd.Flags().StringVarP(&filter.Region, "region", "r", "", "Only reports for this region")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 50, "Maximum number of reports")
	return cmd
}

func newReportsAddCmd(opts *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an accident report from a JSON file",
		Long:  `Read one accident report as JSON from --file ("-" for stdin), validate and store it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open report file: %w", err)
				}
				defer f.Close()
				in = f
			}

			input, err := store.DecodeReportInput(in)
			if err != nil {
				return err
			}
			report, err := input.Report()
			if err != nil {
				return err
			}

			db, err := opts.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			created, err := services.NewReportsService(db).CreateReport(ctx, report)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), created)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", `Report JSON file, "-" for stdin`)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/odyssey-receivables/cmd/odyssey/cli"
	analytichttp "github.com/odyssey-erp/odyssey-receivables/internal/analytics/http"
	"github.com/odyssey-erp/odyssey-receivables/internal/app"
	"github.com/odyssey-erp/odyssey-receivables/internal/observability"
	"github.com/odyssey-erp/odyssey-receivables/jobs"
	"github.com/odyssey-erp/odyssey-receivables/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	root := cli.NewRootCommand(cli.Env{
		Version: cfg.SoftwareVersion,
		Serve: func(ctx context.Context) error {
			return serve(ctx, cfg, logger, metrics)
		},
		Reports: func(ctx context.Context) (cli.ReportBuilder, func(), error) {
			return app.OpenCatalog(ctx, cfg, logger, metrics)
		},
		Exports: func(ctx context.Context) (cli.ExportService, func(), error) {
			return app.OpenExports(ctx, cfg, logger, nil)
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("odyssey", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	catalog, closeCatalog, err := app.OpenCatalog(ctx, cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer closeCatalog()

	var (
		exportService analytichttp.ExportService
		jobHandler    *jobs.Handler
	)
	if cfg.ExportsEnabled() {
		service, closeExports, err := app.OpenExports(ctx, cfg, logger, catalog)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer closeExports()
		exportService = service

		inspector := asynq.NewInspector(cfg.RedisOptions().Queue())
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		logger.Info("exports disabled", slog.String("reason", "REDIS_ADDR is empty"))
	}

	var (
		pdf           analytichttp.PDFConverter
		reportHandler *report.Handler
	)
	if cfg.GotenbergURL != "" {
		reportClient := report.NewClient(cfg.GotenbergURL)
		pdf = reportClient
		reportHandler = report.NewHandler(reportClient, logger)
	}

	analyticsHandler := analytichttp.NewHandler(logger, catalog, pdf, exportService)
	analyticsHandler.WithExportLimit(cfg.ExportLimitPerMinute)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AnalyticsHandler: analyticsHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	return app.Serve(ctx, app.NewServer(cfg, router), logger)
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-receivables/internal/exports"
	jobmetrics "github.com/odyssey-erp/odyssey-receivables/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ExportProcessor runs export jobs against the export store.
type ExportProcessor interface {
	Process(ctx context.Context, job exports.Job) error
	Abandon(ctx context.Context, id string) error
}

// ExportJob handles TaskAnalyticsExport tasks.
type ExportJob struct {
	Exports ExportProcessor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewExportJob wires dependencies for the export handler.
func NewExportJob(processor ExportProcessor, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportJob {
	return &ExportJob{Exports: processor, Logger: logger, Metrics: metrics}
}

// Handle processes export tasks.
func (j *ExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Exports == nil {
		return errors.New("export job: handler not configured")
	}
	var job exports.Job
	if err := json.Unmarshal(t.Payload(), &job); err != nil || job.ID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAnalyticsExport)
	logger := j.logger().With(slog.String("id", job.ID), slog.String("report", job.Report))

	err := j.Exports.Process(ctx, job)
	if err != nil && lastAttempt(ctx) {
		logger.Error("export abandoned", slog.Any("error", err))
		j.metrics().Abandoned(TaskAnalyticsExport)
		if aerr := j.Exports.Abandon(context.WithoutCancel(ctx), job.ID); aerr != nil {
			logger.Warn("mark export abandoned", slog.Any("error", aerr))
		}
	}
	return tracker.End(err)
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

func (j *ExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsExport))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsExport))
}

func (j *ExportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

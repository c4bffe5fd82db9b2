package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-receivables/internal/exports"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueExports carries report exports.
	QueueExports = "exports"
	// TaskAnalyticsExport renders a report into the export store.
	TaskAnalyticsExport = "analytics:export"
)

const (
	exportMaxRetry = 3
	exportTimeout  = 2 * time.Minute
)

// NewExportTask constructs the Asynq task for an export job.
func NewExportTask(job exports.Job) (*asynq.Task, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsExport, data,
		asynq.MaxRetry(exportMaxRetry),
		asynq.Timeout(exportTimeout),
		asynq.Queue(QueueExports),
	), nil
}

package exports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-receivables/internal/analytics"
	"github.com/odyssey-erp/odyssey-receivables/internal/platform/httpx"
)

// ErrInvalidRequest is returned for malformed export requests.
var ErrInvalidRequest = fmt.Errorf("exports: invalid request: %w", httpx.ErrValidation)

// Request is the body accepted when an export is submitted.
type Request struct {
	Report string `json:"report" validate:"required,max=64"`
	Query  string `json:"query" validate:"max=4096"`
}

// Job is the queued unit of work for one export.
type Job struct {
	ID     string `json:"id"`
	Report string `json:"report"`
	Query  string `json:"query"`
}

// Enqueuer hands jobs to the background queue.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, job Job) error
}

// Builder renders a report artefact.
type Builder interface {
	Build(ctx context.Context, name analytics.ReportName, query url.Values) (analytics.Artifact, error)
}

// Service submits exports and runs them on the worker side.
type Service struct {
	store     *Store
	queue     Enqueuer
	builder   Builder
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService wires the export store with its queue and builder. Either side
// may be nil when the process only submits or only runs exports.
func NewService(store *Store, queue Enqueuer, builder Builder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		queue:     queue,
		builder:   builder,
		logger:    logger,
		validator: validator.New(),
	}
}

// Submit validates req, registers a pending export and enqueues it.
func (s *Service) Submit(ctx context.Context, req Request) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !analytics.ReportName(req.Report).Valid() {
		return "", fmt.Errorf("%w: report %q", ErrInvalidRequest, req.Report)
	}
	if _, err := url.ParseQuery(req.Query); err != nil {
		return "", fmt.Errorf("%w: query: %v", ErrInvalidRequest, err)
	}
	if s.queue == nil {
		return "", errors.New("exports: queue not configured")
	}

	id, err := s.store.Create(ctx)
	if err != nil {
		return "", err
	}
	if err := s.queue.EnqueueExport(ctx, Job{ID: id, Report: req.Report, Query: req.Query}); err != nil {
		if ferr := s.store.Fail(ctx, id, "enqueue failed"); ferr != nil {
			s.logger.Warn("mark export failed", slog.String("id", id), slog.Any("error", ferr))
		}
		return "", fmt.Errorf("exports: enqueue %s: %w", id, err)
	}
	s.logger.Info("export submitted", slog.String("id", id), slog.String("report", req.Report))
	return id, nil
}

// Get returns the stored export.
func (s *Service) Get(ctx context.Context, id string) (Export, error) {
	return s.store.Get(ctx, id)
}

// Process builds the report for job and stores the outcome. Report errors
// mark the export failed and are not returned, so the queue does not retry
// a request that can never succeed.
func (s *Service) Process(ctx context.Context, job Job) error {
	if s.builder == nil {
		return errors.New("exports: builder not configured")
	}
	logger := s.logger.With(slog.String("id", job.ID), slog.String("report", job.Report))

	query, err := url.ParseQuery(job.Query)
	if err != nil {
		return s.store.Fail(ctx, job.ID, "invalid query")
	}
	artifact, err := s.builder.Build(ctx, analytics.ReportName(job.Report), query)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrValidation) {
			logger.Info("export produced no report", slog.Any("error", err))
			return s.store.Fail(ctx, job.ID, httpx.ToStatus(err).Message)
		}
		logger.Error("export build failed", slog.Any("error", err))
		return err
	}
	if err := s.store.Complete(ctx, job.ID, artifact.Filename, artifact.Data); err != nil {
		return err
	}
	logger.Info("export ready", slog.Int("bytes", len(artifact.Data)))
	return nil
}

// Abandon marks an export failed once the queue gives up retrying it.
func (s *Service) Abandon(ctx context.Context, id string) error {
	return s.store.Fail(ctx, id, "Error al generar el reporte")
}

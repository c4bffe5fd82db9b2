package receivables

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Ledger is the accounting database as seen by the report.
type Ledger interface {
	// InvoiceGroups returns aggregated rows ordered by customer name and due date.
	InvoiceGroups(ctx context.Context, filters Filters, buckets []AgingBucket) ([]InvoiceGroupRow, error)
	// ReconciliationEvents returns the customer's payment and credit
	// applications ordered by effective date ascending.
	ReconciliationEvents(ctx context.Context, customerID int64) ([]ReconciliationEvent, error)
}

// Recorder receives report metrics. A nil Recorder is ignored.
type Recorder interface {
	ObserveRows(kept, suppressed int)
	ObserveEventFetch(d time.Duration)
}

// Options controls report generation.
type Options struct {
	Concurrency int
	Buckets     BucketOptions
}

const defaultConcurrency = 8

// Service builds reconciled accounts receivable reports.
type Service struct {
	ledger   Ledger
	opts     Options
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(ledger Ledger, opts Options, logger *slog.Logger) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, opts: opts, logger: logger, now: time.Now}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(r Recorder) {
	s.recorder = r
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Buckets returns the aging buckets used for filters.
func (s *Service) Buckets(filters Filters) []AgingBucket {
	asOf := s.now().UTC()
	if filters.DateTo != nil {
		asOf = *filters.DateTo
	}
	return GenerateBucketsAt(asOf, s.opts.Buckets)
}

// AccountsReceivable queries, reconciles and orders the report rows.
func (s *Service) AccountsReceivable(ctx context.Context, filters Filters) (Report, error) {
	buckets := s.Buckets(filters)

	rows, err := s.ledger.InvoiceGroups(ctx, filters, buckets)
	if err != nil {
		return Report{}, fmt.Errorf("receivables: load invoice groups: %w", err)
	}
	if len(rows) == 0 {
		return Report{}, ErrNoResults
	}

	events, err := s.loadEvents(ctx, rows)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Filters:     filters,
		AsOf:        day(s.now().UTC()),
		Buckets:     buckets,
		Rows:        make([]ReconciledRow, 0, len(rows)),
		GeneratedAt: s.now(),
	}
	if filters.DateTo != nil {
		report.AsOf = day(*filters.DateTo)
	}
	for _, row := range rows {
		reconciled, ok := Reconcile(row, events[row.CustomerID], buckets, filters.DateTo)
		if !ok {
			report.Suppressed++
			continue
		}
		report.Rows = append(report.Rows, reconciled)
	}

	if s.recorder != nil {
		s.recorder.ObserveRows(len(report.Rows), report.Suppressed)
	}
	s.logger.Debug("accounts receivable reconciled",
		slog.Int("rows", len(rows)),
		slog.Int("kept", len(report.Rows)),
		slog.Int("suppressed", report.Suppressed))

	if len(report.Rows) == 0 {
		return Report{}, ErrNoResults
	}
	return report, nil
}

// loadEvents fetches events once per distinct customer. The first failure
// cancels the remaining lookups and fails the report.
func (s *Service) loadEvents(ctx context.Context, rows []InvoiceGroupRow) (map[int64][]ReconciliationEvent, error) {
	customers := distinctCustomers(rows)
	results := make([][]ReconciliationEvent, len(customers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, customerID := range customers {
		i, customerID := i, customerID
		g.Go(func() error {
			start := time.Now()
			events, err := s.ledger.ReconciliationEvents(ctx, customerID)
			if s.recorder != nil {
				s.recorder.ObserveEventFetch(time.Since(start))
			}
			if err != nil {
				return fmt.Errorf("receivables: load events for customer %d: %w", customerID, err)
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCustomer := make(map[int64][]ReconciliationEvent, len(customers))
	for i, customerID := range customers {
		byCustomer[customerID] = results[i]
	}
	return byCustomer, nil
}

func distinctCustomers(rows []InvoiceGroupRow) []int64 {
	seen := make(map[int64]struct{}, len(rows))
	customers := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.CustomerID]; ok {
			continue
		}
		seen[row.CustomerID] = struct{}{}
		customers = append(customers, row.CustomerID)
	}
	return customers
}

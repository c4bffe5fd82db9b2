package invoicing

import (
	"context"
	"time"
)

// LineSource loads invoice lines for a normalized filter set.
type LineSource interface {
	Lines(ctx context.Context, f Filters, plan Plan) ([]Line, Labels, error)
}

// Service builds the invoice-line report.
type Service struct {
	source LineSource
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(source LineSource) *Service {
	return &Service{source: source, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// CustomerInvoices normalizes filters and loads the report lines.
func (s *Service) CustomerInvoices(ctx context.Context, filters Filters) (Report, error) {
	filters, plan, err := Normalize(filters)
	if err != nil {
		return Report{}, err
	}
	lines, labels, err := s.source.Lines(ctx, filters, plan)
	if err != nil {
		return Report{}, err
	}
	if len(lines) == 0 {
		return Report{}, ErrNoResults
	}
	return Report{
		Filters:     filters,
		Plan:        plan,
		Lines:       lines,
		Labels:      labels,
		GeneratedAt: s.now(),
	}, nil
}

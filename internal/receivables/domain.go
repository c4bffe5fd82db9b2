package receivables

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-receivables/internal/platform/httpx"
)

var (
	// ErrNoResults signals that the report has no rows to render.
	ErrNoResults = fmt.Errorf("receivables: no results: %w", httpx.ErrNotFound)
	// ErrInvalidDate is returned when an as-of or range date cannot be parsed.
	ErrInvalidDate = fmt.Errorf("receivables: invalid date: %w", httpx.ErrValidation)
	// ErrInvalidFilter is returned for malformed filter values.
	ErrInvalidFilter = fmt.Errorf("receivables: invalid filter: %w", httpx.ErrValidation)
)

// ValidationError reports the filter field that failed to parse.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("receivables: invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError wraps a ledger query failure.
type UpstreamError struct {
	Op       string
	SQLState string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("receivables: %s (sqlstate %s): %v", e.Op, e.SQLState, e.Err)
	}
	return fmt.Sprintf("receivables: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// EventKind distinguishes payment applications from credit notes.
type EventKind string

const (
	EventPayment EventKind = "payment"
	EventCredit  EventKind = "credit"
)

// Filters scopes the accounts receivable report.
type Filters struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	Name        string
	Origin      string
	Customer    string
	Salesperson string
	Remission   *bool
}

// DisplayFields are copied verbatim from the ledger row into the report.
type DisplayFields struct {
	Customer    string
	DateInvoice time.Time
	Number      string
	Origin      string
	Reference   string
	Salesperson string
	DateDue     time.Time
	Currency    string
	PaymentTerm string
}

// InvoiceGroupRow is one aggregated ledger row. Bucket amounts are keyed by
// AgingBucket.Name and were computed by the ledger as of today.
type InvoiceGroupRow struct {
	InvoiceIDs   []string
	CustomerID   int64
	TotalBalance decimal.Decimal
	Buckets      map[string]decimal.Decimal
	Display      DisplayFields
}

// ReconciliationEvent is a payment or credit application against one invoice.
type ReconciliationEvent struct {
	InvoiceID     string
	Amount        decimal.Decimal
	EffectiveDate time.Time
	Kind          EventKind
	Document      string
	// ConciledAt is zero when the ledger has no reconciliation timestamp.
	ConciledAt time.Time
}

// ReconciledRow is an InvoiceGroupRow restated as of the cutoff date.
type ReconciledRow struct {
	Display      DisplayFields
	Buckets      map[string]decimal.Decimal
	TotalBalance decimal.Decimal
}

// Amount returns the reconciled amount for a bucket, zero when absent.
func (r ReconciledRow) Amount(bucket string) decimal.Decimal {
	if v, ok := r.Buckets[bucket]; ok {
		return v
	}
	return decimal.Zero
}

// Report is the reconciled accounts receivable report ready for rendering.
type Report struct {
	Filters     Filters
	AsOf        time.Time
	Buckets     []AgingBucket
	Rows        []ReconciledRow
	Suppressed  int
	GeneratedAt time.Time
}

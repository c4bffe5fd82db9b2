// Package invoicing builds the customer invoice-line report.
package invoicing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-receivables/internal/platform/httpx"
)

var (
	// ErrNoResults signals that no invoice lines matched the filters.
	ErrNoResults = fmt.Errorf("invoicing: no results: %w", httpx.ErrNotFound)
	// ErrInvalidFilter is returned for malformed filter values.
	ErrInvalidFilter = fmt.Errorf("invoicing: invalid filter: %w", httpx.ErrValidation)
)

// ReportType selects how invoice lines are grouped.
type ReportType string

const (
	ReportCustomer            ReportType = "customer"
	ReportTransactionSequence ReportType = "transaction_sequence"
	ReportDetail              ReportType = "detail"
)

// StatusCanceled is the invoice status id for canceled invoices.
const StatusCanceled = 3

// IDRange is an inclusive id range.
type IDRange struct {
	From int64
	To   int64
}

// Filters scopes the invoice-line report.
type Filters struct {
	Name                   string
	DateFrom               *time.Time
	DateTo                 *time.Time
	Customer               string
	CustomerRange          *IDRange
	Reference              string
	SalespersonID          *int64
	Origin                 string
	InvoiceOnly            bool
	Remission              *bool
	PromotionIDs           []int64
	TransactionSequenceIDs []int64
	InvoiceStatusIDs       []int64
	ShowCanceled           bool
	ProductSearch          string
	ProductRange           *IDRange
	ProductCategoryID      *int64
	ProductManufacturerID  *int64
	ReportType             ReportType
	Sort                   *int
	Order                  string
	MarginPermission       bool
	CurrencyCode           string
}

// Plan is the grouping and ordering derived from Filters.
type Plan struct {
	Group int
	Sort  int
	Order string
}

// Line is one (possibly grouped) invoice-line row.
type Line struct {
	DateInvoice         time.Time
	TransactionSequence string
	Number              string
	Customer            string
	Salesperson         string
	ProductCode         string
	Product             string
	Category            string
	Manufacturer        string
	Quantity            decimal.Decimal
	Subtotal            decimal.Decimal
	Discount            decimal.Decimal
	Tax                 decimal.Decimal
	Total               decimal.Decimal
	Cost                decimal.Decimal
	Margin              decimal.Decimal
	InvoiceStatusID     int64
}

var hundred = decimal.NewFromInt(100)

// MarginPercent is margin over subtotal in percent, never below zero.
func (l Line) MarginPercent() decimal.Decimal {
	if l.Margin.IsZero() || l.Subtotal.IsZero() {
		return decimal.Zero
	}
	pct := l.Margin.Div(l.Subtotal).Mul(hundred)
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct
}

// StatusLabel is the status column text.
func (l Line) StatusLabel() string {
	if l.InvoiceStatusID == StatusCanceled {
		return "Cancelado"
	}
	return "Activo"
}

// Labels are display names for id filters, resolved from the ledger.
type Labels struct {
	Category             string
	Manufacturer         string
	TransactionSequences []string
}

// Report is the invoice-line report ready for rendering.
type Report struct {
	Filters     Filters
	Plan        Plan
	Lines       []Line
	Labels      Labels
	GeneratedAt time.Time
}

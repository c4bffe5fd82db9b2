// Package analytics turns report requests into rendered workbooks.
package analytics

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-receivables/internal/invoicing"
	"github.com/odyssey-erp/odyssey-receivables/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-receivables/internal/receivables"
	"github.com/odyssey-erp/odyssey-receivables/internal/spreadsheet"
)

// ReportName identifies a downloadable report.
type ReportName string

const (
	ReportReceivables ReportName = "cuentas_por_cobrar"
	ReportInvoices    ReportName = "reporte_facturacion_clientes"
)

// ErrUnknownReport is returned for report names outside the catalogue.
var ErrUnknownReport = fmt.Errorf("analytics: unknown report: %w", httpx.ErrValidation)

// Valid reports whether n names a known report.
func (n ReportName) Valid() bool {
	return n == ReportReceivables || n == ReportInvoices
}

// Artifact is a rendered report ready to stream.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReceivablesSource produces the reconciled aging report.
type ReceivablesSource interface {
	AccountsReceivable(ctx context.Context, filters receivables.Filters) (receivables.Report, error)
}

// InvoicesSource produces the invoice-line report.
type InvoicesSource interface {
	CustomerInvoices(ctx context.Context, filters invoicing.Filters) (invoicing.Report, error)
}

// BuildRecorder observes report build latency.
type BuildRecorder interface {
	ObserveBuild(report string, d time.Duration)
}

// Catalog parses report queries, loads the data and renders the workbook.
type Catalog struct {
	receivables ReceivablesSource
	invoices    InvoicesSource
	meta        spreadsheet.Meta
	logger      *slog.Logger
	recorder    BuildRecorder
	builds      singleflight.Group
	bufPool     sync.Pool
	now         func() time.Time
}

// NewCatalog wires the report sources.
func NewCatalog(rs ReceivablesSource, is InvoicesSource, meta spreadsheet.Meta, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		receivables: rs,
		invoices:    is,
		meta:        meta,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	c.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return c
}

// WithRecorder attaches build metrics.
func (c *Catalog) WithRecorder(r BuildRecorder) {
	c.recorder = r
}

// WithNow overrides the clock used for the creation date.
func (c *Catalog) WithNow(fn func() time.Time) {
	if fn != nil {
		c.now = fn
	}
}

// Build renders report name for query. Identical concurrent requests share one build.
func (c *Catalog) Build(ctx context.Context, name ReportName, query url.Values) (Artifact, error) {
	if !name.Valid() {
		return Artifact{}, ErrUnknownReport
	}
	key := string(name) + "?" + query.Encode()
	ch := c.builds.DoChan(key, func() (interface{}, error) {
		return c.build(ctx, name, query)
	})
	select {
	case <-ctx.Done():
		return Artifact{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Artifact{}, res.Err
		}
		return res.Val.(Artifact), nil
	}
}

func (c *Catalog) build(ctx context.Context, name ReportName, query url.Values) (Artifact, error) {
	start := time.Now()
	buf := c.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		c.bufPool.Put(buf)
	}()

	meta := c.meta
	meta.GeneratedAt = c.now()

	var filename string
	switch name {
	case ReportReceivables:
		filters, err := ParseReceivables(query)
		if err != nil {
			return Artifact{}, err
		}
		report, err := c.receivables.AccountsReceivable(ctx, filters)
		if err != nil {
			return Artifact{}, err
		}
		if !report.GeneratedAt.IsZero() {
			meta.GeneratedAt = report.GeneratedAt
		}
		if err := spreadsheet.WriteReceivables(buf, report, meta); err != nil {
			return Artifact{}, fmt.Errorf("analytics: assemble %s: %w", name, err)
		}
		filename = spreadsheet.ReceivablesFilename
	case ReportInvoices:
		filters, err := ParseInvoices(query)
		if err != nil {
			return Artifact{}, err
		}
		report, err := c.invoices.CustomerInvoices(ctx, filters)
		if err != nil {
			return Artifact{}, err
		}
		if report.GeneratedAt.IsZero() {
			report.GeneratedAt = meta.GeneratedAt
		}
		if err := spreadsheet.WriteInvoiceLines(buf, report, meta); err != nil {
			return Artifact{}, fmt.Errorf("analytics: assemble %s: %w", name, err)
		}
		filename = spreadsheet.InvoicesFilename
	}

	elapsed := time.Since(start)
	if c.recorder != nil {
		c.recorder.ObserveBuild(string(name), elapsed)
	}
	c.logger.Debug("report built",
		slog.String("report", string(name)),
		slog.Int("bytes", buf.Len()),
		slog.Duration("duration", elapsed),
	)
	return Artifact{
		Filename:    filename,
		ContentType: spreadsheet.ContentType,
		Data:        bytes.Clone(buf.Bytes()),
	}, nil
}

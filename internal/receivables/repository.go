package receivables

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-receivables/internal/platform/db"
)

// Invoice statuses and transaction sequences that carry a receivable.
var (
	openInvoiceStatuses = []int32{2, 4, 5}
	debitSequenceCodes  = []string{"debit.invoice", "dedit.fee", "debit.lease", "debit.debit", "debit.remission"}
)

// Repository reads invoice groups and reconciliation events from Postgres.
type Repository struct {
	db     db.Querier
	tables db.Tables
}

// NewRepository constructs a Repository over the given tables.
func NewRepository(q db.Querier, tables db.Tables) *Repository {
	return &Repository{db: q, tables: tables}
}

// InvoiceGroups implements Ledger.
func (r *Repository) InvoiceGroups(ctx context.Context, filters Filters, buckets []AgingBucket) ([]InvoiceGroupRow, error) {
	sql, args := r.invoiceGroupsQuery(filters, buckets)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, upstream("query invoice groups", err)
	}
	defer rows.Close()

	var out []InvoiceGroupRow
	for rows.Next() {
		var (
			row     InvoiceGroupRow
			ids     string
			amounts = make([]decimal.Decimal, len(buckets))
		)
		dest := []any{
			&ids,
			&row.CustomerID,
			&row.TotalBalance,
			&row.Display.Customer,
			&row.Display.DateInvoice,
			&row.Display.Number,
			&row.Display.Origin,
			&row.Display.Reference,
			&row.Display.Salesperson,
			&row.Display.DateDue,
			&row.Display.Currency,
			&row.Display.PaymentTerm,
		}
		for i := range amounts {
			dest = append(dest, &amounts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, upstream("scan invoice group", err)
		}
		row.InvoiceIDs = splitIDs(ids)
		row.Buckets = make(map[string]decimal.Decimal, len(buckets))
		for i, b := range buckets {
			row.Buckets[b.Name] = amounts[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("iterate invoice groups", err)
	}
	return out, nil
}

func (r *Repository) invoiceGroupsQuery(filters Filters, buckets []AgingBucket) (string, []any) {
	var args db.Args
	t := r.tables.Name

	var b strings.Builder
	b.WriteString(`SELECT string_agg(cin.customer_invoice_id::text, ','),
	cin.customer_id,
	COALESCE(SUM(cin.balance / cin.currency_value * trs.nature), 0),
	cus.name,
	cin.date_invoice::date,
	COALESCE(cin.name, ''),
	COALESCE(cin.origin, ''),
	COALESCE(cin.reference, ''),
	sap.name,
	cin.date_due::date,
	cin.currency_code,
	pte.name`)
	for _, bucket := range buckets {
		fmt.Fprintf(&b, ",\n\tCOALESCE(SUM(CASE WHEN %s THEN cin.amount_total / cin.currency_value * trs.nature ELSE 0 END), 0) AS %s",
			dueDateRange(&args, bucket), bucket.Name)
	}
	fmt.Fprintf(&b, `
FROM %s AS cin
	INNER JOIN %s AS cus ON cin.customer_id = cus.customer_id
	INNER JOIN %s AS sap ON cin.salesperson_id = sap.id
	INNER JOIN %s AS ist ON cin.invoice_status_id = ist.invoice_status_id
	INNER JOIN %s AS curr ON cin.currency_id = curr.currency_id
	INNER JOIN %s AS pte ON cin.payment_term_id = pte.payment_term_id
	INNER JOIN %s AS trs ON cin.transaction_sequence_id = trs.id
WHERE cin.invoice_status_id = ANY(%s)
	AND trs.code = ANY(%s)`,
		t("customer_invoice"), t("customer"), t("user"), t("invoice_status"),
		t("currency"), t("payment_term"), t("transaction_sequence"),
		args.Add(openInvoiceStatuses), args.Add(debitSequenceCodes))

	if filters.DateFrom != nil {
		fmt.Fprintf(&b, "\n\tAND cin.date_invoice::date >= %s", args.Add(*filters.DateFrom))
	}
	if filters.DateTo != nil {
		fmt.Fprintf(&b, "\n\tAND cin.date_invoice::date <= %s", args.Add(*filters.DateTo))
	}
	if filters.Name != "" {
		fmt.Fprintf(&b, "\n\tAND cin.name ILIKE %s", args.Add(db.LikePattern(filters.Name)))
	}
	if filters.Origin != "" {
		fmt.Fprintf(&b, "\n\tAND cin.origin ILIKE %s", args.Add(db.LikePattern(filters.Origin)))
	}
	if filters.Customer != "" {
		fmt.Fprintf(&b, "\n\tAND cus.name ILIKE %s", args.Add(db.LikePattern(filters.Customer)))
	}
	if filters.Salesperson != "" {
		fmt.Fprintf(&b, "\n\tAND sap.name ILIKE %s", args.Add(db.LikePattern(filters.Salesperson)))
	}
	if filters.Remission != nil {
		fmt.Fprintf(&b, "\n\tAND cin.remission = %s", args.Add(*filters.Remission))
	}
	b.WriteString("\nGROUP BY cin.customer_invoice_id, cus.name, sap.name, pte.name")
	b.WriteString("\nORDER BY cus.name, cin.date_due ASC")
	return b.String(), args.Values()
}

func dueDateRange(args *db.Args, bucket AgingBucket) string {
	switch {
	case bucket.QueryStart != nil && bucket.QueryEnd != nil:
		return fmt.Sprintf("cin.date_due::date BETWEEN %s AND %s", args.Add(*bucket.QueryStart), args.Add(*bucket.QueryEnd))
	case bucket.QueryStart != nil:
		return fmt.Sprintf("cin.date_due::date >= %s", args.Add(*bucket.QueryStart))
	case bucket.QueryEnd != nil:
		return fmt.Sprintf("cin.date_due::date <= %s", args.Add(*bucket.QueryEnd))
	default:
		return "TRUE"
	}
}

// ReconciliationEvents implements Ledger. Payment links and refund links are
// merged and ordered by effective date, then by reconciliation time.
func (r *Repository) ReconciliationEvents(ctx context.Context, customerID int64) ([]ReconciliationEvent, error) {
	rows, err := r.db.Query(ctx, r.eventsQuery(), customerID)
	if err != nil {
		return nil, upstream("query reconciliation events", err)
	}
	defer rows.Close()

	var out []ReconciliationEvent
	for rows.Next() {
		var (
			ev         ReconciliationEvent
			kind       string
			conciledAt pgtype.Timestamptz
		)
		if err := rows.Scan(&ev.InvoiceID, &ev.Amount, &ev.EffectiveDate, &kind, &ev.Document, &conciledAt); err != nil {
			return nil, upstream("scan reconciliation event", err)
		}
		ev.Kind = EventKind(kind)
		if conciledAt.Valid {
			ev.ConciledAt = conciledAt.Time
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("iterate reconciliation events", err)
	}
	return out, nil
}

func (r *Repository) eventsQuery() string {
	t := r.tables.Name
	return fmt.Sprintf(`SELECT cpr.customer_invoice_id::text, cpr.amount, cpa.date_effective::date AS effective_date,
	'payment', COALESCE(cpa.name, ''), cpr.date_conciled AS conciled_at
FROM %s AS cpr
	INNER JOIN %s AS cpa ON cpr.customer_payment_id = cpa.customer_payment_id
	INNER JOIN %s AS cin ON cpr.customer_invoice_id = cin.customer_invoice_id
WHERE cin.customer_id = $1 AND cpr.status = 1
UNION ALL
SELECT crr.customer_invoice_id::text, crr.amount, crf.date_invoice::date AS effective_date,
	'credit', COALESCE(crf.name, ''), crr.date_conciled AS conciled_at
FROM %s AS crr
	INNER JOIN %s AS crf ON crr.customer_refund_id = crf.customer_invoice_id
	INNER JOIN %s AS cin ON crr.customer_invoice_id = cin.customer_invoice_id
WHERE cin.customer_id = $1 AND crr.status = 1
ORDER BY effective_date, conciled_at`,
		t("customer_payment_invoice_rel"), t("customer_payment"), t("customer_invoice"),
		t("customer_refund_invoice_rel"), t("customer_invoice"), t("customer_invoice"))
}

func splitIDs(joined string) []string {
	parts := strings.Split(joined, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, SQLState: db.SQLState(err), Err: err}
}

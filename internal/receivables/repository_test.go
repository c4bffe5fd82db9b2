package receivables

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-receivables/internal/platform/db"
)

func newTestRepository(t *testing.T, prefix string) *Repository {
	t.Helper()
	tables, err := db.NewTables(prefix)
	require.NoError(t, err)
	return NewRepository(nil, tables)
}

func TestInvoiceGroupsQueryBindsBucketsAndFilters(t *testing.T) {
	repo := newTestRepository(t, "erp_")
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	remission := true

	sql, args := repo.invoiceGroupsQuery(Filters{
		DateFrom:    &from,
		DateTo:      &cutoff,
		Customer:    "comercial  del norte",
		Salesperson: "ana",
		Remission:   &remission,
	}, buckets)

	require.Contains(t, sql, "FROM erp_customer_invoice AS cin")
	require.Contains(t, sql, "INNER JOIN erp_transaction_sequence AS trs")
	require.Contains(t, sql, "ORDER BY cus.name, cin.date_due ASC")
	for _, b := range buckets {
		require.Contains(t, sql, "AS "+b.Name)
	}
	require.NotContains(t, sql, "cin.name ILIKE")
	require.NotContains(t, sql, "cin.origin ILIKE")

	// 19 bucket bounds, statuses, sequence codes, then five filters.
	require.Len(t, args, 26)
	require.Equal(t, openInvoiceStatuses, args[19])
	require.Equal(t, debitSequenceCodes, args[20])
	require.Equal(t, "%comercial%%del%%norte%", args[23])
	require.Equal(t, "%ana%", args[24])
	require.Equal(t, true, args[25])
	require.Contains(t, sql, "$26")
	require.NotContains(t, sql, "$27")
}

func TestInvoiceGroupsQueryUsesLegacyPast39Bounds(t *testing.T) {
	repo := newTestRepository(t, "")
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})

	_, args := repo.invoiceGroupsQuery(Filters{}, buckets)
	// past_more_45 binds one bound, past_45 two, past_39 is next.
	require.Equal(t, cutoff.AddDate(0, 0, -10), args[3])
	require.Equal(t, cutoff.AddDate(0, 0, -1), args[4])
}

func TestEventsQueryMergesPaymentsAndCredits(t *testing.T) {
	repo := newTestRepository(t, "erp_")
	sql := repo.eventsQuery()

	require.Contains(t, sql, "erp_customer_payment_invoice_rel")
	require.Contains(t, sql, "erp_customer_refund_invoice_rel")
	require.Contains(t, sql, "UNION ALL")
	require.True(t, strings.HasSuffix(sql, "ORDER BY effective_date, conciled_at"))
	require.Equal(t, 2, strings.Count(sql, "cin.customer_id = $1"))
}

func TestSplitIDs(t *testing.T) {
	require.Equal(t, []string{"10", "11", "12"}, splitIDs("10, 11,,12"))
	require.Empty(t, splitIDs(""))
}

func TestNewTablesRejectsUnsafePrefix(t *testing.T) {
	_, err := db.NewTables("erp; DROP TABLE x;")
	require.Error(t, err)
}

func newStubRepository(t *testing.T, q *stubQuerier) *Repository {
	t.Helper()
	tables, err := db.NewTables("")
	require.NoError(t, err)
	return NewRepository(q, tables)
}

func invoiceGroupValues(ids string, customerID int64, total string, buckets []AgingBucket, amounts map[string]string) []any {
	invoiced := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	values := []any{
		ids, customerID, dec(total),
		"Comercial del Norte", invoiced, "F-100", "PED-9", "REF-1", "Ana Ruiz",
		invoiced.AddDate(0, 0, 30), "MXN", "30 días",
	}
	for _, b := range buckets {
		amount := decimal.Zero
		if v, ok := amounts[b.Name]; ok {
			amount = dec(v)
		}
		values = append(values, amount)
	}
	return values
}

func TestInvoiceGroupsMapsRows(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	rows := &stubRows{values: [][]any{
		invoiceGroupValues("10,11", 7, "1500", buckets, map[string]string{BucketPastDue: "1000", BucketBlock1: "500"}),
		invoiceGroupValues("12", 8, "250", buckets, map[string]string{BucketFuture: "250"}),
	}}
	q := &stubQuerier{rows: []*stubRows{rows}}

	got, err := newStubRepository(t, q).InvoiceGroups(context.Background(), Filters{}, buckets)
	require.NoError(t, err)
	require.True(t, rows.closed)
	require.Len(t, got, 2)

	first := got[0]
	require.Equal(t, []string{"10", "11"}, first.InvoiceIDs)
	require.Equal(t, int64(7), first.CustomerID)
	requireAmount(t, "1500", first.TotalBalance)
	require.Equal(t, "Ana Ruiz", first.Display.Salesperson)
	require.Equal(t, "30 días", first.Display.PaymentTerm)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), first.Display.DateDue)
	require.Len(t, first.Buckets, len(buckets))
	requireAmount(t, "1000", first.Buckets[BucketPastDue])
	requireAmount(t, "500", first.Buckets[BucketBlock1])
	requireAmount(t, "0", first.Buckets[BucketFuture])

	require.Equal(t, []string{"12"}, got[1].InvoiceIDs)
	requireAmount(t, "250", got[1].Buckets[BucketFuture])
}

func TestReconciliationEventsMapsRows(t *testing.T) {
	conciled := time.Date(2024, 3, 20, 15, 4, 5, 0, time.UTC)
	rows := &stubRows{values: [][]any{
		{"10", dec("300"), time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), "payment", "PAGO-1",
			pgtype.Timestamptz{Time: conciled, Valid: true}},
		{"11", dec("50"), time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), "credit", "NC-4",
			pgtype.Timestamptz{}},
	}}
	q := &stubQuerier{rows: []*stubRows{rows}}

	got, err := newStubRepository(t, q).ReconciliationEvents(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []any{int64(7)}, q.lastArgs)
	require.Len(t, got, 2)

	require.Equal(t, EventPayment, got[0].Kind)
	require.Equal(t, "PAGO-1", got[0].Document)
	require.Equal(t, conciled, got[0].ConciledAt)
	requireAmount(t, "300", got[0].Amount)

	require.Equal(t, EventCredit, got[1].Kind)
	require.True(t, got[1].ConciledAt.IsZero())
}

func TestGatewayWrapsUpstreamErrors(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	pgErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}

	cases := []struct {
		name  string
		q     *stubQuerier
		op    string
		state string
	}{
		{
			name:  "query",
			q:     &stubQuerier{err: pgErr},
			op:    "query invoice groups",
			state: "42P01",
		},
		{
			name: "scan",
			q: &stubQuerier{rows: []*stubRows{{
				values:  [][]any{invoiceGroupValues("1", 7, "10", buckets, nil)},
				scanErr: errors.New("cannot scan NULL into *string"),
			}}},
			op: "scan invoice group",
		},
		{
			name: "iterate",
			q: &stubQuerier{rows: []*stubRows{{
				iterErr: &pgconn.PgError{Code: "57014", Message: "canceling statement"},
			}}},
			op:    "iterate invoice groups",
			state: "57014",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newStubRepository(t, tc.q).InvoiceGroups(context.Background(), Filters{}, buckets)
			var upstream *UpstreamError
			require.ErrorAs(t, err, &upstream)
			require.Equal(t, tc.op, upstream.Op)
			require.Equal(t, tc.state, upstream.SQLState)
		})
	}

	_, err := newStubRepository(t, &stubQuerier{rows: []*stubRows{{
		values:  [][]any{{"10"}},
		scanErr: errors.New("bad numeric"),
	}}}).ReconciliationEvents(context.Background(), 7)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, "scan reconciliation event", upstream.Op)

	_, err = newStubRepository(t, &stubQuerier{rows: []*stubRows{{
		iterErr: errors.New("conn reset"),
	}}}).ReconciliationEvents(context.Background(), 7)
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, "iterate reconciliation events", upstream.Op)
}

package receivables

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var cutoff = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func event(id, amount string, daysFromCutoff int) ReconciliationEvent {
	return ReconciliationEvent{
		InvoiceID:     id,
		Amount:        dec(amount),
		EffectiveDate: cutoff.AddDate(0, 0, daysFromCutoff),
		Kind:          EventPayment,
	}
}

func groupRow(total string, buckets map[string]string, ids ...string) InvoiceGroupRow {
	row := InvoiceGroupRow{
		InvoiceIDs:   ids,
		CustomerID:   7,
		TotalBalance: dec(total),
		Buckets:      make(map[string]decimal.Decimal, len(buckets)),
		Display:      DisplayFields{Customer: "Comercial del Norte", Number: "F-100"},
	}
	for name, amount := range buckets {
		row.Buckets[name] = dec(amount)
	}
	return row
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func TestReconcileFullPaymentBeforeCutoffKeepsRow(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("1000", map[string]string{BucketPastDue: "1000"}, "1")

	// The ledger balance already reflects payments applied before the
	// cutoff, and a reduction may not empty the bucket.
	out, ok := Reconcile(row, []ReconciliationEvent{event("1", "1000", -3)}, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "1000", out.TotalBalance)
	requireAmount(t, "1000", out.Amount(BucketPastDue))
}

func TestReconcileSuppressesZeroBalanceRow(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("0", map[string]string{BucketPastDue: "1000"}, "1")

	_, ok := Reconcile(row, []ReconciliationEvent{event("1", "1000", -3)}, buckets, &cutoff)
	require.False(t, ok)
}

func TestReconcileEarlyPaymentKeepsBalance(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("1000", map[string]string{BucketBlock1: "1000"}, "1")

	out, ok := Reconcile(row, []ReconciliationEvent{event("1", "1000", -3)}, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "1000", out.TotalBalance)
}

func TestReconcileAddsBackFuturePayment(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("500", map[string]string{BucketBlock1: "500"}, "1")

	out, ok := Reconcile(row, []ReconciliationEvent{event("1", "200", 4)}, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "700", out.TotalBalance)
	requireAmount(t, "500", out.Amount(BucketBlock1))
}

func TestReconcileSuppressesNegativeBalance(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("-50", map[string]string{BucketBlock1: "-50"}, "1")

	_, ok := Reconcile(row, nil, buckets, &cutoff)
	require.False(t, ok)
}

func TestReconcileCutoffBoundaryAsymmetry(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("1000", map[string]string{
		BucketPastDue: "1000",
		BucketBlock1:  "1000",
	}, "1")

	out, ok := Reconcile(row, []ReconciliationEvent{event("1", "300", 0)}, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "700", out.Amount(BucketPastDue))
	requireAmount(t, "1000", out.Amount(BucketBlock1))
}

func TestReconcileStrictBeforeCutoffReducesAllBuckets(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("1000", map[string]string{
		BucketPastDue: "1000",
		BucketPast31:  "800",
	}, "1")

	out, ok := Reconcile(row, []ReconciliationEvent{event("1", "300", -1)}, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "700", out.Amount(BucketPastDue))
	requireAmount(t, "500", out.Amount(BucketPast31))
}

func TestReconcileNeverDrivesBucketToZero(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("1000", map[string]string{BucketPastDue: "1000"}, "1", "2")
	events := []ReconciliationEvent{
		event("1", "600", -10),
		event("2", "600", -5),
		event("2", "100", -2),
	}

	out, ok := Reconcile(row, events, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "300", out.Amount(BucketPastDue))
}

func TestReconcileIgnoresOtherInvoices(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("400", map[string]string{BucketPastDue: "400"}, "1")
	events := []ReconciliationEvent{
		event("9", "100", -3),
		event("9", "250", 3),
	}

	out, ok := Reconcile(row, events, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "400", out.TotalBalance)
	requireAmount(t, "400", out.Amount(BucketPastDue))
}

func TestReconcileSettledInvoiceIgnoresLaterEvents(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("400", map[string]string{BucketBlock2: "400"}, "1")
	events := []ReconciliationEvent{
		event("1", "100", -3),
		event("1", "250", 3),
	}

	out, ok := Reconcile(row, events, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "400", out.TotalBalance)
}

func TestReconcileFutureOnlyPaymentsLeaveBucketsAlone(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("300", map[string]string{BucketPastDue: "300"}, "1")

	out, ok := Reconcile(row, []ReconciliationEvent{event("1", "100", 2)}, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "400", out.TotalBalance)
	requireAmount(t, "300", out.Amount(BucketPastDue))
}

func TestReconcileKeepsNonPositiveBuckets(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("900", map[string]string{
		BucketPastDue: "1000",
		BucketPast45:  "-100",
	}, "1")

	out, ok := Reconcile(row, []ReconciliationEvent{event("1", "50", -60)}, buckets, &cutoff)
	require.True(t, ok)
	requireAmount(t, "-100", out.Amount(BucketPast45))
	requireAmount(t, "0", out.Amount(BucketFuture))
}

func TestReconcileWithoutCutoffIsIdentity(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("1200", map[string]string{
		BucketPastDue: "700",
		BucketPast31:  "700",
		BucketBlock1:  "500",
	}, "1", "2")
	events := []ReconciliationEvent{event("1", "700", -1), event("2", "300", 5)}

	out, ok := Reconcile(row, events, buckets, nil)
	require.True(t, ok)
	requireAmount(t, "1200", out.TotalBalance)
	for _, b := range buckets {
		requireAmount(t, rawAmount(row, b.Name).String(), out.Amount(b.Name))
	}
	require.Equal(t, row.Display, out.Display)
}

func TestReconcileIsIdempotent(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	row := groupRow("1000", map[string]string{
		BucketPastDue: "1000",
		BucketPast31:  "600",
		BucketBlock1:  "400",
	}, "1", "2", "3")
	events := []ReconciliationEvent{
		event("1", "200", -4),
		event("2", "150", 0),
		event("3", "75", 6),
	}

	first, ok1 := Reconcile(row, events, buckets, &cutoff)
	second, ok2 := Reconcile(row, events, buckets, &cutoff)
	require.Equal(t, ok1, ok2)
	require.Equal(t, first, second)
}

func TestReconcileReductionsNeverIncreaseBuckets(t *testing.T) {
	buckets := GenerateBucketsAt(cutoff, BucketOptions{})
	events := []ReconciliationEvent{
		event("1", "120", -40),
		event("2", "80", -12),
		event("1", "55", -1),
		event("3", "900", 0),
		event("2", "40", 7),
	}
	rows := []InvoiceGroupRow{
		groupRow("2000", map[string]string{BucketPastMore45: "150", BucketPast45: "90", BucketPastDue: "1000", BucketBlock1: "300"}, "1", "2"),
		groupRow("50", map[string]string{BucketPastDue: "30", BucketFuture: "20"}, "3"),
		groupRow("10", map[string]string{BucketPast31: "1", BucketBlock3: "9"}, "1", "2", "3"),
	}

	for _, row := range rows {
		out, ok := Reconcile(row, events, buckets, &cutoff)
		if !ok {
			require.False(t, out.TotalBalance.IsPositive())
			continue
		}
		require.True(t, out.TotalBalance.IsPositive())
		for _, b := range buckets {
			before := rawAmount(row, b.Name)
			after := out.Amount(b.Name)
			if before.IsPositive() {
				require.Truef(t, after.LessThanOrEqual(before), "%s grew from %s to %s", b.Name, before, after)
				require.Truef(t, after.IsPositive(), "%s dropped to %s", b.Name, after)
			}
		}
	}
}

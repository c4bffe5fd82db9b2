package receivables

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	rows      []InvoiceGroupRow
	rowsErr   error
	events    map[int64][]ReconciliationEvent
	eventsErr map[int64]error
	delay     time.Duration

	mu        sync.Mutex
	calls     map[int64]int
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	filters   Filters
	buckets   []AgingBucket
}

func (s *stubLedger) InvoiceGroups(ctx context.Context, filters Filters, buckets []AgingBucket) ([]InvoiceGroupRow, error) {
	s.filters = filters
	s.buckets = buckets
	return s.rows, s.rowsErr
}

func (s *stubLedger) ReconciliationEvents(ctx context.Context, customerID int64) ([]ReconciliationEvent, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxFlight.Load()
		if n <= cur || s.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[int64]int)
	}
	s.calls[customerID]++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.eventsErr[customerID]; err != nil {
		return nil, err
	}
	return s.events[customerID], nil
}

type countingRecorder struct {
	kept, suppressed int
	fetches          atomic.Int32
}

func (r *countingRecorder) ObserveRows(kept, suppressed int) {
	r.kept, r.suppressed = kept, suppressed
}

func (r *countingRecorder) ObserveEventFetch(time.Duration) {
	r.fetches.Add(1)
}

func customerRow(customerID int64, customer, total string, ids ...string) InvoiceGroupRow {
	row := groupRow(total, map[string]string{BucketBlock1: total}, ids...)
	row.CustomerID = customerID
	row.Display.Customer = customer
	return row
}

func newTestService(ledger Ledger, concurrency int) *Service {
	svc := NewService(ledger, Options{Concurrency: concurrency}, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 4, 2, 15, 0, 0, 0, time.UTC) })
	return svc
}

func TestAccountsReceivableKeepsQueryOrder(t *testing.T) {
	ledger := &stubLedger{
		rows: []InvoiceGroupRow{
			customerRow(3, "Abarrotes Luna", "100", "31"),
			customerRow(1, "Bodega Central", "200", "11"),
			customerRow(3, "Abarrotes Luna", "300", "32"),
			customerRow(2, "Comercial Sol", "400", "21"),
		},
		events: map[int64][]ReconciliationEvent{
			1: {event("11", "50", 3)},
		},
		delay: 5 * time.Millisecond,
	}
	svc := newTestService(ledger, 4)

	report, err := svc.AccountsReceivable(context.Background(), Filters{DateTo: &cutoff})
	require.NoError(t, err)
	require.Len(t, report.Rows, 4)
	require.Equal(t, "Abarrotes Luna", report.Rows[0].Display.Customer)
	require.Equal(t, "Bodega Central", report.Rows[1].Display.Customer)
	require.Equal(t, "Comercial Sol", report.Rows[3].Display.Customer)
	requireAmount(t, "250", report.Rows[1].TotalBalance)
	requireAmount(t, "300", report.Rows[2].TotalBalance)
	require.Equal(t, cutoff, report.AsOf)
	require.Len(t, report.Buckets, 11)
}

func TestAccountsReceivableFetchesEventsOncePerCustomer(t *testing.T) {
	ledger := &stubLedger{
		rows: []InvoiceGroupRow{
			customerRow(5, "Ferretería Ruiz", "10", "1"),
			customerRow(5, "Ferretería Ruiz", "20", "2"),
			customerRow(6, "Hielo Polar", "30", "3"),
		},
	}
	recorder := &countingRecorder{}
	svc := newTestService(ledger, 2)
	svc.WithRecorder(recorder)

	_, err := svc.AccountsReceivable(context.Background(), Filters{DateTo: &cutoff})
	require.NoError(t, err)
	require.Equal(t, map[int64]int{5: 1, 6: 1}, ledger.calls)
	require.Equal(t, int32(2), recorder.fetches.Load())
	require.Equal(t, 3, recorder.kept)
}

func TestAccountsReceivableBoundsConcurrency(t *testing.T) {
	var rows []InvoiceGroupRow
	for i := int64(1); i <= 12; i++ {
		rows = append(rows, customerRow(i, "Cliente", "10", "1"))
	}
	ledger := &stubLedger{rows: rows, delay: 10 * time.Millisecond}
	svc := newTestService(ledger, 3)

	_, err := svc.AccountsReceivable(context.Background(), Filters{DateTo: &cutoff})
	require.NoError(t, err)
	require.LessOrEqual(t, ledger.maxFlight.Load(), int32(3))
}

func TestAccountsReceivableNoRows(t *testing.T) {
	svc := newTestService(&stubLedger{}, 2)

	_, err := svc.AccountsReceivable(context.Background(), Filters{})
	require.ErrorIs(t, err, ErrNoResults)
}

func TestAccountsReceivableAllSuppressed(t *testing.T) {
	ledger := &stubLedger{
		rows: []InvoiceGroupRow{
			customerRow(1, "Bodega Central", "0", "11"),
			customerRow(2, "Comercial Sol", "-10", "21"),
		},
	}
	recorder := &countingRecorder{}
	svc := newTestService(ledger, 2)
	svc.WithRecorder(recorder)

	_, err := svc.AccountsReceivable(context.Background(), Filters{DateTo: &cutoff})
	require.ErrorIs(t, err, ErrNoResults)
	require.Equal(t, 2, recorder.suppressed)
}

func TestAccountsReceivableFailsOnEventError(t *testing.T) {
	boom := &UpstreamError{Op: "query reconciliation events", SQLState: "57014", Err: errors.New("canceling statement")}
	ledger := &stubLedger{
		rows: []InvoiceGroupRow{
			customerRow(1, "Bodega Central", "100", "11"),
			customerRow(2, "Comercial Sol", "100", "21"),
		},
		eventsErr: map[int64]error{2: boom},
	}
	svc := newTestService(ledger, 2)

	_, err := svc.AccountsReceivable(context.Background(), Filters{DateTo: &cutoff})
	require.Error(t, err)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Equal(t, "57014", upErr.SQLState)
}

func TestAccountsReceivableWrapsInvoiceGroupError(t *testing.T) {
	boom := &UpstreamError{Op: "query invoice groups", Err: errors.New("connection refused")}
	svc := newTestService(&stubLedger{rowsErr: boom}, 2)

	_, err := svc.AccountsReceivable(context.Background(), Filters{})
	require.ErrorIs(t, err, boom)
}

func TestAccountsReceivableDefaultsBucketsToToday(t *testing.T) {
	ledger := &stubLedger{rows: []InvoiceGroupRow{customerRow(1, "Bodega Central", "100", "11")}}
	svc := newTestService(ledger, 1)

	report, err := svc.AccountsReceivable(context.Background(), Filters{})
	require.NoError(t, err)
	today := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	require.True(t, ledger.buckets[5].RangeStart.Equal(today))
	require.Equal(t, today, report.AsOf)
}

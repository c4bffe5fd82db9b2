package receivables

import (
	"time"

	"github.com/shopspring/decimal"
)

// idSet is an immutable set of invoice ids.
type idSet map[string]struct{}

func newIDSet(ids []string) idSet {
	set := make(idSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

// settlement is the outcome of folding a row's events against the cutoff.
// settled holds the invoices that received an event on or before the cutoff;
// every member of the row stays eligible for bucket reduction.
type settlement struct {
	members idSet
	settled idSet
	paid    decimal.Decimal
	balance decimal.Decimal
}

// settle walks events once. The first event on or before the cutoff settles
// its invoice and counts as paid; events after the cutoff on invoices not yet
// settled are added back to the balance.
func settle(members idSet, events []ReconciliationEvent, asOf time.Time, opening decimal.Decimal) settlement {
	s := settlement{
		members: members,
		settled: make(idSet),
		paid:    decimal.Zero,
		balance: opening,
	}
	for _, ev := range events {
		if !members.has(ev.InvoiceID) || s.settled.has(ev.InvoiceID) {
			continue
		}
		if !day(ev.EffectiveDate).After(asOf) {
			s.settled[ev.InvoiceID] = struct{}{}
			s.paid = s.paid.Add(ev.Amount)
			continue
		}
		s.balance = s.balance.Add(ev.Amount)
	}
	return s
}

// counts reports whether an event dated at effective reduces the bucket.
// Only the overdue total includes events dated exactly on the cutoff.
func (b AgingBucket) counts(effective, asOf time.Time) bool {
	effective = day(effective)
	if b.Name == BucketPastDue {
		return !effective.After(asOf)
	}
	return effective.Before(asOf)
}

// reduction sums the events that may be taken out of a bucket without
// pushing it to zero or below.
func (s settlement) reduction(b AgingBucket, raw decimal.Decimal, events []ReconciliationEvent, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	if !s.paid.IsPositive() {
		return total
	}
	for _, ev := range events {
		if !s.members.has(ev.InvoiceID) || !b.counts(ev.EffectiveDate, asOf) {
			continue
		}
		if raw.GreaterThan(total.Add(ev.Amount)) {
			total = total.Add(ev.Amount)
		}
	}
	return total
}

// Reconcile restates row as of asOf using the customer's ledger events,
// which must be ordered by effective date. A nil asOf leaves amounts as the
// ledger reported them. The boolean is false when the row nets to zero or
// less and must be left out of the report.
func Reconcile(row InvoiceGroupRow, events []ReconciliationEvent, buckets []AgingBucket, asOf *time.Time) (ReconciledRow, bool) {
	out := ReconciledRow{
		Display:      row.Display,
		Buckets:      make(map[string]decimal.Decimal, len(buckets)),
		TotalBalance: row.TotalBalance,
	}

	if asOf == nil {
		for _, b := range buckets {
			out.Buckets[b.Name] = rawAmount(row, b.Name)
		}
		return out, out.TotalBalance.IsPositive()
	}

	cutoff := day(*asOf)
	s := settle(newIDSet(row.InvoiceIDs), events, cutoff, row.TotalBalance)
	if !s.balance.IsPositive() {
		return ReconciledRow{}, false
	}
	out.TotalBalance = s.balance

	for _, b := range buckets {
		raw := rawAmount(row, b.Name)
		if raw.IsPositive() {
			out.Buckets[b.Name] = raw.Sub(s.reduction(b, raw, events, cutoff))
			continue
		}
		out.Buckets[b.Name] = raw
	}
	return out, true
}

func rawAmount(row InvoiceGroupRow, bucket string) decimal.Decimal {
	if v, ok := row.Buckets[bucket]; ok {
		return v
	}
	return decimal.Zero
}

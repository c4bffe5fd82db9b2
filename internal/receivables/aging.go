package receivables

import (
	"strings"
	"time"
)

// Bucket names in report order.
const (
	BucketPastMore45 = "past_more_45"
	BucketPast45     = "past_45"
	BucketPast39     = "past_39"
	BucketPast31     = "past_31"
	BucketPastDue    = "past_due"
	BucketBlock1     = "block_1"
	BucketBlock2     = "block_2"
	BucketBlock3     = "block_3"
	BucketBlock4     = "block_4"
	BucketBlock5     = "block_5"
	BucketFuture     = "future"
)

// AgingBucket is a named due-date interval. Range* are the declared bounds,
// Query* the bounds the ledger aggregates with. A nil bound is open.
type AgingBucket struct {
	Name       string
	Title      string
	RangeStart *time.Time
	RangeEnd   *time.Time
	QueryStart *time.Time
	QueryEnd   *time.Time
}

// Overlapping reports whether the bucket re-aggregates other buckets and must
// be left out of disjoint sums.
func (b AgingBucket) Overlapping() bool {
	return b.Name == BucketPastDue
}

// BucketOptions tunes bucket generation.
type BucketOptions struct {
	// DeclaredBounds makes past_39 aggregate over its declared 11-39 day
	// window instead of the legacy 1-10 day window.
	DeclaredBounds bool
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	time.RFC3339,
}

// ParseDate parses a report date into a UTC calendar day.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return day(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// GenerateBuckets parses asOf and builds the aging buckets for it.
func GenerateBuckets(asOf string, opts BucketOptions) ([]AgingBucket, error) {
	d, err := ParseDate(asOf)
	if err != nil {
		return nil, &ValidationError{Field: "dateTo", Err: err}
	}
	return GenerateBucketsAt(d, opts), nil
}

// GenerateBucketsAt builds the eleven aging buckets relative to asOf.
func GenerateBucketsAt(asOf time.Time, opts BucketOptions) []AgingBucket {
	d := day(asOf)
	at := func(offset int) *time.Time {
		t := d.AddDate(0, 0, offset)
		return &t
	}

	buckets := []AgingBucket{
		{Name: BucketPastMore45, Title: "Mas de 50 días vencido", RangeEnd: at(-51)},
		{Name: BucketPast45, Title: "De 40 a 50 días vencido", RangeStart: at(-50), RangeEnd: at(-41)},
		{Name: BucketPast39, Title: "De 10 a 39 días vencido", RangeStart: at(-39), RangeEnd: at(-11)},
		{Name: BucketPast31, Title: "Menos de 10 días vencido", RangeStart: at(-10), RangeEnd: at(-1)},
		{Name: BucketPastDue, Title: "Total vencido", RangeEnd: at(-1)},
		{Name: BucketBlock1, Title: "Vence entre 0 a 30 días", RangeStart: at(0), RangeEnd: at(30)},
		{Name: BucketBlock2, Title: "Semana 2", RangeStart: at(1), RangeEnd: at(7)},
		{Name: BucketBlock3, Title: "Semana 3", RangeStart: at(8), RangeEnd: at(14)},
		{Name: BucketBlock4, Title: "Semana 4", RangeStart: at(15), RangeEnd: at(21)},
		{Name: BucketBlock5, Title: "Semana 5", RangeStart: at(22), RangeEnd: at(28)},
		{Name: BucketFuture, Title: "En adelante", RangeStart: at(29)},
	}
	for i := range buckets {
		buckets[i].QueryStart = buckets[i].RangeStart
		buckets[i].QueryEnd = buckets[i].RangeEnd
		if buckets[i].Name == BucketPast39 && !opts.DeclaredBounds {
			buckets[i].QueryStart = at(-10)
			buckets[i].QueryEnd = at(-1)
		}
	}
	return buckets
}

func day(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

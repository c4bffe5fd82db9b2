package receivables

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateBucketsOrderAndBounds(t *testing.T) {
	asOf := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	buckets := GenerateBucketsAt(asOf, BucketOptions{})

	want := []string{
		BucketPastMore45, BucketPast45, BucketPast39, BucketPast31, BucketPastDue,
		BucketBlock1, BucketBlock2, BucketBlock3, BucketBlock4, BucketBlock5, BucketFuture,
	}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(buckets))
	}
	for i, name := range want {
		if buckets[i].Name != name {
			t.Fatalf("bucket %d: expected %s, got %s", i, name, buckets[i].Name)
		}
	}

	past45 := buckets[1]
	if !past45.RangeStart.Equal(asOf.AddDate(0, 0, -50)) || !past45.RangeEnd.Equal(asOf.AddDate(0, 0, -41)) {
		t.Fatalf("unexpected past_45 range %v..%v", past45.RangeStart, past45.RangeEnd)
	}
	if buckets[0].RangeStart != nil || !buckets[0].RangeEnd.Equal(asOf.AddDate(0, 0, -51)) {
		t.Fatalf("past_more_45 must be open at the start and end at d-51")
	}
	future := buckets[10]
	if future.RangeEnd != nil || !future.RangeStart.Equal(asOf.AddDate(0, 0, 29)) {
		t.Fatalf("future must start at d+29 and stay open")
	}
	block1 := buckets[5]
	if !block1.RangeStart.Equal(asOf) || !block1.RangeEnd.Equal(asOf.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected block_1 range %v..%v", block1.RangeStart, block1.RangeEnd)
	}
}

func TestGenerateBucketsPast39Bounds(t *testing.T) {
	asOf := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	legacy := GenerateBucketsAt(asOf, BucketOptions{})[2]
	if !legacy.RangeStart.Equal(asOf.AddDate(0, 0, -39)) || !legacy.RangeEnd.Equal(asOf.AddDate(0, 0, -11)) {
		t.Fatalf("declared past_39 range must stay d-39..d-11")
	}
	if !legacy.QueryStart.Equal(asOf.AddDate(0, 0, -10)) || !legacy.QueryEnd.Equal(asOf.AddDate(0, 0, -1)) {
		t.Fatalf("legacy past_39 query range must be d-10..d-1, got %v..%v", legacy.QueryStart, legacy.QueryEnd)
	}

	declared := GenerateBucketsAt(asOf, BucketOptions{DeclaredBounds: true})[2]
	if !declared.QueryStart.Equal(*declared.RangeStart) || !declared.QueryEnd.Equal(*declared.RangeEnd) {
		t.Fatalf("declared bounds must drive the query range")
	}
}

func TestGenerateBucketsOverlapping(t *testing.T) {
	buckets := GenerateBucketsAt(time.Now(), BucketOptions{})
	count := 0
	for _, b := range buckets {
		if b.Overlapping() {
			count++
			if b.Name != BucketPastDue {
				t.Fatalf("unexpected overlapping bucket %s", b.Name)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one overlapping bucket, got %d", count)
	}
}

func TestGenerateBucketsParsesInput(t *testing.T) {
	for _, input := range []string{"2024-03-31", "2024/03/31", "31/03/2024", "2024-03-31T18:30:00Z"} {
		buckets, err := GenerateBuckets(input, BucketOptions{})
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got := buckets[5].RangeStart.Format("2006-01-02"); got != "2024-03-31" {
			t.Fatalf("parse %q: expected block_1 to start 2024-03-31, got %s", input, got)
		}
	}
}

func TestGenerateBucketsInvalidDate(t *testing.T) {
	_, err := GenerateBuckets("not-a-date", BucketOptions{})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "dateTo" {
		t.Fatalf("expected validation error on dateTo, got %v", err)
	}
}

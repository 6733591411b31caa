package aggregator

import (
	"testing"

	"oraclecore.dev/verifier/decimal"
)

func windowOf(values ...uint64) []Response {
	out := make([]Response, len(values))
	for i, v := range values {
		out[i] = Response{Value: decimal.FromUint64(v, false), TimestampMs: uint64(1000 + i)}
	}
	return out
}

func TestSummary_OddPopulation_Median(t *testing.T) {
	s, err := computeSummary(windowOf(10, 20, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Result != 20 {
		t.Fatalf("median = %v, want 20", s.Result)
	}
}

func TestSummary_EvenPopulation_LowerMedian(t *testing.T) {
	s, err := computeSummary(windowOf(10, 20, 30, 40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Classic averaging would give 25; even-n ties resolve toward the
	// lower of the two middle order statistics (20).
	if s.Result != 20 {
		t.Fatalf("lower-median = %v, want 20", s.Result)
	}
}

func TestSummary_RangeBoundsAndTimestamps(t *testing.T) {
	s, err := computeSummary(windowOf(5, 1, 9, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.MinResult != 1 || s.MaxResult != 9 {
		t.Fatalf("min/max = %v/%v, want 1/9", s.MinResult, s.MaxResult)
	}
	if s.Range != 8 {
		t.Fatalf("range = %v, want 8", s.Range)
	}
	if s.MinTimestampMs != 1000 || s.MaxTimestampMs != 1003 {
		t.Fatalf("timestamp bounds = %d/%d, want 1000/1003", s.MinTimestampMs, s.MaxTimestampMs)
	}
}

func TestSummary_PopulationStdev(t *testing.T) {
	s, err := computeSummary(windowOf(2, 4, 4, 4, 5, 5, 7, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Stdev != 2 {
		t.Fatalf("population stdev = %v, want 2", s.Stdev)
	}
}

func TestSummary_NegativeValues(t *testing.T) {
	window := []Response{
		{Value: decimal.FromUint64(10, true), TimestampMs: 1},
		{Value: decimal.FromUint64(10, false), TimestampMs: 2},
	}
	s, err := computeSummary(window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Mean != 0 || s.MinResult != -10 || s.MaxResult != 10 || s.Range != 20 {
		t.Fatalf("mean/min/max/range = %v/%v/%v/%v, want 0/-10/10/20", s.Mean, s.MinResult, s.MaxResult, s.Range)
	}
}

func TestComputeSummary_RejectsEmptyWindow(t *testing.T) {
	if _, err := computeSummary(nil); err == nil {
		t.Fatalf("expected error for empty sample window")
	}
}

package quoteverifier

import (
	"testing"
	"time"

	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
	"oraclecore.dev/verifier/quotesubmit"
)

func bundleAt(queueID [32]byte, feedID [32]byte, value uint64, timestampMs, slot uint64) *quotesubmit.Quotes {
	return &quotesubmit.Quotes{
		QueueID: queueID,
		Quotes: []quotesubmit.Quote{
			{FeedID: feedID, Value: decimal.FromUint64(value, false), TimestampMs: timestampMs, Slot: slot},
		},
	}
}

// TestVerifyQuotes_TieBreaking exercises the replacement order with
// timestamp collisions: a colliding timestamp wins only with a larger
// slot, and an older timestamp never wins regardless of slot.
func TestVerifyQuotes_TieBreaking(t *testing.T) {
	var queueID, feedID [32]byte
	feedID[0] = 0xF

	v := New([32]byte{1}, queueID)

	steps := []struct {
		ts, slot   uint64
		wantStored bool
	}{
		{100, 10, true},
		{100, 9, false},
		{100, 11, true},
		{99, 99, false},
		{101, 0, true},
	}
	for i, s := range steps {
		b := bundleAt(queueID, feedID, uint64(i), s.ts, s.slot)
		if err := v.VerifyQuotes(b, 1_000_000, nil); err != nil {
			t.Fatalf("step %d: VerifyQuotes: %v", i, err)
		}
		got, err := v.Get(feedID)
		if err != nil {
			t.Fatalf("step %d: Get: %v", i, err)
		}
		if s.wantStored && (got.TimestampMs != s.ts || got.Slot != s.slot) {
			t.Fatalf("step %d: expected admission (%d,%d), stored (%d,%d)", i, s.ts, s.slot, got.TimestampMs, got.Slot)
		}
	}

	final, err := v.Get(feedID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if final.TimestampMs != 101 || final.Slot != 0 {
		t.Fatalf("final stored = (%d,%d), want (101,0)", final.TimestampMs, final.Slot)
	}
}

// TestVerifyQuotes_FutureTimestampDoesNotHang pins the resolved loop
// control on the future-dated branch: the loop must advance past a
// future-dated quote rather than looping forever, and must not admit it.
func TestVerifyQuotes_FutureTimestampDoesNotHang(t *testing.T) {
	var queueID, feedID1, feedID2 [32]byte
	feedID1[0] = 1
	feedID2[0] = 2

	v := New([32]byte{1}, queueID)
	b := &quotesubmit.Quotes{
		QueueID: queueID,
		Quotes: []quotesubmit.Quote{
			{FeedID: feedID1, Value: decimal.FromUint64(1, false), TimestampMs: 10_000, Slot: 5},
			{FeedID: feedID2, Value: decimal.FromUint64(2, false), TimestampMs: 10_000, Slot: 5},
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- v.VerifyQuotes(b, 1, nil) // nowMs=1 < quote timestamps: every quote is future-dated.
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("VerifyQuotes: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("VerifyQuotes did not return; loop likely failed to advance")
	}

	if v.Contains(feedID1) || v.Contains(feedID2) {
		t.Fatalf("future-dated quotes must be dropped silently, not admitted")
	}
}

func TestVerifyQuotes_MixedFutureAndPastQuotes(t *testing.T) {
	var queueID, futureFeed, pastFeed [32]byte
	futureFeed[0] = 1
	pastFeed[0] = 2

	v := New([32]byte{1}, queueID)
	b := &quotesubmit.Quotes{
		QueueID: queueID,
		Quotes: []quotesubmit.Quote{
			{FeedID: futureFeed, Value: decimal.FromUint64(1, false), TimestampMs: 10_000, Slot: 5},
			{FeedID: pastFeed, Value: decimal.FromUint64(2, false), TimestampMs: 500, Slot: 5},
		},
	}
	if err := v.VerifyQuotes(b, 1_000, nil); err != nil {
		t.Fatalf("VerifyQuotes: %v", err)
	}
	if v.Contains(futureFeed) {
		t.Fatalf("future-dated quote must not be admitted")
	}
	if !v.Contains(pastFeed) {
		t.Fatalf("quote after a future-dated sibling must still be admitted")
	}
}

func TestVerifyQuotes_QueueMismatchIsStructural(t *testing.T) {
	var queueID, otherQueueID, feedID [32]byte
	queueID[0] = 1
	otherQueueID[0] = 2

	v := New([32]byte{1}, queueID)
	b := bundleAt(otherQueueID, feedID, 1, 100, 0)
	err := v.VerifyQuotes(b, 1000, nil)
	if !coreerr.Is(err, coreerr.EInvalidQueue) {
		t.Fatalf("expected EInvalidQueue, got %v", err)
	}
	if v.Contains(feedID) {
		t.Fatalf("structural failure must not write any state")
	}
}

func TestVerifyQuotes_Idempotent(t *testing.T) {
	var queueID, feedID [32]byte
	feedID[0] = 7

	v := New([32]byte{1}, queueID)
	b := bundleAt(queueID, feedID, 42, 500, 3)

	if err := v.VerifyQuotes(b, 1_000_000, nil); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first, _ := v.Get(feedID)

	if err := v.VerifyQuotes(b, 1_000_000, nil); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	second, _ := v.Get(feedID)

	if first != second {
		t.Fatalf("applying the same bundle twice changed stored state: %+v != %+v", first, second)
	}
}

func TestGet_NotFound(t *testing.T) {
	var queueID, feedID [32]byte
	v := New([32]byte{1}, queueID)
	if _, err := v.Get(feedID); !coreerr.Is(err, coreerr.EQuoteNotFound) {
		t.Fatalf("expected EQuoteNotFound, got %v", err)
	}
}

package client

import "testing"

func TestBuildRunPayload_RejectsArityOutsideRange(t *testing.T) {
	var queueID, feedID [32]byte
	feeds := []FeedSubmission{{FeedID: feedID, Value: 1, MinOracleSamples: 1}}

	if _, err := BuildRunPayload(queueID, feeds, nil, 1, 1, nil); err == nil {
		t.Fatalf("expected EInvalidArity for zero oracles")
	}

	oracles := make([]OracleHandle, 7)
	sigs := make([][65]byte, len(oracles))
	if _, err := BuildRunPayload(queueID, feeds, sigs, 1, 1, oracles); err == nil {
		t.Fatalf("expected EInvalidArity for 7 oracles")
	}
}

func TestBuildRunPayload_RejectsSignatureCountMismatch(t *testing.T) {
	var queueID, feedID [32]byte
	feeds := []FeedSubmission{{FeedID: feedID, Value: 1, MinOracleSamples: 1}}
	oracles := make([]OracleHandle, 2)
	sigs := make([][65]byte, 1) // want 2 (one per oracle)

	if _, err := BuildRunPayload(queueID, feeds, sigs, 1, 1, oracles); err == nil {
		t.Fatalf("expected EInvalidLength for signature count mismatch")
	}
}

func TestBuildRunPayload_Accepts(t *testing.T) {
	var queueID, feedID [32]byte
	feeds := []FeedSubmission{{FeedID: feedID, Value: 42, MinOracleSamples: 1}}
	oracles := []OracleHandle{{}}
	sigs := make([][65]byte, 1)

	p, err := BuildRunPayload(queueID, feeds, sigs, 7, 8, oracles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Slot != 7 || p.TimestampSeconds != 8 {
		t.Fatalf("payload fields not preserved: %+v", p)
	}
	d := feeds[0].DecimalOf()
	if d.Neg() || d.Value().Uint64() != 42 {
		t.Fatalf("DecimalOf mismatch: %+v", d)
	}
}

// Package quotesubmit implements the committee quote-submission
// pipeline: fixed-arity Run1..Run6 entry points that assemble a
// consensus-message digest, verify the committee's signatures against
// it, and bundle the feeds whose min_oracle_samples the surviving
// committee still clears.
package quotesubmit

import (
	"github.com/holiman/uint256"

	"oraclecore.dev/verifier/canon"
	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
	"oraclecore.dev/verifier/events"
	"oraclecore.dev/verifier/oracle"
	"oraclecore.dev/verifier/queue"
	"oraclecore.dev/verifier/sigverify"
)

// Quote is one feed's accepted (value, timestamp, slot) record within a
// submitted bundle, immutable once created.
type Quote struct {
	FeedID      [32]byte
	Value       decimal.Decimal
	TimestampMs uint64
	Slot        uint64
}

// Quotes is the bundle produced by one committee submission round: the
// feeds that cleared their min_oracle_samples gate, the valid-set of
// oracles whose signatures recovered, and the queue the committee was
// admitted under.
type Quotes struct {
	QueueID [32]byte
	Oracles [][32]byte
	Quotes  []Quote
}

// run is the shared implementation behind Run1..Run6. Signatures carry
// positional correspondence: signatures[i] must be oracle i's signature
// over the shared consensus digest, and the committee is never
// reordered.
func run(
	committeeSize int,
	feedIDs [][32]byte,
	values []*uint256.Int,
	valuesNeg []bool,
	minOracleSamples []uint8,
	signatures [][65]byte,
	slot uint64,
	timestampSeconds uint64,
	oracles []*oracle.Oracle,
	q *queue.Queue,
	nowMs uint64,
	sink events.Sink,
) (*Quotes, []events.SignatureInvalid, error) {
	if len(values) != len(valuesNeg) {
		return nil, nil, coreerr.Newf(coreerr.EInvalidLength, "len(values)=%d != len(valuesNeg)=%d", len(values), len(valuesNeg))
	}
	if len(feedIDs) != len(values) || len(feedIDs) != len(minOracleSamples) {
		return nil, nil, coreerr.New(coreerr.EInvalidLength, "feedIDs, values, and minOracleSamples must have equal length")
	}
	if len(oracles) != committeeSize {
		return nil, nil, coreerr.Newf(coreerr.EInvalidLength, "expected %d committee oracles, got %d", committeeSize, len(oracles))
	}
	if len(signatures) != committeeSize {
		return nil, nil, coreerr.Newf(coreerr.EInvalidLength, "expected %d signatures (one per oracle), got %d", committeeSize, len(signatures))
	}

	subs := make([]sigverify.Submission, committeeSize)
	for i, o := range oracles {
		if o.QueueID() != q.ID() {
			return nil, nil, coreerr.New(coreerr.EQueueMismatch, "committee oracle bound to a different queue")
		}
		if o.IsExpired(nowMs) {
			return nil, nil, coreerr.New(coreerr.EOracleInvalid, "committee oracle attestation expired")
		}
		subs[i] = sigverify.Submission{OracleID: o.ID(), OracleKey: o.Secp256k1Key(), Signature: signatures[i][:]}
	}

	feeds := make([]canon.FeedInput, len(feedIDs))
	decs := make([]decimal.Decimal, len(feedIDs))
	for i := range feedIDs {
		d, err := decimal.New(values[i], valuesNeg[i])
		if err != nil {
			return nil, nil, err
		}
		decs[i] = d
		feeds[i] = canon.FeedInput{FeedID: feedIDs[i], Value: d, MinOracleSamples: minOracleSamples[i]}
	}
	digest := canon.Digest(canon.BuildConsensusMessage(slot, timestampSeconds, feeds))

	var invalid []events.SignatureInvalid
	validSet := make([][32]byte, 0, committeeSize)
	for i, r := range sigverify.VerifyCommittee(digest, subs) {
		if r.Valid {
			validSet = append(validSet, r.OracleID)
			continue
		}
		ev := events.SignatureInvalid{Signature: append([]byte(nil), signatures[i][:]...), OracleID: r.OracleID}
		invalid = append(invalid, ev)
		if sink != nil {
			sink.Emit(ev)
		}
	}

	timestampMs := timestampSeconds * 1000
	accepted := make([]Quote, 0, len(feedIDs))
	for f, feedID := range feedIDs {
		if int(minOracleSamples[f]) > len(validSet) {
			if sink != nil {
				sink.Emit(events.FeedDropped{FeedID: feedID, GotSamples: len(validSet), WantSamples: int(minOracleSamples[f])})
			}
			continue
		}
		accepted = append(accepted, Quote{FeedID: feedID, Value: decs[f], TimestampMs: timestampMs, Slot: slot})
	}

	return &Quotes{QueueID: q.ID(), Oracles: validSet, Quotes: accepted}, invalid, nil
}

// Run1 submits a committee of 1 oracle.
func Run1(feedIDs [][32]byte, values []*uint256.Int, valuesNeg []bool, minOracleSamples []uint8, signatures [][65]byte, slot, timestampSeconds uint64, oracles []*oracle.Oracle, q *queue.Queue, nowMs uint64, sink events.Sink) (*Quotes, []events.SignatureInvalid, error) {
	return run(1, feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
}

// Run2 submits a committee of 2 oracles.
func Run2(feedIDs [][32]byte, values []*uint256.Int, valuesNeg []bool, minOracleSamples []uint8, signatures [][65]byte, slot, timestampSeconds uint64, oracles []*oracle.Oracle, q *queue.Queue, nowMs uint64, sink events.Sink) (*Quotes, []events.SignatureInvalid, error) {
	return run(2, feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
}

// Run3 submits a committee of 3 oracles.
func Run3(feedIDs [][32]byte, values []*uint256.Int, valuesNeg []bool, minOracleSamples []uint8, signatures [][65]byte, slot, timestampSeconds uint64, oracles []*oracle.Oracle, q *queue.Queue, nowMs uint64, sink events.Sink) (*Quotes, []events.SignatureInvalid, error) {
	return run(3, feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
}

// Run4 submits a committee of 4 oracles.
func Run4(feedIDs [][32]byte, values []*uint256.Int, valuesNeg []bool, minOracleSamples []uint8, signatures [][65]byte, slot, timestampSeconds uint64, oracles []*oracle.Oracle, q *queue.Queue, nowMs uint64, sink events.Sink) (*Quotes, []events.SignatureInvalid, error) {
	return run(4, feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
}

// Run5 submits a committee of 5 oracles.
func Run5(feedIDs [][32]byte, values []*uint256.Int, valuesNeg []bool, minOracleSamples []uint8, signatures [][65]byte, slot, timestampSeconds uint64, oracles []*oracle.Oracle, q *queue.Queue, nowMs uint64, sink events.Sink) (*Quotes, []events.SignatureInvalid, error) {
	return run(5, feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
}

// Run6 submits a committee of 6 oracles, the largest committee this
// module accepts; larger submissions are rejected at the dispatch layer
// before any verification work is done.
func Run6(feedIDs [][32]byte, values []*uint256.Int, valuesNeg []bool, minOracleSamples []uint8, signatures [][65]byte, slot, timestampSeconds uint64, oracles []*oracle.Oracle, q *queue.Queue, nowMs uint64, sink events.Sink) (*Quotes, []events.SignatureInvalid, error) {
	return run(6, feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
}

// Dispatch routes a runtime-determined committee size to the matching
// Run1..Run6 wrapper, returning EInvalidArity for any size outside 1..6.
func Dispatch(committeeSize int, feedIDs [][32]byte, values []*uint256.Int, valuesNeg []bool, minOracleSamples []uint8, signatures [][65]byte, slot, timestampSeconds uint64, oracles []*oracle.Oracle, q *queue.Queue, nowMs uint64, sink events.Sink) (*Quotes, []events.SignatureInvalid, error) {
	switch committeeSize {
	case 1:
		return Run1(feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
	case 2:
		return Run2(feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
	case 3:
		return Run3(feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
	case 4:
		return Run4(feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
	case 5:
		return Run5(feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
	case 6:
		return Run6(feedIDs, values, valuesNeg, minOracleSamples, signatures, slot, timestampSeconds, oracles, q, nowMs, sink)
	default:
		return nil, nil, coreerr.Newf(coreerr.EInvalidArity, "committee size must be 1..6, got %d", committeeSize)
	}
}

// Package aggregator implements the single-feed update pipeline: a
// fixed-capacity ring buffer of recent single-oracle responses and the
// summary statistics recomputed over its populated window.
package aggregator

import (
	"oraclecore.dev/verifier/canon"
	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
	"oraclecore.dev/verifier/events"
	"oraclecore.dev/verifier/oracle"
	"oraclecore.dev/verifier/queue"
	"oraclecore.dev/verifier/sigverify"
)

// Response is one accepted ring-buffer entry: which oracle responded,
// with what value, at what time.
type Response struct {
	OracleID    [32]byte
	Value       decimal.Decimal
	TimestampMs uint64
}

// FeeCoin is the narrow surface of the host chain's coin object the fee
// path consumes: a type name checked against the queue's accepted set,
// and a transfer that either moves the full fee to the recipient or
// fails, aborting the whole update.
type FeeCoin interface {
	CoinType() string
	Transfer(recipient string, amount uint64) error
}

// Coin is an in-process FeeCoin for the service binaries and tests: a
// typed balance debited in full on each accepted update.
type Coin struct {
	Type    string
	Balance uint64
}

func (c *Coin) CoinType() string { return c.Type }

// Transfer debits amount from the coin's balance. The recipient ledger
// is host-chain state this module does not model; the debit alone
// preserves the all-or-nothing fee contract.
func (c *Coin) Transfer(recipient string, amount uint64) error {
	if c.Balance < amount {
		return coreerr.Newf(coreerr.EFeeType, "fee coin balance %d below fee %d", c.Balance, amount)
	}
	c.Balance -= amount
	return nil
}

// Aggregator accumulates single-oracle responses into a ring buffer sized
// to min_sample_size and recomputes Summary whenever the populated window
// reaches that size.
type Aggregator struct {
	id                  [32]byte
	authority           string
	queueID             [32]byte
	feedHash            [32]byte
	name                string
	createdAtMs         uint64
	maxStalenessSeconds uint64
	maxVariance         uint64
	minResponses        uint32

	results   []Response
	filled    []bool
	currIdx   int
	populated int

	summary    Summary
	hasSummary bool
}

// New allocates an Aggregator with a ring of capacity minSampleSize.
func New(
	id [32]byte,
	authority string,
	queueID [32]byte,
	feedHash [32]byte,
	name string,
	createdAtMs uint64,
	minSampleSize int,
	maxStalenessSeconds uint64,
	maxVariance uint64,
	minResponses uint32,
) (*Aggregator, error) {
	if minSampleSize <= 0 {
		return nil, coreerr.New(coreerr.EInvalidLength, "min_sample_size must be > 0")
	}
	return &Aggregator{
		id:                  id,
		authority:           authority,
		queueID:             queueID,
		feedHash:            feedHash,
		name:                name,
		createdAtMs:         createdAtMs,
		maxStalenessSeconds: maxStalenessSeconds,
		maxVariance:         maxVariance,
		minResponses:        minResponses,
		results:             make([]Response, minSampleSize),
		filled:              make([]bool, minSampleSize),
	}, nil
}

func (a *Aggregator) ID() [32]byte                { return a.id }
func (a *Aggregator) Authority() string           { return a.authority }
func (a *Aggregator) QueueID() [32]byte           { return a.queueID }
func (a *Aggregator) FeedHash() [32]byte          { return a.feedHash }
func (a *Aggregator) Name() string                { return a.name }
func (a *Aggregator) CreatedAtMs() uint64         { return a.createdAtMs }
func (a *Aggregator) MinSampleSize() int          { return len(a.results) }
func (a *Aggregator) MaxStalenessSeconds() uint64 { return a.maxStalenessSeconds }
func (a *Aggregator) MaxVariance() uint64         { return a.maxVariance }
func (a *Aggregator) MinResponses() uint32        { return a.minResponses }

// RingSnapshot exposes the ring buffer's raw state for persistence
// snapshots: the response slots, the parallel filled mask, the write
// cursor, and the populated count.
func (a *Aggregator) RingSnapshot() (results []Response, filled []bool, currIdx int, populated int) {
	results = make([]Response, len(a.results))
	copy(results, a.results)
	filled = make([]bool, len(a.filled))
	copy(filled, a.filled)
	return results, filled, a.currIdx, a.populated
}

// Restore rehydrates an Aggregator from persisted field and ring-buffer
// values (store package use only), including whatever Summary was last
// computed before the snapshot was taken.
func Restore(
	id [32]byte,
	authority string,
	queueID [32]byte,
	feedHash [32]byte,
	name string,
	createdAtMs uint64,
	maxStalenessSeconds uint64,
	maxVariance uint64,
	minResponses uint32,
	results []Response,
	filled []bool,
	currIdx int,
	populated int,
	summary Summary,
	hasSummary bool,
) *Aggregator {
	r := make([]Response, len(results))
	copy(r, results)
	f := make([]bool, len(filled))
	copy(f, filled)
	return &Aggregator{
		id:                  id,
		authority:           authority,
		queueID:             queueID,
		feedHash:            feedHash,
		name:                name,
		createdAtMs:         createdAtMs,
		maxStalenessSeconds: maxStalenessSeconds,
		maxVariance:         maxVariance,
		minResponses:        minResponses,
		results:             r,
		filled:              f,
		currIdx:             currIdx,
		populated:           populated,
		summary:             summary,
		hasSummary:          hasSummary,
	}
}

// SetAuthority rotates the aggregator's authority.
func (a *Aggregator) SetAuthority(caller string, newAuthority string, sink events.Sink) error {
	if caller != a.authority {
		return coreerr.New(coreerr.EInvalidAuthority, "caller is not the aggregator authority")
	}
	old := a.authority
	a.authority = newAuthority
	if sink != nil {
		sink.Emit(events.AggregatorAuthorityUpdated{AggregatorID: a.id, OldAuthority: old, NewAuthority: newAuthority})
	}
	return nil
}

// SetConfigs updates the aggregator's staleness/variance/responses gates.
// The ring capacity (min_sample_size) is fixed at creation; resizing it
// would invalidate the populated window's statistics.
func (a *Aggregator) SetConfigs(caller string, maxStalenessSeconds uint64, maxVariance uint64, minResponses uint32) error {
	if caller != a.authority {
		return coreerr.New(coreerr.EInvalidAuthority, "caller is not the aggregator authority")
	}
	a.maxStalenessSeconds = maxStalenessSeconds
	a.maxVariance = maxVariance
	a.minResponses = minResponses
	return nil
}

// updateSlothash is the slothash component of the update message: zero
// filled on this chain.
var updateSlothash [32]byte

// SubmitResult verifies a single oracle's signed update-message digest
// and, if valid, consumes the fee, writes the response into
// results[curr_idx], advances curr_idx, and recomputes Summary once the
// populated count reaches min_sample_size.
func (a *Aggregator) SubmitResult(
	q *queue.Queue,
	value decimal.Decimal,
	timestampSeconds uint64,
	o *oracle.Oracle,
	sig [65]byte,
	nowMs uint64,
	feeCoin FeeCoin,
	sink events.Sink,
) error {
	if o.QueueID() != q.ID() || a.queueID != q.ID() {
		return coreerr.New(coreerr.EQueueMismatch, "oracle/aggregator bound to a different queue")
	}
	if o.IsExpired(nowMs) {
		return coreerr.New(coreerr.EOracleInvalid, "oracle attestation expired")
	}
	if timestampSeconds*1000 > nowMs {
		return coreerr.New(coreerr.EOracleInvalid, "update timestamped in the future")
	}
	if feeCoin == nil || !q.HasFeeType(feeCoin.CoinType()) {
		return coreerr.New(coreerr.EFeeType, "fee coin type not accepted on this queue")
	}

	qKey := q.QueueKey()
	buf, err := canon.BuildUpdateMessage(qKey[:], a.feedHash[:], value, updateSlothash[:], a.maxVariance, a.minResponses, timestampSeconds)
	if err != nil {
		return err
	}
	digest := canon.Digest(buf)
	ok, err := sigverify.Check(digest, sig[:], o.Secp256k1Key())
	if err != nil {
		return err
	}
	if !ok {
		return coreerr.New(coreerr.EOracleInvalid, "update signature does not recover to oracle key")
	}

	if err := feeCoin.Transfer(q.FeeRecipient(), q.Fee()); err != nil {
		return err
	}

	a.results[a.currIdx] = Response{OracleID: o.ID(), Value: value, TimestampMs: timestampSeconds * 1000}
	if !a.filled[a.currIdx] {
		a.filled[a.currIdx] = true
		a.populated++
	}
	a.currIdx = (a.currIdx + 1) % len(a.results)

	if a.populated >= len(a.results) {
		if err := a.recompute(); err != nil {
			return err
		}
		if sink != nil {
			sink.Emit(events.AggregateUpdated{
				AggregatorID: a.id,
				FeedHash:     a.feedHash,
				Result:       a.summary.Result,
				Mean:         a.summary.Mean,
				Stdev:        a.summary.Stdev,
				Populated:    a.populated,
			})
		}
	}
	return nil
}

func (a *Aggregator) recompute() error {
	window := make([]Response, 0, a.populated)
	for i, f := range a.filled {
		if f {
			window = append(window, a.results[i])
		}
	}
	s, err := computeSummary(window)
	if err != nil {
		return err
	}
	a.summary = s
	a.hasSummary = true
	return nil
}

// CurrentResult always returns the last computed Summary, regardless of
// whether ResultValid currently passes; stale but computed summaries
// remain readable.
func (a *Aggregator) CurrentResult() (Summary, bool) {
	return a.summary, a.hasSummary
}

// ResultValid reports whether the populated window has reached
// min_responses, the threshold a readable result is gated on.
func (a *Aggregator) ResultValid() bool {
	return uint32(a.populated) >= a.minResponses
}

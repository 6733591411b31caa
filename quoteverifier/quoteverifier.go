// Package quoteverifier implements the per-consumer admission table:
// the latest quote per feed, replaced only by a later (timestamp_ms,
// slot) pair. It is the consumer-visible half of quote admission, the
// companion to quotesubmit's committee assembly.
package quoteverifier

import (
	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
	"oraclecore.dev/verifier/events"
	"oraclecore.dev/verifier/quotesubmit"
)

// Quote is the admitted (value, timestamp, slot) record stored per feed.
type Quote struct {
	FeedID      [32]byte
	Value       decimal.Decimal
	TimestampMs uint64
	Slot        uint64
}

// QuoteVerifier owns one consumer's per-feed quote table, bound to a
// single queue for its lifetime.
type QuoteVerifier struct {
	id      [32]byte
	queueID [32]byte
	quotes  map[[32]byte]Quote
}

// New constructs an empty QuoteVerifier bound to queueID.
func New(id [32]byte, queueID [32]byte) *QuoteVerifier {
	return &QuoteVerifier{id: id, queueID: queueID, quotes: make(map[[32]byte]Quote)}
}

func (v *QuoteVerifier) ID() [32]byte      { return v.id }
func (v *QuoteVerifier) QueueID() [32]byte { return v.queueID }

// Quotes returns a snapshot of every stored (feed_id -> quote) entry, for
// persistence snapshots.
func (v *QuoteVerifier) Quotes() map[[32]byte]Quote {
	out := make(map[[32]byte]Quote, len(v.quotes))
	for k, q := range v.quotes {
		out[k] = q
	}
	return out
}

// Restore rehydrates a QuoteVerifier from a persisted per-feed quote
// table (store package use only).
func Restore(id [32]byte, queueID [32]byte, quotes map[[32]byte]Quote) *QuoteVerifier {
	v := &QuoteVerifier{id: id, queueID: queueID, quotes: make(map[[32]byte]Quote, len(quotes))}
	for k, q := range quotes {
		v.quotes[k] = q
	}
	return v
}

// Contains reports whether feedID currently has a stored quote.
func (v *QuoteVerifier) Contains(feedID [32]byte) bool {
	_, ok := v.quotes[feedID]
	return ok
}

// Get returns the stored quote for feedID, or EQuoteNotFound if absent.
func (v *QuoteVerifier) Get(feedID [32]byte) (Quote, error) {
	q, ok := v.quotes[feedID]
	if !ok {
		return Quote{}, coreerr.Newf(coreerr.EQuoteNotFound, "no quote stored for feed %x", feedID)
	}
	return q, nil
}

// VerifyQuotes admits bundle into the verifier's table under the
// per-feed replacement rule:
//
//   - bundle.QueueID must equal the verifier's bound queue_id, else
//     EInvalidQueue, aborting before any state is written.
//   - a quote timestamped in the future relative to nowMs is dropped
//     silently (evidentiary, non-fatal), and the loop advances to the
//     next quote.
//   - an absent feed is inserted unconditionally.
//   - an existing feed is replaced iff the new (timestamp_ms, slot) pair
//     is lexicographically greater than the stored one.
func (v *QuoteVerifier) VerifyQuotes(bundle *quotesubmit.Quotes, nowMs uint64, sink events.Sink) error {
	if bundle.QueueID != v.queueID {
		return coreerr.New(coreerr.EInvalidQueue, "bundle queue_id does not match verifier's bound queue")
	}
	for _, q := range bundle.Quotes {
		if q.TimestampMs > nowMs {
			if sink != nil {
				sink.Emit(events.QuoteRejected{ConsumerID: v.id, FeedID: q.FeedID, Reason: "future-dated quote"})
			}
			continue
		}
		v.admit(bundle, q, sink)
	}
	return nil
}

// admit applies the (timestamp_ms, slot) replacement rule for a single
// feed: insert if absent, else replace iff the candidate's timestamp is
// strictly greater, or equal timestamp with a strictly greater slot.
func (v *QuoteVerifier) admit(bundle *quotesubmit.Quotes, q quotesubmit.Quote, sink events.Sink) {
	existing, ok := v.quotes[q.FeedID]
	if ok {
		replace := q.TimestampMs > existing.TimestampMs ||
			(q.TimestampMs == existing.TimestampMs && q.Slot > existing.Slot)
		if !replace {
			if sink != nil {
				sink.Emit(events.QuoteRejected{ConsumerID: v.id, FeedID: q.FeedID, Reason: "stale relative to stored quote"})
			}
			return
		}
	}
	v.quotes[q.FeedID] = Quote{FeedID: q.FeedID, Value: q.Value, TimestampMs: q.TimestampMs, Slot: q.Slot}
	if sink != nil {
		sink.Emit(events.QuoteVerified{
			TimestampMs: q.TimestampMs,
			Slot:        q.Slot,
			FeedID:      q.FeedID,
			Oracles:     bundle.Oracles,
			QueueID:     bundle.QueueID,
		})
	}
}

// Package client assembles the wire-level request payload a consumer
// sends to the on-chain run_k entry points. It is
// intentionally minimal: no RPC discovery, no GraphQL enumeration, no
// key custody. The transaction-submission client proper lives outside
// this module and is specified only through this thin seam.
package client

import (
	"encoding/hex"

	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
)

// FeedSubmission is one feed's positional entry in a committee
// submission request: the value, its sign, and the minimum committee
// size the submitter wants enforced for it.
type FeedSubmission struct {
	FeedID           [32]byte
	Value            uint64
	ValueNeg         bool
	MinOracleSamples uint8
}

// OracleHandle identifies one committee member supplying a signature in
// this submission, by the id the on-chain Oracle object is keyed under.
type OracleHandle struct {
	OracleID [32]byte
}

// RunPayload is the assembled request body for one run_k call: the
// committee arity is len(Oracles), validated against the 1..6 policy
// constant before being handed to a transport.
type RunPayload struct {
	Feeds            []FeedSubmission `json:"feeds"`
	Signatures       [][65]byte       `json:"signatures"`
	Slot             uint64           `json:"slot"`
	TimestampSeconds uint64           `json:"timestamp_seconds"`
	Oracles          []OracleHandle   `json:"oracles"`
	QueueIDHex       string           `json:"queue_id"`
}

// MaxCommitteeSize mirrors the Run1..Run6 policy constant:
// the largest committee size accepted per run_k call.
const MaxCommitteeSize = 6

// BuildRunPayload assembles and validates a RunPayload: feeds must be
// non-empty, committee size must fall in 1..MaxCommitteeSize, and
// signatures carry one entry per oracle, in committee order: each is
// that oracle's signature over the shared consensus digest, matching
// quotesubmit's positional expectation.
func BuildRunPayload(
	queueID [32]byte,
	feeds []FeedSubmission,
	signatures [][65]byte,
	slot uint64,
	timestampSeconds uint64,
	oracles []OracleHandle,
) (*RunPayload, error) {
	if len(feeds) == 0 {
		return nil, coreerr.New(coreerr.EInvalidLength, "client: at least one feed is required")
	}
	committeeSize := len(oracles)
	if committeeSize < 1 || committeeSize > MaxCommitteeSize {
		return nil, coreerr.Newf(coreerr.EInvalidArity, "client: committee size must be 1..%d, got %d", MaxCommitteeSize, committeeSize)
	}
	if len(signatures) != committeeSize {
		return nil, coreerr.Newf(coreerr.EInvalidLength, "client: expected %d signatures (one per oracle), got %d", committeeSize, len(signatures))
	}
	return &RunPayload{
		Feeds:            feeds,
		Signatures:       signatures,
		Slot:             slot,
		TimestampSeconds: timestampSeconds,
		Oracles:          oracles,
		QueueIDHex:       hex.EncodeToString(queueID[:]),
	}, nil
}

// DecimalOf reconstructs a decimal.Decimal from a FeedSubmission's raw
// (value, neg) pair, the same conversion quotesubmit performs
// server-side from the positional values/values_neg arrays.
func (f FeedSubmission) DecimalOf() decimal.Decimal {
	return decimal.FromUint64(f.Value, f.ValueNeg)
}

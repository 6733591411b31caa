// Package events defines the structural notifications emitted by the
// verifier core: queue governance changes and quote resolution outcomes.
// Sink is the single seam by which callers observe them, keeping state
// mutation separate from observability.
package events

// Event is the marker interface implemented by every emitted notification.
type Event interface {
	isEvent()
}

// QueueAuthorityUpdated records a queue's authority rotation.
type QueueAuthorityUpdated struct {
	QueueID      [32]byte
	OldAuthority string
	NewAuthority string
}

func (QueueAuthorityUpdated) isEvent() {}

// QueueFeeTypeAdded records a newly accepted fee coin type.
type QueueFeeTypeAdded struct {
	QueueID  [32]byte
	CoinType string
}

func (QueueFeeTypeAdded) isEvent() {}

// QueueFeeTypeRemoved records a revoked fee coin type.
type QueueFeeTypeRemoved struct {
	QueueID  [32]byte
	CoinType string
}

func (QueueFeeTypeRemoved) isEvent() {}

// OracleOverridden records a re-attestation of a committee member.
type OracleOverridden struct {
	QueueID     [32]byte
	OracleID    [32]byte
	ExpiresAtMs uint64
}

func (OracleOverridden) isEvent() {}

// FeedDropped records a feed silently dropped from a committee submission
// for failing to reach min_oracle_samples.
type FeedDropped struct {
	FeedID      [32]byte
	GotSamples  int
	WantSamples int
}

func (FeedDropped) isEvent() {}

// QuoteRejected records a quote rejected by a consumer's replacement policy.
type QuoteRejected struct {
	ConsumerID [32]byte
	FeedID     [32]byte
	Reason     string
}

func (QuoteRejected) isEvent() {}

// QuoteVerified records a quote admitted into a consumer's QuoteVerifier
// slot, carrying the committee that backed it and the queue it was
// admitted under.
type QuoteVerified struct {
	TimestampMs uint64
	Slot        uint64
	FeedID      [32]byte
	Oracles     [][32]byte
	QueueID     [32]byte
}

func (QuoteVerified) isEvent() {}

// SignatureInvalid is a non-fatal committee-submission mismatch: the
// signature over the consensus digest did not recover to the oracle's
// recorded key. Submission is still processed; this is
// evidentiary, never a structural error.
type SignatureInvalid struct {
	Signature []byte
	OracleID  [32]byte
}

func (SignatureInvalid) isEvent() {}

// AggregatorAuthorityUpdated records an aggregator's authority rotation.
type AggregatorAuthorityUpdated struct {
	AggregatorID [32]byte
	OldAuthority string
	NewAuthority string
}

func (AggregatorAuthorityUpdated) isEvent() {}

// QueueCreated records a new queue's admission into the registry.
type QueueCreated struct {
	QueueID   [32]byte
	Authority string
	Name      string
}

func (QueueCreated) isEvent() {}

// AggregateUpdated records a recomputation of an aggregator's ring-buffer
// summary statistics.
type AggregateUpdated struct {
	AggregatorID [32]byte
	FeedHash     [32]byte
	Result       float64
	Mean         float64
	Stdev        float64
	Populated    int
}

func (AggregateUpdated) isEvent() {}

// Sink receives events as they occur. Implementations must not block the
// caller for long; LogrusSink simply logs and returns.
type Sink interface {
	Emit(e Event)
}

// Package queue implements the Queue registry: the governance boundary
// binding a set of admitted oracles, a fee policy, and an attestation
// threshold.
package queue

import (
	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/events"
	"oraclecore.dev/verifier/oracle"

	log "github.com/sirupsen/logrus"
)

// Queue is the registry of admitted oracles and their governance policy.
// Membership in existingOracles is the sole admission criterion for
// oracle signatures.
type Queue struct {
	id                     [32]byte
	queueKey               [32]byte
	authority              string
	name                   string
	fee                    uint64
	feeRecipient           string
	minAttestations        uint32
	oracleValidityLengthMs uint64
	guardianQueueID        [32]byte
	isGuardian             bool
	existingOracles        map[[32]byte][32]byte // oracle_id -> oracle_key
	feeTypes               map[string]struct{}
	lastQueueOverrideMs    uint64
	createdAtMs            uint64
}

// New constructs a Queue. minAttestations and oracleValidityLengthMs
// must both be positive.
func New(
	id [32]byte,
	queueKey [32]byte,
	authority string,
	name string,
	fee uint64,
	feeRecipient string,
	minAttestations uint32,
	oracleValidityLengthMs uint64,
	guardianQueueID [32]byte,
	isGuardian bool,
	createdAtMs uint64,
) (*Queue, error) {
	if minAttestations == 0 {
		return nil, coreerr.New(coreerr.EInvalidMinAttestations, "min_attestations must be > 0")
	}
	if oracleValidityLengthMs == 0 {
		return nil, coreerr.New(coreerr.EInvalidOracleValidityLen, "oracle_validity_length_ms must be > 0")
	}
	return &Queue{
		id:                     id,
		queueKey:               queueKey,
		authority:              authority,
		name:                   name,
		fee:                    fee,
		feeRecipient:           feeRecipient,
		minAttestations:        minAttestations,
		oracleValidityLengthMs: oracleValidityLengthMs,
		guardianQueueID:        guardianQueueID,
		isGuardian:             isGuardian,
		existingOracles:        make(map[[32]byte][32]byte),
		feeTypes:               make(map[string]struct{}),
		createdAtMs:            createdAtMs,
	}, nil
}

func (q *Queue) ID() [32]byte                     { return q.id }
func (q *Queue) QueueKey() [32]byte               { return q.queueKey }
func (q *Queue) Authority() string                { return q.authority }
func (q *Queue) Name() string                     { return q.name }
func (q *Queue) Fee() uint64                      { return q.fee }
func (q *Queue) FeeRecipient() string             { return q.feeRecipient }
func (q *Queue) MinAttestations() uint32          { return q.minAttestations }
func (q *Queue) OracleValidityLengthMs() uint64   { return q.oracleValidityLengthMs }
func (q *Queue) GuardianQueueID() [32]byte        { return q.guardianQueueID }
func (q *Queue) IsGuardian() bool                 { return q.isGuardian }
func (q *Queue) LastQueueOverrideMs() uint64      { return q.lastQueueOverrideMs }
func (q *Queue) CreatedAtMs() uint64              { return q.createdAtMs }

// IsMember reports whether oracleID is registered on this queue, and if so
// returns its recorded oracle_key.
func (q *Queue) IsMember(oracleID [32]byte) ([32]byte, bool) {
	key, ok := q.existingOracles[oracleID]
	return key, ok
}

// HasFeeType reports whether coinType is an approved fee payment type.
func (q *Queue) HasFeeType(coinType string) bool {
	_, ok := q.feeTypes[coinType]
	return ok
}

// FeeTypes returns the accepted fee coin types, for persistence snapshots.
func (q *Queue) FeeTypes() []string {
	out := make([]string, 0, len(q.feeTypes))
	for t := range q.feeTypes {
		out = append(out, t)
	}
	return out
}

// ExistingOracles returns a copy of the oracle_id -> oracle_key membership
// map, for persistence snapshots.
func (q *Queue) ExistingOracles() map[[32]byte][32]byte {
	out := make(map[[32]byte][32]byte, len(q.existingOracles))
	for k, v := range q.existingOracles {
		out[k] = v
	}
	return out
}

// Restore rehydrates a Queue from persisted field values (store package
// use only): unlike New, it does not re-validate the governance
// invariants, since a previously-persisted Queue already satisfied them
// at write time.
func Restore(
	id [32]byte,
	queueKey [32]byte,
	authority string,
	name string,
	fee uint64,
	feeRecipient string,
	minAttestations uint32,
	oracleValidityLengthMs uint64,
	guardianQueueID [32]byte,
	isGuardian bool,
	createdAtMs uint64,
	lastQueueOverrideMs uint64,
	existingOracles map[[32]byte][32]byte,
	feeTypes []string,
) *Queue {
	q := &Queue{
		id:                     id,
		queueKey:               queueKey,
		authority:              authority,
		name:                   name,
		fee:                    fee,
		feeRecipient:           feeRecipient,
		minAttestations:        minAttestations,
		oracleValidityLengthMs: oracleValidityLengthMs,
		guardianQueueID:        guardianQueueID,
		isGuardian:             isGuardian,
		existingOracles:        make(map[[32]byte][32]byte, len(existingOracles)),
		feeTypes:               make(map[string]struct{}, len(feeTypes)),
		lastQueueOverrideMs:    lastQueueOverrideMs,
		createdAtMs:            createdAtMs,
	}
	for k, v := range existingOracles {
		q.existingOracles[k] = v
	}
	for _, t := range feeTypes {
		q.feeTypes[t] = struct{}{}
	}
	return q
}

func requireAuthority(q *Queue, caller string) error {
	if caller != q.authority {
		return coreerr.New(coreerr.EInvalidAuthority, "caller is not the queue authority")
	}
	return nil
}

// SetAuthority rotates the queue's authority.
func (q *Queue) SetAuthority(caller string, newAuthority string, sink events.Sink) error {
	if err := requireAuthority(q, caller); err != nil {
		return err
	}
	old := q.authority
	q.authority = newAuthority
	log.WithFields(log.Fields{"queue_id": q.id, "old": old, "new": newAuthority}).Info("queue authority updated")
	if sink != nil {
		sink.Emit(events.QueueAuthorityUpdated{QueueID: q.id, OldAuthority: old, NewAuthority: newAuthority})
	}
	return nil
}

// SetConfigs updates the queue's fee/attestation/validity policy.
// minAttestations and oracleValidityLengthMs keep the same invariants
// New enforces.
func (q *Queue) SetConfigs(caller string, fee uint64, feeRecipient string, minAttestations uint32, oracleValidityLengthMs uint64) error {
	if err := requireAuthority(q, caller); err != nil {
		return err
	}
	if minAttestations == 0 {
		return coreerr.New(coreerr.EInvalidMinAttestations, "min_attestations must be > 0")
	}
	if oracleValidityLengthMs == 0 {
		return coreerr.New(coreerr.EInvalidOracleValidityLen, "oracle_validity_length_ms must be > 0")
	}
	q.fee = fee
	q.feeRecipient = feeRecipient
	q.minAttestations = minAttestations
	q.oracleValidityLengthMs = oracleValidityLengthMs
	return nil
}

// AddFeeCoin registers a new accepted fee coin type.
func (q *Queue) AddFeeCoin(caller string, coinType string, sink events.Sink) error {
	if err := requireAuthority(q, caller); err != nil {
		return err
	}
	q.feeTypes[coinType] = struct{}{}
	if sink != nil {
		sink.Emit(events.QueueFeeTypeAdded{QueueID: q.id, CoinType: coinType})
	}
	return nil
}

// RemoveFeeCoin removes an accepted fee coin type.
func (q *Queue) RemoveFeeCoin(caller string, coinType string, sink events.Sink) error {
	if err := requireAuthority(q, caller); err != nil {
		return err
	}
	delete(q.feeTypes, coinType)
	if sink != nil {
		sink.Emit(events.QueueFeeTypeRemoved{QueueID: q.id, CoinType: coinType})
	}
	return nil
}

// OverrideOracle re-attests o: it is the only path by which
// (secp256k1_key, mr_enclave, expiration_time_ms) of a member oracle may
// change. It records last_queue_override_ms and inserts o
// into existingOracles if absent, preserving oracle_key across overrides.
// newExpirationMs must be in the future relative to nowMs.
func (q *Queue) OverrideOracle(caller string, o *oracle.Oracle, newSecpKey [64]byte, newMrEnclave [32]byte, newExpirationMs uint64, nowMs uint64) error {
	if err := requireAuthority(q, caller); err != nil {
		return err
	}
	if o.QueueID() != q.id {
		return coreerr.New(coreerr.EQueueMismatch, "oracle is bound to a different queue")
	}
	if newExpirationMs <= nowMs {
		return coreerr.New(coreerr.EOracleInvalid, "new_expiration_ms must be in the future")
	}
	if err := oracle.ApplyOverride(o, newSecpKey, newMrEnclave, newExpirationMs, nowMs); err != nil {
		return err
	}
	if _, ok := q.existingOracles[o.ID()]; !ok {
		q.existingOracles[o.ID()] = o.OracleKey()
	}
	q.lastQueueOverrideMs = nowMs
	log.WithFields(log.Fields{"queue_id": q.id, "oracle_id": o.ID(), "expires_at_ms": newExpirationMs}).Info("oracle override applied")
	return nil
}

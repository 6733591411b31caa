// Package oracle implements the per-oracle committee-member record: a
// secp256k1 public key, an attested enclave measurement, an expiry, and
// the queue it is bound to.
package oracle

import "oraclecore.dev/verifier/canon"

// Oracle is a committee member. It is created empty (zero expiry, no
// attestations) by Init and mutated only through
// queue.Queue.OverrideOracle; expiry is the only lifecycle terminator
// for verification purposes.
type Oracle struct {
	id              [32]byte
	queueID         [32]byte
	oracleKey       [32]byte
	secp256k1Key    [64]byte
	mrEnclave       [32]byte
	expirationMs    uint64
	validAttests    [][32]byte
	lastOverrideMs  uint64
}

// Init creates a fresh Oracle bound to queueID, with empty attestations
// and zero expiry: unusable for verification until overridden.
func Init(id [32]byte, oracleKey [32]byte, queueID [32]byte) *Oracle {
	return &Oracle{id: id, queueID: queueID, oracleKey: oracleKey}
}

func (o *Oracle) ID() [32]byte              { return o.id }
func (o *Oracle) QueueID() [32]byte         { return o.queueID }
func (o *Oracle) OracleKey() [32]byte       { return o.oracleKey }
func (o *Oracle) Secp256k1Key() [64]byte    { return o.secp256k1Key }
func (o *Oracle) MrEnclave() [32]byte       { return o.mrEnclave }
func (o *Oracle) ExpirationTimeMs() uint64  { return o.expirationMs }
func (o *Oracle) LastOverrideMs() uint64    { return o.lastOverrideMs }
func (o *Oracle) ValidAttestations() [][32]byte {
	out := make([][32]byte, len(o.validAttests))
	copy(out, o.validAttests)
	return out
}

// IsExpired reports whether the oracle's attestation is no longer valid at
// nowMs.
func (o *Oracle) IsExpired(nowMs uint64) bool {
	return o.expirationMs <= nowMs
}

// Restore rehydrates an Oracle from persisted field values (store package
// use only), bypassing the empty-attestation state Init always starts
// from.
func Restore(id, queueID, oracleKey [32]byte, secp256k1Key [64]byte, mrEnclave [32]byte, expirationMs, lastOverrideMs uint64, validAttests [][32]byte) *Oracle {
	attests := make([][32]byte, len(validAttests))
	copy(attests, validAttests)
	return &Oracle{
		id:             id,
		queueID:        queueID,
		oracleKey:      oracleKey,
		secp256k1Key:   secp256k1Key,
		mrEnclave:      mrEnclave,
		expirationMs:   expirationMs,
		lastOverrideMs: lastOverrideMs,
		validAttests:   attests,
	}
}

// ApplyOverride is the sole mutator of an oracle's key material, called
// by queue.Queue.OverrideOracle under its authority gate: the only path
// by which secp256k1_key, mr_enclave, and expiration_time_ms may change.
func ApplyOverride(o *Oracle, secpKey [64]byte, mrEnclave [32]byte, expirationMs uint64, nowMs uint64) error {
	if err := canon.CheckSecp256k1KeyLength(secpKey[:]); err != nil {
		return err
	}
	if err := canon.CheckMrEnclaveLength(mrEnclave[:]); err != nil {
		return err
	}
	o.secp256k1Key = secpKey
	o.mrEnclave = mrEnclave
	o.expirationMs = expirationMs
	o.lastOverrideMs = nowMs
	return nil
}

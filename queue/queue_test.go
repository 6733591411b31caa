package queue

import (
	"testing"

	"oraclecore.dev/verifier/oracle"
)

func mustQueue(t *testing.T) *Queue {
	t.Helper()
	var id, key, guardian [32]byte
	id[0] = 1
	q, err := New(id, key, "authority-1", "test-queue", 100, "recipient-1", 1, 60000, guardian, false, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return q
}

func TestNew_RejectsZeroMinAttestations(t *testing.T) {
	var id, key, guardian [32]byte
	_, err := New(id, key, "a", "n", 0, "r", 0, 1000, guardian, false, 0)
	if err == nil {
		t.Fatalf("expected error for zero min_attestations")
	}
}

func TestNew_RejectsZeroValidityLength(t *testing.T) {
	var id, key, guardian [32]byte
	_, err := New(id, key, "a", "n", 0, "r", 1, 0, guardian, false, 0)
	if err == nil {
		t.Fatalf("expected error for zero oracle_validity_length_ms")
	}
}

func TestSetConfigs_RejectsWrongAuthority(t *testing.T) {
	q := mustQueue(t)
	if err := q.SetConfigs("not-the-authority", 1, "r", 1, 1000); err == nil {
		t.Fatalf("expected EInvalidAuthority")
	}
}

func TestSetConfigs_UpdatesPolicy(t *testing.T) {
	q := mustQueue(t)
	if err := q.SetConfigs("authority-1", 250, "new-recipient", 3, 120000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Fee() != 250 || q.FeeRecipient() != "new-recipient" || q.MinAttestations() != 3 || q.OracleValidityLengthMs() != 120000 {
		t.Fatalf("policy not updated: %+v", q)
	}
}

func TestAddRemoveFeeCoin(t *testing.T) {
	q := mustQueue(t)
	if err := q.AddFeeCoin("authority-1", "USDC", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.HasFeeType("USDC") {
		t.Fatalf("USDC not registered")
	}
	if err := q.RemoveFeeCoin("authority-1", "USDC", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.HasFeeType("USDC") {
		t.Fatalf("USDC should have been removed")
	}
}

func TestOverrideOracle_InsertsAndPreservesOracleKey(t *testing.T) {
	q := mustQueue(t)

	var oracleID, oracleKey, queueID [32]byte
	oracleID[0] = 9
	oracleKey[0] = 0xaa
	queueID = q.ID()
	o := oracle.Init(oracleID, oracleKey, queueID)

	var secp [64]byte
	secp[0] = 1
	var mrEnclave [32]byte
	mrEnclave[0] = 2

	if err := q.OverrideOracle("authority-1", o, secp, mrEnclave, 5000, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key, ok := q.IsMember(oracleID)
	if !ok {
		t.Fatalf("oracle not inserted into existing_oracles")
	}
	if key != oracleKey {
		t.Fatalf("oracle_key not preserved: got %x want %x", key, oracleKey)
	}
	if q.LastQueueOverrideMs() != 1000 {
		t.Fatalf("last_queue_override_ms not recorded")
	}

	// A second override of an existing member must leave the oracle_key
	// recorded in existing_oracles unchanged.
	if err := q.OverrideOracle("authority-1", o, secp, mrEnclave, 9000, 2000); err != nil {
		t.Fatalf("unexpected error on second override: %v", err)
	}
	key2, _ := q.IsMember(oracleID)
	if key2 != oracleKey {
		t.Fatalf("oracle_key changed across override: got %x want %x", key2, oracleKey)
	}
}

func TestOverrideOracle_RejectsQueueMismatch(t *testing.T) {
	q := mustQueue(t)
	var oracleID, oracleKey, otherQueue [32]byte
	otherQueue[0] = 0xff
	o := oracle.Init(oracleID, oracleKey, otherQueue)

	var secp [64]byte
	var mrEnclave [32]byte
	if err := q.OverrideOracle("authority-1", o, secp, mrEnclave, 5000, 1000); err == nil {
		t.Fatalf("expected EQueueMismatch")
	}
}

func TestOverrideOracle_RejectsPastExpiration(t *testing.T) {
	q := mustQueue(t)
	var oracleID, oracleKey [32]byte
	o := oracle.Init(oracleID, oracleKey, q.ID())

	var secp [64]byte
	var mrEnclave [32]byte
	if err := q.OverrideOracle("authority-1", o, secp, mrEnclave, 1000, 1000); err == nil {
		t.Fatalf("expected error for new_expiration_ms <= now")
	}
}

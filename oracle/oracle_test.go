package oracle

import "testing"

func TestInit_UnusableUntilOverridden(t *testing.T) {
	var id, key, queueID [32]byte
	id[0] = 1
	o := Init(id, key, queueID)

	if !o.IsExpired(0) {
		t.Fatalf("freshly-initted oracle must be expired (zero expiry)")
	}
	if o.ExpirationTimeMs() != 0 {
		t.Fatalf("expected zero expiry, got %d", o.ExpirationTimeMs())
	}
}

func TestApplyOverride_UpdatesKeyMaterial(t *testing.T) {
	var id, key, queueID [32]byte
	o := Init(id, key, queueID)

	var secp [64]byte
	secp[0] = 0xaa
	var mrEnclave [32]byte
	mrEnclave[0] = 0xbb

	if err := ApplyOverride(o, secp, mrEnclave, 5000, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Secp256k1Key() != secp {
		t.Fatalf("secp256k1 key not applied")
	}
	if o.MrEnclave() != mrEnclave {
		t.Fatalf("mr_enclave not applied")
	}
	if o.ExpirationTimeMs() != 5000 {
		t.Fatalf("expiration not applied")
	}
	if o.LastOverrideMs() != 1000 {
		t.Fatalf("last_override_ms not recorded")
	}
	if o.IsExpired(4000) {
		t.Fatalf("oracle should be valid before expiry")
	}
	if !o.IsExpired(5000) {
		t.Fatalf("oracle must be expired at exactly expiration_time_ms")
	}
}

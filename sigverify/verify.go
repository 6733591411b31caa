// Package sigverify recovers and checks secp256k1 signatures over the
// canonical message buffers assembled by canon: the committee
// verification path for consensus-message submissions.
package sigverify

import (
	"bytes"

	"github.com/ethereum/go-ethereum/crypto"

	"oraclecore.dev/verifier/coreerr"
)

// SignatureLen is the wire length of an r||s||v signature.
const SignatureLen = 65

// Recover extracts the 64-byte uncompressed (X||Y, no 0x04 prefix)
// secp256k1 public key that produced sig over digest. sig must be the
// 65-byte r||s||v encoding; v is normalized from either {0,1} or {27,28}.
func Recover(digest [32]byte, sig []byte) ([64]byte, error) {
	var out [64]byte
	if len(sig) != SignatureLen {
		return out, coreerr.Newf(coreerr.EInvalidLength, "signature must be %d bytes, got %d", SignatureLen, len(sig))
	}
	normalized := make([]byte, SignatureLen)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return out, coreerr.New(coreerr.EInvalidLength, "signature recovery byte out of range")
	}

	pub, err := crypto.Ecrecover(digest[:], normalized)
	if err != nil {
		return out, coreerr.Newf(coreerr.EInvalidLength, "ecrecover failed: %v", err)
	}
	// pub is 65 bytes: 0x04 || X (32) || Y (32).
	if len(pub) != 65 || pub[0] != 0x04 {
		return out, coreerr.New(coreerr.EInvalidLength, "unexpected recovered public key encoding")
	}
	copy(out[:], pub[1:])
	return out, nil
}

// Check reports whether sig over digest was produced by the holder of
// wantKey (the 64-byte X||Y encoding recorded on an oracle's record).
func Check(digest [32]byte, sig []byte, wantKey [64]byte) (bool, error) {
	got, err := Recover(digest, sig)
	if err != nil {
		return false, err
	}
	return bytes.Equal(got[:], wantKey[:]), nil
}

// Submission is one committee member's positional entry in a consensus
// message signing round: the claimed oracle key and its signature over
// the shared digest.
type Submission struct {
	OracleID  [32]byte
	OracleKey [64]byte
	Signature []byte
}

// Result is the per-submission outcome of VerifyCommittee.
type Result struct {
	OracleID [32]byte
	Valid    bool
	Err      error
}

// VerifyCommittee checks every submission's signature against digest,
// returning one Result per submission in input order. Invalid signatures
// are reported, not dropped here; the caller (quotesubmit) decides
// whether the valid subset still meets min_oracle_samples.
func VerifyCommittee(digest [32]byte, subs []Submission) []Result {
	out := make([]Result, len(subs))
	for i, s := range subs {
		ok, err := Check(digest, s.Signature, s.OracleKey)
		out[i] = Result{OracleID: s.OracleID, Valid: ok && err == nil, Err: err}
	}
	return out
}

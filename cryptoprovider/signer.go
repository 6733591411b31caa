// Package cryptoprovider is the narrow crypto interface used by fixture
// generation and test tooling: a pluggable signer seam with a single
// secp256k1 backend.
package cryptoprovider

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"oraclecore.dev/verifier/coreerr"
)

// Signer is the narrow signing interface used by fixture and test
// tooling. Implementations must produce the r||s||v encoding sigverify
// expects.
type Signer interface {
	// Sign returns a 65-byte r||s||v signature over digest.
	Sign(digest [32]byte) ([]byte, error)
	// PublicKey returns the 64-byte uncompressed X||Y encoding of the
	// signer's public key.
	PublicKey() [64]byte
}

// Secp256k1Signer is the reference Signer backed by decred's secp256k1
// implementation, used by cmd/gen-quote-fixtures and package tests to
// produce deterministic signed fixtures without depending on any live key
// custody system.
type Secp256k1Signer struct {
	priv *secp256k1.PrivateKey
}

// NewSecp256k1Signer wraps an existing private key.
func NewSecp256k1Signer(priv *secp256k1.PrivateKey) *Secp256k1Signer {
	return &Secp256k1Signer{priv: priv}
}

// GenerateSecp256k1Signer creates a fresh random signer, for use in tests
// and fixture generation where no fixed key material is supplied.
func GenerateSecp256k1Signer() (*Secp256k1Signer, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, coreerr.Newf(coreerr.EInvalidLength, "generate secp256k1 key: %v", err)
	}
	return &Secp256k1Signer{priv: priv}, nil
}

func (s *Secp256k1Signer) Sign(digest [32]byte) ([]byte, error) {
	sig := ecdsa.SignCompact(s.priv, digest[:], false)
	out := make([]byte, 65)
	copy(out[0:32], sig[1:33])
	copy(out[32:64], sig[33:65])
	out[64] = sig[0] - 27
	return out, nil
}

func (s *Secp256k1Signer) PublicKey() [64]byte {
	var out [64]byte
	pub := s.priv.PubKey().SerializeUncompressed()
	copy(out[:], pub[1:])
	return out
}

// DecompressPubKey expands a 33-byte compressed secp256k1 public key into
// the 64-byte uncompressed X||Y encoding used throughout this module.
func DecompressPubKey(compressed []byte) ([64]byte, error) {
	var out [64]byte
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return out, coreerr.Newf(coreerr.EWrongSecp256k1KeyLength, "parse compressed pubkey: %v", err)
	}
	raw := pub.SerializeUncompressed()
	copy(out[:], raw[1:])
	return out, nil
}

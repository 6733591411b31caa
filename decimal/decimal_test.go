package decimal

import (
	"encoding/hex"
	"testing"

	"github.com/holiman/uint256"
)

func TestNew_ZeroNormalizesSign(t *testing.T) {
	d, err := New(uint256.NewInt(0), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, neg := d.Unpack(); neg {
		t.Fatalf("expected neg=false for zero magnitude")
	}
}

func TestNew_RejectsOverflow(t *testing.T) {
	over := new(uint256.Int).Lsh(uint256.NewInt(1), 128) // 2^128, one bit too many
	if _, err := New(over, false); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestEncodeI128LE_PositiveValue(t *testing.T) {
	d, err := New(uint256.NewInt(66681990000000000), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := d.EncodeI128LE()
	want := uint256.NewInt(66681990000000000).Bytes32()
	// Bytes32 is big-endian; canonical encoding is little-endian of the same magnitude.
	for i := 0; i < 16; i++ {
		if got[i] != want[31-i] {
			t.Fatalf("byte %d: got %x want %x", i, got[i], want[31-i])
		}
	}
	// Pin the exact bytes too: 66681990000000000 = 0x00ece6eaa6ddbc00.
	if want := "00bcdda6eae6ec000000000000000000"; hex.EncodeToString(got[:]) != want {
		t.Fatalf("encoding = %x, want %s", got, want)
	}
}

func TestEncodeI128LE_NegativeValue(t *testing.T) {
	d, err := New(uint256.NewInt(12345), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := d.EncodeI128LE()

	// 2^128 - 12345 = 0xffff...ffffcfc7, so the little-endian encoding
	// starts 0xc7 0xcf and saturates to 0xff. Fixed literal, derived
	// outside this codebase, so an endianness slip cannot cancel out.
	if want := "c7cfffffffffffffffffffffffffffff"; hex.EncodeToString(got[:]) != want {
		t.Fatalf("encoding = %x, want %s", got, want)
	}
}

func TestFromUint64(t *testing.T) {
	d := FromUint64(0, true)
	if d.Neg() {
		t.Fatalf("expected zero to normalize to non-negative")
	}
	d = FromUint64(5, true)
	if !d.Neg() {
		t.Fatalf("expected neg=true to be preserved for non-zero magnitude")
	}
}

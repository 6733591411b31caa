package canon

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"oraclecore.dev/verifier/decimal"
)

// Scenario 1: single-feed, single-oracle consensus digest.
func TestBuildConsensusMessage_SingleFeed(t *testing.T) {
	slot := uint64(1234567890)
	timestamp := uint64(1729903069)

	var feedID [32]byte
	feedID[0] = 0x01
	feedID[1] = 0x3b
	feedID[31] = 0x58 // shortened fixture id, full value irrelevant to offsets

	mag, ok := new(big.Int).SetString("66681990000000000000000", 10)
	if !ok {
		t.Fatalf("bad magnitude literal")
	}
	val, err := decimal.New(uint256.MustFromBig(mag), false)
	if err != nil {
		t.Fatalf("decimal.New: %v", err)
	}

	buf := BuildConsensusMessage(slot, timestamp, []FeedInput{
		{FeedID: feedID, Value: val, MinOracleSamples: 1},
	})

	if len(buf) != 65 {
		t.Fatalf("buffer length = %d, want 65", len(buf))
	}
	if got := binary.LittleEndian.Uint64(buf[0:8]); got != slot {
		t.Fatalf("slot offset: got %d want %d", got, slot)
	}
	if got := binary.LittleEndian.Uint64(buf[8:16]); got != timestamp {
		t.Fatalf("timestamp offset: got %d want %d", got, timestamp)
	}
	if !bytes.Equal(buf[16:48], feedID[:]) {
		t.Fatalf("feed_id offset mismatch")
	}
	// 66681990000000000000000 = 0x0e1ed68200ace5e70000, little-endian at
	// [48..64]. Fixed literal so the expectation is independent of
	// EncodeI128LE's own index arithmetic.
	wantValue, err := hex.DecodeString("0000e7e5ac0082d61e0e000000000000")
	if err != nil {
		t.Fatalf("bad literal: %v", err)
	}
	if !bytes.Equal(buf[48:64], wantValue) {
		t.Fatalf("value i128 LE at [48..64] = %x, want %x", buf[48:64], wantValue)
	}
	if buf[64] != 1 {
		t.Fatalf("min_oracle_samples byte = %d, want 1", buf[64])
	}
}

// Scenario 2: multi-feed consensus digest, second value negative.
func TestBuildConsensusMessage_MultiFeed(t *testing.T) {
	slot := uint64(1)
	timestamp := uint64(2)

	var f0, f1 [32]byte
	f0[0] = 0xaa
	f1[0] = 0xbb

	v0 := decimal.FromUint64(100, false)
	v1, err := decimal.New(uint256.NewInt(12345), true)
	if err != nil {
		t.Fatalf("decimal.New: %v", err)
	}

	buf := BuildConsensusMessage(slot, timestamp, []FeedInput{
		{FeedID: f0, Value: v0, MinOracleSamples: 1},
		{FeedID: f1, Value: v1, MinOracleSamples: 3},
	})

	if len(buf) != 16+49*2 {
		t.Fatalf("buffer length = %d, want %d", len(buf), 16+49*2)
	}
	if !bytes.Equal(buf[65:97], f1[:]) {
		t.Fatalf("second feed_id offset mismatch")
	}

	// 2^128 - 12345 = 0xffff...ffffcfc7 little-endian: 0xc7 0xcf then
	// fourteen 0xff bytes. Fixed literal, not re-derived with the
	// encoder's own arithmetic.
	wantLE, err := hex.DecodeString("c7cfffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("bad literal: %v", err)
	}
	if got := buf[97:113]; !bytes.Equal(got, wantLE) {
		t.Fatalf("second value i128 LE: got %x want %x", got, wantLE)
	}
	if buf[113] != 3 {
		t.Fatalf("second min_oracle_samples byte = %d, want 3", buf[113])
	}
}

func TestBuildUpdateMessage_Layout(t *testing.T) {
	var queueKey, feedHash, slothash [32]byte
	queueKey[0] = 0x86
	feedHash[0] = 0x01

	val := decimal.FromUint64(66681990000000000, false)

	buf, err := BuildUpdateMessage(queueKey[:], feedHash[:], val, slothash[:], 5000000000, 1, 1729903069)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != 132 {
		t.Fatalf("buffer length = %d, want 132", len(buf))
	}
	if !bytes.Equal(buf[0:32], queueKey[:]) {
		t.Fatalf("queue_key offset mismatch")
	}
	if !bytes.Equal(buf[32:64], feedHash[:]) {
		t.Fatalf("feed_hash offset mismatch")
	}
	if !bytes.Equal(buf[80:112], slothash[:]) {
		t.Fatalf("slothash offset mismatch")
	}
	if got := binary.LittleEndian.Uint64(buf[112:120]); got != 5000000000 {
		t.Fatalf("max_variance offset: got %d want 5000000000", got)
	}
	if got := binary.LittleEndian.Uint32(buf[120:124]); got != 1 {
		t.Fatalf("min_responses offset: got %d want 1", got)
	}
	if got := binary.LittleEndian.Uint64(buf[124:132]); got != 1729903069 {
		t.Fatalf("timestamp offset: got %d want 1729903069", got)
	}
}

func TestBuildUpdateMessage_RejectsBadLengths(t *testing.T) {
	val := decimal.FromUint64(1, false)
	_, err := BuildUpdateMessage(make([]byte, 31), make([]byte, 32), val, make([]byte, 32), 0, 0, 0)
	if err == nil {
		t.Fatalf("expected error for short queue_key")
	}
	_, err = BuildUpdateMessage(make([]byte, 32), make([]byte, 33), val, make([]byte, 32), 0, 0, 0)
	if err == nil {
		t.Fatalf("expected error for long feed_hash")
	}
	_, err = BuildUpdateMessage(make([]byte, 32), make([]byte, 32), val, make([]byte, 10), 0, 0, 0)
	if err == nil {
		t.Fatalf("expected error for short slothash")
	}
}

func TestFieldLengthChecks(t *testing.T) {
	if err := CheckSecp256k1KeyLength(make([]byte, 64)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckSecp256k1KeyLength(make([]byte, 33)); err == nil {
		t.Fatalf("expected error for 33-byte secp256k1 key")
	}
	if err := CheckMrEnclaveLength(make([]byte, 31)); err == nil {
		t.Fatalf("expected error for short mr_enclave")
	}
	if err := CheckOracleIDLength(make([]byte, 32)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckOracleIDLength(nil); err == nil {
		t.Fatalf("expected error for empty oracle id")
	}
}

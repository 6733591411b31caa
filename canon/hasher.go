// Package canon implements the byte-exact canonical message assembly
// and SHA-256 digesting that every oracle signature is verified against.
// The hasher is a pure function built from append-only byte-buffer
// helpers: no shared state survives across calls.
package canon

import (
	"crypto/sha256"
	"encoding/binary"
)

// appendU64LE appends v as 8 little-endian bytes.
func appendU64LE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// appendU32LE appends v as 4 little-endian bytes.
func appendU32LE(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// appendU8 appends a single byte.
func appendU8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

// Digest returns the SHA-256 digest of buf.
func Digest(buf []byte) [32]byte {
	return sha256.Sum256(buf)
}

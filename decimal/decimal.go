// Package decimal implements the signed 128-bit fixed-point value used
// throughout the oracle-consumption core.
package decimal

import (
	"math/big"

	"github.com/holiman/uint256"
)

// two128 is 2^128, used for the two's-complement little-endian encoding of
// negative magnitudes.
var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// maxUint128 bounds the magnitude a Decimal may carry.
var maxUint128 = new(big.Int).Sub(two128, big.NewInt(1))

// Decimal is a pair (magnitude, neg). The invariant neg=false when
// magnitude=0 is enforced by New.
type Decimal struct {
	magnitude *uint256.Int
	neg       bool
}

// New builds a Decimal from a non-negative magnitude and a sign flag.
// magnitude must fit in 128 bits. neg=false is enforced for a zero
// magnitude by normalizing the sign rather than rejecting it, since a
// caller handing "negative zero" should not have to special-case it.
func New(magnitude *uint256.Int, neg bool) (Decimal, error) {
	if magnitude == nil {
		return Decimal{}, errMagnitudeNil
	}
	if magnitude.BitLen() > 128 {
		return Decimal{}, errMagnitudeOverflow
	}
	m := new(uint256.Int).Set(magnitude)
	if m.IsZero() {
		neg = false
	}
	return Decimal{magnitude: m, neg: neg}, nil
}

// FromUint64 builds a non-negative Decimal from a uint64 magnitude, or a
// negative one when neg is true and v != 0.
func FromUint64(v uint64, neg bool) Decimal {
	d, _ := New(uint256.NewInt(v), neg)
	return d
}

// Unpack returns the (magnitude, neg) pair.
func (d Decimal) Unpack() (*uint256.Int, bool) {
	if d.magnitude == nil {
		return uint256.NewInt(0), false
	}
	return new(uint256.Int).Set(d.magnitude), d.neg
}

// Value returns the raw, always non-negative magnitude.
func (d Decimal) Value() *uint256.Int {
	if d.magnitude == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(d.magnitude)
}

// Neg reports the sign flag.
func (d Decimal) Neg() bool {
	return d.neg
}

// EncodeI128LE returns the canonical 16-byte little-endian two's-complement
// encoding used by the canonical hasher: magnitude if
// non-negative, else 2^128 - magnitude.
//
// uint256.Int has no signed subtraction that matches this exact
// "complement against 2^128" semantics for a value only guaranteed to
// fit in 128 (not 256) bits, so this one conversion uses math/big.
func (d Decimal) EncodeI128LE() [16]byte {
	var out [16]byte
	mag := d.Value().ToBig()
	var v *big.Int
	if !d.neg || mag.Sign() == 0 {
		v = mag
	} else {
		v = new(big.Int).Sub(two128, mag)
	}
	b := v.Bytes() // big-endian, no leading zero padding
	for i := 0; i < len(b) && i < 16; i++ {
		out[i] = b[len(b)-1-i]
	}
	return out
}

var (
	errMagnitudeNil      = newErr("decimal: magnitude is nil")
	errMagnitudeOverflow = newErr("decimal: magnitude exceeds 128 bits")
)

type decimalError string

func (e decimalError) Error() string { return string(e) }

func newErr(msg string) error { return decimalError(msg) }

// Fits128 reports whether v is non-negative and can be represented in
// 128 bits.
func Fits128(v *big.Int) bool {
	return v.Cmp(maxUint128) <= 0 && v.Sign() >= 0
}

package dex

import (
	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// BpsDenominator is the basis-point scale for fee and tolerance rates.
const BpsDenominator = 10000

func addU64(a, b uint64) (uint64, error) {
	sum, overflow := gmath.SafeAdd(a, b)
	if overflow {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

func subU64(a, b uint64) (uint64, error) {
	diff, overflow := gmath.SafeSub(a, b)
	if overflow {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// narrow converts v back to uint64, failing when it does not fit.
func narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrMathOverflow
	}
	return v.Uint64(), nil
}

// mulDiv returns floor(a*b/d) computed without intermediate overflow.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrMathOverflow
	}
	prod := new(uint256.Int).Mul(u256(a), u256(b))
	return narrow(prod.Div(prod, u256(d)))
}

// mulDivCeil returns ceil(a*b/d).
func mulDivCeil(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrMathOverflow
	}
	num := new(uint256.Int).Mul(u256(a), u256(b))
	return narrow(ceilDiv(num, u256(d)))
}

func ceilDiv(num, den *uint256.Int) *uint256.Int {
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(num, den, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}

// Isqrt returns floor(sqrt(a*b)).
func Isqrt(a, b uint64) uint64 {
	prod := new(uint256.Int).Mul(u256(a), u256(b))
	// sqrt of a value below 2^128 always fits in 64 bits.
	return prod.Sqrt(prod).Uint64()
}

// product returns a*b as a 256-bit value.
func product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(u256(a), u256(b))
}

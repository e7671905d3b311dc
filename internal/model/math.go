package model

import "math/bits"

// Checked integer helpers. The ledger never wraps silently: every addition
// on a balance goes through AddChecked and every bps computation runs in a
// 128-bit intermediate.

// AddChecked returns a+b and whether the sum fits in uint64.
func AddChecked(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// MulDivBps computes a * bps / BasisPoints with a 128-bit intermediate,
// reporting overflow of the final quotient.
func MulDivBps(a, bps uint64) (uint64, bool) {
	hi, lo := mul64(a, bps)
	q, overflow := div128(hi, lo, BasisPoints)
	return q, !overflow
}

func mul64(a, b uint64) (hi, lo uint64) {
	return bits.Mul64(a, b)
}

// div128 divides the 128-bit value (hi, lo) by d. overflow is true when the
// quotient does not fit in 64 bits (bits.Div64 would panic on that).
func div128(hi, lo, d uint64) (q uint64, overflow bool) {
	if d == 0 || hi >= d {
		return 0, true
	}
	q, _ = bits.Div64(hi, lo, d)
	return q, false
}

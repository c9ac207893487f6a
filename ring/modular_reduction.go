package ring

import (
	"math/big"
	"math/bits"
)

// MaxModulusBits is the largest bit-size allowed for a modulus.
// It leaves enough headroom for the lazy accumulations used by the
// number theoretic transforms.
const MaxModulusBits = 61

// BRedConstant computes the constant for the BRed algorithm.
// Returns ((2^128)/q)/(2^64) and (2^128)/q mod 2^64.
func BRedConstant(q uint64) (constant [2]uint64) {
	bigR := new(big.Int).Lsh(new(big.Int).SetUint64(1), 128)
	bigR.Quo(bigR, new(big.Int).SetUint64(q))

	mask := new(big.Int).SetUint64(0xFFFFFFFFFFFFFFFF)

	constant[0] = new(big.Int).Rsh(bigR, 64).Uint64()
	constant[1] = new(big.Int).And(bigR, mask).Uint64()

	return
}

// BRedAdd reduces a 64 bit integer by q.
// Assumes that x <= 64bits. Useful when several additions
// are performed before a modular reduction, as it is faster than
// applying a per-addition modular reduction.
func BRedAdd(x, q uint64, buConstant [2]uint64) (r uint64) {
	s0, _ := bits.Mul64(x, buConstant[0])
	r = x - s0*q
	if r >= q {
		r -= q
	}
	return
}

// BRedAddLazy reduces a 64 bit integer by q.
// Return result in range [0, 2q-1].
func BRedAddLazy(x, q uint64, buConstant [2]uint64) uint64 {
	s0, _ := bits.Mul64(x, buConstant[0])
	return x - s0*q
}

// BRed computes x*y mod q.
func BRed(x, y, q uint64, buConstant [2]uint64) (r uint64) {

	var lhi, mhi, mlo, s0, s1, carry uint64

	ahi, alo := bits.Mul64(x, y)

	// (alo*ulo)>>64

	lhi, _ = bits.Mul64(alo, buConstant[1])

	// ((ahi*ulo + alo*uhi) + (alo*ulo))>>64

	mhi, mlo = bits.Mul64(alo, buConstant[0])

	s0, carry = bits.Add64(mlo, lhi, 0)

	s1 = mhi + carry

	mhi, mlo = bits.Mul64(ahi, buConstant[1])

	_, carry = bits.Add64(mlo, s0, 0)

	lhi = mhi + carry

	// (ahi*uhi) + (((ahi*ulo + alo*uhi) + (alo*ulo))>>64)

	s0 = ahi*buConstant[0] + s1 + lhi

	r = alo - s0*q

	if r >= q {
		r -= q
	}

	return
}

// BRedLazy computes x*y mod q in constant time.
// The result is between 0 and 2*q-1.
func BRedLazy(x, y, q uint64, buConstant [2]uint64) (r uint64) {

	var lhi, mhi, mlo, s0, s1, carry uint64

	ahi, alo := bits.Mul64(x, y)

	lhi, _ = bits.Mul64(alo, buConstant[1])

	mhi, mlo = bits.Mul64(alo, buConstant[0])

	s0, carry = bits.Add64(mlo, lhi, 0)

	s1 = mhi + carry

	mhi, mlo = bits.Mul64(ahi, buConstant[1])

	_, carry = bits.Add64(mlo, s0, 0)

	lhi = mhi + carry

	s0 = ahi*buConstant[0] + s1 + lhi

	r = alo - s0*q

	return
}

// CRed reduce returns a mod q where a is between 0 and 2*q-1.
func CRed(a, q uint64) uint64 {
	if a >= q {
		return a - q
	}
	return a
}

// SRedConstant computes the constant for the shoup multiplication
// of x by the constant y modulo q: floor(y * 2^64 / q).
// The constant is only valid for y < q.
func SRedConstant(y, q uint64) uint64 {
	constant, _ := bits.Div64(y, 0, q)
	return constant
}

// SRed computes x * y mod q, where sConstant is the
// precomputed constant SRedConstant(y, q).
// Requires x < q; the result is in the range [0, q-1].
func SRed(x, y, q, sConstant uint64) (r uint64) {
	s0, _ := bits.Mul64(x, sConstant)
	r = x*y - s0*q
	if r >= q {
		r -= q
	}
	return
}

// SRedLazy computes x * y mod q in the range [0, 2q-1],
// where sConstant is the precomputed constant SRedConstant(y, q).
func SRedLazy(x, y, q, sConstant uint64) uint64 {
	s0, _ := bits.Mul64(x, sConstant)
	return x*y - s0*q
}

// ModExp performs the modular exponentiation x^e mod q.
// x is required to be in the range [0, q-1].
func ModExp(x, e, q uint64) (result uint64) {
	brc := BRedConstant(q)
	result = 1
	for i := e; i > 0; i >>= 1 {
		if i&1 == 1 {
			result = BRed(result, x, q, brc)
		}
		x = BRed(x, x, q, brc)
	}
	return result
}

// ModInverse computes the multiplicative inverse of x modulo q.
// Returns ErrNotInvertible if gcd(x, q) != 1.
func ModInverse(x, q uint64) (uint64, error) {
	inv := new(big.Int).ModInverse(new(big.Int).SetUint64(x), new(big.Int).SetUint64(q))
	if inv == nil {
		return 0, ErrNotInvertible
	}
	return inv.Uint64(), nil
}

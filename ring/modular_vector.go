// Package ring implements modular arithmetic on vectors of uint64
// coefficients, along with the number theoretic transforms (power-of-two
// and arbitrary cyclotomic) operating on them.
package ring

import (
	"fmt"
	"math/big"

	"github.com/pimfhe/pimring/utils"
)

// ModularVector is a vector of residues modulo a common uint64 modulus.
// All values are kept in the range [0, Modulus-1].
type ModularVector struct {
	Values  []uint64
	Modulus uint64
}

// NewModularVector creates a zero vector of the given length.
func NewModularVector(length int, modulus uint64) *ModularVector {
	return &ModularVector{
		Values:  make([]uint64, length),
		Modulus: modulus,
	}
}

// NewModularVectorFromUint64 creates a vector from a copy of values,
// reducing each entry modulo modulus.
func NewModularVectorFromUint64(values []uint64, modulus uint64) *ModularVector {
	v := NewModularVector(len(values), modulus)
	reducevec(values, v.Values, modulus, BRedConstant(modulus))
	return v
}

// Len returns the number of coefficients.
func (v *ModularVector) Len() int {
	return len(v.Values)
}

// CopyNew returns a deep copy of the vector.
func (v *ModularVector) CopyNew() *ModularVector {
	cpy := &ModularVector{
		Values:  make([]uint64, len(v.Values)),
		Modulus: v.Modulus,
	}
	copy(cpy.Values, v.Values)
	return cpy
}

// Equal returns true if both vectors have the same modulus and coefficients.
func (v *ModularVector) Equal(b *ModularVector) bool {
	return v.Modulus == b.Modulus && len(v.Values) == len(b.Values) && utils.EqualSliceUint64(v.Values, b.Values)
}

// SetModulus reinterprets the vector under a new modulus, reducing each
// coefficient with a plain (non-balanced) modular reduction.
func (v *ModularVector) SetModulus(modulus uint64) {
	for i := range v.Values {
		v.Values[i] %= modulus
	}
	v.Modulus = modulus
}

// SwitchModulus switches the vector to a new modulus in place, mapping
// each residue through the balanced (signed) representation: residues
// above Modulus/2 are treated as negative and re-centered around the
// new modulus.
func (v *ModularVector) SwitchModulus(modulus uint64) {
	halfQ := v.Modulus >> 1
	if modulus > v.Modulus {
		diff := modulus - v.Modulus
		for i, x := range v.Values {
			if x > halfQ {
				v.Values[i] = x + diff
			}
		}
	} else {
		diff := (v.Modulus - modulus) % modulus
		for i, x := range v.Values {
			x %= modulus
			if v.Values[i] > halfQ {
				x = submod(x, diff, modulus)
			}
			v.Values[i] = x
		}
	}
	v.Modulus = modulus
}

// submod returns (a - b) mod q for a, b in [0, q-1].
func submod(a, b, q uint64) uint64 {
	if a >= b {
		return a - b
	}
	return a + q - b
}

// Mod returns the vector with each residue interpreted in the balanced
// representation and reduced modulo the given modulus. Unlike
// SwitchModulus, the stored modulus of the result is unchanged.
// A modulus of 2 reduces to ModByTwo.
func (v *ModularVector) Mod(modulus uint64) *ModularVector {
	ans := v.CopyNew()
	ans.ModEq(modulus)
	return ans
}

// ModEq is the in-place form of Mod.
func (v *ModularVector) ModEq(modulus uint64) {
	if modulus == 2 {
		two := v.ModByTwo()
		copy(v.Values, two.Values)
		v.Modulus = 2
		return
	}
	halfQ := v.Modulus >> 1
	if modulus > v.Modulus {
		diff := modulus - v.Modulus
		for i, x := range v.Values {
			if x > halfQ {
				v.Values[i] = x + diff
			}
		}
	} else {
		diff := (v.Modulus - modulus) % modulus
		for i, x := range v.Values {
			r := x % modulus
			if x > halfQ {
				r = submod(r, diff, modulus)
			}
			v.Values[i] = r
		}
	}
}

// ModAddScalar returns v + scalar mod Modulus, element-wise.
func (v *ModularVector) ModAddScalar(scalar uint64) *ModularVector {
	ans := NewModularVector(len(v.Values), v.Modulus)
	addscalarvec(v.Values, scalar%v.Modulus, ans.Values, v.Modulus)
	return ans
}

// ModAddScalarEq is the in-place form of ModAddScalar.
func (v *ModularVector) ModAddScalarEq(scalar uint64) {
	addscalarvec(v.Values, scalar%v.Modulus, v.Values, v.Modulus)
}

// ModAdd returns v + b mod Modulus, element-wise.
func (v *ModularVector) ModAdd(b *ModularVector) (*ModularVector, error) {
	if err := v.checkCompatible(b); err != nil {
		return nil, err
	}
	ans := NewModularVector(len(v.Values), v.Modulus)
	addvec(v.Values, b.Values, ans.Values, v.Modulus)
	return ans, nil
}

// ModAddEq is the in-place form of ModAdd.
func (v *ModularVector) ModAddEq(b *ModularVector) error {
	if err := v.checkCompatible(b); err != nil {
		return err
	}
	addvec(v.Values, b.Values, v.Values, v.Modulus)
	return nil
}

// ModSubScalar returns v - scalar mod Modulus, element-wise.
func (v *ModularVector) ModSubScalar(scalar uint64) *ModularVector {
	ans := NewModularVector(len(v.Values), v.Modulus)
	subscalarvec(v.Values, scalar%v.Modulus, ans.Values, v.Modulus)
	return ans
}

// ModSubScalarEq is the in-place form of ModSubScalar.
func (v *ModularVector) ModSubScalarEq(scalar uint64) {
	subscalarvec(v.Values, scalar%v.Modulus, v.Values, v.Modulus)
}

// ModSub returns v - b mod Modulus, element-wise.
func (v *ModularVector) ModSub(b *ModularVector) (*ModularVector, error) {
	if err := v.checkCompatible(b); err != nil {
		return nil, err
	}
	ans := NewModularVector(len(v.Values), v.Modulus)
	subvec(v.Values, b.Values, ans.Values, v.Modulus)
	return ans, nil
}

// ModSubEq is the in-place form of ModSub.
func (v *ModularVector) ModSubEq(b *ModularVector) error {
	if err := v.checkCompatible(b); err != nil {
		return err
	}
	subvec(v.Values, b.Values, v.Values, v.Modulus)
	return nil
}

// ModNegate returns -v mod Modulus, element-wise.
func (v *ModularVector) ModNegate() *ModularVector {
	ans := NewModularVector(len(v.Values), v.Modulus)
	negvec(v.Values, ans.Values, v.Modulus)
	return ans
}

// ModNegateEq is the in-place form of ModNegate.
func (v *ModularVector) ModNegateEq() {
	negvec(v.Values, v.Values, v.Modulus)
}

// ModMulScalar returns v * scalar mod Modulus, element-wise, using the
// precomputed-constant multiplication fast path.
func (v *ModularVector) ModMulScalar(scalar uint64) *ModularVector {
	ans := NewModularVector(len(v.Values), v.Modulus)
	scalar %= v.Modulus
	mulscalarvec(v.Values, scalar, ans.Values, v.Modulus, SRedConstant(scalar, v.Modulus))
	return ans
}

// ModMulScalarEq is the in-place form of ModMulScalar.
func (v *ModularVector) ModMulScalarEq(scalar uint64) {
	scalar %= v.Modulus
	mulscalarvec(v.Values, scalar, v.Values, v.Modulus, SRedConstant(scalar, v.Modulus))
}

// ModMul returns v * b mod Modulus, element-wise, using Barrett reduction.
func (v *ModularVector) ModMul(b *ModularVector) (*ModularVector, error) {
	if err := v.checkCompatible(b); err != nil {
		return nil, err
	}
	ans := NewModularVector(len(v.Values), v.Modulus)
	mulvec(v.Values, b.Values, ans.Values, v.Modulus, BRedConstant(v.Modulus))
	return ans, nil
}

// ModMulEq is the in-place form of ModMul.
func (v *ModularVector) ModMulEq(b *ModularVector) error {
	if err := v.checkCompatible(b); err != nil {
		return err
	}
	mulvec(v.Values, b.Values, v.Values, v.Modulus, BRedConstant(v.Modulus))
	return nil
}

// ModExpScalar returns v^exp mod Modulus, element-wise. The exponent is
// first reduced modulo the vector modulus.
func (v *ModularVector) ModExpScalar(exp uint64) *ModularVector {
	ans := NewModularVector(len(v.Values), v.Modulus)
	expscalarvec(v.Values, exp%v.Modulus, ans.Values, v.Modulus, BRedConstant(v.Modulus))
	return ans
}

// ModExpScalarEq is the in-place form of ModExpScalar.
func (v *ModularVector) ModExpScalarEq(exp uint64) {
	expscalarvec(v.Values, exp%v.Modulus, v.Values, v.Modulus, BRedConstant(v.Modulus))
}

// ModByTwo maps each residue to its balanced-representation parity:
// residues above Modulus/2 have their parity flipped. The result has
// modulus 2.
func (v *ModularVector) ModByTwo() *ModularVector {
	ans := NewModularVector(len(v.Values), 2)
	halfQ := v.Modulus >> 1
	for i, x := range v.Values {
		b := uint64(0)
		if x > halfQ {
			b = 1
		}
		ans.Values[i] = 0x1 & (x ^ b)
	}
	return ans
}

// MultiplyAndRound returns round(v * p / q) element-wise in the balanced
// representation: residues above Modulus/2 are negated, scaled and
// negated back.
func (v *ModularVector) MultiplyAndRound(p, q uint64) *ModularVector {
	ans := v.CopyNew()
	ans.MultiplyAndRoundEq(p, q)
	return ans
}

// MultiplyAndRoundEq is the in-place form of MultiplyAndRound.
func (v *ModularVector) MultiplyAndRoundEq(p, q uint64) {
	halfQ := v.Modulus >> 1
	mv := v.Modulus
	for i, x := range v.Values {
		if x > halfQ {
			r := multiplyAndRound(mv-x, p, q) % mv
			v.Values[i] = (mv - r) % mv
		} else {
			v.Values[i] = multiplyAndRound(x, p, q) % mv
		}
	}
}

// DivideAndRound returns round(v / q) element-wise in the balanced
// representation.
func (v *ModularVector) DivideAndRound(q uint64) *ModularVector {
	ans := v.CopyNew()
	ans.DivideAndRoundEq(q)
	return ans
}

// DivideAndRoundEq is the in-place form of DivideAndRound.
func (v *ModularVector) DivideAndRoundEq(q uint64) {
	halfQ := v.Modulus >> 1
	mv := v.Modulus
	for i, x := range v.Values {
		if x > halfQ {
			r := divideAndRound(mv-x, q) % mv
			v.Values[i] = (mv - r) % mv
		} else {
			v.Values[i] = divideAndRound(x, q) % mv
		}
	}
}

// multiplyAndRound returns round(x * p / q) over the integers.
func multiplyAndRound(x, p, q uint64) uint64 {
	r := new(big.Int).SetUint64(x)
	r.Mul(r, new(big.Int).SetUint64(p))
	r.Add(r, new(big.Int).SetUint64(q>>1))
	r.Quo(r, new(big.Int).SetUint64(q))
	return r.Uint64()
}

// divideAndRound returns round(x / q) over the integers.
func divideAndRound(x, q uint64) uint64 {
	return (x + (q >> 1)) / q
}

// PadZeros returns a copy of the vector extended with zeros up to the
// given length.
func (v *ModularVector) PadZeros(length int) *ModularVector {
	ans := NewModularVector(length, v.Modulus)
	copy(ans.Values, v.Values)
	return ans
}

// Slice returns a copy of the coefficient window [lo, hi) as a new vector.
func (v *ModularVector) Slice(lo, hi int) *ModularVector {
	ans := NewModularVector(hi-lo, v.Modulus)
	copy(ans.Values, v.Values[lo:hi])
	return ans
}

func (v *ModularVector) checkCompatible(b *ModularVector) error {
	if len(v.Values) != len(b.Values) {
		return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(v.Values), len(b.Values))
	}
	if v.Modulus != b.Modulus {
		return fmt.Errorf("%w: moduli %d != %d", ErrSizeMismatch, v.Modulus, b.Modulus)
	}
	return nil
}

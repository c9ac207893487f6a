package ring

import (
	"fmt"
	"math/big"

	"github.com/pimfhe/pimring/utils"
	"github.com/pimfhe/pimring/utils/factorization"
)

// PrimeFactors returns the distinct prime factors of n in ascending order.
func PrimeFactors(n uint64) (factors []uint64) {
	for _, f := range factorization.GetFactors(new(big.Int).SetUint64(n)) {
		factors = append(factors, f.Uint64())
	}
	for i := 1; i < len(factors); i++ {
		for j := i; j > 0 && factors[j] < factors[j-1]; j-- {
			factors[j], factors[j-1] = factors[j-1], factors[j]
		}
	}
	return
}

// PrimitiveRoot returns a generator of the multiplicative group of
// integers modulo the prime q.
func PrimitiveRoot(q uint64) (uint64, error) {

	if !IsPrime(q) {
		return 0, fmt.Errorf("modulus %d is not prime", q)
	}

	factors := PrimeFactors(q - 1)

	for g := uint64(2); g < q; g++ {
		isGenerator := true
		for _, f := range factors {
			if ModExp(g, (q-1)/f, q) == 1 {
				isGenerator = false
				break
			}
		}
		if isGenerator {
			return g, nil
		}
	}

	return 0, fmt.Errorf("no primitive root found modulo %d", q)
}

// RootOfUnity returns a primitive order-th root of unity modulo the
// prime q. Requires order to divide q-1.
func RootOfUnity(order int, q uint64) (uint64, error) {

	if order <= 0 || (q-1)%uint64(order) != 0 {
		return 0, fmt.Errorf("%w: %d does not divide %d-1", ErrInvalidCyclotomicOrder, order, q)
	}

	g, err := PrimitiveRoot(q)
	if err != nil {
		return 0, err
	}

	return ModExp(g, (q-1)/uint64(order), q), nil
}

// GetTotient returns Euler's totient of n.
func GetTotient(n int) int {
	phi := uint64(n)
	for _, f := range PrimeFactors(uint64(n)) {
		phi -= phi / f
	}
	return int(phi)
}

// GetTotientList returns, in ascending order, the integers in [1, n)
// that are coprime with n.
func GetTotientList(n int) (tList []int) {
	tList = make([]int, 0, n)
	for k := 1; k < n; k++ {
		if utils.GCD(uint64(k), uint64(n)) == 1 {
			tList = append(tList, k)
		}
	}
	return
}

// PolynomialMultiplication computes the product of the polynomials a
// and b seen as coefficient vectors over their common modulus. The
// result has length len(a)+len(b)-1.
func PolynomialMultiplication(a, b *ModularVector) (*ModularVector, error) {

	if a.Modulus != b.Modulus {
		return nil, fmt.Errorf("%w: moduli %d != %d", ErrSizeMismatch, a.Modulus, b.Modulus)
	}

	modulus := a.Modulus
	brc := BRedConstant(modulus)

	result := NewModularVector(a.Len()+b.Len()-1, modulus)
	for i, ai := range a.Values {
		if ai == 0 {
			continue
		}
		for j, bj := range b.Values {
			result.Values[i+j] = CRed(result.Values[i+j]+BRed(ai, bj, modulus, brc), modulus)
		}
	}
	return result, nil
}

// PolyMod returns the remainder of the polynomial division of dividend
// by divisor over the given modulus. The result has length
// len(divisor)-1.
func PolyMod(dividend, divisor *ModularVector, modulus uint64) (*ModularVector, error) {

	dLen := divisor.Len()

	lead := divisor.Values[dLen-1] % modulus
	leadInv, err := ModInverse(lead, modulus)
	if err != nil {
		return nil, fmt.Errorf("%w: leading coefficient %d modulo %d", ErrNotInvertible, lead, modulus)
	}

	brc := BRedConstant(modulus)

	rem := make([]uint64, dividend.Len())
	for i, v := range dividend.Values {
		rem[i] = v % modulus
	}

	for i := len(rem) - 1; i >= dLen-1; i-- {
		c := BRed(rem[i], leadInv, modulus, brc)
		if c == 0 {
			continue
		}
		base := i - (dLen - 1)
		for j := 0; j < dLen; j++ {
			rem[base+j] = submod(rem[base+j], BRed(c, divisor.Values[j]%modulus, modulus, brc), modulus)
		}
	}

	result := NewModularVector(dLen-1, modulus)
	copy(result.Values, rem)
	return result, nil
}

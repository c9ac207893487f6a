package ring

import (
	"fmt"
	"math/bits"

	"github.com/pimfhe/pimring/utils"
)

// This file implements the radix-2 number theoretic transform in three
// flavors:
//
//   - ForwardTransformIterative / InverseTransformIterative: textbook
//     iterative NTT with an explicit bit-reversal permutation of the
//     input and a root table in standard (consecutive powers) ordering.
//     Used as the convolution engine of the Bluestein transform.
//
//   - ForwardTransformToBitReverse / InverseTransformFromBitReverse:
//     Cooley-Tukey (decimation in time) forward transform producing
//     bit-reversed output, and Gentleman-Sande (decimation in frequency)
//     inverse transform consuming bit-reversed input. Root tables are in
//     bit-reversed ordering. Barrett reduction.
//
//   - The Precon variants of the above, using the precomputed-constant
//     (Shoup) modular multiplication. The inverse folds the scaling by
//     n^-1 of half the coefficients into its final butterfly stage.
//
// All butterflies keep coefficients in the canonical range [0, q-1].

// ForwardTransformIterative computes the forward NTT of element using a
// root table in standard ordering, into result. Both vectors must have
// the same power-of-two length.
func ForwardTransformIterative(element *ModularVector, rootTable []uint64, result *ModularVector) error {
	n := element.Len()
	if result.Len() != n {
		return fmt.Errorf("%w: input length %d != output length %d", ErrLengthMismatch, n, result.Len())
	}
	if utils.Alias1D(element.Values, result.Values) {
		return fmt.Errorf("input and output cannot share the same base array")
	}

	modulus := element.Modulus
	brc := BRedConstant(modulus)
	result.Modulus = modulus

	msb := uint64(bits.Len64(uint64(n - 1)))
	for i := 0; i < n; i++ {
		result.Values[i] = element.Values[utils.BitReverse64(uint64(i), msb)]
	}

	logn := int(msb)
	for logm := 1; logm <= logn; logm++ {
		half := 1 << (logm - 1)
		for j := 0; j < n; j += 1 << logm {
			for i := 0; i < half; i++ {
				omega := rootTable[i<<(logn-logm)]
				indexEven := j + i
				indexOdd := indexEven + half

				omegaFactor := BRed(omega, result.Values[indexOdd], modulus, brc)
				evenVal := result.Values[indexEven]

				result.Values[indexEven] = CRed(evenVal+omegaFactor, modulus)
				result.Values[indexOdd] = submod(evenVal, omegaFactor, modulus)
			}
		}
	}
	return nil
}

// InverseTransformIterative computes the inverse NTT of element using
// the inverse root table in standard ordering, into result. The output
// is scaled by n^-1 mod q.
func InverseTransformIterative(element *ModularVector, rootTableInverse []uint64, result *ModularVector) error {
	n := element.Len()
	modulus := element.Modulus

	if err := ForwardTransformIterative(element, rootTableInverse, result); err != nil {
		return err
	}

	nInv, err := ModInverse(uint64(n), modulus)
	if err != nil {
		return fmt.Errorf("%w: transform length %d modulo %d", ErrNotInvertible, n, modulus)
	}

	brc := BRedConstant(modulus)
	for i := 0; i < n; i++ {
		result.Values[i] = BRed(result.Values[i], nInv, modulus, brc)
	}
	return nil
}

// ForwardTransformToBitReverseInPlace computes the Cooley-Tukey forward
// NTT of element in place. The input is in standard ordering, the output
// in bit-reversed ordering, and rootTable holds the roots of unity in
// bit-reversed ordering.
func ForwardTransformToBitReverseInPlace(rootTable []uint64, element *ModularVector) {
	n := element.Len()
	modulus := element.Modulus
	brc := BRedConstant(modulus)
	values := element.Values

	t := n >> 1
	logt := bits.Len64(uint64(t))
	for m := 1; m < n; m <<= 1 {
		for i := 0; i < m; i++ {
			j1 := i << logt
			j2 := j1 + t
			omega := rootTable[m+i]
			for indexLo := j1; indexLo < j2; indexLo++ {
				indexHi := indexLo + t
				loVal := values[indexLo]
				omegaFactor := BRed(values[indexHi], omega, modulus, brc)

				values[indexLo] = CRed(loVal+omegaFactor, modulus)
				values[indexHi] = submod(loVal, omegaFactor, modulus)
			}
		}
		t >>= 1
		logt--
	}
}

// ForwardTransformToBitReverse computes the Cooley-Tukey forward NTT of
// element into result. Butterflies with a zero odd operand skip the
// twiddle multiplication, which makes the transform cheap on sparse
// (zero-padded) inputs.
func ForwardTransformToBitReverse(element *ModularVector, rootTable []uint64, result *ModularVector) error {
	n := element.Len()
	if result.Len() != n {
		return fmt.Errorf("%w: input length %d != output length %d", ErrLengthMismatch, n, result.Len())
	}

	modulus := element.Modulus
	brc := BRedConstant(modulus)
	result.Modulus = modulus
	values := result.Values
	copy(values, element.Values)

	t := n >> 1
	logt := bits.Len64(uint64(t))
	for m := 1; m < n; m <<= 1 {
		for i := 0; i < m; i++ {
			j1 := i << logt
			j2 := j1 + t
			omega := rootTable[m+i]
			for indexLo := j1; indexLo < j2; indexLo++ {
				indexHi := indexLo + t
				loVal := values[indexLo]
				if omegaFactor := values[indexHi]; omegaFactor != 0 {
					omegaFactor = BRed(omegaFactor, omega, modulus, brc)
					values[indexLo] = CRed(loVal+omegaFactor, modulus)
					values[indexHi] = submod(loVal, omegaFactor, modulus)
				} else {
					values[indexHi] = loVal
				}
			}
		}
		t >>= 1
		logt--
	}
	return nil
}

// ForwardTransformToBitReversePreconInPlace is the precomputed-constant
// variant of ForwardTransformToBitReverseInPlace. preconRootTable holds
// the Shoup constants of rootTable. The final stage is peeled off.
func ForwardTransformToBitReversePreconInPlace(rootTable, preconRootTable []uint64, element *ModularVector) {
	modulus := element.Modulus
	values := element.Values
	n := element.Len() >> 1

	t := n
	logt := bits.Len64(uint64(t))
	for m := 1; m < n; m <<= 1 {
		for i := 0; i < m; i++ {
			omega := rootTable[i+m]
			preconOmega := preconRootTable[i+m]
			for j1, j2 := i<<logt, i<<logt+t; j1 < j2; j1++ {
				omegaFactor := SRed(values[j1+t], omega, modulus, preconOmega)
				loVal := values[j1]
				values[j1] = CRed(loVal+omegaFactor, modulus)
				values[j1+t] = submod(loVal, omegaFactor, modulus)
			}
		}
		t >>= 1
		logt--
	}

	// peeled off last stage
	for i := 0; i < n<<1; i += 2 {
		omegaFactor := SRed(values[i+1], rootTable[(i>>1)+n], modulus, preconRootTable[(i>>1)+n])
		loVal := values[i]
		values[i] = CRed(loVal+omegaFactor, modulus)
		values[i+1] = submod(loVal, omegaFactor, modulus)
	}
}

// ForwardTransformToBitReversePrecon computes the precomputed-constant
// Cooley-Tukey forward NTT of element into result, with the zero-operand
// skip of ForwardTransformToBitReverse.
func ForwardTransformToBitReversePrecon(element *ModularVector, rootTable, preconRootTable []uint64, result *ModularVector) error {
	n := element.Len()
	if result.Len() != n {
		return fmt.Errorf("%w: input length %d != output length %d", ErrLengthMismatch, n, result.Len())
	}

	modulus := element.Modulus
	result.Modulus = modulus
	values := result.Values
	copy(values, element.Values)

	t := n >> 1
	logt := bits.Len64(uint64(t))
	for m := 1; m < n; m <<= 1 {
		for i := 0; i < m; i++ {
			j1 := i << logt
			j2 := j1 + t
			omega := rootTable[m+i]
			preconOmega := preconRootTable[m+i]
			for indexLo := j1; indexLo < j2; indexLo++ {
				indexHi := indexLo + t
				loVal := values[indexLo]
				if omegaFactor := values[indexHi]; omegaFactor != 0 {
					omegaFactor = SRed(omegaFactor, omega, modulus, preconOmega)
					values[indexLo] = CRed(loVal+omegaFactor, modulus)
					values[indexHi] = submod(loVal, omegaFactor, modulus)
				} else {
					values[indexHi] = loVal
				}
			}
		}
		t >>= 1
		logt--
	}
	return nil
}

// InverseTransformFromBitReverseInPlace computes the Gentleman-Sande
// inverse NTT of element in place. The input is in bit-reversed
// ordering, the output in standard ordering scaled by cycloOrderInv =
// n^-1 mod q. rootTableInverse holds the inverse roots of unity in
// bit-reversed ordering.
func InverseTransformFromBitReverseInPlace(rootTableInverse []uint64, cycloOrderInv uint64, element *ModularVector) {
	n := element.Len()
	modulus := element.Modulus
	brc := BRedConstant(modulus)
	values := element.Values

	t := 1
	logt := 1
	for m := n >> 1; m >= 1; m >>= 1 {
		for i := 0; i < m; i++ {
			j1 := i << logt
			j2 := j1 + t
			omega := rootTableInverse[m+i]
			for indexLo := j1; indexLo < j2; indexLo++ {
				indexHi := indexLo + t
				hiVal := values[indexHi]
				loVal := values[indexLo]

				values[indexLo] = CRed(loVal+hiVal, modulus)
				values[indexHi] = BRed(submod(loVal, hiVal, modulus), omega, modulus, brc)
			}
		}
		t <<= 1
		logt++
	}

	for i := 0; i < n; i++ {
		values[i] = BRed(values[i], cycloOrderInv, modulus, brc)
	}
}

// InverseTransformFromBitReverse computes the Gentleman-Sande inverse
// NTT of element into result.
func InverseTransformFromBitReverse(element *ModularVector, rootTableInverse []uint64, cycloOrderInv uint64, result *ModularVector) error {
	n := element.Len()
	if result.Len() != n {
		return fmt.Errorf("%w: input length %d != output length %d", ErrLengthMismatch, n, result.Len())
	}
	result.Modulus = element.Modulus
	copy(result.Values, element.Values)
	InverseTransformFromBitReverseInPlace(rootTableInverse, cycloOrderInv, result)
	return nil
}

// InverseTransformFromBitReversePreconInPlace is the precomputed-constant
// variant of InverseTransformFromBitReverseInPlace. The first and last
// butterfly stages are peeled off, and the scaling by n^-1 of half the
// coefficients is folded into the twiddle of the final stage.
func InverseTransformFromBitReversePreconInPlace(rootTableInverse, preconRootTableInverse []uint64, cycloOrderInv, preconCycloOrderInv uint64, element *ModularVector) {
	modulus := element.Modulus
	values := element.Values
	n := element.Len()

	// A length-1 vector has no butterfly stages, only the n^-1 scaling.
	if n == 1 {
		values[0] = SRed(values[0], cycloOrderInv, modulus, preconCycloOrderInv)
		return
	}

	// omega[bitreversed(1)] * n^-1, used by the final stage
	omega1Inv := SRed(rootTableInverse[1], cycloOrderInv, modulus, preconCycloOrderInv)
	preconOmega1Inv := SRedConstant(omega1Inv, modulus)

	if n > 2 {
		// peeled off first stage
		for i := 0; i < n; i += 2 {
			omega := rootTableInverse[(i+n)>>1]
			preconOmega := preconRootTableInverse[(i+n)>>1]
			loVal := values[i]
			hiVal := values[i+1]

			values[i] = CRed(loVal+hiVal, modulus)
			values[i+1] = SRed(submod(loVal, hiVal, modulus), omega, modulus, preconOmega)
		}
	}

	// inner stages
	t := 2
	logt := 2
	for m := n >> 2; m > 1; m >>= 1 {
		for i := 0; i < m; i++ {
			omega := rootTableInverse[i+m]
			preconOmega := preconRootTableInverse[i+m]
			for j1, j2 := i<<logt, i<<logt+t; j1 < j2; j1++ {
				loVal := values[j1]
				hiVal := values[j1+t]

				values[j1] = CRed(loVal+hiVal, modulus)
				values[j1+t] = SRed(submod(loVal, hiVal, modulus), omega, modulus, preconOmega)
			}
		}
		t <<= 1
		logt++
	}

	// final stage, with the scaling of the high half folded into omega1Inv
	j2 := n >> 1
	for j1 := 0; j1 < j2; j1++ {
		loVal := values[j1]
		hiVal := values[j1+j2]

		values[j1] = CRed(loVal+hiVal, modulus)
		values[j1+j2] = SRed(submod(loVal, hiVal, modulus), omega1Inv, modulus, preconOmega1Inv)
	}

	// remaining scalar multiplies by n^-1 on the low half
	for i := 0; i < j2; i++ {
		values[i] = SRed(values[i], cycloOrderInv, modulus, preconCycloOrderInv)
	}
}

// InverseTransformFromBitReversePrecon computes the precomputed-constant
// Gentleman-Sande inverse NTT of element into result.
func InverseTransformFromBitReversePrecon(element *ModularVector, rootTableInverse, preconRootTableInverse []uint64, cycloOrderInv, preconCycloOrderInv uint64, result *ModularVector) error {
	n := element.Len()
	if result.Len() != n {
		return fmt.Errorf("%w: input length %d != output length %d", ErrLengthMismatch, n, result.Len())
	}
	result.Modulus = element.Modulus
	copy(result.Values, element.Values)
	InverseTransformFromBitReversePreconInPlace(rootTableInverse, preconRootTableInverse, cycloOrderInv, preconCycloOrderInv, result)
	return nil
}

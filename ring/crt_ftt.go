package ring

import (
	"fmt"
	"math/bits"

	"github.com/pimfhe/pimring/utils"
)

// fttTables holds the per-modulus precomputations of the power-of-two
// transform: the forward and inverse roots of unity in bit-reversed
// ordering, their Shoup constants, and the inverses of the powers of
// two up to the transform length.
type fttTables struct {
	cycloOrderHf        int
	roots               []uint64
	rootsInverse        []uint64
	preconRoots         []uint64
	preconRootsInverse  []uint64
	cycloOrderInv       []uint64
	preconCycloOrderInv []uint64
}

// ChineseRemainderTransformFTT is the negacyclic number theoretic
// transform over power-of-two cyclotomic rings. Precomputed tables are
// cached per modulus; the first call for a modulus (or a call with a
// different transform length) builds them.
type ChineseRemainderTransformFTT struct {
	tables *onceMap[uint64, *fttTables]
}

// NewChineseRemainderTransformFTT creates an empty transform cache.
func NewChineseRemainderTransformFTT() *ChineseRemainderTransformFTT {
	return &ChineseRemainderTransformFTT{tables: newOnceMap[uint64, *fttTables]()}
}

func isPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// PreCompute builds (or rebuilds) the tables for the given modulus,
// using rootOfUnity as the primitive CycloOrder-th root of unity.
func (c *ChineseRemainderTransformFTT) PreCompute(rootOfUnity uint64, cycloOrder int, modulus uint64) error {
	if !isPowerOfTwo(cycloOrder) {
		return fmt.Errorf("%w: %d is not a power of two", ErrInvalidCyclotomicOrder, cycloOrder)
	}
	_, err := c.getTables(rootOfUnity, cycloOrder, modulus)
	return err
}

func (c *ChineseRemainderTransformFTT) getTables(rootOfUnity uint64, cycloOrder int, modulus uint64) (*fttTables, error) {
	cycloOrderHf := cycloOrder >> 1
	return c.tables.getOrCompute(modulus,
		func(t *fttTables) bool { return t.cycloOrderHf != cycloOrderHf },
		func() (*fttTables, error) {
			return newFTTTables(rootOfUnity, cycloOrder, modulus)
		})
}

func newFTTTables(rootOfUnity uint64, cycloOrder int, modulus uint64) (*fttTables, error) {

	cycloOrderHf := cycloOrder >> 1
	msb := bits.Len64(uint64(cycloOrderHf - 1))
	brc := BRedConstant(modulus)

	rootOfUnityInverse, err := ModInverse(rootOfUnity, modulus)
	if err != nil {
		return nil, fmt.Errorf("%w: root of unity %d modulo %d", ErrNotInvertible, rootOfUnity, modulus)
	}

	t := &fttTables{
		cycloOrderHf:        cycloOrderHf,
		roots:               make([]uint64, cycloOrderHf),
		rootsInverse:        make([]uint64, cycloOrderHf),
		preconRoots:         make([]uint64, cycloOrderHf),
		preconRootsInverse:  make([]uint64, cycloOrderHf),
		cycloOrderInv:       make([]uint64, msb+1),
		preconCycloOrderInv: make([]uint64, msb+1),
	}

	// roots at bit-reversed indices, by repeated multiplication
	x, xInv := uint64(1), uint64(1)
	for i := 0; i < cycloOrderHf; i++ {
		iinv := utils.BitReverse64(uint64(i), uint64(msb))
		t.roots[iinv] = x
		t.rootsInverse[iinv] = xInv
		x = BRed(x, rootOfUnity, modulus, brc)
		xInv = BRed(xInv, rootOfUnityInverse, modulus, brc)
	}

	for i := 0; i < msb+1; i++ {
		if t.cycloOrderInv[i], err = ModInverse(uint64(1)<<i, modulus); err != nil {
			return nil, fmt.Errorf("%w: power of two 2^%d modulo %d", ErrNotInvertible, i, modulus)
		}
		t.preconCycloOrderInv[i] = SRedConstant(t.cycloOrderInv[i], modulus)
	}

	for i := 0; i < cycloOrderHf; i++ {
		t.preconRoots[i] = SRedConstant(t.roots[i], modulus)
		t.preconRootsInverse[i] = SRedConstant(t.rootsInverse[i], modulus)
	}

	return t, nil
}

// ForwardTransformToBitReverse computes the forward negacyclic NTT of
// element, of length CycloOrder/2, into a new vector in bit-reversed
// ordering. A root of unity of 0 or 1 makes the transform the identity.
func (c *ChineseRemainderTransformFTT) ForwardTransformToBitReverse(element *ModularVector, rootOfUnity uint64, cycloOrder int) (*ModularVector, error) {
	if rootOfUnity == 0 || rootOfUnity == 1 {
		return element.CopyNew(), nil
	}
	result := element.CopyNew()
	if err := c.ForwardTransformToBitReverseInPlace(rootOfUnity, cycloOrder, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ForwardTransformToBitReverseInPlace computes the forward negacyclic
// NTT of element in place.
func (c *ChineseRemainderTransformFTT) ForwardTransformToBitReverseInPlace(rootOfUnity uint64, cycloOrder int, element *ModularVector) error {
	if rootOfUnity == 0 || rootOfUnity == 1 {
		return nil
	}
	if !isPowerOfTwo(cycloOrder) {
		return fmt.Errorf("%w: %d is not a power of two", ErrInvalidCyclotomicOrder, cycloOrder)
	}
	if element.Len() != cycloOrder>>1 {
		return fmt.Errorf("%w: element length %d != CycloOrder/2 = %d", ErrLengthMismatch, element.Len(), cycloOrder>>1)
	}

	t, err := c.getTables(rootOfUnity, cycloOrder, element.Modulus)
	if err != nil {
		return err
	}

	ForwardTransformToBitReversePreconInPlace(t.roots, t.preconRoots, element)
	return nil
}

// InverseTransformFromBitReverse computes the inverse negacyclic NTT of
// element, in bit-reversed ordering, into a new vector in standard
// ordering. A root of unity of 0 or 1 makes the transform the identity.
func (c *ChineseRemainderTransformFTT) InverseTransformFromBitReverse(element *ModularVector, rootOfUnity uint64, cycloOrder int) (*ModularVector, error) {
	if rootOfUnity == 0 || rootOfUnity == 1 {
		return element.CopyNew(), nil
	}
	result := element.CopyNew()
	if err := c.InverseTransformFromBitReverseInPlace(rootOfUnity, cycloOrder, result); err != nil {
		return nil, err
	}
	return result, nil
}

// InverseTransformFromBitReverseInPlace computes the inverse negacyclic
// NTT of element in place.
func (c *ChineseRemainderTransformFTT) InverseTransformFromBitReverseInPlace(rootOfUnity uint64, cycloOrder int, element *ModularVector) error {
	if rootOfUnity == 0 || rootOfUnity == 1 {
		return nil
	}
	if !isPowerOfTwo(cycloOrder) {
		return fmt.Errorf("%w: %d is not a power of two", ErrInvalidCyclotomicOrder, cycloOrder)
	}
	if element.Len() != cycloOrder>>1 {
		return fmt.Errorf("%w: element length %d != CycloOrder/2 = %d", ErrLengthMismatch, element.Len(), cycloOrder>>1)
	}

	t, err := c.getTables(rootOfUnity, cycloOrder, element.Modulus)
	if err != nil {
		return err
	}

	msb := bits.Len64(uint64(t.cycloOrderHf - 1))
	InverseTransformFromBitReversePreconInPlace(
		t.rootsInverse, t.preconRootsInverse,
		t.cycloOrderInv[msb], t.preconCycloOrderInv[msb],
		element)
	return nil
}

// Reset drops all cached tables. Subsequent transforms rebuild them.
func (c *ChineseRemainderTransformFTT) Reset() {
	c.tables.reset()
}

package ring

import (
	"fmt"
	"math/bits"
)

// ModulusRoot identifies a (modulus, root of unity) pair.
type ModulusRoot struct {
	Modulus uint64
	Root    uint64
}

// ModulusRootPair pairs the working (modulus, root) of a Bluestein
// transform with the (modulus, root) of its auxiliary convolution NTT.
type ModulusRootPair struct {
	ModulusRoot    ModulusRoot
	NTTModulusRoot ModulusRoot
}

// bluesteinNTTTables holds the standard-ordering forward and inverse
// root power tables of the auxiliary convolution NTT.
type bluesteinNTTTables struct {
	rootTable        []uint64
	rootTableInverse []uint64
}

// BluesteinFFT computes the discrete transform of arbitrary (non
// power-of-two) length n over Z_q via the chirp transform: the length-n
// DFT is rewritten as a linear convolution of length 2n-1, which is
// evaluated with a power-of-two NTT over an auxiliary prime large
// enough to hold the un-reduced convolution.
//
// All precomputed tables are cached per key and built lazily: a
// transform call triggers between zero and three precomputation passes.
type BluesteinFFT struct {
	nttTables             *onceMap[ModulusRoot, *bluesteinNTTTables]
	powers                *onceMap[ModulusRoot, *ModularVector]
	rb                    *onceMap[ModulusRootPair, *ModularVector]
	defaultNTTModulusRoot *onceMap[uint64, ModulusRoot]
}

// NewBluesteinFFT creates an empty transform cache.
func NewBluesteinFFT() *BluesteinFFT {
	return &BluesteinFFT{
		nttTables:             newOnceMap[ModulusRoot, *bluesteinNTTTables](),
		powers:                newOnceMap[ModulusRoot, *ModularVector](),
		rb:                    newOnceMap[ModulusRootPair, *ModularVector](),
		defaultNTTModulusRoot: newOnceMap[uint64, ModulusRoot](),
	}
}

// NTTDim returns the dimension of the auxiliary convolution NTT for a
// length-cycloOrder Bluestein transform: the smallest power of two
// >= 2*cycloOrder-1.
func NTTDim(cycloOrder int) int {
	nttDim := 1
	for nttDim < 2*cycloOrder-1 {
		nttDim <<= 1
	}
	return nttDim
}

// PreComputeDefaultNTTModulusRoot selects and caches, for the given
// working modulus, an auxiliary NTT prime large enough to hold the
// convolution of two vectors of residues modulo modulus, along with a
// root of unity of order NTTDim(cycloOrder), and builds the associated
// root tables.
func (b *BluesteinFFT) PreComputeDefaultNTTModulusRoot(cycloOrder int, modulus uint64) error {

	nttModulusRoot, err := b.defaultNTTModulusRootFor(cycloOrder, modulus)
	if err != nil {
		return err
	}

	return b.PreComputeRootTableForNTT(cycloOrder, nttModulusRoot)
}

func (b *BluesteinFFT) defaultNTTModulusRootFor(cycloOrder int, modulus uint64) (ModulusRoot, error) {

	return b.defaultNTTModulusRoot.getOrCompute(modulus, nil, func() (ModulusRoot, error) {

		nttDim := NTTDim(cycloOrder)
		logQ := bits.Len64(uint64(nttDim-1)) + 2*bits.Len64(modulus)

		nttModulus, err := LastPrime(logQ, uint64(nttDim))
		if err != nil {
			return ModulusRoot{}, fmt.Errorf("auxiliary NTT modulus for modulus %d: %w", modulus, err)
		}

		nttRoot, err := RootOfUnity(nttDim, nttModulus)
		if err != nil {
			return ModulusRoot{}, err
		}

		return ModulusRoot{Modulus: nttModulus, Root: nttRoot}, nil
	})
}

// PreComputeRootTableForNTT builds and caches the standard-ordering
// forward and inverse root power tables of the auxiliary NTT.
func (b *BluesteinFFT) PreComputeRootTableForNTT(cycloOrder int, nttModulusRoot ModulusRoot) error {
	_, err := b.nttTablesFor(cycloOrder, nttModulusRoot)
	return err
}

func (b *BluesteinFFT) nttTablesFor(cycloOrder int, nttModulusRoot ModulusRoot) (*bluesteinNTTTables, error) {

	nttDimHf := NTTDim(cycloOrder) >> 1

	return b.nttTables.getOrCompute(nttModulusRoot,
		func(t *bluesteinNTTTables) bool { return len(t.rootTable) < nttDimHf },
		func() (*bluesteinNTTTables, error) {

			nttModulus := nttModulusRoot.Modulus
			root := nttModulusRoot.Root

			rootInv, err := ModInverse(root, nttModulus)
			if err != nil {
				return nil, fmt.Errorf("%w: auxiliary NTT root %d modulo %d", ErrNotInvertible, root, nttModulus)
			}

			brc := BRedConstant(nttModulus)

			t := &bluesteinNTTTables{
				rootTable:        make([]uint64, nttDimHf),
				rootTableInverse: make([]uint64, nttDimHf),
			}

			x := uint64(1)
			for i := 0; i < nttDimHf; i++ {
				t.rootTable[i] = x
				x = BRed(x, root, nttModulus, brc)
			}

			x = 1
			for i := 0; i < nttDimHf; i++ {
				t.rootTableInverse[i] = x
				x = BRed(x, rootInv, nttModulus, brc)
			}

			return t, nil
		})
}

// PreComputePowers builds and caches the chirp table root^(i^2 mod 2n)
// for i in [0, n).
func (b *BluesteinFFT) PreComputePowers(cycloOrder int, modulusRoot ModulusRoot) error {
	_, err := b.powersFor(cycloOrder, modulusRoot)
	return err
}

func (b *BluesteinFFT) powersFor(cycloOrder int, modulusRoot ModulusRoot) (*ModularVector, error) {

	return b.powers.getOrCompute(modulusRoot,
		func(p *ModularVector) bool { return p.Len() != cycloOrder },
		func() (*ModularVector, error) {

			modulus := modulusRoot.Modulus
			root := modulusRoot.Root

			powers := NewModularVector(cycloOrder, modulus)
			powers.Values[0] = 1
			for i := 1; i < cycloOrder; i++ {
				iSqr := (uint64(i) * uint64(i)) % uint64(2*cycloOrder)
				powers.Values[i] = ModExp(root, iSqr, modulus)
			}

			return powers, nil
		})
}

// PreComputeRBTable builds and caches the forward NTT of the reversed
// chirp kernel, zero-padded to the auxiliary NTT dimension.
func (b *BluesteinFFT) PreComputeRBTable(cycloOrder int, modulusRootPair ModulusRootPair) error {
	_, err := b.rbFor(cycloOrder, modulusRootPair)
	return err
}

func (b *BluesteinFFT) rbFor(cycloOrder int, modulusRootPair ModulusRootPair) (*ModularVector, error) {

	nttDim := NTTDim(cycloOrder)

	return b.rb.getOrCompute(modulusRootPair,
		func(rb *ModularVector) bool { return rb.Len() != nttDim },
		func() (*ModularVector, error) {

			modulus := modulusRootPair.ModulusRoot.Modulus
			root := modulusRootPair.ModulusRoot.Root
			nttModulusRoot := modulusRootPair.NTTModulusRoot

			rootInv, err := ModInverse(root, modulus)
			if err != nil {
				return nil, fmt.Errorf("%w: root %d modulo %d", ErrNotInvertible, root, modulus)
			}

			tables, err := b.nttTablesFor(cycloOrder, nttModulusRoot)
			if err != nil {
				return nil, err
			}

			bv := NewModularVector(2*cycloOrder-1, modulus)
			bv.Values[cycloOrder-1] = 1
			for i := 1; i < cycloOrder; i++ {
				iSqr := (uint64(i) * uint64(i)) % uint64(2*cycloOrder)
				val := ModExp(rootInv, iSqr, modulus)
				bv.Values[cycloOrder-1+i] = val
				bv.Values[cycloOrder-1-i] = val
			}

			rbPadded := bv.PadZeros(nttDim)
			rbPadded.SetModulus(nttModulusRoot.Modulus)

			rb := NewModularVector(nttDim, nttModulusRoot.Modulus)
			if err := ForwardTransformIterative(rbPadded, tables.rootTable, rb); err != nil {
				return nil, err
			}

			return rb, nil
		})
}

// ForwardTransform computes the length-cycloOrder Bluestein transform
// of element with the cached default auxiliary NTT modulus of the
// element's modulus, selecting it first if necessary.
func (b *BluesteinFFT) ForwardTransform(element *ModularVector, root uint64, cycloOrder int) (*ModularVector, error) {

	nttModulusRoot, err := b.defaultNTTModulusRootFor(cycloOrder, element.Modulus)
	if err != nil {
		return nil, err
	}

	return b.ForwardTransformWithNTTModulusRoot(element, root, cycloOrder, nttModulusRoot)
}

// ForwardTransformWithNTTModulusRoot computes the length-cycloOrder
// Bluestein transform of element with an explicit auxiliary NTT
// (modulus, root). Missing tables are built on the fly.
func (b *BluesteinFFT) ForwardTransformWithNTTModulusRoot(element *ModularVector, root uint64, cycloOrder int, nttModulusRoot ModulusRoot) (*ModularVector, error) {

	if element.Len() != cycloOrder {
		return nil, fmt.Errorf("%w: element length %d != cyclotomic order %d", ErrLengthMismatch, element.Len(), cycloOrder)
	}

	modulus := element.Modulus
	modulusRoot := ModulusRoot{Modulus: modulus, Root: root}
	modulusRootPair := ModulusRootPair{ModulusRoot: modulusRoot, NTTModulusRoot: nttModulusRoot}

	powers, err := b.powersFor(cycloOrder, modulusRoot)
	if err != nil {
		return nil, err
	}

	tables, err := b.nttTablesFor(cycloOrder, nttModulusRoot)
	if err != nil {
		return nil, err
	}

	rb, err := b.rbFor(cycloOrder, modulusRootPair)
	if err != nil {
		return nil, err
	}

	// x_i = a_i * root^(i^2 mod 2n)
	x, err := element.ModMul(powers)
	if err != nil {
		return nil, err
	}

	nttDim := NTTDim(cycloOrder)
	nttModulus := nttModulusRoot.Modulus

	ra := x.PadZeros(nttDim)
	ra.SetModulus(nttModulus)

	raNTT := NewModularVector(nttDim, nttModulus)
	if err := ForwardTransformIterative(ra, tables.rootTable, raNTT); err != nil {
		return nil, err
	}

	rc, err := raNTT.ModMul(rb)
	if err != nil {
		return nil, err
	}

	rcInv := NewModularVector(nttDim, nttModulus)
	if err := InverseTransformIterative(rc, tables.rootTableInverse, rcInv); err != nil {
		return nil, err
	}

	// the middle window [n-1, 2n-2] of the convolution holds the transform
	result := rcInv.Slice(cycloOrder-1, 2*cycloOrder-1)
	result.SetModulus(modulus)

	return result.ModMul(powers)
}

// Reset drops all cached tables. Subsequent transforms rebuild them.
func (b *BluesteinFFT) Reset() {
	b.nttTables.reset()
	b.powers.reset()
	b.rb.reset()
	b.defaultNTTModulusRoot.reset()
}

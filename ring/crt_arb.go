package ring

import (
	"fmt"
	"sync"
)

// arbDivisionTables holds, for one working modulus, the precomputations
// of the NTT-based polynomial division used by the inverse drop step:
// the division NTT parameters and root tables, and the forward NTTs of
// the cyclotomic polynomial and of its reversed inverse.
type arbDivisionTables struct {
	dim                 int
	nttModulus          uint64
	nttRoot             uint64
	rootTable           []uint64
	rootTableInverse    []uint64
	cycloPolyNTT        *ModularVector
	cycloPolyReverseNTT *ModularVector
}

// ChineseRemainderTransformArb is the Chinese remainder transform over
// arbitrary (non power-of-two) cyclotomic rings. Vectors of length
// phi(m) are padded to length m, sent through a Bluestein transform,
// and the entries at indices coprime with m are kept. The inverse
// reduces the result modulo the m-th cyclotomic polynomial.
type ChineseRemainderTransformArb struct {
	bluestein *BluesteinFFT

	mu              sync.RWMutex
	cyclotomicPolys map[uint64]*ModularVector

	division *onceMap[uint64, *arbDivisionTables]
}

// NewChineseRemainderTransformArb creates an empty transform cache with
// its own BluesteinFFT.
func NewChineseRemainderTransformArb() *ChineseRemainderTransformArb {
	return &ChineseRemainderTransformArb{
		bluestein:       NewBluesteinFFT(),
		cyclotomicPolys: make(map[uint64]*ModularVector),
		division:        newOnceMap[uint64, *arbDivisionTables](),
	}
}

// Bluestein returns the underlying BluesteinFFT.
func (c *ChineseRemainderTransformArb) Bluestein() *BluesteinFFT {
	return c.bluestein
}

// SetCyclotomicPolynomial registers the cyclotomic polynomial to reduce
// by for the given modulus.
func (c *ChineseRemainderTransformArb) SetCyclotomicPolynomial(poly *ModularVector, modulus uint64) {
	c.mu.Lock()
	c.cyclotomicPolys[modulus] = poly.CopyNew()
	c.mu.Unlock()
}

func (c *ChineseRemainderTransformArb) cyclotomicPolynomial(modulus uint64) (*ModularVector, error) {
	c.mu.RLock()
	poly := c.cyclotomicPolys[modulus]
	c.mu.RUnlock()
	if poly == nil {
		return nil, fmt.Errorf("no cyclotomic polynomial registered for modulus %d", modulus)
	}
	return poly, nil
}

// PreCompute selects the default auxiliary NTT modulus and root for the
// given cyclotomic order and working modulus, and builds the associated
// Bluestein tables.
func (c *ChineseRemainderTransformArb) PreCompute(cycloOrder int, modulus uint64) error {
	return c.bluestein.PreComputeDefaultNTTModulusRoot(cycloOrder, modulus)
}

// SetPreComputedNTTModulus builds the Bluestein root tables for an
// explicit auxiliary NTT modulus and root.
func (c *ChineseRemainderTransformArb) SetPreComputedNTTModulus(cycloOrder int, nttModulus, nttRoot uint64) error {
	return c.bluestein.PreComputeRootTableForNTT(cycloOrder, ModulusRoot{Modulus: nttModulus, Root: nttRoot})
}

func ceilPow2(x int) int {
	p := 1
	for p < x {
		p <<= 1
	}
	return p
}

// SetPreComputedNTTDivisionModulus builds the tables of the NTT-based
// division by the cyclotomic polynomial: a smaller NTT of dimension
// 2*2^ceil(log2(m-phi(m))) over nttMod, whose root is derived from
// nttRootBig, along with the forward NTTs of the cyclotomic polynomial
// and of its inverse with reversed coefficients.
// Requires the cyclotomic polynomial of modulus to be registered.
func (c *ChineseRemainderTransformArb) SetPreComputedNTTDivisionModulus(cycloOrder int, modulus, nttMod, nttRootBig uint64) error {
	_, err := c.divisionFor(cycloOrder, modulus, nttMod, nttRootBig)
	return err
}

func (c *ChineseRemainderTransformArb) divisionFor(cycloOrder int, modulus, nttMod, nttRootBig uint64) (*arbDivisionTables, error) {

	n := GetTotient(cycloOrder)
	power := cycloOrder - n
	dim := 2 * ceilPow2(power)

	return c.division.getOrCompute(modulus,
		func(t *arbDivisionTables) bool { return t.nttModulus != nttMod || t.dim != dim },
		func() (*arbDivisionTables, error) {

			cycloPoly, err := c.cyclotomicPolynomial(modulus)
			if err != nil {
				return nil, err
			}

			nttDimBig := NTTDim(cycloOrder)
			nttRoot := ModExp(nttRootBig%nttMod, uint64(nttDimBig/dim), nttMod)

			rootInv, err := ModInverse(nttRoot, nttMod)
			if err != nil {
				return nil, fmt.Errorf("%w: division NTT root %d modulo %d", ErrNotInvertible, nttRoot, nttMod)
			}

			brc := BRedConstant(nttMod)

			t := &arbDivisionTables{
				dim:              dim,
				nttModulus:       nttMod,
				nttRoot:          nttRoot,
				rootTable:        make([]uint64, dim>>1),
				rootTableInverse: make([]uint64, dim>>1),
			}

			x := uint64(1)
			for i := 0; i < dim>>1; i++ {
				t.rootTable[i] = x
				x = BRed(x, nttRoot, nttMod, brc)
			}
			x = 1
			for i := 0; i < dim>>1; i++ {
				t.rootTableInverse[i] = x
				x = BRed(x, rootInv, nttMod, brc)
			}

			revCPM, err := InversePolyMod(cycloPoly, modulus, power)
			if err != nil {
				return nil, err
			}

			revCPMPadded := revCPM.PadZeros(dim)
			revCPMPadded.SetModulus(nttMod)

			t.cycloPolyReverseNTT = NewModularVector(dim, nttMod)
			if err := ForwardTransformIterative(revCPMPadded, t.rootTable, t.cycloPolyReverseNTT); err != nil {
				return nil, err
			}

			qForward := NewModularVector(dim, nttMod)
			copy(qForward.Values, cycloPoly.Values)

			t.cycloPolyNTT = NewModularVector(dim, nttMod)
			if err := ForwardTransformIterative(qForward, t.rootTable, t.cycloPolyNTT); err != nil {
				return nil, err
			}

			return t, nil
		})
}

// InversePolyMod computes the inverse of cycloPoly modulo x^power with
// the Newton iteration h <- 2h - cycloPoly*h^2, doubling the precision
// at each step.
func InversePolyMod(cycloPoly *ModularVector, modulus uint64, power int) (*ModularVector, error) {

	r := 0
	for 1<<r < power {
		r++
	}

	h := NewModularVector(1, modulus)
	h.Values[0] = 1

	for i := 0; i < r; i++ {
		qDegree := 1 << (i + 1)

		// q = x^qDegree
		q := NewModularVector(qDegree+1, modulus)
		q.Values[qDegree] = 1

		hSquare, err := PolynomialMultiplication(h, h)
		if err != nil {
			return nil, err
		}

		a := h.ModMulScalar(2)
		b, err := PolynomialMultiplication(hSquare, cycloPoly)
		if err != nil {
			return nil, err
		}

		// b = 2h - cycloPoly*h^2
		for j := range b.Values {
			if j < a.Len() {
				b.Values[j] = submod(a.Values[j], b.Values[j], modulus)
			} else {
				b.Values[j] = submod(0, b.Values[j], modulus)
			}
		}

		if h, err = PolyMod(b, q, modulus); err != nil {
			return nil, err
		}
	}

	result := NewModularVector(power, modulus)
	copy(result.Values, h.Values)
	return result, nil
}

// ForwardTransform evaluates element, of length phi(cycloOrder), at the
// primitive cycloOrder-th roots of unity of its modulus.
func (c *ChineseRemainderTransformArb) ForwardTransform(element *ModularVector, root, nttModulus, nttRoot uint64, cycloOrder int) (*ModularVector, error) {

	phim := GetTotient(cycloOrder)
	if element.Len() != phim {
		return nil, fmt.Errorf("%w: element length %d != phi(%d) = %d", ErrLengthMismatch, element.Len(), cycloOrder, phim)
	}

	nttModulusRoot := ModulusRoot{Modulus: nttModulus, Root: nttRoot}

	inputToBluestein := c.Pad(element, cycloOrder, true)

	outputBluestein, err := c.bluestein.ForwardTransformWithNTTModulusRoot(inputToBluestein, root, cycloOrder, nttModulusRoot)
	if err != nil {
		return nil, err
	}

	return c.Drop(outputBluestein, cycloOrder, true, nttModulus, nttRoot)
}

// InverseTransform interpolates element, of length phi(cycloOrder),
// back to coefficients, reducing modulo the cyclotomic polynomial.
func (c *ChineseRemainderTransformArb) InverseTransform(element *ModularVector, root, nttModulus, nttRoot uint64, cycloOrder int) (*ModularVector, error) {

	phim := GetTotient(cycloOrder)
	if element.Len() != phim {
		return nil, fmt.Errorf("%w: element length %d != phi(%d) = %d", ErrLengthMismatch, element.Len(), cycloOrder, phim)
	}

	modulus := element.Modulus

	rootInverse, err := ModInverse(root, modulus)
	if err != nil {
		return nil, fmt.Errorf("%w: root %d modulo %d", ErrNotInvertible, root, modulus)
	}

	nttModulusRoot := ModulusRoot{Modulus: nttModulus, Root: nttRoot}

	inputToBluestein := c.Pad(element, cycloOrder, false)

	outputBluestein, err := c.bluestein.ForwardTransformWithNTTModulusRoot(inputToBluestein, rootInverse, cycloOrder, nttModulusRoot)
	if err != nil {
		return nil, err
	}

	cycloOrderInverse, err := ModInverse(uint64(cycloOrder), modulus)
	if err != nil {
		return nil, fmt.Errorf("%w: cyclotomic order %d modulo %d", ErrNotInvertible, cycloOrder, modulus)
	}
	outputBluestein = outputBluestein.ModMulScalar(cycloOrderInverse)

	return c.Drop(outputBluestein, cycloOrder, false, nttModulus, nttRoot)
}

// Pad expands element to length cycloOrder. The forward padding places
// the phi(m) coefficients at the head; the inverse padding scatters
// them onto the indices coprime with cycloOrder.
func (c *ChineseRemainderTransformArb) Pad(element *ModularVector, cycloOrder int, forward bool) *ModularVector {

	n := GetTotient(cycloOrder)
	inputToBluestein := NewModularVector(cycloOrder, element.Modulus)

	if forward {
		copy(inputToBluestein.Values, element.Values[:n])
	} else {
		for i, coprime := range GetTotientList(cycloOrder) {
			inputToBluestein.Values[coprime] = element.Values[i]
		}
	}

	return inputToBluestein
}

// Drop shrinks element back to length phi(cycloOrder). The forward drop
// keeps the evaluations at indices coprime with cycloOrder. The inverse
// drop reduces the polynomial modulo the cyclotomic polynomial, with
// closed forms when cycloOrder is a prime p or twice a prime, and an
// NTT-based division otherwise.
func (c *ChineseRemainderTransformArb) Drop(element *ModularVector, cycloOrder int, forward bool, bigMod, bigRoot uint64) (*ModularVector, error) {

	n := GetTotient(cycloOrder)
	modulus := element.Modulus
	output := NewModularVector(n, modulus)

	if forward {
		for i, coprime := range GetTotientList(cycloOrder) {
			output.Values[i] = element.Values[coprime]
		}
		return output, nil
	}

	switch {
	case n+1 == cycloOrder:
		// cycloOrder is prime: reduce mod Phi_p(x) by subtracting the
		// coefficient of x^n from all terms
		coeffN := element.Values[n]
		for i := 0; i < n; i++ {
			output.Values[i] = submod(element.Values[i], coeffN, modulus)
		}

	case (n+1)*2 == cycloOrder:
		// cycloOrder is 2*prime: first reduce mod x^(n+1)+1, i.e.
		// subtract the coefficient of x^(i+n+1) from x^i
		for i := 0; i < n; i++ {
			output.Values[i] = submod(element.Values[i], element.Values[i+n+1], modulus)
		}
		coeffN := submod(element.Values[n], element.Values[2*n+1], modulus)
		// then reduce mod Phi_2(n+1)(x), with alternating signs
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				output.Values[i] = submod(output.Values[i], coeffN, modulus)
			} else {
				output.Values[i] = CRed(output.Values[i]+coeffN, modulus)
			}
		}

	default:
		t, err := c.divisionFor(cycloOrder, modulus, bigMod, bigRoot)
		if err != nil {
			return nil, err
		}

		power := cycloOrder - n

		// numerator of the division, with reversed coefficients
		aPadded := NewModularVector(t.dim, t.nttModulus)
		for i := n; i < element.Len(); i++ {
			aPadded.Values[power-(i-n)-1] = element.Values[i]
		}

		aNTT := NewModularVector(t.dim, t.nttModulus)
		if err := ForwardTransformIterative(aPadded, t.rootTable, aNTT); err != nil {
			return nil, err
		}

		ab, err := aNTT.ModMul(t.cycloPolyReverseNTT)
		if err != nil {
			return nil, err
		}

		a := NewModularVector(t.dim, t.nttModulus)
		if err := InverseTransformIterative(ab, t.rootTableInverse, a); err != nil {
			return nil, err
		}

		quotient := NewModularVector(t.dim, t.nttModulus)
		for i := 0; i < power; i++ {
			quotient.Values[i] = a.Values[i] % modulus
		}

		newQuotient := NewModularVector(t.dim, t.nttModulus)
		if err := ForwardTransformIterative(quotient, t.rootTable, newQuotient); err != nil {
			return nil, err
		}

		if newQuotient, err = newQuotient.ModMul(t.cycloPolyNTT); err != nil {
			return nil, err
		}

		remainder := NewModularVector(t.dim, t.nttModulus)
		if err := InverseTransformIterative(newQuotient, t.rootTableInverse, remainder); err != nil {
			return nil, err
		}
		remainder.SetModulus(modulus)

		for i := 0; i < n; i++ {
			sub := uint64(0)
			if idx := cycloOrder - 1 - i; idx < remainder.Len() {
				sub = remainder.Values[idx]
			}
			output.Values[i] = submod(element.Values[i], sub, modulus)
		}
	}

	return output, nil
}

// Reset drops all cached tables, including those of the underlying
// BluesteinFFT.
func (c *ChineseRemainderTransformArb) Reset() {
	c.mu.Lock()
	c.cyclotomicPolys = make(map[uint64]*ModularVector)
	c.mu.Unlock()
	c.division.reset()
	c.bluestein.Reset()
}

package ring

import (
	"fmt"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pimfhe/pimring/utils"
)

func testStringNQ(opname string, n int, q uint64) string {
	return fmt.Sprintf("%s/N=%d/modulus=%d", opname, n, q)
}

// standardRootTable returns the powers of a primitive n-th root of
// unity in standard ordering, as expected by the iterative transforms.
func standardRootTable(tb testing.TB, n int, q uint64) (fwd, inv []uint64) {
	tb.Helper()
	root, err := RootOfUnity(n, q)
	require.NoError(tb, err)
	rootInv, err := ModInverse(root, q)
	require.NoError(tb, err)
	brc := BRedConstant(q)
	fwd = make([]uint64, n>>1)
	inv = make([]uint64, n>>1)
	fwd[0], inv[0] = 1, 1
	for i := 1; i < n>>1; i++ {
		fwd[i] = BRed(fwd[i-1], root, q, brc)
		inv[i] = BRed(inv[i-1], rootInv, q, brc)
	}
	return
}

// bitReversedRootTable returns the powers of a primitive n-th root of
// unity at bit-reversed indices, as expected by the in-place
// transforms, along with their Shoup constants.
func bitReversedRootTable(tb testing.TB, n int, root, q uint64) (table, precon []uint64) {
	tb.Helper()
	brc := BRedConstant(q)
	table = make([]uint64, n)
	precon = make([]uint64, n)
	bitLen := uint64(bits.Len64(uint64(n - 1)))
	x := uint64(1)
	for i := 0; i < n; i++ {
		table[utils.BitReverse64(uint64(i), bitLen)] = x
		x = BRed(x, root, q, brc)
	}
	for i := range table {
		precon[i] = SRedConstant(table[i], q)
	}
	return
}

func TestIterativeTransformRoundTrip(t *testing.T) {

	var q uint64 = 12289

	for _, n := range []int{16, 256, 1024} {
		t.Run(testStringNQ("Iterative", n, q), func(t *testing.T) {
			fwd, inv := standardRootTable(t, n, q)
			sampler := newTestSampler(t, q)
			p := sampler.ReadNew(n)

			transformed := NewModularVector(n, q)
			require.NoError(t, ForwardTransformIterative(p, fwd, transformed))
			back := NewModularVector(n, q)
			require.NoError(t, InverseTransformIterative(transformed, inv, back))
			require.True(t, p.Equal(back))
		})
	}
}

func TestIterativeTransformConvolution(t *testing.T) {

	const n = 4096
	var q uint64 = 12289

	fwd, inv := standardRootTable(t, n, q)

	// The transform of a cyclic shift multiplies pointwise: x * x^2 = x^3.
	p1 := NewModularVector(n, q)
	p1.Values[1] = 1
	p2 := NewModularVector(n, q)
	p2.Values[2] = 1

	t1 := NewModularVector(n, q)
	require.NoError(t, ForwardTransformIterative(p1, fwd, t1))
	t2 := NewModularVector(n, q)
	require.NoError(t, ForwardTransformIterative(p2, fwd, t2))

	prod, err := t1.ModMul(t2)
	require.NoError(t, err)
	back := NewModularVector(n, q)
	require.NoError(t, InverseTransformIterative(prod, inv, back))

	want := NewModularVector(n, q)
	want.Values[3] = 1
	require.True(t, want.Equal(back))

	t.Run("RandomPolynomials", func(t *testing.T) {

		// Two random polynomials of degree < n/2, so their product
		// fits in n coefficients without wrapping mod x^n - 1.
		sampler := newTestSampler(t, q)
		a := NewModularVector(n, q)
		b := NewModularVector(n, q)
		copy(a.Values, sampler.ReadNew(n/2).Values)
		copy(b.Values, sampler.ReadNew(n/2).Values)

		want := NewModularVector(n, q)
		for i := 0; i < n/2; i++ {
			// a[i]*b[j] < q^2 and there are at most n/2 terms per
			// coefficient, so the accumulator stays below 2^64.
			var acc uint64
			for j := 0; j <= i; j++ {
				acc += a.Values[j] * b.Values[i-j]
			}
			want.Values[i] = acc % q
		}
		for i := n / 2; i < n-1; i++ {
			var acc uint64
			for j := i - n/2 + 1; j < n/2; j++ {
				acc += a.Values[j] * b.Values[i-j]
			}
			want.Values[i] = acc % q
		}

		ta := NewModularVector(n, q)
		require.NoError(t, ForwardTransformIterative(a, fwd, ta))
		tb := NewModularVector(n, q)
		require.NoError(t, ForwardTransformIterative(b, fwd, tb))

		prod, err := ta.ModMul(tb)
		require.NoError(t, err)
		got := NewModularVector(n, q)
		require.NoError(t, InverseTransformIterative(prod, inv, got))
		require.True(t, want.Equal(got))
	})
}

func TestBitReversedTransformRoundTrip(t *testing.T) {

	var q uint64 = 12289

	for _, n := range []int{8, 64, 1024} {

		// Negacyclic transform: roots are powers of a primitive 2n-th
		// root of unity.
		root, err := RootOfUnity(2*n, q)
		require.NoError(t, err)
		rootInv, err := ModInverse(root, q)
		require.NoError(t, err)
		nInv, err := ModInverse(uint64(n), q)
		require.NoError(t, err)

		table, precon := bitReversedRootTable(t, n, root, q)
		tableInv, preconInv := bitReversedRootTable(t, n, rootInv, q)

		sampler := newTestSampler(t, q)
		p := sampler.ReadNew(n)

		t.Run(testStringNQ("Standard", n, q), func(t *testing.T) {
			transformed := NewModularVector(n, q)
			require.NoError(t, ForwardTransformToBitReverse(p, table, transformed))
			back := NewModularVector(n, q)
			require.NoError(t, InverseTransformFromBitReverse(transformed, tableInv, nInv, back))
			require.True(t, p.Equal(back))
		})

		t.Run(testStringNQ("Precon", n, q), func(t *testing.T) {
			transformed := NewModularVector(n, q)
			require.NoError(t, ForwardTransformToBitReversePrecon(p, table, precon, transformed))

			// The Shoup path matches the Barrett path exactly.
			plain := NewModularVector(n, q)
			require.NoError(t, ForwardTransformToBitReverse(p, table, plain))
			require.True(t, plain.Equal(transformed))

			preconNInv := SRedConstant(nInv, q)
			back := NewModularVector(n, q)
			require.NoError(t, InverseTransformFromBitReversePrecon(transformed, tableInv, preconInv, nInv, preconNInv, back))
			require.True(t, p.Equal(back))
		})
	}
}

func TestBitReversedTransformNegacyclic(t *testing.T) {

	const n = 16
	var q uint64 = 12289

	root, err := RootOfUnity(2*n, q)
	require.NoError(t, err)
	rootInv, err := ModInverse(root, q)
	require.NoError(t, err)
	nInv, err := ModInverse(uint64(n), q)
	require.NoError(t, err)

	table, _ := bitReversedRootTable(t, n, root, q)
	tableInv, _ := bitReversedRootTable(t, n, rootInv, q)

	// In the negacyclic ring x^n = -1: x^(n-1) * x^2 = -x.
	p1 := NewModularVector(n, q)
	p1.Values[n-1] = 1
	p2 := NewModularVector(n, q)
	p2.Values[2] = 1

	t1 := NewModularVector(n, q)
	require.NoError(t, ForwardTransformToBitReverse(p1, table, t1))
	t2 := NewModularVector(n, q)
	require.NoError(t, ForwardTransformToBitReverse(p2, table, t2))

	prod, err := t1.ModMul(t2)
	require.NoError(t, err)
	back := NewModularVector(n, q)
	require.NoError(t, InverseTransformFromBitReverse(prod, tableInv, nInv, back))

	want := NewModularVector(n, q)
	want.Values[1] = q - 1
	require.True(t, want.Equal(back))
}

func TestIterativeTransformLengthChecks(t *testing.T) {

	var q uint64 = 12289
	fwd, _ := standardRootTable(t, 16, q)

	p := NewModularVector(16, q)
	short := NewModularVector(8, q)
	require.ErrorIs(t, ForwardTransformIterative(p, fwd, short), ErrLengthMismatch)

	// The permutation pass cannot run on overlapping storage.
	require.Error(t, ForwardTransformIterative(p, fwd, p))
}

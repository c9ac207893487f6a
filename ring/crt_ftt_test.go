package ring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFTTRoundTrip(t *testing.T) {

	var q uint64 = 12289
	c := NewChineseRemainderTransformFTT()

	for _, cycloOrder := range []int{16, 512, 2048} {

		n := cycloOrder >> 1
		root, err := RootOfUnity(cycloOrder, q)
		require.NoError(t, err)

		sampler := newTestSampler(t, q)
		p := sampler.ReadNew(n)

		t.Run(testStringNQ("RoundTrip", n, q), func(t *testing.T) {
			transformed, err := c.ForwardTransformToBitReverse(p, root, cycloOrder)
			require.NoError(t, err)
			require.False(t, p.Equal(transformed))

			back, err := c.InverseTransformFromBitReverse(transformed, root, cycloOrder)
			require.NoError(t, err)
			require.True(t, p.Equal(back))
		})

		t.Run(testStringNQ("InPlaceMatches", n, q), func(t *testing.T) {
			transformed, err := c.ForwardTransformToBitReverse(p, root, cycloOrder)
			require.NoError(t, err)

			inPlace := p.CopyNew()
			require.NoError(t, c.ForwardTransformToBitReverseInPlace(root, cycloOrder, inPlace))
			require.True(t, transformed.Equal(inPlace))

			require.NoError(t, c.InverseTransformFromBitReverseInPlace(root, cycloOrder, inPlace))
			require.True(t, p.Equal(inPlace))
		})
	}
}

func TestFTTMinimalOrder(t *testing.T) {

	// cycloOrder 2 is the degenerate ring Z_q[x]/(x+1): length-1
	// vectors, a single root power, and no butterfly stages.
	var q uint64 = 12289
	c := NewChineseRemainderTransformFTT()

	root, err := RootOfUnity(2, q)
	require.NoError(t, err)
	require.Equal(t, q-1, root)

	p := NewModularVectorFromUint64([]uint64{42}, q)

	transformed, err := c.ForwardTransformToBitReverse(p, root, 2)
	require.NoError(t, err)
	require.True(t, p.Equal(transformed))

	back, err := c.InverseTransformFromBitReverse(transformed, root, 2)
	require.NoError(t, err)
	require.True(t, p.Equal(back))
}

func TestFTTNegacyclicConvolution(t *testing.T) {

	const cycloOrder = 32
	const n = cycloOrder >> 1
	var q uint64 = 12289

	c := NewChineseRemainderTransformFTT()
	root, err := RootOfUnity(cycloOrder, q)
	require.NoError(t, err)

	// x^(n-1) * x = x^n = -1 in the negacyclic ring.
	p1 := NewModularVector(n, q)
	p1.Values[n-1] = 1
	p2 := NewModularVector(n, q)
	p2.Values[1] = 1

	t1, err := c.ForwardTransformToBitReverse(p1, root, cycloOrder)
	require.NoError(t, err)
	t2, err := c.ForwardTransformToBitReverse(p2, root, cycloOrder)
	require.NoError(t, err)

	prod, err := t1.ModMul(t2)
	require.NoError(t, err)
	back, err := c.InverseTransformFromBitReverse(prod, root, cycloOrder)
	require.NoError(t, err)

	want := NewModularVector(n, q)
	want.Values[0] = q - 1
	require.True(t, want.Equal(back))
}

func TestFTTDegenerateRoot(t *testing.T) {

	var q uint64 = 12289
	c := NewChineseRemainderTransformFTT()
	p := NewModularVectorFromUint64([]uint64{1, 2, 3, 4}, q)

	for _, root := range []uint64{0, 1} {
		transformed, err := c.ForwardTransformToBitReverse(p, root, 8)
		require.NoError(t, err)
		require.True(t, p.Equal(transformed))

		back, err := c.InverseTransformFromBitReverse(p, root, 8)
		require.NoError(t, err)
		require.True(t, p.Equal(back))
	}
}

func TestFTTTableRebuild(t *testing.T) {

	const cycloOrder = 64
	var q uint64 = 12289

	c := NewChineseRemainderTransformFTT()
	root, err := RootOfUnity(cycloOrder, q)
	require.NoError(t, err)

	before, err := c.getTables(root, cycloOrder, q)
	require.NoError(t, err)

	// Reset drops the cache; the rebuilt tables are bit-for-bit
	// identical.
	c.Reset()
	after, err := c.getTables(root, cycloOrder, q)
	require.NoError(t, err)
	require.NotSame(t, before, after)
	require.Empty(t, cmp.Diff(before, after, cmp.AllowUnexported(fttTables{})))

	// A different transform length for the same modulus evicts the
	// stale entry.
	shorterRoot, err := RootOfUnity(cycloOrder>>1, q)
	require.NoError(t, err)
	shorter, err := c.getTables(shorterRoot, cycloOrder>>1, q)
	require.NoError(t, err)
	require.Equal(t, cycloOrder>>2, shorter.cycloOrderHf)
}

func TestFTTInvalidArguments(t *testing.T) {

	var q uint64 = 12289
	c := NewChineseRemainderTransformFTT()

	root, err := RootOfUnity(16, q)
	require.NoError(t, err)

	p := NewModularVector(8, q)
	_, err = c.ForwardTransformToBitReverse(p, root, 24)
	require.ErrorIs(t, err, ErrInvalidCyclotomicOrder)

	short := NewModularVector(4, q)
	_, err = c.ForwardTransformToBitReverse(short, root, 16)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

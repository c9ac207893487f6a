package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNTTDim(t *testing.T) {
	// Smallest power of two holding the 2n-1 chirp convolution.
	require.Equal(t, 1, NTTDim(1))
	require.Equal(t, 4, NTTDim(2))
	require.Equal(t, 8, NTTDim(4))
	require.Equal(t, 16, NTTDim(5))
	require.Equal(t, 32, NTTDim(12))
	require.Equal(t, 64, NTTDim(22))
}

func TestBluesteinMatchesNaiveDFT(t *testing.T) {

	const m = 12
	var q uint64 = 73

	b := NewBluesteinFFT()

	// A primitive 2m-th root: the chirp trick halves the angle, so
	// the transform evaluates the polynomial at powers of root^2.
	root, err := RootOfUnity(2*m, q)
	require.NoError(t, err)
	omega := ModExp(root, 2, q)

	sampler := newTestSampler(t, q)
	p := sampler.ReadNew(m)

	transformed, err := b.ForwardTransform(p, root, m)
	require.NoError(t, err)
	require.Equal(t, m, transformed.Len())
	require.Equal(t, q, transformed.Modulus)

	brc := BRedConstant(q)
	for k := 0; k < m; k++ {
		point := ModExp(omega, uint64(k), q)
		eval := uint64(0)
		pow := uint64(1)
		for _, coeff := range p.Values {
			eval = CRed(eval+BRed(coeff, pow, q, brc), q)
			pow = BRed(pow, point, q, brc)
		}
		require.Equal(t, eval, transformed.Values[k])
	}
}

func TestBluesteinInverseRoot(t *testing.T) {

	const m = 12
	var q uint64 = 73

	b := NewBluesteinFFT()
	root, err := RootOfUnity(2*m, q)
	require.NoError(t, err)
	rootInv, err := ModInverse(root, q)
	require.NoError(t, err)
	mInv, err := ModInverse(m, q)
	require.NoError(t, err)

	sampler := newTestSampler(t, q)
	p := sampler.ReadNew(m)

	// DFT at root^2 followed by DFT at root^-2 scaled by m^-1 is the
	// identity.
	transformed, err := b.ForwardTransform(p, root, m)
	require.NoError(t, err)
	back, err := b.ForwardTransform(transformed, rootInv, m)
	require.NoError(t, err)
	require.True(t, p.Equal(back.ModMulScalar(mInv)))
}

func TestBluesteinReset(t *testing.T) {

	const m = 12
	var q uint64 = 73

	b := NewBluesteinFFT()
	root, err := RootOfUnity(2*m, q)
	require.NoError(t, err)

	p := newTestSampler(t, q).ReadNew(m)

	before, err := b.ForwardTransform(p, root, m)
	require.NoError(t, err)

	b.Reset()
	after, err := b.ForwardTransform(p, root, m)
	require.NoError(t, err)
	require.True(t, before.Equal(after))
}

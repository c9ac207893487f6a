package pim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pimfhe/pimring/ring"
)

func TestDistributedNTTMatchesHost(t *testing.T) {
	const n = 1024
	var q uint64 = 12289

	for _, lanes := range []int{1, 4, 8} {
		mgr := newTestManager(t, lanes)
		sampler := newTestSampler(t, q)

		tables, err := NewNTTTables(mgr, n, q)
		require.NoError(t, err)

		p := sampler.ReadNew(n)

		t.Run(testString("Forward", lanes, n, q), func(t *testing.T) {
			v, err := NewVector(mgr, n)
			require.NoError(t, err)
			defer v.Free()
			require.NoError(t, v.Load(p.Values))

			require.NoError(t, DistributedNTT(v, tables, Forward))

			tw, err := tables.W.Store()
			require.NoError(t, err)
			want := ring.NewModularVector(n, q)
			require.NoError(t, ring.ForwardTransformIterative(p, tw, want))

			got, err := v.Store()
			require.NoError(t, err)
			require.Equal(t, want.Values, got)
		})

		t.Run(testString("Inverse", lanes, n, q), func(t *testing.T) {
			// With one lane every stage runs on the device and the
			// final kernel folds in the 1/n rescale; with more lanes
			// the rescale happens on the pulled host copy. Both must
			// agree with the host inverse transform.
			v, err := NewVector(mgr, n)
			require.NoError(t, err)
			defer v.Free()
			require.NoError(t, v.Load(p.Values))

			require.NoError(t, DistributedNTT(v, tables, Inverse))

			twInv, err := tables.WInv.Store()
			require.NoError(t, err)
			want := ring.NewModularVector(n, q)
			require.NoError(t, ring.InverseTransformIterative(p, twInv, want))

			got, err := v.Store()
			require.NoError(t, err)
			require.Equal(t, want.Values, got)
		})

		t.Run(testString("RoundTrip", lanes, n, q), func(t *testing.T) {
			v, err := NewVector(mgr, n)
			require.NoError(t, err)
			defer v.Free()
			require.NoError(t, v.Load(p.Values))

			require.NoError(t, DistributedNTT(v, tables, Forward))
			require.NoError(t, DistributedNTT(v, tables, Inverse))

			got, err := v.Store()
			require.NoError(t, err)
			require.Equal(t, p.Values, got)
		})

		tables.Free()
	}
}

func TestDistributedNTTConvolution(t *testing.T) {
	const n = 64
	var q uint64 = 7681

	mgr := newTestManager(t, 4)
	tables, err := NewNTTTables(mgr, n, q)
	require.NoError(t, err)
	defer tables.Free()

	// Cyclic convolution of x and x^2 is x^3.
	p1 := ring.NewModularVector(n, q)
	p1.Values[1] = 1
	p2 := ring.NewModularVector(n, q)
	p2.Values[2] = 1

	v1, err := NewVector(mgr, n)
	require.NoError(t, err)
	defer v1.Free()
	require.NoError(t, v1.Load(p1.Values))
	v2, err := NewVector(mgr, n)
	require.NoError(t, err)
	defer v2.Free()
	require.NoError(t, v2.Load(p2.Values))

	require.NoError(t, DistributedNTT(v1, tables, Forward))
	require.NoError(t, DistributedNTT(v2, tables, Forward))
	require.NoError(t, EltwiseMulMod(v1, v1, v2, q))
	require.NoError(t, DistributedNTT(v1, tables, Inverse))

	got, err := v1.Store()
	require.NoError(t, err)
	for i, v := range got {
		if i == 3 {
			require.Equal(t, uint64(1), v)
		} else {
			require.Equal(t, uint64(0), v)
		}
	}
}

func TestDistributedNTTSizeChecks(t *testing.T) {
	mgr := newTestManager(t, 4)

	tables, err := NewNTTTables(mgr, 64, 7681)
	require.NoError(t, err)
	defer tables.Free()

	v, err := NewVector(mgr, 128)
	require.NoError(t, err)
	defer v.Free()
	require.Error(t, DistributedNTT(v, tables, Forward))

	_, err = NewNTTTables(mgr, 100, 7681)
	require.Error(t, err)
}

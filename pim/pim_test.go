package pim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pimfhe/pimring/ring"
	"github.com/pimfhe/pimring/utils/sampling"
)

func testString(opname string, lanes, n int, modulus uint64) string {
	return fmt.Sprintf("%s/lanes=%d/N=%d/modulus=%d", opname, lanes, n, modulus)
}

func newTestManager(tb testing.TB, lanes int) *Manager {
	tb.Helper()
	return NewManager(NewSimDriver(lanes, 1<<22), WithArenaBytes(1<<22))
}

func newTestSampler(tb testing.TB, modulus uint64) *ring.UniformSampler {
	tb.Helper()
	prng, err := sampling.NewSeededPRNG([]byte("offload"))
	require.NoError(tb, err)
	return ring.NewUniformSampler(prng, modulus)
}

func TestVectorCoherency(t *testing.T) {
	mgr := newTestManager(t, 4)

	v, err := NewVector(mgr, 100)
	require.NoError(t, err)
	defer v.Free()

	require.Equal(t, HostDirty, v.State())

	vals := make([]uint64, 100)
	for i := range vals {
		vals[i] = uint64(i)
	}
	require.NoError(t, v.Load(vals))
	require.NoError(t, v.Commit())
	require.Equal(t, Clean, v.State())

	// A kernel output round-trips through the device.
	v.invalidateHost()
	require.Equal(t, PIMFresh, v.State())
	got, err := v.Store()
	require.NoError(t, err)
	require.Equal(t, vals, got)
	require.Equal(t, Clean, v.State())

	// Host writes mark the vector dirty again.
	require.NoError(t, v.Set(42, 7))
	require.Equal(t, HostDirty, v.State())
	x, err := v.At(42)
	require.NoError(t, err)
	require.Equal(t, uint64(7), x)
}

func TestVectorSharding(t *testing.T) {
	mgr := newTestManager(t, 4)

	v, err := NewVector(mgr, 100)
	require.NoError(t, err)
	defer v.Free()

	// ceil(100/4) = 25, rounded up to the 8-word granule.
	require.Equal(t, 32, v.ShardWords())

	lane, local := v.locate(70)
	require.Equal(t, 2, lane)
	require.Equal(t, 6, local)
}

func TestReplicatedVector(t *testing.T) {
	mgr := newTestManager(t, 4)

	v, err := NewReplicatedVector(mgr, 12)
	require.NoError(t, err)
	defer v.Free()

	vals := []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	require.NoError(t, v.Load(vals))
	require.NoError(t, v.Commit())

	// Every lane holds the full table.
	sim := mgr.driver.(*SimDriver)
	off := int(v.Block().Offset / 8)
	for lane := 0; lane < 4; lane++ {
		require.Equal(t, vals, sim.arenas[lane][off:off+12])
	}
}

func TestEltwiseMatchesHost(t *testing.T) {
	const n = 256
	var q uint64 = 0x1fffffffffe00001

	for _, lanes := range []int{1, 4} {
		mgr := newTestManager(t, lanes)
		sampler := newTestSampler(t, q)

		p1 := sampler.ReadNew(n)
		p2 := sampler.ReadNew(n)
		var scalar uint64 = 0xdeadbeef12345

		upload := func(p *ring.ModularVector) *Vector {
			v, err := NewVector(mgr, n)
			require.NoError(t, err)
			require.NoError(t, v.Load(p.Values))
			return v
		}

		type testCase struct {
			name string
			pim  func(out, a, b *Vector) error
			host func() (*ring.ModularVector, error)
		}

		for _, tc := range []testCase{
			{
				name: "EltwiseAddMod",
				pim:  func(out, a, b *Vector) error { return EltwiseAddMod(out, a, b, q) },
				host: func() (*ring.ModularVector, error) { return p1.ModAdd(p2) },
			},
			{
				name: "EltwiseSubMod",
				pim:  func(out, a, b *Vector) error { return EltwiseSubMod(out, a, b, q) },
				host: func() (*ring.ModularVector, error) { return p1.ModSub(p2) },
			},
			{
				name: "EltwiseMulMod",
				pim:  func(out, a, b *Vector) error { return EltwiseMulMod(out, a, b, q) },
				host: func() (*ring.ModularVector, error) { return p1.ModMul(p2) },
			},
			{
				name: "EltwiseAddScalarMod",
				pim:  func(out, a, b *Vector) error { return EltwiseAddScalarMod(out, a, scalar, q) },
				host: func() (*ring.ModularVector, error) { return p1.ModAddScalar(scalar), nil },
			},
			{
				name: "EltwiseSubScalarMod",
				pim:  func(out, a, b *Vector) error { return EltwiseSubScalarMod(out, a, scalar, q) },
				host: func() (*ring.ModularVector, error) { return p1.ModSubScalar(scalar), nil },
			},
			{
				name: "EltwiseScalarMulMod",
				pim:  func(out, a, b *Vector) error { return EltwiseScalarMulMod(out, a, scalar, q) },
				host: func() (*ring.ModularVector, error) { return p1.ModMulScalar(scalar), nil },
			},
		} {
			t.Run(testString(tc.name, lanes, n, q), func(t *testing.T) {
				a, b := upload(p1), upload(p2)
				defer a.Free()
				defer b.Free()
				out, err := NewVector(mgr, n)
				require.NoError(t, err)
				defer out.Free()

				require.NoError(t, tc.pim(out, a, b))
				want, err := tc.host()
				require.NoError(t, err)
				got, err := out.Store()
				require.NoError(t, err)
				require.Equal(t, want.Values, got)
			})
		}
	}
}

func TestEltwiseFMAMod(t *testing.T) {
	const n = 128
	var q uint64 = 12289

	mgr := newTestManager(t, 4)
	sampler := newTestSampler(t, q)

	p1 := sampler.ReadNew(n)
	p2 := sampler.ReadNew(n)
	var scalar uint64 = 3333

	a, err := NewVector(mgr, n)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.Load(p1.Values))
	addend, err := NewVector(mgr, n)
	require.NoError(t, err)
	defer addend.Free()
	require.NoError(t, addend.Load(p2.Values))
	out, err := NewVector(mgr, n)
	require.NoError(t, err)
	defer out.Free()

	require.NoError(t, EltwiseFMAMod(out, a, addend, scalar, q))

	want, err := p1.ModMulScalar(scalar).ModAdd(p2)
	require.NoError(t, err)
	got, err := out.Store()
	require.NoError(t, err)
	require.Equal(t, want.Values, got)
}

func TestEltwiseConditional(t *testing.T) {
	const n = 64
	var q uint64 = 97

	mgr := newTestManager(t, 4)

	vals := make([]uint64, n)
	for i := range vals {
		vals[i] = uint64(i) % q
	}

	t.Run(testString("ConditionalAdd", 4, n, q), func(t *testing.T) {
		a, err := NewVector(mgr, n)
		require.NoError(t, err)
		defer a.Free()
		require.NoError(t, a.Load(vals))
		out, err := NewVector(mgr, n)
		require.NoError(t, err)
		defer out.Free()

		var bound, diff uint64 = 48, 1000
		require.NoError(t, EltwiseConditionalAdd(out, a, CmpGreaterThan, bound, diff))

		got, err := out.Store()
		require.NoError(t, err)
		for i, v := range vals {
			want := v
			if v > bound {
				want += diff
			}
			require.Equal(t, want, got[i])
		}
	})

	t.Run(testString("ConditionalSubMod", 4, n, q), func(t *testing.T) {
		// Inputs in [0, 2q): the kernel folds them once before the
		// comparison.
		lazy := make([]uint64, n)
		for i := range lazy {
			lazy[i] = (uint64(i) * 3) % (2 * q)
		}
		a, err := NewVector(mgr, n)
		require.NoError(t, err)
		defer a.Free()
		require.NoError(t, a.Load(lazy))
		out, err := NewVector(mgr, n)
		require.NoError(t, err)
		defer out.Free()

		var bound, diff uint64 = 48, 30
		require.NoError(t, EltwiseConditionalSubMod(out, a, q, CmpGreaterThan, bound, diff))

		got, err := out.Store()
		require.NoError(t, err)
		for i, v := range lazy {
			want := v % q
			if want > bound {
				want = (want + q - diff) % q
			}
			require.Equal(t, want, got[i])
		}
	})
}

func TestEltwiseReduceMod(t *testing.T) {
	const n = 32
	var q uint64 = 769

	mgr := newTestManager(t, 4)

	vals := make([]uint64, n)
	for i := range vals {
		vals[i] = (uint64(i) * 131) % (4 * q)
	}

	a, err := NewVector(mgr, n)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.Load(vals))
	out, err := NewVector(mgr, n)
	require.NoError(t, err)
	defer out.Free()

	require.NoError(t, EltwiseReduceMod(out, a, q, 4, 1))

	got, err := out.Store()
	require.NoError(t, err)
	for i, v := range vals {
		require.Equal(t, v%q, got[i])
	}
}

func TestEltwiseLengthMismatch(t *testing.T) {
	mgr := newTestManager(t, 4)

	a, err := NewVector(mgr, 64)
	require.NoError(t, err)
	defer a.Free()
	b, err := NewVector(mgr, 128)
	require.NoError(t, err)
	defer b.Free()
	out, err := NewVector(mgr, 64)
	require.NoError(t, err)
	defer out.Free()

	require.Error(t, EltwiseAddMod(out, a, b, 97))
}

func TestProfilerReport(t *testing.T) {
	mgr := newTestManager(t, 4)

	a, err := NewVector(mgr, 64)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.Load(make([]uint64, 64)))
	out, err := NewVector(mgr, 64)
	require.NoError(t, err)
	defer out.Free()

	require.NoError(t, EltwiseAddScalarMod(out, a, 1, 97))
	require.NoError(t, EltwiseAddScalarMod(out, out, 1, 97))

	report := mgr.Profiler().Report()
	require.NotEmpty(t, report)

	var share float64
	byName := map[string]KernelStats{}
	for _, ks := range report {
		byName[ks.Name] = ks
		share += ks.Share
	}
	require.InDelta(t, 1.0, share, 1e-9)
	require.Equal(t, 2, byName[OpModAddScalar.String()].Count)
	require.NotEmpty(t, mgr.Profiler().String())

	mgr.Profiler().Reset()
	require.Empty(t, mgr.Profiler().Report())
}

func TestArgsBuilder(t *testing.T) {
	args := NewArgs().
		A(0, 16).
		B(128, 8).
		C(256, 16).
		Kernel(OpNTTStage).
		Mod(12289).
		ModFactor(4).
		InFactor(2).
		OutFactor(nttFlagInverse | nttFlagLast).
		Build()

	require.Equal(t, OpNTTStage, args.Kernel)
	require.Equal(t, uint32(16), args.A.Size)
	require.Equal(t, uint32(128), args.A.SizeInBytes)
	require.Equal(t, uint32(128), args.B.Offset)
	require.Equal(t, uint64(12289), args.Mod)
	require.Equal(t, uint32(3), args.OutputModFactor)
}

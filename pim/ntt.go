package pim

import (
	"fmt"
	"math/bits"

	"github.com/pimfhe/pimring/ring"
	"github.com/pimfhe/pimring/utils"
)

// NTTDirection selects the transform direction.
type NTTDirection int

const (
	Forward NTTDirection = iota
	Inverse
)

// NTTTables holds the device-resident twiddle factors for one
// (degree, modulus) pair: powers of a primitive n-th root of unity and
// of its inverse in standard order, mirrored on every lane, plus the
// inverse of n for the final rescaling.
type NTTTables struct {
	N       int
	Modulus uint64
	W       *Vector
	WInv    *Vector
	NInv    uint64
}

// NewNTTTables computes the twiddle factors for a degree-n transform
// modulo mod and replicates them on every lane. n must be a power of
// two and mod an NTT-friendly prime for n.
func NewNTTTables(mgr *Manager, n int, mod uint64) (*NTTTables, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("pim: transform size %d is not a power of two", n)
	}
	root, err := ring.RootOfUnity(n, mod)
	if err != nil {
		return nil, err
	}
	rootInv, err := ring.ModInverse(root, mod)
	if err != nil {
		return nil, err
	}
	nInv, err := ring.ModInverse(uint64(n)%mod, mod)
	if err != nil {
		return nil, err
	}

	brc := ring.BRedConstant(mod)
	fwd := make([]uint64, n>>1)
	inv := make([]uint64, n>>1)
	fwd[0], inv[0] = 1, 1
	for i := 1; i < n>>1; i++ {
		fwd[i] = ring.BRed(fwd[i-1], root, mod, brc)
		inv[i] = ring.BRed(inv[i-1], rootInv, mod, brc)
	}

	w, err := NewReplicatedVector(mgr, n>>1)
	if err != nil {
		return nil, err
	}
	wInv, err := NewReplicatedVector(mgr, n>>1)
	if err != nil {
		w.Free()
		return nil, err
	}
	if err := w.Load(fwd); err != nil {
		return nil, err
	}
	if err := wInv.Load(inv); err != nil {
		return nil, err
	}
	return &NTTTables{N: n, Modulus: mod, W: w, WInv: wInv, NInv: nInv}, nil
}

// Free releases the device-side twiddle tables.
func (t *NTTTables) Free() {
	t.W.Free()
	t.WInv.Free()
}

// DistributedNTT runs a degree-n transform over the lanes. The input
// is bit-reverse permuted on the host, then the stages whose butterfly
// pairs fall within one lane run on the device; the remaining
// cross-lane stages run on the pulled host copy. The inverse direction
// additionally rescales by 1/n. The result is in standard order and
// canonical range. n must be a multiple of the lane count and the
// per-lane share a power of two of at least 8.
func DistributedNTT(vec *Vector, tables *NTTTables, dir NTTDirection) error {
	n := vec.Len()
	if n != tables.N {
		return fmt.Errorf("pim: vector size %d, tables for %d", n, tables.N)
	}
	lanes := vec.mgr.Lanes()
	local := n / lanes
	if n%lanes != 0 || local != vec.chunk {
		return fmt.Errorf("pim: size %d does not shard evenly over %d lanes", n, lanes)
	}

	twiddles := tables.W
	if dir == Inverse {
		twiddles = tables.WInv
	}

	if err := hostBitReverse(vec); err != nil {
		return err
	}

	logN := bits.Len(uint(n)) - 1
	span := 1
	stage := 0
	deviceScaled := false

	// Lane-local stages. When the final stage falls within the lanes
	// the kernel also applies the 1/n rescale of the inverse.
	for ; span < local; span <<= 1 {
		last := stage+1 == logN
		if err := launchStage(vec, twiddles, tables, span, dir, last); err != nil {
			return err
		}
		if last && dir == Inverse {
			deviceScaled = true
		}
		stage++
	}

	// Cross-lane stages run on the host copy.
	if span < n {
		if err := vec.PullAll(); err != nil {
			return err
		}
		vals, err := vec.Store()
		if err != nil {
			return err
		}
		tw, err := twiddles.Store()
		if err != nil {
			return err
		}
		mod := tables.Modulus
		for ; span < n; span <<= 1 {
			step := n / (2 * span)
			for base := 0; base < n; base += 2 * span {
				for i := 0; i < span; i++ {
					x, y := base+i, base+i+span
					t := mulMod(tw[i*step], vals[y], mod)
					u := vals[x]
					vals[x] = addMod(u, t, mod)
					vals[y] = subMod(u, t, mod)
				}
			}
		}
		if err := vec.Load(vals); err != nil {
			return err
		}
	}

	if dir == Inverse && !deviceScaled {
		vals, err := vec.Store()
		if err != nil {
			return err
		}
		mod := tables.Modulus
		for i := range vals {
			vals[i] = mulMod(vals[i], tables.NInv, mod)
		}
		if err := vec.Load(vals); err != nil {
			return err
		}
	}
	return nil
}

// launchStage runs one butterfly stage of span on every lane. The
// twiddle stride is computed against the global transform size, which
// agrees with lane-local indexing because the span divides the shard.
// The last inverse stage carries 1/n as the kernel scalar.
func launchStage(vec *Vector, twiddles *Vector, tables *NTTTables, span int, dir NTTDirection, last bool) error {
	var flags uint32
	var scalar uint64
	if dir == Inverse {
		flags |= nttFlagInverse
	}
	if last {
		flags |= nttFlagLast
		if dir == Inverse {
			scalar = tables.NInv
		}
	}
	args := NewArgs().
		A(vec.block.Offset, uint32(vec.chunk)).
		B(twiddles.block.Offset, uint32(twiddles.chunk)).
		Kernel(OpNTTStage).
		Mod(tables.Modulus).
		Scalar(scalar).
		ModFactor(uint32(span)).
		InFactor(uint32(tables.N / (2 * span))).
		OutFactor(flags).
		Build()
	return vec.mgr.RunKernel(args, []*Vector{vec, twiddles}, []*Vector{vec})
}

// hostBitReverse permutes the vector into bit-reversed order on the
// host copy.
func hostBitReverse(vec *Vector) error {
	vals, err := vec.Store()
	if err != nil {
		return err
	}
	bitLen := bits.Len64(uint64(len(vals))) - 1
	for i := range vals {
		j := int(utils.BitReverse64(uint64(i), uint64(bitLen)))
		if i < j {
			vals[i], vals[j] = vals[j], vals[i]
		}
	}
	return vec.Load(vals)
}

package pim

import (
	"fmt"
	"math/bits"
)

// SimDriver executes the device kernels on the host, one simulated
// arena per lane. It reproduces the lane-level semantics exactly
// (lazy input ranges, conditional reductions, butterfly ordering), so
// results are bit-identical to the hardware path.
type SimDriver struct {
	lanes  int
	arenas [][]uint64
	args   Args
	armed  bool
}

// NewSimDriver returns a simulator with the given number of lanes,
// each backed by arenaBytes of memory.
func NewSimDriver(lanes int, arenaBytes uint32) *SimDriver {
	words := int(alignUp(arenaBytes)) / 8
	arenas := make([][]uint64, lanes)
	for i := range arenas {
		arenas[i] = make([]uint64, words)
	}
	return &SimDriver{lanes: lanes, arenas: arenas}
}

// Lanes returns the number of simulated lanes.
func (d *SimDriver) Lanes() int {
	return d.lanes
}

func (d *SimDriver) wordOffset(offset uint32) (int, error) {
	if offset%8 != 0 {
		return 0, fmt.Errorf("pim: unaligned offset %d", offset)
	}
	return int(offset / 8), nil
}

// Scatter implements Driver.
func (d *SimDriver) Scatter(shards [][]uint64, offset uint32) error {
	if len(shards) != d.lanes {
		return fmt.Errorf("pim: %d shards for %d lanes", len(shards), d.lanes)
	}
	off, err := d.wordOffset(offset)
	if err != nil {
		return err
	}
	for lane, shard := range shards {
		if off+len(shard) > len(d.arenas[lane]) {
			return fmt.Errorf("pim: scatter past end of lane %d arena", lane)
		}
		copy(d.arenas[lane][off:], shard)
	}
	return nil
}

// Gather implements Driver.
func (d *SimDriver) Gather(shards [][]uint64, words int, offset uint32) error {
	if len(shards) != d.lanes {
		return fmt.Errorf("pim: %d shards for %d lanes", len(shards), d.lanes)
	}
	off, err := d.wordOffset(offset)
	if err != nil {
		return err
	}
	for lane, shard := range shards {
		n := words
		if n > len(shard) {
			n = len(shard)
		}
		if off+n > len(d.arenas[lane]) {
			return fmt.Errorf("pim: gather past end of lane %d arena", lane)
		}
		copy(shard[:n], d.arenas[lane][off:off+n])
	}
	return nil
}

// PushArgs implements Driver.
func (d *SimDriver) PushArgs(args Args) error {
	d.args = args
	d.armed = true
	return nil
}

// Exec implements Driver.
func (d *SimDriver) Exec() error {
	if !d.armed {
		return fmt.Errorf("pim: Exec without PushArgs")
	}
	args := d.args
	for lane := 0; lane < d.lanes; lane++ {
		if err := d.execLane(lane, args); err != nil {
			return fmt.Errorf("pim: lane %d: %w", lane, err)
		}
	}
	return nil
}

func (d *SimDriver) view(lane int, arr Array) ([]uint64, error) {
	off, err := d.wordOffset(arr.Offset)
	if err != nil {
		return nil, err
	}
	end := off + int(arr.Size)
	if end > len(d.arenas[lane]) {
		return nil, fmt.Errorf("array [%d:%d] past end of arena", off, end)
	}
	return d.arenas[lane][off:end], nil
}

func (d *SimDriver) execLane(lane int, args Args) error {
	a, err := d.view(lane, args.A)
	if err != nil {
		return err
	}
	var b []uint64
	if args.B.Size > 0 {
		if b, err = d.view(lane, args.B); err != nil {
			return err
		}
	}
	var c []uint64
	if args.C.Size > 0 {
		if c, err = d.view(lane, args.C); err != nil {
			return err
		}
	}

	mod := args.Mod
	switch args.Kernel {
	case OpModAdd:
		for i := range c {
			c[i] = addMod(a[i], b[i], mod)
		}
	case OpModAddScalar:
		for i := range c {
			c[i] = addMod(a[i], args.Scalar%mod, mod)
		}
	case OpModSub:
		for i := range c {
			c[i] = subMod(a[i], b[i], mod)
		}
	case OpModSubScalar:
		for i := range c {
			c[i] = subMod(a[i], args.Scalar%mod, mod)
		}
	case OpModMul:
		if b != nil {
			for i := range c {
				c[i] = mulMod(a[i], b[i], mod)
			}
		} else {
			s := args.Scalar % mod
			for i := range c {
				c[i] = mulMod(a[i], s, mod)
			}
		}
	case OpFMAMod:
		s := args.Scalar % mod
		for i := range c {
			x := reduceToMod(a[i], mod)
			v := mulMod(x, s, mod)
			if b != nil {
				v = addMod(v, reduceToMod(b[i], mod), mod)
			}
			c[i] = v
		}
	case OpModReduce:
		for i := range c {
			c[i] = reduceFactor(a[i], mod, args.InputModFactor, args.OutputModFactor)
		}
	case OpCmpAdd:
		for i := range c {
			v := a[i]
			if args.Cmp.Eval(v, args.Bound) {
				v += args.Scalar
			}
			c[i] = v
		}
	case OpCmpSubMod:
		diff := args.Scalar % mod
		for i := range c {
			v := a[i]
			if v >= mod {
				v -= mod
			}
			if args.Cmp.Eval(v, args.Bound) {
				v = subMod(v, diff, mod)
			}
			c[i] = v
		}
	case OpNTTStage:
		return nttStage(a, b, args)
	default:
		return fmt.Errorf("unknown kernel %v", args.Kernel)
	}
	return nil
}

// nttStage applies one in-place Cooley-Tukey stage to the lane-local
// data block. ModFactor carries the butterfly span, InputModFactor the
// twiddle stride, and OutputModFactor the direction flags; on the last
// inverse stage a non-zero Scalar rescales both butterfly outputs.
func nttStage(data, twiddles []uint64, args Args) error {
	span := int(args.ModFactor)
	step := int(args.InputModFactor)
	inverse := args.OutputModFactor&nttFlagInverse != 0
	last := args.OutputModFactor&nttFlagLast != 0
	mod := args.Mod

	if span <= 0 || len(data)%(2*span) != 0 {
		return fmt.Errorf("ntt stage: span %d does not divide block of %d", span, len(data))
	}

	for base := 0; base < len(data); base += 2 * span {
		for i := 0; i < span; i++ {
			x := base + i
			y := x + span
			w := twiddles[(x&(span-1))*step]
			t := mulMod(w, data[y], mod)
			u := data[x]
			data[x] = addMod(u, t, mod)
			data[y] = subMod(u, t, mod)
			if inverse && last && args.Scalar != 0 {
				data[x] = mulMod(data[x], args.Scalar, mod)
				data[y] = mulMod(data[y], args.Scalar, mod)
			}
		}
	}
	return nil
}

const (
	nttFlagInverse uint32 = 1
	nttFlagLast    uint32 = 2
)

func addMod(a, b, mod uint64) uint64 {
	v := a + b
	if v >= mod {
		v -= mod
	}
	return v
}

func subMod(a, b, mod uint64) uint64 {
	if a >= b {
		return a - b
	}
	return a + mod - b
}

func mulMod(a, b, mod uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, r := bits.Div64(hi%mod, lo, mod)
	return r
}

// reduceToMod brings a lazy residue into [0, mod) with conditional
// subtractions, matching the lane kernel's branch sequence.
func reduceToMod(v, mod uint64) uint64 {
	if v >= mod<<2 {
		return v % mod
	}
	if v >= mod<<1 {
		v -= mod << 1
	}
	if v >= mod {
		v -= mod
	}
	return v
}

// reduceFactor maps a residue in [0, inFactor*mod) to [0, outFactor*mod)
// for factors in {1, 2, 4}.
func reduceFactor(v, mod uint64, inFactor, outFactor uint32) uint64 {
	switch {
	case inFactor > 4:
		v %= mod * uint64(outFactor)
	case inFactor == 4 && outFactor <= 2:
		if v >= mod<<1 {
			v -= mod << 1
		}
		fallthrough
	case inFactor == 2 || inFactor == 4:
		if outFactor == 1 && v >= mod {
			v -= mod
		}
	default:
		if v >= mod {
			v -= mod
		}
	}
	return v
}

package pim

import (
	"fmt"
)

// CopyState tracks which side holds the authoritative copy of a
// vector.
type CopyState uint8

const (
	// Clean: host and device copies agree.
	Clean CopyState = iota
	// HostDirty: the host copy has writes not yet scattered.
	HostDirty
	// PIMFresh: a kernel wrote the device copy; the host copy is stale.
	PIMFresh
)

func (s CopyState) String() string {
	switch s {
	case Clean:
		return "CLEAN"
	case HostDirty:
		return "HOST_DIRTY"
	case PIMFresh:
		return "PIM_FRESH"
	default:
		return "UNKNOWN"
	}
}

// Vector is a slice of 64-bit words sharded across the device lanes,
// with a host-side staging copy. Elements are distributed in
// contiguous chunks: lane d holds global indices [d*chunk, (d+1)*chunk).
// Reads and writes go through the host copy; coherency is tracked with
// a CopyState and copies are moved lazily.
type Vector struct {
	mgr        *Manager
	shards     [][]uint64
	block      Block
	n          int
	chunk      int
	state      CopyState
	replicated bool
}

// NewVector allocates a vector of n words sharded across the lanes.
func NewVector(mgr *Manager, n int) (*Vector, error) {
	if n <= 0 {
		return nil, fmt.Errorf("pim: vector size %d", n)
	}
	lanes := mgr.Lanes()
	chunk := (n + lanes - 1) / lanes
	// Align each shard to the 8-word transfer granule.
	chunk = (chunk + 7) &^ 7
	return newVector(mgr, n, chunk, lanes, false)
}

// NewReplicatedVector allocates a vector whose n words are mirrored in
// full on every lane, for lane-local lookup tables.
func NewReplicatedVector(mgr *Manager, n int) (*Vector, error) {
	if n <= 0 {
		return nil, fmt.Errorf("pim: vector size %d", n)
	}
	chunk := (n + 7) &^ 7
	return newVector(mgr, n, chunk, mgr.Lanes(), true)
}

func newVector(mgr *Manager, n, chunk, lanes int, replicated bool) (*Vector, error) {
	block, err := mgr.AllocateUniform(uint32(chunk * 8))
	if err != nil {
		return nil, err
	}
	shards := make([][]uint64, lanes)
	for i := range shards {
		shards[i] = make([]uint64, chunk)
	}
	return &Vector{
		mgr:        mgr,
		shards:     shards,
		block:      block,
		n:          n,
		chunk:      chunk,
		state:      HostDirty,
		replicated: replicated,
	}, nil
}

// Len returns the number of words in the vector.
func (v *Vector) Len() int {
	return v.n
}

// ShardWords returns the per-lane shard size in words, including
// alignment padding.
func (v *Vector) ShardWords() int {
	return v.chunk
}

// Block returns the vector's device memory region.
func (v *Vector) Block() Block {
	return v.block
}

// State returns the current coherency state.
func (v *Vector) State() CopyState {
	return v.state
}

func (v *Vector) locate(i int) (lane, local int) {
	return i / v.chunk, i % v.chunk
}

// At returns element i, pulling the device copy first if it is fresh.
func (v *Vector) At(i int) (uint64, error) {
	if err := v.PullAll(); err != nil {
		return 0, err
	}
	if v.replicated {
		return v.shards[0][i], nil
	}
	lane, local := v.locate(i)
	return v.shards[lane][local], nil
}

// Set writes element i on the host copy.
func (v *Vector) Set(i int, val uint64) error {
	if err := v.PullAll(); err != nil {
		return err
	}
	if v.replicated {
		for _, shard := range v.shards {
			shard[i] = val
		}
	} else {
		lane, local := v.locate(i)
		v.shards[lane][local] = val
	}
	v.state = HostDirty
	return nil
}

// Load overwrites the host copy with vals.
func (v *Vector) Load(vals []uint64) error {
	if len(vals) != v.n {
		return fmt.Errorf("pim: load %d words into vector of %d", len(vals), v.n)
	}
	if v.replicated {
		for _, shard := range v.shards {
			copy(shard, vals)
		}
	} else {
		for lane, shard := range v.shards {
			lo := lane * v.chunk
			if lo >= v.n {
				break
			}
			hi := lo + v.chunk
			if hi > v.n {
				hi = v.n
			}
			copy(shard, vals[lo:hi])
		}
	}
	v.state = HostDirty
	return nil
}

// Store pulls the device copy if needed and returns the vector's
// contents.
func (v *Vector) Store() ([]uint64, error) {
	if err := v.PullAll(); err != nil {
		return nil, err
	}
	out := make([]uint64, v.n)
	if v.replicated {
		copy(out, v.shards[0][:v.n])
		return out, nil
	}
	for lane, shard := range v.shards {
		lo := lane * v.chunk
		if lo >= v.n {
			break
		}
		hi := lo + v.chunk
		if hi > v.n {
			hi = v.n
		}
		copy(out[lo:hi], shard)
	}
	return out, nil
}

// commit scatters the host copy to the device if it is dirty.
func (v *Vector) commit() error {
	if v.state != HostDirty {
		return nil
	}
	if err := v.mgr.scatter(v.shards, v.block.Offset); err != nil {
		return err
	}
	v.state = Clean
	return nil
}

// Commit scatters the host copy to the device if it is dirty.
func (v *Vector) Commit() error {
	v.mgr.mu.Lock()
	defer v.mgr.mu.Unlock()
	return v.commit()
}

// invalidateHost marks the device copy as authoritative after a kernel
// wrote it.
func (v *Vector) invalidateHost() {
	v.state = PIMFresh
}

// PullAll gathers the device copy back to the host if a kernel left it
// fresh.
func (v *Vector) PullAll() error {
	if v.state != PIMFresh {
		return nil
	}
	if err := v.mgr.gather(v.shards, v.chunk, v.block.Offset); err != nil {
		return err
	}
	v.state = Clean
	return nil
}

// Free releases the vector's device memory. The vector must not be
// used afterwards.
func (v *Vector) Free() {
	v.mgr.Deallocate(v.block)
	v.block = Block{}
	v.shards = nil
}

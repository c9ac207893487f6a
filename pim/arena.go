package pim

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultArenaBytes is the default per-lane arena capacity.
const DefaultArenaBytes = 64 << 20

// ErrArenaExhausted is returned when an allocation cannot be satisfied
// from the arena.
var ErrArenaExhausted = errors.New("pim: arena exhausted")

// Block is a region of device memory, identical across lanes.
type Block struct {
	Offset uint32
	Bytes  uint32
}

// Arena hands out 8-byte aligned regions of a fixed-size device memory
// bank. Freed regions go on a free list and adjacent free regions are
// coalesced; allocation is first-fit over the free list with bump
// allocation as the fallback.
type Arena struct {
	mu    sync.Mutex
	limit uint32
	next  uint32
	free  map[uint32]uint32 // offset -> bytes
}

// NewArena returns an arena managing limit bytes.
func NewArena(limit uint32) *Arena {
	return &Arena{limit: limit, free: map[uint32]uint32{}}
}

func alignUp(bytes uint32) uint32 {
	return (bytes + 7) &^ 7
}

// Allocate reserves bytes (rounded up to a multiple of 8) and returns
// its block.
func (a *Arena) Allocate(bytes uint32) (Block, error) {
	bytes = alignUp(bytes)
	if bytes == 0 {
		return Block{}, fmt.Errorf("pim: zero-size allocation")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// First fit over the free list, lowest offset first.
	offsets := make([]uint32, 0, len(a.free))
	for off := range a.free {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	for _, off := range offsets {
		size := a.free[off]
		if size < bytes {
			continue
		}
		delete(a.free, off)
		if size > bytes {
			a.free[off+bytes] = size - bytes
		}
		return Block{Offset: off, Bytes: bytes}, nil
	}

	if a.limit-a.next < bytes {
		return Block{}, fmt.Errorf("%w: need %d bytes, %d available", ErrArenaExhausted, bytes, a.limit-a.next)
	}
	off := a.next
	a.next += bytes
	return Block{Offset: off, Bytes: bytes}, nil
}

// Free returns a block to the arena, coalescing it with adjacent free
// regions.
func (a *Arena) Free(b Block) {
	if b.Bytes == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	off, bytes := b.Offset, b.Bytes

	// Merge with the following free region.
	if nextBytes, ok := a.free[off+bytes]; ok {
		delete(a.free, off+bytes)
		bytes += nextBytes
	}

	// Merge with a preceding free region ending at off.
	for prevOff, prevBytes := range a.free {
		if prevOff+prevBytes == off {
			delete(a.free, prevOff)
			off = prevOff
			bytes += prevBytes
			break
		}
	}

	if off+bytes == a.next {
		a.next = off
		return
	}
	a.free[off] = bytes
}

// Used returns the number of bytes currently reserved.
func (a *Arena) Used() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	used := a.next
	for _, bytes := range a.free {
		used -= bytes
	}
	return used
}

// Capacity returns the arena size in bytes.
func (a *Arena) Capacity() uint32 {
	return a.limit
}

package pim

import (
	"fmt"
	"sync"
)

// Manager coordinates a Driver: it owns the device memory arena,
// serializes kernel launches, and records per-kernel timings. All
// vectors and kernels of one device bank go through one Manager.
type Manager struct {
	mu       sync.Mutex
	driver   Driver
	arena    *Arena
	profiler *Profiler
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithArenaBytes overrides the per-lane arena capacity.
func WithArenaBytes(bytes uint32) ManagerOption {
	return func(m *Manager) {
		m.arena = NewArena(bytes)
	}
}

// NewManager returns a Manager driving the given device.
func NewManager(driver Driver, opts ...ManagerOption) *Manager {
	m := &Manager{
		driver:   driver,
		arena:    NewArena(DefaultArenaBytes),
		profiler: NewProfiler(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lanes returns the number of device lanes.
func (m *Manager) Lanes() int {
	return m.driver.Lanes()
}

// Profiler returns the manager's kernel profiler.
func (m *Manager) Profiler() *Profiler {
	return m.profiler
}

// AllocateUniform reserves bytes at the same offset on every lane.
func (m *Manager) AllocateUniform(bytes uint32) (Block, error) {
	return m.arena.Allocate(bytes)
}

// Deallocate releases an allocation on every lane.
func (m *Manager) Deallocate(b Block) {
	m.arena.Free(b)
}

// RunKernel commits the host-dirty inputs, broadcasts args, launches
// the kernel, and invalidates the host copies of the outputs.
func (m *Manager) RunKernel(args Args, inputs, outputs []*Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, in := range inputs {
		if err := in.commit(); err != nil {
			return err
		}
	}
	if err := m.driver.PushArgs(args); err != nil {
		return err
	}
	done := m.profiler.Track(args.Kernel.String())
	err := m.driver.Exec()
	done()
	if err != nil {
		return fmt.Errorf("pim: %v: %w", args.Kernel, err)
	}
	for _, out := range outputs {
		out.invalidateHost()
	}
	return nil
}

func (m *Manager) scatter(shards [][]uint64, offset uint32) error {
	defer m.profiler.Track("scatter")()
	return m.driver.Scatter(shards, offset)
}

func (m *Manager) gather(shards [][]uint64, words int, offset uint32) error {
	defer m.profiler.Track("gather")()
	return m.driver.Gather(shards, words, offset)
}

package pim

import (
	"fmt"
	"sync"

	"github.com/pimfhe/pimring/ring"
)

// Backend executes ring.ModularVector operations on a PIM device. It
// mirrors the host operations element for element, so results are
// interchangeable with the pure-host path. Twiddle tables for the
// transforms are built once per (degree, modulus) pair and kept
// device-resident.
type Backend struct {
	mgr *Manager

	mu     sync.Mutex
	tables map[tableKey]*NTTTables
}

type tableKey struct {
	n   int
	mod uint64
}

// NewBackend returns a Backend on the given manager.
func NewBackend(mgr *Manager) *Backend {
	return &Backend{mgr: mgr, tables: map[tableKey]*NTTTables{}}
}

// Manager returns the backend's device manager.
func (b *Backend) Manager() *Manager {
	return b.mgr
}

func (b *Backend) upload(values []uint64) (*Vector, error) {
	v, err := NewVector(b.mgr, len(values))
	if err != nil {
		return nil, err
	}
	if err := v.Load(values); err != nil {
		v.Free()
		return nil, err
	}
	return v, nil
}

func (b *Backend) download(v *Vector, mod uint64) (*ring.ModularVector, error) {
	vals, err := v.Store()
	if err != nil {
		return nil, err
	}
	return &ring.ModularVector{Values: vals, Modulus: mod}, nil
}

func checkRingOperands(p, q *ring.ModularVector) error {
	if p.Len() != q.Len() {
		return fmt.Errorf("%w: %d != %d", ring.ErrLengthMismatch, p.Len(), q.Len())
	}
	if p.Modulus != q.Modulus {
		return fmt.Errorf("%w: modulus %d != %d", ring.ErrSizeMismatch, p.Modulus, q.Modulus)
	}
	return nil
}

func (b *Backend) binary(p, q *ring.ModularVector, run func(out, a, c *Vector) error) (*ring.ModularVector, error) {
	if err := checkRingOperands(p, q); err != nil {
		return nil, err
	}
	a, err := b.upload(p.Values)
	if err != nil {
		return nil, err
	}
	defer a.Free()
	c, err := b.upload(q.Values)
	if err != nil {
		return nil, err
	}
	defer c.Free()
	out, err := NewVector(b.mgr, p.Len())
	if err != nil {
		return nil, err
	}
	defer out.Free()
	if err := run(out, a, c); err != nil {
		return nil, err
	}
	return b.download(out, p.Modulus)
}

func (b *Backend) unary(p *ring.ModularVector, run func(out, a *Vector) error) (*ring.ModularVector, error) {
	a, err := b.upload(p.Values)
	if err != nil {
		return nil, err
	}
	defer a.Free()
	out, err := NewVector(b.mgr, p.Len())
	if err != nil {
		return nil, err
	}
	defer out.Free()
	if err := run(out, a); err != nil {
		return nil, err
	}
	return b.download(out, p.Modulus)
}

// ModAdd computes the elementwise modular sum of p and q on the
// device.
func (b *Backend) ModAdd(p, q *ring.ModularVector) (*ring.ModularVector, error) {
	return b.binary(p, q, func(out, a, c *Vector) error {
		return EltwiseAddMod(out, a, c, p.Modulus)
	})
}

// ModSub computes the elementwise modular difference of p and q on the
// device.
func (b *Backend) ModSub(p, q *ring.ModularVector) (*ring.ModularVector, error) {
	return b.binary(p, q, func(out, a, c *Vector) error {
		return EltwiseSubMod(out, a, c, p.Modulus)
	})
}

// ModMul computes the elementwise modular product of p and q on the
// device.
func (b *Backend) ModMul(p, q *ring.ModularVector) (*ring.ModularVector, error) {
	return b.binary(p, q, func(out, a, c *Vector) error {
		return EltwiseMulMod(out, a, c, p.Modulus)
	})
}

// ModAddScalar adds scalar to every element on the device.
func (b *Backend) ModAddScalar(p *ring.ModularVector, scalar uint64) (*ring.ModularVector, error) {
	return b.unary(p, func(out, a *Vector) error {
		return EltwiseAddScalarMod(out, a, scalar, p.Modulus)
	})
}

// ModSubScalar subtracts scalar from every element on the device.
func (b *Backend) ModSubScalar(p *ring.ModularVector, scalar uint64) (*ring.ModularVector, error) {
	return b.unary(p, func(out, a *Vector) error {
		return EltwiseSubScalarMod(out, a, scalar, p.Modulus)
	})
}

// ModMulScalar multiplies every element by scalar on the device.
func (b *Backend) ModMulScalar(p *ring.ModularVector, scalar uint64) (*ring.ModularVector, error) {
	return b.unary(p, func(out, a *Vector) error {
		return EltwiseScalarMulMod(out, a, scalar, p.Modulus)
	})
}

// SwitchModulus converts p to newModulus in the balanced
// representation: residues above half the old modulus are recentred
// around the new one. The growing direction runs as a single
// conditional-add kernel; the shrinking direction needs the
// pre-reduction residue for its comparison, which the single-pass
// kernel does not retain, so it stays on the host.
func (b *Backend) SwitchModulus(p *ring.ModularVector, newModulus uint64) (*ring.ModularVector, error) {
	oldModulus := p.Modulus
	if newModulus <= oldModulus {
		out := p.CopyNew()
		out.SwitchModulus(newModulus)
		return out, nil
	}
	out, err := b.unary(p, func(out, a *Vector) error {
		return EltwiseConditionalAdd(out, a, CmpGreaterThan, oldModulus>>1, newModulus-oldModulus)
	})
	if err != nil {
		return nil, err
	}
	out.Modulus = newModulus
	return out, nil
}

func (b *Backend) tablesFor(n int, mod uint64) (*NTTTables, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := tableKey{n: n, mod: mod}
	if t, ok := b.tables[key]; ok {
		return t, nil
	}
	t, err := NewNTTTables(b.mgr, n, mod)
	if err != nil {
		return nil, err
	}
	b.tables[key] = t
	return t, nil
}

func (b *Backend) transform(p *ring.ModularVector, dir NTTDirection) (*ring.ModularVector, error) {
	t, err := b.tablesFor(p.Len(), p.Modulus)
	if err != nil {
		return nil, err
	}
	v, err := b.upload(p.Values)
	if err != nil {
		return nil, err
	}
	defer v.Free()
	if err := DistributedNTT(v, t, dir); err != nil {
		return nil, err
	}
	return b.download(v, p.Modulus)
}

// ForwardTransform runs the forward number theoretic transform of p on
// the device, standard order in and out.
func (b *Backend) ForwardTransform(p *ring.ModularVector) (*ring.ModularVector, error) {
	return b.transform(p, Forward)
}

// InverseTransform runs the inverse number theoretic transform of p on
// the device, standard order in and out.
func (b *Backend) InverseTransform(p *ring.ModularVector) (*ring.ModularVector, error) {
	return b.transform(p, Inverse)
}

// Close releases the backend's device-resident tables.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, t := range b.tables {
		t.Free()
		delete(b.tables, key)
	}
}

// Package pim implements an offload path for modular vector arithmetic
// and number theoretic transforms to processing-in-memory (PIM) devices:
// banks of DRAM-attached compute lanes with private memory arenas.
//
// The package is organized around a small Driver interface describing
// the device (scatter/gather of per-lane shards, argument broadcast,
// kernel launch), a Manager that owns the device-side memory arena, and
// a sharded Vector container that tracks host/device coherency. An
// in-process SimDriver executes the kernels on the host with identical
// semantics, so the offload path can be tested without hardware.
package pim

// OpCode identifies a device kernel.
type OpCode uint32

const (
	OpModAdd OpCode = iota
	OpModAddScalar
	OpCmpAdd
	OpCmpSubMod
	OpFMAMod
	OpModSub
	OpModSubScalar
	OpModMul
	OpModReduce
	OpNTTStage
)

func (op OpCode) String() string {
	switch op {
	case OpModAdd:
		return "MOD_ADD"
	case OpModAddScalar:
		return "MOD_ADD_SCALAR"
	case OpCmpAdd:
		return "CMP_ADD"
	case OpCmpSubMod:
		return "CMP_SUB_MOD"
	case OpFMAMod:
		return "FMA_MOD"
	case OpModSub:
		return "MOD_SUB"
	case OpModSubScalar:
		return "MOD_SUB_SCALAR"
	case OpModMul:
		return "MOD_MUL"
	case OpModReduce:
		return "MOD_REDUCE"
	case OpNTTStage:
		return "NTT_STAGE"
	default:
		return "UNKNOWN"
	}
}

// Cmp is a comparison code used by the conditional kernels.
type Cmp uint8

const (
	CmpEq Cmp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpNlt
	CmpNle
	CmpTrue
	CmpFalse
)

// CmpGreaterThan is the code used by the balanced-representation
// recentring kernels: it selects residues strictly above the bound.
const CmpGreaterThan = CmpNle

// Eval applies the comparison to v against bound.
func (c Cmp) Eval(v, bound uint64) bool {
	switch c {
	case CmpEq:
		return v == bound
	case CmpNe:
		return v != bound
	case CmpLt:
		return v < bound
	case CmpLe:
		return v <= bound
	case CmpNlt:
		return v >= bound
	case CmpNle:
		return v > bound
	case CmpTrue:
		return true
	default:
		return false
	}
}

// Array describes a device memory region: a byte offset into each
// lane's arena and a size in 64-bit words.
type Array struct {
	Offset      uint32
	Size        uint32
	SizeInBytes uint32
}

func newArray(offset, words uint32) Array {
	return Array{Offset: offset, Size: words, SizeInBytes: words * 8}
}

// Args is the argument block broadcast to every lane before a kernel
// launch.
type Args struct {
	A      Array
	B      Array
	C      Array
	Kernel OpCode

	Mod    uint64
	Scalar uint64
	Bound  uint64
	Cmp    Cmp

	ModFactor       uint32
	InputModFactor  uint32
	OutputModFactor uint32
}

// ArgsBuilder assembles an Args block with a fluent interface.
type ArgsBuilder struct {
	args Args
}

// NewArgs returns an empty builder.
func NewArgs() *ArgsBuilder {
	return &ArgsBuilder{}
}

// A sets the first input array.
func (b *ArgsBuilder) A(offset, words uint32) *ArgsBuilder {
	b.args.A = newArray(offset, words)
	return b
}

// B sets the second input array.
func (b *ArgsBuilder) B(offset, words uint32) *ArgsBuilder {
	b.args.B = newArray(offset, words)
	return b
}

// C sets the output array.
func (b *ArgsBuilder) C(offset, words uint32) *ArgsBuilder {
	b.args.C = newArray(offset, words)
	return b
}

// Kernel sets the kernel opcode.
func (b *ArgsBuilder) Kernel(op OpCode) *ArgsBuilder {
	b.args.Kernel = op
	return b
}

// Mod sets the modulus.
func (b *ArgsBuilder) Mod(mod uint64) *ArgsBuilder {
	b.args.Mod = mod
	return b
}

// Scalar sets the scalar operand.
func (b *ArgsBuilder) Scalar(scalar uint64) *ArgsBuilder {
	b.args.Scalar = scalar
	return b
}

// Bound sets the comparison bound.
func (b *ArgsBuilder) Bound(bound uint64) *ArgsBuilder {
	b.args.Bound = bound
	return b
}

// CmpCode sets the comparison code.
func (b *ArgsBuilder) CmpCode(cmp Cmp) *ArgsBuilder {
	b.args.Cmp = cmp
	return b
}

// ModFactor sets the generic factor argument (the butterfly span for
// NTT_STAGE).
func (b *ArgsBuilder) ModFactor(f uint32) *ArgsBuilder {
	b.args.ModFactor = f
	return b
}

// InFactor sets the input range factor (the twiddle stride for
// NTT_STAGE).
func (b *ArgsBuilder) InFactor(f uint32) *ArgsBuilder {
	b.args.InputModFactor = f
	return b
}

// OutFactor sets the output range factor (the direction flags for
// NTT_STAGE).
func (b *ArgsBuilder) OutFactor(f uint32) *ArgsBuilder {
	b.args.OutputModFactor = f
	return b
}

// Build returns the assembled argument block.
func (b *ArgsBuilder) Build() Args {
	return b.args
}

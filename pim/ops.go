package pim

import "fmt"

// Elementwise kernel launchers. All operands must come from the same
// Manager and have the same length; out may alias an input.

func checkOperands(vs ...*Vector) error {
	n := vs[0].Len()
	mgr := vs[0].mgr
	for _, v := range vs[1:] {
		if v.Len() != n {
			return fmt.Errorf("pim: operand length %d != %d", v.Len(), n)
		}
		if v.mgr != mgr {
			return fmt.Errorf("pim: operands from different managers")
		}
	}
	return nil
}

func binaryArgs(op OpCode, out, a, b *Vector, mod uint64) Args {
	return NewArgs().
		A(a.block.Offset, uint32(a.chunk)).
		B(b.block.Offset, uint32(b.chunk)).
		C(out.block.Offset, uint32(out.chunk)).
		Kernel(op).
		Mod(mod).
		Build()
}

func scalarArgs(op OpCode, out, a *Vector, scalar, mod uint64) Args {
	return NewArgs().
		A(a.block.Offset, uint32(a.chunk)).
		C(out.block.Offset, uint32(out.chunk)).
		Kernel(op).
		Mod(mod).
		Scalar(scalar).
		Build()
}

// EltwiseAddMod computes out[i] = (a[i] + b[i]) mod m.
func EltwiseAddMod(out, a, b *Vector, mod uint64) error {
	if err := checkOperands(out, a, b); err != nil {
		return err
	}
	args := binaryArgs(OpModAdd, out, a, b, mod)
	return out.mgr.RunKernel(args, []*Vector{a, b}, []*Vector{out})
}

// EltwiseAddScalarMod computes out[i] = (a[i] + scalar) mod m.
func EltwiseAddScalarMod(out, a *Vector, scalar, mod uint64) error {
	if err := checkOperands(out, a); err != nil {
		return err
	}
	args := scalarArgs(OpModAddScalar, out, a, scalar, mod)
	return out.mgr.RunKernel(args, []*Vector{a}, []*Vector{out})
}

// EltwiseSubMod computes out[i] = (a[i] - b[i]) mod m.
func EltwiseSubMod(out, a, b *Vector, mod uint64) error {
	if err := checkOperands(out, a, b); err != nil {
		return err
	}
	args := binaryArgs(OpModSub, out, a, b, mod)
	return out.mgr.RunKernel(args, []*Vector{a, b}, []*Vector{out})
}

// EltwiseSubScalarMod computes out[i] = (a[i] - scalar) mod m.
func EltwiseSubScalarMod(out, a *Vector, scalar, mod uint64) error {
	if err := checkOperands(out, a); err != nil {
		return err
	}
	args := scalarArgs(OpModSubScalar, out, a, scalar, mod)
	return out.mgr.RunKernel(args, []*Vector{a}, []*Vector{out})
}

// EltwiseMulMod computes out[i] = a[i]*b[i] mod m.
func EltwiseMulMod(out, a, b *Vector, mod uint64) error {
	if err := checkOperands(out, a, b); err != nil {
		return err
	}
	args := binaryArgs(OpModMul, out, a, b, mod)
	return out.mgr.RunKernel(args, []*Vector{a, b}, []*Vector{out})
}

// EltwiseScalarMulMod computes out[i] = a[i]*scalar mod m.
func EltwiseScalarMulMod(out, a *Vector, scalar, mod uint64) error {
	if err := checkOperands(out, a); err != nil {
		return err
	}
	args := scalarArgs(OpFMAMod, out, a, scalar, mod)
	return out.mgr.RunKernel(args, []*Vector{a}, []*Vector{out})
}

// EltwiseFMAMod computes out[i] = a[i]*scalar + addend[i] mod m; a nil
// addend degenerates to a scalar multiplication.
func EltwiseFMAMod(out, a, addend *Vector, scalar, mod uint64) error {
	if addend == nil {
		return EltwiseScalarMulMod(out, a, scalar, mod)
	}
	if err := checkOperands(out, a, addend); err != nil {
		return err
	}
	args := NewArgs().
		A(a.block.Offset, uint32(a.chunk)).
		B(addend.block.Offset, uint32(addend.chunk)).
		C(out.block.Offset, uint32(out.chunk)).
		Kernel(OpFMAMod).
		Mod(mod).
		Scalar(scalar).
		Build()
	return out.mgr.RunKernel(args, []*Vector{a, addend}, []*Vector{out})
}

// EltwiseReduceMod maps residues from [0, inFactor*m) to
// [0, outFactor*m).
func EltwiseReduceMod(out, a *Vector, mod uint64, inFactor, outFactor uint32) error {
	if err := checkOperands(out, a); err != nil {
		return err
	}
	args := NewArgs().
		A(a.block.Offset, uint32(a.chunk)).
		C(out.block.Offset, uint32(out.chunk)).
		Kernel(OpModReduce).
		Mod(mod).
		InFactor(inFactor).
		OutFactor(outFactor).
		Build()
	return out.mgr.RunKernel(args, []*Vector{a}, []*Vector{out})
}

// EltwiseConditionalAdd adds diff, without reduction, to the elements
// selected by cmp against bound.
func EltwiseConditionalAdd(out, a *Vector, cmp Cmp, bound, diff uint64) error {
	if err := checkOperands(out, a); err != nil {
		return err
	}
	args := NewArgs().
		A(a.block.Offset, uint32(a.chunk)).
		C(out.block.Offset, uint32(out.chunk)).
		Kernel(OpCmpAdd).
		CmpCode(cmp).
		Bound(bound).
		Scalar(diff).
		Build()
	return out.mgr.RunKernel(args, []*Vector{a}, []*Vector{out})
}

// EltwiseConditionalSubMod subtracts diff mod m from the elements
// selected by cmp against bound, after a single conditional reduction
// of the input.
func EltwiseConditionalSubMod(out, a *Vector, mod uint64, cmp Cmp, bound, diff uint64) error {
	if err := checkOperands(out, a); err != nil {
		return err
	}
	args := NewArgs().
		A(a.block.Offset, uint32(a.chunk)).
		C(out.block.Offset, uint32(out.chunk)).
		Kernel(OpCmpSubMod).
		Mod(mod).
		CmpCode(cmp).
		Bound(bound).
		Scalar(diff).
		Build()
	return out.mgr.RunKernel(args, []*Vector{a}, []*Vector{out})
}

package opt

// Instruction classification predicates shared by the passes.
//
// isDead and isSideEffect deliberately disagree about Load: an unused
// non-volatile load is dead, yet every load is treated as side-effecting
// when the question is whether CSE or forwarding may look across it. The
// asymmetry is conservative and intentional; do not reconcile the two.

import (
	"cull/internal/ir"
)

// isDead reports whether inst is eliminable because nothing uses its
// result. Control-flow, call-family and store instructions are never dead
// regardless of uses, and neither is a volatile load.
func isDead(inst *ir.Instruction) bool {
	switch inst.Op {
	case ir.Add, ir.FAdd, ir.Sub, ir.FSub, ir.Mul, ir.FMul,
		ir.UDiv, ir.SDiv, ir.FDiv, ir.URem, ir.SRem, ir.FRem, ir.FNeg,
		ir.Shl, ir.LShr, ir.AShr, ir.And, ir.Or, ir.Xor,
		ir.GetElementPtr,
		ir.Trunc, ir.ZExt, ir.SExt, ir.FPToUI, ir.FPToSI, ir.UIToFP,
		ir.SIToFP, ir.FPTrunc, ir.FPExt, ir.PtrToInt, ir.IntToPtr,
		ir.BitCast, ir.AddrSpaceCast,
		ir.ICmp, ir.FCmp,
		ir.ExtractElement, ir.InsertElement, ir.ShuffleVector,
		ir.ExtractValue, ir.InsertValue,
		ir.Alloca, ir.PHI, ir.Select:
		return !inst.HasUses()

	case ir.Load:
		if inst.Volatile {
			return false
		}
		return !inst.HasUses()

	case ir.Store, ir.Fence, ir.Call, ir.Br, ir.Ret, ir.Invoke,
		ir.Resume, ir.Unreachable:
		return false
	}
	return false
}

// isSideEffect reports whether inst has an observable effect that blocks
// reordering or merging across it.
func isSideEffect(inst *ir.Instruction) bool {
	switch inst.Op {
	case ir.Call, ir.Store, ir.Alloca, ir.Load, ir.Fence,
		ir.Br, ir.Invoke, ir.Resume, ir.Unreachable:
		return true
	default:
		return false
	}
}

// isLiteralMatch reports whether two instructions compute the same value by
// syntactic identity: same opcode, same result type, same operand count and
// pairwise-identical operand references, plus matching predicates for
// comparisons. Side-effecting instructions never match anything, themselves
// included.
func isLiteralMatch(i, j *ir.Instruction) bool {
	if i.Op == ir.ICmp || i.Op == ir.FCmp {
		if j.Op != i.Op || i.Pred != j.Pred {
			return false
		}
	}

	if isSideEffect(i) || isSideEffect(j) {
		return false
	}
	if i.Op != j.Op || i.Ty != j.Ty {
		return false
	}
	if len(i.Operands) != len(j.Operands) {
		return false
	}
	for n := range i.Operands {
		if i.Operands[n] != j.Operands[n] {
			return false
		}
	}
	return true
}

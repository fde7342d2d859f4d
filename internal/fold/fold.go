package fold

// The algebraic simplification oracle. Given an instruction, it returns an
// existing value that is provably equal to the instruction's result, or nil
// when no simplification applies. The oracle never creates instructions;
// every returned value is an operand, an interned constant, or another value
// already present in the module, so the caller can retarget uses and erase
// the instruction without inserting anything.

import (
	"cull/internal/ir"
)

// Instruction simplifies inst against the module's interned constants and
// the target data layout. A nil result means the instruction cannot be
// simplified.
func Instruction(inst *ir.Instruction, layout *ir.DataLayout) ir.Value {
	m := moduleOf(inst)
	if m == nil {
		return nil
	}

	switch inst.Op {
	case ir.Add, ir.Sub, ir.Mul, ir.UDiv, ir.SDiv, ir.URem, ir.SRem,
		ir.Shl, ir.LShr, ir.AShr, ir.And, ir.Or, ir.Xor:
		return foldIntBinary(m, inst)
	case ir.ICmp:
		return foldICmp(m, inst)
	case ir.Select:
		return foldSelect(inst)
	case ir.PHI:
		return foldPhi(inst)
	case ir.GetElementPtr:
		return foldGep(inst)
	case ir.BitCast, ir.Trunc, ir.ZExt, ir.SExt, ir.PtrToInt, ir.IntToPtr:
		return foldCast(m, inst, layout)
	default:
		return nil
	}
}

func moduleOf(inst *ir.Instruction) *ir.Module {
	bb := inst.Parent()
	if bb == nil || bb.Parent == nil {
		return nil
	}
	return bb.Parent.Parent
}

func foldIntBinary(m *ir.Module, inst *ir.Instruction) ir.Value {
	x, y := inst.Operands[0], inst.Operands[1]
	ty, ok := inst.Ty.(*ir.IntType)
	if !ok {
		return nil
	}
	cx, xConst := x.(*ir.ConstInt)
	cy, yConst := y.(*ir.ConstInt)

	// Both operands constant: evaluate at the type's width.
	if xConst && yConst {
		if v, ok := evalIntBinary(inst.Op, cx.V, cy.V, ty); ok {
			return m.ConstInt(ty, v)
		}
		return nil
	}

	switch inst.Op {
	case ir.Add:
		if xConst && cx.IsZero() {
			return y
		}
		if yConst && cy.IsZero() {
			return x
		}
	case ir.Sub:
		if yConst && cy.IsZero() {
			return x
		}
		if x == y {
			return m.ConstInt(ty, 0)
		}
	case ir.Mul:
		if xConst && cx.IsZero() || yConst && cy.IsZero() {
			return m.ConstInt(ty, 0)
		}
		if xConst && cx.V == 1 {
			return y
		}
		if yConst && cy.V == 1 {
			return x
		}
	case ir.UDiv, ir.SDiv:
		if yConst && cy.V == 1 {
			return x
		}
	case ir.URem, ir.SRem:
		if yConst && cy.V == 1 {
			return m.ConstInt(ty, 0)
		}
	case ir.Shl, ir.LShr, ir.AShr:
		if yConst && cy.IsZero() {
			return x
		}
		if xConst && cx.IsZero() {
			return m.ConstInt(ty, 0)
		}
	case ir.And:
		if x == y {
			return x
		}
		if xConst && cx.IsZero() || yConst && cy.IsZero() {
			return m.ConstInt(ty, 0)
		}
		if xConst && cx.IsAllOnes() {
			return y
		}
		if yConst && cy.IsAllOnes() {
			return x
		}
	case ir.Or:
		if x == y {
			return x
		}
		if xConst && cx.IsZero() {
			return y
		}
		if yConst && cy.IsZero() {
			return x
		}
	case ir.Xor:
		if x == y {
			return m.ConstInt(ty, 0)
		}
		if xConst && cx.IsZero() {
			return y
		}
		if yConst && cy.IsZero() {
			return x
		}
	}
	return nil
}

// evalIntBinary evaluates a binary opcode over two constants, wrapping the
// result to the type's width. Division and shifts with out-of-range right
// operands are left alone.
func evalIntBinary(op ir.Opcode, a, b int64, ty *ir.IntType) (int64, bool) {
	bits := ty.Bits
	ua, ub := toUnsigned(a, bits), toUnsigned(b, bits)

	switch op {
	case ir.Add:
		return a + b, true
	case ir.Sub:
		return a - b, true
	case ir.Mul:
		return a * b, true
	case ir.UDiv:
		if ub == 0 {
			return 0, false
		}
		return int64(ua / ub), true
	case ir.SDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.URem:
		if ub == 0 {
			return 0, false
		}
		return int64(ua % ub), true
	case ir.SRem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case ir.Shl:
		if ub >= uint64(bits) {
			return 0, false
		}
		return a << ub, true
	case ir.LShr:
		if ub >= uint64(bits) {
			return 0, false
		}
		return int64(ua >> ub), true
	case ir.AShr:
		if ub >= uint64(bits) {
			return 0, false
		}
		return a >> ub, true
	case ir.And:
		return a & b, true
	case ir.Or:
		return a | b, true
	case ir.Xor:
		return a ^ b, true
	}
	return 0, false
}

func foldICmp(m *ir.Module, inst *ir.Instruction) ir.Value {
	x, y := inst.Operands[0], inst.Operands[1]

	// Reflexive predicates decide comparisons of a value against itself.
	if x == y {
		switch inst.Pred {
		case ir.IntEQ, ir.IntUGE, ir.IntULE, ir.IntSGE, ir.IntSLE:
			return m.Bool(true)
		case ir.IntNE, ir.IntUGT, ir.IntULT, ir.IntSGT, ir.IntSLT:
			return m.Bool(false)
		}
	}

	cx, xConst := x.(*ir.ConstInt)
	cy, yConst := y.(*ir.ConstInt)
	if !xConst || !yConst {
		return nil
	}
	bits := cx.Ty.Bits
	ua, ub := toUnsigned(cx.V, bits), toUnsigned(cy.V, bits)

	var r bool
	switch inst.Pred {
	case ir.IntEQ:
		r = cx.V == cy.V
	case ir.IntNE:
		r = cx.V != cy.V
	case ir.IntUGT:
		r = ua > ub
	case ir.IntUGE:
		r = ua >= ub
	case ir.IntULT:
		r = ua < ub
	case ir.IntULE:
		r = ua <= ub
	case ir.IntSGT:
		r = cx.V > cy.V
	case ir.IntSGE:
		r = cx.V >= cy.V
	case ir.IntSLT:
		r = cx.V < cy.V
	case ir.IntSLE:
		r = cx.V <= cy.V
	default:
		return nil
	}
	return m.Bool(r)
}

func foldSelect(inst *ir.Instruction) ir.Value {
	cond, ifTrue, ifFalse := inst.Operands[0], inst.Operands[1], inst.Operands[2]
	if c, ok := cond.(*ir.ConstInt); ok {
		if c.IsZero() {
			return ifFalse
		}
		return ifTrue
	}
	if ifTrue == ifFalse {
		return ifTrue
	}
	return nil
}

// foldPhi collapses a phi whose incoming values are all the same reference
// (ignoring self-references through back edges).
func foldPhi(inst *ir.Instruction) ir.Value {
	var single ir.Value
	for _, v := range inst.Operands {
		if v == ir.Value(inst) {
			continue
		}
		if single == nil {
			single = v
			continue
		}
		if v != single {
			return nil
		}
	}
	return single
}

// foldGep drops address computations whose indices are all zero.
func foldGep(inst *ir.Instruction) ir.Value {
	for _, idx := range inst.Operands[1:] {
		c, ok := idx.(*ir.ConstInt)
		if !ok || !c.IsZero() {
			return nil
		}
	}
	return inst.Operands[0]
}

func foldCast(m *ir.Module, inst *ir.Instruction, layout *ir.DataLayout) ir.Value {
	x := inst.Operands[0]

	// Casting to the operand's own type is a no-op.
	if x.Type() == inst.Ty {
		return x
	}

	c, ok := x.(*ir.ConstInt)
	if !ok {
		if _, isNull := x.(*ir.ConstNull); isNull && inst.Op == ir.PtrToInt {
			if ty, ok := inst.Ty.(*ir.IntType); ok && ty.Bits <= layout.PointerBits {
				return m.ConstInt(ty, 0)
			}
		}
		return nil
	}

	ty, ok := inst.Ty.(*ir.IntType)
	if !ok {
		return nil
	}
	switch inst.Op {
	case ir.Trunc, ir.ZExt:
		return m.ConstInt(ty, int64(toUnsigned(c.V, c.Ty.Bits)))
	case ir.SExt:
		return m.ConstInt(ty, c.V)
	default:
		return nil
	}
}

func toUnsigned(v int64, bits int) uint64 {
	if bits <= 0 || bits >= 64 {
		return uint64(v)
	}
	return uint64(v) & (1<<uint(bits) - 1)
}

package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cull/internal/ir"
)

// testFunction builds `define i32 @f(i32 %a, i32 %b)` with a single entry
// block, returning the function and its parameters.
func testFunction(m *ir.Module) (*ir.Function, *ir.Param, *ir.Param) {
	fn := &ir.Function{FName: "f", RetType: ir.I32, Parent: m}
	a := &ir.Param{PName: "a", Ty: ir.I32, Parent: fn}
	b := &ir.Param{PName: "b", Ty: ir.I32, Parent: fn}
	fn.Params = []*ir.Param{a, b}
	entry := &ir.BasicBlock{LName: "entry", Parent: fn}
	fn.Blocks = []*ir.BasicBlock{entry}
	m.Funcs = append(m.Funcs, fn)
	return fn, a, b
}

func TestUseListsTrackOperands(t *testing.T) {
	m := ir.NewModule("t")
	fn, a, b := testFunction(m)
	entry := fn.Entry()

	add := &ir.Instruction{Op: ir.Add, Ty: ir.I32, IName: "x"}
	add.AppendOperand(a)
	add.AppendOperand(b)
	entry.Append(add)

	mul := &ir.Instruction{Op: ir.Mul, Ty: ir.I32, IName: "y"}
	mul.AppendOperand(add)
	mul.AppendOperand(add)
	entry.Append(mul)

	require.True(t, add.HasUses())
	assert.Len(t, add.Uses(), 2)
	assert.Equal(t, mul, add.Uses()[0].User)
	assert.Equal(t, 0, add.Uses()[0].Index)
	assert.Equal(t, 1, add.Uses()[1].Index)

	// Parameters are not instructions; they carry no use list, and the
	// instruction using them has none of its own.
	assert.False(t, mul.HasUses())
}

func TestAppendDoesNotDuplicateUses(t *testing.T) {
	m := ir.NewModule("t")
	fn, a, b := testFunction(m)
	entry := fn.Entry()

	add := &ir.Instruction{Op: ir.Add, Ty: ir.I32, IName: "x"}
	add.AppendOperand(a)
	add.AppendOperand(b)
	entry.Append(add)

	// Operands attached before insertion: exactly one use record per slot.
	before := &ir.Instruction{Op: ir.Mul, Ty: ir.I32, IName: "y"}
	before.AppendOperand(add)
	entry.Append(before)
	assert.Len(t, add.Uses(), 1)

	// Operands attached after insertion behave identically.
	after := &ir.Instruction{Op: ir.Sub, Ty: ir.I32, IName: "z"}
	entry.Append(after)
	after.AppendOperand(add)
	after.AppendOperand(add)
	assert.Len(t, add.Uses(), 3)

	// The list drains completely, so retargeting terminates and erasure
	// sees an accurate count.
	add.ReplaceAllUsesWith(a)
	assert.False(t, add.HasUses())
}

func TestReplaceAllUsesWith(t *testing.T) {
	m := ir.NewModule("t")
	fn, a, b := testFunction(m)
	entry := fn.Entry()

	add := &ir.Instruction{Op: ir.Add, Ty: ir.I32, IName: "x"}
	add.AppendOperand(a)
	add.AppendOperand(b)
	entry.Append(add)

	use1 := &ir.Instruction{Op: ir.Mul, Ty: ir.I32, IName: "y"}
	use1.AppendOperand(add)
	use1.AppendOperand(b)
	entry.Append(use1)

	use2 := &ir.Instruction{Op: ir.Sub, Ty: ir.I32, IName: "z"}
	use2.AppendOperand(add)
	use2.AppendOperand(add)
	entry.Append(use2)

	add.ReplaceAllUsesWith(a)

	assert.False(t, add.HasUses())
	assert.Equal(t, ir.Value(a), use1.Operands[0])
	assert.Equal(t, ir.Value(a), use2.Operands[0])
	assert.Equal(t, ir.Value(a), use2.Operands[1])
}

func TestEraseFromParent(t *testing.T) {
	m := ir.NewModule("t")
	fn, a, b := testFunction(m)
	entry := fn.Entry()

	add := &ir.Instruction{Op: ir.Add, Ty: ir.I32, IName: "x"}
	add.AppendOperand(a)
	add.AppendOperand(b)
	entry.Append(add)

	dead := &ir.Instruction{Op: ir.Mul, Ty: ir.I32, IName: "y"}
	dead.AppendOperand(add)
	dead.AppendOperand(add)
	entry.Append(dead)

	require.Len(t, add.Uses(), 2)
	dead.EraseFromParent()

	assert.Nil(t, dead.Parent())
	assert.False(t, add.HasUses())
	assert.Equal(t, []*ir.Instruction{add}, entry.Insts)
}

func TestEraseWithLiveUsesPanics(t *testing.T) {
	m := ir.NewModule("t")
	fn, a, b := testFunction(m)
	entry := fn.Entry()

	add := &ir.Instruction{Op: ir.Add, Ty: ir.I32, IName: "x"}
	add.AppendOperand(a)
	add.AppendOperand(b)
	entry.Append(add)

	user := &ir.Instruction{Op: ir.Mul, Ty: ir.I32, IName: "y"}
	user.AppendOperand(add)
	user.AppendOperand(b)
	entry.Append(user)

	assert.Panics(t, func() { add.EraseFromParent() })
}

func TestConstantInterning(t *testing.T) {
	m := ir.NewModule("t")

	assert.Same(t, m.ConstInt(ir.I32, 7), m.ConstInt(ir.I32, 7))
	assert.NotSame(t, m.ConstInt(ir.I32, 7), m.ConstInt(ir.I64, 7))
	assert.NotSame(t, m.ConstInt(ir.I32, 7), m.ConstInt(ir.I32, 8))

	// Values are stored truncated to the type width.
	assert.Same(t, m.ConstInt(ir.I8, 256+5), m.ConstInt(ir.I8, 5))

	assert.Same(t, m.Bool(true), m.ConstInt(ir.I1, 1))
	assert.Same(t, m.Null(), m.Null())
	assert.Same(t, m.Undef(ir.I32), m.Undef(ir.I32))
	assert.NotSame(t, m.Undef(ir.I32), m.Undef(ir.I64))
}

func TestTypeInterning(t *testing.T) {
	assert.Same(t, ir.IntTy(32), ir.IntTy(32))
	assert.Same(t, ir.I32, ir.IntTy(32))
	assert.NotSame(t, ir.IntTy(32), ir.IntTy(33))
}

func TestValueNames(t *testing.T) {
	m := ir.NewModule("t")

	assert.Equal(t, "true", m.Bool(true).Name())
	assert.Equal(t, "false", m.Bool(false).Name())
	assert.Equal(t, "42", m.ConstInt(ir.I32, 42).Name())
	assert.Equal(t, "-1", m.ConstInt(ir.I32, -1).Name())
	assert.Equal(t, "null", m.Null().Name())
	assert.Equal(t, "undef", m.Undef(ir.I32).Name())
	assert.Equal(t, "1.0", m.ConstFloat(ir.Double, 1).Name())
	assert.Equal(t, "2.5", m.ConstFloat(ir.Double, 2.5).Name())
}

func TestComputeCFGEdges(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{FName: "f", RetType: ir.Void, Parent: m}
	cond := &ir.Param{PName: "c", Ty: ir.I1, Parent: fn}
	fn.Params = []*ir.Param{cond}

	entry := &ir.BasicBlock{LName: "entry", Parent: fn}
	left := &ir.BasicBlock{LName: "left", Parent: fn}
	right := &ir.BasicBlock{LName: "right", Parent: fn}
	fn.Blocks = []*ir.BasicBlock{entry, left, right}

	br := &ir.Instruction{Op: ir.Br, Ty: ir.Void}
	br.AppendOperand(cond)
	br.AppendOperand(left)
	br.AppendOperand(right)
	entry.Append(br)

	retL := &ir.Instruction{Op: ir.Ret, Ty: ir.Void}
	left.Append(retL)
	retR := &ir.Instruction{Op: ir.Ret, Ty: ir.Void}
	right.Append(retR)

	fn.ComputeCFGEdges()

	assert.Equal(t, []*ir.BasicBlock{left, right}, entry.Succs)
	assert.Equal(t, []*ir.BasicBlock{entry}, left.Preds)
	assert.Equal(t, []*ir.BasicBlock{entry}, right.Preds)
	assert.Equal(t, []*ir.BasicBlock{left, right}, br.Successors())
}

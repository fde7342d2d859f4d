package fold_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cull/internal/fold"
	"cull/internal/ir"
)

// env is a module with one open block to append instructions into.
type env struct {
	m     *ir.Module
	entry *ir.BasicBlock
	a, b  *ir.Param
	next  int
}

func newEnv() *env {
	m := ir.NewModule("t")
	fn := &ir.Function{FName: "f", RetType: ir.I32, Parent: m}
	a := &ir.Param{PName: "a", Ty: ir.I32, Parent: fn}
	b := &ir.Param{PName: "b", Ty: ir.I32, Parent: fn}
	fn.Params = []*ir.Param{a, b}
	entry := &ir.BasicBlock{LName: "entry", Parent: fn}
	fn.Blocks = []*ir.BasicBlock{entry}
	m.Funcs = append(m.Funcs, fn)
	return &env{m: m, entry: entry, a: a, b: b}
}

func (e *env) inst(op ir.Opcode, ty ir.Type, operands ...ir.Value) *ir.Instruction {
	e.next++
	i := &ir.Instruction{Op: op, Ty: ty, IName: "t" + strconv.Itoa(e.next)}
	for _, v := range operands {
		i.AppendOperand(v)
	}
	e.entry.Append(i)
	return i
}

func (e *env) c(v int64) *ir.ConstInt { return e.m.ConstInt(ir.I32, v) }

func (e *env) fold(i *ir.Instruction) ir.Value {
	return fold.Instruction(i, e.m.Layout)
}

func TestFoldConstantArithmetic(t *testing.T) {
	e := newEnv()

	assert.Equal(t, ir.Value(e.c(7)), e.fold(e.inst(ir.Add, ir.I32, e.c(3), e.c(4))))
	assert.Equal(t, ir.Value(e.c(-1)), e.fold(e.inst(ir.Sub, ir.I32, e.c(3), e.c(4))))
	assert.Equal(t, ir.Value(e.c(12)), e.fold(e.inst(ir.Mul, ir.I32, e.c(3), e.c(4))))
	assert.Equal(t, ir.Value(e.c(5)), e.fold(e.inst(ir.SDiv, ir.I32, e.c(20), e.c(4))))
	assert.Equal(t, ir.Value(e.c(2)), e.fold(e.inst(ir.SRem, ir.I32, e.c(20), e.c(6))))
	assert.Equal(t, ir.Value(e.c(16)), e.fold(e.inst(ir.Shl, ir.I32, e.c(1), e.c(4))))
	assert.Equal(t, ir.Value(e.c(4)), e.fold(e.inst(ir.And, ir.I32, e.c(6), e.c(12))))
	assert.Equal(t, ir.Value(e.c(14)), e.fold(e.inst(ir.Or, ir.I32, e.c(6), e.c(12))))
	assert.Equal(t, ir.Value(e.c(10)), e.fold(e.inst(ir.Xor, ir.I32, e.c(6), e.c(12))))
}

func TestFoldDivisionByZeroIsLeftAlone(t *testing.T) {
	e := newEnv()

	assert.Nil(t, e.fold(e.inst(ir.SDiv, ir.I32, e.c(20), e.c(0))))
	assert.Nil(t, e.fold(e.inst(ir.UDiv, ir.I32, e.c(20), e.c(0))))
	assert.Nil(t, e.fold(e.inst(ir.URem, ir.I32, e.c(20), e.c(0))))
	// Shift counts at or above the width do not fold either.
	assert.Nil(t, e.fold(e.inst(ir.Shl, ir.I32, e.c(1), e.c(32))))
}

func TestFoldWrapsToWidth(t *testing.T) {
	e := newEnv()
	c := func(v int64) *ir.ConstInt { return e.m.ConstInt(ir.I8, v) }

	v := e.fold(e.inst(ir.Add, ir.I8, c(200), c(100)))
	require.NotNil(t, v)
	assert.Equal(t, ir.Value(c(44)), v)
}

func TestFoldIdentities(t *testing.T) {
	e := newEnv()
	a, b := ir.Value(e.a), ir.Value(e.b)

	assert.Equal(t, a, e.fold(e.inst(ir.Add, ir.I32, a, e.c(0))))
	assert.Equal(t, a, e.fold(e.inst(ir.Add, ir.I32, e.c(0), a)))
	assert.Equal(t, a, e.fold(e.inst(ir.Sub, ir.I32, a, e.c(0))))
	assert.Equal(t, ir.Value(e.c(0)), e.fold(e.inst(ir.Sub, ir.I32, a, a)))
	assert.Equal(t, ir.Value(e.c(0)), e.fold(e.inst(ir.Mul, ir.I32, a, e.c(0))))
	assert.Equal(t, a, e.fold(e.inst(ir.Mul, ir.I32, a, e.c(1))))
	assert.Equal(t, a, e.fold(e.inst(ir.SDiv, ir.I32, a, e.c(1))))
	assert.Equal(t, ir.Value(e.c(0)), e.fold(e.inst(ir.SRem, ir.I32, a, e.c(1))))
	assert.Equal(t, a, e.fold(e.inst(ir.Shl, ir.I32, a, e.c(0))))
	assert.Equal(t, ir.Value(e.c(0)), e.fold(e.inst(ir.LShr, ir.I32, e.c(0), a)))
	assert.Equal(t, a, e.fold(e.inst(ir.And, ir.I32, a, a)))
	assert.Equal(t, ir.Value(e.c(0)), e.fold(e.inst(ir.And, ir.I32, a, e.c(0))))
	assert.Equal(t, a, e.fold(e.inst(ir.And, ir.I32, a, e.c(-1))))
	assert.Equal(t, a, e.fold(e.inst(ir.Or, ir.I32, a, a)))
	assert.Equal(t, a, e.fold(e.inst(ir.Or, ir.I32, a, e.c(0))))
	assert.Equal(t, ir.Value(e.c(0)), e.fold(e.inst(ir.Xor, ir.I32, a, a)))
	assert.Equal(t, a, e.fold(e.inst(ir.Xor, ir.I32, e.c(0), a)))

	// No identity applies to two unrelated values.
	assert.Nil(t, e.fold(e.inst(ir.Add, ir.I32, a, b)))
}

func TestFoldICmp(t *testing.T) {
	e := newEnv()
	a := ir.Value(e.a)

	cmp := func(pred ir.CmpPred, x, y ir.Value) *ir.Instruction {
		i := e.inst(ir.ICmp, ir.I1, x, y)
		i.Pred = pred
		return i
	}

	// Reflexive predicates fold without constants.
	assert.Equal(t, ir.Value(e.m.Bool(true)), e.fold(cmp(ir.IntEQ, a, a)))
	assert.Equal(t, ir.Value(e.m.Bool(true)), e.fold(cmp(ir.IntSLE, a, a)))
	assert.Equal(t, ir.Value(e.m.Bool(false)), e.fold(cmp(ir.IntNE, a, a)))
	assert.Equal(t, ir.Value(e.m.Bool(false)), e.fold(cmp(ir.IntULT, a, a)))
	assert.Nil(t, e.fold(cmp(ir.IntEQ, a, ir.Value(e.b))))

	// Constant comparisons respect signedness.
	assert.Equal(t, ir.Value(e.m.Bool(true)), e.fold(cmp(ir.IntSLT, e.c(-1), e.c(1))))
	assert.Equal(t, ir.Value(e.m.Bool(false)), e.fold(cmp(ir.IntULT, e.c(-1), e.c(1))))
	assert.Equal(t, ir.Value(e.m.Bool(true)), e.fold(cmp(ir.IntUGT, e.c(-1), e.c(1))))
	assert.Equal(t, ir.Value(e.m.Bool(true)), e.fold(cmp(ir.IntEQ, e.c(5), e.c(5))))
}

func TestFoldSelect(t *testing.T) {
	e := newEnv()
	a, b := ir.Value(e.a), ir.Value(e.b)

	sel := e.inst(ir.Select, ir.I32, e.m.Bool(true), a, b)
	assert.Equal(t, a, e.fold(sel))

	sel = e.inst(ir.Select, ir.I32, e.m.Bool(false), a, b)
	assert.Equal(t, b, e.fold(sel))

	cond := e.inst(ir.ICmp, ir.I1, a, b)
	cond.Pred = ir.IntSLT
	sel = e.inst(ir.Select, ir.I32, cond, a, a)
	assert.Equal(t, a, e.fold(sel))

	sel = e.inst(ir.Select, ir.I32, cond, a, b)
	assert.Nil(t, e.fold(sel))
}

func TestFoldGep(t *testing.T) {
	e := newEnv()
	p := &ir.Param{PName: "p", Ty: ir.Ptr}

	gep := e.inst(ir.GetElementPtr, ir.Ptr, p, e.c(0), e.m.ConstInt(ir.I64, 0))
	gep.Elem = ir.I32
	assert.Equal(t, ir.Value(p), e.fold(gep))

	gep = e.inst(ir.GetElementPtr, ir.Ptr, p, e.c(1))
	gep.Elem = ir.I32
	assert.Nil(t, e.fold(gep))
}

func TestFoldCasts(t *testing.T) {
	e := newEnv()

	// Same-type casts collapse to the operand.
	bc := e.inst(ir.BitCast, ir.I32, ir.Value(e.a))
	assert.Equal(t, ir.Value(e.a), e.fold(bc))

	zext := e.inst(ir.ZExt, ir.I64, e.m.ConstInt(ir.I8, -1))
	assert.Equal(t, ir.Value(e.m.ConstInt(ir.I64, 255)), e.fold(zext))

	sext := e.inst(ir.SExt, ir.I64, e.m.ConstInt(ir.I8, -1))
	assert.Equal(t, ir.Value(e.m.ConstInt(ir.I64, -1)), e.fold(sext))

	trunc := e.inst(ir.Trunc, ir.I8, e.c(257))
	assert.Equal(t, ir.Value(e.m.ConstInt(ir.I8, 1)), e.fold(trunc))

	p2i := e.inst(ir.PtrToInt, ir.I64, e.m.Null())
	assert.Equal(t, ir.Value(e.m.ConstInt(ir.I64, 0)), e.fold(p2i))

	// No fold for a non-constant operand of a widening cast.
	assert.Nil(t, e.fold(e.inst(ir.ZExt, ir.I64, ir.Value(e.a))))
}

func TestFoldPhi(t *testing.T) {
	e := newEnv()
	a := ir.Value(e.a)

	phi := e.inst(ir.PHI, ir.I32, a, a)
	assert.Equal(t, a, e.fold(phi))

	// Self-references through a back edge are ignored.
	loop := e.inst(ir.PHI, ir.I32, a)
	loop.AppendOperand(loop)
	assert.Equal(t, a, e.fold(loop))

	mixed := e.inst(ir.PHI, ir.I32, a, ir.Value(e.b))
	assert.Nil(t, e.fold(mixed))
}

func TestFoldDetachedInstruction(t *testing.T) {
	e := newEnv()
	free := &ir.Instruction{Op: ir.Add, Ty: ir.I32}
	free.AppendOperand(e.c(1))
	free.AppendOperand(e.c(2))

	assert.Nil(t, fold.Instruction(free, e.m.Layout))
}

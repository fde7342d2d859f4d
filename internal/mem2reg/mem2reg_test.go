package mem2reg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cull/internal/ir"
	"cull/internal/mem2reg"
	"cull/internal/parser"
	"cull/internal/stats"
)

func parse(t *testing.T, source string) *ir.Module {
	t.Helper()
	stats.Reset()
	m, err := parser.ParseSource("test.ir", source)
	require.NoError(t, err)
	return m
}

func opcodes(fn *ir.Function) []ir.Opcode {
	var out []ir.Opcode
	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			out = append(out, inst.Op)
		}
	}
	return out
}

func TestPromoteSingleStoreSlot(t *testing.T) {
	m := parse(t, `
define i32 @f(i32 %a, i1 %c) {
entry:
  %slot = alloca i32
  store i32 %a, ptr %slot
  br i1 %c, label %then, label %done
then:
  %v1 = load i32, ptr %slot
  br label %done
done:
  %v2 = load i32, ptr %slot
  %r = phi i32 [ %v1, %then ], [ %v2, %entry ]
  ret i32 %r
}
`)

	require.True(t, mem2reg.Run(m))

	fn := m.Funcs[0]
	assert.NotContains(t, opcodes(fn), ir.Alloca)
	assert.NotContains(t, opcodes(fn), ir.Load)
	assert.NotContains(t, opcodes(fn), ir.Store)

	// Both loads collapse onto the stored parameter.
	phi := fn.Block("done").Insts[0]
	require.Equal(t, ir.PHI, phi.Op)
	assert.Equal(t, "%a", phi.Operands[0].Name())
	assert.Equal(t, "%a", phi.Operands[1].Name())
}

func TestPromoteSingleBlockSlot(t *testing.T) {
	m := parse(t, `
define i32 @f(i32 %a, i32 %b) {
entry:
  %slot = alloca i32
  store i32 %a, ptr %slot
  %v1 = load i32, ptr %slot
  store i32 %b, ptr %slot
  %v2 = load i32, ptr %slot
  %r = add i32 %v1, %v2
  ret i32 %r
}
`)

	require.True(t, mem2reg.Run(m))

	entry := m.Funcs[0].Entry()
	require.Len(t, entry.Insts, 2)
	r := entry.Insts[0]
	// Each load sees the store that most recently preceded it.
	assert.Equal(t, "%a", r.Operands[0].Name())
	assert.Equal(t, "%b", r.Operands[1].Name())
}

func TestPromoteNeverStoredSlot(t *testing.T) {
	m := parse(t, `
define i32 @f(i1 %c) {
entry:
  %slot = alloca i32
  br i1 %c, label %then, label %done
then:
  br label %done
done:
  %v = load i32, ptr %slot
  ret i32 %v
}
`)

	require.True(t, mem2reg.Run(m))

	done := m.Funcs[0].Block("done")
	require.Len(t, done.Insts, 1)
	assert.Equal(t, "undef", done.Insts[0].Operands[0].Name())
}

func TestEscapedSlotIsNotPromoted(t *testing.T) {
	m := parse(t, `
declare void @ext(ptr)

define i32 @f(i32 %a) {
entry:
  %slot = alloca i32
  store i32 %a, ptr %slot
  call void @ext(ptr %slot)
  %v = load i32, ptr %slot
  ret i32 %v
}
`)

	assert.False(t, mem2reg.Run(m))
	assert.Contains(t, opcodes(m.Funcs[1]), ir.Alloca)
}

func TestVolatileAccessBlocksPromotion(t *testing.T) {
	m := parse(t, `
define i32 @f(i32 %a) {
entry:
  %slot = alloca i32
  store i32 %a, ptr %slot
  %v = load volatile i32, ptr %slot
  ret i32 %v
}
`)

	assert.False(t, mem2reg.Run(m))
}

func TestStoreNotDominatingLoadsBlocksPromotion(t *testing.T) {
	// The store sits in one arm of a diamond; a load in the merge block
	// would need a phi, which this promotion does not build.
	m := parse(t, `
define i32 @f(i32 %a, i1 %c) {
entry:
  %slot = alloca i32
  br i1 %c, label %then, label %done
then:
  store i32 %a, ptr %slot
  br label %done
done:
  %v = load i32, ptr %slot
  ret i32 %v
}
`)

	assert.False(t, mem2reg.Run(m))
	assert.Contains(t, opcodes(m.Funcs[0]), ir.Alloca)
}

func TestMismatchedAccessTypeBlocksPromotion(t *testing.T) {
	m := parse(t, `
define i64 @f(i32 %a) {
entry:
  %slot = alloca i32
  store i32 %a, ptr %slot
  %v = load i64, ptr %slot
  ret i64 %v
}
`)

	assert.False(t, mem2reg.Run(m))
}

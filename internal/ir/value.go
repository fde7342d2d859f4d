package ir

import (
	"strconv"
	"strings"
)

// Value is anything an instruction operand can reference: another
// instruction's result, a function parameter, a constant, a global, or a
// basic block label. Operand comparison throughout the optimizer is
// reference comparison on Values, which is why constants are interned per
// module (two textual `i32 7` operands resolve to the same *ConstInt).
type Value interface {
	Type() Type
	Name() string
}

// Param is a function parameter.
type Param struct {
	PName  string
	Ty     Type
	Parent *Function
}

func (p *Param) Type() Type   { return p.Ty }
func (p *Param) Name() string { return "%" + p.PName }

// ConstInt is an integer constant, including booleans (i1).
type ConstInt struct {
	Ty *IntType
	V  int64
}

func (c *ConstInt) Type() Type { return c.Ty }

func (c *ConstInt) Name() string {
	if c.Ty.Bits == 1 {
		if c.V != 0 {
			return "true"
		}
		return "false"
	}
	return strconv.FormatInt(c.V, 10)
}

// IsZero reports whether the constant is 0 (or false).
func (c *ConstInt) IsZero() bool { return c.V == 0 }

// IsAllOnes reports whether every bit of the constant is set at its width.
func (c *ConstInt) IsAllOnes() bool {
	return truncateInt(c.V, c.Ty.Bits) == truncateInt(-1, c.Ty.Bits)
}

// ConstFloat is a floating-point constant.
type ConstFloat struct {
	Ty *FloatType
	V  float64
}

func (c *ConstFloat) Type() Type { return c.Ty }

// Name always includes a decimal point so the printed constant lexes as a
// float again.
func (c *ConstFloat) Name() string {
	s := strconv.FormatFloat(c.V, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ConstNull is the null pointer constant.
type ConstNull struct{}

func (c *ConstNull) Type() Type   { return Ptr }
func (c *ConstNull) Name() string { return "null" }

// Undef is an undefined value of a given type. It appears only when memory
// promotion reads an alloca before any store reaches it.
type Undef struct {
	Ty Type
}

func (u *Undef) Type() Type   { return u.Ty }
func (u *Undef) Name() string { return "undef" }

// Global is a module-level variable or a function symbol referenced by
// calls. Globals always have pointer type; ValueType is the pointee.
type Global struct {
	GName     string
	ValueType Type
}

func (g *Global) Type() Type   { return Ptr }
func (g *Global) Name() string { return "@" + g.GName }

// truncateInt wraps v to the two's-complement range of the given bit width.
func truncateInt(v int64, bits int) int64 {
	if bits <= 0 || bits >= 64 {
		return v
	}
	shift := uint(64 - bits)
	return v << shift >> shift
}

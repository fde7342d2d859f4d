package ir

import "fmt"

// Types are interned: every distinct type has exactly one instance per
// process, so type equality anywhere in the optimizer is pointer equality.

// Type is the result type of a value or instruction.
type Type interface {
	String() string
	typ()
}

// IntType is an arbitrary-width integer type (i1, i8, i32, i64, ...).
type IntType struct {
	Bits int
}

// FloatType is a floating-point type (float = 32 bits, double = 64 bits).
type FloatType struct {
	Bits int
}

// PointerType is the opaque pointer type. Pointers do not carry a pointee
// type; instructions that need one (load, alloca, getelementptr) record it
// themselves.
type PointerType struct{}

// VoidType is the result type of instructions that produce no value.
type VoidType struct{}

// LabelType is the type of basic blocks used as branch targets.
type LabelType struct{}

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }

func (t *FloatType) String() string {
	if t.Bits == 32 {
		return "float"
	}
	return "double"
}

func (t *PointerType) String() string { return "ptr" }
func (t *VoidType) String() string    { return "void" }
func (t *LabelType) String() string   { return "label" }

func (*IntType) typ()     {}
func (*FloatType) typ()   {}
func (*PointerType) typ() {}
func (*VoidType) typ()    {}
func (*LabelType) typ()   {}

// Singleton instances for the non-parameterized types.
var (
	Void  = &VoidType{}
	Ptr   = &PointerType{}
	Label = &LabelType{}

	Float  = &FloatType{Bits: 32}
	Double = &FloatType{Bits: 64}
)

var intTypes = map[int]*IntType{}

// IntTy returns the interned integer type of the given bit width.
func IntTy(bits int) *IntType {
	if t, ok := intTypes[bits]; ok {
		return t
	}
	t := &IntType{Bits: bits}
	intTypes[bits] = t
	return t
}

// Common integer widths.
var (
	I1  = IntTy(1)
	I8  = IntTy(8)
	I16 = IntTy(16)
	I32 = IntTy(32)
	I64 = IntTy(64)
)

// DataLayout carries the target-specific type layout facts consumed by the
// simplification oracle: pointer width and scalar store sizes.
type DataLayout struct {
	PointerBits int
}

// DefaultLayout assumes 64-bit pointers.
func DefaultLayout() *DataLayout {
	return &DataLayout{PointerBits: 64}
}

// TypeBits returns the bit width of a scalar type, or 0 for types without a
// fixed scalar width (void, label).
func (dl *DataLayout) TypeBits(t Type) int {
	switch t := t.(type) {
	case *IntType:
		return t.Bits
	case *FloatType:
		return t.Bits
	case *PointerType:
		return dl.PointerBits
	default:
		return 0
	}
}

package ir

// Textual serialization of a module. The output is accepted verbatim by the
// loader, so optimize-print-parse round trips are lossless.

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders a module into its textual form.
type Printer struct {
	out strings.Builder
}

// WriteModule serializes m to w.
func WriteModule(w io.Writer, m *Module) error {
	_, err := io.WriteString(w, ModuleString(m))
	return err
}

// ModuleString returns the textual form of m.
func ModuleString(m *Module) string {
	p := &Printer{}
	p.printModule(m)
	return p.out.String()
}

func (p *Printer) writef(format string, args ...interface{}) {
	fmt.Fprintf(&p.out, format, args...)
}

func (p *Printer) printModule(m *Module) {
	p.writef("; module %s\n", m.Name)
	if m.Layout.PointerBits != 64 {
		p.writef("target datalayout = \"p:%d\"\n", m.Layout.PointerBits)
	}
	p.writef("\n")

	for _, g := range m.Globals {
		if m.funcSymbol(g) {
			continue
		}
		p.writef("@%s = global %s\n", g.GName, g.ValueType)
	}

	for _, f := range m.Funcs {
		p.writef("\n")
		p.printFunction(f)
	}
}

// funcSymbol reports whether g names a declared or defined function rather
// than a module global.
func (m *Module) funcSymbol(g *Global) bool {
	for _, f := range m.Funcs {
		if f.FName == g.GName {
			return true
		}
	}
	return false
}

func (p *Printer) printFunction(f *Function) {
	params := make([]string, len(f.Params))
	for i, pr := range f.Params {
		params[i] = fmt.Sprintf("%s %s", pr.Ty, pr.Name())
	}

	if f.IsDecl() {
		p.writef("declare %s @%s(%s)\n", f.RetType, f.FName, strings.Join(params, ", "))
		return
	}

	p.writef("define %s @%s(%s) {\n", f.RetType, f.FName, strings.Join(params, ", "))
	for _, bb := range f.Blocks {
		p.writef("%s:\n", bb.LName)
		for _, inst := range bb.Insts {
			p.writef("  %s\n", writeInstruction(inst))
		}
	}
	p.writef("}\n")
}

// typedOperand renders an operand with its leading type, e.g. "i32 %x".
func typedOperand(v Value) string {
	return fmt.Sprintf("%s %s", v.Type(), v.Name())
}

func writeInstruction(i *Instruction) string {
	var b strings.Builder
	if _, isVoid := i.Ty.(*VoidType); !isVoid {
		fmt.Fprintf(&b, "%s = ", i.Name())
	}

	switch i.Op {
	case Load:
		fmt.Fprintf(&b, "load %s%s, %s", volatileMark(i), i.Ty, typedOperand(i.Address()))
	case Store:
		fmt.Fprintf(&b, "store %s%s, %s", volatileMark(i), typedOperand(i.StoredValue()), typedOperand(i.Address()))
	case Alloca:
		fmt.Fprintf(&b, "alloca %s", i.Elem)
	case Fence:
		fmt.Fprintf(&b, "fence seq_cst")
	case GetElementPtr:
		fmt.Fprintf(&b, "getelementptr %s, %s", i.Elem, typedOperand(i.Operands[0]))
		for _, idx := range i.Operands[1:] {
			fmt.Fprintf(&b, ", %s", typedOperand(idx))
		}
	case ICmp, FCmp:
		fmt.Fprintf(&b, "%s %s %s %s, %s",
			i.Op, i.Pred, i.Operands[0].Type(), i.Operands[0].Name(), i.Operands[1].Name())
	case Call:
		fmt.Fprintf(&b, "call %s %s(%s)", i.Ty, i.Callee().Name(), operandList(i.Operands[1:]))
	case Invoke:
		n := len(i.Operands)
		fmt.Fprintf(&b, "invoke %s %s(%s) to %s unwind %s",
			i.Ty, i.Callee().Name(), operandList(i.Operands[1:n-2]),
			typedOperand(i.Operands[n-2]), typedOperand(i.Operands[n-1]))
	case Select:
		fmt.Fprintf(&b, "select %s, %s, %s",
			typedOperand(i.Operands[0]), typedOperand(i.Operands[1]), typedOperand(i.Operands[2]))
	case PHI:
		fmt.Fprintf(&b, "phi %s ", i.Ty)
		for n, v := range i.Operands {
			if n > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "[ %s, %s ]", v.Name(), i.Incoming[n].Name())
		}
	case Br:
		if len(i.Operands) == 1 {
			fmt.Fprintf(&b, "br %s", typedOperand(i.Operands[0]))
		} else {
			fmt.Fprintf(&b, "br %s, %s, %s",
				typedOperand(i.Operands[0]), typedOperand(i.Operands[1]), typedOperand(i.Operands[2]))
		}
	case Ret:
		if len(i.Operands) == 0 {
			b.WriteString("ret void")
		} else {
			fmt.Fprintf(&b, "ret %s", typedOperand(i.Operands[0]))
		}
	case Resume:
		fmt.Fprintf(&b, "resume %s", typedOperand(i.Operands[0]))
	case Unreachable:
		b.WriteString("unreachable")
	case FNeg:
		fmt.Fprintf(&b, "fneg %s", typedOperand(i.Operands[0]))
	default:
		if i.Op.IsCast() {
			fmt.Fprintf(&b, "%s %s to %s", i.Op, typedOperand(i.Operands[0]), i.Ty)
			break
		}
		// Binary arithmetic/bitwise and any remaining value producers.
		fmt.Fprintf(&b, "%s %s", i.Op, i.Ty)
		for n, v := range i.Operands {
			if n > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %s", v.Name())
		}
	}
	return b.String()
}

func operandList(ops []Value) string {
	parts := make([]string, len(ops))
	for n, v := range ops {
		parts[n] = typedOperand(v)
	}
	return strings.Join(parts, ", ")
}

func volatileMark(i *Instruction) string {
	if i.Volatile {
		return "volatile "
	}
	return ""
}

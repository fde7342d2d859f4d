package parser

// The IR loader: parses textual IR into the in-memory module graph. Building
// happens in two phases per function: instruction shells are created and
// named first, then operand references are resolved. This lets values be
// referenced before their textual definition (loop PHIs, cross-block uses).

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"cull/internal/errors"
	"cull/internal/ir"
)

var irParser = participle.MustBuild[File](
	participle.Lexer(irLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)

// ParseFile loads and builds the module stored at path.
func ParseFile(path string) (*ir.Module, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.LoadError{Message: err.Error()}
	}
	return ParseSource(path, string(source))
}

// ParseSource builds a module from source text. All failures are load
// errors: the pipeline must not run on a module that did not parse.
func ParseSource(filename, source string) (*ir.Module, error) {
	file, err := irParser.ParseString(filename, source)
	if err != nil {
		if pe, ok := err.(participle.Error); ok {
			return nil, &errors.LoadError{
				Position: position(pe.Position()),
				Message:  pe.Message(),
			}
		}
		return nil, &errors.LoadError{Message: err.Error()}
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	b := &builder{m: ir.NewModule(name)}
	if err := b.build(file); err != nil {
		return nil, err
	}
	return b.m, nil
}

func position(p lexer.Position) errors.Position {
	return errors.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

type builder struct {
	m *ir.Module

	// Per-function state.
	fn     *ir.Function
	values map[string]ir.Value          // params and instruction results
	blocks map[string]*ir.BasicBlock    // labels
	lines  map[*ir.Instruction]*InstLine // shells awaiting operand resolution
	order  []*ir.Instruction
}

func (b *builder) build(file *File) error {
	if file.Target != nil {
		layout, err := parseLayout(file.Target.Layout)
		if err != nil {
			return err
		}
		b.m.Layout = layout
	}

	// Globals and function symbols first so calls resolve in any order.
	for _, d := range file.Decls {
		switch {
		case d.Global != nil:
			ty, err := b.typeOf(d.Global.Type)
			if err != nil {
				return err
			}
			if b.m.Global(d.Global.Name) != nil {
				return b.errorAt(d.Global.Pos, "redefinition of @%s", d.Global.Name)
			}
			b.m.Globals = append(b.m.Globals, &ir.Global{GName: d.Global.Name, ValueType: ty})
		case d.Declare != nil:
			if err := b.declareSymbol(d.Declare.Name, d.Declare.Pos); err != nil {
				return err
			}
		case d.Define != nil:
			if err := b.declareSymbol(d.Define.Name, d.Define.Pos); err != nil {
				return err
			}
		}
	}

	for _, d := range file.Decls {
		switch {
		case d.Declare != nil:
			ret, err := b.typeOf(d.Declare.Ret)
			if err != nil {
				return err
			}
			b.m.Funcs = append(b.m.Funcs, &ir.Function{
				FName:   d.Declare.Name,
				RetType: ret,
				Parent:  b.m,
			})
		case d.Define != nil:
			if err := b.buildFunction(d.Define); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) declareSymbol(name string, pos lexer.Position) error {
	if b.m.Global(name) != nil {
		return b.errorAt(pos, "redefinition of @%s", name)
	}
	b.m.Globals = append(b.m.Globals, &ir.Global{GName: name, ValueType: ir.Void})
	return nil
}

func (b *builder) buildFunction(def *Define) error {
	ret, err := b.typeOf(def.Ret)
	if err != nil {
		return err
	}
	b.fn = &ir.Function{FName: def.Name, RetType: ret, Parent: b.m}
	b.values = make(map[string]ir.Value)
	b.blocks = make(map[string]*ir.BasicBlock)
	b.lines = make(map[*ir.Instruction]*InstLine)
	b.order = nil

	for _, pr := range def.Params {
		ty, err := b.typeOf(pr.Type)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(pr.Name, "%")
		if _, dup := b.values[name]; dup {
			return b.errorAt(pr.Pos, "duplicate parameter %%%s", name)
		}
		p := &ir.Param{PName: name, Ty: ty, Parent: b.fn}
		b.fn.Params = append(b.fn.Params, p)
		b.values[name] = p
	}

	// Phase 1: blocks and instruction shells.
	for _, bd := range def.Blocks {
		label := strings.TrimSuffix(bd.Label, ":")
		if _, dup := b.blocks[label]; dup {
			return b.errorAt(bd.Pos, "duplicate block label %s", label)
		}
		bb := &ir.BasicBlock{LName: label, Parent: b.fn}
		b.blocks[label] = bb
		b.fn.Blocks = append(b.fn.Blocks, bb)
	}
	for _, bd := range def.Blocks {
		bb := b.blocks[strings.TrimSuffix(bd.Label, ":")]
		for _, line := range bd.Insts {
			inst, err := b.shell(line)
			if err != nil {
				return err
			}
			bb.Append(inst)
			b.lines[inst] = line
			b.order = append(b.order, inst)
			if inst.IName != "" {
				if _, dup := b.values[inst.IName]; dup {
					return b.errorAt(line.Pos, "redefinition of %%%s", inst.IName)
				}
				b.values[inst.IName] = inst
			}
		}
	}

	// Phase 2: operand resolution.
	for _, inst := range b.order {
		if err := b.resolveOperands(inst, b.lines[inst]); err != nil {
			return err
		}
	}

	b.fn.ComputeCFGEdges()
	b.m.Funcs = append(b.m.Funcs, b.fn)
	return nil
}

// shell creates an instruction with opcode, types and flags set but operands
// left empty.
func (b *builder) shell(line *InstLine) (*ir.Instruction, error) {
	inst := &ir.Instruction{IName: strings.TrimPrefix(line.Result, "%")}
	r := line.Rhs

	var err error
	switch {
	case r.Bin != nil:
		inst.Op = binOpcode(r.Bin.Op)
		inst.Ty, err = b.typeOf(r.Bin.Type)
	case r.Cmp != nil:
		inst.Ty = ir.I1
		if r.Cmp.Op == "icmp" {
			inst.Op = ir.ICmp
			pred, ok := ir.IntPred(r.Cmp.Pred)
			if !ok {
				return nil, b.errorAt(line.Pos, "unknown icmp predicate %q", r.Cmp.Pred)
			}
			inst.Pred = pred
		} else {
			inst.Op = ir.FCmp
			pred, ok := ir.FloatPred(r.Cmp.Pred)
			if !ok {
				return nil, b.errorAt(line.Pos, "unknown fcmp predicate %q", r.Cmp.Pred)
			}
			inst.Pred = pred
		}
	case r.Cast != nil:
		inst.Op = castOpcode(r.Cast.Op)
		inst.Ty, err = b.typeOf(r.Cast.To)
	case r.Neg != nil:
		inst.Op = ir.FNeg
		inst.Ty, err = b.typeOf(r.Neg.Type)
	case r.Load != nil:
		inst.Op = ir.Load
		inst.Volatile = r.Load.Volatile
		inst.Ty, err = b.typeOf(r.Load.Type)
	case r.Store != nil:
		inst.Op = ir.Store
		inst.Volatile = r.Store.Volatile
		inst.Ty = ir.Void
	case r.Alloca != nil:
		inst.Op = ir.Alloca
		inst.Ty = ir.Ptr
		inst.Elem, err = b.typeOf(r.Alloca.Type)
	case r.Gep != nil:
		inst.Op = ir.GetElementPtr
		inst.Ty = ir.Ptr
		inst.Elem, err = b.typeOf(r.Gep.Elem)
	case r.Call != nil:
		inst.Op = ir.Call
		inst.Ty, err = b.typeOf(r.Call.Ret)
	case r.Select != nil:
		inst.Op = ir.Select
		inst.Ty, err = b.typeOf(r.Select.IfTrue.Type)
	case r.Phi != nil:
		inst.Op = ir.PHI
		inst.Ty, err = b.typeOf(r.Phi.Type)
	case r.Fence != nil:
		inst.Op = ir.Fence
		inst.Ty = ir.Void
	case r.Br != nil:
		inst.Op = ir.Br
		inst.Ty = ir.Void
	case r.Ret != nil:
		inst.Op = ir.Ret
		inst.Ty = ir.Void
	case r.Invoke != nil:
		inst.Op = ir.Invoke
		inst.Ty, err = b.typeOf(r.Invoke.Ret)
	case r.Resume != nil:
		inst.Op = ir.Resume
		inst.Ty = ir.Void
	case r.Unreach != nil:
		inst.Op = ir.Unreachable
		inst.Ty = ir.Void
	default:
		return nil, b.errorAt(line.Pos, "empty instruction")
	}
	if err != nil {
		return nil, err
	}

	_, isVoid := inst.Ty.(*ir.VoidType)
	if isVoid && inst.IName != "" {
		return nil, b.errorAt(line.Pos, "%s produces no value but has a result name", inst.Op)
	}
	if !isVoid && inst.IName == "" {
		return nil, b.errorAt(line.Pos, "%s result must be named", inst.Op)
	}
	return inst, nil
}

func (b *builder) resolveOperands(inst *ir.Instruction, line *InstLine) error {
	r := line.Rhs
	switch {
	case r.Bin != nil:
		return b.appendOperands(inst, line, []*Operand{r.Bin.X, r.Bin.Y}, inst.Ty)
	case r.Cmp != nil:
		ty, err := b.typeOf(r.Cmp.Type)
		if err != nil {
			return err
		}
		return b.appendOperands(inst, line, []*Operand{r.Cmp.X, r.Cmp.Y}, ty)
	case r.Cast != nil:
		from, err := b.typeOf(r.Cast.From)
		if err != nil {
			return err
		}
		return b.appendOperands(inst, line, []*Operand{r.Cast.X}, from)
	case r.Neg != nil:
		return b.appendOperands(inst, line, []*Operand{r.Neg.X}, inst.Ty)
	case r.Load != nil:
		return b.appendOperands(inst, line, []*Operand{r.Load.Addr}, ir.Ptr)
	case r.Store != nil:
		ty, err := b.typeOf(r.Store.Type)
		if err != nil {
			return err
		}
		if err := b.appendOperands(inst, line, []*Operand{r.Store.Val}, ty); err != nil {
			return err
		}
		return b.appendOperands(inst, line, []*Operand{r.Store.Addr}, ir.Ptr)
	case r.Alloca != nil:
		return nil
	case r.Gep != nil:
		if err := b.appendTyped(inst, r.Gep.Base); err != nil {
			return err
		}
		for _, idx := range r.Gep.Indices {
			if err := b.appendTyped(inst, idx); err != nil {
				return err
			}
		}
		return nil
	case r.Call != nil:
		if err := b.appendCallee(inst, line, r.Call.Callee); err != nil {
			return err
		}
		for _, arg := range r.Call.Args {
			if err := b.appendTyped(inst, arg); err != nil {
				return err
			}
		}
		return nil
	case r.Select != nil:
		if err := b.appendTyped(inst, r.Select.Cond); err != nil {
			return err
		}
		if err := b.appendTyped(inst, r.Select.IfTrue); err != nil {
			return err
		}
		return b.appendTyped(inst, r.Select.IfFalse)
	case r.Phi != nil:
		for _, in := range r.Phi.Incoming {
			v, err := b.operand(in.Val, inst.Ty, line.Pos)
			if err != nil {
				return err
			}
			bb, err := b.blockRef(in.Block, line.Pos)
			if err != nil {
				return err
			}
			inst.AppendOperand(v)
			inst.Incoming = append(inst.Incoming, bb)
		}
		return nil
	case r.Fence != nil, r.Unreach != nil:
		return nil
	case r.Br != nil:
		if r.Br.Then == nil {
			return b.appendTyped(inst, r.Br.Dest)
		}
		if err := b.appendTyped(inst, r.Br.Dest); err != nil {
			return err
		}
		if err := b.appendTyped(inst, r.Br.Then); err != nil {
			return err
		}
		return b.appendTyped(inst, r.Br.Else)
	case r.Ret != nil:
		if r.Ret.Val == nil {
			return nil
		}
		ty, err := b.typeOf(r.Ret.Type)
		if err != nil {
			return err
		}
		return b.appendOperands(inst, line, []*Operand{r.Ret.Val}, ty)
	case r.Invoke != nil:
		if err := b.appendCallee(inst, line, r.Invoke.Callee); err != nil {
			return err
		}
		for _, arg := range r.Invoke.Args {
			if err := b.appendTyped(inst, arg); err != nil {
				return err
			}
		}
		normal, err := b.blockRef(r.Invoke.Normal, line.Pos)
		if err != nil {
			return err
		}
		unwind, err := b.blockRef(r.Invoke.Unwind, line.Pos)
		if err != nil {
			return err
		}
		inst.AppendOperand(normal)
		inst.AppendOperand(unwind)
		return nil
	case r.Resume != nil:
		return b.appendTyped(inst, r.Resume.Val)
	}
	return nil
}

func (b *builder) appendOperands(inst *ir.Instruction, line *InstLine, ops []*Operand, ty ir.Type) error {
	for _, op := range ops {
		v, err := b.operand(op, ty, line.Pos)
		if err != nil {
			return err
		}
		inst.AppendOperand(v)
	}
	return nil
}

func (b *builder) appendTyped(inst *ir.Instruction, op *TypedOp) error {
	ty, err := b.typeOf(op.Type)
	if err != nil {
		return err
	}
	v, err := b.operand(op.Val, ty, op.Pos)
	if err != nil {
		return err
	}
	inst.AppendOperand(v)
	return nil
}

func (b *builder) appendCallee(inst *ir.Instruction, line *InstLine, name string) error {
	g := b.m.Global(strings.TrimPrefix(name, "@"))
	if g == nil {
		return b.errorAt(line.Pos, "call to undefined symbol %s", name)
	}
	inst.AppendOperand(g)
	return nil
}

// operand resolves a single operand reference against the expected type.
func (b *builder) operand(op *Operand, ty ir.Type, pos lexer.Position) (ir.Value, error) {
	switch {
	case op.Local != nil:
		name := strings.TrimPrefix(*op.Local, "%")
		if _, isLabel := ty.(*ir.LabelType); isLabel {
			return b.blockRef(*op.Local, pos)
		}
		v, ok := b.values[name]
		if !ok {
			return nil, b.errorAt(op.Pos, "use of undefined value %%%s", name)
		}
		if v.Type() != ty {
			return nil, b.errorAt(op.Pos, "%%%s has type %s, expected %s", name, v.Type(), ty)
		}
		return v, nil
	case op.Global != nil:
		g := b.m.Global(strings.TrimPrefix(*op.Global, "@"))
		if g == nil {
			return nil, b.errorAt(op.Pos, "use of undefined global %s", *op.Global)
		}
		return g, nil
	case op.Int != nil:
		it, ok := ty.(*ir.IntType)
		if !ok {
			return nil, b.errorAt(op.Pos, "integer literal where %s expected", ty)
		}
		v, err := strconv.ParseInt(*op.Int, 10, 64)
		if err != nil {
			return nil, b.errorAt(op.Pos, "bad integer literal %q", *op.Int)
		}
		return b.m.ConstInt(it, v), nil
	case op.Float != nil:
		ft, ok := ty.(*ir.FloatType)
		if !ok {
			return nil, b.errorAt(op.Pos, "float literal where %s expected", ty)
		}
		v, err := strconv.ParseFloat(*op.Float, 64)
		if err != nil {
			return nil, b.errorAt(op.Pos, "bad float literal %q", *op.Float)
		}
		return b.m.ConstFloat(ft, v), nil
	case op.True, op.False:
		if ty != ir.I1 {
			return nil, b.errorAt(op.Pos, "boolean literal where %s expected", ty)
		}
		return b.m.Bool(op.True), nil
	case op.Null:
		if _, ok := ty.(*ir.PointerType); !ok {
			return nil, b.errorAt(op.Pos, "null where %s expected", ty)
		}
		return b.m.Null(), nil
	case op.Undef:
		return b.m.Undef(ty), nil
	}
	return nil, b.errorAt(op.Pos, "empty operand")
}

func (b *builder) blockRef(label string, pos lexer.Position) (*ir.BasicBlock, error) {
	bb, ok := b.blocks[strings.TrimPrefix(label, "%")]
	if !ok {
		return nil, b.errorAt(pos, "branch to undefined label %s", label)
	}
	return bb, nil
}

var intTypeRE = regexp.MustCompile(`^i([0-9]+)$`)

func (b *builder) typeOf(ref *TypeRef) (ir.Type, error) {
	switch ref.Name {
	case "void":
		return ir.Void, nil
	case "ptr":
		return ir.Ptr, nil
	case "label":
		return ir.Label, nil
	case "float":
		return ir.Float, nil
	case "double":
		return ir.Double, nil
	}
	if m := intTypeRE.FindStringSubmatch(ref.Name); m != nil {
		bits, err := strconv.Atoi(m[1])
		if err == nil && bits >= 1 && bits <= 128 {
			return ir.IntTy(bits), nil
		}
	}
	return nil, b.errorAt(ref.Pos, "unknown type %q", ref.Name)
}

// parseLayout understands the "p:<bits>" pointer-width form of the
// datalayout string.
func parseLayout(s string) (*ir.DataLayout, error) {
	layout := ir.DefaultLayout()
	for _, part := range strings.Split(s, "-") {
		if rest, ok := strings.CutPrefix(part, "p:"); ok {
			bits, err := strconv.Atoi(rest)
			if err != nil || bits <= 0 {
				return nil, &errors.LoadError{Message: fmt.Sprintf("bad datalayout %q", s)}
			}
			layout.PointerBits = bits
		}
	}
	return layout, nil
}

func (b *builder) errorAt(pos lexer.Position, format string, args ...interface{}) error {
	return &errors.LoadError{
		Position: position(pos),
		Message:  fmt.Sprintf(format, args...),
	}
}

func binOpcode(op string) ir.Opcode {
	switch op {
	case "add":
		return ir.Add
	case "fadd":
		return ir.FAdd
	case "sub":
		return ir.Sub
	case "fsub":
		return ir.FSub
	case "mul":
		return ir.Mul
	case "fmul":
		return ir.FMul
	case "udiv":
		return ir.UDiv
	case "sdiv":
		return ir.SDiv
	case "fdiv":
		return ir.FDiv
	case "urem":
		return ir.URem
	case "srem":
		return ir.SRem
	case "frem":
		return ir.FRem
	case "shl":
		return ir.Shl
	case "lshr":
		return ir.LShr
	case "ashr":
		return ir.AShr
	case "and":
		return ir.And
	case "or":
		return ir.Or
	case "xor":
		return ir.Xor
	}
	panic("parser: unhandled binary mnemonic " + op)
}

func castOpcode(op string) ir.Opcode {
	switch op {
	case "trunc":
		return ir.Trunc
	case "zext":
		return ir.ZExt
	case "sext":
		return ir.SExt
	case "fptoui":
		return ir.FPToUI
	case "fptosi":
		return ir.FPToSI
	case "uitofp":
		return ir.UIToFP
	case "sitofp":
		return ir.SIToFP
	case "fptrunc":
		return ir.FPTrunc
	case "fpext":
		return ir.FPExt
	case "ptrtoint":
		return ir.PtrToInt
	case "inttoptr":
		return ir.IntToPtr
	case "bitcast":
		return ir.BitCast
	case "addrspacecast":
		return ir.AddrSpaceCast
	}
	panic("parser: unhandled cast mnemonic " + op)
}

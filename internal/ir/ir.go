package ir

// The IR graph: a Module owns Functions, a Function owns BasicBlocks, a
// BasicBlock owns Instructions. All optimization passes mutate this graph in
// place; they delete and retarget instructions but never insert new ones and
// never touch branch structure, so the CFG edges computed at load time stay
// valid for the whole pipeline.

// Module is an ordered collection of functions plus module-level globals and
// the interned constant pool.
type Module struct {
	Name    string
	Funcs   []*Function
	Globals []*Global
	Layout  *DataLayout

	ints   map[intKey]*ConstInt
	floats map[floatKey]*ConstFloat
	null   *ConstNull
	undefs map[Type]*Undef
}

type intKey struct {
	bits int
	v    int64
}

type floatKey struct {
	bits int
	v    float64
}

// NewModule creates an empty module with the default data layout.
func NewModule(name string) *Module {
	return &Module{
		Name:   name,
		Layout: DefaultLayout(),
		ints:   make(map[intKey]*ConstInt),
		floats: make(map[floatKey]*ConstFloat),
		undefs: make(map[Type]*Undef),
	}
}

// ConstInt returns the interned integer constant of the given type and
// value, truncated to the type's width.
func (m *Module) ConstInt(ty *IntType, v int64) *ConstInt {
	v = truncateInt(v, ty.Bits)
	k := intKey{bits: ty.Bits, v: v}
	if c, ok := m.ints[k]; ok {
		return c
	}
	c := &ConstInt{Ty: ty, V: v}
	m.ints[k] = c
	return c
}

// Bool returns the interned i1 constant for b.
func (m *Module) Bool(b bool) *ConstInt {
	if b {
		return m.ConstInt(I1, 1)
	}
	return m.ConstInt(I1, 0)
}

// ConstFloat returns the interned floating-point constant.
func (m *Module) ConstFloat(ty *FloatType, v float64) *ConstFloat {
	k := floatKey{bits: ty.Bits, v: v}
	if c, ok := m.floats[k]; ok {
		return c
	}
	c := &ConstFloat{Ty: ty, V: v}
	m.floats[k] = c
	return c
}

// Null returns the interned null pointer constant.
func (m *Module) Null() *ConstNull {
	if m.null == nil {
		m.null = &ConstNull{}
	}
	return m.null
}

// Undef returns the interned undef value of the given type.
func (m *Module) Undef(ty Type) *Undef {
	if u, ok := m.undefs[ty]; ok {
		return u
	}
	u := &Undef{Ty: ty}
	m.undefs[ty] = u
	return u
}

// Global looks up a module global (or function symbol) by name.
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.GName == name {
			return g
		}
	}
	return nil
}

// Function is a named, ordered sequence of basic blocks. The first block is
// the entry. A function with no blocks is an external declaration.
type Function struct {
	FName   string
	RetType Type
	Params  []*Param
	Blocks  []*BasicBlock
	Parent  *Module
}

// Entry returns the entry block, or nil for a declaration.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// IsDecl reports whether the function has no body.
func (f *Function) IsDecl() bool { return len(f.Blocks) == 0 }

// Block looks up a basic block by label.
func (f *Function) Block(label string) *BasicBlock {
	for _, bb := range f.Blocks {
		if bb.LName == label {
			return bb
		}
	}
	return nil
}

// ComputeCFGEdges derives predecessor and successor lists from block
// terminators. The loader calls this once after construction; the passes
// never alter branches, so the edges are not recomputed afterwards.
func (f *Function) ComputeCFGEdges() {
	for _, bb := range f.Blocks {
		bb.Preds = nil
		bb.Succs = nil
	}
	for _, bb := range f.Blocks {
		term := bb.Terminator()
		if term == nil {
			continue
		}
		for _, succ := range term.Successors() {
			bb.Succs = append(bb.Succs, succ)
			succ.Preds = append(succ.Preds, bb)
		}
	}
}

// BasicBlock is an ordered instruction sequence ending in a terminator.
// Blocks implement Value so branch targets can appear as operands.
type BasicBlock struct {
	LName  string
	Insts  []*Instruction
	Preds  []*BasicBlock
	Succs  []*BasicBlock
	Parent *Function
}

func (bb *BasicBlock) Type() Type   { return Label }
func (bb *BasicBlock) Name() string { return "%" + bb.LName }

// Append adds an instruction at the end of the block. Operand use wiring is
// owned by SetOperand and AppendOperand; Append never touches use lists, so
// instructions may be inserted before or after their operands are attached.
func (bb *BasicBlock) Append(i *Instruction) {
	i.parent = bb
	bb.Insts = append(bb.Insts, i)
}

// Terminator returns the block's final instruction if it is a terminator.
func (bb *BasicBlock) Terminator() *Instruction {
	if len(bb.Insts) == 0 {
		return nil
	}
	last := bb.Insts[len(bb.Insts)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// Index returns the position of i in the block, or -1 if it is not there.
func (bb *BasicBlock) Index(i *Instruction) int {
	for n, e := range bb.Insts {
		if e == i {
			return n
		}
	}
	return -1
}

func (bb *BasicBlock) remove(i *Instruction) {
	n := bb.Index(i)
	if n < 0 {
		panic("ir: removing instruction not in block " + bb.LName)
	}
	bb.Insts = append(bb.Insts[:n], bb.Insts[n+1:]...)
}

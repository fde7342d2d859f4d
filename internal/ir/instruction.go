package ir

import "fmt"

// Use records a single operand slot that reads an instruction's result.
type Use struct {
	User  *Instruction
	Index int
}

// Instruction is a single IR operation. Its position inside the owning
// basic block is significant: same-block dominance and the forward scans of
// the load/store passes rely on instruction order.
//
// Operand layout by opcode:
//
//	binary/compare   [x, y]
//	casts, fneg      [x]
//	load             [addr]
//	store            [value, addr]
//	getelementptr    [base, indices...]
//	call             [callee, args...]
//	select           [cond, ifTrue, ifFalse]
//	phi              [incoming values...] (blocks held in Incoming)
//	br               [dest] or [cond, ifTrue, ifFalse]
//	ret              [] or [value]
//	invoke           [callee, args..., normal, unwind]
//	resume           [value]
type Instruction struct {
	Op       Opcode
	Ty       Type   // result type; Void for non-producers
	IName    string // SSA name, without the leading %
	Operands []Value
	Pred     CmpPred       // icmp/fcmp only
	Volatile bool          // load/store only
	Elem     Type          // pointee type for alloca/getelementptr
	Incoming []*BasicBlock // phi only, parallel to Operands

	parent *BasicBlock
	uses   []Use
}

func (i *Instruction) Type() Type   { return i.Ty }
func (i *Instruction) Name() string { return "%" + i.IName }

// Parent returns the owning basic block, or nil once the instruction has
// been erased.
func (i *Instruction) Parent() *BasicBlock { return i.parent }

// Uses returns the operand slots currently referencing this instruction's
// result. The returned slice is the live use list; callers that mutate the
// graph while iterating must copy it first.
func (i *Instruction) Uses() []Use { return i.uses }

// HasUses reports whether any instruction still reads this result.
func (i *Instruction) HasUses() bool { return len(i.uses) > 0 }

func (i *Instruction) addUse(u Use) {
	i.uses = append(i.uses, u)
}

func (i *Instruction) dropUse(u Use) {
	for k, e := range i.uses {
		if e.User == u.User && e.Index == u.Index {
			i.uses = append(i.uses[:k], i.uses[k+1:]...)
			return
		}
	}
}

// SetOperand replaces operand n, keeping use lists symmetric.
func (i *Instruction) SetOperand(n int, v Value) {
	if old, ok := i.Operands[n].(*Instruction); ok {
		old.dropUse(Use{User: i, Index: n})
	}
	i.Operands[n] = v
	if def, ok := v.(*Instruction); ok {
		def.addUse(Use{User: i, Index: n})
	}
}

// AppendOperand adds an operand at the end of the operand list.
func (i *Instruction) AppendOperand(v Value) {
	i.Operands = append(i.Operands, nil)
	i.SetOperand(len(i.Operands)-1, v)
}

// ReplaceAllUsesWith retargets every use of this instruction's result to v.
// After it returns the use list is empty and the instruction is safe to
// erase.
func (i *Instruction) ReplaceAllUsesWith(v Value) {
	for len(i.uses) > 0 {
		u := i.uses[0]
		u.User.SetOperand(u.Index, v)
	}
}

// EraseFromParent unlinks the instruction from its block and releases its
// operand uses. Erasing an instruction that still has live uses is a
// programming error, not a recoverable condition.
func (i *Instruction) EraseFromParent() {
	if i.HasUses() {
		panic(fmt.Sprintf("ir: erasing %%%s with %d live uses", i.IName, len(i.uses)))
	}
	if i.parent == nil {
		panic(fmt.Sprintf("ir: erasing detached instruction %%%s", i.IName))
	}
	for n, op := range i.Operands {
		if def, ok := op.(*Instruction); ok {
			def.dropUse(Use{User: i, Index: n})
		}
	}
	i.parent.remove(i)
	i.parent = nil
}

// IsTerminator reports whether this instruction ends its block.
func (i *Instruction) IsTerminator() bool { return i.Op.IsTerminator() }

// Successors returns the blocks this terminator can transfer control to.
func (i *Instruction) Successors() []*BasicBlock {
	var succs []*BasicBlock
	for _, op := range i.Operands {
		if bb, ok := op.(*BasicBlock); ok {
			succs = append(succs, bb)
		}
	}
	return succs
}

// Address returns the pointer operand of a load or store.
func (i *Instruction) Address() Value {
	switch i.Op {
	case Load:
		return i.Operands[0]
	case Store:
		return i.Operands[1]
	default:
		panic("ir: Address on non-memory instruction " + i.Op.String())
	}
}

// StoredValue returns the value operand of a store.
func (i *Instruction) StoredValue() Value {
	if i.Op != Store {
		panic("ir: StoredValue on " + i.Op.String())
	}
	return i.Operands[0]
}

// Callee returns the called symbol of a call or invoke.
func (i *Instruction) Callee() *Global {
	if i.Op != Call && i.Op != Invoke {
		panic("ir: Callee on " + i.Op.String())
	}
	return i.Operands[0].(*Global)
}

func (i *Instruction) String() string {
	return writeInstruction(i)
}

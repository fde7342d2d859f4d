package verifier

// Structural well-formedness checks for an optimized module: block and
// terminator shape, PHI/predecessor agreement, operand type consistency,
// use/def symmetry, and dominance of definitions over uses. The optimizer
// must leave a verifier-clean module verifier-clean; a failure here is a
// pass defect, surfaced as a fatal diagnostic.

import (
	"fmt"

	"github.com/oleiade/lane"
	"github.com/tliron/commonlog"

	"cull/internal/errors"
	"cull/internal/ir"
)

var log = commonlog.GetLogger("cull.verifier")

// Verify checks every function in the module and returns one error per
// malformed function.
func Verify(m *ir.Module) []*errors.VerificationError {
	var errs []*errors.VerificationError
	for _, fn := range m.Funcs {
		if fn.IsDecl() {
			continue
		}
		v := &funcVerifier{fn: fn}
		v.run()
		if len(v.problems) > 0 {
			log.Errorf("function @%s failed verification", fn.FName)
			errs = append(errs, &errors.VerificationError{
				Function: fn.FName,
				Problems: v.problems,
			})
		}
	}
	return errs
}

type funcVerifier struct {
	fn       *ir.Function
	problems []string
	dt       *ir.DomTree
}

func (v *funcVerifier) errorf(format string, args ...interface{}) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *funcVerifier) run() {
	v.checkBlocks()
	if len(v.problems) > 0 {
		// Dominance analysis needs well-shaped blocks.
		return
	}
	v.dt = ir.BuildDomTree(v.fn)
	reachable := v.reachable()
	v.checkInstructions(reachable)
}

func (v *funcVerifier) checkBlocks() {
	for _, bb := range v.fn.Blocks {
		if len(bb.Insts) == 0 {
			v.errorf("block %s is empty", bb.LName)
			continue
		}
		if bb.Terminator() == nil {
			v.errorf("block %s does not end in a terminator", bb.LName)
		}
		seenNonPhi := false
		for n, inst := range bb.Insts {
			if inst.IsTerminator() && n != len(bb.Insts)-1 {
				v.errorf("block %s has terminator %s before its end", bb.LName, inst.Op)
			}
			if inst.Op == ir.PHI {
				if seenNonPhi {
					v.errorf("phi %s is not at the head of block %s", inst.Name(), bb.LName)
				}
			} else {
				seenNonPhi = true
			}
		}
	}
}

// reachable marks blocks reachable from the entry with a breadth-first
// walk. Unreachable blocks are tolerated but excluded from dominance
// checking.
func (v *funcVerifier) reachable() map[*ir.BasicBlock]bool {
	seen := map[*ir.BasicBlock]bool{v.fn.Entry(): true}
	q := lane.NewQueue()
	q.Enqueue(v.fn.Entry())
	for !q.Empty() {
		bb := q.Dequeue().(*ir.BasicBlock)
		term := bb.Terminator()
		if term == nil {
			continue
		}
		for _, succ := range term.Successors() {
			if !seen[succ] {
				seen[succ] = true
				q.Enqueue(succ)
			}
		}
	}
	return seen
}

func (v *funcVerifier) checkInstructions(reachable map[*ir.BasicBlock]bool) {
	for _, bb := range v.fn.Blocks {
		for _, inst := range bb.Insts {
			v.checkTypes(inst)
			v.checkUses(inst)
			if inst.Op == ir.PHI {
				v.checkPhi(bb, inst)
			}
			if reachable[bb] {
				v.checkDominance(bb, inst)
			}
		}
	}
}

func (v *funcVerifier) checkTypes(inst *ir.Instruction) {
	switch inst.Op {
	case ir.Add, ir.FAdd, ir.Sub, ir.FSub, ir.Mul, ir.FMul,
		ir.UDiv, ir.SDiv, ir.FDiv, ir.URem, ir.SRem, ir.FRem,
		ir.Shl, ir.LShr, ir.AShr, ir.And, ir.Or, ir.Xor:
		for _, op := range inst.Operands {
			if op.Type() != inst.Ty {
				v.errorf("%s operand %s has type %s, result is %s",
					inst.Op, op.Name(), op.Type(), inst.Ty)
			}
		}
	case ir.ICmp, ir.FCmp:
		if inst.Ty != ir.Type(ir.I1) {
			v.errorf("%s %s must produce i1", inst.Op, inst.Name())
		}
		if inst.Operands[0].Type() != inst.Operands[1].Type() {
			v.errorf("%s %s compares mismatched types", inst.Op, inst.Name())
		}
	case ir.Load:
		if _, ok := inst.Address().Type().(*ir.PointerType); !ok {
			v.errorf("load %s reads a non-pointer address", inst.Name())
		}
	case ir.Store:
		if _, ok := inst.Address().Type().(*ir.PointerType); !ok {
			v.errorf("store writes a non-pointer address")
		}
	case ir.Select:
		if inst.Operands[0].Type() != ir.Type(ir.I1) {
			v.errorf("select %s condition is not i1", inst.Name())
		}
		if inst.Operands[1].Type() != inst.Ty || inst.Operands[2].Type() != inst.Ty {
			v.errorf("select %s arms disagree with result type", inst.Name())
		}
	case ir.Br:
		if len(inst.Operands) == 3 && inst.Operands[0].Type() != ir.Type(ir.I1) {
			v.errorf("conditional branch condition is not i1")
		}
	case ir.PHI:
		for _, op := range inst.Operands {
			if op.Type() != inst.Ty {
				v.errorf("phi %s incoming %s has type %s", inst.Name(), op.Name(), op.Type())
			}
		}
	}
}

// checkUses verifies that operand references and use lists agree in both
// directions.
func (v *funcVerifier) checkUses(inst *ir.Instruction) {
	for n, op := range inst.Operands {
		def, ok := op.(*ir.Instruction)
		if !ok {
			continue
		}
		found := false
		for _, u := range def.Uses() {
			if u.User == inst && u.Index == n {
				found = true
				break
			}
		}
		if !found {
			v.errorf("%s operand %d is not on %s's use list", inst.Name(), n, def.Name())
		}
	}
	for _, u := range inst.Uses() {
		if u.Index >= len(u.User.Operands) || u.User.Operands[u.Index] != ir.Value(inst) {
			v.errorf("%s has a stale use record on %s", inst.Name(), u.User.Name())
		}
	}
}

func (v *funcVerifier) checkPhi(bb *ir.BasicBlock, inst *ir.Instruction) {
	if len(inst.Operands) != len(bb.Preds) {
		v.errorf("phi %s has %d incoming values for %d predecessors",
			inst.Name(), len(inst.Operands), len(bb.Preds))
		return
	}
	for _, in := range inst.Incoming {
		if !hasBlock(bb.Preds, in) {
			v.errorf("phi %s names %s, which is not a predecessor of %s",
				inst.Name(), in.LName, bb.LName)
		}
	}
}

// checkDominance verifies that every instruction operand's definition
// dominates the use. PHI operands are checked at the end of the incoming
// edge rather than at the PHI itself.
func (v *funcVerifier) checkDominance(bb *ir.BasicBlock, inst *ir.Instruction) {
	for n, op := range inst.Operands {
		def, ok := op.(*ir.Instruction)
		if !ok {
			continue
		}
		if inst.Op == ir.PHI {
			in := inst.Incoming[n]
			if def.Parent() != in && !v.dt.StrictlyDominates(def.Parent(), in) {
				v.errorf("phi %s incoming %s does not dominate edge from %s",
					inst.Name(), def.Name(), in.LName)
			}
			continue
		}
		if !v.dt.DominatesInst(def, inst) {
			v.errorf("%s does not dominate its use in %s", def.Name(), inst.Name())
		}
	}
}

func hasBlock(blocks []*ir.BasicBlock, bb *ir.BasicBlock) bool {
	for _, b := range blocks {
		if b == bb {
			return true
		}
	}
	return false
}

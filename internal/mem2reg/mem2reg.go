package mem2reg

// Promotes non-escaping, non-volatile stack slots to SSA values. Two shapes
// are handled: allocas with exactly one store that dominates every load, and
// allocas whose every access sits in a single block. Slots that would need
// phi insertion are left alone; the later store and load passes still clean
// up what they can.

import (
	"github.com/tliron/commonlog"

	"cull/internal/ir"
	"cull/internal/stats"
)

var (
	log = commonlog.GetLogger("cull.mem2reg")

	statPromoted = stats.New("Mem2RegPromoted", "allocas promoted to registers")
)

// Run promotes eligible allocas in every function of the module and reports
// whether anything changed.
func Run(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Funcs {
		if fn.IsDecl() {
			continue
		}
		if promoteFunction(fn) {
			changed = true
		}
	}
	return changed
}

func promoteFunction(fn *ir.Function) bool {
	dt := ir.BuildDomTree(fn)

	// Collect first: promotion erases instructions out from under a live
	// block iteration.
	var allocas []*ir.Instruction
	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			if inst.Op == ir.Alloca {
				allocas = append(allocas, inst)
			}
		}
	}

	changed := false
	for _, inst := range allocas {
		if promoteAlloca(fn, dt, inst) {
			changed = true
		}
	}
	if changed {
		// Promotion erases instructions but never touches edges, so the
		// dominator tree stays valid; the CFG caches do too.
		log.Debugf("promoted slots in @%s", fn.FName)
	}
	return changed
}

// slotAccesses classifies every use of an alloca. A use that is neither a
// load from the slot nor a store of a value into the slot makes the slot
// escape and disqualifies it.
func slotAccesses(alloca *ir.Instruction) (loads, stores []*ir.Instruction, ok bool) {
	for _, u := range alloca.Uses() {
		inst := u.User
		switch {
		case inst.Op == ir.Load && !inst.Volatile && inst.Address() == ir.Value(alloca):
			if inst.Ty != alloca.Elem {
				return nil, nil, false
			}
			loads = append(loads, inst)
		case inst.Op == ir.Store && !inst.Volatile &&
			u.Index == 1 && inst.Address() == ir.Value(alloca):
			if inst.StoredValue().Type() != alloca.Elem {
				return nil, nil, false
			}
			stores = append(stores, inst)
		default:
			// Address passed to a call, stored somewhere, compared, or
			// accessed volatilely.
			return nil, nil, false
		}
	}
	return loads, stores, true
}

func promoteAlloca(fn *ir.Function, dt *ir.DomTree, alloca *ir.Instruction) bool {
	loads, stores, ok := slotAccesses(alloca)
	if !ok {
		return false
	}

	switch {
	case len(stores) == 0:
		// Never written: every load produces an undefined value.
		undef := fn.Parent.Undef(alloca.Elem)
		for _, ld := range loads {
			ld.ReplaceAllUsesWith(undef)
			ld.EraseFromParent()
		}

	case len(stores) == 1 && dominatesAllLoads(dt, stores[0], loads):
		val := stores[0].StoredValue()
		for _, ld := range loads {
			ld.ReplaceAllUsesWith(val)
			ld.EraseFromParent()
		}
		stores[0].EraseFromParent()

	case singleBlock(alloca, loads, stores):
		if !rewriteBlockSlot(alloca) {
			return false
		}

	default:
		return false
	}

	alloca.EraseFromParent()
	statPromoted.Inc()
	log.Debugf("mem2reg: promoted %s", alloca.Name())
	return true
}

func dominatesAllLoads(dt *ir.DomTree, store *ir.Instruction, loads []*ir.Instruction) bool {
	for _, ld := range loads {
		if !dt.DominatesInst(store, ld) {
			return false
		}
	}
	return true
}

func singleBlock(alloca *ir.Instruction, loads, stores []*ir.Instruction) bool {
	for _, inst := range loads {
		if inst.Parent() != alloca.Parent() {
			return false
		}
	}
	for _, inst := range stores {
		if inst.Parent() != alloca.Parent() {
			return false
		}
	}
	return true
}

// rewriteBlockSlot walks the slot's block once, forwarding the most recent
// stored value into each load. A load before the first store reads an
// undefined value.
func rewriteBlockSlot(alloca *ir.Instruction) bool {
	bb := alloca.Parent()
	cur := ir.Value(bb.Parent.Parent.Undef(alloca.Elem))

	var erase []*ir.Instruction
	for _, inst := range bb.Insts {
		switch inst.Op {
		case ir.Load:
			if inst.Address() == ir.Value(alloca) {
				inst.ReplaceAllUsesWith(cur)
				erase = append(erase, inst)
			}
		case ir.Store:
			if inst.Address() == ir.Value(alloca) {
				cur = inst.StoredValue()
				erase = append(erase, inst)
			}
		}
	}
	for _, inst := range erase {
		inst.EraseFromParent()
	}
	return true
}

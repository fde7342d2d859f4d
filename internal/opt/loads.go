package opt

import (
	"cull/internal/ir"
	"cull/internal/stats"
)

var statLdElim = stats.New("CSELdElim", "CSE redundant loads")

// RedundantLoadElimination collapses repeated loads of the same address and
// type inside a block when no store or call can have changed the memory in
// between. Any store aborts the scan for the current load; aliasing is not
// analyzed.
type RedundantLoadElimination struct{}

func (RedundantLoadElimination) Name() string { return "Redundant Load Elimination" }

func (RedundantLoadElimination) Description() string {
	return "Reuses an earlier load instead of re-reading unchanged memory"
}

func (RedundantLoadElimination) Apply(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Funcs {
		for _, bb := range fn.Blocks {
			if loadsInBlock(bb) {
				changed = true
			}
		}
	}
	return changed
}

func loadsInBlock(bb *ir.BasicBlock) bool {
	var toErase []*ir.Instruction

	for n, first := range bb.Insts {
		if first.Op != ir.Load {
			continue
		}
		for _, next := range bb.Insts[n+1:] {
			if next.Op == ir.Store {
				// The store may alias the loaded address; give up on
				// this load and move to the next one.
				break
			}
			if next.Op != ir.Load {
				continue
			}
			if !next.Volatile &&
				next.Address() == first.Address() &&
				next.Ty == first.Ty &&
				noStoreOrCallBetween(bb, first, next) {
				log.Debugf("loads: %s reuses %s", next.Name(), first.Name())
				next.ReplaceAllUsesWith(first)
				toErase = append(toErase, next)
			}
		}
	}

	changed := false
	for _, inst := range toErase {
		if inst.Parent() == nil {
			continue
		}
		inst.EraseFromParent()
		statLdElim.Inc()
		changed = true
	}
	return changed
}

// noStoreOrCallBetween reports whether the instructions strictly between
// first and next in their shared block include no store and no call.
func noStoreOrCallBetween(bb *ir.BasicBlock, first, next *ir.Instruction) bool {
	for _, inst := range bb.Insts[bb.Index(first)+1:] {
		if inst == next {
			break
		}
		if inst.Op == ir.Store || inst.Op == ir.Call {
			return false
		}
	}
	return true
}

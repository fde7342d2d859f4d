package opt

import (
	"cull/internal/ir"
	"cull/internal/stats"
)

var statElim = stats.New("CSEElim", "CSE redundant instructions")

// CommonSubexpressionElimination merges literal-identical instructions when
// the survivor dominates the victim. The dominator tree is rebuilt for every
// function on every application; dominance facts from a previous round are
// never trusted.
type CommonSubexpressionElimination struct{}

func (CommonSubexpressionElimination) Name() string {
	return "Common Subexpression Elimination"
}

func (CommonSubexpressionElimination) Description() string {
	return "Merges dominated recomputations into their dominating twins"
}

func (CommonSubexpressionElimination) Apply(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Funcs {
		if fn.IsDecl() {
			continue
		}
		if cseFunction(fn) {
			changed = true
		}
	}
	return changed
}

func cseFunction(fn *ir.Function) bool {
	dt := ir.BuildDomTree(fn)
	var toErase []*ir.Instruction

	for _, bb := range fn.Blocks {
		dt.DepthFirst(func(node *ir.BasicBlock) {
			switch {
			case node == bb:
				// Same block: the survivor must come earlier, which is
				// exactly instruction-level dominance here.
				for _, i := range bb.Insts {
					for _, j := range node.Insts {
						if i != j && dt.DominatesInst(i, j) && isLiteralMatch(i, j) {
							log.Debugf("cse: %s subsumes %s (block %s)", i.Name(), j.Name(), bb.LName)
							j.ReplaceAllUsesWith(i)
							toErase = append(toErase, j)
						}
					}
				}
			case dt.StrictlyDominates(bb, node):
				// Block-level dominance already orders every pair; no
				// intra-block position check is needed.
				for _, i := range bb.Insts {
					for _, j := range node.Insts {
						if isLiteralMatch(i, j) {
							log.Debugf("cse: %s subsumes %s (%s dom %s)", i.Name(), j.Name(), bb.LName, node.LName)
							j.ReplaceAllUsesWith(i)
							toErase = append(toErase, j)
						}
					}
				}
			}
		})
	}

	// A victim may appear in the list twice, or may have been invalidated
	// by an earlier erasure; only erase instructions still attached.
	changed := false
	for _, inst := range toErase {
		if inst.Parent() == nil {
			continue
		}
		inst.EraseFromParent()
		statElim.Inc()
		changed = true
	}
	return changed
}

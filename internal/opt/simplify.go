package opt

import (
	"cull/internal/fold"
	"cull/internal/ir"
	"cull/internal/stats"
)

var statSimplify = stats.New("CSESimplify", "CSE simplified instructions")

// SimplifyInstructions replaces instructions the folding oracle can prove
// equal to an existing value. Uses are retargeted as matches are found so a
// later instruction in the same block simplifies against the already
// retargeted operands; erasure is deferred to the end of the block sweep.
type SimplifyInstructions struct{}

func (SimplifyInstructions) Name() string { return "Simplify Instructions" }

func (SimplifyInstructions) Description() string {
	return "Folds algebraically redundant instructions into existing values"
}

func (SimplifyInstructions) Apply(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Funcs {
		for _, bb := range fn.Blocks {
			var toErase []*ir.Instruction
			for _, inst := range bb.Insts {
				v := fold.Instruction(inst, m.Layout)
				if v == nil {
					continue
				}
				log.Debugf("simplify: %s -> %s", inst, v.Name())
				inst.ReplaceAllUsesWith(v)
				toErase = append(toErase, inst)
			}
			for _, inst := range toErase {
				inst.EraseFromParent()
				statSimplify.Inc()
				changed = true
			}
		}
	}
	return changed
}

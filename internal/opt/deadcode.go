package opt

import (
	"cull/internal/ir"
	"cull/internal/stats"
)

var statDead = stats.New("CSEDead", "CSE found dead instructions")

// DeadCodeElimination removes instructions whose results are never used and
// whose opcodes carry no side effect.
type DeadCodeElimination struct{}

func (DeadCodeElimination) Name() string { return "Dead Code Elimination" }

func (DeadCodeElimination) Description() string {
	return "Removes unused instructions without side effects"
}

// Apply makes a single sweep over every block: collect the dead set first,
// erase afterwards. Removing one dead instruction can make an operand's
// definition newly dead; catching those is the job of the next pipeline
// round, not of this sweep.
func (DeadCodeElimination) Apply(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Funcs {
		for _, bb := range fn.Blocks {
			var dead []*ir.Instruction
			for _, inst := range bb.Insts {
				if isDead(inst) {
					dead = append(dead, inst)
				}
			}
			for _, inst := range dead {
				log.Debugf("dce: erasing %s", inst)
				inst.EraseFromParent()
				statDead.Inc()
				changed = true
			}
		}
	}
	return changed
}

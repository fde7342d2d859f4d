package opt

// The pass driver. Every round runs the five passes in a fixed order; the
// round count is a configuration constant, not a convergence test, so a
// module that needs more than Rounds rounds keeps its residual redundancy.

import (
	"github.com/tliron/commonlog"

	"cull/internal/ir"
)

var log = commonlog.GetLogger("cull.opt")

// Rounds is the fixed number of pipeline iterations.
const Rounds = 3

// Pass is a single in-place transformation of a module. Apply reports
// whether it changed anything.
type Pass interface {
	Name() string
	Description() string
	Apply(m *ir.Module) bool
}

// Pipeline runs an ordered sequence of passes for a fixed number of rounds.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds the standard five-pass pipeline in its required order.
func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.AddPass(DeadCodeElimination{})
	p.AddPass(SimplifyInstructions{})
	p.AddPass(CommonSubexpressionElimination{})
	p.AddPass(RedundantLoadElimination{})
	p.AddPass(RedundantStoreElimination{})
	return p
}

// AddPass appends a pass to the sequence.
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Run executes Rounds rounds of the pass sequence over the module.
func (p *Pipeline) Run(m *ir.Module) {
	for round := 1; round <= Rounds; round++ {
		log.Debugf("round %d of %d", round, Rounds)
		for _, pass := range p.passes {
			changed := pass.Apply(m)
			log.Debugf("  %s: changed=%t", pass.Name(), changed)
		}
	}
}

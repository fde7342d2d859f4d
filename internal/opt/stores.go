package opt

import (
	"cull/internal/ir"
	"cull/internal/stats"
)

var (
	statStore2Load = stats.New("CSEStore2Load", "CSE forwarded store to load")
	statStElim     = stats.New("CSEStElim", "CSE redundant stores")
)

// RedundantStoreElimination forwards stored values to later loads of the
// same address and type, and removes stores that are overwritten by a
// same-address, same-type store before anything can read them.
type RedundantStoreElimination struct{}

func (RedundantStoreElimination) Name() string { return "Redundant Store Elimination" }

func (RedundantStoreElimination) Description() string {
	return "Forwards stores to loads and drops overwritten stores"
}

func (RedundantStoreElimination) Apply(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Funcs {
		for _, bb := range fn.Blocks {
			if storesInBlock(bb) {
				changed = true
			}
		}
	}
	return changed
}

func storesInBlock(bb *ir.BasicBlock) bool {
	var deadLoads []*ir.Instruction
	var deadStores []*ir.Instruction

	for n, store := range bb.Insts {
		if store.Op != ir.Store {
			continue
		}
		val := store.StoredValue()

	scan:
		for _, next := range bb.Insts[n+1:] {
			switch next.Op {
			case ir.Load:
				if !next.Volatile &&
					next.Address() == store.Address() &&
					next.Ty == val.Type() {
					// Store-to-load forwarding; one store may feed
					// several loads, so keep scanning.
					log.Debugf("stores: forwarding %s to %s", val.Name(), next.Name())
					next.ReplaceAllUsesWith(val)
					deadLoads = append(deadLoads, next)
					continue
				}
				// A load we cannot forward may alias; stop here.
				break scan

			case ir.Store:
				if !store.Volatile &&
					next.Address() == store.Address() &&
					next.StoredValue().Type() == val.Type() {
					// Overwritten before any read: the earlier store
					// is dead.
					log.Debugf("stores: %s overwritten by %s", store, next)
					deadStores = append(deadStores, store)
				}
				break scan

			default:
				if isSideEffect(next) {
					// Conservative: a call (or other effect) may read
					// or write the address.
					break scan
				}
			}
		}
	}

	changed := false
	for _, inst := range deadLoads {
		inst.EraseFromParent()
		statStore2Load.Inc()
		changed = true
	}
	for _, inst := range deadStores {
		inst.EraseFromParent()
		statStElim.Inc()
		changed = true
	}
	return changed
}

package ir

// Dominator tree construction using the Lengauer-Tarjan algorithm
// (https://doi.org/10.1145/357062.357071). The tree is cheap to build
// relative to a CSE run, so it is recomputed fresh for every function on
// every invocation rather than cached and invalidated.

import (
	"github.com/oleiade/lane"
)

type ltNode struct {
	block    *BasicBlock
	semi     int
	parent   *ltNode
	ancestor *ltNode
	label    *ltNode
	dom      *ltNode
	preds    []*ltNode
	bucket   map[*ltNode]struct{}
}

// DomTree is the dominator tree of one function's CFG. Node parent is the
// immediate dominator; the root is the entry block. Unreachable blocks are
// not part of the tree and dominate nothing.
type DomTree struct {
	Root *BasicBlock

	idom     map[*BasicBlock]*BasicBlock
	children map[*BasicBlock][]*BasicBlock

	// Pre/post numbering of the dominator tree itself, for O(1)
	// dominance queries: b dominates c iff b's interval encloses c's.
	pre  map[*BasicBlock]int
	post map[*BasicBlock]int
}

// BuildDomTree computes the dominator tree for a function with a non-empty
// body.
func BuildDomTree(f *Function) *DomTree {
	entry := f.Entry()
	if entry == nil {
		panic("ir: dominator tree of a declaration")
	}

	nodes := ltDFS(entry)
	byBlock := make(map[*BasicBlock]*ltNode, len(nodes))
	for _, n := range nodes {
		byBlock[n.block] = n
	}

	// Record predecessors restricted to reachable blocks.
	for _, n := range nodes {
		for _, p := range n.block.Preds {
			if pn, ok := byBlock[p]; ok {
				n.preds = append(n.preds, pn)
			}
		}
	}

	// Pass 1: semidominators, processed in reverse DFS order.
	for i := len(nodes) - 1; i > 0; i-- {
		n := nodes[i]
		for _, p := range n.preds {
			u := eval(p)
			if u.semi < n.semi {
				n.semi = u.semi
			}
		}
		nodes[n.semi].bucket[n] = struct{}{}
		n.ancestor = n.parent

		for v := range n.parent.bucket {
			u := eval(v)
			if u.semi < v.semi {
				v.dom = u
			} else {
				v.dom = n.parent
			}
		}
		n.parent.bucket = make(map[*ltNode]struct{})
	}

	// Pass 2: implicit immediate dominators.
	for i := 1; i < len(nodes); i++ {
		n := nodes[i]
		if n.dom != nodes[n.semi] {
			n.dom = n.dom.dom
		}
	}

	dt := &DomTree{
		Root:     entry,
		idom:     make(map[*BasicBlock]*BasicBlock, len(nodes)),
		children: make(map[*BasicBlock][]*BasicBlock, len(nodes)),
		pre:      make(map[*BasicBlock]int, len(nodes)),
		post:     make(map[*BasicBlock]int, len(nodes)),
	}
	for _, n := range nodes[1:] {
		dt.idom[n.block] = n.dom.block
		dt.children[n.dom.block] = append(dt.children[n.dom.block], n.block)
	}
	dt.number()
	return dt
}

// ltDFS numbers the reachable blocks in CFG depth-first order. The explicit
// stack keeps deep CFGs off the call stack.
func ltDFS(entry *BasicBlock) []*ltNode {
	var nodes []*ltNode
	index := make(map[*BasicBlock]*ltNode)

	s := lane.NewStack()
	s.Push(entry)
	parents := map[*BasicBlock]*ltNode{}

	for !s.Empty() {
		bb := s.Pop().(*BasicBlock)
		if _, seen := index[bb]; seen {
			continue
		}
		n := &ltNode{
			block:  bb,
			semi:   len(nodes),
			parent: parents[bb],
			bucket: make(map[*ltNode]struct{}),
		}
		n.label = n
		index[bb] = n
		nodes = append(nodes, n)

		term := bb.Terminator()
		if term == nil {
			continue
		}
		succs := term.Successors()
		for i := len(succs) - 1; i >= 0; i-- {
			if _, seen := index[succs[i]]; !seen {
				parents[succs[i]] = n
				s.Push(succs[i])
			}
		}
	}
	return nodes
}

func eval(n *ltNode) *ltNode {
	if n.ancestor == nil {
		return n
	}
	compress(n)
	return n.label
}

func compress(n *ltNode) {
	if n.ancestor.ancestor != nil {
		compress(n.ancestor)
		if n.ancestor.label.semi < n.label.semi {
			n.label = n.ancestor.label
		}
		n.ancestor = n.ancestor.ancestor
	}
}

// number assigns pre/post intervals by walking the dominator tree.
func (dt *DomTree) number() {
	clock := 0
	var walk func(bb *BasicBlock)
	walk = func(bb *BasicBlock) {
		clock++
		dt.pre[bb] = clock
		for _, c := range dt.children[bb] {
			walk(c)
		}
		clock++
		dt.post[bb] = clock
	}
	walk(dt.Root)
}

// Idom returns the immediate dominator of bb, or nil for the root and for
// unreachable blocks.
func (dt *DomTree) Idom(bb *BasicBlock) *BasicBlock { return dt.idom[bb] }

// Children returns the blocks immediately dominated by bb.
func (dt *DomTree) Children(bb *BasicBlock) []*BasicBlock { return dt.children[bb] }

// Reachable reports whether bb is reachable from the entry.
func (dt *DomTree) Reachable(bb *BasicBlock) bool {
	_, ok := dt.pre[bb]
	return ok
}

// Dominates reports whether b dominates c. Dominance is reflexive;
// unreachable blocks neither dominate nor are dominated.
func (dt *DomTree) Dominates(b, c *BasicBlock) bool {
	if !dt.Reachable(b) || !dt.Reachable(c) {
		return false
	}
	return dt.pre[b] <= dt.pre[c] && dt.post[c] <= dt.post[b]
}

// StrictlyDominates reports whether b dominates c and b != c.
func (dt *DomTree) StrictlyDominates(b, c *BasicBlock) bool {
	return b != c && dt.Dominates(b, c)
}

// DominatesInst reports whether instruction i dominates instruction j:
// either i appears earlier in the block they share, or i's block strictly
// dominates j's.
func (dt *DomTree) DominatesInst(i, j *Instruction) bool {
	bi, bj := i.Parent(), j.Parent()
	if bi == nil || bj == nil {
		return false
	}
	if bi == bj {
		return bi.Index(i) < bi.Index(j)
	}
	return dt.StrictlyDominates(bi, bj)
}

// DepthFirst visits the dominator tree in preorder.
func (dt *DomTree) DepthFirst(visit func(bb *BasicBlock)) {
	var walk func(bb *BasicBlock)
	walk = func(bb *BasicBlock) {
		visit(bb)
		for _, c := range dt.children[bb] {
			walk(c)
		}
	}
	walk(dt.Root)
}

package analyzer

import (
	"github.com/ludo-technologies/restructor/internal/ir"
)

// SplitIfNodes splits every conditional or switch node that carries
// statements before its test. The statements move to a new predecessor
// that falls through into the pure test node. It returns the number of
// nodes split.
func SplitIfNodes(g *Graph) int {
	split := 0
	for _, n := range g.Live() {
		if n.Term != ir.TermBranch && n.Term != ir.TermSwitch {
			continue
		}
		if len(n.Stmts) <= 1 {
			continue
		}

		pre := g.insertBefore(n, n.Label+".pre")
		pre.Stmts = n.Stmts[:len(n.Stmts)-1:len(n.Stmts)-1]
		pre.Term = ir.TermFallthrough
		n.Stmts = []ir.Stmt{n.Stmts[len(n.Stmts)-1]}

		for _, e := range append([]*Edge(nil), n.In...) {
			if e.Kind.IsNormal() {
				g.Retarget(e, pre.ID)
			}
		}
		for _, r := range g.Ranges {
			if r.Nodes[n.ID] {
				r.Nodes[pre.ID] = true
			}
			if r.Handler == n.ID {
				r.Handler = pre.ID
			}
		}
		if g.Entry == n.ID {
			g.Entry = pre.ID
		}
		g.Connect(pre.ID, n.ID, EdgeSequential, 0)
		split++
	}
	if split > 0 {
		g.SyncExceptionEdges()
	}
	return split
}

// Simplify removes empty pass-through nodes and merges straight-line
// chains until nothing changes. Running it on its own output is a no-op.
// It returns the number of rewrites performed.
func Simplify(g *Graph) int {
	total := 0
	for {
		changed := 0
		for _, n := range g.Live() {
			if g.Node(n.ID) == nil {
				continue
			}
			if removeEmptyNode(g, n) {
				changed++
				continue
			}
			if mergeSuccessor(g, n) {
				changed++
			}
		}
		if changed == 0 {
			break
		}
		total += changed
	}
	if total > 0 {
		g.SyncExceptionEdges()
	}
	return total
}

// soleSequential returns the target of a node whose only normal edge is a
// single sequential edge
func soleSequential(n *Node) (NodeID, bool) {
	var target *Edge
	for _, e := range n.Out {
		if !e.Kind.IsNormal() {
			continue
		}
		if target != nil || e.Kind != EdgeSequential {
			return NoNode, false
		}
		target = e
	}
	if target == nil {
		return NoNode, false
	}
	return target.To, true
}

func removeEmptyNode(g *Graph, n *Node) bool {
	if !n.IsEmpty() || n.Term != ir.TermFallthrough {
		return false
	}
	succ, ok := soleSequential(n)
	if !ok || succ == n.ID {
		return false
	}

	for _, e := range append([]*Edge(nil), n.In...) {
		if e.Kind.IsNormal() {
			g.Retarget(e, succ)
		}
	}
	for _, r := range g.Ranges {
		if r.Handler == n.ID {
			r.Handler = succ
		}
	}
	if g.Entry == n.ID {
		g.Entry = succ
	}
	g.RemoveNode(n.ID)
	return true
}

func mergeSuccessor(g *Graph, a *Node) bool {
	bid, ok := soleSequential(a)
	if !ok || bid == a.ID || bid == g.Entry || g.IsHandler(bid) {
		return false
	}
	b := g.Node(bid)
	if len(b.In) != 1 || b.In[0].From != a.ID {
		return false
	}
	if (b.Term == ir.TermBranch || b.Term == ir.TermSwitch) && !a.IsEmpty() {
		return false
	}
	if !sameCoverage(g, a.ID, b.ID) {
		return false
	}

	a.Stmts = append(a.Stmts, b.Stmts...)
	a.Term = b.Term
	for _, e := range append([]*Edge(nil), a.Out...) {
		if e.Kind.IsNormal() {
			g.RemoveEdge(e)
		}
	}
	for _, e := range b.Out {
		if e.Kind.IsNormal() {
			to := e.To
			if to == b.ID {
				to = a.ID
			}
			g.Connect(a.ID, to, e.Kind, e.Value)
		}
	}
	g.RemoveNode(b.ID)
	return true
}

func sameCoverage(g *Graph, a, b NodeID) bool {
	for _, r := range g.Ranges {
		if r.Nodes[a] != r.Nodes[b] {
			return false
		}
	}
	return true
}

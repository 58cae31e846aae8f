package analyzer

import (
	"github.com/ludo-technologies/restructor/internal/ir"
)

// PropagateRegisters substitutes single-use locals by their defining
// expression. A definition v = e qualifies when v has exactly one
// definition and one use, e has no side effects, the definition dominates
// the use, and no variable read by e is redefined on any path between
// them. Expressions that read memory or may throw only move within one
// node, across statements without side effects, into a use statement that
// calls nothing. One that may throw is never moved past another possible
// throw.
func PropagateRegisters(g *Graph, dom *DominatorTree) []*DeadCodeFinding {
	var findings []*DeadCodeFinding
	for {
		table := BuildDefUse(g)
		applied := false
		for _, id := range table.VarIDs() {
			v := table.Vars[id]
			if v.IsImplicit() || len(table.Defs[id]) != 1 || len(table.Uses[id]) != 1 {
				continue
			}
			def, use := table.Defs[id][0], table.Uses[id][0]
			if !canPropagate(g, dom, def, use) {
				continue
			}

			dn := g.Node(def.Node)
			assign := dn.Stmts[def.Index].(*ir.Assign)
			findings = append(findings, &DeadCodeFinding{
				Node:      dn.ID,
				Block:     dn.Label,
				Statement: ir.FormatStmt(assign),
				Reason:    ReasonPropagated,
			})
			ir.ReplaceVar(g.Node(use.Node).Stmts[use.Index], v, assign.Src)
			dn.Stmts = append(dn.Stmts[:def.Index], dn.Stmts[def.Index+1:]...)
			applied = true
			break
		}
		if !applied {
			return findings
		}
	}
}

func canPropagate(g *Graph, dom *DominatorTree, def, use Occurrence) bool {
	if def.Index == ImplicitIndex {
		return false
	}
	assign, ok := g.Node(def.Node).Stmts[def.Index].(*ir.Assign)
	if !ok {
		return false
	}
	if _, caught := assign.Src.(*ir.Caught); caught || ir.ExprHasSideEffects(assign.Src) {
		return false
	}

	sameNode := def.Node == use.Node
	if sameNode {
		if def.Index >= use.Index {
			return false
		}
	} else if !dom.Dominates(def.Node, use.Node) {
		return false
	}

	useStmt := g.Node(use.Node).Stmts[use.Index]
	if ir.ReadsMemory(assign.Src) || ir.MayThrow(assign.Src) {
		if !sameNode || ir.ContainsCall(useStmt) {
			return false
		}
		throws := ir.MayThrow(assign.Src)
		stmts := g.Node(def.Node).Stmts
		for k := def.Index + 1; k < use.Index; k++ {
			if ir.HasSideEffects(stmts[k]) || (throws && ir.StmtMayThrow(stmts[k])) {
				return false
			}
		}
		// exceptions must keep their order inside the use statement too
		if throws && ir.ThrowsBefore(useStmt, assign.Dst) {
			return false
		}
	}

	operands := make(map[int]bool)
	for _, v := range ir.ExprVars(assign.Src) {
		operands[v.ID] = true
	}
	if len(operands) == 0 {
		return true
	}
	redefines := func(s ir.Stmt) bool {
		d := ir.Def(s)
		return d != nil && operands[d.ID]
	}

	if sameNode {
		stmts := g.Node(def.Node).Stmts
		for k := def.Index + 1; k < use.Index; k++ {
			if redefines(stmts[k]) {
				return false
			}
		}
		return true
	}

	for _, s := range g.Node(def.Node).Stmts[def.Index+1:] {
		if redefines(s) {
			return false
		}
	}
	for _, s := range g.Node(use.Node).Stmts[:use.Index] {
		if redefines(s) {
			return false
		}
	}
	for id := range pathInterior(g, def.Node, use.Node) {
		for _, s := range g.Node(id).Stmts {
			if redefines(s) {
				return false
			}
		}
	}
	return true
}

// pathInterior returns the nodes lying on some path from a successor of
// from to a predecessor of to that does not pass through from again
func pathInterior(g *Graph, from, to NodeID) map[NodeID]bool {
	forward := make(map[NodeID]bool)
	for _, s := range g.AllSuccs(from) {
		result := NewReachabilityAnalyzer(g).Avoiding(from).AnalyzeReachabilityFrom(s)
		for id := range result.ReachableBlocks {
			forward[id] = true
		}
	}

	backward := make(map[NodeID]bool)
	stack := append([]NodeID(nil), g.AllPreds(to)...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == from || backward[id] {
			continue
		}
		backward[id] = true
		stack = append(stack, g.AllPreds(id)...)
	}

	interior := make(map[NodeID]bool)
	for id := range forward {
		if backward[id] {
			interior[id] = true
		}
	}
	return interior
}

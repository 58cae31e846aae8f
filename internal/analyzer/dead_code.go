package analyzer

import (
	"sort"

	"github.com/ludo-technologies/restructor/internal/ir"
)

type DeadCodeReason string

const (
	ReasonUnusedDefinition DeadCodeReason = "unused_definition"
	ReasonPropagated       DeadCodeReason = "propagated"
)

// DeadCodeFinding records one statement removed by the dataflow passes
type DeadCodeFinding struct {
	Node      NodeID         `json:"node"`
	Block     string         `json:"block"`
	Statement string         `json:"statement"`
	Reason    DeadCodeReason `json:"reason"`
}

// removable reports whether deleting a definition cannot change behavior.
// Caught exception bindings stay so handlers keep their variable.
func removable(s ir.Stmt) bool {
	a, ok := s.(*ir.Assign)
	if !ok {
		return false
	}
	if _, caught := a.Src.(*ir.Caught); caught {
		return false
	}
	return !ir.ExprHasSideEffects(a.Src) && !ir.MayThrow(a.Src)
}

// EliminateDeadCode deletes side-effect-free definitions of variables that
// are never read, repeating until no definition qualifies
func EliminateDeadCode(g *Graph) []*DeadCodeFinding {
	var findings []*DeadCodeFinding
	for {
		table := BuildDefUse(g)

		dead := make(map[NodeID][]int)
		for _, id := range table.VarIDs() {
			if table.IsUsed(id) {
				continue
			}
			for _, def := range table.Defs[id] {
				if def.Index == ImplicitIndex {
					continue
				}
				if removable(g.Node(def.Node).Stmts[def.Index]) {
					dead[def.Node] = append(dead[def.Node], def.Index)
				}
			}
		}
		if len(dead) == 0 {
			return findings
		}

		for _, n := range g.Live() {
			indexes := dead[n.ID]
			if len(indexes) == 0 {
				continue
			}
			sort.Sort(sort.Reverse(sort.IntSlice(indexes)))
			for _, i := range indexes {
				findings = append(findings, &DeadCodeFinding{
					Node:      n.ID,
					Block:     n.Label,
					Statement: ir.FormatStmt(n.Stmts[i]),
					Reason:    ReasonUnusedDefinition,
				})
				n.Stmts = append(n.Stmts[:i], n.Stmts[i+1:]...)
			}
		}
	}
}

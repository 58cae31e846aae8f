package analyzer

import (
	"sort"

	"github.com/ludo-technologies/restructor/internal/ir"
)

// ImplicitIndex is the statement index of parameter and receiver
// definitions, which happen on entry before any statement
const ImplicitIndex = -1

// Occurrence locates a statement inside a node
type Occurrence struct {
	Node  NodeID
	Index int
}

// DefUseTable maps each variable to its definitions and uses. Uses list
// one occurrence per read, so a statement reading v twice appears twice.
type DefUseTable struct {
	Vars map[int]*ir.Variable
	Defs map[int][]Occurrence
	Uses map[int][]Occurrence
}

// BuildDefUse scans g and records every definition and use
func BuildDefUse(g *Graph) *DefUseTable {
	t := &DefUseTable{
		Vars: make(map[int]*ir.Variable),
		Defs: make(map[int][]Occurrence),
		Uses: make(map[int][]Occurrence),
	}
	if g.IsEmpty() {
		return t
	}

	for _, v := range implicitVars(g.Method) {
		t.Vars[v.ID] = v
		t.Defs[v.ID] = append(t.Defs[v.ID], Occurrence{Node: g.Entry, Index: ImplicitIndex})
	}

	for _, n := range g.Live() {
		for i, s := range n.Stmts {
			for _, v := range ir.Uses(s) {
				t.Vars[v.ID] = v
				t.Uses[v.ID] = append(t.Uses[v.ID], Occurrence{Node: n.ID, Index: i})
			}
			if v := ir.Def(s); v != nil {
				t.Vars[v.ID] = v
				t.Defs[v.ID] = append(t.Defs[v.ID], Occurrence{Node: n.ID, Index: i})
			}
		}
	}
	return t
}

func implicitVars(m *ir.Method) []*ir.Variable {
	if m == nil {
		return nil
	}
	var vars []*ir.Variable
	if m.This != nil {
		vars = append(vars, m.This)
	}
	return append(vars, m.Params...)
}

// VarIDs returns every variable ID in ascending order
func (t *DefUseTable) VarIDs() []int {
	ids := make([]int, 0, len(t.Vars))
	for id := range t.Vars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsUsed reports whether the variable is read anywhere
func (t *DefUseTable) IsUsed(id int) bool {
	return len(t.Uses[id]) > 0
}

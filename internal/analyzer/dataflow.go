package analyzer

import (
	"github.com/ludo-technologies/restructor/internal/ir"
)

// DefaultMaxPasses bounds the alternation of dead code elimination and
// register propagation
const DefaultMaxPasses = 64

// DataflowOptions selects the dataflow passes to run
type DataflowOptions struct {
	DeadCodeElimination bool
	RegisterPropagation bool
	MaxPasses           int
}

// DefaultDataflowOptions enables every pass
func DefaultDataflowOptions() DataflowOptions {
	return DataflowOptions{
		DeadCodeElimination: true,
		RegisterPropagation: true,
		MaxPasses:           DefaultMaxPasses,
	}
}

// DataflowResult summarizes an Optimize run
type DataflowResult struct {
	Removed []*DeadCodeFinding
	Passes  int
}

// Optimize alternates dead code elimination and register propagation
// until neither changes the graph. Graph structure is left untouched.
func Optimize(g *Graph, opts DataflowOptions) *DataflowResult {
	result := &DataflowResult{}
	if g.IsEmpty() || (!opts.DeadCodeElimination && !opts.RegisterPropagation) {
		return result
	}
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	dom := ComputeDominators(g)
	for result.Passes < maxPasses {
		result.Passes++
		changed := false
		if opts.DeadCodeElimination {
			removed := EliminateDeadCode(g)
			result.Removed = append(result.Removed, removed...)
			changed = changed || len(removed) > 0
		}
		if opts.RegisterPropagation {
			propagated := PropagateRegisters(g, dom)
			result.Removed = append(result.Removed, propagated...)
			changed = changed || len(propagated) > 0
		}
		if !changed {
			break
		}
	}
	return result
}

// UndefinedUse is a read of a variable that lacks a definition on at
// least one path from the entry
type UndefinedUse struct {
	Var *ir.Variable
	At  Occurrence
}

// UndefinedUses runs a must-be-defined forward analysis and reports every
// read not preceded by a definition on all paths. Exception edges carry
// the state on entry of the throwing node.
func UndefinedUses(g *Graph) []UndefinedUse {
	if g.IsEmpty() {
		return nil
	}
	table := BuildDefUse(g)
	ids := table.VarIDs()
	index := make(map[int]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	width := len(ids)

	entry := NewBitSet(width)
	for _, v := range implicitVars(g.Method) {
		entry.Set(index[v.ID])
	}

	nodes := ComputeDominators(g).RPO()
	in := make(map[NodeID]*BitSet, len(nodes))
	out := make(map[NodeID]*BitSet, len(nodes))
	for _, id := range nodes {
		full := NewBitSet(width)
		full.Fill(width)
		in[id] = full
		out[id] = full.Copy()
	}

	transfer := func(id NodeID, state *BitSet) *BitSet {
		s := state.Copy()
		for _, stmt := range g.Node(id).Stmts {
			if v := ir.Def(stmt); v != nil {
				s.Set(index[v.ID])
			}
		}
		return s
	}

	for changed := true; changed; {
		changed = false
		for _, id := range nodes {
			state := NewBitSet(width)
			state.Fill(width)
			if id == g.Entry {
				state = entry.Copy()
			}
			for _, e := range g.Node(id).In {
				pred, ok := in[e.From]
				if !ok {
					continue
				}
				if e.Kind.IsNormal() {
					pred = out[e.From]
				}
				state.IntersectWith(pred)
			}
			if !state.Equal(in[id]) {
				in[id] = state
				changed = true
			}
			if next := transfer(id, state); !next.Equal(out[id]) {
				out[id] = next
				changed = true
			}
		}
	}

	var undefined []UndefinedUse
	for _, id := range nodes {
		state := in[id].Copy()
		for i, stmt := range g.Node(id).Stmts {
			for _, v := range ir.Uses(stmt) {
				if !state.Has(index[v.ID]) {
					undefined = append(undefined, UndefinedUse{
						Var: v,
						At:  Occurrence{Node: id, Index: i},
					})
				}
			}
			if v := ir.Def(stmt); v != nil {
				state.Set(index[v.ID])
			}
		}
	}
	return undefined
}

package analyzer

import (
	"testing"

	"github.com/ludo-technologies/restructor/internal/ir"
	tu "github.com/ludo-technologies/restructor/internal/testutil"
)

// diamondMethod: A branches to B or C, both join at D
func diamondMethod() *ir.Method {
	b := tu.NewMethod("diamond")
	x := b.Param("x", "int")
	return b.
		Branch("A", tu.Cmp(">", tu.Ref(x), tu.Lit("0")), "B", "C").
		Jump("B", "D", tu.Do(tu.Call("pos"))).
		Fall("C", tu.Do(tu.Call("neg"))).
		Return("D", nil).
		Build()
}

// whileMethod: H tests, B and C form the body, C jumps back to H
func whileMethod() *ir.Method {
	b := tu.NewMethod("loop")
	i := b.Param("i", "int")
	n := b.Param("n", "int")
	return b.
		Branch("H", tu.Cmp("<", tu.Ref(i), tu.Ref(n)), "B", "X").
		Fall("B", tu.Do(tu.Call("work"))).
		Jump("C", "H", tu.Do(tu.Call("step"))).
		Return("X", nil).
		Build()
}

// doWhileMethod: body B runs before the latch test L
func doWhileMethod() *ir.Method {
	b := tu.NewMethod("repeat")
	x := b.Param("x", "int")
	return b.
		Fall("B", tu.Do(tu.Call("work"))).
		Branch("L", tu.Cmp("!=", tu.Ref(x), tu.Lit("0")), "B", "").
		Return("X", nil).
		Build()
}

// infiniteMethod: the header does work before testing and the latch is
// unconditional
func infiniteMethod() *ir.Method {
	b := tu.NewMethod("spin")
	x := b.Param("x", "int")
	return b.
		Branch("H", tu.Cmp(">", tu.Ref(x), tu.Lit("0")), "X", "B", tu.Do(tu.Call("work"))).
		Jump("B", "H", tu.Do(tu.Call("step"))).
		Return("X", nil).
		Build()
}

// switchMethod: case 1 falls through into case 2, default skips both
func switchMethod() *ir.Method {
	b := tu.NewMethod("dispatch")
	x := b.Param("x", "int")
	return b.
		Switch("S", tu.Ref(x), []ir.SwitchCase{{Value: 1, Target: "A"}, {Value: 2, Target: "B"}}, "E").
		Fall("A", tu.Do(tu.Call("one"))).
		Jump("B", "E", tu.Do(tu.Call("two"))).
		Return("E", nil).
		Build()
}

// nestedTryMethod: an IOException range around B1 nested inside a
// catch-all range around B0..B2
func nestedTryMethod() *ir.Method {
	b := tu.NewMethod("guarded")
	e1 := b.Var("e1")
	e2 := b.Var("e2")
	return b.
		Fall("B0", tu.Do(tu.Call("a"))).
		Jump("B1", "B2", tu.Do(tu.Call("b"))).
		Fall("H1", tu.Catch(e1, "IOException"), tu.Do(tu.Call("h1"))).
		Jump("B2", "R", tu.Do(tu.Call("c"))).
		Fall("H2", tu.Catch(e2, ""), tu.Do(tu.Call("h2"))).
		Return("R", nil).
		Try("B1", "H1", "H1", "IOException").
		Try("B0", "H2", "H2", "").
		Build()
}

// irreducibleMethod: A and B form a cycle entered at both nodes
func irreducibleMethod() *ir.Method {
	b := tu.NewMethod("tangle")
	x := b.Param("x", "int")
	y := b.Param("y", "int")
	return b.
		Branch("E", tu.Cmp("==", tu.Ref(x), tu.Lit("0")), "A", "B").
		Branch("A", tu.Cmp(">", tu.Ref(y), tu.Lit("0")), "B", "X").
		Branch("B", tu.Cmp("<", tu.Ref(y), tu.Lit("9")), "A", "X").
		Return("X", nil).
		Build()
}

func fixtures() map[string]func() *ir.Method {
	return map[string]func() *ir.Method{
		"diamond":     diamondMethod,
		"while":       whileMethod,
		"do-while":    doWhileMethod,
		"infinite":    infiniteMethod,
		"switch":      switchMethod,
		"nested try":  nestedTryMethod,
		"irreducible": irreducibleMethod,
	}
}

func buildGraph(t *testing.T, m *ir.Method) *Graph {
	t.Helper()
	g, err := NewCFGBuilder().Build(m)
	tu.AssertNoError(t, err)
	return g
}

func nodeByLabel(t *testing.T, g *Graph, label string) NodeID {
	t.Helper()
	for _, n := range g.Live() {
		if n.Label == label {
			return n.ID
		}
	}
	t.Fatalf("Expected node %q in graph", label)
	return NoNode
}

func structure(g *Graph) (*Sequence, *StructureReport) {
	return Structure(g, ComputeDominators(g), ComputePostDominators(g))
}

func statementNodes(seq *Sequence) []NodeID {
	var ids []NodeID
	if seq == nil {
		return ids
	}
	for _, item := range seq.Items {
		if s, ok := item.(*Statement); ok {
			ids = append(ids, s.Node)
		}
	}
	return ids
}

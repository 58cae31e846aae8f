package analyzer

import (
	"errors"
	"testing"

	"github.com/ludo-technologies/restructor/internal/ir"
	tu "github.com/ludo-technologies/restructor/internal/testutil"
)

func TestNewCFGBuilder(t *testing.T) {
	builder := NewCFGBuilder()
	if builder == nil {
		t.Fatal("NewCFGBuilder should return non-nil builder")
	}
	if builder.logger == nil {
		t.Error("logger should default to a no-op logger")
	}
	builder.SetLogger(nil)
	if builder.logger == nil {
		t.Error("SetLogger(nil) should keep a usable logger")
	}
}

func TestCFGBuilder_NilMethod(t *testing.T) {
	_, err := NewCFGBuilder().Build(nil)
	tu.AssertError(t, err)
}

func TestCFGBuilder_EmptyMethod(t *testing.T) {
	g, err := NewCFGBuilder().Build(tu.NewMethod("empty").Build())
	tu.AssertNoError(t, err)
	if !g.IsEmpty() {
		t.Errorf("Expected empty graph, got %d nodes", g.Size())
	}
}

func TestCFGBuilder_Diamond(t *testing.T) {
	g := buildGraph(t, diamondMethod())

	if g.Size() != 4 {
		t.Fatalf("Expected 4 nodes, got %d", g.Size())
	}
	a := g.Node(nodeByLabel(t, g, "A"))
	if a.Term != ir.TermBranch {
		t.Errorf("Expected A to end in a branch, got %s", a.Term)
	}
	if e := a.EdgeTo(EdgeBranchTrue); e == nil || e.To != nodeByLabel(t, g, "B") {
		t.Error("Expected true edge A -> B")
	}
	if e := a.EdgeTo(EdgeBranchFalse); e == nil || e.To != nodeByLabel(t, g, "C") {
		t.Error("Expected false edge A -> C")
	}

	d := nodeByLabel(t, g, "D")
	if len(g.Preds(d)) != 2 {
		t.Errorf("Expected D to have 2 predecessors, got %d", len(g.Preds(d)))
	}
	if len(g.Succs(d)) != 0 {
		t.Errorf("Expected return node to have no successors, got %d", len(g.Succs(d)))
	}
	tu.AssertNoError(t, g.Validate())
}

func TestCFGBuilder_Switch(t *testing.T) {
	g := buildGraph(t, switchMethod())
	s := g.Node(nodeByLabel(t, g, "S"))

	cases := 0
	for _, e := range s.Out {
		switch e.Kind {
		case EdgeSwitchCase:
			cases++
			if e.Value == 1 && e.To != nodeByLabel(t, g, "A") {
				t.Error("Expected case 1 to target A")
			}
		case EdgeSwitchDefault:
			if e.To != nodeByLabel(t, g, "E") {
				t.Error("Expected default to target E")
			}
		}
	}
	if cases != 2 {
		t.Errorf("Expected 2 case edges, got %d", cases)
	}
}

func TestCFGBuilder_ExceptionEdges(t *testing.T) {
	g := buildGraph(t, nestedTryMethod())

	h1 := nodeByLabel(t, g, "H1")
	h2 := nodeByLabel(t, g, "H2")
	if len(g.Ranges) != 2 {
		t.Fatalf("Expected 2 ranges, got %d", len(g.Ranges))
	}

	tests := []struct {
		label    string
		handlers []NodeID
	}{
		{"B0", []NodeID{h2}},
		{"B1", []NodeID{h1, h2}},
		{"H1", []NodeID{h2}},
		{"B2", []NodeID{h2}},
		{"H2", nil},
		{"R", nil},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			n := g.Node(nodeByLabel(t, g, tt.label))
			var got []NodeID
			for _, e := range n.Out {
				if e.Kind == EdgeException {
					got = append(got, e.To)
				}
			}
			if len(got) != len(tt.handlers) {
				t.Fatalf("Expected %d exception edges, got %d", len(tt.handlers), len(got))
			}
			for i := range got {
				if got[i] != tt.handlers[i] {
					t.Errorf("Expected exception edge to %d, got %d", tt.handlers[i], got[i])
				}
			}
		})
	}
	if !g.IsHandler(h1) || !g.IsHandler(h2) {
		t.Error("Expected H1 and H2 to be handler entries")
	}
}

func TestCFGBuilder_PrunesUnreachable(t *testing.T) {
	build := func() *ir.Method {
		return tu.NewMethod("dead").
			Return("A", nil).
			Jump("B", "A", tu.Do(tu.Call("never"))).
			Build()
	}

	builder := NewCFGBuilder()
	g, err := builder.Build(build())
	tu.AssertNoError(t, err)
	if g.Size() != 1 {
		t.Errorf("Expected 1 node after pruning, got %d", g.Size())
	}
	pruned := builder.PrunedBlocks()
	if len(pruned) != 1 || pruned[0] != "B" {
		t.Errorf("Expected pruned blocks [B], got %v", pruned)
	}
	tu.AssertNoError(t, g.Validate())

	reach := builder.Reachability()
	if ratio := reach.GetReachabilityRatio(); ratio != 0.5 {
		t.Errorf("Expected reachability 0.5 before pruning, got %v", ratio)
	}
	if !reach.HasUnreachableCode() {
		t.Error("Expected B to count as unreachable code")
	}
	if blocks := reach.GetUnreachableBlocksWithStatements(); len(blocks) != 1 {
		t.Errorf("Expected 1 unreachable block with statements, got %d", len(blocks))
	}

	builder = NewCFGBuilder()
	_, err = builder.Build(tu.NewMethod("bare").Return("A", nil).Jump("B", "A").Build())
	tu.AssertNoError(t, err)
	if reach := builder.Reachability(); reach.HasUnreachableCode() || reach.UnreachableCount != 1 {
		t.Errorf("Expected one empty unreachable block, got %d (code: %v)", reach.UnreachableCount, reach.HasUnreachableCode())
	}

	builder = NewCFGBuilder()
	builder.KeepUnreachable(true)
	g, err = builder.Build(build())
	tu.AssertNoError(t, err)
	if g.Size() != 2 {
		t.Errorf("Expected 2 nodes when keeping unreachable blocks, got %d", g.Size())
	}
}

func TestCFGBuilder_Malformed(t *testing.T) {
	cond := tu.Lit("true")

	tests := []struct {
		name   string
		method *ir.Method
	}{
		{
			name:   "unknown jump target",
			method: tu.NewMethod("m").Jump("A", "Z").Build(),
		},
		{
			name:   "falls off the end",
			method: tu.NewMethod("m").Fall("A", tu.Do(tu.Call("f"))).Build(),
		},
		{
			name:   "duplicate label",
			method: tu.NewMethod("m").Fall("A").Return("A", nil).Build(),
		},
		{
			name:   "branch without taken target",
			method: tu.NewMethod("m").Branch("A", cond, "", "B").Return("B", nil).Build(),
		},
		{
			name: "repeated switch case",
			method: tu.NewMethod("m").
				Switch("S", tu.Lit("1"), []ir.SwitchCase{{Value: 1, Target: "R"}, {Value: 1, Target: "R"}}, "R").
				Return("R", nil).Build(),
		},
		{
			name: "switch case without target",
			method: tu.NewMethod("m").
				Switch("S", tu.Lit("1"), []ir.SwitchCase{{Value: 1}}, "R").
				Return("R", nil).Build(),
		},
		{
			name: "range with unknown handler",
			method: tu.NewMethod("m").
				Fall("A", tu.Do(tu.Call("f"))).Return("R", nil).
				Try("A", "R", "H", "").Build(),
		},
		{
			name: "inverted range",
			method: tu.NewMethod("m").
				Fall("A", tu.Do(tu.Call("f"))).Return("R", nil).
				Try("R", "A", "R", "").Build(),
		},
		{
			name: "terminator mismatch",
			method: &ir.Method{Name: "m", Blocks: []*ir.Block{
				{Label: "A", Term: ir.Terminator{Kind: ir.TermReturn}},
			}},
		},
		{
			name: "control statement before block end",
			method: &ir.Method{Name: "m", Blocks: []*ir.Block{
				{Label: "A", Stmts: []ir.Stmt{&ir.Return{}, &ir.Return{}}, Term: ir.Terminator{Kind: ir.TermReturn}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCFGBuilder().Build(tt.method)
			if err == nil {
				t.Fatal("Expected malformed graph error, got nil")
			}
			if !errors.Is(err, ErrMalformedGraph) {
				t.Errorf("Expected ErrMalformedGraph, got %v", err)
			}
		})
	}
}

func TestCFGBuilder_NoDanglingEdges(t *testing.T) {
	for name, build := range fixtures() {
		t.Run(name, func(t *testing.T) {
			g := buildGraph(t, build())
			tu.AssertNoError(t, g.Validate())

			Simplify(g)
			tu.AssertNoError(t, g.Validate())

			SplitIfNodes(g)
			tu.AssertNoError(t, g.Validate())

			Optimize(g, DefaultDataflowOptions())
			Simplify(g)
			tu.AssertNoError(t, g.Validate())
		})
	}
}

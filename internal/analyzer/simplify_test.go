package analyzer

import (
	"testing"

	"github.com/ludo-technologies/restructor/internal/ir"
	tu "github.com/ludo-technologies/restructor/internal/testutil"
)

func TestSimplify_MergesStraightLine(t *testing.T) {
	m := tu.NewMethod("chain").
		Fall("A", tu.Do(tu.Call("a"))).
		Fall("B", tu.Do(tu.Call("b"))).
		Return("C", nil, tu.Do(tu.Call("c"))).
		Build()
	g := buildGraph(t, m)

	changed := Simplify(g)
	if changed != 2 {
		t.Errorf("Expected 2 rewrites, got %d", changed)
	}
	if g.Size() != 1 {
		t.Fatalf("Expected 1 node, got %d", g.Size())
	}
	entry := g.Node(g.Entry)
	if len(entry.Stmts) != 4 {
		t.Errorf("Expected 4 statements in merged node, got %d", len(entry.Stmts))
	}
	if entry.Term != ir.TermReturn {
		t.Errorf("Expected merged node to return, got %s", entry.Term)
	}
}

func TestSimplify_RemovesEmptyNodes(t *testing.T) {
	b := tu.NewMethod("hop")
	x := b.Param("x", "int")
	m := b.
		Branch("A", tu.Cmp(">", tu.Ref(x), tu.Lit("0")), "E", "C").
		Jump("E", "D").
		Fall("C", tu.Do(tu.Call("c"))).
		Return("D", nil).
		Build()
	g := buildGraph(t, m)

	Simplify(g)

	for _, n := range g.Live() {
		if n.Label == "E" {
			t.Fatal("Expected empty pass-through node E to be removed")
		}
	}
	a := g.Node(nodeByLabel(t, g, "A"))
	if e := a.EdgeTo(EdgeBranchTrue); e == nil || e.To != nodeByLabel(t, g, "D") {
		t.Error("Expected true edge of A to be redirected to D")
	}
	tu.AssertNoError(t, g.Validate())
}

func TestSimplify_KeepsSelfLoop(t *testing.T) {
	m := tu.NewMethod("hang").Jump("A", "A").Build()
	g := buildGraph(t, m)

	if changed := Simplify(g); changed != 0 {
		t.Errorf("Expected no rewrites on an empty self loop, got %d", changed)
	}
	if g.Size() != 1 {
		t.Errorf("Expected 1 node, got %d", g.Size())
	}
}

func TestSimplify_RespectsRangeBoundaries(t *testing.T) {
	g := buildGraph(t, nestedTryMethod())
	Simplify(g)

	// B0 and B1 sit in different ranges and must stay apart
	nodeByLabel(t, g, "B0")
	nodeByLabel(t, g, "B1")
	for _, label := range []string{"H1", "H2"} {
		if !g.IsHandler(nodeByLabel(t, g, label)) {
			t.Errorf("Expected %s to remain a handler entry", label)
		}
	}
	tu.AssertNoError(t, g.Validate())
}

func TestSimplify_Idempotent(t *testing.T) {
	for name, build := range fixtures() {
		t.Run(name, func(t *testing.T) {
			g := buildGraph(t, build())
			Simplify(g)
			once := g.Dump()

			if changed := Simplify(g); changed != 0 {
				t.Errorf("Expected second run to make no rewrites, got %d", changed)
			}
			if twice := g.Dump(); twice != once {
				t.Errorf("Expected identical graph after second run\nfirst:\n%s\nsecond:\n%s", once, twice)
			}
		})
	}
}

func TestSplitIfNodes(t *testing.T) {
	g := buildGraph(t, infiniteMethod())
	h := nodeByLabel(t, g, "H")

	if split := SplitIfNodes(g); split != 1 {
		t.Fatalf("Expected 1 split, got %d", split)
	}
	test := g.Node(h)
	if !test.IsPureTest() {
		t.Error("Expected H to hold only its test after splitting")
	}
	pre := g.Node(g.Entry)
	if pre.ID == h || pre.Label != "H.pre" {
		t.Fatalf("Expected the split predecessor to become the entry, got %q", pre.Label)
	}
	if pre.Order >= test.Order {
		t.Errorf("Expected predecessor order %d before test order %d", pre.Order, test.Order)
	}
	if len(g.Preds(h)) != 1 || g.Preds(h)[0] != pre.ID {
		t.Errorf("Expected H to be reached only from H.pre, got %v", g.Preds(h))
	}
	// the back edge from B now enters the predecessor
	b := nodeByLabel(t, g, "B")
	if succ := g.Succs(b); len(succ) != 1 || succ[0] != pre.ID {
		t.Errorf("Expected B to jump to H.pre, got %v", succ)
	}
	tu.AssertNoError(t, g.Validate())

	if split := SplitIfNodes(g); split != 0 {
		t.Errorf("Expected no further splits, got %d", split)
	}
}

func TestNormalizeRanges_CrossingRanges(t *testing.T) {
	m := tu.NewMethod("cross").
		Fall("A", tu.Do(tu.Call("a"))).
		Fall("B", tu.Do(tu.Call("b"))).
		Jump("C", "R", tu.Do(tu.Call("c"))).
		Jump("H1", "R", tu.Do(tu.Call("h1"))).
		Fall("H2", tu.Do(tu.Call("h2"))).
		Return("R", nil).
		Try("B", "H1", "H1", "IOException").
		Try("A", "C", "H2", "").
		Build()
	g := buildGraph(t, m)

	if len(g.Ranges) != 3 {
		t.Fatalf("Expected crossing range to be split into 3 ranges, got %d", len(g.Ranges))
	}
	for i, a := range g.Ranges {
		for _, b := range g.Ranges[i+1:] {
			inter := 0
			for id := range a.Nodes {
				if b.Nodes[id] {
					inter++
				}
			}
			nested := inter == len(a.Nodes) || inter == len(b.Nodes)
			if inter > 0 && !nested {
				t.Errorf("Expected ranges to nest or be disjoint: %v and %v", sortedIDs(a.Nodes), sortedIDs(b.Nodes))
			}
		}
	}
}

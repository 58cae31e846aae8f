package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ludo-technologies/restructor/internal/ir"
)

// NodeID addresses a node in a Graph arena
type NodeID int

// NoNode marks an absent node reference
const NoNode NodeID = -1

// EdgeKind represents the type of edge between nodes
type EdgeKind int

const (
	EdgeSequential EdgeKind = iota
	EdgeBranchTrue
	EdgeBranchFalse
	EdgeSwitchCase
	EdgeSwitchDefault
	EdgeException
)

// String returns the string representation of an EdgeKind
func (k EdgeKind) String() string {
	switch k {
	case EdgeSequential:
		return "seq"
	case EdgeBranchTrue:
		return "true"
	case EdgeBranchFalse:
		return "false"
	case EdgeSwitchCase:
		return "case"
	case EdgeSwitchDefault:
		return "default"
	case EdgeException:
		return "exception"
	default:
		return "unknown"
	}
}

// IsNormal reports whether the edge is ordinary control flow
func (k EdgeKind) IsNormal() bool {
	return k != EdgeException
}

// Edge represents a control flow edge. Value holds the case value of
// EdgeSwitchCase edges.
type Edge struct {
	From  NodeID
	To    NodeID
	Kind  EdgeKind
	Value int64
}

// Node is a basic block owned by a Graph
type Node struct {
	ID    NodeID
	Label string
	Stmts []ir.Stmt
	Term  ir.TermKind
	Order int
	Out   []*Edge
	In    []*Edge
}

// IsEmpty returns true if the node has no statements
func (n *Node) IsEmpty() bool {
	return len(n.Stmts) == 0
}

// Test returns the conditional test or switch dispatch ending the node
func (n *Node) Test() ir.Stmt {
	if len(n.Stmts) == 0 {
		return nil
	}
	switch last := n.Stmts[len(n.Stmts)-1].(type) {
	case *ir.If, *ir.Switch:
		return last
	}
	return nil
}

// IsPureTest reports whether the node contains nothing but its test
func (n *Node) IsPureTest() bool {
	return (n.Term == ir.TermBranch || n.Term == ir.TermSwitch) && len(n.Stmts) == 1 && n.Test() != nil
}

// EdgeTo returns the first normal out edge of the given kind
func (n *Node) EdgeTo(kind EdgeKind) *Edge {
	for _, e := range n.Out {
		if e.Kind == kind {
			return e
		}
	}
	return nil
}

// Range is an exception range expressed as a node set
type Range struct {
	Nodes     map[NodeID]bool
	Handler   NodeID
	CatchType string
	Priority  int // lower wins when ranges nest
}

// Contains reports whether id is covered by the range
func (r *Range) Contains(id NodeID) bool {
	return r.Nodes[id]
}

// Graph is the control flow graph of one method. Nodes live in an arena;
// deleted slots are nil.
type Graph struct {
	Method *ir.Method
	Nodes  []*Node
	Entry  NodeID
	Ranges []*Range
}

// NewGraph creates an empty graph for a method
func NewGraph(method *ir.Method) *Graph {
	return &Graph{Method: method, Entry: NoNode}
}

// IsEmpty returns true if the graph has no nodes
func (g *Graph) IsEmpty() bool {
	return g.Entry == NoNode || g.Size() == 0
}

// Node returns the live node with the given id, or nil
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.Nodes) {
		return nil
	}
	return g.Nodes[id]
}

// AddNode appends a node at the end of program order
func (g *Graph) AddNode(label string) *Node {
	n := &Node{ID: NodeID(len(g.Nodes)), Label: label, Order: g.nextOrder()}
	g.Nodes = append(g.Nodes, n)
	return n
}

func (g *Graph) nextOrder() int {
	max := -1
	for _, n := range g.Nodes {
		if n != nil && n.Order > max {
			max = n.Order
		}
	}
	return max + 1
}

// insertBefore adds a node placed immediately before at in program order
func (g *Graph) insertBefore(at *Node, label string) *Node {
	for _, n := range g.Nodes {
		if n != nil && n.Order >= at.Order {
			n.Order++
		}
	}
	n := &Node{ID: NodeID(len(g.Nodes)), Label: label, Order: at.Order - 1}
	g.Nodes = append(g.Nodes, n)
	return n
}

// Size returns the number of live nodes
func (g *Graph) Size() int {
	count := 0
	for _, n := range g.Nodes {
		if n != nil {
			count++
		}
	}
	return count
}

// Live returns the live nodes in program order
func (g *Graph) Live() []*Node {
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
	return nodes
}

// Connect adds an edge between two nodes
func (g *Graph) Connect(from, to NodeID, kind EdgeKind, value int64) *Edge {
	e := &Edge{From: from, To: to, Kind: kind, Value: value}
	g.Nodes[from].Out = append(g.Nodes[from].Out, e)
	g.Nodes[to].In = append(g.Nodes[to].In, e)
	return e
}

// RemoveEdge detaches an edge from both endpoints
func (g *Graph) RemoveEdge(e *Edge) {
	if from := g.Node(e.From); from != nil {
		from.Out = removeEdge(from.Out, e)
	}
	if to := g.Node(e.To); to != nil {
		to.In = removeEdge(to.In, e)
	}
}

// Retarget moves the head of an edge to a different node
func (g *Graph) Retarget(e *Edge, to NodeID) {
	if old := g.Node(e.To); old != nil {
		old.In = removeEdge(old.In, e)
	}
	e.To = to
	g.Nodes[to].In = append(g.Nodes[to].In, e)
}

func removeEdge(edges []*Edge, e *Edge) []*Edge {
	for i, x := range edges {
		if x == e {
			return append(edges[:i:i], edges[i+1:]...)
		}
	}
	return edges
}

// RemoveNode deletes a node, its edges and its range memberships
func (g *Graph) RemoveNode(id NodeID) {
	n := g.Node(id)
	if n == nil {
		return
	}
	for _, e := range append([]*Edge(nil), n.Out...) {
		g.RemoveEdge(e)
	}
	for _, e := range append([]*Edge(nil), n.In...) {
		g.RemoveEdge(e)
	}
	for _, r := range g.Ranges {
		delete(r.Nodes, id)
	}
	g.Nodes[id] = nil
}

// Succs returns the distinct normal successors of a node in edge order
func (g *Graph) Succs(id NodeID) []NodeID {
	return g.succs(id, false)
}

// AllSuccs returns the distinct successors including exception handlers
func (g *Graph) AllSuccs(id NodeID) []NodeID {
	return g.succs(id, true)
}

func (g *Graph) succs(id NodeID, withExceptions bool) []NodeID {
	n := g.Node(id)
	if n == nil {
		return nil
	}
	var out []NodeID
	seen := make(map[NodeID]bool)
	for _, e := range n.Out {
		if (withExceptions || e.Kind.IsNormal()) && !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	return out
}

// Preds returns the distinct normal predecessors of a node
func (g *Graph) Preds(id NodeID) []NodeID {
	return g.preds(id, false)
}

// AllPreds returns the distinct predecessors including exception sources
func (g *Graph) AllPreds(id NodeID) []NodeID {
	return g.preds(id, true)
}

func (g *Graph) preds(id NodeID, withExceptions bool) []NodeID {
	n := g.Node(id)
	if n == nil {
		return nil
	}
	var in []NodeID
	seen := make(map[NodeID]bool)
	for _, e := range n.In {
		if (withExceptions || e.Kind.IsNormal()) && !seen[e.From] {
			seen[e.From] = true
			in = append(in, e.From)
		}
	}
	return in
}

// RangesCovering returns the ranges containing id ordered by priority
func (g *Graph) RangesCovering(id NodeID) []*Range {
	var rs []*Range
	for _, r := range g.Ranges {
		if r.Contains(id) {
			rs = append(rs, r)
		}
	}
	return rs
}

// IsHandler reports whether id is the entry of some exception handler
func (g *Graph) IsHandler(id NodeID) bool {
	for _, r := range g.Ranges {
		if r.Handler == id {
			return true
		}
	}
	return false
}

// SyncExceptionEdges rebuilds every exception edge from the range table
func (g *Graph) SyncExceptionEdges() {
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		for _, e := range append([]*Edge(nil), n.Out...) {
			if e.Kind == EdgeException {
				g.RemoveEdge(e)
			}
		}
	}
	live := g.Ranges[:0]
	for _, r := range g.Ranges {
		if len(r.Nodes) > 0 && g.Node(r.Handler) != nil {
			live = append(live, r)
		}
	}
	g.Ranges = live
	for _, r := range g.Ranges {
		for _, id := range sortedIDs(r.Nodes) {
			if g.Node(id) != nil {
				g.Connect(id, r.Handler, EdgeException, 0)
			}
		}
	}
}

// Validate checks that every edge joins two live nodes and is recorded on
// both endpoints
func (g *Graph) Validate() error {
	if g.IsEmpty() {
		return nil
	}
	if g.Node(g.Entry) == nil {
		return fmt.Errorf("entry node %d does not exist", g.Entry)
	}
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		for _, e := range n.Out {
			to := g.Node(e.To)
			if e.From != n.ID || to == nil {
				return fmt.Errorf("dangling edge %d -> %d", e.From, e.To)
			}
			if !containsEdge(to.In, e) {
				return fmt.Errorf("edge %d -> %d missing from predecessor list", e.From, e.To)
			}
		}
		for _, e := range n.In {
			from := g.Node(e.From)
			if e.To != n.ID || from == nil || !containsEdge(from.Out, e) {
				return fmt.Errorf("dangling edge %d -> %d", e.From, e.To)
			}
		}
	}
	for _, r := range g.Ranges {
		if g.Node(r.Handler) == nil {
			return fmt.Errorf("range handler %d does not exist", r.Handler)
		}
		for id := range r.Nodes {
			if g.Node(id) == nil {
				return fmt.Errorf("range covers deleted node %d", id)
			}
		}
	}
	return nil
}

func containsEdge(edges []*Edge, e *Edge) bool {
	for _, x := range edges {
		if x == e {
			return true
		}
	}
	return false
}

// Dump renders a canonical text form of the graph, used for comparisons
// and debugging
func (g *Graph) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "entry %d\n", g.Entry)
	for _, n := range g.Live() {
		fmt.Fprintf(&sb, "node %d %q %s\n", n.ID, n.Label, n.Term)
		for _, s := range n.Stmts {
			fmt.Fprintf(&sb, "  %s\n", ir.FormatStmt(s))
		}
		for _, e := range n.Out {
			if e.Kind == EdgeSwitchCase {
				fmt.Fprintf(&sb, "  -> %d %s %d\n", e.To, e.Kind, e.Value)
			} else {
				fmt.Fprintf(&sb, "  -> %d %s\n", e.To, e.Kind)
			}
		}
	}
	for _, r := range g.Ranges {
		fmt.Fprintf(&sb, "range %v -> %d %q\n", sortedIDs(r.Nodes), r.Handler, r.CatchType)
	}
	return sb.String()
}

func sortedIDs(set map[NodeID]bool) []NodeID {
	ids := make([]NodeID, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

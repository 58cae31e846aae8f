package analyzer

import "sort"

// NaturalLoop is the union of the natural loops of every back edge
// sharing one header
type NaturalLoop struct {
	Header  NodeID
	Latches []NodeID
	Body    map[NodeID]bool
	Parent  *NaturalLoop
}

// Contains reports whether id belongs to the loop body
func (l *NaturalLoop) Contains(id NodeID) bool {
	return l.Body[id]
}

// Exits returns the normal edges leaving the loop, in program order of
// their sources
func (l *NaturalLoop) Exits(g *Graph) []*Edge {
	var exits []*Edge
	for _, id := range sortedByOrder(g, l.Body) {
		for _, e := range g.Node(id).Out {
			if e.Kind.IsNormal() && !l.Body[e.To] {
				exits = append(exits, e)
			}
		}
	}
	return exits
}

// FindLoops collects the natural loops of g keyed by header. Loop bodies
// are gathered by walking predecessors, including exception sources, from
// each latch back to the header.
func FindLoops(g *Graph, dom *DominatorTree) map[NodeID]*NaturalLoop {
	loops := make(map[NodeID]*NaturalLoop)
	for _, be := range FindBackEdges(g, dom) {
		loop, ok := loops[be.Header]
		if !ok {
			loop = &NaturalLoop{Header: be.Header, Body: map[NodeID]bool{be.Header: true}}
			loops[be.Header] = loop
		}
		loop.Latches = append(loop.Latches, be.Latch)

		stack := []NodeID{be.Latch}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if loop.Body[id] {
				continue
			}
			loop.Body[id] = true
			for _, p := range g.AllPreds(id) {
				if dom.Reachable(p) {
					stack = append(stack, p)
				}
			}
		}
	}

	// the innermost enclosing loop is the smallest other body containing the header
	for _, l := range loops {
		for _, other := range loops {
			if other == l || !other.Body[l.Header] || len(other.Body) <= len(l.Body) {
				continue
			}
			if l.Parent == nil || len(other.Body) < len(l.Parent.Body) {
				l.Parent = other
			}
		}
	}
	return loops
}

// Depth returns the nesting depth of the loop, 1 for outermost loops
func (l *NaturalLoop) Depth() int {
	d := 0
	for p := l; p != nil; p = p.Parent {
		d++
	}
	return d
}

func sortedByOrder(g *Graph, set map[NodeID]bool) []NodeID {
	ids := make([]NodeID, 0, len(set))
	for id, ok := range set {
		if ok && g.Node(id) != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return g.Node(ids[i]).Order < g.Node(ids[j]).Order })
	return ids
}

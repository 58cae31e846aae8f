package analyzer

import "sort"

// NormalizeRanges rewrites the range table so that any two ranges are
// either disjoint, identical, or the higher priority one is nested inside
// the lower priority one. A range violating this against a lower priority
// range is split into the part inside it and the part outside it.
func NormalizeRanges(g *Graph) {
	sort.SliceStable(g.Ranges, func(i, j int) bool {
		return g.Ranges[i].Priority < g.Ranges[j].Priority
	})

	for changed := true; changed; {
		changed = false
	scan:
		for i, inner := range g.Ranges {
			for _, outer := range g.Ranges[i+1:] {
				if outer.Priority == inner.Priority {
					continue
				}
				in, out := splitRange(inner.Nodes, outer.Nodes)
				if len(in) == 0 || len(out) == 0 {
					continue
				}
				inner.Nodes = in
				piece := &Range{
					Nodes:     out,
					Handler:   inner.Handler,
					CatchType: inner.CatchType,
					Priority:  inner.Priority,
				}
				g.Ranges = append(g.Ranges[:i+1], append([]*Range{piece}, g.Ranges[i+1:]...)...)
				changed = true
				break scan
			}
		}
	}
}

func splitRange(set, by map[NodeID]bool) (in, out map[NodeID]bool) {
	in = make(map[NodeID]bool)
	out = make(map[NodeID]bool)
	for id := range set {
		if by[id] {
			in[id] = true
		} else {
			out[id] = true
		}
	}
	return in, out
}

// SameNodes reports whether two ranges cover exactly the same nodes
func SameNodes(a, b *Range) bool {
	if len(a.Nodes) != len(b.Nodes) {
		return false
	}
	for id := range a.Nodes {
		if !b.Nodes[id] {
			return false
		}
	}
	return true
}

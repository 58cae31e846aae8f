package analyzer

// DominatorTree holds immediate dominators with pre/post numbering of the
// dominator tree for constant time dominance queries
type DominatorTree struct {
	idom     []NodeID
	root     NodeID
	virtual  NodeID
	children [][]NodeID
	pre      []int
	post     []int
	rpo      []NodeID
}

// ComputeDominators computes the dominator tree of g over all edges,
// including exception edges. idom(entry) is entry.
func ComputeDominators(g *Graph) *DominatorTree {
	size := len(g.Nodes)
	succs := func(v int) []int { return toInts(g.AllSuccs(NodeID(v))) }
	preds := func(v int) []int { return toInts(g.AllPreds(NodeID(v))) }

	if g.IsEmpty() {
		return &DominatorTree{root: NoNode, virtual: NoNode}
	}
	idom, rpo := cooperHarveyKennedy(size, int(g.Entry), succs, preds)
	return newDominatorTree(idom, g.Entry, NoNode, rpo)
}

// ComputePostDominators computes post-dominators over normal edges. A
// virtual exit succeeds every return and throw node. Nodes trapped in
// cycles without an exit are connected to the virtual exit through the
// last such node in reverse postorder.
func ComputePostDominators(g *Graph) *DominatorTree {
	if g.IsEmpty() {
		return &DominatorTree{root: NoNode, virtual: NoNode}
	}
	size := len(g.Nodes) + 1
	exit := len(g.Nodes)

	toExit := make(map[int]bool)
	for _, n := range g.Live() {
		if len(g.Succs(n.ID)) == 0 {
			toExit[int(n.ID)] = true
		}
	}

	revSuccs := func(v int) []int {
		if v == exit {
			var out []int
			for _, n := range g.Live() {
				if toExit[int(n.ID)] {
					out = append(out, int(n.ID))
				}
			}
			return out
		}
		return toInts(g.Preds(NodeID(v)))
	}
	revPreds := func(v int) []int {
		if v == exit {
			return nil
		}
		out := toInts(g.Succs(NodeID(v)))
		if toExit[v] {
			out = append(out, exit)
		}
		return out
	}

	forward := reversePostorder(len(g.Nodes), int(g.Entry), func(v int) []int {
		return toInts(g.Succs(NodeID(v)))
	})
	forwardNum := make(map[int]int, len(forward))
	for i, v := range forward {
		forwardNum[v] = i
	}

	for {
		reached := make(map[int]bool)
		for _, v := range reversePostorder(size, exit, revSuccs) {
			reached[v] = true
		}
		pick := -1
		for _, n := range g.Live() {
			v := int(n.ID)
			if reached[v] {
				continue
			}
			if pick == -1 || forwardNum[v] > forwardNum[pick] {
				pick = v
			}
		}
		if pick == -1 {
			break
		}
		toExit[pick] = true
	}

	idom, rpo := cooperHarveyKennedy(size, exit, revSuccs, revPreds)
	return newDominatorTree(idom, NodeID(exit), NodeID(exit), rpo)
}

func toInts(ids []NodeID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// reversePostorder returns the nodes reachable from root in reverse
// postorder of a depth first search
func reversePostorder(size, root int, succs func(int) []int) []int {
	visited := make([]bool, size)
	var post []int

	type frame struct {
		v    int
		next []int
	}
	visited[root] = true
	stack := []frame{{v: root, next: succs(root)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.next) == 0 {
			post = append(post, top.v)
			stack = stack[:len(stack)-1]
			continue
		}
		w := top.next[0]
		top.next = top.next[1:]
		if !visited[w] {
			visited[w] = true
			stack = append(stack, frame{v: w, next: succs(w)})
		}
	}

	rpo := make([]int, len(post))
	for i, v := range post {
		rpo[len(post)-1-i] = v
	}
	return rpo
}

// cooperHarveyKennedy implements "A Simple, Fast Dominance Algorithm".
// Unreachable nodes get -1.
func cooperHarveyKennedy(size, root int, succs, preds func(int) []int) ([]int, []int) {
	rpo := reversePostorder(size, root, succs)
	order := make([]int, size)
	for i := range order {
		order[i] = -1
	}
	for i, v := range rpo {
		order[v] = len(rpo) - 1 - i // postorder number
	}

	idom := make([]int, size)
	for i := range idom {
		idom[i] = -1
	}
	idom[root] = root

	intersect := func(a, b int) int {
		for a != b {
			for order[a] < order[b] {
				a = idom[a]
			}
			for order[b] < order[a] {
				b = idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, v := range rpo[1:] {
			newIdom := -1
			for _, p := range preds(v) {
				if order[p] < 0 || idom[p] < 0 {
					continue
				}
				if newIdom < 0 {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom >= 0 && idom[v] != newIdom {
				idom[v] = newIdom
				changed = true
			}
		}
	}
	return idom, rpo
}

func newDominatorTree(idom []int, root, virtual NodeID, rpo []int) *DominatorTree {
	d := &DominatorTree{
		idom:     make([]NodeID, len(idom)),
		root:     root,
		virtual:  virtual,
		children: make([][]NodeID, len(idom)),
		pre:      make([]int, len(idom)),
		post:     make([]int, len(idom)),
	}
	for v, p := range idom {
		d.idom[v] = NodeID(p)
		if p >= 0 && v != p {
			d.children[p] = append(d.children[p], NodeID(v))
		}
	}
	for _, v := range rpo {
		if NodeID(v) != virtual {
			d.rpo = append(d.rpo, NodeID(v))
		}
	}

	// number the tree so that a dominates b iff pre[a] <= pre[b] && post[b] <= post[a]
	clock := 0
	type frame struct {
		v    NodeID
		next int
	}
	stack := []frame{{v: root}}
	d.pre[root] = clock
	clock++
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(d.children[top.v]) {
			c := d.children[top.v][top.next]
			top.next++
			d.pre[c] = clock
			clock++
			stack = append(stack, frame{v: c})
			continue
		}
		d.post[top.v] = clock
		clock++
		stack = stack[:len(stack)-1]
	}
	return d
}

func (d *DominatorTree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(d.idom) && d.idom[id] >= 0
}

// Idom returns the immediate dominator of id. The root maps to itself;
// nodes whose immediate dominator is the virtual exit return NoNode.
func (d *DominatorTree) Idom(id NodeID) NodeID {
	if !d.valid(id) {
		return NoNode
	}
	p := d.idom[id]
	if p == d.virtual {
		return NoNode
	}
	return p
}

// Dominates reports whether a dominates b. Every node dominates itself.
func (d *DominatorTree) Dominates(a, b NodeID) bool {
	if !d.valid(a) || !d.valid(b) {
		return false
	}
	return d.pre[a] <= d.pre[b] && d.post[b] <= d.post[a]
}

// StrictlyDominates reports whether a dominates b and a != b
func (d *DominatorTree) StrictlyDominates(a, b NodeID) bool {
	return a != b && d.Dominates(a, b)
}

// Children returns the nodes immediately dominated by id
func (d *DominatorTree) Children(id NodeID) []NodeID {
	if !d.valid(id) {
		return nil
	}
	return d.children[id]
}

// RPO returns the real nodes in reverse postorder of the traversal used
// to build the tree
func (d *DominatorTree) RPO() []NodeID {
	return d.rpo
}

// Reachable reports whether id was reached from the root
func (d *DominatorTree) Reachable(id NodeID) bool {
	return d.valid(id)
}

// BackEdge is a normal edge whose target dominates its source
type BackEdge struct {
	Latch  NodeID
	Header NodeID
}

// FindBackEdges returns every back edge of g in program order of latches
func FindBackEdges(g *Graph, dom *DominatorTree) []BackEdge {
	var edges []BackEdge
	for _, n := range g.Live() {
		for _, succ := range g.Succs(n.ID) {
			if dom.Dominates(succ, n.ID) {
				edges = append(edges, BackEdge{Latch: n.ID, Header: succ})
			}
		}
	}
	return edges
}

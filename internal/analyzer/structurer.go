package analyzer

import (
	"fmt"
	"sort"

	"github.com/ludo-technologies/restructor/internal/ir"
)

// StructureReport summarizes how much of a method needed jump fallbacks
type StructureReport struct {
	Gotos        int      `json:"gotos"`
	Leftovers    []NodeID `json:"leftovers,omitempty"`
	Loops        int      `json:"loops"`
	MaxLoopDepth int      `json:"max_loop_depth"`
	Tries        int      `json:"tries"`
}

// Fallback reports whether canonical structuring failed somewhere
func (r *StructureReport) Fallback() bool {
	return r.Gotos > 0 || len(r.Leftovers) > 0
}

// tryGroup gathers the ranges protecting exactly the same nodes
type tryGroup struct {
	nodes  map[NodeID]bool
	ranges []*Range
}

// jumpTarget is an enclosing construct that break or continue can reach
type jumpTarget struct {
	breakTo    NodeID
	continueTo NodeID
	loop       *Loop
	sw         *SwitchNode
}

// scope is the region a sequence may absorb and what ends it
type scope struct {
	follow  NodeID
	allow   map[NodeID]bool // nil allows every node
	deny    map[NodeID]bool
	targets []*jumpTarget
	open    map[*tryGroup]bool
}

func (sc *scope) allows(id NodeID) bool {
	return (sc.allow == nil || sc.allow[id]) && !sc.deny[id]
}

func (sc *scope) clone() *scope {
	c := *sc
	return &c
}

func (sc *scope) withFollow(follow NodeID) *scope {
	c := sc.clone()
	c.follow = follow
	return c
}

func (sc *scope) restrict(set map[NodeID]bool) *scope {
	c := sc.clone()
	allow := make(map[NodeID]bool)
	for id := range set {
		if sc.allow == nil || sc.allow[id] {
			allow[id] = true
		}
	}
	c.allow = allow
	return c
}

func (sc *scope) excluding(ids ...NodeID) *scope {
	c := sc.clone()
	c.deny = make(map[NodeID]bool, len(sc.deny)+len(ids))
	for id := range sc.deny {
		c.deny[id] = true
	}
	for _, id := range ids {
		c.deny[id] = true
	}
	return c
}

func (sc *scope) push(t *jumpTarget) *scope {
	c := sc.clone()
	c.targets = append(append([]*jumpTarget(nil), sc.targets...), t)
	return c
}

func (sc *scope) opening(grp *tryGroup) *scope {
	c := sc.clone()
	c.open = make(map[*tryGroup]bool, len(sc.open)+1)
	for k := range sc.open {
		c.open[k] = true
	}
	c.open[grp] = true
	return c
}

// Structurer recovers loops, conditionals, switches and try blocks from a
// simplified graph
type Structurer struct {
	g           *Graph
	dom         *DominatorTree
	pdom        *DominatorTree
	loops       map[NodeID]*NaturalLoop
	groups      []*tryGroup
	emitted     map[NodeID]bool
	loopDone    map[NodeID]bool
	gotoTargets map[NodeID]bool
	labels      int
	report      *StructureReport
}

// NewStructurer prepares a structurer for g
func NewStructurer(g *Graph, dom, pdom *DominatorTree) *Structurer {
	s := &Structurer{
		g:           g,
		dom:         dom,
		pdom:        pdom,
		emitted:     make(map[NodeID]bool),
		loopDone:    make(map[NodeID]bool),
		gotoTargets: make(map[NodeID]bool),
		report:      &StructureReport{},
	}
	s.loops = FindLoops(g, dom)
	s.groups = buildTryGroups(g)
	return s
}

// Structure turns g into a statement tree. It never fails: constructs
// that cannot be recovered become labeled jumps, and every live node
// appears exactly once in the result.
func Structure(g *Graph, dom, pdom *DominatorTree) (*Sequence, *StructureReport) {
	return NewStructurer(g, dom, pdom).Run()
}

// Run performs structuring
func (s *Structurer) Run() (*Sequence, *StructureReport) {
	root := &Sequence{}
	if s.g.IsEmpty() {
		return root, s.report
	}

	top := &scope{follow: NoNode, open: map[*tryGroup]bool{}}
	root.Append(s.sequence(s.g.Entry, top))

	for _, n := range s.g.Live() {
		if s.emitted[n.ID] {
			continue
		}
		s.report.Leftovers = append(s.report.Leftovers, n.ID)
		s.gotoTargets[n.ID] = true
		root.Append(s.sequence(n.ID, top))
	}

	s.placeLabels(root)
	Walk(root, func(n StructuredNode) {
		if j, ok := n.(*Goto); ok {
			j.Label = s.labelName(j.Target)
		}
	})
	return root, s.report
}

func buildTryGroups(g *Graph) []*tryGroup {
	var groups []*tryGroup
	ranges := append([]*Range(nil), g.Ranges...)
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].Priority < ranges[j].Priority })
	for _, r := range ranges {
		var grp *tryGroup
		for _, existing := range groups {
			if SameNodes(existing.ranges[0], r) {
				grp = existing
				break
			}
		}
		if grp == nil {
			grp = &tryGroup{nodes: r.Nodes}
			groups = append(groups, grp)
		}
		grp.ranges = append(grp.ranges, r)
	}
	return groups
}

// sequence structures straight-line control flow from start until it
// reaches the scope follow or a node it may not absorb
func (s *Structurer) sequence(start NodeID, sc *scope) *Sequence {
	seq := &Sequence{}
	for cur := start; cur != NoNode; {
		if cur == sc.follow {
			break
		}
		if s.emitted[cur] || !sc.allows(cur) {
			seq.Append(s.jump(cur, sc))
			break
		}
		item, next := s.structureAt(cur, sc)
		seq.Append(item)
		cur = next
	}
	return seq
}

// jump classifies a transfer to a node that cannot be placed inline
func (s *Structurer) jump(target NodeID, sc *scope) StructuredNode {
	innermostLoop := true
	for i := len(sc.targets) - 1; i >= 0; i-- {
		t := sc.targets[i]
		if t.loop != nil && t.continueTo == target {
			c := &Continue{}
			if !innermostLoop {
				c.Label = s.labelTarget(t)
			}
			return c
		}
		if t.breakTo == target && target != NoNode {
			b := &Break{}
			if i != len(sc.targets)-1 {
				b.Label = s.labelTarget(t)
			}
			return b
		}
		if t.loop != nil {
			innermostLoop = false
		}
	}
	s.report.Gotos++
	s.gotoTargets[target] = true
	return &Goto{Target: target}
}

func (s *Structurer) labelTarget(t *jumpTarget) string {
	if t.loop != nil {
		if t.loop.Label == "" {
			s.labels++
			t.loop.Label = fmt.Sprintf("loop%d", s.labels)
		}
		return t.loop.Label
	}
	if t.sw.Label == "" {
		s.labels++
		t.sw.Label = fmt.Sprintf("switch%d", s.labels)
	}
	return t.sw.Label
}

func (s *Structurer) labelName(id NodeID) string {
	if n := s.g.Node(id); n != nil {
		return fmt.Sprintf("L%d", n.Order)
	}
	return fmt.Sprintf("L_%d", id)
}

func (s *Structurer) structureAt(cur NodeID, sc *scope) (StructuredNode, NodeID) {
	n := s.g.Node(cur)

	if grp := s.outermostUnopened(cur, sc); grp != nil {
		loop := s.loops[cur]
		if loop == nil || s.loopDone[cur] || subsetOf(loop.Body, grp.nodes) {
			return s.structureTry(cur, grp, sc)
		}
	}

	if loop := s.loops[cur]; loop != nil && !s.loopDone[cur] {
		return s.structureLoop(cur, loop, sc)
	}

	switch n.Term {
	case ir.TermBranch:
		return s.structureIf(cur, sc)
	case ir.TermSwitch:
		return s.structureSwitch(cur, sc)
	}

	s.emitted[cur] = true
	next := NoNode
	if succs := s.g.Succs(cur); len(succs) == 1 {
		next = succs[0]
	}
	return &Statement{Node: cur, Stmts: n.Stmts}, next
}

func (s *Structurer) outermostUnopened(id NodeID, sc *scope) *tryGroup {
	var best *tryGroup
	for _, grp := range s.groups {
		if !grp.nodes[id] || sc.open[grp] {
			continue
		}
		if best == nil || len(grp.nodes) > len(best.nodes) {
			best = grp
		}
	}
	return best
}

func subsetOf(a, b map[NodeID]bool) bool {
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// structureTry opens a try block at cur covering the nodes of grp. The
// follow is the exit target receiving the most edges from the range.
func (s *Structurer) structureTry(cur NodeID, grp *tryGroup, sc *scope) (StructuredNode, NodeID) {
	s.report.Tries++

	counts := make(map[NodeID]int)
	for _, id := range sortedIDs(grp.nodes) {
		for _, e := range s.g.Node(id).Out {
			if e.Kind.IsNormal() && !grp.nodes[e.To] {
				counts[e.To]++
			}
		}
	}
	follow := NoNode
	for target, c := range counts {
		if follow == NoNode || c > counts[follow] ||
			(c == counts[follow] && s.g.Node(target).Order < s.g.Node(follow).Order) {
			follow = target
		}
	}

	body := s.sequence(cur, sc.opening(grp).restrict(grp.nodes).withFollow(follow))
	try := &Try{Body: body}

	handlerScope := sc.withFollow(follow).excluding(sortedIDs(grp.nodes)...)

	for i := 0; i < len(grp.ranges); i++ {
		r := grp.ranges[i]
		h := &Handler{Node: r.Handler}
		catchAll := false
		for ; i < len(grp.ranges) && grp.ranges[i].Handler == r.Handler; i++ {
			if grp.ranges[i].CatchType == "" {
				catchAll = true
			} else {
				h.Types = append(h.Types, grp.ranges[i].CatchType)
			}
		}
		i--
		if catchAll {
			h.Types = nil
		}
		if hn := s.g.Node(r.Handler); hn != nil && len(hn.Stmts) > 0 {
			if v, ok := ir.IsCaughtBinding(hn.Stmts[0]); ok {
				h.Var = v
			}
		}
		hs := handlerScope
		if hs.allow != nil {
			hs = hs.clone()
			hs.allow = make(map[NodeID]bool, len(sc.allow))
			for id := range sc.allow {
				hs.allow[id] = true
			}
			for id := range s.dominatedBy(r.Handler) {
				hs.allow[id] = true
			}
		}
		h.Body = s.sequence(r.Handler, hs)
		try.Handlers = append(try.Handlers, h)
	}
	return try, follow
}

func (s *Structurer) hasUnopened(id NodeID, sc *scope) bool {
	return s.outermostUnopened(id, sc) != nil
}

// structureLoop recovers the loop headed by cur as a while, do-while or
// infinite loop, in that order of preference. Exit paths that only the
// loop can reach and that never rejoin it are absorbed into the body.
func (s *Structurer) structureLoop(cur NodeID, loop *NaturalLoop, sc *scope) (StructuredNode, NodeID) {
	s.loopDone[cur] = true
	s.report.Loops++
	if d := loop.Depth(); d > s.report.MaxLoopDepth {
		s.report.MaxLoopDepth = d
	}
	header := s.g.Node(cur)
	inBody := sc.restrict(loop.Body)

	if header.IsPureTest() && header.Term == ir.TermBranch && !s.hasUnopened(cur, sc) {
		t := header.EdgeTo(EdgeBranchTrue).To
		f := header.EdgeTo(EdgeBranchFalse).To
		inT := loop.Body[t] && inBody.allows(t)
		inF := loop.Body[f] && inBody.allows(f)
		if inT != inF {
			cond := header.Test().(*ir.If).Cond
			bodyStart, follow := t, f
			if !inT {
				bodyStart, follow = f, t
				cond = ir.Negate(cond)
			}
			s.emitted[cur] = true
			lp := &Loop{Kind: LoopWhile, Node: cur, Cond: cond}
			target := &jumpTarget{breakTo: follow, continueTo: cur, loop: lp}
			inner := s.loopScope(loop, follow, sc).withFollow(cur).push(target)
			lp.Body = s.sequence(bodyStart, inner)
			return lp, follow
		}
	}

	if len(loop.Latches) == 1 && loop.Latches[0] != cur {
		l := loop.Latches[0]
		ln := s.g.Node(l)
		if ln.IsPureTest() && ln.Term == ir.TermBranch && !s.emitted[l] && inBody.allows(l) && !s.hasUnopened(l, sc) {
			t := ln.EdgeTo(EdgeBranchTrue).To
			f := ln.EdgeTo(EdgeBranchFalse).To
			if (t == cur) != (f == cur) {
				cond := ln.Test().(*ir.If).Cond
				follow := f
				if f == cur {
					follow = t
					cond = ir.Negate(cond)
				}
				if !loop.Body[follow] {
					s.emitted[l] = true
					lp := &Loop{Kind: LoopDoWhile, Node: l, Cond: cond}
					target := &jumpTarget{breakTo: follow, continueTo: l, loop: lp}
					inner := s.loopScope(loop, follow, sc).excluding(l).withFollow(l).push(target)
					lp.Body = s.sequence(cur, inner)
					return lp, follow
				}
			}
		}
	}

	follow := NoNode
	for _, e := range loop.Exits(s.g) {
		if _, isTail := s.exitTail(e.To, loop); isTail {
			continue
		}
		if follow == NoNode || s.g.Node(e.To).Order < s.g.Node(follow).Order {
			follow = e.To
		}
	}
	lp := &Loop{Kind: LoopInfinite, Node: NoNode}
	target := &jumpTarget{breakTo: follow, continueTo: cur, loop: lp}
	inner := s.loopScope(loop, follow, sc).withFollow(cur).push(target)
	first, next := s.structureAt(cur, inner)
	lp.Body = &Sequence{}
	lp.Body.Append(first)
	lp.Body.Append(s.sequence(next, inner))
	return lp, follow
}

// loopScope restricts sc to the loop body plus the exit tails other than
// the follow
func (s *Structurer) loopScope(loop *NaturalLoop, follow NodeID, sc *scope) *scope {
	region := make(map[NodeID]bool, len(loop.Body))
	for id := range loop.Body {
		region[id] = true
	}
	for _, e := range loop.Exits(s.g) {
		if e.To == follow {
			continue
		}
		if tail, ok := s.exitTail(e.To, loop); ok && !tail[follow] {
			for id := range tail {
				region[id] = true
			}
		}
	}
	return sc.restrict(region)
}

// exitTail returns the nodes reachable from a loop exit target when they
// are all dominated by it and none of them re-enters the loop
func (s *Structurer) exitTail(exit NodeID, loop *NaturalLoop) (map[NodeID]bool, bool) {
	if loop.Body[exit] {
		return nil, false
	}
	tail := make(map[NodeID]bool)
	stack := []NodeID{exit}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if tail[x] {
			continue
		}
		if loop.Body[x] || !s.dom.Dominates(exit, x) {
			return nil, false
		}
		tail[x] = true
		stack = append(stack, s.g.Succs(x)...)
	}
	return tail, true
}

// dominatedBy returns every node dominated by id
func (s *Structurer) dominatedBy(id NodeID) map[NodeID]bool {
	set := make(map[NodeID]bool)
	stack := []NodeID{id}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		set[x] = true
		stack = append(stack, s.dom.Children(x)...)
	}
	return set
}

// structureIf recovers a two-way conditional. The follow is the immediate
// post-dominator; when there is none, a branch that cannot be absorbed or
// that is shared with other predecessors is used instead.
func (s *Structurer) structureIf(cur NodeID, sc *scope) (StructuredNode, NodeID) {
	n := s.g.Node(cur)
	s.emitted[cur] = true

	test := n.Test().(*ir.If)
	pre := n.Stmts[:len(n.Stmts)-1]
	t := n.EdgeTo(EdgeBranchTrue).To
	f := n.EdgeTo(EdgeBranchFalse).To
	cond := test.Cond

	follow := s.pdom.Idom(cur)
	if follow == NoNode {
		follow = s.fallbackFollow(cur, t, f, sc)
	}

	then := s.branch(t, follow, sc)
	els := s.branch(f, follow, sc)
	if then.IsEmpty() && !els.IsEmpty() {
		cond = ir.Negate(cond)
		then, els = els, then
	}
	node := &IfNode{Node: cur, Pre: pre, Cond: cond, Then: then}
	if els.IsEmpty() {
		return node, follow
	}
	if EndsWithJump(then) {
		seq := &Sequence{Items: []StructuredNode{node}}
		seq.Append(els)
		return seq, follow
	}
	node.Else = els
	return node, follow
}

func (s *Structurer) absorbable(id NodeID, sc *scope) bool {
	return id != sc.follow && !s.emitted[id] && sc.allows(id)
}

func (s *Structurer) fallbackFollow(cur, t, f NodeID, sc *scope) NodeID {
	tOK, fOK := s.absorbable(t, sc), s.absorbable(f, sc)
	switch {
	case tOK && !fOK:
		return t
	case fOK && !tOK:
		return f
	case !tOK && !fOK:
		return NoNode
	}
	if len(s.g.Preds(f)) > 1 && !s.dom.Dominates(f, cur) {
		return f
	}
	if len(s.g.Preds(t)) > 1 && !s.dom.Dominates(t, cur) {
		return t
	}
	return NoNode
}

func (s *Structurer) branch(start, follow NodeID, sc *scope) *Sequence {
	if start == follow {
		return &Sequence{}
	}
	return s.sequence(start, sc.withFollow(follow))
}

type caseTarget struct {
	node   NodeID
	values []int64
	def    bool
}

// structureSwitch recovers a switch whose cases fall through into the
// next case in program order
func (s *Structurer) structureSwitch(cur NodeID, sc *scope) (StructuredNode, NodeID) {
	n := s.g.Node(cur)
	s.emitted[cur] = true

	test := n.Test().(*ir.Switch)
	follow := s.pdom.Idom(cur)

	byTarget := make(map[NodeID]*caseTarget)
	var targets []*caseTarget
	get := func(id NodeID) *caseTarget {
		ct, ok := byTarget[id]
		if !ok {
			ct = &caseTarget{node: id}
			byTarget[id] = ct
			targets = append(targets, ct)
		}
		return ct
	}

	var defTarget NodeID = NoNode
	for _, e := range n.Out {
		switch e.Kind {
		case EdgeSwitchCase:
			ct := get(e.To)
			ct.values = append(ct.values, e.Value)
		case EdgeSwitchDefault:
			defTarget = e.To
		}
	}
	if defTarget != NoNode && defTarget != follow {
		get(defTarget).def = true
	}

	var real []*caseTarget
	var toFollow *caseTarget
	for _, ct := range targets {
		if ct.node == follow {
			if defTarget != follow {
				toFollow = ct
			}
			continue
		}
		real = append(real, ct)
	}
	sort.SliceStable(real, func(i, j int) bool {
		return s.g.Node(real[i].node).Order < s.g.Node(real[j].node).Order
	})

	sw := &SwitchNode{Node: cur, Pre: n.Stmts[:len(n.Stmts)-1], Value: test.Value}
	target := &jumpTarget{breakTo: follow, continueTo: NoNode, sw: sw}
	inSwitch := sc.push(target)

	starts := make([]NodeID, len(real))
	for i, ct := range real {
		starts[i] = ct.node
	}

	for i, ct := range real {
		next := follow
		if i+1 < len(real) {
			next = real[i+1].node
		}
		others := []NodeID{follow}
		for _, id := range starts {
			if id != ct.node && id != next {
				others = append(others, id)
			}
		}
		sort.Slice(ct.values, func(a, b int) bool { return ct.values[a] < ct.values[b] })
		c := &Case{Values: ct.values, Default: ct.def}
		c.Body = s.sequence(ct.node, inSwitch.excluding(others...).withFollow(next))
		sw.Cases = append(sw.Cases, c)
	}
	if toFollow != nil && len(toFollow.values) > 0 {
		sort.Slice(toFollow.values, func(a, b int) bool { return toFollow.values[a] < toFollow.values[b] })
		sw.Cases = append(sw.Cases, &Case{
			Values: toFollow.values,
			Body:   &Sequence{Items: []StructuredNode{&Break{}}},
		})
	}
	return sw, follow
}

// placeLabels inserts a Label before the element where each goto target
// is placed
func (s *Structurer) placeLabels(seq *Sequence) {
	if seq == nil {
		return
	}
	items := make([]StructuredNode, 0, len(seq.Items))
	for _, item := range seq.Items {
		if id := primaryNode(item); id != NoNode && s.gotoTargets[id] {
			items = append(items, &Label{Node: id, Name: s.labelName(id)})
		}
		items = append(items, item)

		switch x := item.(type) {
		case *IfNode:
			s.placeLabels(x.Then)
			s.placeLabels(x.Else)
		case *Loop:
			s.placeLabels(x.Body)
			if x.Kind == LoopDoWhile && s.gotoTargets[x.Node] {
				x.Body.Items = append(x.Body.Items, &Label{Node: x.Node, Name: s.labelName(x.Node)})
			}
		case *SwitchNode:
			for _, c := range x.Cases {
				s.placeLabels(c.Body)
			}
		case *Try:
			s.placeLabels(x.Body)
			for _, h := range x.Handlers {
				s.placeLabels(h.Body)
			}
		}
	}
	seq.Items = items
}

func primaryNode(item StructuredNode) NodeID {
	switch x := item.(type) {
	case *Statement:
		return x.Node
	case *IfNode:
		return x.Node
	case *SwitchNode:
		return x.Node
	case *Loop:
		if x.Kind == LoopWhile {
			return x.Node
		}
	}
	return NoNode
}

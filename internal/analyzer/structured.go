package analyzer

import (
	"github.com/ludo-technologies/restructor/internal/ir"
)

// StructuredNode is one element of the recovered statement tree
type StructuredNode interface {
	isStructured()
}

// Statement emits the statements of one graph node verbatim
type Statement struct {
	Node  NodeID
	Stmts []ir.Stmt
}

// Sequence is an ordered list of structured nodes
type Sequence struct {
	Items []StructuredNode
}

// IfNode is a two-way conditional. Pre holds statements of the condition
// node evaluated before the test.
type IfNode struct {
	Node NodeID
	Pre  []ir.Stmt
	Cond ir.Expr
	Then *Sequence
	Else *Sequence // nil when absent
}

// LoopKind classifies a recovered loop
type LoopKind int

const (
	LoopWhile LoopKind = iota
	LoopDoWhile
	LoopInfinite
)

// String returns the loop kind name
func (k LoopKind) String() string {
	switch k {
	case LoopWhile:
		return "while"
	case LoopDoWhile:
		return "do-while"
	case LoopInfinite:
		return "infinite"
	default:
		return "unknown"
	}
}

// Loop is a recovered loop. Node is the header test for while loops, the
// latch test for do-while loops, and NoNode for infinite loops.
type Loop struct {
	Kind  LoopKind
	Node  NodeID
	Cond  ir.Expr
	Body  *Sequence
	Label string // set when a labeled break or continue targets the loop
}

// Case is one arm of a switch. Falling off the end of a case body
// continues into the next case.
type Case struct {
	Values  []int64
	Default bool
	Body    *Sequence
}

// SwitchNode is a multi-way dispatch
type SwitchNode struct {
	Node  NodeID
	Pre   []ir.Stmt
	Value ir.Expr
	Cases []*Case
	Label string
}

// Handler is one catch clause of a Try. Types is empty for catch-all
// handlers.
type Handler struct {
	Node  NodeID
	Types []string
	Var   *ir.Variable
	Body  *Sequence
}

// Try protects Body with handlers listed in priority order
type Try struct {
	Body     *Sequence
	Handlers []*Handler
}

// Break leaves the innermost loop or switch, or the labeled one
type Break struct {
	Label string
}

// Continue restarts the innermost loop, or the labeled one
type Continue struct {
	Label string
}

// Goto transfers control to a labeled node when no structured form fits
type Goto struct {
	Target NodeID
	Label  string
}

// Label marks the position of a Goto target
type Label struct {
	Node NodeID
	Name string
}

func (*Statement) isStructured()  {}
func (*Sequence) isStructured()   {}
func (*IfNode) isStructured()     {}
func (*Loop) isStructured()       {}
func (*SwitchNode) isStructured() {}
func (*Try) isStructured()        {}
func (*Break) isStructured()      {}
func (*Continue) isStructured()   {}
func (*Goto) isStructured()       {}
func (*Label) isStructured()      {}

// Append adds items, flattening nested sequences
func (s *Sequence) Append(items ...StructuredNode) {
	for _, item := range items {
		if nested, ok := item.(*Sequence); ok {
			s.Items = append(s.Items, nested.Items...)
			continue
		}
		s.Items = append(s.Items, item)
	}
}

// IsEmpty returns true if the sequence has no items
func (s *Sequence) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}

// EndsWithJump reports whether control never falls off the end of s
func EndsWithJump(s *Sequence) bool {
	if s.IsEmpty() {
		return false
	}
	switch last := s.Items[len(s.Items)-1].(type) {
	case *Break, *Continue, *Goto:
		return true
	case *Statement:
		if len(last.Stmts) == 0 {
			return false
		}
		switch last.Stmts[len(last.Stmts)-1].(type) {
		case *ir.Return, *ir.Throw:
			return true
		}
	case *IfNode:
		return last.Else != nil && EndsWithJump(last.Then) && EndsWithJump(last.Else)
	}
	return false
}

// Walk visits every structured node in tree order
func Walk(n StructuredNode, fn func(StructuredNode)) {
	if n == nil {
		return
	}
	fn(n)
	switch x := n.(type) {
	case *Sequence:
		if x == nil {
			return
		}
		for _, item := range x.Items {
			Walk(item, fn)
		}
	case *IfNode:
		Walk(x.Then, fn)
		if x.Else != nil {
			Walk(x.Else, fn)
		}
	case *Loop:
		Walk(x.Body, fn)
	case *SwitchNode:
		for _, c := range x.Cases {
			Walk(c.Body, fn)
		}
	case *Try:
		Walk(x.Body, fn)
		for _, h := range x.Handlers {
			Walk(h.Body, fn)
		}
	}
}

// EmittedNodes returns every graph node placed in the tree, one entry per
// placement: statement leaves plus the condition nodes of conditionals,
// loops and switches
func EmittedNodes(root *Sequence) []NodeID {
	var ids []NodeID
	Walk(root, func(n StructuredNode) {
		switch x := n.(type) {
		case *Statement:
			ids = append(ids, x.Node)
		case *IfNode:
			ids = append(ids, x.Node)
		case *Loop:
			if x.Node != NoNode {
				ids = append(ids, x.Node)
			}
		case *SwitchNode:
			ids = append(ids, x.Node)
		}
	})
	return ids
}

package ir

// Stmt is one IR statement owned by exactly one basic block
type Stmt interface {
	isStmt()
}

// Assign defines Dst
type Assign struct {
	Dst *Variable
	Src Expr
}

// ExprStmt evaluates an expression for its side effects
type ExprStmt struct {
	X Expr
}

type FieldStore struct {
	Object Expr // nil for static fields
	Owner  string
	Field  string
	Value  Expr
}

type ArrayStore struct {
	Array, Index, Value Expr
}

// Return leaves the method. Value is nil for void returns.
type Return struct {
	Value Expr
}

type Throw struct {
	Value Expr
}

// If is the conditional test ending a block with a two-way branch
type If struct {
	Cond Expr
}

// Switch is the dispatch ending a block with a multi-way branch
type Switch struct {
	Value Expr
}

func (*Assign) isStmt()     {}
func (*ExprStmt) isStmt()   {}
func (*FieldStore) isStmt() {}
func (*ArrayStore) isStmt() {}
func (*Return) isStmt()     {}
func (*Throw) isStmt()      {}
func (*If) isStmt()         {}
func (*Switch) isStmt()     {}

// IsCaughtBinding reports whether s binds the exception delivered to a handler
func IsCaughtBinding(s Stmt) (*Variable, bool) {
	a, ok := s.(*Assign)
	if !ok {
		return nil, false
	}
	if _, ok := a.Src.(*Caught); ok {
		return a.Dst, true
	}
	return nil, false
}

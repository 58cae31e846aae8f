package ir

// WalkExpr visits e and its operands depth first, in evaluation order.
// Returning false from fn stops descent into the operands of that node.
func WalkExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, op := range operands(e) {
		WalkExpr(op, fn)
	}
}

func operands(e Expr) []Expr {
	switch x := e.(type) {
	case *Binary:
		return []Expr{x.Left, x.Right}
	case *Unary:
		return []Expr{x.X}
	case *Call:
		ops := make([]Expr, 0, len(x.Args)+1)
		if x.Receiver != nil {
			ops = append(ops, x.Receiver)
		}
		return append(ops, x.Args...)
	case *New:
		return x.Args
	case *NewArray:
		return []Expr{x.Length}
	case *FieldLoad:
		if x.Object != nil {
			return []Expr{x.Object}
		}
	case *ArrayLoad:
		return []Expr{x.Array, x.Index}
	case *ArrayLength:
		return []Expr{x.Array}
	case *Cast:
		return []Expr{x.X}
	case *InstanceOf:
		return []Expr{x.X}
	}
	return nil
}

// StmtExprs returns the expressions a statement evaluates, in order
func StmtExprs(s Stmt) []Expr {
	switch x := s.(type) {
	case *Assign:
		return []Expr{x.Src}
	case *ExprStmt:
		return []Expr{x.X}
	case *FieldStore:
		if x.Object != nil {
			return []Expr{x.Object, x.Value}
		}
		return []Expr{x.Value}
	case *ArrayStore:
		return []Expr{x.Array, x.Index, x.Value}
	case *Return:
		if x.Value != nil {
			return []Expr{x.Value}
		}
	case *Throw:
		return []Expr{x.Value}
	case *If:
		return []Expr{x.Cond}
	case *Switch:
		return []Expr{x.Value}
	}
	return nil
}

// Def returns the variable defined by s, if any
func Def(s Stmt) *Variable {
	if a, ok := s.(*Assign); ok {
		return a.Dst
	}
	return nil
}

// Uses returns every variable read by s, one entry per occurrence
func Uses(s Stmt) []*Variable {
	var vars []*Variable
	for _, e := range StmtExprs(s) {
		vars = append(vars, ExprVars(e)...)
	}
	return vars
}

// ExprVars returns every variable read by e, one entry per occurrence
func ExprVars(e Expr) []*Variable {
	var vars []*Variable
	WalkExpr(e, func(x Expr) bool {
		if l, ok := x.(*Local); ok {
			vars = append(vars, l.Var)
		}
		return true
	})
	return vars
}

// ExprHasSideEffects reports whether evaluating e can change program state
func ExprHasSideEffects(e Expr) bool {
	found := false
	WalkExpr(e, func(x Expr) bool {
		switch x.(type) {
		case *Call, *New, *NewArray:
			found = true
		}
		return !found
	})
	return found
}

// HasSideEffects reports whether s must be kept regardless of whether its
// result is used
func HasSideEffects(s Stmt) bool {
	switch x := s.(type) {
	case *Assign:
		return ExprHasSideEffects(x.Src)
	default:
		return true
	}
}

// MayThrow reports whether evaluating e can raise an exception
func MayThrow(e Expr) bool {
	found := false
	WalkExpr(e, func(x Expr) bool {
		switch n := x.(type) {
		case *Call, *New, *NewArray, *FieldLoad, *ArrayLoad, *ArrayLength, *Cast:
			found = true
		case *Binary:
			if n.Op == OpDiv || n.Op == OpRem {
				found = true
			}
		}
		return !found
	})
	return found
}

// StmtMayThrow reports whether evaluating the expressions of s can raise an
// exception
func StmtMayThrow(s Stmt) bool {
	for _, e := range StmtExprs(s) {
		if MayThrow(e) {
			return true
		}
	}
	return false
}

// ThrowsBefore reports whether evaluating s may raise an exception before
// its first read of v.
func ThrowsBefore(s Stmt, v *Variable) bool {
	for _, e := range StmtExprs(s) {
		reached, throws := throwsBefore(e, v)
		if throws {
			return true
		}
		if reached {
			return false
		}
	}
	return false
}

// throwsBefore evaluates e operands first. reached reports that v was read,
// throws that an operation completed before that read may raise.
func throwsBefore(e Expr, v *Variable) (reached, throws bool) {
	if l, ok := e.(*Local); ok && l.Var.ID == v.ID {
		return true, false
	}
	for _, op := range operands(e) {
		if reached, throws = throwsBefore(op, v); reached || throws {
			return reached, throws
		}
	}
	return false, MayThrow(e)
}

// ReadsMemory reports whether e observes heap state
func ReadsMemory(e Expr) bool {
	found := false
	WalkExpr(e, func(x Expr) bool {
		switch x.(type) {
		case *Call, *FieldLoad, *ArrayLoad, *ArrayLength:
			found = true
		}
		return !found
	})
	return found
}

// ContainsCall reports whether any expression of s invokes code
func ContainsCall(s Stmt) bool {
	for _, e := range StmtExprs(s) {
		if ExprHasSideEffects(e) {
			return true
		}
	}
	return false
}

// ReplaceVar substitutes with for every read of v in s and returns the
// number of replaced occurrences. Assignment targets are not touched.
func ReplaceVar(s Stmt, v *Variable, with Expr) int {
	n := 0
	r := func(e Expr) Expr { return replaceExpr(e, v, with, &n) }
	switch x := s.(type) {
	case *Assign:
		x.Src = r(x.Src)
	case *ExprStmt:
		x.X = r(x.X)
	case *FieldStore:
		if x.Object != nil {
			x.Object = r(x.Object)
		}
		x.Value = r(x.Value)
	case *ArrayStore:
		x.Array = r(x.Array)
		x.Index = r(x.Index)
		x.Value = r(x.Value)
	case *Return:
		if x.Value != nil {
			x.Value = r(x.Value)
		}
	case *Throw:
		x.Value = r(x.Value)
	case *If:
		x.Cond = r(x.Cond)
	case *Switch:
		x.Value = r(x.Value)
	}
	return n
}

func replaceExpr(e Expr, v *Variable, with Expr, n *int) Expr {
	if e == nil {
		return nil
	}
	r := func(x Expr) Expr { return replaceExpr(x, v, with, n) }
	switch x := e.(type) {
	case *Local:
		if x.Var.ID == v.ID {
			*n++
			return with
		}
	case *Binary:
		x.Left = r(x.Left)
		x.Right = r(x.Right)
	case *Unary:
		x.X = r(x.X)
	case *Call:
		x.Receiver = r(x.Receiver)
		for i := range x.Args {
			x.Args[i] = r(x.Args[i])
		}
	case *New:
		for i := range x.Args {
			x.Args[i] = r(x.Args[i])
		}
	case *NewArray:
		x.Length = r(x.Length)
	case *FieldLoad:
		x.Object = r(x.Object)
	case *ArrayLoad:
		x.Array = r(x.Array)
		x.Index = r(x.Index)
	case *ArrayLength:
		x.Array = r(x.Array)
	case *Cast:
		x.X = r(x.X)
	case *InstanceOf:
		x.X = r(x.X)
	}
	return e
}

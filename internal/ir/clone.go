package ir

// CloneExpr returns a deep copy of e. Variables are shared, not copied.
func CloneExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *Local:
		return &Local{Var: x.Var}
	case *Const:
		return &Const{Text: x.Text}
	case *Binary:
		return &Binary{Op: x.Op, Left: CloneExpr(x.Left), Right: CloneExpr(x.Right)}
	case *Unary:
		return &Unary{Op: x.Op, X: CloneExpr(x.X)}
	case *Call:
		return &Call{Receiver: CloneExpr(x.Receiver), Owner: x.Owner, Method: x.Method, Args: cloneExprs(x.Args)}
	case *New:
		return &New{Type: x.Type, Args: cloneExprs(x.Args)}
	case *NewArray:
		return &NewArray{Type: x.Type, Length: CloneExpr(x.Length)}
	case *FieldLoad:
		return &FieldLoad{Object: CloneExpr(x.Object), Owner: x.Owner, Field: x.Field}
	case *ArrayLoad:
		return &ArrayLoad{Array: CloneExpr(x.Array), Index: CloneExpr(x.Index)}
	case *ArrayLength:
		return &ArrayLength{Array: CloneExpr(x.Array)}
	case *Cast:
		return &Cast{Type: x.Type, X: CloneExpr(x.X)}
	case *InstanceOf:
		return &InstanceOf{X: CloneExpr(x.X), Type: x.Type}
	case *Caught:
		return &Caught{Type: x.Type}
	}
	return e
}

func cloneExprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = CloneExpr(e)
	}
	return out
}

// CloneStmt returns a deep copy of s so passes that rewrite statements in
// place leave the decoded method untouched
func CloneStmt(s Stmt) Stmt {
	switch x := s.(type) {
	case *Assign:
		return &Assign{Dst: x.Dst, Src: CloneExpr(x.Src)}
	case *ExprStmt:
		return &ExprStmt{X: CloneExpr(x.X)}
	case *FieldStore:
		return &FieldStore{Object: CloneExpr(x.Object), Owner: x.Owner, Field: x.Field, Value: CloneExpr(x.Value)}
	case *ArrayStore:
		return &ArrayStore{Array: CloneExpr(x.Array), Index: CloneExpr(x.Index), Value: CloneExpr(x.Value)}
	case *Return:
		return &Return{Value: CloneExpr(x.Value)}
	case *Throw:
		return &Throw{Value: CloneExpr(x.Value)}
	case *If:
		return &If{Cond: CloneExpr(x.Cond)}
	case *Switch:
		return &Switch{Value: CloneExpr(x.Value)}
	}
	return s
}

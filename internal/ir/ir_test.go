package ir

import (
	"testing"
)

func local(id int, name string) *Local {
	return &Local{Var: &Variable{ID: id, Name: name}}
}

func TestFormatExpr(t *testing.T) {
	a := local(1, "a")
	b := local(2, "b")
	c := local(3, "c")

	tests := []struct {
		name     string
		expr     Expr
		expected string
	}{
		{"constant", &Const{Text: "42"}, "42"},
		{"simple binary", &Binary{Op: OpAdd, Left: a, Right: b}, "a + b"},
		{"left nested same precedence", &Binary{Op: OpSub, Left: &Binary{Op: OpSub, Left: a, Right: b}, Right: c}, "a - b - c"},
		{"right nested same precedence", &Binary{Op: OpSub, Left: a, Right: &Binary{Op: OpSub, Left: b, Right: c}}, "a - (b - c)"},
		{"lower precedence operand", &Binary{Op: OpMul, Left: &Binary{Op: OpAdd, Left: a, Right: b}, Right: c}, "(a + b) * c"},
		{"comparison", &Binary{Op: OpLt, Left: a, Right: &Binary{Op: OpAdd, Left: b, Right: c}}, "a < b + c"},
		{"not of comparison", &Unary{Op: OpNot, X: &Binary{Op: OpLt, Left: a, Right: b}}, "!(a < b)"},
		{"double negation", &Unary{Op: OpNeg, X: &Unary{Op: OpNeg, X: a}}, "- -a"},
		{"static call", &Call{Owner: "Math", Method: "max", Args: []Expr{a, b}}, "Math.max(a, b)"},
		{"virtual call", &Call{Receiver: a, Method: "size"}, "a.size()"},
		{"new", &New{Type: "StringBuilder", Args: []Expr{&Const{Text: `"x"`}}}, `new StringBuilder("x")`},
		{"field of cast", &FieldLoad{Object: &Cast{Type: "Point", X: a}, Field: "x"}, "((Point)a).x"},
		{"static field", &FieldLoad{Owner: "System", Field: "out"}, "System.out"},
		{"array load", &ArrayLoad{Array: a, Index: &Binary{Op: OpAdd, Left: b, Right: &Const{Text: "1"}}}, "a[b + 1]"},
		{"array length", &ArrayLength{Array: a}, "a.length"},
		{"instanceof", &InstanceOf{X: a, Type: "String"}, "a instanceof String"},
		{"new array", &NewArray{Type: "int", Length: b}, "new int[b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatExpr(tt.expr)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFormatStmt(t *testing.T) {
	x := &Variable{ID: 1, Name: "x"}
	p := &Variable{ID: 2, Role: RoleParameter, Index: 0}

	tests := []struct {
		stmt     Stmt
		expected string
	}{
		{&Assign{Dst: x, Src: &Local{Var: p}}, "x = p0;"},
		{&Return{}, "return;"},
		{&Return{Value: &Local{Var: x}}, "return x;"},
		{&Throw{Value: &New{Type: "IllegalStateException"}}, "throw new IllegalStateException();"},
		{&FieldStore{Object: &Local{Var: x}, Field: "count", Value: &Const{Text: "0"}}, "x.count = 0;"},
		{&ArrayStore{Array: &Local{Var: x}, Index: &Const{Text: "0"}, Value: &Const{Text: "1"}}, "x[0] = 1;"},
		{&If{Cond: &Binary{Op: OpEq, Left: &Local{Var: x}, Right: &Const{Text: "null"}}}, "if (x == null)"},
		{&Switch{Value: &Local{Var: x}}, "switch (x)"},
	}

	for _, tt := range tests {
		got := FormatStmt(tt.stmt)
		if got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

func TestNegate(t *testing.T) {
	a := local(1, "a")
	b := local(2, "b")

	tests := []struct {
		name     string
		expr     Expr
		expected string
	}{
		{"equality flips", &Binary{Op: OpEq, Left: a, Right: b}, "a != b"},
		{"inequality flips", &Binary{Op: OpNe, Left: a, Right: b}, "a == b"},
		{"ordering is wrapped", &Binary{Op: OpLt, Left: a, Right: b}, "!(a < b)"},
		{"not is removed", &Unary{Op: OpNot, X: a}, "a"},
		{"true literal", &Const{Text: "true"}, "false"},
		{"plain local", a, "!a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatExpr(Negate(tt.expr))
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSideEffectPredicates(t *testing.T) {
	a := local(1, "a")
	b := local(2, "b")

	pureArith := &Binary{Op: OpAdd, Left: a, Right: b}
	division := &Binary{Op: OpDiv, Left: a, Right: b}
	call := &Call{Receiver: a, Method: "next"}
	load := &FieldLoad{Object: a, Field: "f"}

	if ExprHasSideEffects(pureArith) || MayThrow(pureArith) || ReadsMemory(pureArith) {
		t.Error("Addition of locals should be pure")
	}
	if ExprHasSideEffects(division) {
		t.Error("Division has no side effects")
	}
	if !MayThrow(division) {
		t.Error("Division may throw")
	}
	if !ExprHasSideEffects(&Binary{Op: OpAdd, Left: call, Right: b}) {
		t.Error("Nested call should be side effecting")
	}
	if !ReadsMemory(load) || !MayThrow(load) || ExprHasSideEffects(load) {
		t.Error("Field load reads memory and may throw but has no side effects")
	}
	if HasSideEffects(&Assign{Dst: &Variable{ID: 3}, Src: pureArith}) {
		t.Error("Pure assignment should not be side effecting")
	}
	if !HasSideEffects(&ExprStmt{X: call}) {
		t.Error("Expression statement should be side effecting")
	}
	if !HasSideEffects(&Return{}) {
		t.Error("Return should be side effecting")
	}
}

func TestThrowsBefore(t *testing.T) {
	a := local(1, "a")
	b := local(2, "b")
	v := local(3, "v")
	load := func(obj Expr) Expr { return &FieldLoad{Object: obj, Field: "f"} }

	tests := []struct {
		name     string
		stmt     Stmt
		expected bool
	}{
		{"v read first", &Return{Value: &Binary{Op: OpAdd, Left: v, Right: load(a)}}, false},
		{"load evaluated first", &Return{Value: &Binary{Op: OpAdd, Left: load(a), Right: v}}, true},
		{"division evaluated first", &Return{Value: &Binary{Op: OpSub, Left: &Binary{Op: OpDiv, Left: a, Right: b}, Right: v}}, true},
		{"enclosing load", &Return{Value: load(v)}, false},
		{"pure operands first", &Return{Value: &Binary{Op: OpAdd, Left: &Binary{Op: OpMul, Left: a, Right: b}, Right: v}}, false},
		{"store object first", &FieldStore{Object: load(a), Field: "g", Value: v}, true},
		{"array index first", &ArrayStore{Array: a, Index: v, Value: load(b)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThrowsBefore(tt.stmt, v.Var); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	if !StmtMayThrow(&Assign{Dst: v.Var, Src: load(a)}) {
		t.Error("Field load assignment may throw")
	}
	if StmtMayThrow(&Assign{Dst: v.Var, Src: &Binary{Op: OpAdd, Left: a, Right: b}}) {
		t.Error("Addition of locals cannot throw")
	}
}

func TestUsesAndReplaceVar(t *testing.T) {
	x := &Variable{ID: 1, Name: "x"}
	y := &Variable{ID: 2, Name: "y"}
	stmt := &Assign{
		Dst: y,
		Src: &Binary{Op: OpMul, Left: &Local{Var: x}, Right: &Local{Var: x}},
	}

	uses := Uses(stmt)
	if len(uses) != 2 {
		t.Fatalf("Expected 2 uses, got %d", len(uses))
	}
	if Def(stmt) != y {
		t.Error("Expected y to be defined")
	}

	n := ReplaceVar(stmt, x, &Binary{Op: OpAdd, Left: &Const{Text: "1"}, Right: &Const{Text: "2"}})
	if n != 2 {
		t.Errorf("Expected 2 replacements, got %d", n)
	}
	if got := FormatStmt(stmt); got != "y = (1 + 2) * (1 + 2);" {
		t.Errorf("Unexpected statement after replacement: %s", got)
	}
}

func TestCaughtBinding(t *testing.T) {
	e := &Variable{ID: 1, Name: "e"}
	v, ok := IsCaughtBinding(&Assign{Dst: e, Src: &Caught{Type: "IOException"}})
	if !ok || v != e {
		t.Error("Expected caught binding to be recognized")
	}
	if _, ok := IsCaughtBinding(&Assign{Dst: e, Src: &Const{Text: "null"}}); ok {
		t.Error("Plain assignment is not a caught binding")
	}
}

func TestMethodSignature(t *testing.T) {
	m := &Method{
		Class:      "com.example.Calc",
		Name:       "max",
		Modifiers:  []string{"public", "static"},
		ReturnType: "int",
		Params: []*Variable{
			{ID: 0, Role: RoleParameter, Index: 0, Name: "a", Type: "int"},
			{ID: 1, Role: RoleParameter, Index: 1, Name: "b", Type: "int"},
		},
	}
	if got := m.Signature(); got != "public static int max(int a, int b)" {
		t.Errorf("Unexpected signature: %s", got)
	}
	if m.Identity() != "com.example.Calc.max" {
		t.Errorf("Unexpected identity: %s", m.Identity())
	}

	ctor := &Method{Class: "com.example.Calc", Name: "<init>", Modifiers: []string{"public"}}
	if got := ctor.Signature(); got != "public Calc()" {
		t.Errorf("Unexpected constructor signature: %s", got)
	}
}

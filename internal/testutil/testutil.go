// Package testutil provides helper functions for testing restructor components
package testutil

import (
	"testing"

	"github.com/ludo-technologies/restructor/internal/ir"
)

// MethodBuilder assembles a decoded method block by block
type MethodBuilder struct {
	method *ir.Method
	vars   map[string]*ir.Variable
	nextID int
}

// NewMethod starts a static void method in class Test
func NewMethod(name string) *MethodBuilder {
	return &MethodBuilder{
		method: &ir.Method{Class: "Test", Name: name, Modifiers: []string{"static"}},
		vars:   make(map[string]*ir.Variable),
		nextID: 1,
	}
}

// Returns sets the declared return type
func (b *MethodBuilder) Returns(typ string) *MethodBuilder {
	b.method.ReturnType = typ
	return b
}

// Param declares the next parameter
func (b *MethodBuilder) Param(name, typ string) *ir.Variable {
	v := &ir.Variable{ID: b.nextID, Role: ir.RoleParameter, Index: len(b.method.Params), Name: name, Type: typ}
	b.nextID++
	b.vars[name] = v
	b.method.Params = append(b.method.Params, v)
	return v
}

// Var returns the local with the given name, creating it on first use
func (b *MethodBuilder) Var(name string) *ir.Variable {
	if v, ok := b.vars[name]; ok {
		return v
	}
	v := &ir.Variable{ID: b.nextID, Role: ir.RoleLocal, Name: name}
	b.nextID++
	b.vars[name] = v
	return v
}

func (b *MethodBuilder) add(label string, term ir.Terminator, stmts []ir.Stmt) *MethodBuilder {
	b.method.Blocks = append(b.method.Blocks, &ir.Block{Label: label, Stmts: stmts, Term: term})
	return b
}

// Fall adds a block that continues into the next block
func (b *MethodBuilder) Fall(label string, stmts ...ir.Stmt) *MethodBuilder {
	return b.add(label, ir.Terminator{Kind: ir.TermFallthrough}, stmts)
}

// Jump adds a block that continues at target
func (b *MethodBuilder) Jump(label, target string, stmts ...ir.Stmt) *MethodBuilder {
	return b.add(label, ir.Terminator{Kind: ir.TermFallthrough, Target: target}, stmts)
}

// Branch adds a block ending in a two-way test. An empty onFalse continues
// into the next block.
func (b *MethodBuilder) Branch(label string, cond ir.Expr, onTrue, onFalse string, pre ...ir.Stmt) *MethodBuilder {
	stmts := append(append([]ir.Stmt(nil), pre...), &ir.If{Cond: cond})
	return b.add(label, ir.Terminator{Kind: ir.TermBranch, True: onTrue, False: onFalse}, stmts)
}

// Switch adds a block ending in a multi-way dispatch
func (b *MethodBuilder) Switch(label string, value ir.Expr, cases []ir.SwitchCase, def string, pre ...ir.Stmt) *MethodBuilder {
	stmts := append(append([]ir.Stmt(nil), pre...), &ir.Switch{Value: value})
	return b.add(label, ir.Terminator{Kind: ir.TermSwitch, Cases: cases, Default: def}, stmts)
}

// Return adds a block ending in a return; value may be nil
func (b *MethodBuilder) Return(label string, value ir.Expr, pre ...ir.Stmt) *MethodBuilder {
	stmts := append(append([]ir.Stmt(nil), pre...), &ir.Return{Value: value})
	return b.add(label, ir.Terminator{Kind: ir.TermReturn}, stmts)
}

// Throw adds a block ending in a throw
func (b *MethodBuilder) Throw(label string, value ir.Expr, pre ...ir.Stmt) *MethodBuilder {
	stmts := append(append([]ir.Stmt(nil), pre...), &ir.Throw{Value: value})
	return b.add(label, ir.Terminator{Kind: ir.TermThrow}, stmts)
}

// Try protects the blocks from start up to but excluding end
func (b *MethodBuilder) Try(start, end, handler, catchType string) *MethodBuilder {
	b.method.Ranges = append(b.method.Ranges, ir.ExceptionRange{
		Start: start, End: end, Handler: handler, CatchType: catchType,
	})
	return b
}

// Build returns the assembled method
func (b *MethodBuilder) Build() *ir.Method {
	return b.method
}

// Ref reads a variable
func Ref(v *ir.Variable) ir.Expr {
	return &ir.Local{Var: v}
}

// Lit is a literal in source form
func Lit(text string) ir.Expr {
	return &ir.Const{Text: text}
}

// Cmp builds a binary expression from its operator symbol
func Cmp(symbol string, left, right ir.Expr) ir.Expr {
	op, ok := ir.ParseBinaryOp(symbol)
	if !ok {
		panic("unknown operator " + symbol)
	}
	return &ir.Binary{Op: op, Left: left, Right: right}
}

// Call is a static call on class Util
func Call(method string, args ...ir.Expr) ir.Expr {
	return &ir.Call{Owner: "Util", Method: method, Args: args}
}

// Assign defines v
func Assign(v *ir.Variable, src ir.Expr) ir.Stmt {
	return &ir.Assign{Dst: v, Src: src}
}

// Do evaluates e as a statement
func Do(e ir.Expr) ir.Stmt {
	return &ir.ExprStmt{X: e}
}

// Catch binds the exception delivered to a handler
func Catch(v *ir.Variable, typ string) ir.Stmt {
	return &ir.Assign{Dst: v, Src: &ir.Caught{Type: typ}}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Error(msg)
	}
}

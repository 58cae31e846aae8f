package loader

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/restructor/internal/ir"
)

// scope resolves variable names within one method
type scope struct {
	vars   map[string]*ir.Variable
	nextID int
}

func newScope() *scope {
	return &scope{vars: make(map[string]*ir.Variable), nextID: 1}
}

func (s *scope) declare(name string, role ir.Role, index int, typ string) (*ir.Variable, error) {
	if name == "" {
		return nil, fmt.Errorf("variable without a name")
	}
	if _, ok := s.vars[name]; ok {
		return nil, fmt.Errorf("variable %q declared twice", name)
	}
	v := &ir.Variable{ID: s.nextID, Role: role, Index: index, Name: name, Type: typ}
	s.nextID++
	s.vars[name] = v
	return v, nil
}

// local returns the named variable, creating an untyped local on first use
func (s *scope) local(name string) *ir.Variable {
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := &ir.Variable{ID: s.nextID, Role: ir.RoleLocal, Name: name}
	s.nextID++
	s.vars[name] = v
	return v
}

func convertClass(doc *classDoc) (*ir.Class, error) {
	if doc.Class == "" {
		return nil, fmt.Errorf("document has no class name")
	}
	class := &ir.Class{
		Name:       doc.Class,
		Super:      doc.Super,
		Interfaces: doc.Interfaces,
		Modifiers:  doc.Modifiers,
	}
	for i := range doc.Methods {
		md := &doc.Methods[i]
		if md.Name == "" {
			return nil, fmt.Errorf("method %d of %s has no name", i, doc.Class)
		}
		m, err := convertMethod(doc.Class, md)
		if err != nil {
			m = undecodable(doc.Class, md, fmt.Errorf("method %s.%s: %w", doc.Class, md.Name, err))
		}
		class.Methods = append(class.Methods, m)
	}
	return class, nil
}

// undecodable keeps the signature of a method whose body could not be
// converted. The pipeline renders it as a failed stub.
func undecodable(class string, doc *methodDoc, err error) *ir.Method {
	m := &ir.Method{
		Class:      class,
		Name:       doc.Name,
		Modifiers:  doc.Modifiers,
		ReturnType: doc.Returns,
		DecodeErr:  err,
	}
	sc := newScope()
	for i, p := range doc.Params {
		if v, perr := sc.declare(p.Name, ir.RoleParameter, i, p.Type); perr == nil {
			m.Params = append(m.Params, v)
		}
	}
	return m
}

func convertMethod(class string, doc *methodDoc) (*ir.Method, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("method without a name")
	}
	m := &ir.Method{
		Class:      class,
		Name:       doc.Name,
		Modifiers:  doc.Modifiers,
		ReturnType: doc.Returns,
	}

	sc := newScope()
	if doc.This {
		v, err := sc.declare("this", ir.RoleThis, 0, class)
		if err != nil {
			return nil, err
		}
		m.This = v
	}
	for i, p := range doc.Params {
		v, err := sc.declare(p.Name, ir.RoleParameter, i, p.Type)
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, v)
	}
	for _, l := range doc.Locals {
		if _, err := sc.declare(l.Name, ir.RoleLocal, 0, l.Type); err != nil {
			return nil, err
		}
	}
	// Assignment targets become locals before any expression is resolved
	for _, b := range doc.Blocks {
		for _, s := range b.Do {
			if s.Set != "" {
				sc.local(s.Set)
			}
		}
	}

	for i := range doc.Blocks {
		block, err := sc.block(&doc.Blocks[i])
		if err != nil {
			return nil, err
		}
		m.Blocks = append(m.Blocks, block)
	}
	for _, r := range doc.Try {
		m.Ranges = append(m.Ranges, ir.ExceptionRange{
			Start:     r.Start,
			End:       r.End,
			Handler:   r.Handler,
			CatchType: r.Catch,
		})
	}
	return m, nil
}

func (s *scope) block(doc *blockDoc) (*ir.Block, error) {
	if doc.Label == "" {
		return nil, fmt.Errorf("block without a label")
	}
	b := &ir.Block{Label: doc.Label}
	for _, sd := range doc.Do {
		stmt, err := s.stmt(&sd)
		if err != nil {
			return nil, fmt.Errorf("block %s: line %d: %w", doc.Label, sd.line, err)
		}
		b.Stmts = append(b.Stmts, stmt)
	}

	terms := 0
	if doc.If != nil {
		terms++
		cond, err := s.expr(doc.If.node)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", doc.Label, err)
		}
		if doc.Then == "" {
			return nil, fmt.Errorf("block %s: conditional without a then target", doc.Label)
		}
		b.Stmts = append(b.Stmts, &ir.If{Cond: cond})
		b.Term = ir.Terminator{Kind: ir.TermBranch, True: doc.Then, False: doc.Else}
	}
	if doc.Switch != nil {
		terms++
		value, err := s.expr(doc.Switch.node)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", doc.Label, err)
		}
		cases := make([]ir.SwitchCase, 0, len(doc.Cases))
		for _, c := range doc.Cases {
			cases = append(cases, ir.SwitchCase{Value: c.Value, Target: c.Target})
		}
		b.Stmts = append(b.Stmts, &ir.Switch{Value: value})
		b.Term = ir.Terminator{Kind: ir.TermSwitch, Cases: cases, Default: doc.Default}
	}
	if doc.Return.Kind != 0 {
		terms++
		var value ir.Expr
		if doc.Return.ShortTag() != "!!null" {
			v, err := s.expr(&doc.Return)
			if err != nil {
				return nil, fmt.Errorf("block %s: %w", doc.Label, err)
			}
			value = v
		}
		b.Stmts = append(b.Stmts, &ir.Return{Value: value})
		b.Term = ir.Terminator{Kind: ir.TermReturn}
	}
	if doc.Throw != nil {
		terms++
		value, err := s.expr(doc.Throw.node)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", doc.Label, err)
		}
		b.Stmts = append(b.Stmts, &ir.Throw{Value: value})
		b.Term = ir.Terminator{Kind: ir.TermThrow}
	}

	switch {
	case terms > 1:
		return nil, fmt.Errorf("block %s has more than one terminator", doc.Label)
	case terms == 1 && doc.Goto != "":
		return nil, fmt.Errorf("block %s combines goto with another terminator", doc.Label)
	case terms == 0:
		b.Term = ir.Terminator{Kind: ir.TermFallthrough, Target: doc.Goto}
	}
	return b, nil
}

func (s *scope) stmt(doc *stmtDoc) (ir.Stmt, error) {
	switch {
	case doc.Set != "":
		if doc.Value == nil {
			return nil, fmt.Errorf("set %s without a value", doc.Set)
		}
		src, err := s.expr(doc.Value.node)
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Dst: s.local(doc.Set), Src: src}, nil

	case doc.Eval != nil:
		x, err := s.expr(doc.Eval.node)
		if err != nil {
			return nil, err
		}
		return &ir.ExprStmt{X: x}, nil

	case doc.Store != "":
		if doc.Value == nil {
			return nil, fmt.Errorf("store %s without a value", doc.Store)
		}
		object, err := s.optExpr(doc.Object)
		if err != nil {
			return nil, err
		}
		value, err := s.expr(doc.Value.node)
		if err != nil {
			return nil, err
		}
		return &ir.FieldStore{Object: object, Owner: doc.Owner, Field: doc.Store, Value: value}, nil

	case doc.ArrayStore != nil:
		if doc.Index == nil || doc.Value == nil {
			return nil, fmt.Errorf("array_store needs index and value")
		}
		array, err := s.expr(doc.ArrayStore.node)
		if err != nil {
			return nil, err
		}
		index, err := s.expr(doc.Index.node)
		if err != nil {
			return nil, err
		}
		value, err := s.expr(doc.Value.node)
		if err != nil {
			return nil, err
		}
		return &ir.ArrayStore{Array: array, Index: index, Value: value}, nil
	}
	return nil, fmt.Errorf("statement needs one of set, eval, store or array_store")
}

func (s *scope) optExpr(doc *exprDoc) (ir.Expr, error) {
	if doc == nil {
		return nil, nil
	}
	return s.expr(doc.node)
}

// expr converts one expression node. A scalar is a variable reference when
// it names a variable in scope and a literal otherwise.
func (s *scope) expr(node *yaml.Node) (ir.Expr, error) {
	if node == nil {
		return nil, fmt.Errorf("missing expression")
	}
	switch node.Kind {
	case yaml.ScalarNode:
		return s.scalar(node), nil
	case yaml.MappingNode:
		return s.mapping(node)
	case yaml.AliasNode:
		return s.expr(node.Alias)
	}
	return nil, fmt.Errorf("line %d: expression must be a scalar or a mapping", node.Line)
}

func (s *scope) scalar(node *yaml.Node) ir.Expr {
	switch node.ShortTag() {
	case "!!null":
		return &ir.Const{Text: "null"}
	case "!!str":
		if v, ok := s.vars[node.Value]; ok {
			return &ir.Local{Var: v}
		}
	}
	return &ir.Const{Text: node.Value}
}

// fields indexes the key/value pairs of a mapping node
func fields(node *yaml.Node) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out[node.Content[i].Value] = node.Content[i+1]
	}
	return out
}

func text(node *yaml.Node) string {
	if node == nil || node.ShortTag() == "!!null" {
		return ""
	}
	return node.Value
}

func (s *scope) args(node *yaml.Node) ([]ir.Expr, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: args must be a list", node.Line)
	}
	out := make([]ir.Expr, 0, len(node.Content))
	for _, n := range node.Content {
		e, err := s.expr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *scope) mapping(node *yaml.Node) (ir.Expr, error) {
	f := fields(node)
	sub := func(key string) (ir.Expr, error) {
		n, ok := f[key]
		if !ok {
			return nil, fmt.Errorf("line %d: missing %q", node.Line, key)
		}
		return s.expr(n)
	}
	opt := func(key string) (ir.Expr, error) {
		if _, ok := f[key]; !ok {
			return nil, nil
		}
		return sub(key)
	}

	switch {
	case f["const"] != nil:
		if f["const"].ShortTag() == "!!null" {
			return &ir.Const{Text: "null"}, nil
		}
		return &ir.Const{Text: f["const"].Value}, nil

	case f["string"] != nil:
		return &ir.Const{Text: strconv.Quote(f["string"].Value)}, nil

	case f["local"] != nil:
		v, ok := s.vars[f["local"].Value]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown variable %q", node.Line, f["local"].Value)
		}
		return &ir.Local{Var: v}, nil

	case f["op"] != nil:
		symbol := f["op"].Value
		if _, unary := f["x"]; unary {
			x, err := sub("x")
			if err != nil {
				return nil, err
			}
			op, ok := parseUnaryOp(symbol)
			if !ok {
				return nil, fmt.Errorf("line %d: unknown unary operator %q", node.Line, symbol)
			}
			return &ir.Unary{Op: op, X: x}, nil
		}
		op, ok := ir.ParseBinaryOp(symbol)
		if !ok {
			return nil, fmt.Errorf("line %d: unknown operator %q", node.Line, symbol)
		}
		left, err := sub("left")
		if err != nil {
			return nil, err
		}
		right, err := sub("right")
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: op, Left: left, Right: right}, nil

	case f["call"] != nil:
		receiver, err := opt("receiver")
		if err != nil {
			return nil, err
		}
		args, err := s.args(f["args"])
		if err != nil {
			return nil, err
		}
		return &ir.Call{Receiver: receiver, Owner: text(f["owner"]), Method: f["call"].Value, Args: args}, nil

	case f["new"] != nil:
		args, err := s.args(f["args"])
		if err != nil {
			return nil, err
		}
		return &ir.New{Type: f["new"].Value, Args: args}, nil

	case f["new_array"] != nil:
		length, err := sub("length")
		if err != nil {
			return nil, err
		}
		return &ir.NewArray{Type: f["new_array"].Value, Length: length}, nil

	case f["field"] != nil:
		object, err := opt("object")
		if err != nil {
			return nil, err
		}
		return &ir.FieldLoad{Object: object, Owner: text(f["owner"]), Field: f["field"].Value}, nil

	case f["array"] != nil:
		array, err := sub("array")
		if err != nil {
			return nil, err
		}
		index, err := sub("index")
		if err != nil {
			return nil, err
		}
		return &ir.ArrayLoad{Array: array, Index: index}, nil

	case f["length"] != nil:
		array, err := sub("length")
		if err != nil {
			return nil, err
		}
		return &ir.ArrayLength{Array: array}, nil

	case f["cast"] != nil:
		x, err := sub("x")
		if err != nil {
			return nil, err
		}
		return &ir.Cast{Type: f["cast"].Value, X: x}, nil

	case f["instanceof"] != nil:
		x, err := sub("x")
		if err != nil {
			return nil, err
		}
		return &ir.InstanceOf{X: x, Type: f["instanceof"].Value}, nil

	case f["caught"] != nil:
		return &ir.Caught{Type: text(f["caught"])}, nil
	}
	return nil, fmt.Errorf("line %d: unrecognized expression", node.Line)
}

func parseUnaryOp(symbol string) (ir.UnaryOp, bool) {
	switch symbol {
	case "-":
		return ir.OpNeg, true
	case "!":
		return ir.OpNot, true
	case "~":
		return ir.OpBitNot, true
	}
	return 0, false
}

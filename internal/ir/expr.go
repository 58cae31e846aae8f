package ir

// Expr is a side-effect annotated expression tree
type Expr interface {
	isExpr()
}

// BinaryOp enumerates binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpUshr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpAnd: "&", OpOr: "|", OpXor: "^", OpShl: "<<", OpShr: ">>", OpUshr: ">>>",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
}

// String returns the operator symbol
func (op BinaryOp) String() string {
	if s, ok := binaryOpSymbols[op]; ok {
		return s
	}
	return "?"
}

// ParseBinaryOp resolves an operator symbol
func ParseBinaryOp(symbol string) (BinaryOp, bool) {
	for op, s := range binaryOpSymbols {
		if s == symbol {
			return op, true
		}
	}
	return 0, false
}

// IsComparison reports whether the operator yields a boolean
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// UnaryOp enumerates unary operators
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpBitNot
)

// String returns the operator symbol
func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	case OpBitNot:
		return "~"
	default:
		return "?"
	}
}

// Local reads a variable
type Local struct {
	Var *Variable
}

// Const is a literal already rendered in source form (42, "text", null, true)
type Const struct {
	Text string
}

type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

type Unary struct {
	Op UnaryOp
	X  Expr
}

// Call invokes a method. Receiver is nil for static calls, which are
// qualified by Owner instead.
type Call struct {
	Receiver Expr
	Owner    string
	Method   string
	Args     []Expr
}

// New allocates and constructs an object
type New struct {
	Type string
	Args []Expr
}

// NewArray allocates an array of Length elements
type NewArray struct {
	Type   string
	Length Expr
}

// FieldLoad reads a field. Object is nil for static fields.
type FieldLoad struct {
	Object Expr
	Owner  string
	Field  string
}

type ArrayLoad struct {
	Array, Index Expr
}

type ArrayLength struct {
	Array Expr
}

type Cast struct {
	Type string
	X    Expr
}

type InstanceOf struct {
	X    Expr
	Type string
}

// Caught is the exception value delivered to a handler entry
type Caught struct {
	Type string
}

func (*Local) isExpr()       {}
func (*Const) isExpr()       {}
func (*Binary) isExpr()      {}
func (*Unary) isExpr()       {}
func (*Call) isExpr()        {}
func (*New) isExpr()         {}
func (*NewArray) isExpr()    {}
func (*FieldLoad) isExpr()   {}
func (*ArrayLoad) isExpr()   {}
func (*ArrayLength) isExpr() {}
func (*Cast) isExpr()        {}
func (*InstanceOf) isExpr()  {}
func (*Caught) isExpr()      {}

// Negate returns the logical negation of a condition. Equality tests are
// flipped in place; orderings are wrapped because flipping them is not
// exact for floating point operands.
func Negate(e Expr) Expr {
	switch x := e.(type) {
	case *Unary:
		if x.Op == OpNot {
			return x.X
		}
	case *Binary:
		switch x.Op {
		case OpEq:
			return &Binary{Op: OpNe, Left: x.Left, Right: x.Right}
		case OpNe:
			return &Binary{Op: OpEq, Left: x.Left, Right: x.Right}
		}
	case *Const:
		switch x.Text {
		case "true":
			return &Const{Text: "false"}
		case "false":
			return &Const{Text: "true"}
		}
	}
	return &Unary{Op: OpNot, X: e}
}

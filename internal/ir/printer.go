package ir

import (
	"strings"
)

// Operator precedence, higher binds tighter
const (
	precLowest  = 0
	precBitOr   = 6
	precBitXor  = 7
	precBitAnd  = 8
	precEqual   = 9
	precRel     = 10
	precShift   = 11
	precAdd     = 12
	precMul     = 13
	precUnary   = 14
	precPostfix = 15
)

func binaryPrec(op BinaryOp) int {
	switch op {
	case OpMul, OpDiv, OpRem:
		return precMul
	case OpAdd, OpSub:
		return precAdd
	case OpShl, OpShr, OpUshr:
		return precShift
	case OpLt, OpLe, OpGt, OpGe:
		return precRel
	case OpEq, OpNe:
		return precEqual
	case OpAnd:
		return precBitAnd
	case OpXor:
		return precBitXor
	case OpOr:
		return precBitOr
	default:
		return precLowest
	}
}

func exprPrec(e Expr) int {
	switch x := e.(type) {
	case *Binary:
		return binaryPrec(x.Op)
	case *InstanceOf:
		return precRel
	case *Unary, *Cast:
		return precUnary
	default:
		return precPostfix
	}
}

// FormatExpr renders e as source text
func FormatExpr(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e, precLowest)
	return sb.String()
}

func writeOperand(sb *strings.Builder, e Expr, min int) {
	if exprPrec(e) < min {
		sb.WriteByte('(')
		writeExpr(sb, e, precLowest)
		sb.WriteByte(')')
		return
	}
	writeExpr(sb, e, min)
}

func writeExpr(sb *strings.Builder, e Expr, _ int) {
	switch x := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Local:
		sb.WriteString(x.Var.String())
	case *Const:
		sb.WriteString(x.Text)
	case *Binary:
		p := binaryPrec(x.Op)
		writeOperand(sb, x.Left, p)
		sb.WriteByte(' ')
		sb.WriteString(x.Op.String())
		sb.WriteByte(' ')
		// left associative: an equal-precedence right operand needs parens
		writeOperand(sb, x.Right, p+1)
	case *Unary:
		sb.WriteString(x.Op.String())
		if inner, ok := x.X.(*Unary); ok && inner.Op == x.Op && x.Op != OpNot {
			sb.WriteByte(' ')
		}
		writeOperand(sb, x.X, precUnary)
	case *Call:
		if x.Receiver != nil {
			writeOperand(sb, x.Receiver, precPostfix)
			sb.WriteByte('.')
		} else if x.Owner != "" {
			sb.WriteString(x.Owner)
			sb.WriteByte('.')
		}
		sb.WriteString(x.Method)
		writeArgs(sb, x.Args)
	case *New:
		sb.WriteString("new ")
		sb.WriteString(x.Type)
		writeArgs(sb, x.Args)
	case *NewArray:
		sb.WriteString("new ")
		sb.WriteString(x.Type)
		sb.WriteByte('[')
		writeExpr(sb, x.Length, precLowest)
		sb.WriteByte(']')
	case *FieldLoad:
		if x.Object != nil {
			writeOperand(sb, x.Object, precPostfix)
		} else {
			sb.WriteString(x.Owner)
		}
		sb.WriteByte('.')
		sb.WriteString(x.Field)
	case *ArrayLoad:
		writeOperand(sb, x.Array, precPostfix)
		sb.WriteByte('[')
		writeExpr(sb, x.Index, precLowest)
		sb.WriteByte(']')
	case *ArrayLength:
		writeOperand(sb, x.Array, precPostfix)
		sb.WriteString(".length")
	case *Cast:
		sb.WriteByte('(')
		sb.WriteString(x.Type)
		sb.WriteByte(')')
		writeOperand(sb, x.X, precUnary)
	case *InstanceOf:
		writeOperand(sb, x.X, precRel)
		sb.WriteString(" instanceof ")
		sb.WriteString(x.Type)
	case *Caught:
		sb.WriteString("<caught>")
	}
}

func writeArgs(sb *strings.Builder, args []Expr) {
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeExpr(sb, a, precLowest)
	}
	sb.WriteByte(')')
}

// FormatStmt renders a simple statement including its terminating
// semicolon. Conditional tests render as their header line.
func FormatStmt(s Stmt) string {
	switch x := s.(type) {
	case *Assign:
		return x.Dst.String() + " = " + FormatExpr(x.Src) + ";"
	case *ExprStmt:
		return FormatExpr(x.X) + ";"
	case *FieldStore:
		target := x.Owner
		if x.Object != nil {
			var sb strings.Builder
			writeOperand(&sb, x.Object, precPostfix)
			target = sb.String()
		}
		return target + "." + x.Field + " = " + FormatExpr(x.Value) + ";"
	case *ArrayStore:
		var sb strings.Builder
		writeOperand(&sb, x.Array, precPostfix)
		return sb.String() + "[" + FormatExpr(x.Index) + "] = " + FormatExpr(x.Value) + ";"
	case *Return:
		if x.Value == nil {
			return "return;"
		}
		return "return " + FormatExpr(x.Value) + ";"
	case *Throw:
		return "throw " + FormatExpr(x.Value) + ";"
	case *If:
		return "if (" + FormatExpr(x.Cond) + ")"
	case *Switch:
		return "switch (" + FormatExpr(x.Value) + ")"
	default:
		return "/* unknown statement */"
	}
}

package ir

import (
	"fmt"
	"strings"
)

// TermKind classifies how a block ends
type TermKind int

const (
	TermFallthrough TermKind = iota
	TermBranch
	TermSwitch
	TermReturn
	TermThrow
)

// String returns the terminator name
func (k TermKind) String() string {
	switch k {
	case TermFallthrough:
		return "fallthrough"
	case TermBranch:
		return "branch"
	case TermSwitch:
		return "switch"
	case TermReturn:
		return "return"
	case TermThrow:
		return "throw"
	default:
		return "unknown"
	}
}

// SwitchCase maps a case value to a block label
type SwitchCase struct {
	Value  int64
	Target string
}

// Terminator describes the successors of a block by label. An empty
// Target (fallthrough) or False (branch) means the next block in program
// order.
type Terminator struct {
	Kind    TermKind
	Target  string
	True    string
	False   string
	Cases   []SwitchCase
	Default string
}

// Block is a decoded basic block. Branch and switch blocks end with an
// *If or *Switch statement; return and throw blocks end with *Return or
// *Throw.
type Block struct {
	Label string
	Stmts []Stmt
	Term  Terminator
}

// ExceptionRange covers the blocks from Start up to but excluding End in
// program order. An empty End extends the range to the last block.
type ExceptionRange struct {
	Start     string
	End       string
	Handler   string
	CatchType string // empty catches everything
}

// Method is a decoded method body with its signature
type Method struct {
	Class      string
	Name       string
	Modifiers  []string
	ReturnType string
	Params     []*Variable
	This       *Variable
	Blocks     []*Block
	Ranges     []ExceptionRange
	DecodeErr  error // set when the body could not be decoded
}

// Identity returns Class.Name
func (m *Method) Identity() string {
	if m.Class == "" {
		return m.Name
	}
	return m.Class + "." + m.Name
}

// Signature renders the method declaration without its body
func (m *Method) Signature() string {
	var sb strings.Builder
	for _, mod := range m.Modifiers {
		sb.WriteString(mod)
		sb.WriteByte(' ')
	}
	ret := m.ReturnType
	if ret == "" {
		ret = "void"
	}
	if m.Name != "<init>" {
		sb.WriteString(ret)
		sb.WriteByte(' ')
		sb.WriteString(m.Name)
	} else {
		sb.WriteString(simpleName(m.Class))
	}
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		typ := p.Type
		if typ == "" {
			typ = "Object"
		}
		sb.WriteString(fmt.Sprintf("%s %s", typ, p))
	}
	sb.WriteByte(')')
	return sb.String()
}

// IsAbstract reports whether the method has no body by declaration
func (m *Method) IsAbstract() bool {
	for _, mod := range m.Modifiers {
		if mod == "abstract" || mod == "native" {
			return true
		}
	}
	return false
}

// Class groups the methods of one decoded type
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Modifiers  []string
	Methods    []*Method
}

// Header renders the class declaration line without the opening brace
func (c *Class) Header() string {
	var sb strings.Builder
	for _, mod := range c.Modifiers {
		sb.WriteString(mod)
		sb.WriteByte(' ')
	}
	sb.WriteString("class ")
	sb.WriteString(simpleName(c.Name))
	if c.Super != "" && c.Super != "java.lang.Object" && c.Super != "Object" {
		sb.WriteString(" extends ")
		sb.WriteString(c.Super)
	}
	if len(c.Interfaces) > 0 {
		sb.WriteString(" implements ")
		sb.WriteString(strings.Join(c.Interfaces, ", "))
	}
	return sb.String()
}

func simpleName(name string) string {
	if i := strings.LastIndexAny(name, "./$"); i >= 0 {
		return name[i+1:]
	}
	return name
}

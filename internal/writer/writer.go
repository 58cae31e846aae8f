// Package writer renders structured method trees as Java-like source text.
// Rendering is a pure recursive walk; the only state is an immutable
// RenderContext passed by value to each call.
package writer

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/restructor/internal/analyzer"
	"github.com/ludo-technologies/restructor/internal/ir"
)

// DefaultIndentWidth is used when Options.IndentWidth is not positive
const DefaultIndentWidth = 4

// Options controls rendering
type Options struct {
	IndentWidth int
	UseTabs     bool
}

func (o Options) unit() string {
	if o.UseTabs {
		return "\t"
	}
	width := o.IndentWidth
	if width <= 0 {
		width = DefaultIndentWidth
	}
	return strings.Repeat(" ", width)
}

// RenderContext carries indentation and the labels of the enclosing
// breakable constructs, innermost last
type RenderContext struct {
	Depth      int
	Unit       string
	Breakables []string
}

func (c RenderContext) indent() string {
	return strings.Repeat(c.Unit, c.Depth)
}

func (c RenderContext) nested() RenderContext {
	c.Depth++
	return c
}

func (c RenderContext) enter(label string) RenderContext {
	c.Breakables = append(append([]string(nil), c.Breakables...), label)
	return c.nested()
}

func (c RenderContext) innermost() string {
	if len(c.Breakables) == 0 {
		return ""
	}
	return c.Breakables[len(c.Breakables)-1]
}

// WriteMethod renders a method with its structured body
func WriteMethod(m *ir.Method, body *analyzer.Sequence, opts Options) string {
	var sb strings.Builder
	ctx := RenderContext{Unit: opts.unit()}
	sb.WriteString(m.Signature())
	sb.WriteString(" {\n")
	writeSequence(&sb, body, ctx.nested())
	sb.WriteString("}\n")
	return sb.String()
}

// WriteEmpty renders a signature-only declaration for a method without a body
func WriteEmpty(m *ir.Method) string {
	return m.Signature() + ";\n"
}

// WriteStub renders a method whose body could not be decompiled
func WriteStub(m *ir.Method, reason string, opts Options) string {
	ctx := RenderContext{Unit: opts.unit()}.nested()
	var sb strings.Builder
	sb.WriteString(m.Signature())
	sb.WriteString(" {\n")
	for _, line := range strings.Split(reason, "\n") {
		fmt.Fprintf(&sb, "%s// %s\n", ctx.indent(), line)
	}
	fmt.Fprintf(&sb, "%sthrow new UnsupportedOperationException(%q);\n", ctx.indent(), "decompilation failed")
	sb.WriteString("}\n")
	return sb.String()
}

// WriteClass assembles rendered method bodies into a class declaration
func WriteClass(c *ir.Class, methods []string, opts Options) string {
	unit := opts.unit()
	var sb strings.Builder
	sb.WriteString(c.Header())
	sb.WriteString(" {\n")
	for i, src := range methods {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, line := range strings.Split(strings.TrimRight(src, "\n"), "\n") {
			if line != "" {
				sb.WriteString(unit)
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func line(sb *strings.Builder, ctx RenderContext, text string) {
	sb.WriteString(ctx.indent())
	sb.WriteString(text)
	sb.WriteByte('\n')
}

func writeSequence(sb *strings.Builder, seq *analyzer.Sequence, ctx RenderContext) {
	if seq == nil {
		return
	}
	for _, item := range seq.Items {
		writeNode(sb, item, ctx)
	}
}

func writeStmts(sb *strings.Builder, stmts []ir.Stmt, ctx RenderContext) {
	for _, s := range stmts {
		if _, ok := ir.IsCaughtBinding(s); ok {
			continue
		}
		line(sb, ctx, ir.FormatStmt(s))
	}
}

func writeNode(sb *strings.Builder, n analyzer.StructuredNode, ctx RenderContext) {
	switch x := n.(type) {
	case *analyzer.Sequence:
		writeSequence(sb, x, ctx)

	case *analyzer.Statement:
		writeStmts(sb, x.Stmts, ctx)

	case *analyzer.IfNode:
		writeIf(sb, x, ctx, ctx.indent())

	case *analyzer.Loop:
		writeLoop(sb, x, ctx)

	case *analyzer.SwitchNode:
		writeStmts(sb, x.Pre, ctx)
		line(sb, ctx, labelPrefix(x.Label)+"switch ("+ir.FormatExpr(x.Value)+") {")
		inner := ctx.enter(x.Label)
		for _, c := range x.Cases {
			for _, v := range c.Values {
				line(sb, inner, fmt.Sprintf("case %d:", v))
			}
			if c.Default {
				line(sb, inner, "default:")
			}
			writeSequence(sb, c.Body, inner.nested())
		}
		line(sb, ctx, "}")

	case *analyzer.Try:
		line(sb, ctx, "try {")
		writeSequence(sb, x.Body, ctx.nested())
		for _, h := range x.Handlers {
			types := "Throwable"
			if len(h.Types) > 0 {
				types = strings.Join(h.Types, " | ")
			}
			name := "ex"
			if h.Var != nil {
				name = h.Var.String()
			}
			line(sb, ctx, fmt.Sprintf("} catch (%s %s) {", types, name))
			writeSequence(sb, h.Body, ctx.nested())
		}
		line(sb, ctx, "}")

	case *analyzer.Break:
		if x.Label == "" || x.Label == ctx.innermost() {
			line(sb, ctx, "break;")
		} else {
			line(sb, ctx, "break "+x.Label+";")
		}

	case *analyzer.Continue:
		if x.Label == "" {
			line(sb, ctx, "continue;")
		} else {
			line(sb, ctx, "continue "+x.Label+";")
		}

	case *analyzer.Goto:
		line(sb, ctx, "goto "+x.Label+";")

	case *analyzer.Label:
		outer := ctx
		if outer.Depth > 0 {
			outer.Depth--
		}
		line(sb, outer, x.Name+":")
	}
}

// writeIf renders an if statement; prefix replaces the indentation of the
// first line so else-if chains continue on the closing brace line. Only
// conditions without leading statements are chained.
func writeIf(sb *strings.Builder, x *analyzer.IfNode, ctx RenderContext, prefix string) {
	writeStmts(sb, x.Pre, ctx)
	sb.WriteString(prefix)
	sb.WriteString("if (" + ir.FormatExpr(x.Cond) + ") {\n")
	writeSequence(sb, x.Then, ctx.nested())
	if x.Else.IsEmpty() {
		line(sb, ctx, "}")
		return
	}
	if len(x.Else.Items) == 1 {
		if chained, ok := x.Else.Items[0].(*analyzer.IfNode); ok && len(chained.Pre) == 0 {
			writeIf(sb, chained, ctx, ctx.indent()+"} else ")
			return
		}
	}
	line(sb, ctx, "} else {")
	writeSequence(sb, x.Else, ctx.nested())
	line(sb, ctx, "}")
}

func writeLoop(sb *strings.Builder, x *analyzer.Loop, ctx RenderContext) {
	prefix := labelPrefix(x.Label)
	inner := ctx.enter(x.Label)
	switch x.Kind {
	case analyzer.LoopWhile:
		line(sb, ctx, prefix+"while ("+ir.FormatExpr(x.Cond)+") {")
		writeSequence(sb, x.Body, inner)
		line(sb, ctx, "}")
	case analyzer.LoopDoWhile:
		line(sb, ctx, prefix+"do {")
		writeSequence(sb, x.Body, inner)
		line(sb, ctx, "} while ("+ir.FormatExpr(x.Cond)+");")
	default:
		line(sb, ctx, prefix+"while (true) {")
		writeSequence(sb, x.Body, inner)
		line(sb, ctx, "}")
	}
}

func labelPrefix(label string) string {
	if label == "" {
		return ""
	}
	return label + ": "
}

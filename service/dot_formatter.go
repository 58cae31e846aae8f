package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ludo-technologies/restructor/internal/analyzer"
	"github.com/ludo-technologies/restructor/internal/ir"
	"github.com/ludo-technologies/restructor/internal/pipeline"
	"github.com/ludo-technologies/restructor/internal/version"
)

// DOTFormatterConfig configures the DOT formatter behavior
type DOTFormatterConfig struct {
	// ShowStatements prints node statements inside the boxes
	ShowStatements bool

	// ShowRanges lists exception ranges as comments
	ShowRanges bool

	// RankDir is the layout direction: TB, LR, BT, RL
	RankDir string
}

// DefaultDOTFormatterConfig returns a DOTFormatterConfig with sensible defaults
func DefaultDOTFormatterConfig() *DOTFormatterConfig {
	return &DOTFormatterConfig{
		ShowStatements: true,
		ShowRanges:     true,
		RankDir:        "TB",
	}
}

// DOTFormatter renders control flow graphs and structured trees for Graphviz.
// Output is deterministic so dumps of successive stages can be diffed.
type DOTFormatter struct {
	config *DOTFormatterConfig
}

// NewDOTFormatter creates a new DOT formatter with the given configuration
func NewDOTFormatter(config *DOTFormatterConfig) *DOTFormatter {
	if config == nil {
		config = DefaultDOTFormatterConfig()
	}
	return &DOTFormatter{config: config}
}

// edgeStyles defines the visual style for edges based on edge kind
var edgeStyles = map[analyzer.EdgeKind]struct {
	style string
	color string
}{
	analyzer.EdgeSequential:    {style: "solid", color: "black"},
	analyzer.EdgeBranchTrue:    {style: "solid", color: "#228B22"},
	analyzer.EdgeBranchFalse:   {style: "solid", color: "#DC143C"},
	analyzer.EdgeSwitchCase:    {style: "solid", color: "#1E90FF"},
	analyzer.EdgeSwitchDefault: {style: "bold", color: "#1E90FF"},
	analyzer.EdgeException:     {style: "dashed", color: "#A9A9A9"},
}

// validRankDirs contains the valid Graphviz rank directions
var validRankDirs = map[string]bool{
	"TB": true, // Top to Bottom
	"LR": true, // Left to Right
	"BT": true, // Bottom to Top
	"RL": true, // Right to Left
}

// FormatGraph renders g as DOT and returns the string
func (f *DOTFormatter) FormatGraph(g *analyzer.Graph, title string) (string, error) {
	var sb strings.Builder
	if err := f.WriteGraph(g, title, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// WriteGraph writes g as DOT to the writer
func (f *DOTFormatter) WriteGraph(g *analyzer.Graph, title string, writer io.Writer) error {
	if g == nil {
		return fmt.Errorf("nil graph")
	}
	if !validRankDirs[f.config.RankDir] {
		return fmt.Errorf("invalid rank direction %q: must be one of TB, LR, BT, RL", f.config.RankDir)
	}

	nodes := g.Live()
	handlers := make(map[analyzer.NodeID]bool)
	for _, r := range g.Ranges {
		handlers[r.Handler] = true
	}

	fmt.Fprintf(writer, "/* restructor control flow graph: %s */\n", escapeDOTLabel(title))
	fmt.Fprintf(writer, "/* Version: %s */\n", version.GetVersion())
	fmt.Fprintln(writer, "digraph cfg {")
	fmt.Fprintf(writer, "    rankdir=%s;\n", f.config.RankDir)
	fmt.Fprintf(writer, "    label=\"%s\";\n", escapeDOTLabel(title))
	fmt.Fprintln(writer, "    node [shape=box, style=filled, fillcolor=\"#FFFFFF\", fontname=\"Courier\"];")
	fmt.Fprintln(writer, "    edge [fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(writer)

	if len(nodes) == 0 {
		fmt.Fprintln(writer, "    /* empty graph */")
		fmt.Fprintln(writer, "}")
		return nil
	}

	fmt.Fprintln(writer, "    // Nodes")
	for _, n := range nodes {
		f.writeGraphNode(writer, n, n.ID == g.Entry, handlers[n.ID])
	}
	fmt.Fprintln(writer)

	fmt.Fprintln(writer, "    // Edges")
	for _, n := range nodes {
		for _, e := range n.Out {
			f.writeGraphEdge(writer, e)
		}
	}

	if f.config.ShowRanges && len(g.Ranges) > 0 {
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "    // Exception ranges")
		for i, r := range g.Ranges {
			f.writeRange(writer, i, r)
		}
	}

	fmt.Fprintln(writer, "}")
	return nil
}

// writeGraphNode writes a single basic block in DOT format
func (f *DOTFormatter) writeGraphNode(writer io.Writer, n *analyzer.Node, entry, handler bool) {
	var label strings.Builder
	fmt.Fprintf(&label, "%s [%d]", escapeDOTLabel(n.Label), n.Order)
	if f.config.ShowStatements {
		for _, s := range n.Stmts {
			label.WriteString("\\l")
			label.WriteString(escapeDOTLabel(ir.FormatStmt(s)))
		}
		label.WriteString("\\l")
	}

	fmt.Fprintf(writer, "    n%d [label=\"%s\"", n.ID, label.String())
	switch {
	case entry:
		fmt.Fprint(writer, ", peripheries=2, fillcolor=\"#E0F0FF\"")
	case handler:
		fmt.Fprint(writer, ", fillcolor=\"#FFEEEE\"")
	}
	if n.Term == ir.TermReturn || n.Term == ir.TermThrow {
		fmt.Fprint(writer, ", shape=box, style=\"filled,rounded\"")
	}
	fmt.Fprintln(writer, "];")
}

// writeGraphEdge writes one edge, labeling everything but plain fallthrough
func (f *DOTFormatter) writeGraphEdge(writer io.Writer, e *analyzer.Edge) {
	style, ok := edgeStyles[e.Kind]
	if !ok {
		style = edgeStyles[analyzer.EdgeSequential]
	}
	fmt.Fprintf(writer, "    n%d -> n%d [style=%s, color=\"%s\"", e.From, e.To, style.style, style.color)
	switch e.Kind {
	case analyzer.EdgeSequential:
	case analyzer.EdgeSwitchCase:
		fmt.Fprintf(writer, ", label=\"case %d\"", e.Value)
	default:
		fmt.Fprintf(writer, ", label=\"%s\"", e.Kind)
	}
	fmt.Fprintln(writer, "];")
}

// writeRange writes an exception range as a comment listing its members
func (f *DOTFormatter) writeRange(writer io.Writer, index int, r *analyzer.Range) {
	ids := make([]int, 0, len(r.Nodes))
	for id, ok := range r.Nodes {
		if ok {
			ids = append(ids, int(id))
		}
	}
	sort.Ints(ids)
	members := make([]string, len(ids))
	for i, id := range ids {
		members[i] = fmt.Sprintf("n%d", id)
	}
	catch := r.CatchType
	if catch == "" {
		catch = "any"
	}
	fmt.Fprintf(writer, "    /* range %d (priority %d): {%s} -> n%d catch %s */\n",
		index, r.Priority, strings.Join(members, ", "), r.Handler, escapeDOTLabel(catch))
}

// FormatTree renders a structured tree as DOT and returns the string
func (f *DOTFormatter) FormatTree(tree *analyzer.Sequence, title string) (string, error) {
	var sb strings.Builder
	if err := f.WriteTree(tree, title, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// WriteTree writes the structured tree as a DOT hierarchy
func (f *DOTFormatter) WriteTree(tree *analyzer.Sequence, title string, writer io.Writer) error {
	if tree == nil {
		return fmt.Errorf("nil tree")
	}
	fmt.Fprintf(writer, "/* restructor structured tree: %s */\n", escapeDOTLabel(title))
	fmt.Fprintln(writer, "digraph tree {")
	fmt.Fprintln(writer, "    rankdir=TB;")
	fmt.Fprintf(writer, "    label=\"%s\";\n", escapeDOTLabel(title))
	fmt.Fprintln(writer, "    node [shape=box, fontname=\"Courier\"];")
	fmt.Fprintln(writer)

	tw := &treeWriter{w: writer}
	tw.node(tree, "")
	fmt.Fprintln(writer, "}")
	return nil
}

// treeWriter numbers tree nodes in preorder
type treeWriter struct {
	w    io.Writer
	next int
}

func (tw *treeWriter) emit(parent, label, edge string) string {
	id := fmt.Sprintf("t%d", tw.next)
	tw.next++
	fmt.Fprintf(tw.w, "    %s [label=\"%s\"];\n", id, escapeDOTLabel(label))
	if parent != "" {
		if edge != "" {
			fmt.Fprintf(tw.w, "    %s -> %s [label=\"%s\"];\n", parent, id, escapeDOTLabel(edge))
		} else {
			fmt.Fprintf(tw.w, "    %s -> %s;\n", parent, id)
		}
	}
	return id
}

func (tw *treeWriter) child(parent, edge string, seq *analyzer.Sequence) {
	if seq == nil {
		return
	}
	id := tw.emit(parent, "seq", edge)
	for _, item := range seq.Items {
		tw.node(item, id)
	}
}

func (tw *treeWriter) node(n analyzer.StructuredNode, parent string) {
	switch x := n.(type) {
	case *analyzer.Sequence:
		id := tw.emit(parent, "seq", "")
		for _, item := range x.Items {
			tw.node(item, id)
		}
	case *analyzer.Statement:
		lines := make([]string, len(x.Stmts))
		for i, s := range x.Stmts {
			lines[i] = ir.FormatStmt(s)
		}
		tw.emit(parent, fmt.Sprintf("stmts n%d\n%s", x.Node, strings.Join(lines, "\n")), "")
	case *analyzer.IfNode:
		id := tw.emit(parent, "if "+ir.FormatExpr(x.Cond), "")
		tw.child(id, "then", x.Then)
		tw.child(id, "else", x.Else)
	case *analyzer.Loop:
		label := x.Kind.String()
		if x.Cond != nil {
			label += " " + ir.FormatExpr(x.Cond)
		}
		if x.Label != "" {
			label = x.Label + ": " + label
		}
		id := tw.emit(parent, label, "")
		tw.child(id, "body", x.Body)
	case *analyzer.SwitchNode:
		label := "switch " + ir.FormatExpr(x.Value)
		if x.Label != "" {
			label = x.Label + ": " + label
		}
		id := tw.emit(parent, label, "")
		for _, c := range x.Cases {
			tw.child(id, caseLabel(c), c.Body)
		}
	case *analyzer.Try:
		id := tw.emit(parent, "try", "")
		tw.child(id, "body", x.Body)
		for _, h := range x.Handlers {
			types := "any"
			if len(h.Types) > 0 {
				types = strings.Join(h.Types, " | ")
			}
			tw.child(id, "catch "+types, h.Body)
		}
	case *analyzer.Break:
		tw.emit(parent, strings.TrimSpace("break "+x.Label), "")
	case *analyzer.Continue:
		tw.emit(parent, strings.TrimSpace("continue "+x.Label), "")
	case *analyzer.Goto:
		tw.emit(parent, "goto "+x.Label, "")
	case *analyzer.Label:
		tw.emit(parent, x.Name+":", "")
	}
}

func caseLabel(c *analyzer.Case) string {
	parts := make([]string, 0, len(c.Values)+1)
	for _, v := range c.Values {
		parts = append(parts, fmt.Sprintf("case %d", v))
	}
	if c.Default {
		parts = append(parts, "default")
	}
	return strings.Join(parts, ", ")
}

// DebugGraphWriter dumps every observed stage of every method into a
// directory. It implements pipeline.Observer and is safe for concurrent use.
type DebugGraphWriter struct {
	dir       string
	formatter *DOTFormatter
	logger    *zap.Logger

	mu     sync.Mutex
	errors []error
}

// NewDebugGraphWriter creates the dump directory and returns a writer into it
func NewDebugGraphWriter(dir string, logger *zap.Logger) (*DebugGraphWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create debug directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebugGraphWriter{dir: dir, formatter: NewDOTFormatter(nil), logger: logger}, nil
}

// ObserveGraph writes <method>.<stage>.dot
func (d *DebugGraphWriter) ObserveGraph(method *ir.Method, stage pipeline.Stage, g *analyzer.Graph) {
	content, err := d.formatter.FormatGraph(g, fmt.Sprintf("%s (%s)", method.Signature(), stage))
	d.write(DebugFileName(method, string(stage)), content, err)
}

// ObserveTree writes <method>.tree.dot
func (d *DebugGraphWriter) ObserveTree(method *ir.Method, tree *analyzer.Sequence) {
	content, err := d.formatter.FormatTree(tree, method.Signature())
	d.write(DebugFileName(method, "tree"), content, err)
}

func (d *DebugGraphWriter) write(name, content string, err error) {
	if err == nil {
		err = os.WriteFile(filepath.Join(d.dir, name), []byte(content), 0o644)
	}
	if err != nil {
		d.logger.Warn("failed to write debug graph", zap.String("file", name), zap.Error(err))
		d.mu.Lock()
		d.errors = append(d.errors, err)
		d.mu.Unlock()
	}
}

// Errors returns the write failures seen so far
func (d *DebugGraphWriter) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errors...)
}

// DebugFileName derives a file system safe dump name for a method and
// stage. Overloads are told apart by their parameter count.
func DebugFileName(method *ir.Method, stage string) string {
	name := sanitizeFileName(method.Identity())
	if len(method.Params) > 0 {
		name = fmt.Sprintf("%s-%d", name, len(method.Params))
	}
	return name + "." + stage + ".dot"
}

func sanitizeFileName(s string) string {
	var sb strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			sb.WriteRune(c)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// escapeDOTLabel escapes a string for use as a DOT label
func escapeDOTLabel(label string) string {
	// Note: backslash must be first to avoid double-escaping
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
		"\r", "",
		"\t", "\\t",
	)
	return replacer.Replace(label)
}

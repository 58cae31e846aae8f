package analyzer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ludo-technologies/restructor/internal/ir"
)

// ErrMalformedGraph is wrapped by every structural input error
var ErrMalformedGraph = errors.New("malformed graph")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedGraph, fmt.Sprintf(format, args...))
}

// CFGBuilder builds control flow graphs from decoded methods
type CFGBuilder struct {
	graph   *Graph
	method  *ir.Method
	labels  map[string]int
	pruned  []string
	reach   *ReachabilityResult
	logger  *zap.Logger
	noPrune bool
}

// NewCFGBuilder creates a new CFG builder
func NewCFGBuilder() *CFGBuilder {
	return &CFGBuilder{
		logger: zap.NewNop(),
	}
}

// SetLogger sets an optional logger for diagnostics
func (b *CFGBuilder) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b.logger = logger
}

// KeepUnreachable disables pruning of blocks unreachable from the entry
func (b *CFGBuilder) KeepUnreachable(keep bool) {
	b.noPrune = keep
}

// PrunedBlocks returns the labels of the blocks dropped by the last Build
func (b *CFGBuilder) PrunedBlocks() []string {
	return b.pruned
}

// Reachability returns the reachability of the blocks of the last Build,
// computed before any pruning
func (b *CFGBuilder) Reachability() *ReachabilityResult {
	if b.reach == nil {
		return NewReachabilityAnalyzer(b.graph).AnalyzeReachability()
	}
	return b.reach
}

// Build constructs a CFG from a decoded method. A method without blocks
// yields an empty graph.
func (b *CFGBuilder) Build(method *ir.Method) (*Graph, error) {
	if method == nil {
		return nil, fmt.Errorf("cannot build CFG from nil method")
	}

	b.method = method
	b.graph = NewGraph(method)
	b.labels = make(map[string]int, len(method.Blocks))
	b.pruned = nil
	b.reach = nil

	if len(method.Blocks) == 0 {
		return b.graph, nil
	}

	for i, block := range method.Blocks {
		if block == nil {
			return nil, malformed("block %d is nil", i)
		}
		if _, dup := b.labels[block.Label]; dup {
			return nil, malformed("duplicate block label %q", block.Label)
		}
		b.labels[block.Label] = i
		if err := checkTerminator(block); err != nil {
			return nil, err
		}
		n := b.graph.AddNode(block.Label)
		n.Stmts = make([]ir.Stmt, len(block.Stmts))
		for j, stmt := range block.Stmts {
			n.Stmts[j] = ir.CloneStmt(stmt)
		}
		n.Term = block.Term.Kind
	}
	b.graph.Entry = 0

	for i, block := range method.Blocks {
		if err := b.connectTerminator(i, block); err != nil {
			return nil, err
		}
	}

	if err := b.buildRanges(); err != nil {
		return nil, err
	}

	b.reach = NewReachabilityAnalyzer(b.graph).AnalyzeReachability()
	if !b.noPrune {
		b.pruneUnreachable()
	}
	NormalizeRanges(b.graph)
	b.graph.SyncExceptionEdges()

	return b.graph, nil
}

func checkTerminator(block *ir.Block) error {
	var last ir.Stmt
	if len(block.Stmts) > 0 {
		last = block.Stmts[len(block.Stmts)-1]
	}
	for i, s := range block.Stmts {
		if i == len(block.Stmts)-1 {
			break
		}
		switch s.(type) {
		case *ir.If, *ir.Switch, *ir.Return, *ir.Throw:
			return malformed("block %q has a control statement before its end", block.Label)
		}
	}

	ok := true
	switch block.Term.Kind {
	case ir.TermBranch:
		_, ok = last.(*ir.If)
	case ir.TermSwitch:
		_, ok = last.(*ir.Switch)
	case ir.TermReturn:
		_, ok = last.(*ir.Return)
	case ir.TermThrow:
		_, ok = last.(*ir.Throw)
	case ir.TermFallthrough:
		switch last.(type) {
		case *ir.If, *ir.Switch, *ir.Return, *ir.Throw:
			ok = false
		}
	default:
		return malformed("block %q has unknown terminator %d", block.Label, block.Term.Kind)
	}
	if !ok {
		return malformed("block %q does not end with a %s statement", block.Label, block.Term.Kind)
	}
	return nil
}

// resolve maps a target label to a node; an empty label means the next block
func (b *CFGBuilder) resolve(from int, label string) (NodeID, error) {
	if label == "" {
		if from+1 >= len(b.method.Blocks) {
			return NoNode, malformed("block %q falls through past the last block", b.method.Blocks[from].Label)
		}
		return NodeID(from + 1), nil
	}
	idx, ok := b.labels[label]
	if !ok {
		return NoNode, malformed("block %q targets unknown label %q", b.method.Blocks[from].Label, label)
	}
	return NodeID(idx), nil
}

func (b *CFGBuilder) connectTerminator(i int, block *ir.Block) error {
	from := NodeID(i)
	term := block.Term

	switch term.Kind {
	case ir.TermFallthrough:
		to, err := b.resolve(i, term.Target)
		if err != nil {
			return err
		}
		b.graph.Connect(from, to, EdgeSequential, 0)

	case ir.TermBranch:
		if term.True == "" {
			return malformed("branch block %q has no taken target", block.Label)
		}
		t, err := b.resolve(i, term.True)
		if err != nil {
			return err
		}
		f, err := b.resolve(i, term.False)
		if err != nil {
			return err
		}
		b.graph.Connect(from, t, EdgeBranchTrue, 0)
		b.graph.Connect(from, f, EdgeBranchFalse, 0)

	case ir.TermSwitch:
		seen := make(map[int64]bool, len(term.Cases))
		for _, c := range term.Cases {
			if seen[c.Value] {
				return malformed("switch block %q repeats case %d", block.Label, c.Value)
			}
			seen[c.Value] = true
			if c.Target == "" {
				return malformed("switch block %q has case %d without target", block.Label, c.Value)
			}
			to, err := b.resolve(i, c.Target)
			if err != nil {
				return err
			}
			b.graph.Connect(from, to, EdgeSwitchCase, c.Value)
		}
		def, err := b.resolve(i, term.Default)
		if err != nil {
			return err
		}
		b.graph.Connect(from, def, EdgeSwitchDefault, 0)

	case ir.TermReturn, ir.TermThrow:
		// exits have no normal successors
	}
	return nil
}

func (b *CFGBuilder) buildRanges() error {
	for i, r := range b.method.Ranges {
		start, ok := b.labels[r.Start]
		if !ok {
			return malformed("exception range %d starts at unknown label %q", i, r.Start)
		}
		end := len(b.method.Blocks)
		if r.End != "" {
			if end, ok = b.labels[r.End]; !ok {
				return malformed("exception range %d ends at unknown label %q", i, r.End)
			}
		}
		if start >= end {
			return malformed("exception range %d is empty or inverted (%q..%q)", i, r.Start, r.End)
		}
		handler, ok := b.labels[r.Handler]
		if !ok {
			return malformed("exception range %d has unknown handler %q", i, r.Handler)
		}

		rng := &Range{
			Nodes:     make(map[NodeID]bool, end-start),
			Handler:   NodeID(handler),
			CatchType: r.CatchType,
			Priority:  i,
		}
		for id := start; id < end; id++ {
			rng.Nodes[NodeID(id)] = true
		}
		b.graph.Ranges = append(b.graph.Ranges, rng)
	}
	b.graph.SyncExceptionEdges()
	return nil
}

func (b *CFGBuilder) pruneUnreachable() {
	result := b.reach
	if result.UnreachableCount == 0 {
		return
	}
	for _, n := range b.graph.Live() {
		if _, dead := result.UnreachableBlocks[n.ID]; dead {
			b.pruned = append(b.pruned, n.Label)
			b.graph.RemoveNode(n.ID)
		}
	}
	b.logger.Debug("pruned unreachable blocks",
		zap.String("method", b.method.Identity()),
		zap.Strings("blocks", b.pruned))
}

// Package pipeline drives one method through graph construction,
// simplification, dataflow, dominator analysis, structuring and rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ludo-technologies/restructor/internal/analyzer"
	"github.com/ludo-technologies/restructor/internal/ir"
	"github.com/ludo-technologies/restructor/internal/writer"
)

// ErrUnprocessable marks a method whose pipeline failed unexpectedly
var ErrUnprocessable = errors.New("unprocessable method")

// Stage names a point in the pipeline where the graph can be observed
type Stage string

const (
	StageBuild    Stage = "build"
	StageSimplify Stage = "simplify"
	StageSplit    Stage = "split"
	StageDataflow Stage = "dataflow"
	StageFinal    Stage = "final"
)

// Stages lists every observable stage in execution order
var Stages = []Stage{StageBuild, StageSimplify, StageSplit, StageDataflow, StageFinal}

// Observer receives intermediate results for debugging. Implementations
// must be safe for concurrent use when methods run in parallel.
type Observer interface {
	ObserveGraph(method *ir.Method, stage Stage, g *analyzer.Graph)
	ObserveTree(method *ir.Method, tree *analyzer.Sequence)
}

// Options selects pipeline passes and rendering
type Options struct {
	SplitConditionals   bool
	DeadCodeElimination bool
	RegisterPropagation bool
	KeepUnreachable     bool
	MaxPasses           int
	Writer              writer.Options
	Logger              *zap.Logger
	Observer            Observer
}

// DefaultOptions enables every pass
func DefaultOptions() Options {
	return Options{
		SplitConditionals:   true,
		DeadCodeElimination: true,
		RegisterPropagation: true,
		MaxPasses:           analyzer.DefaultMaxPasses,
		Writer:              writer.Options{IndentWidth: writer.DefaultIndentWidth},
	}
}

// Status is the outcome of a method pipeline
type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// DiagnosticKind classifies a non-fatal finding
type DiagnosticKind string

const (
	DiagStructuringFallback DiagnosticKind = "structuring_fallback"
	DiagUnreachableBlocks   DiagnosticKind = "unreachable_blocks"
	DiagUndefinedUse        DiagnosticKind = "undefined_use"
	DiagEmptyBody           DiagnosticKind = "empty_body"
)

// Diagnostic is a warning attached to a method result
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" yaml:"kind"`
	Message string         `json:"message" yaml:"message"`
}

// Result is the outcome of running one method
type Result struct {
	Method       *ir.Method
	Status       Status
	Source       string
	Err          error
	Graph        *analyzer.Graph
	Tree         *analyzer.Sequence
	Report       *analyzer.StructureReport
	Dataflow     *analyzer.DataflowResult
	Diagnostics  []Diagnostic
	Reachability float64 // share of decoded blocks reachable from the entry
}

// Run processes a single method. Failures never escape: a malformed or
// unprocessable method yields a failed Result carrying a stub rendering.
func Run(ctx context.Context, method *ir.Method, opts Options) (res *Result) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("method", method.Identity()))

	res = &Result{Method: method, Status: StatusOK}
	defer func() {
		if r := recover(); r != nil {
			res.fail(fmt.Errorf("%w: %v", ErrUnprocessable, r), opts)
			logger.Error("method pipeline panicked", zap.Any("panic", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		res.fail(err, opts)
		return res
	}

	if method.DecodeErr != nil {
		logger.Warn("method body could not be decoded", zap.Error(method.DecodeErr))
		res.fail(fmt.Errorf("%w: %v", analyzer.ErrMalformedGraph, method.DecodeErr), opts)
		return res
	}

	if method.IsAbstract() || len(method.Blocks) == 0 {
		res.Status = StatusEmpty
		res.Source = writer.WriteEmpty(method)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagEmptyBody, Message: "method has no body"})
		return res
	}

	builder := analyzer.NewCFGBuilder()
	builder.SetLogger(logger)
	builder.KeepUnreachable(opts.KeepUnreachable)
	g, err := builder.Build(method)
	if err != nil {
		logger.Warn("malformed method graph", zap.Error(err))
		res.fail(err, opts)
		return res
	}
	res.Graph = g
	reach := builder.Reachability()
	res.Reachability = reach.GetReachabilityRatio()
	if reach.HasUnreachableCode() {
		res.Diagnostics = append(res.Diagnostics, unreachableDiagnostic(reach, len(builder.PrunedBlocks()) > 0))
	} else if reach.UnreachableCount > 0 {
		logger.Debug("unreachable empty blocks", zap.Int("count", reach.UnreachableCount))
	}
	observe(opts, method, StageBuild, g)

	analyzer.Simplify(g)
	observe(opts, method, StageSimplify, g)

	if opts.SplitConditionals {
		analyzer.SplitIfNodes(g)
		observe(opts, method, StageSplit, g)
	}

	res.Dataflow = analyzer.Optimize(g, analyzer.DataflowOptions{
		DeadCodeElimination: opts.DeadCodeElimination,
		RegisterPropagation: opts.RegisterPropagation,
		MaxPasses:           opts.MaxPasses,
	})
	observe(opts, method, StageDataflow, g)

	for _, u := range analyzer.UndefinedUses(g) {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagUndefinedUse,
			Message: fmt.Sprintf("%s may be read before assignment in block %s", u.Var, g.Node(u.At.Node).Label),
		})
	}

	analyzer.Simplify(g)
	observe(opts, method, StageFinal, g)
	if err := g.Validate(); err != nil {
		res.fail(fmt.Errorf("%w: %v", ErrUnprocessable, err), opts)
		return res
	}

	if err := ctx.Err(); err != nil {
		res.fail(err, opts)
		return res
	}

	dom := analyzer.ComputeDominators(g)
	pdom := analyzer.ComputePostDominators(g)
	tree, report := analyzer.Structure(g, dom, pdom)
	res.Tree = tree
	res.Report = report
	if opts.Observer != nil {
		opts.Observer.ObserveTree(method, tree)
	}
	if report.Fallback() {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagStructuringFallback,
			Message: fmt.Sprintf("%d goto(s), %d detached block(s)", report.Gotos, len(report.Leftovers)),
		})
		logger.Warn("structuring fell back to jumps",
			zap.Int("gotos", report.Gotos),
			zap.Int("leftovers", len(report.Leftovers)))
	}

	res.Source = writer.WriteMethod(method, tree, opts.Writer)
	logger.Debug("method decompiled",
		zap.Int("nodes", g.Size()),
		zap.Int("loops", report.Loops),
		zap.Int("max_loop_depth", report.MaxLoopDepth),
		zap.Int("removed", len(res.Dataflow.Removed)))
	return res
}

func (r *Result) fail(err error, opts Options) {
	r.Status = StatusFailed
	r.Err = err
	r.Source = writer.WriteStub(r.Method, err.Error(), opts.Writer)
}

// unreachableDiagnostic names the unreachable blocks holding statements
func unreachableDiagnostic(reach *analyzer.ReachabilityResult, pruned bool) Diagnostic {
	var nodes []*analyzer.Node
	for _, n := range reach.GetUnreachableBlocksWithStatements() {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
	labels := make([]string, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
	}

	verb := "kept"
	if pruned {
		verb = "dropped"
	}
	return Diagnostic{
		Kind:    DiagUnreachableBlocks,
		Message: fmt.Sprintf("%s %d unreachable blocks with code: %v", verb, len(labels), labels),
	}
}

func observe(opts Options, method *ir.Method, stage Stage, g *analyzer.Graph) {
	if opts.Observer != nil {
		opts.Observer.ObserveGraph(method, stage, g)
	}
}

// IsMalformed reports whether err describes a structurally invalid method
func IsMalformed(err error) bool {
	return errors.Is(err, analyzer.ErrMalformedGraph)
}

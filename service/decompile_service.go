package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/internal/analyzer"
	"github.com/ludo-technologies/restructor/internal/ir"
	"github.com/ludo-technologies/restructor/internal/loader"
	"github.com/ludo-technologies/restructor/internal/pipeline"
	"github.com/ludo-technologies/restructor/internal/version"
	"github.com/ludo-technologies/restructor/internal/writer"
)

// DecompileServiceImpl implements the DecompileService interface
type DecompileServiceImpl struct {
	progress domain.ProgressManager
	logger   *zap.Logger
}

// NewDecompileService creates a new decompile service implementation
func NewDecompileService(logger *zap.Logger) *DecompileServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecompileServiceImpl{logger: logger}
}

// NewDecompileServiceWithProgress creates a new decompile service with progress reporting
func NewDecompileServiceWithProgress(pm domain.ProgressManager, logger *zap.Logger) *DecompileServiceImpl {
	s := NewDecompileService(logger)
	s.progress = pm
	return s
}

// loadedClass is a decoded class waiting for its methods to be processed
type loadedClass struct {
	path  string
	class *ir.Class
	first int // index of the first method task
}

// methodTask runs one method through the pipeline
type methodTask struct {
	method *ir.Method
	opts   pipeline.Options
}

// Name returns the method identity
func (t *methodTask) Name() string {
	return t.method.Identity()
}

// Execute runs the pipeline. Method failures are reported in the result,
// never as an error.
func (t *methodTask) Execute(ctx context.Context) (interface{}, error) {
	return pipeline.Run(ctx, t.method, t.opts), nil
}

// IsEnabled always returns true
func (t *methodTask) IsEnabled() bool {
	return true
}

// Decompile processes every input document named by the request. Unreadable
// documents are reported in the response errors and do not stop the run.
func (s *DecompileServiceImpl) Decompile(ctx context.Context, req domain.DecompileRequest) (*domain.DecompileResponse, error) {
	var warnings []string
	var errs []string
	var loaded []loadedClass
	var tasks []domain.ExecutableTask
	filesProcessed := 0

	opts, debugWriter, err := s.pipelineOptions(req)
	if err != nil {
		warnings = append(warnings, err.Error())
	}

	for _, path := range req.Paths {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("decompilation cancelled: %w", ctx.Err())
		default:
		}

		classes, err := loader.LoadFile(path)
		if err != nil {
			s.logger.Warn("failed to load class document", zap.String("file", path), zap.Error(err))
			errs = append(errs, fmt.Sprintf("[%s] %v", path, err))
			continue
		}
		filesProcessed++
		for _, class := range classes {
			loaded = append(loaded, loadedClass{path: path, class: class, first: len(tasks)})
			for _, m := range class.Methods {
				tasks = append(tasks, &methodTask{method: m, opts: opts})
			}
		}
	}

	if len(loaded) == 0 {
		return nil, domain.NewAnalysisError("no classes to decompile", errors.New(strings.Join(errs, "; ")))
	}

	executor := NewParallelExecutorWithProgress(PerformanceConfig(&req), s.progress)
	executor.SetLogger(s.logger)
	results, execErr := executor.ExecuteWithResults(ctx, tasks)
	if execErr != nil {
		s.logger.Warn("some methods were not processed", zap.Error(execErr))
	}

	response := &domain.DecompileResponse{
		Classes:     make([]domain.ClassResult, 0, len(loaded)),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.GetVersion(),
		Config:      s.buildConfigForResponse(req),
	}
	// tasks never fail, so a missing result means the run was cut short
	skipped := ctx.Err()
	if skipped == nil {
		skipped = context.DeadlineExceeded
	}
	for _, lc := range loaded {
		class := s.assembleClass(lc, results, opts, skipped)
		response.Classes = append(response.Classes, class)
		response.Summary.Add(&class)
	}
	response.Summary.FilesProcessed = filesProcessed

	if debugWriter != nil {
		for _, err := range debugWriter.Errors() {
			warnings = append(warnings, err.Error())
		}
	}
	if response.Summary.Fallbacks > 0 {
		warnings = append(warnings, fmt.Sprintf("%d method(s) needed goto fallbacks", response.Summary.Fallbacks))
	}
	response.Warnings = warnings
	response.Errors = errs
	return response, nil
}

// DecompileFile processes a single input document
func (s *DecompileServiceImpl) DecompileFile(ctx context.Context, filePath string, req domain.DecompileRequest) ([]domain.ClassResult, error) {
	singleFileReq := req
	singleFileReq.Paths = []string{filePath}

	response, err := s.Decompile(ctx, singleFileReq)
	if err != nil {
		return nil, err
	}
	return response.Classes, nil
}

// pipelineOptions translates the request into per-method options. A debug
// directory that cannot be created disables dumping and is reported.
func (s *DecompileServiceImpl) pipelineOptions(req domain.DecompileRequest) (pipeline.Options, *DebugGraphWriter, error) {
	opts := PipelineOptions(&req, s.logger)
	if req.DebugDir == "" {
		return opts, nil, nil
	}
	debugWriter, err := NewDebugGraphWriter(req.DebugDir, s.logger)
	if err != nil {
		return opts, nil, err
	}
	opts.Observer = debugWriter
	return opts, debugWriter, nil
}

// PipelineOptions maps the pipeline switches of a request onto per-method
// options
func PipelineOptions(req *domain.DecompileRequest, logger *zap.Logger) pipeline.Options {
	return pipeline.Options{
		SplitConditionals:   req.SplitConditionals,
		DeadCodeElimination: req.DeadCodeElimination,
		RegisterPropagation: req.RegisterPropagation,
		KeepUnreachable:     req.KeepUnreachable,
		MaxPasses:           req.MaxPasses,
		Writer:              writer.Options{IndentWidth: req.IndentWidth, UseTabs: req.UseTabs},
		Logger:              logger,
	}
}

// assembleClass converts the pipeline results of one class and renders it
func (s *DecompileServiceImpl) assembleClass(lc loadedClass, results []interface{}, opts pipeline.Options, skipped error) domain.ClassResult {
	methods := make([]domain.MethodResult, 0, len(lc.class.Methods))
	sources := make([]string, 0, len(lc.class.Methods))
	for i, m := range lc.class.Methods {
		res, ok := results[lc.first+i].(*pipeline.Result)
		if !ok || res == nil {
			res = &pipeline.Result{
				Method: m,
				Status: pipeline.StatusFailed,
				Err:    skipped,
				Source: writer.WriteStub(m, skipped.Error(), opts.Writer),
			}
		}
		mr := convertResult(res)
		methods = append(methods, mr)
		sources = append(sources, res.Source)
	}
	return domain.ClassResult{
		FilePath: lc.path,
		Name:     lc.class.Name,
		Source:   writer.WriteClass(lc.class, sources, opts.Writer),
		Methods:  methods,
	}
}

// convertResult maps a pipeline result onto the domain model
func convertResult(res *pipeline.Result) domain.MethodResult {
	mr := domain.MethodResult{
		Name:      res.Method.Identity(),
		Signature: res.Method.Signature(),
		Status:    domain.MethodStatus(res.Status),
		Source:    res.Source,
		Metrics:   computeMetrics(res),
	}
	for _, d := range res.Diagnostics {
		mr.Diagnostics = append(mr.Diagnostics, domain.Diagnostic{Kind: string(d.Kind), Message: d.Message})
	}
	if res.Err != nil {
		err := classifyError(res.Method, res.Err)
		mr.Error = err.Error()
		mr.ErrorCode = domain.ErrorCode(err)
	}
	return mr
}

// classifyError wraps a pipeline failure in the matching domain error
func classifyError(m *ir.Method, err error) error {
	switch {
	case pipeline.IsMalformed(err):
		return domain.NewMalformedGraphError(m.Identity(), err)
	case errors.Is(err, pipeline.ErrUnprocessable):
		return domain.NewUnprocessableError(m.Identity(), err)
	default:
		return domain.NewAnalysisError(fmt.Sprintf("%s was not processed", m.Identity()), err)
	}
}

// computeMetrics counts the constructs recovered for a method
func computeMetrics(res *pipeline.Result) domain.MethodMetrics {
	var metrics domain.MethodMetrics
	if res.Graph != nil {
		metrics.Nodes = res.Graph.Size()
		metrics.ReachableRatio = res.Reachability
	}
	if res.Dataflow != nil {
		metrics.RemovedStatements = len(res.Dataflow.Removed)
		metrics.DataflowPasses = res.Dataflow.Passes
	}
	if res.Report != nil {
		metrics.Gotos = res.Report.Gotos
		metrics.MaxLoopDepth = res.Report.MaxLoopDepth
	}
	if res.Tree == nil {
		return metrics
	}
	analyzer.Walk(res.Tree, func(n analyzer.StructuredNode) {
		switch n.(type) {
		case *analyzer.IfNode:
			metrics.Conditionals++
		case *analyzer.Loop:
			metrics.Loops++
		case *analyzer.SwitchNode:
			metrics.Switches++
		case *analyzer.Try:
			metrics.TryBlocks++
		}
	})
	return metrics
}

// buildConfigForResponse echoes the effective pipeline settings
func (s *DecompileServiceImpl) buildConfigForResponse(req domain.DecompileRequest) map[string]interface{} {
	return map[string]interface{}{
		"split_conditionals":    req.SplitConditionals,
		"dead_code_elimination": req.DeadCodeElimination,
		"register_propagation":  req.RegisterPropagation,
		"keep_unreachable":      req.KeepUnreachable,
		"max_passes":            req.MaxPasses,
	}
}

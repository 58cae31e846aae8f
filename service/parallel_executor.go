package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/internal/config"
)

// Default values for the parallel executor
const (
	// DefaultMaxConcurrency is used when the configured value is invalid
	DefaultMaxConcurrency = 4
	DefaultTimeout        = 5 * time.Minute
)

// TaskError represents a single task failure
type TaskError struct {
	TaskName string
	Err      error
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects all task failures
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d tasks failed:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the first error for errors.Is/As compatibility
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// ParallelExecutorImpl runs method tasks on a bounded worker pool
type ParallelExecutorImpl struct {
	maxConcurrency int
	timeout        time.Duration
	progress       domain.ProgressManager
	description    string
	logger         *zap.Logger
	mu             sync.RWMutex
}

// NewParallelExecutor creates an executor sized to the CPU count
func NewParallelExecutor() *ParallelExecutorImpl {
	return &ParallelExecutorImpl{
		maxConcurrency: runtime.NumCPU(),
		timeout:        DefaultTimeout,
		description:    "Decompiling",
		logger:         zap.NewNop(),
	}
}

// NewParallelExecutorFromConfig creates a parallel executor from configuration
func NewParallelExecutorFromConfig(cfg *config.PerformanceConfig) *ParallelExecutorImpl {
	executor := NewParallelExecutor()
	executor.maxConcurrency = DefaultMaxConcurrency
	if cfg == nil {
		return executor
	}
	if cfg.MaxGoroutines > 0 {
		executor.maxConcurrency = cfg.MaxGoroutines
	}
	if timeout := time.Duration(cfg.TimeoutSeconds) * time.Second; timeout > 0 {
		executor.timeout = timeout
	}
	return executor
}

// NewParallelExecutorWithProgress creates a parallel executor with progress tracking
func NewParallelExecutorWithProgress(cfg *config.PerformanceConfig, pm domain.ProgressManager) *ParallelExecutorImpl {
	executor := NewParallelExecutorFromConfig(cfg)
	executor.progress = pm
	return executor
}

// SetLogger sets the logger used to report task failures
func (e *ParallelExecutorImpl) SetLogger(logger *zap.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if logger != nil {
		e.logger = logger
	}
}

// SetDescription sets the progress bar caption
func (e *ParallelExecutorImpl) SetDescription(description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.description = description
}

// Execute runs tasks in parallel and discards their results
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	_, err := e.ExecuteWithResults(ctx, tasks)
	return err
}

// ExecuteWithResults runs enabled tasks with the configured concurrency and
// timeout. The result slice is parallel to tasks; disabled, failed and
// skipped tasks leave a nil entry. A failing task never stops its siblings.
// Tasks not started before the deadline are reported with the context error.
func (e *ParallelExecutorImpl) ExecuteWithResults(ctx context.Context, tasks []domain.ExecutableTask) ([]interface{}, error) {
	results := make([]interface{}, len(tasks))

	enabled := 0
	for _, t := range tasks {
		if t.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return results, nil
	}

	e.mu.RLock()
	maxConcurrency := e.maxConcurrency
	timeout := e.timeout
	description := e.description
	logger := e.logger
	e.mu.RUnlock()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var progress domain.TaskProgress = &NoOpTaskProgress{}
	if e.progress != nil {
		progress = e.progress.StartTask(description, enabled)
	}
	defer progress.Complete()

	g, gCtx := errgroup.WithContext(timeoutCtx)
	g.SetLimit(maxConcurrency)

	var errMu sync.Mutex
	var taskErrors []TaskError
	record := func(name string, err error) {
		errMu.Lock()
		taskErrors = append(taskErrors, TaskError{TaskName: name, Err: err})
		errMu.Unlock()
	}

	for i, t := range tasks {
		if !t.IsEnabled() {
			continue
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				record(t.Name(), err)
				progress.Increment(1)
				return nil
			}

			result, err := t.Execute(gCtx)
			progress.Increment(1)
			if err != nil {
				logger.Debug("task failed", zap.String("task", t.Name()), zap.Error(err))
				record(t.Name(), err)
				return nil
			}
			results[i] = result
			return nil
		})
	}

	// Goroutines never return an error; failures are collected above
	_ = g.Wait()

	if len(taskErrors) > 0 {
		return results, &AggregatedError{Errors: taskErrors}
	}
	return results, nil
}

// SetMaxConcurrency sets the maximum number of concurrent tasks
func (e *ParallelExecutorImpl) SetMaxConcurrency(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if max > 0 {
		e.maxConcurrency = max
	}
}

// SetTimeout sets the timeout for all tasks
func (e *ParallelExecutorImpl) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if timeout > 0 {
		e.timeout = timeout
	}
}

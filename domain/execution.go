package domain

import (
	"context"
	"time"
)

// ExecutableTask is a unit of work run by a ParallelExecutor
type ExecutableTask interface {
	// Name identifies the task in aggregated errors
	Name() string

	// Execute runs the task
	Execute(ctx context.Context) (interface{}, error)

	// IsEnabled reports whether the task should run at all
	IsEnabled() bool
}

// ParallelExecutor runs tasks concurrently
type ParallelExecutor interface {
	Execute(ctx context.Context, tasks []ExecutableTask) error
	SetMaxConcurrency(max int)
	SetTimeout(timeout time.Duration)
}

// ProgressManager creates progress trackers for long running work
type ProgressManager interface {
	// StartTask creates a new progress task with a description and total count
	StartTask(description string, total int) TaskProgress

	// IsInteractive returns true if progress bars are shown
	IsInteractive() bool

	// Close finishes every started task
	Close()
}

// TaskProgress tracks one task
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}

package domain

import "context"

// ProgressManager creates progress indicators for long-running tasks
type ProgressManager interface {
	// StartTask begins tracking a task with a known number of steps
	StartTask(description string, total int) TaskProgress

	// IsInteractive returns true if progress is rendered to a terminal
	IsInteractive() bool

	// Close finishes every task still open
	Close()
}

// TaskProgress reports progress of a single task
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}

// ExecutableTask is a unit of work run by a ParallelExecutor
type ExecutableTask interface {
	Name() string
	Execute(ctx context.Context) (interface{}, error)
	IsEnabled() bool
}

// ParallelExecutor runs tasks concurrently
type ParallelExecutor interface {
	Execute(ctx context.Context, tasks []ExecutableTask) error
}

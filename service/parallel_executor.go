package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/config"
	"golang.org/x/sync/errgroup"
)

// Fallbacks for invalid performance settings
const (
	DefaultMaxConcurrency = config.DefaultMaxGoroutines
	DefaultTimeout        = time.Duration(config.DefaultTimeoutSeconds) * time.Second
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

// AggregatedError collects all task failures, ordered like the submitted tasks
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tasks failed:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
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

// ParallelExecutorImpl implements domain.ParallelExecutor
type ParallelExecutorImpl struct {
	maxConcurrency int
	timeout        time.Duration
	description    string
	progress       domain.ProgressManager
}

// NewParallelExecutor creates an executor from performance settings.
// pm may be nil.
func NewParallelExecutor(cfg config.PerformanceConfig, pm domain.ProgressManager) *ParallelExecutorImpl {
	maxConcurrency := cfg.MaxGoroutines
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if pm == nil {
		pm = DiscardProgress{}
	}

	return &ParallelExecutorImpl{
		maxConcurrency: maxConcurrency,
		timeout:        timeout,
		description:    "Running tasks",
		progress:       pm,
	}
}

// WithDescription sets the label shown next to the progress bar
func (e *ParallelExecutorImpl) WithDescription(description string) *ParallelExecutorImpl {
	e.description = description
	return e
}

// Execute runs every enabled task. All tasks run to completion even when some
// fail; failures are returned together as *AggregatedError. Cancellation or
// timeout of ctx stops tasks that have not started yet.
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	enabled := make([]domain.ExecutableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEnabled() {
			enabled = append(enabled, t)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	bar := e.progress.StartTask(e.description, len(enabled))
	defer bar.Complete()

	g, gCtx := errgroup.WithContext(timeoutCtx)
	g.SetLimit(e.maxConcurrency)

	// one slot per task keeps the error order independent of scheduling
	failures := make([]error, len(enabled))

	for i, t := range enabled {
		g.Go(func() error {
			var err error
			if err = gCtx.Err(); err == nil {
				_, err = t.Execute(gCtx)
			}

			failures[i] = err
			bar.Describe(e.description + ": " + t.Name())
			bar.Increment(1)

			// failures are collected, not propagated, so siblings keep running
			return nil
		})
	}
	_ = g.Wait()

	var taskErrors []TaskError
	for i, err := range failures {
		if err != nil {
			taskErrors = append(taskErrors, TaskError{TaskName: enabled[i].Name(), Err: err})
		}
	}
	if len(taskErrors) > 0 {
		return &AggregatedError{Errors: taskErrors}
	}
	return nil
}

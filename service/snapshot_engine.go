package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/config"
	"github.com/ludo-technologies/covgate/internal/coverage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SnapshotEngine evaluates bounds in-process against a coverage snapshot
// (the aggregated class counters stored in the data file)
type SnapshotEngine struct {
	executor *ParallelExecutorImpl
	logger   *zap.Logger
}

// NewSnapshotEngine creates a snapshot engine. executor may be nil.
func NewSnapshotEngine(executor *ParallelExecutorImpl, logger *zap.Logger) *SnapshotEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if executor == nil {
		executor = NewParallelExecutor(config.DefaultConfig().Performance, nil)
	}
	return &SnapshotEngine{
		executor: executor.WithDescription("Evaluating coverage bounds"),
		logger:   logger,
	}
}

// Verify loads the snapshot and reports every entity outside its bounds
func (e *SnapshotEngine) Verify(ctx context.Context, req domain.EngineRequest) (*domain.EngineResult, error) {
	snapshot, err := coverage.Load(req.Artifacts.DataFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(req.Artifacts.DataFile, err)
		}
		return nil, domain.NewEngineError("failed to load coverage snapshot", err)
	}

	filter, err := coverage.NewFilter(req.Filters)
	if err != nil {
		return nil, domain.NewInvalidInputError("invalid class filter", err)
	}

	e.logger.Debug("Loaded coverage snapshot",
		zap.String("run_id", req.RunID),
		zap.Int("classes", len(snapshot.Classes)))

	// aggregation per target is shared between bounds
	scopes := make(map[domain.Target][]coverage.Entity)
	for _, b := range req.Bounds {
		if _, ok := scopes[b.Target]; !ok {
			scopes[b.Target] = snapshot.Aggregate(b.Target, filter)
		}
	}

	result := &domain.EngineResult{Rules: make(map[domain.RuleID]map[domain.BoundID]domain.BoundBreaches)}
	var mu sync.Mutex

	tasks := make([]domain.ExecutableTask, 0, len(req.Bounds))
	for _, b := range req.Bounds {
		tasks = append(tasks, &boundTask{
			bound:    b,
			entities: scopes[b.Target],
			record: func(breaches domain.BoundBreaches) {
				mu.Lock()
				defer mu.Unlock()
				if result.Rules[b.RuleID] == nil {
					result.Rules[b.RuleID] = make(map[domain.BoundID]domain.BoundBreaches)
				}
				result.Rules[b.RuleID][b.BoundID] = breaches
			},
		})
	}

	if err := e.executor.Execute(ctx, tasks); err != nil {
		return nil, domain.NewEngineError("bound evaluation failed", err)
	}
	return result, nil
}

// boundTask evaluates one bound against every entity of its scope
type boundTask struct {
	bound    domain.NormalizedBound
	entities []coverage.Entity
	record   func(domain.BoundBreaches)
}

func (t *boundTask) Name() string {
	return fmt.Sprintf("rule #%d bound #%d", int(t.bound.RuleID)+1, t.bound.BoundID)
}

func (t *boundTask) IsEnabled() bool {
	return t.bound.Min != nil || t.bound.Max != nil
}

func (t *boundTask) Execute(ctx context.Context) (interface{}, error) {
	var breaches domain.BoundBreaches

	for _, entity := range t.entities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, ok := coverage.Value(entity.Counters[t.bound.Metric], t.bound.Aggregation, RateScale)
		if !ok {
			continue
		}

		if t.bound.Min != nil && value.LessThan(*t.bound.Min) {
			if breaches.Min == nil {
				breaches.Min = make(map[string]decimal.Decimal)
			}
			breaches.Min[entity.Name] = value
		}
		if t.bound.Max != nil && value.GreaterThan(*t.bound.Max) {
			if breaches.Max == nil {
				breaches.Max = make(map[string]decimal.Decimal)
			}
			breaches.Max[entity.Name] = value
		}
	}

	if breaches.Min != nil || breaches.Max != nil {
		t.record(breaches)
	}
	return breaches, nil
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/glob"
	"go.uber.org/zap"
)

// VerificationServiceImpl implements domain.VerificationService
type VerificationServiceImpl struct {
	engine    domain.CoverageEngine
	collector *ViolationCollectorImpl
	logger    *zap.Logger
}

// NewVerificationService creates a verification service around a coverage engine
func NewVerificationService(engine domain.CoverageEngine, logger *zap.Logger) *VerificationServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationServiceImpl{
		engine:    engine,
		collector: NewViolationCollector(),
		logger:    logger,
	}
}

// Verify evaluates validated rules against the coverage engine. Violations are
// part of the result; the error channel carries filter, protocol and engine
// failures only. Engine errors are returned as the engine produced them.
func (s *VerificationServiceImpl) Verify(
	ctx context.Context,
	rules []domain.Rule,
	filters domain.Filters,
	artifacts domain.CoverageArtifacts,
	flags domain.EngineFlags,
) (*domain.VerifyResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))

	compiled, err := CompileFilters(filters)
	if err != nil {
		return nil, err
	}

	req := domain.EngineRequest{
		RunID:     runID,
		Bounds:    NormalizeRules(rules),
		Filters:   compiled,
		Artifacts: artifacts,
		Flags:     flags,
	}
	log.Debug("Invoking coverage engine",
		zap.Int("bounds", len(req.Bounds)),
		zap.String("data_file", artifacts.DataFile))

	engineResult, err := s.engine.Verify(ctx, req)
	if err != nil {
		return nil, err
	}

	breaches, err := s.collector.Flatten(engineResult, rules)
	if err != nil {
		return nil, err
	}
	groups, err := s.collector.Collect(rules, breaches)
	if err != nil {
		return nil, err
	}

	result := &domain.VerifyResult{
		RunID:      runID,
		Passed:     Passed(groups),
		Violations: groups,
		Report:     FormatViolations(groups),
		Summary:    summarize(len(rules), groups),
		Duration:   time.Since(start),
	}

	log.Debug("Verification finished",
		zap.Bool("passed", result.Passed),
		zap.Int("violations", result.Summary.TotalViolations),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// CompileFilters translates wildcard filters into full-match regular
// expressions and checks that each of them compiles
func CompileFilters(filters domain.Filters) (domain.CompiledFilters, error) {
	compiled := domain.CompiledFilters{
		IncludeClasses:     glob.ToRegexes(filters.IncludeClasses),
		ExcludeClasses:     glob.ToRegexes(filters.ExcludeClasses),
		ExcludeAnnotations: glob.ToRegexes(filters.ExcludeAnnotations),
	}

	for _, exprs := range [][]string{compiled.IncludeClasses, compiled.ExcludeClasses, compiled.ExcludeAnnotations} {
		if _, err := glob.CompileRegexes(exprs); err != nil {
			return domain.CompiledFilters{}, domain.NewInvalidInputError("invalid class filter", err)
		}
	}
	return compiled, nil
}

func summarize(rulesChecked int, groups []domain.RuleViolations) domain.CheckSummary {
	summary := domain.CheckSummary{RulesChecked: rulesChecked}
	for _, group := range groups {
		if len(group.Violations) == 0 {
			continue
		}
		summary.RulesViolated++
		summary.TotalViolations += len(group.Violations)
	}
	return summary
}

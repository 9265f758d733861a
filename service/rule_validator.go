package service

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/shopspring/decimal"
)

const (
	fieldRules       = "rules"
	fieldMetric      = "metric"
	fieldAggregation = "aggregation"
	fieldTarget      = "target"
	fieldMinValue    = "minValue"
	fieldMaxValue    = "maxValue"
)

var maxPercentage = decimal.NewFromInt(100)

// RuleValidatorImpl implements domain.RuleValidator
type RuleValidatorImpl struct{}

// NewRuleValidator creates a new rule validator
func NewRuleValidator() *RuleValidatorImpl {
	return &RuleValidatorImpl{}
}

// Validate checks every declared rule and returns the validated rules in
// declaration order. All problems are reported at once as *domain.RuleErrors
// wrapped in a configuration error.
func (v *RuleValidatorImpl) Validate(specs []domain.RuleSpec) ([]domain.Rule, error) {
	problems := &domain.RuleErrors{}

	if len(specs) == 0 {
		problems.Add(domain.RuleError{
			RuleIndex: -1,
			Field:     fieldRules,
			Message:   "At least one rule needs to be defined",
		})
		return nil, domain.NewConfigError("invalid coverage rules", problems)
	}

	rules := make([]domain.Rule, 0, len(specs))
	for i, spec := range specs {
		if rule, ok := v.validateRule(i, spec, problems); ok {
			rules = append(rules, rule)
		}
	}

	if problems.HasErrors() {
		return nil, domain.NewConfigError("invalid coverage rules", problems)
	}
	return rules, nil
}

func (v *RuleValidatorImpl) validateRule(index int, spec domain.RuleSpec, problems *domain.RuleErrors) (domain.Rule, bool) {
	before := len(problems.Errors)

	metric := domain.Metric(normalizeName(spec.Metric))
	if !metric.Valid() {
		options := metricNames()
		problems.Add(domain.RuleError{
			RuleIndex: index,
			Field:     fieldMetric,
			Message: fmt.Sprintf("A rule needs to define a (valid) type of metric. Valid options: %s.",
				strings.Join(options, ", ")),
			ValidOptions: options,
		})
	}

	aggregation := domain.DefaultAggregationMode
	if name := normalizeName(spec.Aggregation); name != "" {
		aggregation = domain.AggregationMode(name)
	}
	aggregationValid := aggregation.Valid()
	if !aggregationValid {
		options := aggregationNames()
		problems.Add(domain.RuleError{
			RuleIndex: index,
			Field:     fieldAggregation,
			Message: fmt.Sprintf("Invalid aggregation type '%s' detected. Valid options: %s.",
				spec.Aggregation, strings.Join(options, ", ")),
			ValidOptions: options,
		})
	}

	target := domain.DefaultTarget
	if name := normalizeName(spec.Target); name != "" {
		target = domain.Target(name)
	}
	if !target.Valid() {
		options := targetNames()
		problems.Add(domain.RuleError{
			RuleIndex: index,
			Field:     fieldTarget,
			Message: fmt.Sprintf("Invalid target type '%s' detected. Valid options: %s.",
				spec.Target, strings.Join(options, ", ")),
			ValidOptions: options,
		})
	}

	minValue := v.validateThreshold(index, fieldMinValue, spec.MinValue, aggregation, aggregationValid, problems)
	maxValue := v.validateThreshold(index, fieldMaxValue, spec.MaxValue, aggregation, aggregationValid, problems)

	if len(problems.Errors) > before {
		return domain.Rule{}, false
	}

	return domain.Rule{
		ID:          domain.RuleID(index),
		Metric:      metric,
		Aggregation: aggregation,
		Target:      target,
		Min:         minValue,
		Max:         maxValue,
	}, true
}

// validateThreshold parses an optional threshold. Range checks that depend on
// the aggregation are only applied once the aggregation itself is valid.
func (v *RuleValidatorImpl) validateThreshold(
	index int,
	field string,
	raw *string,
	aggregation domain.AggregationMode,
	aggregationValid bool,
	problems *domain.RuleErrors,
) *decimal.Decimal {
	if raw == nil {
		return nil
	}

	value, err := parseThreshold(*raw)
	if err != nil || value.IsNegative() {
		problems.Add(domain.RuleError{
			RuleIndex: index,
			Field:     field,
			Message:   fmt.Sprintf("'%s' needs to be (positive) number", field),
		})
		return nil
	}

	if !aggregationValid {
		return &value
	}

	if aggregation.IsPercentage() {
		if value.GreaterThan(maxPercentage) {
			problems.Add(domain.RuleError{
				RuleIndex: index,
				Field:     field,
				Message:   fmt.Sprintf("'%s' cannot be above 100%%", field),
			})
			return nil
		}
	} else if !value.IsInteger() {
		problems.Add(domain.RuleError{
			RuleIndex: index,
			Field:     field,
			Message:   fmt.Sprintf("'%s' needs to be a whole number for %s", field, aggregation.Noun()),
		})
		return nil
	}

	return &value
}

// parseThreshold accepts plain decimal notation only
func parseThreshold(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", raw)
	}
	return decimal.NewFromString(s)
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func metricNames() []string {
	names := make([]string, 0, len(domain.AllMetrics()))
	for _, m := range domain.AllMetrics() {
		names = append(names, string(m))
	}
	return names
}

func aggregationNames() []string {
	names := make([]string, 0, len(domain.AllAggregationModes()))
	for _, a := range domain.AllAggregationModes() {
		names = append(names, string(a))
	}
	return names
}

func targetNames() []string {
	names := make([]string, 0, len(domain.AllTargets()))
	for _, t := range domain.AllTargets() {
		names = append(names, string(t))
	}
	return names
}

package service

import (
	"github.com/ludo-technologies/covgate/domain"
	"github.com/shopspring/decimal"
)

// RateScale is the number of fractional digits kept for coverage rates
const RateScale int32 = 6

var oneHundred = decimal.NewFromInt(100)

// NormalizeThreshold converts a declared threshold into the engine domain.
// Percentages become fractional rates rounded half-up to RateScale digits;
// counts pass through unchanged.
func NormalizeThreshold(value decimal.Decimal, aggregation domain.AggregationMode) decimal.Decimal {
	if aggregation.IsPercentage() {
		return value.DivRound(oneHundred, RateScale)
	}
	return value
}

// DenormalizeValue converts an engine value back to declared units
func DenormalizeValue(value decimal.Decimal, aggregation domain.AggregationMode) decimal.Decimal {
	if aggregation.IsPercentage() {
		return value.Mul(oneHundred)
	}
	return value
}

// NormalizeRule builds the single engine bound of a rule
func NormalizeRule(rule domain.Rule) domain.NormalizedBound {
	return domain.NormalizedBound{
		RuleID:      rule.ID,
		BoundID:     domain.DefaultBoundID,
		Target:      rule.Target,
		Metric:      rule.Metric,
		Aggregation: rule.Aggregation,
		Min:         normalizeOptional(rule.Min, rule.Aggregation),
		Max:         normalizeOptional(rule.Max, rule.Aggregation),
	}
}

// NormalizeRules builds the bounds of every rule, in rule order
func NormalizeRules(rules []domain.Rule) []domain.NormalizedBound {
	bounds := make([]domain.NormalizedBound, 0, len(rules))
	for _, rule := range rules {
		bounds = append(bounds, NormalizeRule(rule))
	}
	return bounds
}

func normalizeOptional(value *decimal.Decimal, aggregation domain.AggregationMode) *decimal.Decimal {
	if value == nil {
		return nil
	}
	normalized := NormalizeThreshold(*value, aggregation)
	return &normalized
}

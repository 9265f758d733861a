package service

import (
	"sort"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/shopspring/decimal"
)

const protocolErrorMessage = "Error occurred while parsing verification result"

// ViolationCollectorImpl correlates engine breaches with the declared rules
// and orders them for reporting
type ViolationCollectorImpl struct{}

// NewViolationCollector creates a new violation collector
func NewViolationCollector() *ViolationCollectorImpl {
	return &ViolationCollectorImpl{}
}

// Flatten turns the engine's nested result into breaches. Rule and bound ids
// unknown to the request are rejected. The output order does not depend on
// map iteration.
func (c *ViolationCollectorImpl) Flatten(result *domain.EngineResult, rules []domain.Rule) ([]domain.RawBreach, error) {
	if result.IsEmpty() {
		return nil, nil
	}

	byID := indexRules(rules)

	ruleIDs := make([]domain.RuleID, 0, len(result.Rules))
	for id := range result.Rules {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Slice(ruleIDs, func(i, j int) bool { return ruleIDs[i] < ruleIDs[j] })

	var breaches []domain.RawBreach
	for _, ruleID := range ruleIDs {
		bounds := result.Rules[ruleID]
		if _, ok := byID[ruleID]; !ok {
			return nil, protocolMismatch(ruleID, domain.DefaultBoundID, "unmapped rule")
		}

		boundIDs := make([]domain.BoundID, 0, len(bounds))
		for id := range bounds {
			boundIDs = append(boundIDs, id)
		}
		sort.Slice(boundIDs, func(i, j int) bool { return boundIDs[i] < boundIDs[j] })

		for _, boundID := range boundIDs {
			if boundID != domain.DefaultBoundID {
				return nil, protocolMismatch(ruleID, boundID, "unmapped bound")
			}
			b := bounds[boundID]
			breaches = appendBreaches(breaches, ruleID, boundID, false, b.Min)
			breaches = appendBreaches(breaches, ruleID, boundID, true, b.Max)
		}
	}
	return breaches, nil
}

func appendBreaches(dst []domain.RawBreach, ruleID domain.RuleID, boundID domain.BoundID, isMax bool, values map[string]decimal.Decimal) []domain.RawBreach {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dst = append(dst, domain.RawBreach{
			RuleID:     ruleID,
			BoundID:    boundID,
			EntityName: name,
			IsMax:      isMax,
			Actual:     values[name],
		})
	}
	return dst
}

// Collect builds display-ready violations grouped per rule. Groups follow rule
// declaration order and violations within a group follow domain.ViolationKey.
// A breach of a bound the rule never declared is a protocol mismatch.
func (c *ViolationCollectorImpl) Collect(rules []domain.Rule, breaches []domain.RawBreach) ([]domain.RuleViolations, error) {
	byID := indexRules(rules)
	groups := make(map[domain.RuleID][]domain.Violation)

	for _, breach := range breaches {
		rule, ok := byID[breach.RuleID]
		if !ok {
			return nil, protocolMismatch(breach.RuleID, breach.BoundID, "unmapped rule")
		}
		if breach.BoundID != domain.DefaultBoundID {
			return nil, protocolMismatch(breach.RuleID, breach.BoundID, "unmapped bound")
		}

		expected := rule.Min
		if breach.IsMax {
			expected = rule.Max
		}
		if expected == nil {
			reason := "no minimal bound declared"
			if breach.IsMax {
				reason = "no maximal bound declared"
			}
			return nil, protocolMismatch(breach.RuleID, breach.BoundID, reason)
		}

		actual := DenormalizeValue(breach.Actual, rule.Aggregation)
		groups[rule.ID] = append(groups[rule.ID],
			domain.NewViolation(breach.BoundID, breach.EntityName, breach.IsMax, *expected, actual, rule))
	}

	ruleIDs := make([]domain.RuleID, 0, len(groups))
	for id := range groups {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Slice(ruleIDs, func(i, j int) bool { return ruleIDs[i] < ruleIDs[j] })

	result := make([]domain.RuleViolations, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		violations := groups[id]
		// min before max for the same entity
		sort.SliceStable(violations, func(i, j int) bool {
			if order := violations[i].Key().Compare(violations[j].Key()); order != 0 {
				return order < 0
			}
			return !violations[i].IsMax && violations[j].IsMax
		})
		result = append(result, domain.RuleViolations{RuleID: id, Violations: violations})
	}
	return result, nil
}

func indexRules(rules []domain.Rule) map[domain.RuleID]domain.Rule {
	byID := make(map[domain.RuleID]domain.Rule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}
	return byID
}

func protocolMismatch(ruleID domain.RuleID, boundID domain.BoundID, reason string) error {
	return domain.NewProtocolMismatchError(protocolErrorMessage, &domain.ProtocolMismatchError{
		RuleID:  ruleID,
		BoundID: boundID,
		Reason:  reason,
	})
}

package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/testutil"
	"github.com/shopspring/decimal"
)

func testRules(t *testing.T) []domain.Rule {
	t.Helper()
	return []domain.Rule{
		{
			ID:          0,
			Metric:      domain.MetricBranch,
			Aggregation: domain.AggregationCoveredCount,
			Target:      domain.TargetAll,
			Min:         testutil.DecimalPtr(t, "5000"),
		},
		{
			ID:          1,
			Metric:      domain.MetricLine,
			Aggregation: domain.AggregationCoveredPercentage,
			Target:      domain.TargetClass,
			Min:         testutil.DecimalPtr(t, "50"),
			Max:         testutil.DecimalPtr(t, "10"),
		},
	}
}

func assertProtocolMismatch(t *testing.T, err error, ruleID domain.RuleID, boundID domain.BoundID, reason string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected protocol mismatch, got nil")
	}

	var domainErr domain.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeProtocolMismatch {
		t.Fatalf("expected %s error, got %v", domain.ErrCodeProtocolMismatch, err)
	}

	var mismatch *domain.ProtocolMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *domain.ProtocolMismatchError in chain, got %v", err)
	}
	testutil.AssertEqual(t, ruleID, mismatch.RuleID)
	testutil.AssertEqual(t, boundID, mismatch.BoundID)
	testutil.AssertEqual(t, reason, mismatch.Reason)
}

func TestViolationCollector_Flatten(t *testing.T) {
	collector := NewViolationCollector()
	rules := testRules(t)

	t.Run("empty result", func(t *testing.T) {
		breaches, err := collector.Flatten(&domain.EngineResult{}, rules)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, 0, len(breaches))

		breaches, err = collector.Flatten(nil, rules)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, 0, len(breaches))
	})

	t.Run("deterministic order", func(t *testing.T) {
		result := &domain.EngineResult{Rules: map[domain.RuleID]map[domain.BoundID]domain.BoundBreaches{
			1: {0: {
				Min: map[string]decimal.Decimal{"b.B": decimal.Zero, "a.A": decimal.Zero},
				Max: map[string]decimal.Decimal{"c.C": decimal.NewFromInt(1)},
			}},
			0: {0: {Min: map[string]decimal.Decimal{"": decimal.Zero}}},
		}}

		breaches, err := collector.Flatten(result, rules)
		testutil.AssertNoError(t, err)

		var got []string
		for _, b := range breaches {
			kind := "min"
			if b.IsMax {
				kind = "max"
			}
			got = append(got, kind+":"+b.EntityName)
		}
		testutil.AssertEqual(t, "min:,min:a.A,min:b.B,max:c.C", strings.Join(got, ","))
		testutil.AssertEqual(t, domain.RuleID(0), breaches[0].RuleID)
		testutil.AssertEqual(t, domain.RuleID(1), breaches[3].RuleID)
	})

	t.Run("unmapped rule", func(t *testing.T) {
		result := &domain.EngineResult{Rules: map[domain.RuleID]map[domain.BoundID]domain.BoundBreaches{
			7: {0: {Min: map[string]decimal.Decimal{"": decimal.Zero}}},
		}}
		_, err := collector.Flatten(result, rules)
		assertProtocolMismatch(t, err, 7, 0, "unmapped rule")
		testutil.AssertTrue(t, strings.Contains(err.Error(), "rule index 7"), "error should name the index: "+err.Error())
	})

	t.Run("unmapped bound", func(t *testing.T) {
		result := &domain.EngineResult{Rules: map[domain.RuleID]map[domain.BoundID]domain.BoundBreaches{
			0: {3: {Min: map[string]decimal.Decimal{"": decimal.Zero}}},
		}}
		_, err := collector.Flatten(result, rules)
		assertProtocolMismatch(t, err, 0, 3, "unmapped bound")
	})
}

func TestViolationCollector_Collect(t *testing.T) {
	collector := NewViolationCollector()
	rules := testRules(t)

	breaches := []domain.RawBreach{
		{RuleID: 1, EntityName: "com.example.Zeta", IsMax: true, Actual: testutil.Decimal(t, "0.5")},
		{RuleID: 1, EntityName: "com.example.Alpha", IsMax: false, Actual: testutil.Decimal(t, "0.25")},
		{RuleID: 1, EntityName: "", IsMax: true, Actual: testutil.Decimal(t, "0.886792")},
		{RuleID: 0, EntityName: "", IsMax: false, Actual: decimal.NewFromInt(80)},
	}

	groups, err := collector.Collect(rules, breaches)
	testutil.AssertNoError(t, err)

	if len(groups) != 2 {
		t.Fatalf("expected 2 rule groups, got %d", len(groups))
	}
	testutil.AssertEqual(t, domain.RuleID(0), groups[0].RuleID)
	testutil.AssertEqual(t, domain.RuleID(1), groups[1].RuleID)

	count := groups[0].Violations[0]
	testutil.AssertDecimal(t, "80", count.Actual)
	testutil.AssertDecimal(t, "5000", count.Expected)
	testutil.AssertFalse(t, count.IsMax, "count violation is a minimum")

	var names []string
	for _, v := range groups[1].Violations {
		names = append(names, v.EntityName)
	}
	testutil.AssertEqual(t, ",com.example.Alpha,com.example.Zeta", strings.Join(names, ","))

	project := groups[1].Violations[0]
	testutil.AssertDecimal(t, "88.6792", project.Actual)
	testutil.AssertDecimal(t, "10", project.Expected)
	testutil.AssertEqual(t, "88.6792", project.Actual.String())

	alpha := groups[1].Violations[1]
	testutil.AssertDecimal(t, "25", alpha.Actual)
	testutil.AssertDecimal(t, "50", alpha.Expected)
}

func TestViolationCollector_CollectMinBeforeMax(t *testing.T) {
	rules := testRules(t)
	groups, err := NewViolationCollector().Collect(rules, []domain.RawBreach{
		{RuleID: 1, EntityName: "x.X", IsMax: true, Actual: decimal.NewFromInt(1)},
		{RuleID: 1, EntityName: "x.X", IsMax: false, Actual: decimal.Zero},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, groups[0].Violations[0].IsMax, "minimum should come first")
	testutil.AssertTrue(t, groups[0].Violations[1].IsMax, "maximum should come second")
}

func TestViolationCollector_CollectRejectsUndeclaredBounds(t *testing.T) {
	rules := testRules(t)

	tests := []struct {
		name    string
		breach  domain.RawBreach
		ruleID  domain.RuleID
		boundID domain.BoundID
		reason  string
	}{
		{
			name:   "max on min-only rule",
			breach: domain.RawBreach{RuleID: 0, IsMax: true, Actual: decimal.Zero},
			ruleID: 0,
			reason: "no maximal bound declared",
		},
		{
			name:   "unknown rule",
			breach: domain.RawBreach{RuleID: 2, Actual: decimal.Zero},
			ruleID: 2,
			reason: "unmapped rule",
		},
		{
			name:    "unknown bound",
			breach:  domain.RawBreach{RuleID: 1, BoundID: 1, Actual: decimal.Zero},
			ruleID:  1,
			boundID: 1,
			reason:  "unmapped bound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewViolationCollector().Collect(rules, []domain.RawBreach{tt.breach})
			assertProtocolMismatch(t, err, tt.ruleID, tt.boundID, tt.reason)
		})
	}

	maxOnly := []domain.Rule{{
		ID:          0,
		Metric:      domain.MetricLine,
		Aggregation: domain.AggregationMissedCount,
		Target:      domain.TargetAll,
		Max:         testutil.DecimalPtr(t, "3"),
	}}
	_, err := NewViolationCollector().Collect(maxOnly, []domain.RawBreach{{RuleID: 0, Actual: decimal.Zero}})
	assertProtocolMismatch(t, err, 0, 0, "no minimal bound declared")
}

func TestViolationKeyOrder(t *testing.T) {
	tests := []struct {
		a, b domain.ViolationKey
		less bool
	}{
		{domain.ViolationKey{BoundID: 0, EntityName: ""}, domain.ViolationKey{BoundID: 0, EntityName: "a"}, true},
		{domain.ViolationKey{BoundID: 0, EntityName: "a"}, domain.ViolationKey{BoundID: 0, EntityName: ""}, false},
		{domain.ViolationKey{BoundID: 0, EntityName: "a"}, domain.ViolationKey{BoundID: 0, EntityName: "b"}, true},
		{domain.ViolationKey{BoundID: 0, EntityName: "z"}, domain.ViolationKey{BoundID: 1, EntityName: ""}, true},
		{domain.ViolationKey{BoundID: 1, EntityName: ""}, domain.ViolationKey{BoundID: 0, EntityName: "z"}, false},
		{domain.ViolationKey{BoundID: 0, EntityName: "a"}, domain.ViolationKey{BoundID: 0, EntityName: "a"}, false},
	}

	for _, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.less {
			t.Errorf("%v.Less(%v) = %v, want %v", tt.a, tt.b, got, tt.less)
		}
	}
}

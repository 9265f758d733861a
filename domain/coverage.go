package domain

import (
	"cmp"
	"strings"

	"github.com/shopspring/decimal"
)

// Metric is the kind of code unit counted by the coverage engine
type Metric string

const (
	MetricLine        Metric = "LINE"
	MetricInstruction Metric = "INSTRUCTION"
	MetricBranch      Metric = "BRANCH"
)

// AllMetrics returns every metric in declaration order
func AllMetrics() []Metric {
	return []Metric{MetricLine, MetricInstruction, MetricBranch}
}

// Valid reports whether m is one of the known metrics
func (m Metric) Valid() bool {
	switch m {
	case MetricLine, MetricInstruction, MetricBranch:
		return true
	}
	return false
}

// Noun returns the plural noun used in violation messages
func (m Metric) Noun() string {
	switch m {
	case MetricLine:
		return "lines"
	case MetricInstruction:
		return "instructions"
	case MetricBranch:
		return "branches"
	}
	return strings.ToLower(string(m))
}

// AggregationMode is how a metric is summarized before it is compared with a bound
type AggregationMode string

const (
	AggregationCoveredCount      AggregationMode = "COVERED_COUNT"
	AggregationMissedCount       AggregationMode = "MISSED_COUNT"
	AggregationCoveredPercentage AggregationMode = "COVERED_PERCENTAGE"
	AggregationMissedPercentage  AggregationMode = "MISSED_PERCENTAGE"
)

// DefaultAggregationMode is used when a rule does not declare one
const DefaultAggregationMode = AggregationCoveredPercentage

// AllAggregationModes returns every aggregation mode in declaration order
func AllAggregationModes() []AggregationMode {
	return []AggregationMode{
		AggregationCoveredCount,
		AggregationMissedCount,
		AggregationCoveredPercentage,
		AggregationMissedPercentage,
	}
}

// Valid reports whether a is one of the known aggregation modes
func (a AggregationMode) Valid() bool {
	switch a {
	case AggregationCoveredCount, AggregationMissedCount,
		AggregationCoveredPercentage, AggregationMissedPercentage:
		return true
	}
	return false
}

// IsPercentage reports whether thresholds of this mode are percentages in [0,100]
func (a AggregationMode) IsPercentage() bool {
	switch a {
	case AggregationCoveredPercentage, AggregationMissedPercentage:
		return true
	}
	return false
}

// Noun returns the phrase used in violation messages
func (a AggregationMode) Noun() string {
	switch a {
	case AggregationCoveredCount:
		return "covered count"
	case AggregationMissedCount:
		return "missed count"
	case AggregationCoveredPercentage:
		return "covered percentage"
	case AggregationMissedPercentage:
		return "missed percentage"
	}
	return strings.ToLower(strings.ReplaceAll(string(a), "_", " "))
}

// ValueType returns the engine-side name of the aggregation
func (a AggregationMode) ValueType() string {
	switch a {
	case AggregationCoveredCount:
		return "COVERED"
	case AggregationMissedCount:
		return "MISSED"
	case AggregationCoveredPercentage:
		return "COVERED_RATE"
	case AggregationMissedPercentage:
		return "MISSED_RATE"
	}
	return string(a)
}

// Target is the scope a rule is evaluated against
type Target string

const (
	// TargetAll evaluates the whole project; breaches carry an empty entity name
	TargetAll     Target = "ALL"
	TargetClass   Target = "CLASS"
	TargetPackage Target = "PACKAGE"
)

// DefaultTarget is used when a rule does not declare one
const DefaultTarget = TargetAll

// AllTargets returns every target in declaration order
func AllTargets() []Target {
	return []Target{TargetAll, TargetClass, TargetPackage}
}

// Valid reports whether t is one of the known targets
func (t Target) Valid() bool {
	switch t {
	case TargetAll, TargetClass, TargetPackage:
		return true
	}
	return false
}

// Noun returns the entity noun used in violation messages
func (t Target) Noun() string {
	switch t {
	case TargetAll:
		return "project"
	case TargetClass:
		return "class"
	case TargetPackage:
		return "package"
	}
	return strings.ToLower(string(t))
}

// RuleSpec is a rule as declared in configuration, before validation
type RuleSpec struct {
	Metric      string  `json:"metric"`
	Aggregation string  `json:"aggregation,omitempty"`
	Target      string  `json:"target,omitempty"`
	MinValue    *string `json:"minValue,omitempty"`
	MaxValue    *string `json:"maxValue,omitempty"`
}

// RuleID identifies a rule by its declaration position
type RuleID int

// BoundID identifies a bound within a rule
type BoundID int

// DefaultBoundID is the id of the single bound every rule currently has
const DefaultBoundID BoundID = 0

// Rule is a validated coverage rule. It is immutable once built.
type Rule struct {
	ID          RuleID
	Metric      Metric
	Aggregation AggregationMode
	Target      Target

	// Min and Max are the thresholds as declared (0-100 for percentages)
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// NormalizedBound is the engine-facing form of a rule
type NormalizedBound struct {
	RuleID      RuleID
	BoundID     BoundID
	Target      Target
	Metric      Metric
	Aggregation AggregationMode

	// Min and Max are in the engine domain: fractional rates for
	// percentage modes, raw counts otherwise
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// RawBreach is a single broken bound as reported by the coverage engine
type RawBreach struct {
	RuleID     RuleID
	BoundID    BoundID
	EntityName string
	IsMax      bool
	Actual     decimal.Decimal
}

// ViolationKey orders violations within a rule: by bound id, then by entity
// name with the empty (project-wide) name first
type ViolationKey struct {
	BoundID    BoundID
	EntityName string
}

// Compare returns -1, 0 or +1 following the report order
func (k ViolationKey) Compare(other ViolationKey) int {
	if c := cmp.Compare(k.BoundID, other.BoundID); c != 0 {
		return c
	}
	// the empty name sorts before any present name
	return strings.Compare(k.EntityName, other.EntityName)
}

// Less reports whether k sorts before other
func (k ViolationKey) Less(other ViolationKey) bool {
	return k.Compare(other) < 0
}

// Violation is a display-ready breach. Values are in declared units.
type Violation struct {
	IsMax       bool            `json:"is_max"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
	Metric      Metric          `json:"metric"`
	Aggregation AggregationMode `json:"aggregation"`
	Target      Target          `json:"target"`
	EntityName  string          `json:"entity,omitempty"`

	key ViolationKey
}

// Key returns the ordering key of the violation
func (v Violation) Key() ViolationKey {
	return v.key
}

// NewViolation builds a violation with its ordering key
func NewViolation(boundID BoundID, entity string, isMax bool, expected, actual decimal.Decimal, rule Rule) Violation {
	return Violation{
		IsMax:       isMax,
		Expected:    expected,
		Actual:      actual,
		Metric:      rule.Metric,
		Aggregation: rule.Aggregation,
		Target:      rule.Target,
		EntityName:  entity,
		key:         ViolationKey{BoundID: boundID, EntityName: entity},
	}
}

// RuleViolations holds every violation of one rule, in ViolationKey order
type RuleViolations struct {
	RuleID     RuleID      `json:"rule"`
	Violations []Violation `json:"violations"`
}

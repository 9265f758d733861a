package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Filters holds wildcard patterns scoping which classes are measured
type Filters struct {
	IncludeClasses     []string `json:"include_classes,omitempty"`
	ExcludeClasses     []string `json:"exclude_classes,omitempty"`
	ExcludeAnnotations []string `json:"exclude_annotations,omitempty"`
}

// IsEmpty reports whether no pattern is set
func (f Filters) IsEmpty() bool {
	return len(f.IncludeClasses) == 0 && len(f.ExcludeClasses) == 0 && len(f.ExcludeAnnotations) == 0
}

// CompiledFilters holds the full-match regular expressions built from Filters
type CompiledFilters struct {
	IncludeClasses     []string `json:"includeClasses,omitempty"`
	ExcludeClasses     []string `json:"excludeClasses,omitempty"`
	ExcludeAnnotations []string `json:"excludeAnnotations,omitempty"`
}

// CoverageArtifacts locates the coverage data consumed by the engine
type CoverageArtifacts struct {
	// DataFile is the raw instrumentation output (or snapshot for the in-process engine)
	DataFile string
	// ReportFile is the aggregated report produced from DataFile
	ReportFile string
	// SourceMapFile maps aggregated data back to sources
	SourceMapFile string
}

// EngineFlags is the fixed set of switches handed to the coverage engine
type EngineFlags struct {
	Tracing                     bool   `json:"tracing"`
	LogLevel                    string `json:"logLevel"`
	CountHits                   bool   `json:"countHits"`
	AppendToDataFile            bool   `json:"appendToDataFile"`
	TrackPerTest                bool   `json:"trackPerTest"`
	CalculateForUnloadedClasses bool   `json:"calculateForUnloadedClasses"`
	LineOnly                    bool   `json:"lineOnly"`
	IgnoreStaticConstructors    bool   `json:"ignoreStaticConstructors"`
}

// DefaultEngineFlags returns the flags every run uses unless configured otherwise
func DefaultEngineFlags() EngineFlags {
	return EngineFlags{
		Tracing:                     true,
		LogLevel:                    "error",
		CountHits:                   false,
		AppendToDataFile:            true,
		TrackPerTest:                false,
		CalculateForUnloadedClasses: false,
		LineOnly:                    false,
		IgnoreStaticConstructors:    true,
	}
}

// EngineRequest is everything the coverage engine needs for one verification
type EngineRequest struct {
	RunID     string
	Bounds    []NormalizedBound
	Filters   CompiledFilters
	Artifacts CoverageArtifacts
	Flags     EngineFlags
}

// BoundBreaches holds the actual values of every entity breaking a bound,
// keyed by entity name ("" for the whole scope)
type BoundBreaches struct {
	Min map[string]decimal.Decimal
	Max map[string]decimal.Decimal
}

// EngineResult is the engine's answer. An empty result means no breaches.
type EngineResult struct {
	Rules map[RuleID]map[BoundID]BoundBreaches
}

// IsEmpty reports whether the engine found no breaches
func (r *EngineResult) IsEmpty() bool {
	return r == nil || len(r.Rules) == 0
}

// CoverageEngine evaluates normalized bounds against measured coverage
type CoverageEngine interface {
	Verify(ctx context.Context, req EngineRequest) (*EngineResult, error)
}

// VerifyRequest is a complete verification run as requested by the host
type VerifyRequest struct {
	Rules     []RuleSpec
	Filters   Filters
	Artifacts CoverageArtifacts
	Flags     EngineFlags

	// Skip disables verification entirely
	Skip bool

	OutputFormat OutputFormat
	OutputWriter io.Writer
	Verbose      bool
}

// VerifyResult is the outcome of a verification run
type VerifyResult struct {
	RunID      string           `json:"run_id"`
	Passed     bool             `json:"passed"`
	Skipped    bool             `json:"skipped,omitempty"`
	SkipReason string           `json:"skip_reason,omitempty"`
	Violations []RuleViolations `json:"violations"`
	Report     string           `json:"report,omitempty"`
	Summary    CheckSummary     `json:"summary"`
	Duration   time.Duration    `json:"-"`
}

// CheckSummary provides aggregate statistics
type CheckSummary struct {
	RulesChecked    int `json:"rules_checked" yaml:"rules_checked"`
	RulesViolated   int `json:"rules_violated" yaml:"rules_violated"`
	TotalViolations int `json:"total_violations" yaml:"total_violations"`
}

// RuleValidator turns declared rules into validated rules
type RuleValidator interface {
	Validate(specs []RuleSpec) ([]Rule, error)
}

// VerificationService runs one verification against a coverage engine
type VerificationService interface {
	Verify(ctx context.Context, rules []Rule, filters Filters, artifacts CoverageArtifacts, flags EngineFlags) (*VerifyResult, error)
}

// VerifyResultFormatter renders a verification result
type VerifyResultFormatter interface {
	Write(result *VerifyResult, format OutputFormat, writer io.Writer) error
}

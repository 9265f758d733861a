package domain

import (
	"errors"
	"sort"
	"testing"
)

// Error tests

func TestDomainError_Error(t *testing.T) {
	// Without cause
	err := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
	}
	expected := "[TEST_ERROR] Test message"
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}

	// With cause
	errWithCause := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
		Cause:   errors.New("underlying error"),
	}
	expectedWithCause := "[TEST_ERROR] Test message: underlying error"
	if errWithCause.Error() != expectedWithCause {
		t.Errorf("Expected '%s', got '%s'", expectedWithCause, errWithCause.Error())
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewEngineError("engine failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	errNoCause := DomainError{Code: "TEST_ERROR", Message: "Test message"}
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestErrorConstructors(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"invalid input", NewInvalidInputError("bad input", cause), ErrCodeInvalidInput},
		{"file not found", NewFileNotFoundError("coverage.yaml", cause), ErrCodeFileNotFound},
		{"config", NewConfigError("bad config", cause), ErrCodeConfigError},
		{"protocol mismatch", NewProtocolMismatchError("mismatch", cause), ErrCodeProtocolMismatch},
		{"engine", NewEngineError("engine", cause), ErrCodeEngineError},
		{"output", NewOutputError("output", cause), ErrCodeOutputError},
		{"unsupported format", NewUnsupportedFormatError("xml"), ErrCodeUnsupportedFormat},
		{"validation", NewValidationError("invalid"), ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var domainErr DomainError
			if !errors.As(tt.err, &domainErr) {
				t.Fatalf("Should return DomainError type, got %T", tt.err)
			}
			if domainErr.Code != tt.code {
				t.Errorf("Expected code '%s', got '%s'", tt.code, domainErr.Code)
			}
		})
	}

	if msg := NewFileNotFoundError("coverage.yaml", nil).Error(); msg != "[FILE_NOT_FOUND] file not found: coverage.yaml" {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestRuleErrors(t *testing.T) {
	problems := &RuleErrors{}
	if problems.HasErrors() {
		t.Error("empty list should have no errors")
	}

	problems.Add(RuleError{RuleIndex: 0, Field: "metric", Message: "bad metric"})
	if got := problems.Error(); got != "rule #1: bad metric" {
		t.Errorf("unexpected single error message: %s", got)
	}

	problems.Add(RuleError{RuleIndex: -1, Field: "rules", Message: "list problem"})
	expected := "2 rule problems found:\n  rule #1: bad metric\n  list problem"
	if got := problems.Error(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	wrapped := NewConfigError("invalid coverage rules", problems)
	var target *RuleErrors
	if !errors.As(wrapped, &target) || len(target.Errors) != 2 {
		t.Error("errors.As should reach the rule errors")
	}
}

func TestProtocolMismatchError(t *testing.T) {
	err := NewProtocolMismatchError("Error occurred while parsing verification result",
		&ProtocolMismatchError{RuleID: 2, BoundID: 0, Reason: "unmapped rule"})

	var mismatch *ProtocolMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatal("errors.As should reach the mismatch details")
	}
	if mismatch.RuleID != 2 || mismatch.Reason != "unmapped rule" {
		t.Errorf("unexpected details: %+v", mismatch)
	}
	if mismatch.Error() != "unmapped rule (rule index 2, bound index 0)" {
		t.Errorf("unexpected message: %s", mismatch.Error())
	}
}

// Enum tests

func TestMetric(t *testing.T) {
	nouns := map[Metric]string{
		MetricLine:        "lines",
		MetricInstruction: "instructions",
		MetricBranch:      "branches",
	}
	for _, m := range AllMetrics() {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
		if m.Noun() != nouns[m] {
			t.Errorf("Noun(%s) = %s, want %s", m, m.Noun(), nouns[m])
		}
	}
	if Metric("LINES").Valid() {
		t.Error("LINES should not be valid")
	}
}

func TestAggregationMode(t *testing.T) {
	tests := []struct {
		mode       AggregationMode
		percentage bool
		noun       string
		valueType  string
	}{
		{AggregationCoveredCount, false, "covered count", "COVERED"},
		{AggregationMissedCount, false, "missed count", "MISSED"},
		{AggregationCoveredPercentage, true, "covered percentage", "COVERED_RATE"},
		{AggregationMissedPercentage, true, "missed percentage", "MISSED_RATE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if !tt.mode.Valid() {
				t.Error("should be valid")
			}
			if tt.mode.IsPercentage() != tt.percentage {
				t.Errorf("IsPercentage = %v, want %v", tt.mode.IsPercentage(), tt.percentage)
			}
			if tt.mode.Noun() != tt.noun {
				t.Errorf("Noun = %s, want %s", tt.mode.Noun(), tt.noun)
			}
			if tt.mode.ValueType() != tt.valueType {
				t.Errorf("ValueType = %s, want %s", tt.mode.ValueType(), tt.valueType)
			}
		})
	}

	if DefaultAggregationMode != AggregationCoveredPercentage {
		t.Error("percentage of covered units is the default aggregation")
	}
}

func TestTarget(t *testing.T) {
	nouns := map[Target]string{
		TargetAll:     "project",
		TargetClass:   "class",
		TargetPackage: "package",
	}
	for _, target := range AllTargets() {
		if !target.Valid() {
			t.Errorf("%s should be valid", target)
		}
		if target.Noun() != nouns[target] {
			t.Errorf("Noun(%s) = %s, want %s", target, target.Noun(), nouns[target])
		}
	}
	if Target("MODULE").Valid() {
		t.Error("MODULE should not be valid")
	}
}

// Ordering tests

func TestViolationKey_Order(t *testing.T) {
	keys := []ViolationKey{
		{BoundID: 1, EntityName: ""},
		{BoundID: 0, EntityName: "b.Second"},
		{BoundID: 0, EntityName: ""},
		{BoundID: 0, EntityName: "a.First"},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	expected := []ViolationKey{
		{BoundID: 0, EntityName: ""},
		{BoundID: 0, EntityName: "a.First"},
		{BoundID: 0, EntityName: "b.Second"},
		{BoundID: 1, EntityName: ""},
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("position %d: expected %+v, got %+v", i, expected[i], keys[i])
		}
	}

	if (ViolationKey{BoundID: 0, EntityName: "x"}).Compare(ViolationKey{BoundID: 0, EntityName: "x"}) != 0 {
		t.Error("equal keys compare as 0")
	}
}

func TestEngineResult_IsEmpty(t *testing.T) {
	var nilResult *EngineResult
	if !nilResult.IsEmpty() {
		t.Error("nil result is empty")
	}
	if !(&EngineResult{}).IsEmpty() {
		t.Error("result without rules is empty")
	}
	result := &EngineResult{Rules: map[RuleID]map[BoundID]BoundBreaches{0: {}}}
	if result.IsEmpty() {
		t.Error("result with a rule entry is not empty")
	}
}

func TestFilters_IsEmpty(t *testing.T) {
	if !(Filters{}).IsEmpty() {
		t.Error("zero filters are empty")
	}
	if (Filters{ExcludeAnnotations: []string{"*Generated"}}).IsEmpty() {
		t.Error("filters with an annotation pattern are not empty")
	}
}

func TestDefaultEngineFlags(t *testing.T) {
	flags := DefaultEngineFlags()
	if !flags.Tracing || !flags.AppendToDataFile || !flags.IgnoreStaticConstructors {
		t.Errorf("unexpected defaults: %+v", flags)
	}
	if flags.CountHits || flags.TrackPerTest || flags.CalculateForUnloadedClasses || flags.LineOnly {
		t.Errorf("unexpected defaults: %+v", flags)
	}
	if flags.LogLevel != "error" {
		t.Errorf("expected log level error, got %s", flags.LogLevel)
	}
}

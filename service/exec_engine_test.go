package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/testutil"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

// shellEngine builds an engine running script with $1 = request file and $2 = result file
func shellEngine(t *testing.T, script string, timeout time.Duration) (*ExecEngine, string) {
	t.Helper()
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "engine.sh", script)
	return NewExecEngine("/bin/sh", []string{path}, dir, timeout, nil), dir
}

func TestBuildExecRequest(t *testing.T) {
	rules := validate(t,
		domain.RuleSpec{Metric: "BRANCH", Aggregation: "COVERED_COUNT", MinValue: testutil.StringPtr("5000")},
		domain.RuleSpec{Metric: "LINE", Target: "PACKAGE", MaxValue: testutil.StringPtr("10")},
	)

	req := BuildExecRequest(domain.EngineRequest{
		RunID:     "run-1",
		Bounds:    NormalizeRules(rules),
		Filters:   domain.CompiledFilters{ExcludeClasses: []string{`.*Test`}},
		Artifacts: domain.CoverageArtifacts{DataFile: "coverage.ic"},
		Flags:     domain.DefaultEngineFlags(),
	}, "/tmp/result.json")

	data, err := json.Marshal(req)
	testutil.AssertNoError(t, err)
	text := string(data)

	for _, fragment := range []string{
		`"runId":"run-1"`,
		`"resultFile":"/tmp/result.json"`,
		`"dataFile":"coverage.ic"`,
		`"excludeClasses":[".*Test"]`,
		`"tracing":true`,
		`"appendToDataFile":true`,
		`{"id":0,"targetType":"ALL","bounds":[{"id":0,"counter":"BRANCH","valueType":"COVERED","min":"5000"}]}`,
		`{"id":1,"targetType":"PACKAGE","bounds":[{"id":0,"counter":"LINE","valueType":"COVERED_RATE","max":"0.1"}]}`,
	} {
		testutil.AssertTrue(t, strings.Contains(text, fragment), "request missing "+fragment+" in "+text)
	}
}

func TestParseExecResult(t *testing.T) {
	result, err := ParseExecResult([]byte(`{"rules":[
		{"id":1,"bounds":[{"id":0,"max":{"":0.886792}}]},
		{"id":0,"bounds":[{"id":0,"min":{"":"80","a.B":0}}]},
		{"id":2,"bounds":[{"id":0}]}
	]}`))
	testutil.AssertNoError(t, err)

	if len(result.Rules) != 2 {
		t.Fatalf("expected 2 rules with breaches, got %d", len(result.Rules))
	}
	testutil.AssertDecimal(t, "0.886792", result.Rules[1][0].Max[""])
	testutil.AssertDecimal(t, "80", result.Rules[0][0].Min[""])
	testutil.AssertEqual(t, 2, len(result.Rules[0][0].Min))

	empty, err := ParseExecResult([]byte(`{"rules":[]}`))
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, empty.IsEmpty(), "no rules means no breaches")

	repeated, err := ParseExecResult([]byte(`{"rules":[
		{"id":0,"bounds":[{"id":0,"min":{"":0.1}}]},
		{"id":0,"bounds":[{"id":0,"max":{"":0.9}},{"id":0,"min":{"a.B":0.2}}]}
	]}`))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(repeated.Rules))
	testutil.AssertEqual(t, 2, len(repeated.Rules[0][0].Min))
	testutil.AssertDecimal(t, "0.1", repeated.Rules[0][0].Min[""])
	testutil.AssertDecimal(t, "0.2", repeated.Rules[0][0].Min["a.B"])
	testutil.AssertDecimal(t, "0.9", repeated.Rules[0][0].Max[""])

	_, err = ParseExecResult([]byte(`{"rules":`))
	var domainErr domain.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeEngineError {
		t.Errorf("expected engine error, got %v", err)
	}
}

func TestExecEngine_EndToEnd(t *testing.T) {
	skipWithoutShell(t)

	engine, dir := shellEngine(t, `
cp "$1" captured-request.json
cat > "$2" <<'JSON'
{"rules":[
  {"id":1,"bounds":[{"id":0,"max":{"":"0.886792"}}]},
  {"id":0,"bounds":[{"id":0,"min":{"":80}}]}
]}
JSON
`, 10*time.Second)

	rules := validate(t,
		domain.RuleSpec{Metric: "BRANCH", Aggregation: "COVERED_COUNT", MinValue: testutil.StringPtr("5000")},
		domain.RuleSpec{Metric: "LINE", Aggregation: "COVERED_PERCENTAGE", MaxValue: testutil.StringPtr("10")},
	)

	result, err := NewVerificationService(engine, nil).Verify(context.Background(), rules, domain.Filters{},
		domain.CoverageArtifacts{DataFile: "coverage.ic"}, domain.DefaultEngineFlags())
	testutil.AssertNoError(t, err)

	expected := "Rule violated: branches covered count is 80, but expected minimum is 5000\n" +
		"Rule violated: lines covered percentage is 88.6792, but expected maximum is 10"
	testutil.AssertEqual(t, expected, result.Report)

	data, err := os.ReadFile(filepath.Join(dir, "captured-request.json"))
	testutil.AssertNoError(t, err)
	var captured ExecRequest
	testutil.AssertNoError(t, json.Unmarshal(data, &captured))
	testutil.AssertEqual(t, result.RunID, captured.RunID)
	testutil.AssertEqual(t, 2, len(captured.Rules))
}

func TestExecEngine_Failures(t *testing.T) {
	skipWithoutShell(t)

	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		message string
	}{
		{"non-zero exit", "echo 'cannot read coverage.ic' >&2\nexit 3\n", 10 * time.Second, "coverage engine failed: cannot read coverage.ic"},
		{"no result file", "exit 0\n", 10 * time.Second, "coverage engine produced no verification result"},
		{"malformed result", "echo '{' > \"$2\"\n", 10 * time.Second, "failed to parse verification result"},
		{"timeout", "exec sleep 5\n", 100 * time.Millisecond, "coverage engine timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := shellEngine(t, tt.script, tt.timeout)
			_, err := engine.Verify(context.Background(), domain.EngineRequest{RunID: "run"})

			var domainErr domain.DomainError
			if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeEngineError {
				t.Fatalf("expected engine error, got %v", err)
			}
			testutil.AssertTrue(t, strings.Contains(err.Error(), tt.message), "unexpected error: "+err.Error())
		})
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/covgate/internal/constants"
	"github.com/ludo-technologies/covgate/service"
	"github.com/spf13/cobra"
)

const cmdSnapshot = `
classes:
  - name: com.example.Service
    line: {covered: 40, missed: 2}
    branch: {covered: 64, missed: 16}
  - name: com.example.Repository
    line: {covered: 7, missed: 4}
`

func writeProject(t *testing.T, rules string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "coverage.yaml"), []byte(cmdSnapshot), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}
	content := "rules:\n" + rules + "engine:\n  data_file: coverage.yaml\nlogging:\n  level: error\n"
	configPath := filepath.Join(dir, "covgate.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return configPath
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return constants.ExitPassed
	}
	var exitErr *VerifyExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected VerifyExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

func TestVerifyCmd_FlagsExist(t *testing.T) {
	cmd := verifyCmd()

	expectedFlags := []string{"config", "format", "json", "output", "data-file", "log-level", "skip", "verbose"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}

	shortFlags := map[string]string{"c": "config", "f": "format", "o": "output", "v": "verbose"}
	for short, long := range shortFlags {
		if cmd.Flags().ShorthandLookup(short) == nil {
			t.Errorf("Missing short flag -%s for --%s", short, long)
		}
	}
}

func TestVerifyCmd_Passes(t *testing.T) {
	configPath := writeProject(t, "  - metric: BRANCH\n    min_value: 42\n")

	out, err := execute(verifyCmd(), "-c", configPath, "--verbose")
	if code := exitCode(t, err); code != constants.ExitPassed {
		t.Fatalf("expected exit 0, got %d (%v)", code, err)
	}
	if !strings.Contains(out, service.PassMessage) {
		t.Errorf("verbose output should report success, got:\n%s", out)
	}
}

func TestVerifyCmd_Violations(t *testing.T) {
	configPath := writeProject(t, "  - metric: LINE\n    target: CLASS\n    min_value: 70\n")

	out, err := execute(verifyCmd(), "-c", configPath, "--json")
	if code := exitCode(t, err); code != constants.ExitViolations {
		t.Fatalf("expected exit 1, got %d (%v)", code, err)
	}

	var doc service.VerifyResultDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Failed to parse output as JSON: %v\n%s", err, out)
	}
	if len(doc.Violations) != 1 || doc.Violations[0].Entity != "com.example.Repository" {
		t.Errorf("expected a single violation for com.example.Repository, got %+v", doc.Violations)
	}
	if doc.Violations[0].Actual != "63.6364" {
		t.Errorf("expected actual 63.6364, got %s", doc.Violations[0].Actual)
	}

	expectedReport := "Rule violated: lines covered percentage is 63.6364, but expected minimum is 70"
	if err.Error() != expectedReport {
		t.Errorf("exit error should carry the report, got %q", err.Error())
	}
}

func TestVerifyCmd_ViolationsLogged(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "coverage.yaml"), []byte(cmdSnapshot), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}
	logFile := filepath.Join(dir, "logs", "covgate.log")
	content := "rules:\n  - metric: LINE\n    min_value: 99\n" +
		"engine:\n  data_file: coverage.yaml\n" +
		"logging:\n  level: warn\n  format: json\n  output_file: " + logFile + "\n"
	configPath := filepath.Join(dir, "covgate.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := execute(verifyCmd(), "-c", configPath, "--json")
	if code := exitCode(t, err); code != constants.ExitViolations {
		t.Fatalf("expected exit 1, got %d (%v)", code, err)
	}
	if !strings.HasPrefix(err.Error(), "Rule violated: lines covered percentage is ") {
		t.Errorf("exit error should carry the report, got %q", err.Error())
	}

	data, readErr := os.ReadFile(logFile)
	if readErr != nil {
		t.Fatalf("log file was not written: %v", readErr)
	}
	logged := string(data)
	for _, expected := range []string{`"level":"warn"`, service.FailMessage, `"report":"Rule violated: lines covered percentage is `} {
		if !strings.Contains(logged, expected) {
			t.Errorf("log should contain %q, got:\n%s", expected, logged)
		}
	}
}

func TestVerifyCmd_InvalidRules(t *testing.T) {
	configPath := writeProject(t, "  - metric: LINES\n    min_value: 50\n")

	_, err := execute(verifyCmd(), "-c", configPath)
	if code := exitCode(t, err); code != constants.ExitError {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(err.Error(), "type of metric") {
		t.Errorf("error should describe the invalid metric, got %v", err)
	}
}

func TestVerifyCmd_SkipAndMissingData(t *testing.T) {
	configPath := writeProject(t, "  - metric: LINE\n    min_value: 100\n")

	_, err := execute(verifyCmd(), "-c", configPath, "--skip")
	if code := exitCode(t, err); code != constants.ExitPassed {
		t.Errorf("--skip should exit 0, got %d", code)
	}

	out, err := execute(verifyCmd(), "-c", configPath, "--data-file", filepath.Join(t.TempDir(), "none.yaml"), "-f", "yaml")
	if code := exitCode(t, err); code != constants.ExitPassed {
		t.Errorf("a missing data file should exit 0, got %d", code)
	}
	if !strings.Contains(out, "no coverage data file found") {
		t.Errorf("output should name the skip reason, got:\n%s", out)
	}
}

func TestVerifyCmd_OutputFile(t *testing.T) {
	configPath := writeProject(t, "  - metric: BRANCH\n    min_value: 42\n")
	outputPath := filepath.Join(t.TempDir(), "reports", "coverage.json")

	_, err := execute(verifyCmd(), "-c", configPath, "--json", "-o", outputPath)
	if code := exitCode(t, err); code != constants.ExitPassed {
		t.Fatalf("expected exit 0, got %d", code)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("output file was not written: %v", err)
	}
	if !strings.Contains(string(data), `"passed": true`) {
		t.Errorf("unexpected output file content:\n%s", data)
	}
}

func TestPrepareCmd(t *testing.T) {
	configPath := writeProject(t, "  - metric: LINE\n    min_value: 10\n")
	argsFile := filepath.Join(t.TempDir(), "agent.args")

	out, err := execute(prepareCmd(), "-c", configPath, "--agent", "/agent.jar", "--args-file", argsFile)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if !strings.HasPrefix(out, "-javaagent:/agent.jar="+argsFile) {
		t.Errorf("unexpected argument line: %s", out)
	}
	if _, err := os.Stat(argsFile); err != nil {
		t.Errorf("arguments file was not written: %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(versionCmd())
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, constants.ToolName+" version ") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"verify", "prepare", "init", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %s", name)
		}
	}
}

package service

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/constants"
	"github.com/ludo-technologies/covgate/internal/version"
	"gopkg.in/yaml.v3"
)

// OutputFormatterImpl implements domain.VerifyResultFormatter
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// VerifyResultDocument is the machine-readable form of a verification result.
// Values are rendered as decimal strings so no precision is lost.
type VerifyResultDocument struct {
	Version     string              `json:"version" yaml:"version"`
	GeneratedAt string              `json:"generated_at" yaml:"generated_at"`
	DurationMs  int64               `json:"duration_ms" yaml:"duration_ms"`
	RunID       string              `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Passed      bool                `json:"passed" yaml:"passed"`
	Skipped     bool                `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	SkipReason  string              `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Summary     domain.CheckSummary `json:"summary" yaml:"summary"`
	Violations  []ViolationDocument `json:"violations" yaml:"violations"`
	Report      string              `json:"report,omitempty" yaml:"report,omitempty"`
}

// ViolationDocument is one violation in a VerifyResultDocument
type ViolationDocument struct {
	Rule        int    `json:"rule" yaml:"rule"`
	Metric      string `json:"metric" yaml:"metric"`
	Aggregation string `json:"aggregation" yaml:"aggregation"`
	Target      string `json:"target" yaml:"target"`
	Entity      string `json:"entity,omitempty" yaml:"entity,omitempty"`
	Bound       string `json:"bound" yaml:"bound"`
	Expected    string `json:"expected" yaml:"expected"`
	Actual      string `json:"actual" yaml:"actual"`
	Message     string `json:"message" yaml:"message"`
}

// Write writes the verification result in the specified format
func (f *OutputFormatterImpl) Write(result *domain.VerifyResult, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText, "":
		return f.writeText(result, writer)
	case domain.OutputFormatJSON:
		return WriteJSON(writer, NewVerifyResultDocument(result))
	case domain.OutputFormatYAML:
		return WriteYAML(writer, NewVerifyResultDocument(result))
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// NewVerifyResultDocument converts a result into its document form
func NewVerifyResultDocument(result *domain.VerifyResult) VerifyResultDocument {
	doc := VerifyResultDocument{
		Version:     version.GetVersion(),
		GeneratedAt: time.Now().Format(time.RFC3339),
		DurationMs:  result.Duration.Milliseconds(),
		RunID:       result.RunID,
		Passed:      result.Passed,
		Skipped:     result.Skipped,
		SkipReason:  result.SkipReason,
		Summary:     result.Summary,
		Violations:  []ViolationDocument{},
		Report:      result.Report,
	}

	for _, group := range result.Violations {
		for _, v := range group.Violations {
			bound := "min"
			if v.IsMax {
				bound = "max"
			}
			doc.Violations = append(doc.Violations, ViolationDocument{
				Rule:        int(group.RuleID) + 1,
				Metric:      string(v.Metric),
				Aggregation: string(v.Aggregation),
				Target:      string(v.Target),
				Entity:      v.EntityName,
				Bound:       bound,
				Expected:    v.Expected.String(),
				Actual:      v.Actual.String(),
				Message:     FormatViolation(v),
			})
		}
	}
	return doc
}

func (f *OutputFormatterImpl) writeText(result *domain.VerifyResult, writer io.Writer) error {
	if result.Skipped {
		_, err := fmt.Fprintf(writer, "Coverage verification skipped: %s\n", result.SkipReason)
		return err
	}

	fmt.Fprintf(writer, "\n=== %s Coverage Verification ===\n\n", constants.ToolName)
	if result.RunID != "" {
		fmt.Fprintf(writer, "Run: %s\n", result.RunID)
	}
	fmt.Fprintf(writer, "Duration: %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(writer, "Version: %s\n\n", version.GetVersion())

	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Rules checked: %d\n", result.Summary.RulesChecked)
	fmt.Fprintf(writer, "  Rules violated: %d\n", result.Summary.RulesViolated)
	fmt.Fprintf(writer, "  Violations: %d\n", result.Summary.TotalViolations)
	fmt.Fprintf(writer, "\n")

	if result.Report != "" {
		fmt.Fprintf(writer, "%s\n\n", result.Report)
	}

	status := PassMessage
	if !result.Passed {
		status = FailMessage
	}
	_, err := fmt.Fprintf(writer, "%s\n", status)
	return err
}

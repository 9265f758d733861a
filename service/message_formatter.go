package service

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/covgate/domain"
)

// Log messages for the outcome of a verification
const (
	PassMessage = "All coverage checks have been met"
	FailMessage = "Coverage checks have not been met, see log for details"
)

const violatedPrefix = "Rule violated:"

// FormatViolations renders the report text. Each rule with a single
// violation takes one line; a rule with several gets a header line followed
// by one indented line per violation. The result has no trailing newline
// and is empty when there are no violations.
func FormatViolations(groups []domain.RuleViolations) string {
	var lines []string
	for _, group := range groups {
		switch len(group.Violations) {
		case 0:
			continue
		case 1:
			lines = append(lines, violatedPrefix+" "+FormatViolation(group.Violations[0]))
		default:
			lines = append(lines, violatedPrefix)
			for _, v := range group.Violations {
				lines = append(lines, "  "+FormatViolation(v))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// FormatViolation renders a single detail line. The entity name is not part
// of the line; structured output carries it.
func FormatViolation(v domain.Violation) string {
	direction := "minimum"
	if v.IsMax {
		direction = "maximum"
	}

	return fmt.Sprintf("%s %s is %s, but expected %s is %s",
		v.Metric.Noun(), v.Aggregation.Noun(), v.Actual.String(), direction, v.Expected.String())
}

// Passed reports whether a verification without these violations passes
func Passed(groups []domain.RuleViolations) bool {
	for _, group := range groups {
		if len(group.Violations) > 0 {
			return false
		}
	}
	return true
}

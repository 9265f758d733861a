// Package glob translates wildcard class and annotation patterns into
// regular expressions understood by the coverage engine.
package glob

import (
	"fmt"
	"regexp"
	"strings"
)

// metacharacters are escaped with a backslash; '*' and '?' are wildcards
const metacharacters = `<([{\^-=$!|]})+.>`

// ToRegex translates a wildcard pattern into a regular expression.
//
//	*  matches any sequence of characters (including dots)
//	?  matches exactly one character
//
// The result is not anchored; callers match it against the whole name.
func ToRegex(pattern string) string {
	// most patterns contain dots or stars, each of which doubles in size
	var sb strings.Builder
	sb.Grow(len(pattern) * 2)

	for _, r := range pattern {
		switch {
		case strings.ContainsRune(metacharacters, r):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '*':
			sb.WriteString(".*")
		case r == '?':
			sb.WriteByte('.')
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// ToRegexes translates every pattern with ToRegex
func ToRegexes(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, ToRegex(p))
	}
	return out
}

// CompileRegex compiles a translated expression as a full-match pattern
func CompileRegex(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return re, nil
}

// Compile translates and compiles wildcard patterns as full-match expressions
func Compile(patterns []string) ([]*regexp.Regexp, error) {
	return CompileRegexes(ToRegexes(patterns))
}

// CompileRegexes compiles already translated expressions as full-match patterns
func CompileRegexes(exprs []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := CompileRegex(expr)
		if err != nil {
			return nil, err
		}
		res = append(res, re)
	}
	return res, nil
}

// Matcher matches names against a set of full-match expressions
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles expressions already produced by ToRegex
func NewMatcher(exprs []string) (*Matcher, error) {
	res, err := CompileRegexes(exprs)
	if err != nil {
		return nil, err
	}
	return &Matcher{patterns: res}, nil
}

// Empty reports whether the matcher has no patterns
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Matches reports whether name fully matches any pattern
func (m *Matcher) Matches(name string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any of the names matches
func (m *Matcher) MatchesAny(names []string) bool {
	for _, name := range names {
		if m.Matches(name) {
			return true
		}
	}
	return false
}

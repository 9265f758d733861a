package coverage

import (
	"fmt"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/glob"
)

// Filter decides which classes take part in aggregation
type Filter struct {
	include            *glob.Matcher
	exclude            *glob.Matcher
	excludeAnnotations *glob.Matcher
}

// NewFilter builds a filter from compiled (regex) filters
func NewFilter(filters domain.CompiledFilters) (*Filter, error) {
	include, err := glob.NewMatcher(filters.IncludeClasses)
	if err != nil {
		return nil, fmt.Errorf("include classes: %w", err)
	}
	exclude, err := glob.NewMatcher(filters.ExcludeClasses)
	if err != nil {
		return nil, fmt.Errorf("exclude classes: %w", err)
	}
	annotations, err := glob.NewMatcher(filters.ExcludeAnnotations)
	if err != nil {
		return nil, fmt.Errorf("exclude annotations: %w", err)
	}

	return &Filter{
		include:            include,
		exclude:            exclude,
		excludeAnnotations: annotations,
	}, nil
}

// Accepts reports whether a class is measured. A nil filter accepts everything.
func (f *Filter) Accepts(class ClassCoverage) bool {
	if f == nil {
		return true
	}
	if !f.include.Empty() && !f.include.Matches(class.Name) {
		return false
	}
	if f.exclude.Matches(class.Name) {
		return false
	}
	return !f.excludeAnnotations.MatchesAny(class.Annotations)
}

// Package coverage models aggregated coverage counters and evaluates them
// per project, package or class.
package coverage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Counter holds covered and missed units of one metric
type Counter struct {
	Covered int64 `json:"covered" yaml:"covered"`
	Missed  int64 `json:"missed" yaml:"missed"`
}

// Total returns covered + missed
func (c Counter) Total() int64 {
	return c.Covered + c.Missed
}

// Add returns the sum of both counters
func (c Counter) Add(other Counter) Counter {
	return Counter{Covered: c.Covered + other.Covered, Missed: c.Missed + other.Missed}
}

// ClassCoverage holds the counters of a single class
type ClassCoverage struct {
	Name        string   `json:"name" yaml:"name"`
	Annotations []string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Line        Counter  `json:"line" yaml:"line"`
	Instruction Counter  `json:"instruction" yaml:"instruction"`
	Branch      Counter  `json:"branch" yaml:"branch"`
}

// Package returns the package part of a fully qualified class name
func (c ClassCoverage) Package() string {
	if i := strings.LastIndex(c.Name, "."); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// Counters returns the counters of every metric
func (c ClassCoverage) Counters() Counters {
	return Counters{
		domain.MetricLine:        c.Line,
		domain.MetricInstruction: c.Instruction,
		domain.MetricBranch:      c.Branch,
	}
}

// Counters maps a metric to its counter
type Counters map[domain.Metric]Counter

func (c Counters) add(other Counters) {
	for metric, counter := range other {
		c[metric] = c[metric].Add(counter)
	}
}

// Snapshot is the aggregated coverage of a project
type Snapshot struct {
	Classes []ClassCoverage `json:"classes" yaml:"classes"`
}

// Entity is an aggregation scope with its summed counters
type Entity struct {
	// Name is empty for the whole project
	Name     string
	Counters Counters
}

// Load reads a snapshot from a YAML or JSON file
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a snapshot; ext selects JSON (".json") or YAML (anything else)
func Parse(data []byte, ext string) (*Snapshot, error) {
	var snapshot Snapshot
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to parse coverage snapshot: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to parse coverage snapshot: %w", err)
		}
	}

	for i, class := range snapshot.Classes {
		if class.Name == "" {
			return nil, fmt.Errorf("class #%d has no name", i+1)
		}
		for metric, counter := range class.Counters() {
			if counter.Covered < 0 || counter.Missed < 0 {
				return nil, fmt.Errorf("class %s has negative %s counters", class.Name, strings.ToLower(string(metric)))
			}
		}
	}

	return &snapshot, nil
}

// Aggregate sums the counters of every accepted class per target scope.
// Entities are returned sorted by name.
func (s *Snapshot) Aggregate(target domain.Target, filter *Filter) []Entity {
	groups := make(map[string]Counters)

	for _, class := range s.Classes {
		if !filter.Accepts(class) {
			continue
		}

		var name string
		switch target {
		case domain.TargetAll:
			name = ""
		case domain.TargetClass:
			name = class.Name
		case domain.TargetPackage:
			name = class.Package()
		}

		group, ok := groups[name]
		if !ok {
			group = make(Counters)
			groups[name] = group
		}
		group.add(class.Counters())
	}

	// the project scope exists even when every class is filtered out
	if target == domain.TargetAll && len(groups) == 0 {
		groups[""] = make(Counters)
	}

	entities := make([]Entity, 0, len(groups))
	for name, counters := range groups {
		entities = append(entities, Entity{Name: name, Counters: counters})
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Name < entities[j].Name
	})
	return entities
}

// Value computes the aggregated value of a counter in the engine domain.
// Rates are rounded half-up to scale digits. ok is false when a rate is
// requested for a counter with no units.
func Value(counter Counter, aggregation domain.AggregationMode, scale int32) (value decimal.Decimal, ok bool) {
	switch aggregation {
	case domain.AggregationCoveredCount:
		return decimal.NewFromInt(counter.Covered), true
	case domain.AggregationMissedCount:
		return decimal.NewFromInt(counter.Missed), true
	case domain.AggregationCoveredPercentage:
		return rate(counter.Covered, counter.Total(), scale)
	case domain.AggregationMissedPercentage:
		return rate(counter.Missed, counter.Total(), scale)
	}
	return decimal.Zero, false
}

func rate(part, total int64, scale int32) (decimal.Decimal, bool) {
	if total == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(part).DivRound(decimal.NewFromInt(total), scale), true
}

package config

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strictness represents how demanding the generated rules are
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// StrictnessPreset holds minimum covered percentages per metric.
// An empty value means no rule for that metric.
type StrictnessPreset struct {
	Line        string
	Branch      string
	Instruction string
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			Line:   "50",
			Branch: "30",
		},
		StrictnessStandard: {
			Line:   "80",
			Branch: "60",
		},
		StrictnessStrict: {
			Line:        "90",
			Branch:      "80",
			Instruction: "85",
		},
	}
}

// PresetRules builds the rules of a strictness level
func PresetRules(strictness Strictness) []RuleConfig {
	preset, ok := GetStrictnessPresets()[strictness]
	if !ok {
		preset = GetStrictnessPresets()[StrictnessStandard]
	}

	var rules []RuleConfig
	add := func(metric, value string) {
		if value == "" {
			return
		}
		v := value
		rules = append(rules, RuleConfig{
			Metric:      metric,
			Aggregation: "COVERED_PERCENTAGE",
			MinValue:    &v,
		})
	}
	add("LINE", preset.Line)
	add("BRANCH", preset.Branch)
	add("INSTRUCTION", preset.Instruction)
	return rules
}

// GetFullConfigTemplate returns a documented YAML configuration
func GetFullConfigTemplate(engineKind string, strictness Strictness) (string, error) {
	cfg := DefaultConfig()
	cfg.Rules = PresetRules(strictness)
	cfg.Engine.Kind = engineKind
	if engineKind == EngineExec {
		cfg.Engine.Command = "coverage-engine"
		cfg.Engine.Args = []string{"verify"}
		cfg.Engine.DataFile = "build/covgate/coverage.ic"
		cfg.Engine.ReportFile = "build/covgate/coverage.report"
	}

	sections := []struct {
		title   string
		comment string
		key     string
		value   any
	}{
		{"RULES", "Evaluated in declaration order. metric: LINE, INSTRUCTION, BRANCH\n" +
			"aggregation: COVERED_COUNT, MISSED_COUNT, COVERED_PERCENTAGE (default), MISSED_PERCENTAGE\n" +
			"target: ALL (default), CLASS, PACKAGE\n" +
			"min_value / max_value: 0-100 for percentages, whole numbers for counts", "rules", cfg.Rules},
		{"FILTERS", "Wildcards: * matches any sequence, ? matches one character", "filters", cfg.Filters},
		{"ENGINE", "kind: snapshot (in-process) or exec (external tool)", "engine", cfg.Engine},
		{"OUTPUT", "format: text, json, yaml", "output", cfg.Output},
		{"LOGGING", "level: debug, info, warn, error; format: console, json", "logging", cfg.Logging},
		{"PERFORMANCE", "", "performance", cfg.Performance},
	}

	var sb strings.Builder
	sb.WriteString("# covgate configuration\n")
	sb.WriteString("# Set skip: true to disable verification\n")
	sb.WriteString("skip: false\n")

	for _, s := range sections {
		body, err := marshalSection(s.key, s.value)
		if err != nil {
			return "", fmt.Errorf("failed to render %s section: %w", strings.ToLower(s.title), err)
		}
		sb.WriteString("\n# " + strings.Repeat("=", 76) + "\n")
		sb.WriteString("# " + s.title + "\n")
		sb.WriteString("# " + strings.Repeat("=", 76) + "\n")
		if s.comment != "" {
			for _, line := range strings.Split(s.comment, "\n") {
				sb.WriteString("# " + line + "\n")
			}
		}
		sb.WriteString(body)
	}

	return sb.String(), nil
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return `# covgate configuration (minimal)
rules:
  - metric: LINE
    min_value: "80"
  - metric: BRANCH
    aggregation: COVERED_PERCENTAGE
    min_value: "60"

engine:
  kind: snapshot
  data_file: build/covgate/coverage.yaml
`
}

func marshalSection(key string, value any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{key: value}); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

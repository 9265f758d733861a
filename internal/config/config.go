package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/covgate/internal/constants"
	"github.com/spf13/viper"
)

// Engine kinds
const (
	// EngineSnapshot evaluates bounds in-process against a coverage snapshot file
	EngineSnapshot = "snapshot"

	// EngineExec hands a request file to an external coverage tool
	EngineExec = "exec"
)

// Defaults
const (
	DefaultDataFile       = "build/covgate/coverage.yaml"
	DefaultArgsFile       = "build/covgate/agent.args"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultOutputFormat   = "text"
	DefaultMaxGoroutines  = 4
	DefaultTimeoutSeconds = 300
)

// EnvConfigPath names the environment variable pointing at a config file
const EnvConfigPath = constants.EnvVarPrefix + "_CONFIG"

// Config represents the main configuration structure
type Config struct {
	// Skip disables verification entirely
	Skip bool `json:"skip" mapstructure:"skip" yaml:"skip"`

	// Rules are the coverage rules, evaluated in declaration order
	Rules []RuleConfig `json:"rules" mapstructure:"rules" yaml:"rules"`

	// Filters scope which classes are measured
	Filters FiltersConfig `json:"filters" mapstructure:"filters" yaml:"filters"`

	// Engine selects and configures the coverage engine
	Engine EngineConfig `json:"engine" mapstructure:"engine" yaml:"engine"`

	Output      OutputConfig      `json:"output" mapstructure:"output" yaml:"output"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging" yaml:"logging"`
	Performance PerformanceConfig `json:"performance" mapstructure:"performance" yaml:"performance"`
}

// RuleConfig is a single declared rule. Thresholds are kept as text so that
// decimal values reach the validator unchanged.
type RuleConfig struct {
	Metric      string  `json:"metric" mapstructure:"metric" yaml:"metric"`
	Aggregation string  `json:"aggregation,omitempty" mapstructure:"aggregation" yaml:"aggregation,omitempty"`
	Target      string  `json:"target,omitempty" mapstructure:"target" yaml:"target,omitempty"`
	MinValue    *string `json:"min_value,omitempty" mapstructure:"min_value" yaml:"min_value,omitempty"`
	MaxValue    *string `json:"max_value,omitempty" mapstructure:"max_value" yaml:"max_value,omitempty"`
}

// FiltersConfig holds wildcard patterns (`*` and `?`)
type FiltersConfig struct {
	IncludeClasses     []string `json:"include_classes" mapstructure:"include_classes" yaml:"include_classes"`
	ExcludeClasses     []string `json:"exclude_classes" mapstructure:"exclude_classes" yaml:"exclude_classes"`
	ExcludeAnnotations []string `json:"exclude_annotations" mapstructure:"exclude_annotations" yaml:"exclude_annotations"`
}

// EngineConfig configures the coverage engine
type EngineConfig struct {
	// Kind is one of: snapshot, exec
	Kind string `json:"kind" mapstructure:"kind" yaml:"kind"`

	// Command and Args start the external tool for the exec engine.
	// The request and result file paths are appended to Args.
	Command string   `json:"command,omitempty" mapstructure:"command" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" mapstructure:"args" yaml:"args,omitempty"`
	WorkDir string   `json:"work_dir,omitempty" mapstructure:"work_dir" yaml:"work_dir,omitempty"`

	// Coverage artifacts
	DataFile      string `json:"data_file" mapstructure:"data_file" yaml:"data_file"`
	ReportFile    string `json:"report_file,omitempty" mapstructure:"report_file" yaml:"report_file,omitempty"`
	SourceMapFile string `json:"source_map_file,omitempty" mapstructure:"source_map_file" yaml:"source_map_file,omitempty"`

	// Agent settings used by the prepare command
	AgentPath string `json:"agent_path,omitempty" mapstructure:"agent_path" yaml:"agent_path,omitempty"`
	ArgsFile  string `json:"args_file" mapstructure:"args_file" yaml:"args_file"`

	Flags EngineFlagsConfig `json:"flags" mapstructure:"flags" yaml:"flags"`
}

// EngineFlagsConfig holds the switches passed to the coverage engine
type EngineFlagsConfig struct {
	Tracing                     bool   `json:"tracing" mapstructure:"tracing" yaml:"tracing"`
	LogLevel                    string `json:"log_level" mapstructure:"log_level" yaml:"log_level"`
	CountHits                   bool   `json:"count_hits" mapstructure:"count_hits" yaml:"count_hits"`
	AppendToDataFile            bool   `json:"append_to_data_file" mapstructure:"append_to_data_file" yaml:"append_to_data_file"`
	TrackPerTest                bool   `json:"track_per_test" mapstructure:"track_per_test" yaml:"track_per_test"`
	CalculateForUnloadedClasses bool   `json:"calculate_for_unloaded_classes" mapstructure:"calculate_for_unloaded_classes" yaml:"calculate_for_unloaded_classes"`
	LineOnly                    bool   `json:"line_only" mapstructure:"line_only" yaml:"line_only"`
	IgnoreStaticConstructors    bool   `json:"ignore_static_constructors" mapstructure:"ignore_static_constructors" yaml:"ignore_static_constructors"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// Verbose prints the full result even when verification passes
	Verbose bool `json:"verbose" mapstructure:"verbose" yaml:"verbose"`

	// ShowProgress enables progress bars on interactive terminals
	ShowProgress bool `json:"show_progress" mapstructure:"show_progress" yaml:"show_progress"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `json:"level" mapstructure:"level" yaml:"level"`

	// Format is one of: console, json
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// OutputFile additionally writes logs to a file when set
	OutputFile string `json:"output_file,omitempty" mapstructure:"output_file" yaml:"output_file,omitempty"`
}

// PerformanceConfig bounds engine work
type PerformanceConfig struct {
	// MaxGoroutines limits concurrent bound evaluations
	MaxGoroutines int `json:"max_goroutines" mapstructure:"max_goroutines" yaml:"max_goroutines"`

	// TimeoutSeconds limits a single engine run
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// DefaultEngineFlagsConfig mirrors the flags the agent runs with by default
func DefaultEngineFlagsConfig() EngineFlagsConfig {
	return EngineFlagsConfig{
		Tracing:                  true,
		LogLevel:                 "error",
		AppendToDataFile:         true,
		IgnoreStaticConstructors: true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Rules: []RuleConfig{},
		Filters: FiltersConfig{
			IncludeClasses:     []string{},
			ExcludeClasses:     []string{},
			ExcludeAnnotations: []string{},
		},
		Engine: EngineConfig{
			Kind:     EngineSnapshot,
			DataFile: DefaultDataFile,
			ArgsFile: DefaultArgsFile,
			Flags:    DefaultEngineFlagsConfig(),
		},
		Output: OutputConfig{
			Format:       DefaultOutputFormat,
			ShowProgress: true,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Performance: PerformanceConfig{
			MaxGoroutines:  DefaultMaxGoroutines,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration, discovering a file from
// targetPath upward when configPath is empty
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = FindDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// loadConfigFromFile reads and parses a configuration file
func loadConfigFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// Create a new viper instance to avoid race conditions
	v := viper.New()
	config := DefaultConfig()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// relative artifact paths are resolved against the config file
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Engine.DataFile = resolve(c.Engine.DataFile)
	c.Engine.ReportFile = resolve(c.Engine.ReportFile)
	c.Engine.SourceMapFile = resolve(c.Engine.SourceMapFile)
	c.Engine.ArgsFile = resolve(c.Engine.ArgsFile)
	c.Logging.OutputFile = resolve(c.Logging.OutputFile)
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindDefaultConfig looks for a configuration file from targetPath upward,
// then in the XDG and home directories, then in $COVGATE_CONFIG
func FindDefaultConfig(targetPath string) string {
	candidates := constants.ConfigFileNames

	if targetPath == "" {
		targetPath = "."
	}

	if absPath, err := filepath.Abs(targetPath); err == nil {
		if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
			absPath = filepath.Dir(absPath)
		}

		volume := filepath.VolumeName(absPath)
		for dir := absPath; ; dir = filepath.Dir(dir) {
			if config := searchConfigInDirectory(dir, candidates); config != "" {
				return config
			}

			parent := filepath.Dir(dir)
			if parent == dir || dir == volume ||
				(volume != "" && dir == volume+string(filepath.Separator)) {
				break
			}
		}
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), candidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		if config := searchConfigInDirectory(filepath.Join(home, ".config", constants.ToolName), candidates); config != "" {
			return config
		}
		if config := searchConfigInDirectory(home, candidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(EnvConfigPath); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values. Rules are validated
// separately, when verification runs.
func (c *Config) Validate() error {
	switch c.Engine.Kind {
	case EngineSnapshot:
	case EngineExec:
		if strings.TrimSpace(c.Engine.Command) == "" {
			return fmt.Errorf("engine.command is required for the %s engine", EngineExec)
		}
	default:
		return fmt.Errorf("invalid engine.kind '%s', must be one of: %s, %s", c.Engine.Kind, EngineSnapshot, EngineExec)
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"yaml": true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format '%s', must be one of: console, json", c.Logging.Format)
	}

	if c.Performance.MaxGoroutines < 0 {
		return fmt.Errorf("performance.max_goroutines must be >= 0, got %d", c.Performance.MaxGoroutines)
	}
	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	return nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("skip", config.Skip)
	v.Set("rules", config.Rules)
	v.Set("filters", config.Filters)
	v.Set("engine", config.Engine)
	v.Set("output", config.Output)
	v.Set("logging", config.Logging)
	v.Set("performance", config.Performance)

	return v.WriteConfig()
}

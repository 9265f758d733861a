package service

import (
	"fmt"
	"time"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/config"
	"go.uber.org/zap"
)

// ConfigurationLoaderImpl turns configuration files into verification requests
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from path, or discovers one from targetPath
// upward when path is empty. Defaults are returned when nothing is found.
func (c *ConfigurationLoaderImpl) LoadConfig(path, targetPath string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithTarget(path, targetPath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return cfg, nil
}

// BuildVerifyRequest converts a configuration into a verification request.
// Rules are passed through as declared; they are validated when verification runs.
func (c *ConfigurationLoaderImpl) BuildVerifyRequest(cfg *config.Config) *domain.VerifyRequest {
	rules := make([]domain.RuleSpec, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, domain.RuleSpec{
			Metric:      r.Metric,
			Aggregation: r.Aggregation,
			Target:      r.Target,
			MinValue:    r.MinValue,
			MaxValue:    r.MaxValue,
		})
	}

	return &domain.VerifyRequest{
		Rules: rules,
		Filters: domain.Filters{
			IncludeClasses:     cfg.Filters.IncludeClasses,
			ExcludeClasses:     cfg.Filters.ExcludeClasses,
			ExcludeAnnotations: cfg.Filters.ExcludeAnnotations,
		},
		Artifacts: domain.CoverageArtifacts{
			DataFile:      cfg.Engine.DataFile,
			ReportFile:    cfg.Engine.ReportFile,
			SourceMapFile: cfg.Engine.SourceMapFile,
		},
		Flags:        EngineFlags(cfg.Engine.Flags),
		Skip:         cfg.Skip,
		OutputFormat: domain.OutputFormat(cfg.Output.Format),
		Verbose:      cfg.Output.Verbose,
	}
}

// MergeConfig applies command line overrides on top of a request built from
// configuration. Skip and Verbose can only be switched on from the command line.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.VerifyRequest, override *domain.VerifyRequest) *domain.VerifyRequest {
	merged := *base

	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.Artifacts.DataFile != "" {
		merged.Artifacts.DataFile = override.Artifacts.DataFile
	}
	if override.Skip {
		merged.Skip = true
	}
	if override.Verbose {
		merged.Verbose = true
	}

	return &merged
}

// EngineFlags converts configured engine switches into their domain form
func EngineFlags(flags config.EngineFlagsConfig) domain.EngineFlags {
	return domain.EngineFlags{
		Tracing:                     flags.Tracing,
		LogLevel:                    flags.LogLevel,
		CountHits:                   flags.CountHits,
		AppendToDataFile:            flags.AppendToDataFile,
		TrackPerTest:                flags.TrackPerTest,
		CalculateForUnloadedClasses: flags.CalculateForUnloadedClasses,
		LineOnly:                    flags.LineOnly,
		IgnoreStaticConstructors:    flags.IgnoreStaticConstructors,
	}
}

// NewCoverageEngine builds the engine selected by engine.kind
func NewCoverageEngine(cfg *config.Config, pm domain.ProgressManager, logger *zap.Logger) (domain.CoverageEngine, error) {
	switch cfg.Engine.Kind {
	case config.EngineSnapshot, "":
		return NewSnapshotEngine(NewParallelExecutor(cfg.Performance, pm), logger), nil
	case config.EngineExec:
		timeout := time.Duration(cfg.Performance.TimeoutSeconds) * time.Second
		return NewExecEngine(cfg.Engine.Command, cfg.Engine.Args, cfg.Engine.WorkDir, timeout, logger), nil
	default:
		return nil, domain.NewConfigError(fmt.Sprintf("unknown engine kind '%s'", cfg.Engine.Kind), nil)
	}
}

package main

import (
	"fmt"
	"io"

	"github.com/ludo-technologies/covgate/app"
	"github.com/ludo-technologies/covgate/domain"
	"github.com/ludo-technologies/covgate/internal/constants"
	"github.com/ludo-technologies/covgate/internal/logging"
	"github.com/ludo-technologies/covgate/service"
	"github.com/spf13/cobra"
)

// VerifyExitError carries the process exit code of the verify command
type VerifyExitError struct {
	Code    int
	Message string
}

func (e *VerifyExitError) Error() string {
	return e.Message
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [path]",
		Short: "Verify coverage against the configured rules",
		Long: `Verify measured coverage against the rules of the configuration file.

The configuration is discovered from path (default: current directory)
upward unless --config is given.

Exit codes:
  0 - All rules pass, or verification was skipped
  1 - Coverage rule(s) violated
  2 - Error (invalid rules, engine failure, etc.)

Examples:
  # Verify using covgate.yaml found from the current directory
  covgate verify

  # JSON output for machine parsing
  covgate verify --json

  # Explicit config and data file
  covgate verify -c ci/covgate.yaml --data-file build/coverage.yaml`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runVerify,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("config", "c", "", "Path to config file")
	cmd.Flags().StringP("format", "f", "", "Output format: text, json, yaml")
	cmd.Flags().Bool("json", false, "Output results as JSON")
	cmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")
	cmd.Flags().String("data-file", "", "Coverage data file (overrides engine.data_file)")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().Bool("skip", false, "Skip verification")
	cmd.Flags().BoolP("verbose", "v", false, "Print the full result even when verification passes")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	format, _ := cmd.Flags().GetString("format")
	asJSON, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	dataFile, _ := cmd.Flags().GetString("data-file")
	logLevel, _ := cmd.Flags().GetString("log-level")
	skip, _ := cmd.Flags().GetBool("skip")
	verbose, _ := cmd.Flags().GetBool("verbose")

	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	loader := service.NewConfigurationLoader()
	cfg, err := loader.LoadConfig(configPath, target)
	if err != nil {
		return exitError(err)
	}

	logger, err := logging.New(cfg.Logging, logLevel)
	if err != nil {
		return exitError(err)
	}
	defer func() { _ = logger.Sync() }()

	if asJSON {
		format = string(domain.OutputFormatJSON)
	}

	var writer io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		file, err := app.NewFileHelper().CreateFile(outputPath)
		if err != nil {
			return exitError(domain.NewOutputError("failed to create output file", err))
		}
		defer file.Close()
		writer = file
	}

	req := loader.MergeConfig(loader.BuildVerifyRequest(cfg), &domain.VerifyRequest{
		OutputFormat: domain.OutputFormat(format),
		OutputWriter: writer,
		Artifacts:    domain.CoverageArtifacts{DataFile: dataFile},
		Skip:         skip,
		Verbose:      verbose,
	})

	// progress bars only accompany human-readable output
	showProgress := cfg.Output.ShowProgress && outputPath == "" &&
		(req.OutputFormat == "" || req.OutputFormat == domain.OutputFormatText)
	pm := service.NewProgressManager(showProgress)
	defer pm.Close()

	engine, err := service.NewCoverageEngine(cfg, pm, logger)
	if err != nil {
		return exitError(err)
	}

	uc, err := app.NewVerifyUseCaseBuilder().
		WithService(service.NewVerificationService(engine, logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		return exitError(err)
	}

	result, err := uc.Execute(cmd.Context(), *req)
	if err != nil {
		return exitError(err)
	}

	if !result.Passed {
		return &VerifyExitError{Code: constants.ExitViolations, Message: result.Report}
	}
	return nil
}

func exitError(err error) *VerifyExitError {
	return &VerifyExitError{Code: constants.ExitError, Message: fmt.Sprint(err)}
}

package main

import (
	"fmt"

	"github.com/ludo-technologies/covgate/app"
	"github.com/ludo-technologies/covgate/internal/logging"
	"github.com/ludo-technologies/covgate/service"
	"github.com/spf13/cobra"
)

func prepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare [path]",
		Short: "Write the coverage agent arguments for a test run",
		Long: `Write the coverage agent arguments file and print the JVM argument line
that attaches the agent to the test JVM.

The arguments file lists the data file, the agent switches and the
excluded classes (as regular expressions).

Examples:
  # Print the argument line for the configured agent
  covgate prepare

  # Use a specific agent jar
  covgate prepare --agent lib/coverage-agent.jar`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPrepare,
	}

	cmd.Flags().StringP("config", "c", "", "Path to config file")
	cmd.Flags().String("agent", "", "Path to the coverage agent jar (overrides engine.agent_path)")
	cmd.Flags().String("args-file", "", "Agent arguments file (overrides engine.args_file)")
	cmd.Flags().String("data-file", "", "Coverage data file (overrides engine.data_file)")

	return cmd
}

func runPrepare(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	agentPath, _ := cmd.Flags().GetString("agent")
	argsFile, _ := cmd.Flags().GetString("args-file")
	dataFile, _ := cmd.Flags().GetString("data-file")

	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	loader := service.NewConfigurationLoader()
	cfg, err := loader.LoadConfig(configPath, target)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, "")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	req := loader.BuildVerifyRequest(cfg)
	prepareReq := app.PrepareRequest{
		AgentPath: firstNonEmpty(agentPath, cfg.Engine.AgentPath),
		ArgsFile:  firstNonEmpty(argsFile, cfg.Engine.ArgsFile),
		DataFile:  firstNonEmpty(dataFile, req.Artifacts.DataFile),
		Flags:     req.Flags,
		Filters:   req.Filters,
	}

	result, err := app.NewPrepareUseCase(logger).Execute(prepareReq)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.ArgLine != "" {
		fmt.Fprintln(out, result.ArgLine)
	} else {
		fmt.Fprintf(out, "Agent arguments written to %s\n", result.ArgsFile)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

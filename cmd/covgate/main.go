package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ludo-technologies/covgate/internal/constants"
	"github.com/ludo-technologies/covgate/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		// Handle custom exit codes from the verify command
		var exitErr *VerifyExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(constants.ExitError)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.ToolName,
		Short: "covgate - build-time code coverage gate",
		Long: `covgate verifies measured code coverage against declared rules and fails
the build when a rule is violated.

Rules bound line, instruction or branch coverage, as counts or percentages,
for the whole project, each package or each class.`,
		Version: version.GetVersion(),
	}

	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(prepareCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			out := cmd.OutOrStdout()
			if verbose {
				fmt.Fprintln(out, version.Get().String())
			} else {
				fmt.Fprintf(out, "%s version %s\n", constants.ToolName, version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}

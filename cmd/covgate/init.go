package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/covgate/internal/config"
	"github.com/ludo-technologies/covgate/internal/constants"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a covgate configuration file",
		Long: `Generate a documented covgate configuration file with preset rules.

By default, creates covgate.yaml in the current directory using the
snapshot engine and standard thresholds. Use --interactive for a guided
setup wizard.

Examples:
  # Create covgate.yaml in current directory
  covgate init

  # External coverage tool with strict thresholds
  covgate init --engine exec --strictness strict

  # Overwrite existing file
  covgate init --force

  # Generate smaller config with essential options only
  covgate init --minimal

  # Interactive setup wizard
  covgate init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")
	cmd.Flags().String("engine", config.EngineSnapshot,
		"Coverage engine: snapshot, exec")
	cmd.Flags().String("strictness", string(config.StrictnessStandard),
		"Threshold preset: relaxed, standard, strict")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")
	engineKind, _ := cmd.Flags().GetString("engine")
	strictnessName, _ := cmd.Flags().GetString("strictness")

	strictness := config.Strictness(strictnessName)
	if _, ok := config.GetStrictnessPresets()[strictness]; !ok {
		return fmt.Errorf("invalid strictness '%s', must be one of: relaxed, standard, strict", strictnessName)
	}
	if engineKind != config.EngineSnapshot && engineKind != config.EngineExec {
		return fmt.Errorf("invalid engine '%s', must be one of: %s, %s", engineKind, config.EngineSnapshot, config.EngineExec)
	}

	if interactive {
		var err error
		engineKind, strictness, configPath, err = runInteractiveSetup(configPath)
		if err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate()
	} else {
		var err error
		content, err = config.GetFullConfigTemplate(engineKind, strictness)
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", displayPath)
	fmt.Fprintln(out, "\nRun 'covgate verify' after your tests to check coverage.")

	return nil
}

func runInteractiveSetup(defaultConfigPath string) (string, config.Strictness, string, error) {
	fmt.Println()
	fmt.Println("covgate Configuration Setup")
	fmt.Println("===========================")
	fmt.Println()

	engines := []struct {
		Label       string
		Description string
		Value       string
	}{
		{"Snapshot (recommended)", "Evaluate a coverage snapshot file in-process", config.EngineSnapshot},
		{"External tool", "Hand a request file to a coverage engine command", config.EngineExec},
	}

	engineTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	enginePrompt := promptui.Select{
		Label:     "Which coverage engine should be used?",
		Items:     engines,
		Templates: engineTemplates,
	}

	engineIdx, _, err := enginePrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("engine selection cancelled: %w", err)
	}
	selectedEngine := engines[engineIdx].Value

	fmt.Println()

	strictnessLevels := []struct {
		Label       string
		Description string
		Value       config.Strictness
	}{
		{"Standard (recommended)", "80% lines, 60% branches", config.StrictnessStandard},
		{"Relaxed", "50% lines, 30% branches", config.StrictnessRelaxed},
		{"Strict", "90% lines, 80% branches, 85% instructions", config.StrictnessStrict},
	}

	strictnessTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	strictnessPrompt := promptui.Select{
		Label:     "How strict should the coverage rules be?",
		Items:     strictnessLevels,
		Templates: strictnessTemplates,
	}

	strictnessIdx, _, err := strictnessPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("strictness selection cancelled: %w", err)
	}
	selectedStrictness := strictnessLevels[strictnessIdx].Value

	fmt.Println()

	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultConfigPath,
	}

	outputPath, err := outputPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultConfigPath
	}

	fmt.Println()
	fmt.Printf("Creating %s... ", outputPath)

	return selectedEngine, selectedStrictness, outputPath, nil
}

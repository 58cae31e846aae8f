package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ludo-technologies/restructor/internal/config"
	"github.com/ludo-technologies/restructor/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a restructor configuration file",
		Long: `Generate a documented restructor configuration file with sensible defaults.

By default, creates restructor.yaml in the current directory with full
documentation. Use --interactive for a guided setup wizard.

Profiles:
  readable - every pass enabled, the most source-like output
  faithful - keeps every statement, only restructures control flow
  debug    - faithful, and keeps unreachable blocks

Examples:
  # Create restructor.yaml in current directory
  restructor init

  # Start from the faithful profile with JSON reports
  restructor init --profile faithful --format json

  # Custom output path, overwriting an existing file
  restructor init --config custom.yaml --force

  # Generate smaller config with essential options only
  restructor init --minimal

  # Interactive setup wizard
  restructor init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().String("profile", string(config.ProfileReadable),
		"Pipeline profile: readable, faithful, debug")
	cmd.Flags().String("format", constants.OutputFormatText,
		"Default output format: text, json, yaml")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	profileName, _ := cmd.Flags().GetString("profile")
	format, _ := cmd.Flags().GetString("format")
	interactive, _ := cmd.Flags().GetBool("interactive")

	profile := config.Profile(profileName)
	if _, ok := config.GetProfilePresets()[profile]; !ok {
		return fmt.Errorf("unknown profile %q (must be one of: readable, faithful, debug)", profileName)
	}
	if !isValidFormat(format) {
		return fmt.Errorf("invalid output format %q (must be one of: text, json, yaml)", format)
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive setup needs a terminal")
		}
		var err error
		profile, format, configPath, err = runInteractiveSetup(configPath)
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
		content = config.GetFullConfigTemplate(profile, format)
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
	fmt.Fprintf(out, "\nRun '%s decompile <path>' to decompile your classes.\n", constants.ToolName)

	return nil
}

func isValidFormat(format string) bool {
	for _, f := range config.ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func runInteractiveSetup(defaultConfigPath string) (config.Profile, string, string, error) {
	fmt.Println()
	fmt.Println("restructor Configuration Setup")
	fmt.Println("==============================")
	fmt.Println()

	profiles := []struct {
		Label       string
		Description string
		Value       config.Profile
	}{
		{"Readable (recommended)", "Every pass enabled, closest to hand-written source", config.ProfileReadable},
		{"Faithful", "Keeps every statement, only restructures control flow", config.ProfileFaithful},
		{"Debug", "Faithful, and keeps unreachable blocks", config.ProfileDebug},
	}

	profileTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	profilePrompt := promptui.Select{
		Label:     "How should methods be rendered?",
		Items:     profiles,
		Templates: profileTemplates,
	}

	profileIdx, _, err := profilePrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("profile selection cancelled: %w", err)
	}
	selectedProfile := profiles[profileIdx].Value

	fmt.Println()

	formats := []struct {
		Label string
		Value string
	}{
		{"Java source (text)", constants.OutputFormatText},
		{"JSON report", constants.OutputFormatJSON},
		{"YAML report", constants.OutputFormatYAML},
	}

	formatTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }}",
		Inactive: "   {{ .Label | white }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	formatPrompt := promptui.Select{
		Label:     "Default output format",
		Items:     formats,
		Templates: formatTemplates,
	}

	formatIdx, _, err := formatPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("format selection cancelled: %w", err)
	}
	selectedFormat := formats[formatIdx].Value

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

	return selectedProfile, selectedFormat, outputPath, nil
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/restructor/internal/config"
)

func runInitWith(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := initCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCommand_BasicConfigCreation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "restructor.yaml")

	out, err := runInitWith(t, "--config", configPath)
	if err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if !strings.Contains(out, "Created ") {
		t.Errorf("Expected a confirmation, got %q", out)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"pipeline:",
		"dead_code_elimination: true",
		"output:",
		"analysis:",
		"performance:",
		"debug:",
	}
	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing expected section: %s", section)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if !cfg.Pipeline.RegisterPropagation {
		t.Error("Expected the readable profile to enable propagation")
	}
}

func TestInitCommand_ForceOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "restructor.yaml")
	if err := os.WriteFile(configPath, []byte("existing: true\n"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}

	if _, err := runInitWith(t, "--config", configPath); err == nil {
		t.Fatal("Expected error when file exists without --force")
	} else if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Unexpected error: %v", err)
	}

	if _, err := runInitWith(t, "--config", configPath, "--force"); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	content, _ := os.ReadFile(configPath)
	if strings.Contains(string(content), "existing: true") {
		t.Error("Existing file should have been overwritten")
	}
}

func TestInitCommand_ProfileAndFormat(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "restructor.yaml")

	if _, err := runInitWith(t, "--config", configPath, "--profile", "faithful", "--format", "json"); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.Pipeline.DeadCodeElimination || cfg.Pipeline.RegisterPropagation {
		t.Error("Faithful profile should disable dataflow passes")
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Expected json format, got %s", cfg.Output.Format)
	}
}

func TestInitCommand_Minimal(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "restructor.yaml")

	if _, err := runInitWith(t, "--config", configPath, "--minimal"); err != nil {
		t.Fatalf("init --minimal failed: %v", err)
	}
	content, _ := os.ReadFile(configPath)
	if strings.Contains(string(content), "performance:") {
		t.Error("Minimal config should not include the performance section")
	}
}

func TestInitCommand_InvalidInput(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown profile", []string{"--config", filepath.Join(tmpDir, "a.yaml"), "--profile", "fast"}, "unknown profile"},
		{"bad format", []string{"--config", filepath.Join(tmpDir, "b.yaml"), "--format", "dot"}, "invalid output format"},
		{"missing directory", []string{"--config", filepath.Join(tmpDir, "nope", "c.yaml")}, "directory does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runInitWith(t, tt.args...)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestInitCommand_FlagsExist(t *testing.T) {
	cmd := initCmd()

	for _, name := range []string{"config", "force", "minimal", "profile", "format", "interactive"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("Missing expected flag: --%s", name)
		}
	}
	if flag := cmd.Flags().Lookup("config"); flag.DefValue != "restructor.yaml" {
		t.Errorf("Expected default config path restructor.yaml, got %s", flag.DefValue)
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Pipeline defaults
const (
	// DefaultMaxPasses bounds the dead code / propagation fixpoint per method
	DefaultMaxPasses = 64

	// DefaultIndentWidth is the number of spaces per nesting level
	DefaultIndentWidth = 4
)

// Execution defaults
const (
	DefaultMaxGoroutines  = 4
	DefaultTimeoutSeconds = 300
)

// EnvPrefix is the prefix of environment variable overrides
// (RESTRUCTOR_OUTPUT_FORMAT overrides output.format)
const EnvPrefix = "RESTRUCTOR"

// Config represents the main configuration structure
type Config struct {
	// Pipeline selects the analysis passes run on every method
	Pipeline PipelineConfig `json:"pipeline" mapstructure:"pipeline" yaml:"pipeline"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Analysis holds input discovery configuration
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis" yaml:"analysis"`

	// Performance holds worker pool configuration
	Performance PerformanceConfig `json:"performance" mapstructure:"performance" yaml:"performance"`

	// Debug holds debugging aids
	Debug DebugConfig `json:"debug" mapstructure:"debug" yaml:"debug"`
}

// PipelineConfig holds the per-method pass switches
type PipelineConfig struct {
	// SplitConditionals peels statements off conditional headers so loop
	// and if conditions become pure tests
	SplitConditionals bool `json:"split_conditionals" mapstructure:"split_conditionals" yaml:"split_conditionals"`

	// DeadCodeElimination removes definitions that are never used
	DeadCodeElimination bool `json:"dead_code_elimination" mapstructure:"dead_code_elimination" yaml:"dead_code_elimination"`

	// RegisterPropagation inlines single-use temporaries
	RegisterPropagation bool `json:"register_propagation" mapstructure:"register_propagation" yaml:"register_propagation"`

	// KeepUnreachable keeps blocks that cannot be reached from the entry
	KeepUnreachable bool `json:"keep_unreachable" mapstructure:"keep_unreachable" yaml:"keep_unreachable"`

	// MaxPasses bounds the dataflow fixpoint iteration
	MaxPasses int `json:"max_passes" mapstructure:"max_passes" yaml:"max_passes"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// Directory receives one source file per class (empty = write to stdout)
	Directory string `json:"directory" mapstructure:"directory" yaml:"directory"`

	// IndentWidth is the number of spaces per nesting level
	IndentWidth int `json:"indent_width" mapstructure:"indent_width" yaml:"indent_width"`

	// UseTabs indents with tabs instead of spaces
	UseTabs bool `json:"use_tabs" mapstructure:"use_tabs" yaml:"use_tabs"`

	// ShowDiagnostics appends per-method warnings to the output
	ShowDiagnostics bool `json:"show_diagnostics" mapstructure:"show_diagnostics" yaml:"show_diagnostics"`
}

// AnalysisConfig holds input discovery configuration
type AnalysisConfig struct {
	// IncludePatterns specifies file patterns to include
	IncludePatterns []string `json:"include_patterns" mapstructure:"include_patterns" yaml:"include_patterns"`

	// ExcludePatterns specifies file patterns to exclude
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// Recursive controls whether to descend into directories
	Recursive bool `json:"recursive" mapstructure:"recursive" yaml:"recursive"`

	// RespectGitignore skips files ignored by .gitignore files
	RespectGitignore bool `json:"respect_gitignore" mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
}

// PerformanceConfig holds worker pool configuration
type PerformanceConfig struct {
	// MaxGoroutines is the number of methods processed concurrently
	MaxGoroutines int `json:"max_goroutines" mapstructure:"max_goroutines" yaml:"max_goroutines"`

	// TimeoutSeconds bounds a whole run
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// DebugConfig holds debugging aids
type DebugConfig struct {
	// DotDirectory receives per-stage Graphviz dumps of every method
	DotDirectory string `json:"dot_directory" mapstructure:"dot_directory" yaml:"dot_directory"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			SplitConditionals:   true,
			DeadCodeElimination: true,
			RegisterPropagation: true,
			KeepUnreachable:     false,
			MaxPasses:           DefaultMaxPasses,
		},
		Output: OutputConfig{
			Format:          "text",
			IndentWidth:     DefaultIndentWidth,
			ShowDiagnostics: true,
		},
		Analysis: AnalysisConfig{
			IncludePatterns:  []string{"**/*.yaml", "**/*.yml", "**/*.json"},
			ExcludePatterns:  []string{},
			Recursive:        true,
			RespectGitignore: true,
		},
		Performance: PerformanceConfig{
			MaxGoroutines:  DefaultMaxGoroutines,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration, discovering the file from
// targetPath upward when configPath is empty
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// newViper returns a viper instance seeded with defaults so that every key
// can be overridden from the environment
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("pipeline.split_conditionals", d.Pipeline.SplitConditionals)
	v.SetDefault("pipeline.dead_code_elimination", d.Pipeline.DeadCodeElimination)
	v.SetDefault("pipeline.register_propagation", d.Pipeline.RegisterPropagation)
	v.SetDefault("pipeline.keep_unreachable", d.Pipeline.KeepUnreachable)
	v.SetDefault("pipeline.max_passes", d.Pipeline.MaxPasses)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.directory", d.Output.Directory)
	v.SetDefault("output.indent_width", d.Output.IndentWidth)
	v.SetDefault("output.use_tabs", d.Output.UseTabs)
	v.SetDefault("output.show_diagnostics", d.Output.ShowDiagnostics)
	v.SetDefault("analysis.include_patterns", d.Analysis.IncludePatterns)
	v.SetDefault("analysis.exclude_patterns", d.Analysis.ExcludePatterns)
	v.SetDefault("analysis.recursive", d.Analysis.Recursive)
	v.SetDefault("analysis.respect_gitignore", d.Analysis.RespectGitignore)
	v.SetDefault("performance.max_goroutines", d.Performance.MaxGoroutines)
	v.SetDefault("performance.timeout_seconds", d.Performance.TimeoutSeconds)
	v.SetDefault("debug.dot_directory", d.Debug.DotDirectory)
	return v
}

// loadConfigFromFile reads and validates a configuration file. An empty
// path yields the defaults with environment overrides applied.
func loadConfigFromFile(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ConfigFileCandidates lists the file names searched in each directory
var ConfigFileCandidates = []string{
	"restructor.yaml",
	"restructor.yml",
	".restructor.yaml",
	".restructor.yml",
	"restructor.json",
	".restructor.json",
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for a configuration file starting at targetPath
// and walking up to the filesystem root, then in the working directory, the
// XDG config directory and finally $RESTRUCTOR_CONFIG
func findDefaultConfig(targetPath string) string {
	if targetPath != "" {
		if absPath, err := filepath.Abs(targetPath); err == nil {
			if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, ConfigFileCandidates); config != "" {
					return config
				}
				if parent := filepath.Dir(dir); parent == dir {
					break
				}
			}
		}
	}

	if config := searchConfigInDirectory(".", ConfigFileCandidates); config != "" {
		return config
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		if config := searchConfigInDirectory(filepath.Join(configHome, "restructor"), ConfigFileCandidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(EnvPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}
	return ""
}

// ValidFormats lists the accepted output.format values
var ValidFormats = []string{"text", "json", "yaml"}

// Validate checks the configuration for inconsistent values
func (c *Config) Validate() error {
	if c.Pipeline.MaxPasses < 1 {
		return fmt.Errorf("pipeline.max_passes must be >= 1, got %d", c.Pipeline.MaxPasses)
	}

	valid := false
	for _, f := range ValidFormats {
		if c.Output.Format == f {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("invalid output.format '%s', must be one of: %s",
			c.Output.Format, strings.Join(ValidFormats, ", "))
	}

	if c.Output.IndentWidth < 1 || c.Output.IndentWidth > 16 {
		return fmt.Errorf("output.indent_width must be between 1 and 16, got %d", c.Output.IndentWidth)
	}

	if len(c.Analysis.IncludePatterns) == 0 {
		return fmt.Errorf("analysis.include_patterns cannot be empty")
	}

	if c.Performance.MaxGoroutines < 0 {
		return fmt.Errorf("performance.max_goroutines must be >= 0, got %d", c.Performance.MaxGoroutines)
	}
	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}
	return nil
}

// SaveConfig writes config to path as YAML
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

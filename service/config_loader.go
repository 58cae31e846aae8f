package service

import (
	"fmt"
	"time"

	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/internal/config"
)

// ConfigurationLoaderImpl implements the ConfigurationLoader interface
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.DecompileRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	req := c.convertToDecompileRequest(cfg)
	req.ConfigPath = path
	return req, nil
}

// LoadConfigForTarget discovers the configuration starting at the first
// input path
func (c *ConfigurationLoaderImpl) LoadConfigForTarget(targetPath string) (*domain.DecompileRequest, error) {
	cfg, err := config.LoadConfigWithTarget("", targetPath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return c.convertToDecompileRequest(cfg), nil
}

// LoadDefaultConfig loads the discovered configuration, falling back to
// built-in defaults when none is found or it is invalid
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.DecompileRequest {
	cfg, err := config.LoadConfigWithTarget("", "")
	if err == nil {
		return c.convertToDecompileRequest(cfg)
	}
	return c.convertToDecompileRequest(config.DefaultConfig())
}

// MergeConfig merges CLI flags with configuration file. Zero values in
// override keep the base value; switches can only be turned on here, the
// CLI applies explicit disables after merging.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.DecompileRequest, override *domain.DecompileRequest) *domain.DecompileRequest {
	merged := *base

	// Always override paths as they come from command arguments
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}

	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.OutputDir != "" {
		merged.OutputDir = override.OutputDir
	}
	if override.ShowDiagnostics {
		merged.ShowDiagnostics = true
	}
	if override.IndentWidth > 0 {
		merged.IndentWidth = override.IndentWidth
	}
	if override.UseTabs {
		merged.UseTabs = true
	}

	if override.SplitConditionals {
		merged.SplitConditionals = true
	}
	if override.DeadCodeElimination {
		merged.DeadCodeElimination = true
	}
	if override.RegisterPropagation {
		merged.RegisterPropagation = true
	}
	if override.KeepUnreachable {
		merged.KeepUnreachable = true
	}
	if override.MaxPasses > 0 {
		merged.MaxPasses = override.MaxPasses
	}

	if override.DebugDir != "" {
		merged.DebugDir = override.DebugDir
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}

	if len(override.IncludePatterns) > 0 {
		merged.IncludePatterns = override.IncludePatterns
	}
	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = override.ExcludePatterns
	}

	if override.MaxGoroutines > 0 {
		merged.MaxGoroutines = override.MaxGoroutines
	}
	if override.Timeout > 0 {
		merged.Timeout = override.Timeout
	}
	return &merged
}

// convertToDecompileRequest converts a Config to DecompileRequest
func (c *ConfigurationLoaderImpl) convertToDecompileRequest(cfg *config.Config) *domain.DecompileRequest {
	return &domain.DecompileRequest{
		// Paths are set by the caller, not from config
		Paths: []string{},

		OutputFormat:    domain.OutputFormat(cfg.Output.Format),
		OutputDir:       cfg.Output.Directory,
		ShowDiagnostics: cfg.Output.ShowDiagnostics,
		IndentWidth:     cfg.Output.IndentWidth,
		UseTabs:         cfg.Output.UseTabs,

		SplitConditionals:   cfg.Pipeline.SplitConditionals,
		DeadCodeElimination: cfg.Pipeline.DeadCodeElimination,
		RegisterPropagation: cfg.Pipeline.RegisterPropagation,
		KeepUnreachable:     cfg.Pipeline.KeepUnreachable,
		MaxPasses:           cfg.Pipeline.MaxPasses,

		DebugDir: cfg.Debug.DotDirectory,

		Recursive:        cfg.Analysis.Recursive,
		RespectGitignore: cfg.Analysis.RespectGitignore,
		IncludePatterns:  cfg.Analysis.IncludePatterns,
		ExcludePatterns:  cfg.Analysis.ExcludePatterns,

		MaxGoroutines: cfg.Performance.MaxGoroutines,
		Timeout:       time.Duration(cfg.Performance.TimeoutSeconds) * time.Second,
	}
}

// PerformanceConfig returns the worker pool settings of a request
func PerformanceConfig(req *domain.DecompileRequest) *config.PerformanceConfig {
	return &config.PerformanceConfig{
		MaxGoroutines:  req.MaxGoroutines,
		TimeoutSeconds: int(req.Timeout / time.Second),
	}
}

// ValidateConfig validates a merged request
func (c *ConfigurationLoaderImpl) ValidateConfig(req *domain.DecompileRequest) error {
	if len(req.Paths) == 0 {
		return domain.NewValidationError("no input paths specified")
	}

	validFormats := map[domain.OutputFormat]bool{
		domain.OutputFormatText: true,
		domain.OutputFormatJSON: true,
		domain.OutputFormatYAML: true,
	}
	if !validFormats[req.OutputFormat] {
		return domain.NewValidationError(fmt.Sprintf(
			"invalid output format: %s (must be one of: text, json, yaml)", req.OutputFormat))
	}

	if req.IndentWidth < 0 || req.IndentWidth > 16 {
		return domain.NewValidationError(fmt.Sprintf("indent width must be between 0 and 16, got %d", req.IndentWidth))
	}
	if req.MaxPasses < 0 {
		return domain.NewValidationError(fmt.Sprintf("max passes cannot be negative, got %d", req.MaxPasses))
	}
	if req.MaxGoroutines < 0 {
		return domain.NewValidationError(fmt.Sprintf("max goroutines cannot be negative, got %d", req.MaxGoroutines))
	}
	if req.OutputDir != "" && req.OutputFormat != domain.OutputFormatText {
		return domain.NewValidationError("an output directory can only be used with text output")
	}
	return nil
}

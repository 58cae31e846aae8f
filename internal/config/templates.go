package config

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile names a preset of pipeline switches
type Profile string

const (
	// ProfileReadable runs every pass for the most source-like output
	ProfileReadable Profile = "readable"

	// ProfileFaithful keeps every statement of the input, only restructuring
	// control flow
	ProfileFaithful Profile = "faithful"

	// ProfileDebug is faithful and additionally keeps unreachable blocks
	ProfileDebug Profile = "debug"
)

// Profiles lists the presets in the order offered to users
var Profiles = []Profile{ProfileReadable, ProfileFaithful, ProfileDebug}

// GetProfilePresets returns the pipeline switches of every profile
func GetProfilePresets() map[Profile]PipelineConfig {
	return map[Profile]PipelineConfig{
		ProfileReadable: {
			SplitConditionals:   true,
			DeadCodeElimination: true,
			RegisterPropagation: true,
			MaxPasses:           DefaultMaxPasses,
		},
		ProfileFaithful: {
			SplitConditionals: true,
			MaxPasses:         DefaultMaxPasses,
		},
		ProfileDebug: {
			KeepUnreachable: true,
			MaxPasses:       DefaultMaxPasses,
		},
	}
}

// GetFullConfigTemplate returns the documented restructor.yaml for a profile
func GetFullConfigTemplate(profile Profile, format string) string {
	p, ok := GetProfilePresets()[profile]
	if !ok {
		p = GetProfilePresets()[ProfileReadable]
	}
	if format == "" {
		format = "text"
	}
	d := DefaultConfig()

	return `# restructor configuration
# Profile: ` + string(profile) + `

# ============================================================================
# PIPELINE
# ============================================================================
# Passes run on every method before control flow is restructured
pipeline:
  # Move statements out of conditional headers so loop conditions are pure tests
  split_conditionals: ` + strconv.FormatBool(p.SplitConditionals) + `

  # Remove assignments whose value is never read
  dead_code_elimination: ` + strconv.FormatBool(p.DeadCodeElimination) + `

  # Inline temporaries that are read exactly once
  register_propagation: ` + strconv.FormatBool(p.RegisterPropagation) + `

  # Keep blocks that cannot be reached from the method entry
  keep_unreachable: ` + strconv.FormatBool(p.KeepUnreachable) + `

  # Upper bound on dead code / propagation rounds per method
  max_passes: ` + strconv.Itoa(p.MaxPasses) + `

# ============================================================================
# OUTPUT
# ============================================================================
output:
  # Output format: "text", "json", "yaml"
  format: ` + format + `

  # Write one source file per class into this directory (empty = stdout)
  directory: ""

  # Spaces per nesting level
  indent_width: ` + strconv.Itoa(d.Output.IndentWidth) + `
  use_tabs: false

  # Append structuring fallbacks and other warnings as comments
  show_diagnostics: true

# ============================================================================
# INPUT DISCOVERY
# ============================================================================
analysis:
  include_patterns:
` + formatYAMLList(d.Analysis.IncludePatterns, "    ") + `
  exclude_patterns: []
  recursive: true
  respect_gitignore: true

# ============================================================================
# PERFORMANCE
# ============================================================================
performance:
  # Methods decompiled concurrently
  max_goroutines: ` + strconv.Itoa(d.Performance.MaxGoroutines) + `

  # Whole-run timeout
  timeout_seconds: ` + strconv.Itoa(d.Performance.TimeoutSeconds) + `

# ============================================================================
# DEBUG
# ============================================================================
debug:
  # Directory receiving Graphviz dumps of every method after each stage
  dot_directory: ""
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return `# restructor configuration (minimal)
pipeline:
  dead_code_elimination: true
  register_propagation: true

output:
  format: text
  indent_width: 4
`
}

// ParseTemplate decodes a generated template over the defaults
func ParseTemplate(template string) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(template), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatYAMLList(items []string, indent string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, indent+"- "+strconv.Quote(item))
	}
	return strings.Join(lines, "\n")
}

package domain

import (
	"context"
	"io"
	"time"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatDOT  OutputFormat = "dot"
)

// MethodStatus is the outcome of decompiling one method
type MethodStatus string

const (
	MethodStatusOK     MethodStatus = "ok"
	MethodStatusEmpty  MethodStatus = "empty"
	MethodStatusFailed MethodStatus = "failed"
)

// DecompileRequest represents a request to restructure decoded classes
type DecompileRequest struct {
	// Input files or directories
	Paths []string

	// Output configuration
	OutputFormat    OutputFormat
	OutputWriter    io.Writer
	OutputDir       string // Write one .java file per class when set
	ShowDiagnostics bool
	IndentWidth     int
	UseTabs         bool

	// Pipeline switches
	SplitConditionals   bool
	DeadCodeElimination bool
	RegisterPropagation bool
	KeepUnreachable     bool
	MaxPasses           int

	// Debugging
	DebugDir string // Write per-stage DOT graphs when set

	// Configuration
	ConfigPath string

	// Input discovery
	Recursive        bool
	RespectGitignore bool
	IncludePatterns  []string
	ExcludePatterns  []string

	// Execution
	MaxGoroutines int
	Timeout       time.Duration
}

// Diagnostic is a non-fatal finding attached to a method
type Diagnostic struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// MethodMetrics summarizes what the pipeline did to a method
type MethodMetrics struct {
	Nodes             int     `json:"nodes" yaml:"nodes"`
	Loops             int     `json:"loops" yaml:"loops"`
	MaxLoopDepth      int     `json:"max_loop_depth" yaml:"max_loop_depth"`
	Conditionals      int     `json:"conditionals" yaml:"conditionals"`
	Switches          int     `json:"switches" yaml:"switches"`
	TryBlocks         int     `json:"try_blocks" yaml:"try_blocks"`
	Gotos             int     `json:"gotos" yaml:"gotos"`
	RemovedStatements int     `json:"removed_statements" yaml:"removed_statements"`
	DataflowPasses    int     `json:"dataflow_passes" yaml:"dataflow_passes"`
	ReachableRatio    float64 `json:"reachable_ratio" yaml:"reachable_ratio"`
}

// MethodResult is the decompiled form of a single method
type MethodResult struct {
	Name        string        `json:"name" yaml:"name"`
	Signature   string        `json:"signature" yaml:"signature"`
	Status      MethodStatus  `json:"status" yaml:"status"`
	Source      string        `json:"source" yaml:"source"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Metrics     MethodMetrics `json:"metrics" yaml:"metrics"`
}

// ClassResult is the decompiled form of one input document
type ClassResult struct {
	FilePath string         `json:"file_path" yaml:"file_path"`
	Name     string         `json:"name" yaml:"name"`
	Source   string         `json:"source" yaml:"source"`
	Methods  []MethodResult `json:"methods" yaml:"methods"`
}

// DecompileSummary represents aggregate statistics
type DecompileSummary struct {
	FilesProcessed    int `json:"files_processed" yaml:"files_processed"`
	Classes           int `json:"classes" yaml:"classes"`
	TotalMethods      int `json:"total_methods" yaml:"total_methods"`
	Succeeded         int `json:"succeeded" yaml:"succeeded"`
	Empty             int `json:"empty" yaml:"empty"`
	Failed            int `json:"failed" yaml:"failed"`
	Fallbacks         int `json:"fallbacks" yaml:"fallbacks"`
	RemovedStatements int `json:"removed_statements" yaml:"removed_statements"`
}

// Add folds one class into the summary
func (s *DecompileSummary) Add(c *ClassResult) {
	s.Classes++
	for _, m := range c.Methods {
		s.TotalMethods++
		switch m.Status {
		case MethodStatusOK:
			s.Succeeded++
		case MethodStatusEmpty:
			s.Empty++
		case MethodStatusFailed:
			s.Failed++
		}
		if m.Metrics.Gotos > 0 {
			s.Fallbacks++
		}
		s.RemovedStatements += m.Metrics.RemovedStatements
	}
}

// DecompileResponse represents the complete result
type DecompileResponse struct {
	Classes []ClassResult    `json:"classes" yaml:"classes"`
	Summary DecompileSummary `json:"summary" yaml:"summary"`

	// Warnings and issues
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Metadata
	GeneratedAt string      `json:"generated_at" yaml:"generated_at"`
	Version     string      `json:"version" yaml:"version"`
	Config      interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// DecompileService defines the core business logic for decompilation
type DecompileService interface {
	// Decompile processes every input document named by the request
	Decompile(ctx context.Context, req DecompileRequest) (*DecompileResponse, error)

	// DecompileFile processes a single input document, which may hold
	// several classes
	DecompileFile(ctx context.Context, filePath string, req DecompileRequest) ([]ClassResult, error)
}

// FileReader defines the interface for collecting and reading input documents
type FileReader interface {
	// CollectClassFiles finds all class documents in the given paths
	CollectClassFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)

	// ReadFile reads the content of a file
	ReadFile(path string) ([]byte, error)

	// IsValidClassFile checks if a file looks like a class document
	IsValidClassFile(path string) bool

	// FileExists checks if a file exists and returns an error if not
	FileExists(path string) (bool, error)
}

// OutputFormatter defines the interface for formatting decompilation results
type OutputFormatter interface {
	// Format formats the response according to the specified format
	Format(response *DecompileResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *DecompileResponse, format OutputFormat, writer io.Writer) error
}

// ConfigurationLoader defines the interface for loading configuration
type ConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*DecompileRequest, error)

	// LoadDefaultConfig loads the default configuration
	LoadDefaultConfig() *DecompileRequest

	// MergeConfig merges CLI flags with configuration file
	MergeConfig(base *DecompileRequest, override *DecompileRequest) *DecompileRequest
}

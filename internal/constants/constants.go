package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "restructor"

	// ConfigFileName is the config file written by `restructor init`
	ConfigFileName = "restructor.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "RESTRUCTOR"
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
	OutputFormatDOT  = "dot"
)

// Source file extension of written classes
const SourceExtension = ".java"

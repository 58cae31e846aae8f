package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/internal/pipeline"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct {
	// ShowDiagnostics appends per-method findings as comments in text output
	ShowDiagnostics bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{ShowDiagnostics: true}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Format formats the response according to the specified format
func (f *OutputFormatterImpl) Format(response *domain.DecompileResponse, format domain.OutputFormat) (string, error) {
	var sb strings.Builder
	if err := f.Write(response, format, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write writes the response in the specified format
func (f *OutputFormatterImpl) Write(response *domain.DecompileResponse, format domain.OutputFormat, writer io.Writer) error {
	if response == nil {
		return domain.NewOutputError("nil response", nil)
	}
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatText, "":
		return f.writeText(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// writeText writes every class as source, separated by file banners
func (f *OutputFormatterImpl) writeText(response *domain.DecompileResponse, writer io.Writer) error {
	for i, class := range response.Classes {
		if i > 0 {
			fmt.Fprintln(writer)
		}
		if class.FilePath != "" {
			fmt.Fprintf(writer, "// %s\n", class.FilePath)
		}
		fmt.Fprint(writer, class.Source)
		if f.ShowDiagnostics {
			WriteDiagnostics(writer, &class)
		}
	}

	if len(response.Warnings) > 0 {
		fmt.Fprintf(writer, "\n// Warnings:\n")
		for _, w := range response.Warnings {
			fmt.Fprintf(writer, "//   - %s\n", w)
		}
	}
	if len(response.Errors) > 0 {
		fmt.Fprintf(writer, "\n// Errors:\n")
		for _, e := range response.Errors {
			fmt.Fprintf(writer, "//   - %s\n", e)
		}
	}
	return nil
}

// WriteDiagnostics writes the findings of a class as line comments.
// Nothing is written when no method has a finding.
func WriteDiagnostics(writer io.Writer, class *domain.ClassResult) {
	header := false
	for _, m := range class.Methods {
		for _, d := range m.Diagnostics {
			if d.Kind == string(pipeline.DiagEmptyBody) {
				continue
			}
			if !header {
				fmt.Fprintf(writer, "// Diagnostics:\n")
				header = true
			}
			fmt.Fprintf(writer, "//   %s: [%s] %s\n", m.Name, d.Kind, d.Message)
		}
		if m.Status == domain.MethodStatusFailed {
			if !header {
				fmt.Fprintf(writer, "// Diagnostics:\n")
				header = true
			}
			fmt.Fprintf(writer, "//   %s: %s\n", m.Name, m.Error)
		}
	}
}

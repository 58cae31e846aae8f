package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/restructor/domain"
)

func sampleResponse() *domain.DecompileResponse {
	resp := &domain.DecompileResponse{
		Classes: []domain.ClassResult{
			{
				FilePath: "classes/Calc.yaml",
				Name:     "com.acme.Calc",
				Source:   "class Calc {\n    static void run() {\n    }\n}\n",
				Methods: []domain.MethodResult{
					{
						Name:      "com.acme.Calc.run",
						Signature: "static void run()",
						Status:    domain.MethodStatusOK,
						Source:    "static void run() {\n}\n",
						Diagnostics: []domain.Diagnostic{
							{Kind: "structuring_fallback", Message: "1 goto(s), 0 detached block(s)"},
						},
						Metrics: domain.MethodMetrics{Nodes: 3, Gotos: 1},
					},
					{
						Name:      "com.acme.Calc.stop",
						Signature: "abstract void stop()",
						Status:    domain.MethodStatusEmpty,
						Diagnostics: []domain.Diagnostic{
							{Kind: "empty_body", Message: "method has no body"},
						},
					},
					{
						Name:      "com.acme.Calc.broken",
						Signature: "void broken()",
						Status:    domain.MethodStatusFailed,
						Error:     "[MALFORMED_GRAPH] malformed graph in com.acme.Calc.broken",
						ErrorCode: domain.ErrCodeMalformedGraph,
					},
				},
			},
		},
		Warnings:    []string{"1 method(s) needed goto fallbacks"},
		Errors:      []string{"[Bad.yaml] [PARSE_ERROR] failed to parse file: Bad.yaml"},
		GeneratedAt: "2026-01-02T03:04:05Z",
		Version:     "v1.0.0",
	}
	resp.Summary.Add(&resp.Classes[0])
	resp.Summary.FilesProcessed = 1
	return resp
}

func TestWriteJSON(t *testing.T) {
	data := map[string]interface{}{
		"name":  "test",
		"value": 42,
	}

	var buf bytes.Buffer
	err := WriteJSON(&buf, data)
	if err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse output as JSON: %v", err)
	}
	if result["name"] != "test" {
		t.Errorf("Expected name to be 'test', got %v", result["name"])
	}
	if !strings.Contains(buf.String(), "\n  \"name\"") {
		t.Errorf("Expected two-space indentation, got %q", buf.String())
	}
}

func TestOutputFormatter_JSON(t *testing.T) {
	out, err := NewOutputFormatter().Format(sampleResponse(), domain.OutputFormatJSON)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded domain.DecompileResponse
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(decoded.Classes) != 1 || len(decoded.Classes[0].Methods) != 3 {
		t.Fatalf("Unexpected decoded classes: %+v", decoded.Classes)
	}
	if decoded.Summary.Failed != 1 || decoded.Summary.Fallbacks != 1 {
		t.Errorf("Unexpected summary: %+v", decoded.Summary)
	}
	for _, key := range []string{`"file_path"`, `"error_code": "MALFORMED_GRAPH"`, `"generated_at"`, `"removed_statements"`} {
		if !strings.Contains(out, key) {
			t.Errorf("Expected JSON to contain %s", key)
		}
	}
}

func TestOutputFormatter_YAML(t *testing.T) {
	out, err := NewOutputFormatter().Format(sampleResponse(), domain.OutputFormatYAML)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded domain.DecompileResponse
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Output is not valid YAML: %v", err)
	}
	if decoded.Classes[0].Name != "com.acme.Calc" {
		t.Errorf("Unexpected class name %q", decoded.Classes[0].Name)
	}
	if decoded.Classes[0].Methods[2].ErrorCode != domain.ErrCodeMalformedGraph {
		t.Errorf("Unexpected error code %q", decoded.Classes[0].Methods[2].ErrorCode)
	}
	if !strings.Contains(out, "\n  - file_path: classes/Calc.yaml\n") {
		t.Errorf("Expected two-space YAML indentation, got:\n%s", out)
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	out, err := NewOutputFormatter().Format(sampleResponse(), domain.OutputFormatText)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	expected := `// classes/Calc.yaml
class Calc {
    static void run() {
    }
}
// Diagnostics:
//   com.acme.Calc.run: [structuring_fallback] 1 goto(s), 0 detached block(s)
//   com.acme.Calc.broken: [MALFORMED_GRAPH] malformed graph in com.acme.Calc.broken

// Warnings:
//   - 1 method(s) needed goto fallbacks

// Errors:
//   - [Bad.yaml] [PARSE_ERROR] failed to parse file: Bad.yaml
`
	if out != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, out)
	}
}

func TestOutputFormatter_TextWithoutDiagnostics(t *testing.T) {
	formatter := &OutputFormatterImpl{ShowDiagnostics: false}
	resp := sampleResponse()
	resp.Warnings = nil
	resp.Errors = nil

	out, err := formatter.Format(resp, domain.OutputFormatText)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if strings.Contains(out, "Diagnostics") {
		t.Errorf("Diagnostics should be hidden, got:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("Expected output to end with the class, got:\n%s", out)
	}
}

func TestOutputFormatter_TextSeparatesClasses(t *testing.T) {
	resp := &domain.DecompileResponse{
		Classes: []domain.ClassResult{
			{Name: "A", Source: "class A {\n}\n"},
			{Name: "B", Source: "class B {\n}\n"},
		},
	}

	out, err := NewOutputFormatter().Format(resp, domain.OutputFormatText)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if out != "class A {\n}\n\nclass B {\n}\n" {
		t.Errorf("Unexpected output: %q", out)
	}
}

func TestWriteDiagnostics_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteDiagnostics(&buf, &domain.ClassResult{
		Methods: []domain.MethodResult{{Name: "A.m", Status: domain.MethodStatusOK}},
	})
	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %q", buf.String())
	}
}

func TestOutputFormatterUnsupportedFormat(t *testing.T) {
	formatter := NewOutputFormatter()

	for _, format := range []domain.OutputFormat{domain.OutputFormatDOT, "html"} {
		var buf bytes.Buffer
		err := formatter.Write(sampleResponse(), format, &buf)
		if err == nil {
			t.Fatalf("Expected error for format %s", format)
		}
		if domain.ErrorCode(err) != domain.ErrCodeUnsupportedFormat {
			t.Errorf("Expected UNSUPPORTED_FORMAT, got %s", domain.ErrorCode(err))
		}
	}
}

func TestOutputFormatterNilResponse(t *testing.T) {
	if _, err := NewOutputFormatter().Format(nil, domain.OutputFormatJSON); err == nil {
		t.Error("Expected error for nil response")
	}
}

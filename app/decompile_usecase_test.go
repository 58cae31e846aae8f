package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/service"
)

const counterDocument = `
class: com.acme.Counter
modifiers: [public]
methods:
  - name: count
    modifiers: [static]
    returns: int
    params:
      - {name: n, type: int}
    blocks:
      - label: entry
        do:
          - {set: i, value: 0}
      - label: head
        if: {op: "<", left: i, right: n}
        then: body
        else: exit
      - label: body
        do:
          - {set: i, value: {op: "+", left: i, right: 1}}
        goto: head
      - label: exit
        return: i
`

type recordingService struct {
	paths []string
}

func (s *recordingService) Decompile(_ context.Context, req domain.DecompileRequest) (*domain.DecompileResponse, error) {
	s.paths = req.Paths
	return &domain.DecompileResponse{}, nil
}

func (s *recordingService) DecompileFile(_ context.Context, filePath string, _ domain.DecompileRequest) ([]domain.ClassResult, error) {
	s.paths = []string{filePath}
	return nil, nil
}

func usecaseRequest(paths ...string) domain.DecompileRequest {
	return domain.DecompileRequest{
		Paths:               paths,
		OutputFormat:        domain.OutputFormatText,
		IndentWidth:         4,
		SplitConditionals:   true,
		DeadCodeElimination: true,
		RegisterPropagation: true,
		MaxPasses:           64,
		Recursive:           true,
		MaxGoroutines:       1,
	}
}

func TestDecompileUseCase_ExecuteToWriter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Counter.yaml"), []byte(counterDocument), 0o644))

	var out bytes.Buffer
	req := usecaseRequest(dir)
	req.OutputWriter = &out

	uc := NewDecompileUseCase(service.NewDecompileService(nil), nil)
	result, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, result.Response.Classes, 1)
	assert.Empty(t, result.Written)
	assert.Contains(t, out.String(), "public class Counter {\n")
	assert.Contains(t, out.String(), "while (i < n) {")
}

func TestDecompileUseCase_ExecuteToDirectory(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Counter.yaml")
	require.NoError(t, os.WriteFile(input, []byte(counterDocument), 0o644))

	req := usecaseRequest(input)
	req.OutputDir = filepath.Join(dir, "out")

	uc := NewDecompileUseCase(service.NewDecompileService(nil), nil)
	result, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	expected := filepath.Join(dir, "out", "com", "acme", "Counter.java")
	assert.Equal(t, []string{expected}, result.Written)
	data, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, result.Response.Classes[0].Source, string(data))
}

func TestDecompileUseCase_CollectsFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"A.yaml", "B.json", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("class: X\n"), 0o644))
	}

	svc := &recordingService{}
	uc, err := NewDecompileUseCaseBuilder().WithService(svc).Build()
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), usecaseRequest(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "A.yaml"), filepath.Join(dir, "B.json")}, svc.paths)
}

func TestDecompileUseCase_Errors(t *testing.T) {
	uc := NewDecompileUseCase(&recordingService{}, nil)

	_, err := uc.Execute(context.Background(), usecaseRequest())
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))

	_, err = uc.Execute(context.Background(), usecaseRequest(t.TempDir()))
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))

	_, err = uc.Execute(context.Background(), usecaseRequest(filepath.Join(t.TempDir(), "missing")))
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeFileNotFound, domain.ErrorCode(err))
}

func TestDecompileUseCase_ResolveRequest(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("output:\n  indent_width: 2\npipeline:\n  max_passes: 7\n"), 0o644))

	uc := NewDecompileUseCase(&recordingService{}, nil)
	req, err := uc.ResolveRequest(domain.DecompileRequest{
		Paths:        []string{dir},
		ConfigPath:   configFile,
		OutputFormat: domain.OutputFormatJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, req.IndentWidth)
	assert.Equal(t, 7, req.MaxPasses)
	assert.Equal(t, domain.OutputFormatJSON, req.OutputFormat)
	assert.Equal(t, []string{dir}, req.Paths)

	_, err = uc.ResolveRequest(domain.DecompileRequest{ConfigPath: filepath.Join(dir, "missing.yaml")})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConfigError, domain.ErrorCode(err))
}

func TestDecompileUseCase_DecompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.yaml")
	require.NoError(t, os.WriteFile(path, []byte("class: A\n"), 0o644))

	svc := &recordingService{}
	uc := NewDecompileUseCase(svc, nil)

	_, err := uc.DecompileFile(context.Background(), path, usecaseRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{path}, svc.paths)

	_, err = uc.DecompileFile(context.Background(), filepath.Join(dir, "A.java"), usecaseRequest())
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))

	_, err = uc.DecompileFile(context.Background(), filepath.Join(dir, "B.yaml"), usecaseRequest())
	assert.Equal(t, domain.ErrCodeFileNotFound, domain.ErrorCode(err))
}

func TestClassFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "com", "acme", "Calc.java"), ClassFilePath("out", "com.acme.Calc"))
	assert.Equal(t, filepath.Join("out", "Calc.java"), ClassFilePath("out", "Calc"))
}

func TestDecompileUseCaseBuilder_RequiresService(t *testing.T) {
	_, err := NewDecompileUseCaseBuilder().Build()
	assert.Error(t, err)
}

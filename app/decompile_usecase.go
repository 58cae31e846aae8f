package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/internal/constants"
	servicepkg "github.com/ludo-technologies/restructor/service"
)

// DecompileUseCase orchestrates the decompilation workflow
type DecompileUseCase struct {
	service      domain.DecompileService
	fileHelper   *FileHelper
	configLoader *servicepkg.ConfigurationLoaderImpl
	formatter    domain.OutputFormatter
	logger       *zap.Logger
}

// DecompileResult holds the outcome of one run
type DecompileResult struct {
	Response *domain.DecompileResponse
	Written  []string // class files written to the output directory
	Duration time.Duration
}

// NewDecompileUseCase creates a new decompile use case
func NewDecompileUseCase(service domain.DecompileService, logger *zap.Logger) *DecompileUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecompileUseCase{
		service:      service,
		fileHelper:   NewFileHelper(),
		configLoader: servicepkg.NewConfigurationLoader(),
		logger:       logger,
	}
}

// ResolveRequest loads the configuration that applies to the request and
// merges the request over it. An explicit config path wins over discovery.
func (uc *DecompileUseCase) ResolveRequest(override domain.DecompileRequest) (*domain.DecompileRequest, error) {
	var base *domain.DecompileRequest
	var err error
	switch {
	case override.ConfigPath != "":
		base, err = uc.configLoader.LoadConfig(override.ConfigPath)
	case len(override.Paths) > 0:
		base, err = uc.configLoader.LoadConfigForTarget(override.Paths[0])
	default:
		base = uc.configLoader.LoadDefaultConfig()
	}
	if err != nil {
		return nil, err
	}
	return uc.configLoader.MergeConfig(base, &override), nil
}

// Execute collects the class documents, decompiles them and writes the
// result either to the output directory or to the output writer
func (uc *DecompileUseCase) Execute(ctx context.Context, req domain.DecompileRequest) (*DecompileResult, error) {
	startTime := time.Now()

	if err := uc.configLoader.ValidateConfig(&req); err != nil {
		return nil, err
	}

	helper := *uc.fileHelper
	helper.RespectGitignore = req.RespectGitignore
	files, err := ResolveFilePaths(
		&helper,
		req.Paths,
		req.Recursive,
		req.IncludePatterns,
		req.ExcludePatterns,
	)
	if err != nil {
		return nil, domain.NewFileNotFoundError(strings.Join(req.Paths, ", "), err)
	}
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no class documents found in the specified paths", nil)
	}
	uc.logger.Debug("collected class documents", zap.Int("count", len(files)))

	req.Paths = files
	response, err := uc.service.Decompile(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &DecompileResult{Response: response}
	switch {
	case req.OutputDir != "":
		written, err := WriteClassFiles(req.OutputDir, response.Classes)
		result.Written = written
		if err != nil {
			return result, err
		}
	case req.OutputWriter != nil:
		formatter := uc.formatter
		if formatter == nil {
			formatter = &servicepkg.OutputFormatterImpl{ShowDiagnostics: req.ShowDiagnostics}
		}
		if err := formatter.Write(response, req.OutputFormat, req.OutputWriter); err != nil {
			return result, err
		}
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// DecompileFile decompiles a single class document
func (uc *DecompileUseCase) DecompileFile(ctx context.Context, filePath string, req domain.DecompileRequest) ([]domain.ClassResult, error) {
	if !uc.fileHelper.IsValidClassFile(filePath) {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("not a class document: %s", filePath), nil)
	}

	exists, err := uc.fileHelper.FileExists(filePath)
	if err != nil {
		return nil, domain.NewFileNotFoundError(filePath, err)
	}
	if !exists {
		return nil, domain.NewFileNotFoundError(filePath, fmt.Errorf("file does not exist"))
	}

	return uc.service.DecompileFile(ctx, filePath, req)
}

// ClassFilePath maps a qualified class name onto its source path below dir,
// one directory per package segment
func ClassFilePath(dir, className string) string {
	parts := strings.Split(className, ".")
	parts[len(parts)-1] += constants.SourceExtension
	return filepath.Join(append([]string{dir}, parts...)...)
}

// WriteClassFiles writes one source file per class and returns the paths
// written so far
func WriteClassFiles(dir string, classes []domain.ClassResult) ([]string, error) {
	var written []string
	for _, class := range classes {
		path := ClassFilePath(dir, class.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, domain.NewOutputError(fmt.Sprintf("failed to create %s", filepath.Dir(path)), err)
		}
		if err := os.WriteFile(path, []byte(class.Source), 0o644); err != nil {
			return written, domain.NewOutputError(fmt.Sprintf("failed to write %s", path), err)
		}
		written = append(written, path)
	}
	return written, nil
}

// DecompileUseCaseBuilder provides a builder pattern for creating DecompileUseCase
type DecompileUseCaseBuilder struct {
	service      domain.DecompileService
	fileHelper   *FileHelper
	configLoader *servicepkg.ConfigurationLoaderImpl
	formatter    domain.OutputFormatter
	logger       *zap.Logger
}

// NewDecompileUseCaseBuilder creates a new builder
func NewDecompileUseCaseBuilder() *DecompileUseCaseBuilder {
	return &DecompileUseCaseBuilder{}
}

// WithService sets the decompile service
func (b *DecompileUseCaseBuilder) WithService(service domain.DecompileService) *DecompileUseCaseBuilder {
	b.service = service
	return b
}

// WithFileHelper sets the file helper
func (b *DecompileUseCaseBuilder) WithFileHelper(fileHelper *FileHelper) *DecompileUseCaseBuilder {
	b.fileHelper = fileHelper
	return b
}

// WithConfigLoader sets the configuration loader
func (b *DecompileUseCaseBuilder) WithConfigLoader(loader *servicepkg.ConfigurationLoaderImpl) *DecompileUseCaseBuilder {
	b.configLoader = loader
	return b
}

// WithFormatter sets the output formatter
func (b *DecompileUseCaseBuilder) WithFormatter(formatter domain.OutputFormatter) *DecompileUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithLogger sets the logger
func (b *DecompileUseCaseBuilder) WithLogger(logger *zap.Logger) *DecompileUseCaseBuilder {
	b.logger = logger
	return b
}

// Build creates the DecompileUseCase with the configured dependencies
func (b *DecompileUseCaseBuilder) Build() (*DecompileUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("decompile service is required")
	}

	uc := NewDecompileUseCase(b.service, b.logger)
	if b.fileHelper != nil {
		uc.fileHelper = b.fileHelper
	}
	if b.configLoader != nil {
		uc.configLoader = b.configLoader
	}
	uc.formatter = b.formatter
	return uc, nil
}

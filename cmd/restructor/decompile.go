package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ludo-technologies/restructor/app"
	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/service"
)

type decompileOptions struct {
	configPath      string
	format          string
	outputPath      string
	outputDir       string
	debugDir        string
	indent          int
	tabs            bool
	noSplit         bool
	noDCE           bool
	noPropagation   bool
	keepUnreachable bool
	maxPasses       int
	jobs            int
	timeout         time.Duration
	include         []string
	exclude         []string
	noRecursive     bool
	noGitignore     bool
	noDiagnostics   bool
	quiet           bool
	strict          bool
}

func decompileCmd(logger func() *zap.Logger) *cobra.Command {
	opts := &decompileOptions{}

	cmd := &cobra.Command{
		Use:   "decompile [path...]",
		Short: "Decompile class documents into Java source",
		Long: `Decompile class documents (YAML or JSON) into structured Java source.

Exit codes:
  0 - Every method was processed
  1 - Error (bad input, configuration or output)
  3 - --strict was given and a method failed or needed goto fallbacks

Examples:
  restructor decompile classes/
  restructor decompile --format json Calc.yaml
  restructor decompile --output-dir src/ classes/
  restructor decompile --no-dce --no-propagation Calc.yaml
  restructor decompile --debug-dir dots/ Calc.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecompile(cmd, opts, args, logger())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, yaml")
	f.StringVarP(&opts.outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	f.StringVarP(&opts.outputDir, "output-dir", "d", "", "Write one .java file per class below this directory")
	f.StringVar(&opts.debugDir, "debug-dir", "", "Write per-stage DOT graphs of every method to this directory")
	f.IntVar(&opts.indent, "indent", 4, "Spaces per indentation level")
	f.BoolVar(&opts.tabs, "tabs", false, "Indent with tabs")
	f.BoolVar(&opts.noSplit, "no-split", false, "Keep short-circuit conditions as single branches")
	f.BoolVar(&opts.noDCE, "no-dce", false, "Disable dead code elimination")
	f.BoolVar(&opts.noPropagation, "no-propagation", false, "Disable temporary propagation")
	f.BoolVar(&opts.keepUnreachable, "keep-unreachable", false, "Render unreachable blocks instead of dropping them")
	f.IntVar(&opts.maxPasses, "max-passes", 0, "Maximum dataflow passes per method (0 = config value)")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Methods processed in parallel (0 = config value)")
	f.DurationVar(&opts.timeout, "timeout", 0, "Overall time limit, e.g. 2m (0 = config value)")
	f.StringSliceVar(&opts.include, "include", nil, "Gitignore style patterns of documents to include")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "Gitignore style patterns of documents to exclude")
	f.BoolVar(&opts.noRecursive, "no-recursive", false, "Do not descend into subdirectories")
	f.BoolVar(&opts.noGitignore, "no-gitignore", false, "Do not honor .gitignore files")
	f.BoolVar(&opts.noDiagnostics, "no-diagnostics", false, "Omit per-method diagnostics from text output")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress and the summary")
	f.BoolVar(&opts.strict, "strict", false, "Exit with code 3 when a method failed or needed goto fallbacks")

	return cmd
}

// buildOverride turns the flags into a request merged over the config.
// Only flags given on the command line override configured values.
func buildOverride(cmd *cobra.Command, opts *decompileOptions, args []string) domain.DecompileRequest {
	flags := cmd.Flags()
	override := domain.DecompileRequest{
		Paths:           args,
		OutputDir:       opts.outputDir,
		DebugDir:        opts.debugDir,
		UseTabs:         opts.tabs,
		KeepUnreachable: opts.keepUnreachable,
		MaxPasses:       opts.maxPasses,
		MaxGoroutines:   opts.jobs,
		Timeout:         opts.timeout,
		IncludePatterns: opts.include,
		ExcludePatterns: opts.exclude,
		ConfigPath:      opts.configPath,
	}
	if flags.Changed("format") {
		override.OutputFormat = domain.OutputFormat(opts.format)
	}
	if flags.Changed("indent") {
		override.IndentWidth = opts.indent
	}
	return override
}

// applyDisables turns off what the config enabled. Merging can only turn
// switches on.
func applyDisables(req *domain.DecompileRequest, opts *decompileOptions) {
	if opts.noSplit {
		req.SplitConditionals = false
	}
	if opts.noDCE {
		req.DeadCodeElimination = false
	}
	if opts.noPropagation {
		req.RegisterPropagation = false
	}
	if opts.noRecursive {
		req.Recursive = false
	}
	if opts.noGitignore {
		req.RespectGitignore = false
	}
	if opts.noDiagnostics {
		req.ShowDiagnostics = false
	}
}

func runDecompile(cmd *cobra.Command, opts *decompileOptions, args []string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	pm := service.NewProgressManager(!opts.quiet)
	defer pm.Close()

	uc := app.NewDecompileUseCase(service.NewDecompileServiceWithProgress(pm, logger), logger)
	req, err := uc.ResolveRequest(buildOverride(cmd, opts, args))
	if err != nil {
		return err
	}
	applyDisables(req, opts)

	if req.OutputDir == "" {
		out := cmd.OutOrStdout()
		if opts.outputPath != "" {
			file, err := os.Create(opts.outputPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()
			out = file
		}
		req.OutputWriter = out
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	result, err := uc.Execute(ctx, *req)
	if err != nil {
		return err
	}
	pm.Close()

	if !opts.quiet {
		renderSummary(cmd.ErrOrStderr(), result)
	}

	summary := result.Response.Summary
	if opts.strict && (summary.Failed > 0 || summary.Fallbacks > 0) {
		return &ExitError{
			Code:    3,
			Message: fmt.Sprintf("%d method(s) failed, %d needed goto fallbacks", summary.Failed, summary.Fallbacks),
		}
	}
	return nil
}

// renderSummary prints a short colored run summary
func renderSummary(w io.Writer, result *app.DecompileResult) {
	r := lipgloss.NewRenderer(w)
	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)
	okStyle := r.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	warnStyle := r.NewStyle().Foreground(lipgloss.Color("#FFD166"))
	errorStyle := r.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	faintStyle := r.NewStyle().Foreground(lipgloss.Color("#666666"))

	s := result.Response.Summary
	fmt.Fprintln(w, titleStyle.Render("restructor"))
	fmt.Fprintf(w, "%s  %d classes from %d file(s), %d methods\n",
		faintStyle.Render("input  "), s.Classes, s.FilesProcessed, s.TotalMethods)
	fmt.Fprintf(w, "%s  %s, %d empty, %s\n",
		faintStyle.Render("methods"),
		okStyle.Render(fmt.Sprintf("%d ok", s.Succeeded)),
		s.Empty,
		errorStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	if s.Fallbacks > 0 {
		fmt.Fprintf(w, "%s  %s\n", faintStyle.Render("gotos  "),
			warnStyle.Render(fmt.Sprintf("%d method(s) needed goto fallbacks", s.Fallbacks)))
	}
	if s.RemovedStatements > 0 {
		fmt.Fprintf(w, "%s  %d dead statement(s) removed\n", faintStyle.Render("dataflow"), s.RemovedStatements)
	}
	for _, e := range result.Response.Errors {
		fmt.Fprintf(w, "%s  %s\n", errorStyle.Render("error  "), e)
	}
	if len(result.Written) > 0 {
		fmt.Fprintf(w, "%s  %d file(s)\n", faintStyle.Render("written"), len(result.Written))
	}
	fmt.Fprintf(w, "%s  %s\n", faintStyle.Render("time   "), result.Duration.Round(time.Millisecond))
}

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ludo-technologies/restructor/internal/analyzer"
	"github.com/ludo-technologies/restructor/internal/ir"
	"github.com/ludo-technologies/restructor/internal/loader"
	"github.com/ludo-technologies/restructor/internal/pipeline"
	"github.com/ludo-technologies/restructor/service"
)

const stageTree = "tree"

type graphOptions struct {
	configPath string
	method     string
	stage      string
	outputPath string
	rankDir    string
	noStmts    bool
}

func graphCmd(logger func() *zap.Logger) *cobra.Command {
	opts := &graphOptions{}

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Print a method's control flow graph in DOT format",
		Long: `Run one method through the pipeline and print its control flow graph as it
looks after the chosen stage, or its structured tree.

Stages: build, simplify, split, dataflow, final, tree

Examples:
  restructor graph Calc.yaml --method sum
  restructor graph Calc.yaml --method com.acme.Calc.sum --stage build
  restructor graph Calc.yaml --method sum --stage tree | dot -Tsvg > sum.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, opts, args[0], logger())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	f.StringVarP(&opts.method, "method", "m", "", "Method name or qualified name (required)")
	f.StringVarP(&opts.stage, "stage", "s", string(pipeline.StageFinal), "Stage to capture")
	f.StringVarP(&opts.outputPath, "output", "o", "", "Write the graph to a file instead of stdout")
	f.StringVar(&opts.rankDir, "rankdir", "TB", "Graph direction: TB, LR, BT, RL")
	f.BoolVar(&opts.noStmts, "no-statements", false, "Show only block labels")
	_ = cmd.MarkFlagRequired("method")

	return cmd
}

// stageCapture renders the graph or tree of one stage as it is observed,
// before later stages rewrite it
type stageCapture struct {
	stage     string
	formatter *service.DOTFormatter
	buf       bytes.Buffer
	seen      bool
	err       error
}

func (c *stageCapture) ObserveGraph(method *ir.Method, stage pipeline.Stage, g *analyzer.Graph) {
	if string(stage) != c.stage {
		return
	}
	c.seen = true
	c.err = c.formatter.WriteGraph(g, fmt.Sprintf("%s (%s)", method.Identity(), stage), &c.buf)
}

func (c *stageCapture) ObserveTree(method *ir.Method, tree *analyzer.Sequence) {
	if c.stage != stageTree {
		return
	}
	c.seen = true
	c.err = c.formatter.WriteTree(tree, method.Identity(), &c.buf)
}

func validStage(stage string) bool {
	if stage == stageTree {
		return true
	}
	for _, s := range pipeline.Stages {
		if string(s) == stage {
			return true
		}
	}
	return false
}

// findMethod looks a method up by simple or qualified name
func findMethod(classes []*ir.Class, name string) (*ir.Method, error) {
	var names []string
	for _, class := range classes {
		for _, m := range class.Methods {
			if m.Name == name || m.Identity() == name {
				return m, nil
			}
			names = append(names, m.Identity())
		}
	}
	return nil, fmt.Errorf("method %q not found (available: %s)", name, strings.Join(names, ", "))
}

func runGraph(cmd *cobra.Command, opts *graphOptions, path string, logger *zap.Logger) error {
	if !validStage(opts.stage) {
		return fmt.Errorf("unknown stage %q", opts.stage)
	}

	classes, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	method, err := findMethod(classes, opts.method)
	if err != nil {
		return err
	}

	loaderSvc := service.NewConfigurationLoader()
	req := loaderSvc.LoadDefaultConfig()
	if opts.configPath != "" {
		if req, err = loaderSvc.LoadConfig(opts.configPath); err != nil {
			return err
		}
	} else if found, err := loaderSvc.LoadConfigForTarget(path); err == nil {
		req = found
	}

	capture := &stageCapture{
		stage: opts.stage,
		formatter: service.NewDOTFormatter(&service.DOTFormatterConfig{
			ShowStatements: !opts.noStmts,
			ShowRanges:     true,
			RankDir:        opts.rankDir,
		}),
	}
	pipelineOpts := service.PipelineOptions(req, logger)
	pipelineOpts.Observer = capture

	res := pipeline.Run(commandContext(cmd), method, pipelineOpts)
	if capture.err != nil {
		return capture.err
	}
	if !capture.seen {
		if res.Err != nil {
			return fmt.Errorf("%s failed before stage %s: %w", method.Identity(), opts.stage, res.Err)
		}
		return fmt.Errorf("stage %s was not reached for %s", opts.stage, method.Identity())
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.outputPath != "" {
		file, err := os.Create(opts.outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}
	_, err = capture.buf.WriteTo(out)
	return err
}

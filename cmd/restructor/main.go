package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ludo-technologies/restructor/internal/constants"
	"github.com/ludo-technologies/restructor/internal/version"
)

// ExitError carries a process exit code out of a command
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   constants.ToolName,
		Short: "restructor - rebuilds structured Java source from decoded method graphs",
		Long: `restructor turns decoded class documents into readable Java source.
Each method's basic blocks are simplified, cleaned by dataflow analysis and
restructured into loops, conditionals, switches and try/catch blocks.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level: debug, info, warn, error")

	logger := func() *zap.Logger {
		l, err := newLogger(logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			return zap.NewNop()
		}
		return l
	}

	rootCmd.AddCommand(decompileCmd(logger))
	rootCmd.AddCommand(graphCmd(logger))
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// commandContext returns the context of a running command
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLogger builds a console logger writing to stderr
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", constants.ToolName, version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}

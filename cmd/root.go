// Package cmd implements the symrw command line.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gnoswap-labs/symrw"
	"github.com/gnoswap-labs/symrw/internal/config"
	"github.com/gnoswap-labs/symrw/internal/library"
	"github.com/gnoswap-labs/symrw/internal/report"
)

// app carries what PersistentPreRunE builds for the subcommands.
type app struct {
	settingsFile string
	settings     *Settings
	logger       *zap.Logger
	engine       *symrw.Engine
}

// NewRootCommand builds the symrw command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "symrw",
		Short:         "symrw - parse, print and rewrite symbolic expressions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.settingsFile, "config", "", "settings file (default .symrw.yaml in the working or home directory)")
	flags.String("table", "", "operator table YAML (default: built-in table)")
	flags.String("mode", report.ModePrint.String(), "diagnostic mode: print, raise or silent")
	flags.Duration("timeout", defaultTimeout, "timeout for the whole run")
	flags.Int("max-steps", 0, "rewrite step budget per statement (default from settings)")
	flags.Bool("fold-literals", true, "read -3 and 1/2 as number literals")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(newParseCommand(a))
	root.AddCommand(newRewriteCommand(a))
	root.AddCommand(newInitCommand())
	return root
}

// Execute runs the command line and prints a failing command's error.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil && !errors.Is(err, errFailed) {
		fmt.Fprintln(root.ErrOrStderr(), errorStyle.Sprint("error: ")+err.Error())
	}
	return err
}

func (a *app) setup(cmd *cobra.Command) error {
	s, err := LoadSettings(a.settingsFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.settings = s

	logger, err := newLogger(s.Verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger

	mode, err := report.ParseMode(s.Mode)
	if err != nil {
		return err
	}
	opts := []symrw.Option{
		symrw.WithLogger(logger),
		symrw.WithMode(mode),
		symrw.WithMaxSteps(s.MaxSteps),
	}
	if s.Table != "" {
		table, err := config.Load(s.Table)
		if err != nil {
			return fmt.Errorf("load operator table: %w", err)
		}
		opts = append(opts, symrw.WithTable(table))
	}
	if s.FoldLiterals {
		opts = append(opts, symrw.WithPostProcess(library.FoldLiterals))
	}

	a.engine, err = symrw.New(opts...)
	return err
}

func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, a.settings.Timeout)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

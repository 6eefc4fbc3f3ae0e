package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw"
	"github.com/gnoswap-labs/symrw/batch"
	"github.com/gnoswap-labs/symrw/internal/rewrite"
)

func newRewriteCommand(a *app) *cobra.Command {
	var (
		ruleName string
		cacheDir string
		watch    bool
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "rewrite [paths...]",
		Short: "Rewrite every statement of the given files to a fixpoint",
		Long: `Rewrite every statement of the given files, or of the .sym and .expr
files under the given directories, until the rule no longer changes it.

The rule is read from --rules when set, otherwise the built-in rule named
by --rule is used. With --cache, files whose content, rule file, operator
table and rewrite settings are unchanged since a previous clean run are not
rewritten again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := a.rule(ruleName)
			if err != nil {
				return err
			}
			processor := batch.Rewriter(a.engine, rule)
			if cacheDir != "" || watch {
				dir := cacheDir
				if dir != "" && a.settings.Rules == "" {
					// one cache per built-in rule
					dir = filepath.Join(dir, ruleName)
				}
				cache, err := batch.NewCache(dir, a.cacheKey(ruleName), a.settings.Rules, a.settings.Table)
				if err != nil {
					return err
				}
				processor = batch.Cached(cache, processor)
			}

			if watch {
				return a.watch(cmd, args, processor, jsonOut)
			}

			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			var progress io.Writer
			if !jsonOut {
				progress = cmd.ErrOrStderr()
			}
			results, err := batch.ProcessFiles(ctx, a.logger, args, processor, progress)
			if err != nil {
				a.logger.Error("Error processing files", zap.Error(err))
				return err
			}
			return a.print(cmd, results, jsonOut)
		},
	}
	flags := cmd.Flags()
	flags.String("rules", "", "rule file (YAML) to rewrite with")
	flags.StringVar(&ruleName, "rule", symrw.RuleSimplify, "built-in rule to rewrite with when no rule file is given")
	flags.StringVar(&cacheDir, "cache", "", "directory to keep rewrite results in between runs")
	flags.BoolVarP(&watch, "watch", "w", false, "rewrite files again whenever they change")
	flags.BoolVar(&jsonOut, "json", false, "print results as JSON")
	return cmd
}

func (a *app) rule(name string) (rewrite.Rule, error) {
	if a.settings.Rules != "" {
		r, err := a.engine.LoadRules(a.settings.Rules)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		return r, nil
	}
	r := a.engine.Rule(name)
	if r == nil {
		return nil, fmt.Errorf("unknown rule %q (available: %s)", name, strings.Join(a.engine.RuleNames(), ", "))
	}
	return r, nil
}

// cacheKey lists the settings that change what a rewrite prints.
func (a *app) cacheKey(ruleName string) string {
	s := a.settings
	if s.Rules != "" {
		ruleName = s.Rules
	}
	return fmt.Sprintf("rule=%s max-steps=%d fold-literals=%t mode=%s",
		ruleName, s.MaxSteps, s.FoldLiterals, s.Mode)
}

func (a *app) print(cmd *cobra.Command, results []*batch.FileResult, jsonOut bool) error {
	failed := false
	for _, res := range results {
		if res.Err != nil {
			failed = true
		}
	}
	if jsonOut {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		for _, res := range results {
			if res.Err != nil {
				printError(cmd.ErrOrStderr(), res.Path, res.Source, res.Err)
			}
		}
	} else {
		for _, res := range results {
			printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

// watch prints an initial pass and then every change until interrupted.
// The timeout does not apply.
func (a *app) watch(cmd *cobra.Command, paths []string, processor batch.Processor, jsonOut bool) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := batch.ProcessFiles(ctx, a.logger, paths, processor, nil)
	if err != nil {
		return err
	}
	_ = a.print(cmd, results, jsonOut)

	a.logger.Info("Watching for changes", zap.Strings("paths", paths))
	return batch.Watch(ctx, a.logger, paths, processor, func(res *batch.FileResult, err error) {
		if err != nil {
			a.logger.Error("Error processing file", zap.Error(err))
			return
		}
		_ = a.print(cmd, []*batch.FileResult{res}, jsonOut)
	})
}

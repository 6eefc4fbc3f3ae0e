package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/symrw/internal/expr"
)

func newParseCommand(a *app) *cobra.Command {
	var tree bool
	cmd := &cobra.Command{
		Use:   "parse [expr...]",
		Short: "Parse expressions and print them back",
		Long: `Parse every argument as source text and print each statement in its
shortest form. With no arguments, standard input is read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			type input struct{ name, src string }
			var inputs []input
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				inputs = append(inputs, input{"<stdin>", string(data)})
			}
			for i, arg := range args {
				inputs = append(inputs, input{fmt.Sprintf("<arg %d>", i+1), arg})
			}

			out := cmd.OutOrStdout()
			failed := false
			for _, in := range inputs {
				trees, err := a.engine.Parse(in.src)
				if err != nil {
					failed = true
					printError(cmd.ErrOrStderr(), in.name, in.src, err)
				}
				for _, t := range trees {
					if expr.IsNull(t) {
						continue
					}
					fmt.Fprintln(out, resultStyle.Sprint(a.engine.String(t)))
					if tree {
						fmt.Fprintln(out, "  "+treeStyle.Sprint(strings.TrimSpace(t.String())))
					}
				}
			}
			if failed {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&tree, "tree", "t", true, "print the debug tree under each statement")
	return cmd
}

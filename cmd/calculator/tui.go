package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/calculator/internal/config"
	"github.com/zephyrtronium/calculator/internal/tui"
)

type tuiFlags struct {
	theme   string
	right   bool
	reverse bool
}

func newTUICmd(a *app) *cobra.Command {
	var f tuiFlags
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive calculator",
		Long: `Tui runs the interactive calculator. Type an expression and press enter
or = to evaluate it. ctrl+t changes the theme, ctrl+r moves the operator
keys, ctrl+o reverses the keypad, ctrl+l clears, and esc quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("theme") {
				f.theme = a.cfg.TUI.Theme
			}
			if !flags.Changed("right") {
				f.right = a.cfg.TUI.AlignRight
			}
			if !flags.Changed("reverse") {
				f.reverse = a.cfg.TUI.Reverse
			}
			if a.server == "" && a.cfg.TUI.Server {
				a.server = a.cfg.Client.Addr
			}
			return a.runTUI(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.theme, "theme", "", fmt.Sprintf("color theme %v", config.Themes))
	cmd.Flags().BoolVar(&f.right, "right", false, "put the operator keys on the left of the keypad")
	cmd.Flags().BoolVar(&f.reverse, "reverse", false, "put the zero row at the top of the keypad")
	return cmd
}

// runTUI runs the interactive calculator. If the server cannot be reached,
// it evaluates locally instead.
func (a *app) runTUI(ctx context.Context, f tuiFlags) error {
	eval, closer, err := a.backend(ctx, "tui")
	remote := a.server
	if err != nil {
		a.log.Info().Err(err).Msg("Using built-in calculator")
		a.server = ""
		remote = ""
		eval, closer, err = a.backend(ctx, "tui")
		if err != nil {
			return err
		}
	}
	defer closer.Close()
	cfg := tui.Config{
		Eval:       tui.EvalFunc(eval),
		Theme:      f.theme,
		AlignRight: f.right,
		Reverse:    f.reverse,
		Remote:     remote,
		Log:        a.log,
	}
	return tui.Run(ctx, cfg)
}

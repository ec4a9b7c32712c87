package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/calculator/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit   int
		errs    bool
		session string
		since   time.Duration
		prune   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluations",
		Long: `History lists evaluations recorded by the calculator, newest first.
Recording is enabled with history.enabled in the config file or with
"serve --history".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.cfg.History.Enabled = true
			store, err := a.history()
			if err != nil {
				return err
			}
			if prune > 0 {
				n, err := store.Prune(ctx, prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "pruned %d evaluations\n", n)
				return nil
			}
			if limit < 0 {
				return errors.New("limit must not be negative")
			}
			f := history.Filter{Session: session, ErrorsOnly: errs, Limit: limit}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}
			entries, err := store.Query(ctx, f)
			if err != nil {
				return err
			}
			red := color.New(color.FgRed)
			for _, e := range entries {
				fmt.Fprintf(a.stdout, "%s  %-9s  %s = ", e.Time.Local().Format(time.DateTime), e.Source, e.Input)
				if e.Kind != "" {
					red.Fprintln(a.stdout, e.Output)
				} else {
					fmt.Fprintln(a.stdout, e.Output)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "number of evaluations to list")
	f.BoolVar(&errs, "errors", false, "list only failed evaluations")
	f.StringVar(&session, "session", "", "list only evaluations from one session")
	f.DurationVar(&since, "since", 0, "list only evaluations within this long ago")
	f.DurationVar(&prune, "prune", 0, "delete evaluations older than this instead of listing")
	return cmd
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/calculator/internal/client"
	"github.com/zephyrtronium/calculator/internal/protocol"
)

// evalFunc produces the display result for an expression. Errors are
// failures to produce any result at all.
type evalFunc func(ctx context.Context, expr string) (string, error)

// backend returns the evaluator for the command: the server at a.server if
// one is set, or a local evaluator otherwise.
func (a *app) backend(ctx context.Context, source string) (evalFunc, io.Closer, error) {
	if a.server != "" {
		c, err := client.Dial(ctx, a.server, a.log, client.MessageLimit(a.cfg.Client.BufferSize))
		if err != nil {
			return nil, nil, err
		}
		timeout := a.cfg.Client.Timeout.Duration
		f := func(ctx context.Context, expr string) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return c.Send(ctx, expr)
		}
		return f, c, nil
	}
	ev := a.evaluator()
	f := func(ctx context.Context, expr string) (string, error) {
		r, err := ev.Result(expr)
		a.record(ctx, source, expr, r, err)
		return r, nil
	}
	return f, closerFunc(func() error { return nil }), nil
}

// evalAll evaluates each expression and prints its result.
func (a *app) evalAll(ctx context.Context, exprs []string) error {
	eval, closer, err := a.backend(ctx, "cli")
	if err != nil {
		return err
	}
	defer closer.Close()
	failed := false
	for _, expr := range exprs {
		r, err := eval(ctx, expr)
		if err != nil {
			return err
		}
		failed = !a.printResult(r) || failed
	}
	if failed {
		return errFailed
	}
	return nil
}

// evalLines evaluates each non-blank line of r.
func (a *app) evalLines(ctx context.Context, r io.Reader) error {
	var exprs []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, protocol.MaxMessageSize), 64*protocol.MaxMessageSize)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		exprs = append(exprs, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return a.evalAll(ctx, exprs)
}

func newEvalCmd(a *app) *cobra.Command {
	var inname string
	cmd := &cobra.Command{
		Use:   "eval [expression...]",
		Short: "Evaluate expressions and print their results",
		Long: `Eval evaluates each argument as an expression. With --file, or with no
arguments, each non-blank line of the input is evaluated instead.`,
		Example: `  calculator eval "2+3*4" "(2+3)*4"
  calculator eval -f expressions.txt
  echo "4/3" | calculator eval`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := infile(a.stdin, inname, len(args) == 0)
			if err != nil {
				return err
			}
			if in != nil {
				defer in.Close()
				if err := a.evalLines(cmd.Context(), in); err != nil {
					return err
				}
			}
			if len(args) == 0 {
				return nil
			}
			return a.evalAll(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVarP(&inname, "file", "f", "", `read expressions from a file, one per line ("-" for stdin)`)
	return cmd
}

// infile opens the named input, or stdin if the name is "-" or std is set.
func infile(stdin io.Reader, inname string, std bool) (io.ReadCloser, error) {
	switch {
	case inname != "" && inname != "-":
		f, err := os.Open(inname)
		if err != nil {
			return nil, err
		}
		return f, nil
	case inname == "-", std:
		return io.NopCloser(stdin), nil
	}
	return nil, nil
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send expression...",
		Short: "Send expressions to a calculator server",
		Long: `Send evaluates each argument on a calculator server, by default the
configured client address.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.server == "" {
				a.server = a.cfg.Client.Addr
			}
			return a.evalAll(cmd.Context(), args)
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zephyrtronium/calculator"
	"github.com/zephyrtronium/calculator/internal/config"
	"github.com/zephyrtronium/calculator/internal/history"
	"github.com/zephyrtronium/calculator/internal/logging"
)

// errFailed reports that at least one evaluation failed. Its results have
// already been printed.
var errFailed = errors.New("evaluation failed")

// app holds the state shared by all commands.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	logLevel   string
	logFile    string
	verbose    bool
	input      string
	server     string

	cfg     *config.Config
	log     zerolog.Logger
	session string
	store   *history.Store
	closers []io.Closer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		log:     zerolog.Nop(),
		session: uuid.NewString(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "calculator",
		Short: "Evaluate arithmetic expressions",
		Long: `Calculator evaluates arithmetic expressions with + - * /, parentheses and
signs, e.g. "2+3*4" or "-4*((-5+3)/7)".

With --input, the expression is evaluated and the result printed. With no
input, the interactive calculator starts when stdin is a terminal; otherwise
each line of stdin is evaluated. --server sends expressions to a calculator
server instead of evaluating them locally.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		RunE:              a.runRoot,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (TOML, or YAML with .yaml/.yml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFile, "log-file", "", `log file (default "`+logging.DefaultFile+`", "-" disables)`)
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "also log to stderr")
	pf.StringVarP(&a.server, "server", "s", "", "calculator server address")
	root.Flags().StringVarP(&a.input, "input", "i", "", "expression to evaluate")

	root.AddCommand(
		newEvalCmd(a),
		newSendCmd(a),
		newServeCmd(a),
		newTUICmd(a),
		newHistoryCmd(a),
	)
	return root
}

// setup loads configuration and opens the log.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Log.File = a.logFile
		if a.logFile == "-" {
			cfg.Log.File = ""
		}
	}
	if a.verbose {
		cfg.Log.Console = true
	}
	a.cfg = cfg

	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Service: "calculator"}
	if cfg.Log.Console {
		opts.Console = a.stderr
	}
	log, closer, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.log = log.With().Str("session", a.session).Logger()
	a.closers = append(a.closers, closer)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}

func (a *app) evaluator() *calculator.Evaluator {
	return calculator.New(calculator.Logger(a.log))
}

// history opens the evaluation history if it is enabled.
func (a *app) history() (*history.Store, error) {
	if a.store != nil || !a.cfg.History.Enabled {
		return a.store, nil
	}
	s, err := history.Open(a.cfg.History.Path)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, s)
	return s, nil
}

// record adds an evaluation to the history, if it is enabled.
func (a *app) record(ctx context.Context, source, input, output string, err error) {
	s, herr := a.history()
	if herr != nil {
		a.log.Warn().Err(herr).Msg("failed to open history")
		return
	}
	if s == nil {
		return
	}
	e := history.Entry{Session: a.session, Source: source, Input: input, Output: output}
	if err != nil {
		e.Kind = calculator.KindOf(err).String()
	}
	if err := s.Record(ctx, &e); err != nil {
		a.log.Warn().Err(err).Msg("failed to record evaluation")
	}
}

// printResult prints a result, in red on stderr if it is an error, and
// reports whether it was a success.
func (a *app) printResult(result string) bool {
	if calculator.IsError(result) {
		color.New(color.FgRed).Fprintln(a.stderr, result)
		return false
	}
	fmt.Fprintln(a.stdout, result)
	return true
}

func (a *app) runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if a.input != "" {
		return a.evalAll(ctx, []string{a.input})
	}
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return a.runTUI(ctx, tuiFlags{theme: a.cfg.TUI.Theme, right: a.cfg.TUI.AlignRight, reverse: a.cfg.TUI.Reverse})
	}
	return a.evalLines(ctx, a.stdin)
}

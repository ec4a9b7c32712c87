package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/calculator/internal/config"
	"github.com/zephyrtronium/calculator/internal/logging"
	"github.com/zephyrtronium/calculator/internal/server"
	"github.com/zephyrtronium/calculator/internal/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host      string
		port      int
		sessions  int
		websocket string
		history   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calculator server",
		Long: `Serve accepts connections and answers each line with the result of
evaluating it. A WebSocket endpoint is served at /ws on the --websocket
address if one is given. The log level is reloaded when the config file
changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg := a.cfg.Server
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("max-sessions") {
				cfg.MaxSessions = sessions
			}
			if flags.Changed("websocket") {
				cfg.WebSocket = websocket
			}
			if flags.Changed("history") {
				a.cfg.History.Enabled = history
			}
			return a.serve(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&host, "host", "", "address to listen on (default from config, 0.0.0.0)")
	f.IntVar(&port, "port", 0, "port to listen on (default from config, 8000)")
	f.IntVar(&sessions, "max-sessions", 0, "connections served at once (default from config, 1)")
	f.StringVar(&websocket, "websocket", "", "address for the WebSocket endpoint")
	f.BoolVar(&history, "history", false, "record evaluations in the history database")
	return cmd
}

func (a *app) serve(ctx context.Context, cfg config.ServerConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracer("calculator", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	opts := []server.Option{
		server.Logger(a.log),
		server.Evaluator(a.evaluator()),
	}
	store, err := a.history()
	if err != nil {
		return err
	}
	if store != nil {
		opts = append(opts, server.History(store))
	}
	srv := server.New(cfg, opts...)
	defer srv.Close()

	if a.configPath != "" {
		err := config.Watch(ctx, a.configPath, a.log, func(c *config.Config) {
			srv.SetLogLevel(logging.ParseLevel(c.Log.Level))
		})
		if err != nil {
			a.log.Warn().Err(err).Msg("config reload disabled")
		}
	}

	a.log.Info().Str("addr", cfg.Addr()).Msg("starting server")
	err = srv.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, server.ErrServerClosed) {
		a.log.Info().Msg("server stopped")
		return nil
	}
	return err
}

// Package server serves calculator evaluations over TCP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zephyrtronium/calculator"
	"github.com/zephyrtronium/calculator/internal/config"
	"github.com/zephyrtronium/calculator/internal/history"
	"github.com/zephyrtronium/calculator/internal/protocol"
)

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("server closed")

// Recorder stores evaluations.
type Recorder interface {
	Record(ctx context.Context, e *history.Entry) error
}

// Server evaluates one expression per message for each connected client.
type Server struct {
	cfg    config.ServerConfig
	eval   *calculator.Evaluator
	log    atomic.Pointer[zerolog.Logger]
	hist   Recorder
	cache  *cache
	tracer trace.Tracer
	// sem limits concurrent sessions.
	sem chan struct{}

	mu        sync.Mutex
	listeners map[io.Closer]struct{}
	conns     map[io.Closer]struct{}
	closed    bool
	wg        sync.WaitGroup
}

// Option is an option used when creating a Server.
type Option interface {
	serverOption(*Server)
}

type logopt zerolog.Logger

func (o logopt) serverOption(s *Server) {
	l := zerolog.Logger(o)
	s.log.Store(&l)
}

// Logger sets the server's logger.
func Logger(l zerolog.Logger) Option {
	return logopt(l)
}

type evalopt struct{ e *calculator.Evaluator }

func (o evalopt) serverOption(s *Server) { s.eval = o.e }

// Evaluator sets the evaluator used for requests.
func Evaluator(e *calculator.Evaluator) Option {
	return evalopt{e}
}

type histopt struct{ r Recorder }

func (o histopt) serverOption(s *Server) { s.hist = o.r }

// History records every evaluation in r.
func History(r Recorder) Option {
	return histopt{r}
}

type traceopt struct{ t trace.Tracer }

func (o traceopt) serverOption(s *Server) { s.tracer = o.t }

// Tracer sets the tracer for request spans. The default uses the global
// tracer provider.
func Tracer(t trace.Tracer) Option {
	return traceopt{t}
}

// New creates a server. Zero values in cfg take the defaults of
// config.Default.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	def := config.Default().Server
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	s := &Server{
		cfg:       cfg,
		eval:      calculator.New(),
		cache:     newCache(cfg.CacheSize),
		tracer:    otel.Tracer("github.com/zephyrtronium/calculator/internal/server"),
		sem:       make(chan struct{}, cfg.MaxSessions),
		listeners: make(map[io.Closer]struct{}),
		conns:     make(map[io.Closer]struct{}),
	}
	nop := zerolog.Nop()
	s.log.Store(&nop)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.serverOption(s)
	}
	return s
}

func (s *Server) logger() *zerolog.Logger {
	return s.log.Load()
}

// SetLogLevel changes the minimum level of the server's logger.
func (s *Server) SetLogLevel(level zerolog.Level) {
	l := s.logger().Level(level)
	s.log.Store(&l)
}

// Handle evaluates one request and returns the response. session and source
// identify the request in logs, traces and history.
func (s *Server) Handle(ctx context.Context, session, source, expr string) string {
	ctx, span := s.tracer.Start(ctx, "calculator.evaluate", trace.WithAttributes(
		attribute.String("calculator.session", session),
		attribute.String("calculator.source", source),
		attribute.Int("calculator.input_length", len(expr)),
	))
	defer span.End()

	result, kind, hit := s.cache.get(expr)
	if !hit {
		var err error
		result, err = s.eval.Result(expr)
		if err != nil {
			kind = calculator.KindOf(err).String()
		}
		s.cache.put(expr, result, kind)
	}
	span.SetAttributes(attribute.Bool("calculator.cache_hit", hit))
	if kind != "" {
		span.SetAttributes(attribute.String("calculator.error_kind", kind))
		span.SetStatus(codes.Error, result)
	}

	if s.hist != nil {
		e := history.Entry{Session: session, Source: source, Input: expr, Output: result, Kind: kind}
		if err := s.hist.Record(ctx, &e); err != nil {
			s.logger().Warn().Err(err).Str("session", session).Msg("failed to record evaluation")
		}
	}
	return result
}

// ListenAndServe listens on the configured TCP address, and on the
// WebSocket address if one is set, and serves until ctx is done or the
// server is closed.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	if s.cfg.WebSocket != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", s.Handler())
		hs := &http.Server{Addr: s.cfg.WebSocket, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			s.logger().Info().Str("addr", s.cfg.WebSocket).Msg("WebSocket endpoint listening")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger().Error().Err(err).Msg("WebSocket endpoint failed")
			}
		}()
		defer hs.Close()
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or the server is
// closed. At most MaxSessions connections are served at once; further
// connections wait in the listener's backlog. Serve closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.track(ln, s.listeners, false) {
		ln.Close()
		return ErrServerClosed
	}
	defer s.untrack(ln, s.listeners, false)
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	log := s.logger()
	log.Info().Str("addr", ln.Addr().String()).Int("max_sessions", s.cfg.MaxSessions).Msg("listening")
	for {
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		conn, err := ln.Accept()
		if err != nil {
			<-s.sem
			switch {
			case s.isClosed():
				return ErrServerClosed
			case ctx.Err() != nil:
				return ctx.Err()
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}
		if !s.track(conn, s.conns, true) {
			<-s.sem
			conn.Close()
			return ErrServerClosed
		}
		go func() {
			defer func() { <-s.sem }()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	log := s.logger().With().Str("session", id).Str("remote", conn.RemoteAddr().String()).Logger()
	log.Info().Msg("Accepted connection")
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer func() {
		conn.Close()
		log.Info().Msg("Closed connection")
		s.untrack(conn, s.conns, true)
	}()

	r := protocol.NewReader(conn, s.cfg.BufferSize)
	for {
		if d := s.cfg.IdleTimeout.Duration; d > 0 {
			conn.SetReadDeadline(time.Now().Add(d))
		}
		msg, err := r.ReadMessage()
		var resp string
		var serr *protocol.SizeError
		switch {
		case err == nil:
			log.Info().Str("data", msg).Msg("Received")
			resp = s.Handle(ctx, id, "tcp", msg)
		case errors.As(err, &serr):
			log.Warn().Err(err).Msg("rejected message")
			resp = calculator.ErrorPrefix + serr.Error()
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return
		default:
			log.Debug().Err(err).Msg("read failed")
			return
		}
		if err := protocol.WriteMessage(conn, resp); err != nil {
			log.Error().Err(err).Msg("write failed")
			return
		}
		log.Info().Str("result", resp).Msg("Sent")
	}
}

// Close stops all listeners, closes all connections, and waits for their
// sessions to end.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for ln := range s.listeners {
		ln.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// track adds c to m unless the server is closed. Sessions are also counted
// in wg so that Close can wait for them.
func (s *Server) track(c io.Closer, m map[io.Closer]struct{}, session bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	m[c] = struct{}{}
	if session {
		s.wg.Add(1)
	}
	return true
}

func (s *Server) untrack(c io.Closer, m map[io.Closer]struct{}, session bool) {
	s.mu.Lock()
	delete(m, c)
	s.mu.Unlock()
	if session {
		s.wg.Done()
	}
}

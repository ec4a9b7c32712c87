package server_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zephyrtronium/calculator/internal/config"
	"github.com/zephyrtronium/calculator/internal/history"
	"github.com/zephyrtronium/calculator/internal/server"
)

type recorder struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (r *recorder) Record(ctx context.Context, e *history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return r.err
}

func (r *recorder) all() []history.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.Entry(nil), r.entries...)
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// start serves srv on a loopback listener and returns its address.
func start(t *testing.T, srv *server.Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		assert.ErrorIs(t, <-errc, server.ErrServerClosed)
	})
	return ln.Addr().String()
}

type conn struct {
	net.Conn
	r *bufio.Reader
}

func dial(t *testing.T, addr string) *conn {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return &conn{Conn: c, r: bufio.NewReader(c)}
}

func (c *conn) roundTrip(t *testing.T, msg string) string {
	t.Helper()
	_, err := c.Write([]byte(msg + "\n"))
	require.NoError(t, err)
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func TestServe(t *testing.T) {
	addr := start(t, server.New(config.ServerConfig{}))
	c := dial(t, addr)
	cases := []struct {
		in, want string
	}{
		{"2+3*4", "14.0"},
		{"(2+3)*4", "20.0"},
		{"-5+3", "-2.0"},
		{"3-(4-2)", "1.0"},
		{"4/3", "1.3333333333333333"},
		{"8/0", "Error: division by zero at column 2"},
		{"1+(2", "Error: open parenthesis with no close parenthesis at column 3"},
		{"", "Error: no expression at column 1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.roundTrip(t, tc.in), tc.in)
	}
}

func TestServeOversize(t *testing.T) {
	addr := start(t, server.New(config.ServerConfig{BufferSize: 32}))
	c := dial(t, addr)
	assert.Equal(t, "Error: message exceeds 32 bytes", c.roundTrip(t, strings.Repeat("1+", 40)+"1"))
	assert.Equal(t, "3.0", c.roundTrip(t, "1+2"))
}

func TestServeSequentialSessions(t *testing.T) {
	addr := start(t, server.New(config.ServerConfig{MaxSessions: 1}))
	first := dial(t, addr)
	assert.Equal(t, "2.0", first.roundTrip(t, "1+1"))

	second := dial(t, addr)
	_, err := second.Write([]byte("2+2\n"))
	require.NoError(t, err)
	second.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = second.r.ReadString('\n')
	var ne net.Error
	require.True(t, errors.As(err, &ne) && ne.Timeout(), "second session was served early: %v", err)

	first.Close()
	second.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := second.r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "4.0\n", line)
}

func TestServeConcurrentSessions(t *testing.T) {
	addr := start(t, server.New(config.ServerConfig{MaxSessions: 4}))
	a := dial(t, addr)
	b := dial(t, addr)
	assert.Equal(t, "2.0", a.roundTrip(t, "1+1"))
	assert.Equal(t, "4.0", b.roundTrip(t, "2+2"))
	assert.Equal(t, "6.0", a.roundTrip(t, "3+3"))
}

func TestServeContext(t *testing.T) {
	srv := server.New(config.ServerConfig{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()
	c := dial(t, ln.Addr().String())
	assert.Equal(t, "2.0", c.roundTrip(t, "1+1"))
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	require.NoError(t, srv.Close())
}

func TestServeAfterClose(t *testing.T) {
	srv := server.New(config.ServerConfig{})
	require.NoError(t, srv.Close())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, srv.Serve(context.Background(), ln), server.ErrServerClosed)
}

func TestHandleHistory(t *testing.T) {
	rec := &recorder{}
	srv := server.New(config.ServerConfig{CacheSize: 8}, server.History(rec))
	ctx := context.Background()
	assert.Equal(t, "14.0", srv.Handle(ctx, "s1", "test", "2+3*4"))
	assert.Equal(t, "14.0", srv.Handle(ctx, "s1", "test", "2+3*4"))
	assert.Equal(t, "Error: division by zero at column 2", srv.Handle(ctx, "s2", "test", "8/0"))

	got := rec.all()
	require.Len(t, got, 3)
	assert.Equal(t, "s1", got[0].Session)
	assert.Equal(t, "test", got[0].Source)
	assert.Equal(t, "2+3*4", got[1].Input)
	assert.Empty(t, got[1].Kind)
	assert.Equal(t, "arithmetic", got[2].Kind)
}

func TestHandleHistoryFailure(t *testing.T) {
	var buf syncBuffer
	rec := &recorder{err: errors.New("disk full")}
	srv := server.New(config.ServerConfig{}, server.History(rec), server.Logger(zerolog.New(&buf)))
	assert.Equal(t, "2.0", srv.Handle(context.Background(), "s", "test", "1+1"))
	assert.Contains(t, buf.String(), "disk full")
}

func TestHandleSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())
	srv := server.New(config.ServerConfig{CacheSize: 4}, server.Tracer(tp.Tracer("test")))
	srv.Handle(context.Background(), "s", "test", "1+1")
	srv.Handle(context.Background(), "s", "test", "1+1")
	srv.Handle(context.Background(), "s", "test", "1/0")

	spans := sr.Ended()
	require.Len(t, spans, 3)
	attrs := func(i int) map[string]string {
		m := make(map[string]string)
		for _, kv := range spans[i].Attributes() {
			m[string(kv.Key)] = kv.Value.Emit()
		}
		return m
	}
	assert.Equal(t, "calculator.evaluate", spans[0].Name())
	assert.Equal(t, "false", attrs(0)["calculator.cache_hit"])
	assert.Equal(t, "true", attrs(1)["calculator.cache_hit"])
	assert.Equal(t, "arithmetic", attrs(2)["calculator.error_kind"])
	assert.Equal(t, "Error", spans[2].Status().Code.String())
}

func TestLogging(t *testing.T) {
	var buf syncBuffer
	srv := server.New(config.ServerConfig{}, server.Logger(zerolog.New(&buf)))
	addr := start(t, srv)
	c := dial(t, addr)
	c.roundTrip(t, "1+1")
	c.Close()
	require.Eventually(t, func() bool { return strings.Contains(buf.String(), "Closed connection") }, 5*time.Second, 10*time.Millisecond)
	out := buf.String()
	assert.Contains(t, out, `"message":"Received"`)
	assert.Contains(t, out, `"data":"1+1"`)
	assert.Contains(t, out, `"result":"2.0"`)
	assert.Contains(t, out, `"session":`)

	srv.SetLogLevel(zerolog.WarnLevel)
	before := len(buf.String())
	c = dial(t, addr)
	c.roundTrip(t, "2+2")
	assert.NotContains(t, buf.String()[before:], `"data":"2+2"`)
}

func TestWebSocket(t *testing.T) {
	rec := &recorder{}
	srv := server.New(config.ServerConfig{BufferSize: 64}, server.History(rec))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	cases := []struct {
		in, want string
	}{
		{"2+3*4", "14.0"},
		{"8/0", "Error: division by zero at column 2"},
		{strings.Repeat("1", 65), "Error: message exceeds 64 bytes"},
		{"(1+2)*3", "9.0"},
	}
	for _, tc := range cases {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(tc.in)))
		_, p, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(p), tc.in)
	}
	got := rec.all()
	require.Len(t, got, 3)
	assert.Equal(t, "websocket", got[0].Source)
}

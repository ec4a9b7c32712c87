// Package client sends expressions to a calculator server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zephyrtronium/calculator/internal/protocol"
)

// Client is a connection to a calculator server. Sends on one Client are
// serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	r    *protocol.Reader
	log  zerolog.Logger
	addr string
	max  int
}

// Option is an option used when dialing.
type Option interface {
	clientOption(*Client)
}

type limitopt int

func (o limitopt) clientOption(c *Client) { c.max = int(o) }

// MessageLimit sets the largest expression Send accepts, which should match
// the server's buffer size. The default is protocol.MaxMessageSize.
func MessageLimit(n int) Option {
	return limitopt(n)
}

// Dial connects to the server at addr. The logger may be zerolog.Nop().
func Dial(ctx context.Context, addr string, log zerolog.Logger, opts ...Option) (*Client, error) {
	log.Info().Str("addr", addr).Msg("Connecting to server...")
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Error().Err(err).Msg("Connection failed")
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Msg("Connected")
	c := &Client{conn: conn, log: log, addr: addr, max: protocol.MaxMessageSize}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.clientOption(c)
	}
	if c.max <= 0 {
		c.max = protocol.MaxMessageSize
	}
	// Responses are never larger than a few hundred bytes, but allow
	// headroom for servers with larger buffers.
	c.r = protocol.NewReader(conn, 16*c.max)
	return c, nil
}

// Send sends one expression and waits for the server's response, which is
// either a formatted number or an error message beginning with "Error: ".
// The returned error reports transport failures only.
func (c *Client) Send(ctx context.Context, expr string) (string, error) {
	if strings.ContainsAny(expr, "\r\n") {
		return "", errors.New("expression must be a single line")
	}
	if len(expr) > c.max {
		return "", fmt.Errorf("expression exceeds %d bytes", c.max)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(d)
		defer c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { c.conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	c.log.Info().Str("data", expr).Msg("Sending")
	if err := protocol.WriteMessage(c.conn, expr); err != nil {
		return "", c.fail(ctx, "send", err)
	}
	resp, err := c.r.ReadMessage()
	if err != nil {
		return "", c.fail(ctx, "receive", err)
	}
	c.log.Info().Str("result", resp).Msg("Received")
	return resp, nil
}

func (c *Client) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		err = ctx.Err()
	} else if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		err = context.DeadlineExceeded
	}
	c.log.Error().Err(err).Str("op", op).Msg("request failed")
	return fmt.Errorf("%s %s: %w", op, c.addr, err)
}

// Close closes the connection.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.log.Info().Msg("Closed connection")
	return err
}

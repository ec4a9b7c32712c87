package client_test

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/calculator/internal/client"
	"github.com/zephyrtronium/calculator/internal/config"
	"github.com/zephyrtronium/calculator/internal/server"
)

func serve(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.New(config.ServerConfig{MaxSessions: 2})
	go srv.Serve(context.Background(), ln)
	t.Cleanup(func() { srv.Close() })
	return ln.Addr().String()
}

func TestSend(t *testing.T) {
	addr := serve(t)
	var buf bytes.Buffer
	ctx := context.Background()
	c, err := client.Dial(ctx, addr, zerolog.New(&buf))
	require.NoError(t, err)

	got, err := c.Send(ctx, "2+3*4")
	require.NoError(t, err)
	assert.Equal(t, "14.0", got)

	got, err = c.Send(ctx, "8/0")
	require.NoError(t, err)
	assert.Equal(t, "Error: division by zero at column 2", got)

	require.NoError(t, c.Close())
	log := buf.String()
	for _, msg := range []string{"Connecting to server...", "Connected", "Sending", "Received", "Closed connection"} {
		assert.Contains(t, log, `"message":"`+msg+`"`)
	}
}

func TestSendInvalid(t *testing.T) {
	addr := serve(t)
	ctx := context.Background()
	c, err := client.Dial(ctx, addr, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Send(ctx, "1+\n1")
	assert.ErrorContains(t, err, "single line")
	_, err = c.Send(ctx, strings.Repeat("1", 2000))
	assert.ErrorContains(t, err, "exceeds")

	// The connection is still usable.
	got, err := c.Send(ctx, "1+1")
	require.NoError(t, err)
	assert.Equal(t, "2.0", got)
}

func TestSendMessageLimit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.New(config.ServerConfig{BufferSize: 4096})
	go srv.Serve(context.Background(), ln)
	t.Cleanup(func() { srv.Close() })

	ctx := context.Background()
	c, err := client.Dial(ctx, ln.Addr().String(), zerolog.Nop(), client.MessageLimit(4096))
	require.NoError(t, err)
	defer c.Close()

	expr := strings.Repeat("1+", 999) + "1"
	got, err := c.Send(ctx, expr)
	require.NoError(t, err)
	assert.Equal(t, "1000.0", got)
	_, err = c.Send(ctx, strings.Repeat("1", 5000))
	assert.ErrorContains(t, err, "exceeds 4096 bytes")
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	_, err = client.Dial(context.Background(), addr, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to connect")
}

func TestSendTimeout(t *testing.T) {
	// A server that accepts and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		bufio.NewReader(conn).ReadString('\n')
		time.Sleep(2 * time.Second)
	}()

	c, err := client.Dial(context.Background(), ln.Addr().String(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Send(ctx, "1+1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

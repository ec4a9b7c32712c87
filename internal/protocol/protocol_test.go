package protocol_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/calculator/internal/protocol"
)

func TestReadMessage(t *testing.T) {
	r := protocol.NewReader(strings.NewReader("2+3\r\n(1+2)*4\n\n8/0"), 0)
	for _, want := range []string{"2+3", "(1+2)*4", "", "8/0"} {
		got, err := r.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessageEmpty(t *testing.T) {
	r := protocol.NewReader(strings.NewReader(""), 0)
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessageLimit(t *testing.T) {
	exact := strings.Repeat("1", protocol.MaxMessageSize)
	over := strings.Repeat("2", 3*protocol.MaxMessageSize)
	r := protocol.NewReader(strings.NewReader(exact+"\n"+over+"\n1+1\n"+over), 0)

	got, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, exact, got)

	_, err = r.ReadMessage()
	var serr *protocol.SizeError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, "message exceeds 1024 bytes", err.Error())

	// The reader resynchronizes on the next line.
	got, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "1+1", got)

	_, err = r.ReadMessage()
	assert.True(t, errors.As(err, &serr), "%v", err)
	_, err = r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessageLimitCRLF(t *testing.T) {
	exact := strings.Repeat("1", protocol.MaxMessageSize)
	r := protocol.NewReader(strings.NewReader(exact+"\r\n"+exact+"1\r\n2+2\r\n"), 0)

	got, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, exact, got)

	_, err = r.ReadMessage()
	assert.EqualError(t, err, "message exceeds 1024 bytes")

	got, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "2+2", got)
}

func TestReadMessageSmallLimit(t *testing.T) {
	r := protocol.NewReader(strings.NewReader("123456789\n1234\n"), 4)
	_, err := r.ReadMessage()
	assert.EqualError(t, err, "message exceeds 4 bytes")
	got, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "1234", got)
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteMessage(&buf, "14.0"))
	require.NoError(t, protocol.WriteMessage(&buf, "Error: two\nlines"))
	assert.Equal(t, "14.0\nError: two lines\n", buf.String())

	r := protocol.NewReader(&buf, 0)
	got, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "14.0", got)
	got, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Error: two lines", got)
}

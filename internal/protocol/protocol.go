// Package protocol frames calculator requests and responses on a byte
// stream. Each message is one line of UTF-8 text terminated by a newline.
// A request is an expression; a response is a formatted number or an error
// message beginning with "Error: ".
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxMessageSize is the default limit on the size of a message, excluding
// its terminating newline.
const MaxMessageSize = 1024

// SizeError is returned when a message exceeds the reader's limit.
type SizeError struct {
	Max int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("message exceeds %d bytes", e.Max)
}

// Reader reads messages from a stream.
type Reader struct {
	br  *bufio.Reader
	max int
}

// NewReader creates a Reader that accepts messages of up to max bytes. A
// max of zero or less means MaxMessageSize.
func NewReader(r io.Reader, max int) *Reader {
	if max <= 0 {
		max = MaxMessageSize
	}
	// Room for a "\r\n" terminator.
	return &Reader{br: bufio.NewReaderSize(r, max+2), max: max}
}

// ReadMessage reads the next message. A trailing "\r" is removed. A final
// message without a newline is returned as is, and the following call
// returns io.EOF. A message longer than the limit is discarded through its
// newline and reported as a *SizeError, after which reading may continue.
func (r *Reader) ReadMessage() (string, error) {
	line, err := r.br.ReadSlice('\n')
	switch {
	case err == nil:
		line = line[:len(line)-1]
	case errors.Is(err, bufio.ErrBufferFull):
		return "", r.discard()
	case errors.Is(err, io.EOF):
		if len(line) == 0 {
			return "", io.EOF
		}
	default:
		return "", err
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	if len(line) > r.max {
		return "", &SizeError{Max: r.max}
	}
	return string(line), nil
}

// discard skips the rest of an oversized line.
func (r *Reader) discard() error {
	for {
		_, err := r.br.ReadSlice('\n')
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return &SizeError{Max: r.max}
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

// WriteMessage writes msg as a single message. Line breaks inside msg are
// replaced with spaces.
func WriteMessage(w io.Writer, msg string) error {
	_, err := io.WriteString(w, oneline.Replace(msg)+"\n")
	return err
}

var oneline = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

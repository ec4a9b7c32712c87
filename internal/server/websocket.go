package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zephyrtronium/calculator"
	"github.com/zephyrtronium/calculator/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler returns an HTTP handler serving the WebSocket endpoint. Each text
// or binary message is one expression, answered by one text message.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveWebSocket)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger().Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	if !s.track(conn, s.conns, true) {
		conn.Close()
		return
	}
	id := uuid.NewString()
	log := s.logger().With().Str("session", id).Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("Accepted connection")
	defer func() {
		conn.Close()
		log.Info().Msg("Closed connection")
		s.untrack(conn, s.conns, true)
	}()

	// Allow oversized messages to be read so they can be rejected with a
	// response instead of a closed connection.
	conn.SetReadLimit(int64(16 * s.cfg.BufferSize))
	ctx := r.Context()
	for {
		if d := s.cfg.IdleTimeout.Duration; d > 0 {
			conn.SetReadDeadline(time.Now().Add(d))
		}
		_, p, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
				log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		var resp string
		if len(p) > s.cfg.BufferSize {
			err := &protocol.SizeError{Max: s.cfg.BufferSize}
			log.Warn().Err(err).Msg("rejected message")
			resp = calculator.ErrorPrefix + err.Error()
		} else {
			msg := string(p)
			log.Info().Str("data", msg).Msg("Received")
			resp = s.Handle(ctx, id, "websocket", msg)
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(resp)); err != nil {
			log.Error().Err(err).Msg("write failed")
			return
		}
		log.Info().Str("result", resp).Msg("Sent")
	}
}

package clients

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 16
)

// Session is one connected viewer: a sink for acknowledgments and
// invalidation pushes. It holds no state between events.
type Session struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession wraps an accepted websocket connection.
func NewSession(conn *websocket.Conn, log *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		log:    log.With("session", id),
		closed: make(chan struct{}),
	}
}

// Send queues a message for the viewer without blocking. It reports
// false when the session is closed or its buffer is full, which the
// registry treats as a dead client.
func (s *Session) Send(msg []byte) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// close marks the session dead and wakes the write pump. Idempotent.
func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// WritePump drains the send queue onto the connection and keeps the
// peer alive with pings. It exits when the session is closed or a write
// fails, and closes the underlying connection on the way out.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.closed:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("session write failed", "error", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package server composes the capture loop, client registry and input
// translator behind the HTTP and WebSocket surface.
package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"winlens/internal/clients"
	"winlens/internal/frame"
	"winlens/internal/input"
)

//go:embed index.html
var viewerPage []byte

const (
	readLimit = 1 << 20
	pongWait  = 60 * time.Second
)

// Server wires the three endpoints: the viewer page, the snapshot pull
// and the per-client event channel.
type Server struct {
	monitor    *frame.Monitor
	registry   *clients.Registry
	translator *input.Translator
	log        *slog.Logger
	upgrader   websocket.Upgrader
	mux        *http.ServeMux
}

func New(monitor *frame.Monitor, registry *clients.Registry, translator *input.Translator, log *slog.Logger) *Server {
	s := &Server{
		monitor:    monitor,
		registry:   registry,
		translator: translator,
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/screenshot.png", s.handleScreenshot)
	mux.HandleFunc("/ws", s.handleWS)
	s.mux = mux
	return s
}

// Handler returns the composed HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(viewerPage)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.monitor.Snapshot()
	if err != nil {
		s.log.Warn("snapshot unavailable", "error", err)
		http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := clients.NewSession(conn, s.log)
	s.registry.Register(sess)
	go sess.WritePump()

	// Raise the target before input starts flowing.
	s.translator.Focus()

	s.readLoop(sess, conn)
}

// readLoop consumes events from one viewer until the connection drops.
// Deregistration happens before the loop returns so no broadcast can
// target the dead channel.
func (s *Server) readLoop(sess *clients.Session, conn *websocket.Conn) {
	defer func() {
		s.registry.Unregister(sess)
		conn.Close()
	}()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("viewer read error", "session", sess.ID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		ack, refresh := s.dispatch(msg)
		sess.Send(ack)
		if refresh {
			// Out-of-band capture so the viewer sees the effect of its
			// own input without waiting for the poll interval.
			s.monitor.ForceRefresh()
		}
	}
}

// event is the wire shape of every inbound message; the type
// discriminator decides which fields matter.
type event struct {
	Type          string  `json:"type"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	Button        string  `json:"button"`
	DX            float64 `json:"dx"`
	DY            float64 `json:"dy"`
	Key           string  `json:"key"`
	Code          string  `json:"code"`
	ShiftKey      bool    `json:"shiftKey"`
	CtrlKey       bool    `json:"ctrlKey"`
	AltKey        bool    `json:"altKey"`
	MetaKey       bool    `json:"metaKey"`
	Text          string  `json:"text"`
}

type ack struct {
	Status  string `json:"status"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// dispatch translates one event and reports the acknowledgment to send
// back plus whether a forced refresh should follow. Failures only ever
// affect the originating session.
func (s *Server) dispatch(msg []byte) (payload []byte, refresh bool) {
	var ev event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return errorAck(fmt.Errorf("malformed event: %w", err)), false
	}

	var err error
	switch ev.Type {
	case "click":
		err = s.translator.Click(input.ClickEvent{
			X:              ev.X,
			Y:              ev.Y,
			ViewportWidth:  ev.DisplayWidth,
			ViewportHeight: ev.DisplayHeight,
			Button:         ev.Button,
		})
	case "scroll":
		s.translator.Scroll(ev.DX, ev.DY)
	case "key":
		err = s.translator.Key(input.KeyEvent{
			Key:   ev.Key,
			Code:  ev.Code,
			Shift: ev.ShiftKey,
			Ctrl:  ev.CtrlKey,
			Alt:   ev.AltKey,
			Meta:  ev.MetaKey,
		})
	case "paste":
		err = s.translator.Paste(ev.Text)
	case "focus":
		s.translator.Focus()
	case "":
		err = fmt.Errorf("missing event type")
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
	}

	if err != nil {
		s.log.Debug("event rejected", "type", ev.Type, "error", err)
		return errorAck(err), false
	}
	return okAck(ev.Type), true
}

func okAck(eventType string) []byte {
	b, _ := json.Marshal(ack{Status: "ok", Type: eventType})
	return b
}

func errorAck(err error) []byte {
	b, _ := json.Marshal(ack{Status: "error", Message: err.Error()})
	return b
}

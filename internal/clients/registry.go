// Package clients tracks connected viewer sessions and fans out the
// screen-update invalidation signal.
package clients

import (
	"log/slog"
	"sync"
)

// screenUpdate tells viewers the frame changed; they pull the snapshot
// over HTTP. The registry never ships image bytes through the channel.
var screenUpdate = []byte(`{"type":"screenshot_update"}`)

// Registry is a concurrency-safe set of live sessions. Registration and
// unregistration are mutually exclusive with broadcast, so no broadcast
// ever targets a half-closed session.
type Registry struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[*Session]struct{}),
		log:      log,
	}
}

// Register adds a session to the broadcast set.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	n := len(r.sessions)
	r.mu.Unlock()
	r.log.Info("viewer connected", "session", s.ID, "viewers", n)
}

// Unregister removes a session and closes its send channel. Safe to
// call more than once.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	_, ok := r.sessions[s]
	if ok {
		delete(r.sessions, s)
	}
	s.close()
	n := len(r.sessions)
	r.mu.Unlock()
	if ok {
		r.log.Info("viewer disconnected", "session", s.ID, "viewers", n)
	}
}

// ScreenUpdated broadcasts the invalidation signal to every session.
func (r *Registry) ScreenUpdated() {
	r.broadcast(screenUpdate)
}

// broadcast delivers msg to each session independently. Sends are
// non-blocking; a session that cannot accept the message is dropped in
// the same pass, so one slow or dead client never affects the others.
func (r *Registry) broadcast(msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range r.sessions {
		if !s.Send(msg) {
			delete(r.sessions, s)
			s.close()
			r.log.Warn("dropping unresponsive viewer", "session", s.ID)
		}
	}
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

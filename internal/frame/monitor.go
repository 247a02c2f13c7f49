// Package frame owns the capture loop and change detection.
package frame

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"winlens/internal/capture"
)

// Notifier receives the invalidation signal when the current frame has
// changed. The signal carries no payload; viewers pull the snapshot.
type Notifier interface {
	ScreenUpdated()
}

// Monitor polls the Capturer, diffs consecutive frames and notifies on
// change. It is the only writer of the current-frame snapshot; any
// number of readers may call Snapshot concurrently.
type Monitor struct {
	capturer  capture.Capturer
	notifier  Notifier
	threshold float64
	interval  time.Duration
	log       *slog.Logger

	mu       sync.Mutex
	baseline image.Image // last compared frame, nil until the first good capture
	current  []byte      // encoded bytes of the last committed frame
}

// NewMonitor wires a Monitor. It does not start the loop; call Run.
func NewMonitor(c capture.Capturer, n Notifier, threshold float64, interval time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		capturer:  c,
		notifier:  n,
		threshold: threshold,
		interval:  interval,
		log:       log,
	}
}

// Run drives the capture loop until ctx is canceled. Shutdown latency
// is bounded by one poll interval.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.log.Info("frame monitor started", "interval", m.interval, "threshold", m.threshold)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("frame monitor stopped")
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick captures one frame and advances the baseline. The baseline moves
// forward whether or not a notification fires, so a slow sequence of
// sub-threshold changes cannot accumulate into an undetected large one.
func (m *Monitor) tick() {
	raw, img, err := m.grab()
	if err != nil {
		// Transient: window closed, display asleep. Keep serving the
		// stale frame and try again next tick.
		m.log.Warn("capture failed", "error", err)
		return
	}

	m.mu.Lock()
	prev := m.baseline
	m.baseline = img
	m.current = raw
	m.mu.Unlock()

	if prev == nil {
		// First frame establishes the comparison baseline silently.
		m.log.Debug("baseline established", "bytes", len(raw))
		return
	}
	if Changed(prev, img, m.threshold) {
		m.log.Debug("frame changed", "bytes", len(raw))
		m.notifier.ScreenUpdated()
	}
}

// grab captures and decodes one frame. No lock is held across the
// capture call.
func (m *Monitor) grab() ([]byte, image.Image, error) {
	raw, err := m.capturer.Capture()
	if err != nil {
		return nil, nil, err
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	return raw, img, nil
}

// Snapshot returns the most recently committed frame bytes, capturing
// synchronously if the loop has not produced one yet. The returned
// slice is never mutated after commit.
func (m *Monitor) Snapshot() ([]byte, error) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur != nil {
		return cur, nil
	}

	raw, img, err := m.grab()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.current == nil {
		m.current = raw
		m.baseline = img
	} else {
		// The loop committed a frame while we were capturing.
		raw = m.current
	}
	m.mu.Unlock()
	return raw, nil
}

// ForceRefresh captures out of band and always notifies, bypassing the
// threshold. Used after injected input so viewers see the effect without
// waiting for the poll interval. A failed capture still notifies:
// viewers re-pull the last committed frame.
func (m *Monitor) ForceRefresh() {
	raw, img, err := m.grab()
	if err != nil {
		m.log.Warn("forced refresh capture failed", "error", err)
	} else {
		m.mu.Lock()
		m.baseline = img
		m.current = raw
		m.mu.Unlock()
	}
	m.notifier.ScreenUpdated()
}

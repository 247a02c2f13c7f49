// Package capture grabs the pixels of the bound window.
package capture

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/kbinani/screenshot"

	"winlens/internal/window"
)

// Capturer produces one encoded still image of the target per call.
type Capturer interface {
	Capture() ([]byte, error)
}

// WindowCapturer captures the screen rectangle covered by a window and
// encodes it as PNG.
type WindowCapturer struct {
	bounds window.Bounds
}

// NewWindow returns a Capturer bound to the handle's geometry.
func NewWindow(h *window.Handle) *WindowCapturer {
	return &WindowCapturer{bounds: h.Bounds}
}

// Capture grabs the window rect. Capture can fail transiently (display
// asleep, permission revoked); callers are expected to log and retry on
// the next tick.
func (c *WindowCapturer) Capture() ([]byte, error) {
	img, err := screenshot.Capture(c.bounds.X, c.bounds.Y, c.bounds.Width, c.bounds.Height)
	if err != nil {
		return nil, fmt.Errorf("capture window rect: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

package input

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"winlens/internal/window"
)

const (
	// clickSettle is the pause between placing the pointer and pressing
	// the button, giving the window server time to deliver the move.
	clickSettle = 10 * time.Millisecond
	// pasteSettle is how long the pasted-into application gets to read
	// the clipboard before the previous content is restored.
	pasteSettle = 150 * time.Millisecond
)

var validButtons = map[string]bool{
	"left":   true,
	"right":  true,
	"middle": true,
}

// ClickEvent is a pointer click in the viewer's viewport space.
type ClickEvent struct {
	X, Y                          float64
	ViewportWidth, ViewportHeight float64
	Button                        string
}

// KeyEvent is a key press as reported by the browser: the logical key
// value plus the physical key code and modifier flags.
type KeyEvent struct {
	Key   string
	Code  string
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

// Translator maps viewer-space events onto the bound window and drives
// the Port. The window geometry is the one captured at bind time.
type Translator struct {
	port Port
	win  *window.Handle
	log  *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)

	// pasteMu serializes clipboard pastes: the save/write/chord/restore
	// sequence races against itself on the shared OS clipboard.
	pasteMu sync.Mutex
}

func NewTranslator(port Port, win *window.Handle, log *slog.Logger) *Translator {
	return &Translator{
		port:  port,
		win:   win,
		log:   log,
		sleep: time.Sleep,
	}
}

// Translate converts viewer viewport coordinates to absolute screen
// coordinates inside the bound window by linear scaling. Both the
// viewer and the window use top-left-origin coordinates, so no axis is
// flipped. Non-positive viewport dimensions fall back to the raw
// offsets rather than dividing by zero.
func (t *Translator) Translate(x, y, viewportW, viewportH float64) (int, int) {
	b := t.win.Bounds
	if viewportW <= 0 || viewportH <= 0 {
		t.log.Warn("non-positive viewport, using unscaled coordinates",
			"viewportW", viewportW, "viewportH", viewportH)
		return b.X + int(math.Round(x)), b.Y + int(math.Round(y))
	}
	scaledX := x * float64(b.Width) / viewportW
	scaledY := y * float64(b.Height) / viewportH
	return b.X + int(math.Round(scaledX)), b.Y + int(math.Round(scaledY))
}

// Click moves the pointer to the scaled position, settles, then presses
// and releases the button. Held-button gestures are not supported.
func (t *Translator) Click(ev ClickEvent) error {
	if !validButtons[ev.Button] {
		return fmt.Errorf("invalid button %q", ev.Button)
	}
	x, y := t.Translate(ev.X, ev.Y, ev.ViewportWidth, ev.ViewportHeight)
	t.log.Debug("click", "button", ev.Button, "x", x, "y", y)

	t.port.Move(x, y)
	t.sleep(clickSettle)
	if err := t.port.Toggle(ev.Button, "down"); err != nil {
		return fmt.Errorf("press %s button: %w", ev.Button, err)
	}
	if err := t.port.Toggle(ev.Button, "up"); err != nil {
		return fmt.Errorf("release %s button: %w", ev.Button, err)
	}
	return nil
}

// Scroll passes signed pixel deltas straight through.
func (t *Translator) Scroll(dx, dy float64) {
	t.log.Debug("scroll", "dx", dx, "dy", dy)
	t.port.Scroll(int(math.Round(dx)), int(math.Round(dy)))
}

// Key injects a key press. A logical key that is a single printable
// character is sent as a character event; anything else goes through
// the physical key-code table. An unmapped code is an error and nothing
// is injected.
func (t *Translator) Key(ev KeyEvent) error {
	mods := modifierList(ev)

	if r, size := utf8.DecodeRuneInString(ev.Key); size == len(ev.Key) && size > 0 && r >= 0x20 {
		// Shift already carries the case, so inject the lowercase form.
		key := ev.Key
		if r >= 'A' && r <= 'Z' {
			key = string(r + ('a' - 'A'))
		}
		t.log.Debug("key", "char", key, "mods", mods)
		if err := t.port.KeyTap(key, mods); err != nil {
			return fmt.Errorf("tap character %q: %w", key, err)
		}
		return nil
	}

	name, ok := keyNames[ev.Code]
	if !ok {
		return fmt.Errorf("unmapped key code %q", ev.Code)
	}
	t.log.Debug("key", "name", name, "mods", mods)
	if err := t.port.KeyTap(name, mods); err != nil {
		return fmt.Errorf("tap key %s: %w", name, err)
	}
	return nil
}

// Paste stages text through the OS clipboard and synthesizes the
// platform paste chord. The previous clipboard content is restored on
// every exit path after the paste succeeds or fails. Concurrent pastes
// are serialized; interleaving would corrupt the restore.
func (t *Translator) Paste(text string) error {
	t.pasteMu.Lock()
	defer t.pasteMu.Unlock()

	saved, err := t.port.ReadClipboard()
	canRestore := err == nil
	if !canRestore {
		t.log.Warn("could not read clipboard, skipping restore", "error", err)
	}
	if err := t.port.WriteClipboard(text); err != nil {
		return fmt.Errorf("stage clipboard: %w", err)
	}
	defer func() {
		if !canRestore {
			return
		}
		if err := t.port.WriteClipboard(saved); err != nil {
			t.log.Warn("restore clipboard failed", "error", err)
		}
	}()

	mods := []string{pasteModifier}
	if err := t.port.KeyToggle("v", "down", mods); err != nil {
		return fmt.Errorf("paste chord down: %w", err)
	}
	if err := t.port.KeyToggle("v", "up", mods); err != nil {
		return fmt.Errorf("paste chord up: %w", err)
	}
	t.sleep(pasteSettle)
	return nil
}

// Focus raises the owning process to the foreground. Best-effort: a
// process that cannot be activated is logged, never an event failure.
func (t *Translator) Focus() {
	if err := t.port.Activate(t.win.PID); err != nil {
		t.log.Warn("could not activate window", "pid", t.win.PID, "error", err)
	}
}

func modifierList(ev KeyEvent) []string {
	var mods []string
	if ev.Shift {
		mods = append(mods, "shift")
	}
	if ev.Ctrl {
		mods = append(mods, "ctrl")
	}
	if ev.Alt {
		mods = append(mods, "alt")
	}
	if ev.Meta {
		mods = append(mods, "cmd")
	}
	return mods
}

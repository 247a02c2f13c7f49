// Package input translates viewer events into window-space actuation.
package input

// Port is the OS input-injection primitive. Implementations synthesize
// device events; everything above it is pure translation.
type Port interface {
	// Move places the pointer at absolute screen coordinates.
	Move(x, y int)
	// Toggle presses ("down") or releases ("up") a mouse button.
	Toggle(button, direction string) error
	// Scroll scrolls by signed pixel deltas.
	Scroll(dx, dy int)
	// KeyTap taps a named key or single character with modifiers held.
	KeyTap(key string, mods []string) error
	// KeyToggle presses or releases a named key with modifiers held.
	KeyToggle(key, direction string, mods []string) error
	// ReadClipboard returns the current clipboard text.
	ReadClipboard() (string, error)
	// WriteClipboard replaces the clipboard text.
	WriteClipboard(text string) error
	// Activate raises the process's windows to the foreground.
	Activate(pid int) error
}

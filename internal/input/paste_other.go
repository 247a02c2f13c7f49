//go:build !darwin

package input

// Windows and X11 paste chord is ctrl+V.
const pasteModifier = "ctrl"

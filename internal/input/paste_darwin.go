//go:build darwin

package input

// macOS paste chord is cmd+V.
const pasteModifier = "cmd"

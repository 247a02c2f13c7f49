//go:build !darwin

package window

import "context"

// WakeDisplay is a no-op outside macOS.
func WakeDisplay(ctx context.Context) {}

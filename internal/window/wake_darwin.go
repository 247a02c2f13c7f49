//go:build darwin

package window

import (
	"context"
	"os/exec"
)

// WakeDisplay nudges the display awake via caffeinate so the first
// capture is not a black frame. Best-effort; failures are ignored.
func WakeDisplay(ctx context.Context) {
	_ = exec.CommandContext(ctx, "caffeinate", "-u", "-t", "2").Start()
}

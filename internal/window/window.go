// Package window models the target application window and its geometry.
//
// Lookup and activation are thin wrappers over robotgo's process and
// window calls. Coordinates are top-left-origin global screen coordinates
// on every platform, matching what both robotgo and the capture layer use,
// so no axis flipping happens anywhere in this module.
package window

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-vgo/robotgo"
)

// Bounds is a window rectangle in global screen coordinates.
type Bounds struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Handle identifies a bound window. Bounds are cached at bind time and
// stay fixed for the life of the session; a window moved after binding
// will receive misplaced input until the server is restarted.
type Handle struct {
	PID    int
	Title  string
	Bounds Bounds
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s (pid %d, %dx%d at %d,%d)",
		h.Title, h.PID, h.Bounds.Width, h.Bounds.Height, h.Bounds.X, h.Bounds.Y)
}

// FindByApp binds the first window of the application whose process name
// matches name, case-insensitively.
func FindByApp(name string) (*Handle, error) {
	ids, err := robotgo.FindIds(name)
	if err != nil {
		return nil, fmt.Errorf("find process %q: %w", name, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no running process matches %q", name)
	}
	return FindByPID(ids[0])
}

// FindByPID binds the window owned by the given process id.
func FindByPID(pid int) (*Handle, error) {
	x, y, w, h := robotgo.GetBounds(pid)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("process %d has no visible window", pid)
	}
	return &Handle{
		PID:    pid,
		Title:  robotgo.GetTitle(pid),
		Bounds: Bounds{X: x, Y: y, Width: w, Height: h},
	}, nil
}

// Entry is one row of a window listing.
type Entry struct {
	PID  int
	Name string
}

// List returns running processes that own a visible window, sorted by name.
func List() ([]Entry, error) {
	procs, err := robotgo.Process()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	var entries []Entry
	for _, p := range procs {
		if p.Name == "" {
			continue
		}
		if _, _, w, h := robotgo.GetBounds(p.Pid); w <= 0 || h <= 0 {
			continue
		}
		entries = append(entries, Entry{PID: p.Pid, Name: p.Name})
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// Package window resolves X11 target windows: listing, lookup by id or name,
// geometry refresh and activation. Queries go through xdotool, with robotgo's
// process table as a fallback for name matching.
package window

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"

	"github.com/Kblack0610/clickytheclicker/pkg/utils"
)

var (
	ErrNoWindow   = errors.New("no matching window found")
	ErrWindowGone = errors.New("window no longer exists")
)

// Window describes one X11 window and its current geometry. Coordinates are
// absolute screen coordinates of the top-left corner.
type Window struct {
	ID     int64
	Title  string
	X      int
	Y      int
	Width  int
	Height int
}

// Abs translates window-relative coordinates to absolute screen coordinates.
func (w *Window) Abs(relX, relY int) (int, int) {
	return w.X + relX, w.Y + relY
}

// Locator finds and tracks windows.
type Locator struct {
	logger zerolog.Logger
}

func NewLocator(logger zerolog.Logger) *Locator {
	if host := utils.CurrentOS(); host != "linux" {
		logger.Warn().Str("os", host).
			Msg("window queries rely on X11 and xdotool; only linux is supported")
	}
	return &Locator{logger: logger}
}

var (
	positionRe = regexp.MustCompile(`Position: (\d+),(\d+)`)
	geometryRe = regexp.MustCompile(`Geometry: (\d+)x(\d+)`)
)

// List returns all visible windows.
func (l *Locator) List() ([]Window, error) {
	out, err := exec.Command("xdotool", "search", "--onlyvisible", "--name", "").Output()
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	var windows []Window
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}
		win, err := l.ByID(id)
		if err != nil {
			l.logger.Debug().Int64("window_id", id).Err(err).Msg("skipping window")
			continue
		}
		windows = append(windows, *win)
	}
	return windows, nil
}

// ByID resolves a window's title and geometry from its X11 id.
func (l *Locator) ByID(id int64) (*Window, error) {
	idArg := strconv.FormatInt(id, 10)

	nameOut, err := exec.Command("xdotool", "getwindowname", idArg).Output()
	if err != nil {
		return nil, fmt.Errorf("window %d: %w", id, ErrWindowGone)
	}

	geomOut, err := exec.Command("xdotool", "getwindowgeometry", idArg).Output()
	if err != nil {
		return nil, fmt.Errorf("window %d: %w", id, ErrWindowGone)
	}

	pos := positionRe.FindStringSubmatch(string(geomOut))
	size := geometryRe.FindStringSubmatch(string(geomOut))
	if pos == nil || size == nil {
		return nil, fmt.Errorf("window %d: unparsable geometry", id)
	}

	x, _ := strconv.Atoi(pos[1])
	y, _ := strconv.Atoi(pos[2])
	width, _ := strconv.Atoi(size[1])
	height, _ := strconv.Atoi(size[2])

	return &Window{
		ID:     id,
		Title:  strings.TrimSpace(string(nameOut)),
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}, nil
}

// ByName returns the first visible window whose title matches name.
func (l *Locator) ByName(name string) (*Window, error) {
	out, err := exec.Command("xdotool", "search", "--onlyvisible", "--name", name).Output()
	if err == nil {
		for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			id, convErr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
			if convErr != nil {
				continue
			}
			win, winErr := l.ByID(id)
			if winErr == nil {
				return win, nil
			}
		}
	}

	// xdotool found nothing; fall back to matching against the process table.
	procs, procErr := robotgo.Process()
	if procErr != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoWindow, name)
	}
	for _, proc := range procs {
		if strings.Contains(strings.ToLower(proc.Name), strings.ToLower(name)) {
			l.logger.Debug().Str("process", proc.Name).Int("pid", proc.Pid).
				Msg("matched process, searching its windows")
			pidOut, pidErr := exec.Command("xdotool", "search", "--pid", strconv.Itoa(proc.Pid)).Output()
			if pidErr != nil {
				continue
			}
			for _, line := range strings.Split(strings.TrimSpace(string(pidOut)), "\n") {
				id, convErr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
				if convErr != nil {
					continue
				}
				if win, winErr := l.ByID(id); winErr == nil {
					return win, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNoWindow, name)
}

// Refresh re-reads the window's geometry in place. Returns ErrWindowGone when
// the window has been destroyed.
func (l *Locator) Refresh(w *Window) error {
	current, err := l.ByID(w.ID)
	if err != nil {
		return err
	}
	*w = *current
	return nil
}

// Activate raises and focuses the window. Best effort; dispatch does not
// depend on it succeeding.
func (l *Locator) Activate(w *Window) error {
	if err := exec.Command("xdotool", "windowactivate", "--sync", strconv.FormatInt(w.ID, 10)).Run(); err != nil {
		return fmt.Errorf("activate window %d: %w", w.ID, err)
	}
	return nil
}

// Package input sends synthetic mouse and keyboard events to a target window.
package input

import (
	"math/rand"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"

	"github.com/Kblack0610/clickytheclicker/internal/window"
)

// Dispatcher performs low-level synthetic input. Implementations report
// success as a plain bool; a false return is treated like a resolution miss
// by the recovery machinery.
type Dispatcher interface {
	// Click presses and releases a mouse button at window-relative (x, y).
	Click(x, y, button int, win *window.Window) bool
	// TypeText sends the literal text as key events to the window.
	TypeText(text string, win *window.Window) bool
}

// buttonName maps the script's numeric buttons onto robotgo's names.
func buttonName(button int) string {
	switch button {
	case 2:
		return "center"
	case 3:
		return "right"
	default:
		return "left"
	}
}

// Robot dispatches input through robotgo. The pointer is saved before a click
// and restored afterwards so the user's cursor ends up where it started.
type Robot struct {
	logger zerolog.Logger
	jitter int // max random offset in pixels, per axis
}

func NewRobot(logger zerolog.Logger, jitter int) *Robot {
	return &Robot{logger: logger, jitter: jitter}
}

func (r *Robot) Click(x, y, button int, win *window.Window) bool {
	if win == nil {
		return false
	}
	if r.jitter > 0 {
		x += rand.Intn(2*r.jitter+1) - r.jitter
		y += rand.Intn(2*r.jitter+1) - r.jitter
	}
	absX, absY := win.Abs(x, y)

	oldX, oldY := robotgo.Location()

	robotgo.Move(absX, absY)
	robotgo.MilliSleep(50)
	robotgo.Click(buttonName(button), false)
	robotgo.MilliSleep(50)
	robotgo.Move(oldX, oldY)

	r.logger.Debug().
		Int("x", absX).Int("y", absY).Int("button", button).
		Int64("window_id", win.ID).
		Msg("click dispatched")
	return true
}

func (r *Robot) TypeText(text string, win *window.Window) bool {
	if win == nil {
		return false
	}
	robotgo.TypeStr(text)
	r.logger.Debug().Int("chars", len(text)).Int64("window_id", win.ID).Msg("text typed")
	return true
}

// DryRun logs what would be dispatched without touching the display server.
type DryRun struct {
	logger zerolog.Logger
}

func NewDryRun(logger zerolog.Logger) *DryRun {
	return &DryRun{logger: logger}
}

func (d *DryRun) Click(x, y, button int, win *window.Window) bool {
	d.logger.Info().Int("x", x).Int("y", y).Int("button", button).Msg("[dry-run] click")
	return true
}

func (d *DryRun) TypeText(text string, win *window.Window) bool {
	d.logger.Info().Int("chars", len(text)).Msg("[dry-run] type text")
	return true
}

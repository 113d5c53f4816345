// Package recorder captures live mouse and keyboard input and turns it into
// a replayable action script.
package recorder

import (
	"context"
	"time"
	"unicode"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"

	"github.com/Kblack0610/clickytheclicker/internal/model"
	"github.com/Kblack0610/clickytheclicker/internal/window"
)

// gapThreshold is the pause between events that becomes an explicit wait
// action in the recorded script.
const gapThreshold = time.Second

// Recorder listens to global input events and keeps only those that land in
// the target window, translated to window-relative coordinates.
type Recorder struct {
	win    *window.Window
	logger zerolog.Logger

	actions  []model.Action
	textBuf  []rune
	lastTime time.Time
}

func New(win *window.Window, logger zerolog.Logger) *Recorder {
	return &Recorder{win: win, logger: logger}
}

// Record consumes input events until the context is canceled, then returns
// the recorded script. Gaps longer than a second become wait actions so
// replay preserves the user's pacing.
func (r *Recorder) Record(ctx context.Context) (*model.Script, error) {
	evChan := hook.Start()
	defer hook.End()

	r.lastTime = time.Now()

	for {
		select {
		case <-ctx.Done():
			r.flushText()
			return &model.Script{Actions: r.actions}, nil
		case ev := <-evChan:
			r.handle(ev)
		}
	}
}

func (r *Recorder) handle(ev hook.Event) {
	switch ev.Kind {
	case hook.MouseDown:
		x, y := int(ev.X), int(ev.Y)
		if !r.inWindow(x, y) {
			r.logger.Debug().Int("x", x).Int("y", y).Msg("click outside target window, ignored")
			return
		}
		r.flushText()
		r.recordGap()
		relX, relY := x-r.win.X, y-r.win.Y
		r.actions = append(r.actions, model.Action{
			Kind:   model.KindClickPosition,
			X:      relX,
			Y:      relY,
			Button: int(ev.Button),
		})
		r.logger.Info().Int("x", relX).Int("y", relY).Msg("recorded click")

	case hook.KeyDown:
		ch := rune(ev.Keychar)
		if !unicode.IsPrint(ch) && ch != ' ' {
			return
		}
		if len(r.textBuf) == 0 {
			r.recordGap()
		}
		r.textBuf = append(r.textBuf, ch)
		r.lastTime = time.Now()
	}
}

// recordGap inserts a wait action when enough time passed since the previous
// recorded event. The duration is rounded to a tenth of a second.
func (r *Recorder) recordGap() {
	now := time.Now()
	gap := now.Sub(r.lastTime)
	r.lastTime = now
	if gap < gapThreshold {
		return
	}
	seconds := float64(gap.Round(100*time.Millisecond)) / float64(time.Second)
	r.actions = append(r.actions, model.Action{
		Kind:     model.KindWait,
		Duration: seconds,
	})
	r.logger.Debug().Float64("seconds", seconds).Msg("recorded wait")
}

// flushText turns buffered keystrokes into a single type_text action.
func (r *Recorder) flushText() {
	if len(r.textBuf) == 0 {
		return
	}
	text := string(r.textBuf)
	r.textBuf = r.textBuf[:0]
	r.actions = append(r.actions, model.Action{
		Kind: model.KindTypeText,
		Text: text,
	})
	r.logger.Info().Int("chars", len(text)).Msg("recorded typed text")
}

func (r *Recorder) inWindow(x, y int) bool {
	return x >= r.win.X && x < r.win.X+r.win.Width &&
		y >= r.win.Y && y < r.win.Y+r.win.Height
}

// PickPosition blocks until the user clicks anywhere, then returns the
// absolute screen position of that click. A zero timeout waits indefinitely.
func PickPosition(ctx context.Context, timeout time.Duration) (int, int, error) {
	evChan := hook.Start()
	defer hook.End()

	var timeoutChan <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutChan = t.C
	}

	for {
		select {
		case ev := <-evChan:
			if ev.Kind == hook.MouseDown {
				return int(ev.X), int(ev.Y), nil
			}
		case <-timeoutChan:
			return 0, 0, context.DeadlineExceeded
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
}

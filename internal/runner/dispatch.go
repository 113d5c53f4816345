package runner

import (
	"context"
	"os"
	"time"

	"github.com/Kblack0610/clickytheclicker/internal/model"
	"github.com/Kblack0610/clickytheclicker/internal/vision"
)

// perform executes one action, including its own immediate retry budget
// (retry_count re-attempts with a short pause). This inner loop is separate
// from recovery directives, which operate on the whole dispatch outcome.
// Returns success and a human-readable description of what happened.
func (r *Runner) perform(ctx context.Context, act model.Action) (bool, string) {
	desc := act.Describe()

	// A missing template file is a configuration error, not a transient
	// resolution miss. Fail the whole dispatch without retrying.
	if act.Kind == model.KindClickTemplate {
		if _, err := os.Stat(act.Template); err != nil {
			r.deps.Logger.Error().Str("template", act.Template).Msg("template image not found")
			return false, desc
		}
	}

	for attempt := 0; attempt <= act.RetryCount; attempt++ {
		if attempt > 0 {
			r.deps.Logger.Debug().Int("attempt", attempt+1).Str("action", desc).
				Msg("retrying action")
			if !sleepCtx(ctx, internalRetryPause) {
				return false, desc
			}
		}
		ok, note, fatal := r.performOnce(ctx, act)
		if ok {
			if note != "" {
				desc = desc + " " + note
			}
			return true, desc
		}
		if fatal {
			break
		}
	}
	return false, desc
}

// performOnce is a single attempt. fatal signals a failure that further
// attempts cannot fix, such as a capture error.
func (r *Runner) performOnce(ctx context.Context, act model.Action) (ok bool, note string, fatal bool) {
	if act.Kind == model.KindWait {
		wait := time.Duration(act.WaitSeconds() * float64(time.Second))
		if !sleepCtx(ctx, wait) {
			return false, "", true
		}
		return true, "", false
	}

	// Every input-dispatching kind works in window-relative coordinates, so
	// the geometry must be current before each attempt.
	if err := r.deps.Windows.Refresh(r.deps.Window); err != nil {
		r.deps.Logger.Error().Err(err).Int64("window_id", r.deps.Window.ID).
			Msg("target window is gone")
		return false, "", true
	}

	switch act.Kind {
	case model.KindClickPosition:
		return r.deps.Input.Click(act.X, act.Y, act.ButtonOrDefault(), r.deps.Window), "", false

	case model.KindTypeText:
		return r.deps.Input.TypeText(act.Text, r.deps.Window), "", false

	case model.KindClickText:
		return r.clickText(act)

	case model.KindClickTemplate:
		return r.clickTemplate(act)
	}

	r.deps.Logger.Error().Str("kind", string(act.Kind)).Msg("unknown action kind")
	return false, "", true
}

// clickText resolves the text via OCR and clicks slightly below the match
// center, compensating for the common label-above-button layout. Heuristic
// guesses, when enabled, are clicked without the offset and flagged in the
// description.
func (r *Runner) clickText(act model.Action) (bool, string, bool) {
	var m *vision.Match
	if r.deps.Vision.Supports(vision.StrategyText) {
		img, err := r.deps.Vision.Capture(r.deps.Window)
		if err != nil {
			r.deps.Logger.Error().Err(err).Msg("window capture failed")
			return false, "", true
		}
		m = r.deps.Vision.FindText(act.Text, img)
	}
	if m == nil && r.cfg.Heuristics {
		m = r.heuristic.Lookup(act.Text, r.deps.Window)
	}
	if m == nil {
		r.deps.Logger.Debug().Str("text", act.Text).Msg("text not found in window")
		return false, "", false
	}

	y := m.Y
	note := ""
	if m.Unverified {
		note = "(heuristic, unverified)"
	} else {
		y += r.cfg.ClickOffset
	}
	r.deps.Logger.Debug().Str("text", act.Text).Int("x", m.X).Int("y", y).
		Float64("confidence", m.Confidence).Bool("unverified", m.Unverified).
		Msg("text located")
	return r.deps.Input.Click(m.X, y, act.ButtonOrDefault(), r.deps.Window), note, false
}

// clickTemplate resolves the template image inside a fresh capture and clicks
// its center.
func (r *Runner) clickTemplate(act model.Action) (bool, string, bool) {
	img, err := r.deps.Vision.Capture(r.deps.Window)
	if err != nil {
		r.deps.Logger.Error().Err(err).Msg("window capture failed")
		return false, "", true
	}
	m := r.deps.Vision.FindTemplate(act.Template, img, act.ThresholdOrDefault())
	if m == nil {
		r.deps.Logger.Debug().Str("template", act.Template).Msg("template not found in window")
		return false, "", false
	}
	r.deps.Logger.Debug().Str("template", act.Template).Int("x", m.X).Int("y", m.Y).
		Float64("confidence", m.Confidence).Msg("template located")
	return r.deps.Input.Click(m.X, m.Y, act.ButtonOrDefault(), r.deps.Window), "", false
}

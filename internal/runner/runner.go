// Package runner drives an action script against a target window: it
// resolves each action, dispatches synthetic input, tracks statistics and
// applies recovery directives until a stop condition is reached.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/Kblack0610/clickytheclicker/internal/input"
	"github.com/Kblack0610/clickytheclicker/internal/model"
	"github.com/Kblack0610/clickytheclicker/internal/recovery"
	"github.com/Kblack0610/clickytheclicker/internal/vision"
	"github.com/Kblack0610/clickytheclicker/internal/window"
)

// StopReason is the terminal state of a run.
type StopReason string

const (
	StopMaxCycles              StopReason = "max_cycles_reached"
	StopMaxConsecutiveFailures StopReason = "max_consecutive_failures"
	StopRequiredActionFailed   StopReason = "required_action_failed"
	StopUserInterrupt          StopReason = "user_interrupt"
	StopAbortDirective         StopReason = "abort_directive"
	StopLoopDisabled           StopReason = "loop_disabled"
)

var ErrNoActions = errors.New("no actions to run")

// requiredBackoff is the continuous-mode wait before re-attempting a failed
// required action.
const requiredBackoff = 2 * time.Second

// internalRetryPause separates the immediate re-attempts inside one dispatch.
const internalRetryPause = 500 * time.Millisecond

// Config carries the execution controls.
type Config struct {
	MaxCycles              int           // 0 = unlimited
	MaxConsecutiveFailures int           // 0 = unlimited
	Loop                   bool          // wrap around after the last action
	Continuous             bool          // required failures wait and retry forever
	Interval               time.Duration // pause between actions
	RecoveryEnabled        bool
	ClickOffset            int  // downward bias for text clicks
	Heuristics             bool // allow unverified phrase-position guesses
	Verbose                bool // per-kind breakdown in the summary
}

func DefaultConfig() Config {
	return Config{
		MaxConsecutiveFailures: 10,
		Interval:               100 * time.Millisecond,
		RecoveryEnabled:        true,
		ClickOffset:            10,
	}
}

// WindowTracker refreshes a window's geometry before dispatch.
type WindowTracker interface {
	Refresh(w *window.Window) error
}

// Deps are the runner's collaborators.
type Deps struct {
	Window      *window.Window
	Windows     WindowTracker
	Vision      vision.Locator
	Input       input.Dispatcher
	Resolver    *recovery.Resolver
	Checkpoints *recovery.CheckpointStore
	Logger      zerolog.Logger
	Out         io.Writer
}

// Runner executes one script. Single-threaded: one action at a time, no
// shared mutable state outside the loop.
type Runner struct {
	cfg     Config
	actions []model.Action
	deps    Deps
	stats   *Stats

	heuristic vision.Heuristic
}

func New(cfg Config, actions []model.Action, deps Deps) (*Runner, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	if deps.Window == nil {
		return nil, errors.New("no target window")
	}
	return &Runner{cfg: cfg, actions: actions, deps: deps}, nil
}

// checkpointInterval is every ceil(len/5) actions, but at least 5.
func (r *Runner) checkpointInterval() int {
	interval := (len(r.actions) + 4) / 5
	if interval < 5 {
		interval = 5
	}
	return interval
}

// Run walks the script until a stop condition. Statistics are finalized and
// reported on every exit path, including cancellation.
func (r *Runner) Run(ctx context.Context) (*Stats, StopReason) {
	r.stats = NewStats()
	defer r.stats.Report(r.deps.Out, len(r.actions), r.cfg.Verbose)
	defer r.deps.Checkpoints.Cleanup()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(r.deps.Out, "Starting automation with %d actions\n", len(r.actions))

	var (
		index            int
		consecutiveFails int
		directiveRetries int
		retrying         bool
		fallbackTried    bool
		pending          *model.Action // substituted fallback for the next attempt
		reason           StopReason
	)

	cpInterval := r.checkpointInterval()

	for {
		if ctx.Err() != nil {
			reason = StopUserInterrupt
			break
		}

		// Checkpoints are created only during normal forward progress,
		// never while stuck retrying one action.
		if !retrying && index%cpInterval == 0 {
			r.createCheckpoint(index)
		}

		act := r.actions[index]
		if pending != nil {
			act = *pending
			pending = nil
		}

		ok, desc := r.perform(ctx, act)
		if ok {
			r.stats.RecordSuccess(act.Kind, desc)
			fmt.Fprintf(r.deps.Out, "%s %s\n", green("✓"), desc)
			consecutiveFails = 0
			directiveRetries = 0
			retrying = false
			fallbackTried = false
			var stopped bool
			index, stopped, reason = r.advance(index)
			if stopped {
				break
			}
		} else {
			r.stats.RecordFailure(act.Kind, desc)
			fmt.Fprintf(r.deps.Out, "%s %s\n", red("✗"), desc)
			consecutiveFails++
			if r.cfg.MaxConsecutiveFailures > 0 && consecutiveFails >= r.cfg.MaxConsecutiveFailures {
				fmt.Fprintf(r.deps.Out, "Reached %d consecutive failures, stopping\n", consecutiveFails)
				reason = StopMaxConsecutiveFailures
				break
			}

			outcome := outcomeUnrecovered
			if r.cfg.RecoveryEnabled {
				outcome, pending = r.applyRecovery(ctx, r.actions[index], index, &directiveRetries, &fallbackTried)
			}

			switch outcome {
			case outcomeRetry:
				retrying = true
				continue
			case outcomeRewind:
				cp := r.deps.Checkpoints.Before(index)
				index = cp.ActionIndex
				directiveRetries = 0
				retrying = false
				fallbackTried = false
			case outcomeSkip:
				directiveRetries = 0
				retrying = false
				fallbackTried = false
				var stopped bool
				index, stopped, reason = r.advance(index)
				if stopped {
					break
				}
			case outcomeAbort:
				fmt.Fprintln(r.deps.Out, "Aborting automation sequence")
				reason = StopAbortDirective
			case outcomeInterrupted:
				reason = StopUserInterrupt
			case outcomeUnrecovered:
				// Required-ness always follows the scripted action, even
				// when the failed attempt was a substituted fallback.
				if r.actions[index].Required {
					if r.cfg.Continuous {
						fmt.Fprintln(r.deps.Out, "Required action failed, will retry in 2 seconds (continuous mode)")
						if !sleepCtx(ctx, requiredBackoff) {
							reason = StopUserInterrupt
							break
						}
						retrying = true
						continue
					}
					fmt.Fprintln(r.deps.Out, "Required action failed, stopping automation")
					reason = StopRequiredActionFailed
				} else {
					directiveRetries = 0
					retrying = false
					fallbackTried = false
					var stopped bool
					index, stopped, reason = r.advance(index)
					if stopped {
						break
					}
				}
			}
			if reason != "" {
				break
			}
		}

		if !sleepCtx(ctx, r.cfg.Interval) {
			reason = StopUserInterrupt
			break
		}
	}

	r.deps.Logger.Info().Str("reason", string(reason)).Msg("automation stopped")
	return r.stats, reason
}

// advance moves to the next index, wrapping into a new cycle. It returns the
// new index, whether the run should stop, and the stop reason if so.
func (r *Runner) advance(index int) (int, bool, StopReason) {
	index = (index + 1) % len(r.actions)
	if index != 0 {
		return index, false, ""
	}

	r.stats.CyclesCompleted++
	r.cycleSummary()

	if r.cfg.MaxCycles > 0 && r.stats.CyclesCompleted >= r.cfg.MaxCycles {
		fmt.Fprintf(r.deps.Out, "Reached maximum cycles (%d)\n", r.cfg.MaxCycles)
		return index, true, StopMaxCycles
	}
	if !r.cfg.Loop {
		fmt.Fprintln(r.deps.Out, "Automation complete")
		return index, true, StopLoopDisabled
	}
	fmt.Fprintln(r.deps.Out, "Starting next cycle...")
	return index, false, ""
}

func (r *Runner) cycleSummary() {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	out := r.deps.Out

	fmt.Fprintf(out, "\nCompleted cycle %d\n", r.stats.CyclesCompleted)
	fmt.Fprintf(out, "Success: %d, Failed: %d\n", r.stats.Successful, r.stats.Failed)
	if recent := r.stats.RecentSuccesses(len(r.actions)); len(recent) > 0 {
		fmt.Fprintln(out, "Successful:")
		for _, desc := range recent {
			fmt.Fprintf(out, "  %s %s\n", green("✓"), desc)
		}
	}
	if recent := r.stats.RecentFailures(len(r.actions)); len(recent) > 0 {
		fmt.Fprintln(out, "Failed:")
		for _, desc := range recent {
			fmt.Fprintf(out, "  %s %s\n", red("✗"), desc)
		}
	}
}

// createCheckpoint records a resume point with a best-effort snapshot.
func (r *Runner) createCheckpoint(index int) {
	snap, err := r.deps.Vision.Capture(r.deps.Window)
	if err != nil {
		r.deps.Logger.Debug().Err(err).Msg("checkpoint snapshot capture failed")
		snap = nil
	}
	r.deps.Checkpoints.Create(index, r.deps.Window.ID, snap)
}

// recoveryOutcome is the loop-level effect of an applied directive.
type recoveryOutcome int

const (
	outcomeUnrecovered recoveryOutcome = iota // recovery failed or exhausted
	outcomeRetry                              // attempt the same index again
	outcomeRewind                             // jump back to a checkpoint
	outcomeSkip                               // move past the failed action
	outcomeAbort                              // stop the run
	outcomeInterrupted                        // canceled while waiting to retry
)

// applyRecovery resolves and applies a directive for the failed action at
// index. The returned action pointer, when non-nil, is a fallback to
// substitute on the next attempt at the same index.
func (r *Runner) applyRecovery(ctx context.Context, failed model.Action, index int,
	directiveRetries *int, fallbackTried *bool) (recoveryOutcome, *model.Action) {

	d := r.deps.Resolver.Resolve(failed)
	r.deps.Resolver.Record(index, failed.Kind, d)

	switch d.Strategy {
	case recovery.StrategyWaitAndRetry:
		if !sleepCtx(ctx, d.Wait) {
			return outcomeInterrupted, nil
		}
		fallthrough
	case recovery.StrategyRetry:
		*directiveRetries++
		if *directiveRetries > d.MaxRetries {
			*directiveRetries = 0
			return outcomeUnrecovered, nil
		}
		return outcomeRetry, nil

	case recovery.StrategyFallback:
		if d.FallbackAction == nil || *fallbackTried {
			return outcomeUnrecovered, nil
		}
		*fallbackTried = true
		fallback := *d.FallbackAction
		return outcomeRetry, &fallback

	case recovery.StrategyCheckpoint:
		if r.deps.Checkpoints.Before(index) == nil {
			r.deps.Logger.Warn().Int("action_index", index).Msg("no valid checkpoint found")
			return outcomeUnrecovered, nil
		}
		return outcomeRewind, nil

	case recovery.StrategySkip:
		fmt.Fprintf(r.deps.Out, "Skipping failed action at index %d\n", index)
		return outcomeSkip, nil

	case recovery.StrategyAbort:
		return outcomeAbort, nil
	}

	return outcomeUnrecovered, nil
}

// sleepCtx blocks for d or until the context is canceled. Returns false when
// canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

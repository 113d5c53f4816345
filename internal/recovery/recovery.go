// Package recovery decides what to do after a failed action: the policy
// resolver maps failures to directives, the checkpoint store keeps resumable
// positions, and the history log records every directive applied.
package recovery

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Kblack0610/clickytheclicker/internal/model"
)

// Strategy enumerates the recovery strategies.
type Strategy string

const (
	StrategyRetry        Strategy = "retry"      // retry the same action
	StrategyWaitAndRetry Strategy = "wait"       // wait, then retry
	StrategyFallback     Strategy = "fallback"   // substitute an alternative action
	StrategyCheckpoint   Strategy = "checkpoint" // rewind to the last checkpoint
	StrategySkip         Strategy = "skip"       // skip the failed action
	StrategyAbort        Strategy = "abort"      // end the run
)

// ValidStrategy reports whether name is a recognized strategy.
func ValidStrategy(name string) bool {
	switch Strategy(name) {
	case StrategyRetry, StrategyWaitAndRetry, StrategyFallback,
		StrategyCheckpoint, StrategySkip, StrategyAbort:
		return true
	}
	return false
}

// Directive is the concrete decision for a failed action.
type Directive struct {
	Strategy       Strategy
	MaxRetries     int
	Wait           time.Duration
	FallbackAction *model.Action
}

// HistoryEntry is an append-only audit record written each time a directive
// is applied. It is never read back by the execution loop.
type HistoryEntry struct {
	Time        time.Time
	ActionIndex int
	Kind        model.Kind
	Strategy    Strategy
	MaxRetries  int
	Wait        time.Duration
}

// Resolver maps failed actions to directives and accumulates the directive
// history for post-hoc analysis.
type Resolver struct {
	logger  zerolog.Logger
	history []HistoryEntry
}

func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve returns the directive for a failed action. An explicit, valid
// on_failure override wins; otherwise the kind default applies. Vision-based
// kinds wait before retrying because their failures are usually render
// timing; literal positions and typing retry immediately.
func (r *Resolver) Resolve(a model.Action) Directive {
	if of := a.OnFailure; of != nil && ValidStrategy(of.Strategy) {
		d := Directive{
			Strategy:       Strategy(of.Strategy),
			MaxRetries:     of.Params.MaxRetries,
			Wait:           time.Duration(of.Params.WaitTime * float64(time.Second)),
			FallbackAction: of.FallbackAction,
		}
		if d.MaxRetries <= 0 {
			d.MaxRetries = 3
		}
		if d.Strategy == StrategyWaitAndRetry && d.Wait <= 0 {
			d.Wait = 2 * time.Second
		}
		return d
	}

	switch a.Kind {
	case model.KindClickText:
		return Directive{Strategy: StrategyWaitAndRetry, MaxRetries: 3, Wait: 2 * time.Second}
	case model.KindClickTemplate:
		return Directive{Strategy: StrategyWaitAndRetry, MaxRetries: 3, Wait: 1500 * time.Millisecond}
	case model.KindClickPosition:
		return Directive{Strategy: StrategyRetry, MaxRetries: 2}
	case model.KindTypeText:
		return Directive{Strategy: StrategyRetry, MaxRetries: 2}
	default:
		return Directive{Strategy: StrategyRetry, MaxRetries: 1}
	}
}

// Record appends a history entry for an applied directive.
func (r *Resolver) Record(actionIndex int, kind model.Kind, d Directive) {
	r.history = append(r.history, HistoryEntry{
		Time:        time.Now(),
		ActionIndex: actionIndex,
		Kind:        kind,
		Strategy:    d.Strategy,
		MaxRetries:  d.MaxRetries,
		Wait:        d.Wait,
	})
	r.logger.Info().
		Int("action_index", actionIndex).
		Str("kind", string(kind)).
		Str("strategy", string(d.Strategy)).
		Msg("applying recovery strategy")
}

// History returns the recorded directive applications in order.
func (r *Resolver) History() []HistoryEntry {
	return r.history
}

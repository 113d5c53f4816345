package model

import (
	"fmt"
	"path/filepath"
)

// Kind identifies the operation an Action performs.
type Kind string

const (
	KindClickPosition Kind = "click_position"
	KindClickText     Kind = "click_text"
	KindClickTemplate Kind = "click_template"
	KindTypeText      Kind = "type_text"
	KindWait          Kind = "wait"
)

// Known reports whether k is one of the supported action kinds.
func (k Kind) Known() bool {
	switch k {
	case KindClickPosition, KindClickText, KindClickTemplate, KindTypeText, KindWait:
		return true
	}
	return false
}

// Action represents one step of an automation script.
type Action struct {
	Kind       Kind          `json:"type"`
	X          int           `json:"x,omitempty"`           // window-relative X coordinate
	Y          int           `json:"y,omitempty"`           // window-relative Y coordinate
	Button     int           `json:"button,omitempty"`      // mouse button: 1=left, 2=middle, 3=right
	Text       string        `json:"text,omitempty"`        // text to find or type
	Template   string        `json:"template,omitempty"`    // path to template image
	Threshold  float64       `json:"threshold,omitempty"`   // template match confidence threshold
	Duration   float64       `json:"duration,omitempty"`    // wait duration in seconds
	RetryCount int           `json:"retry_count,omitempty"` // immediate re-attempts inside one dispatch
	Required   bool          `json:"required,omitempty"`    // failure without recovery halts the run
	OnFailure  *RecoverySpec `json:"on_failure,omitempty"`  // explicit recovery override
}

// RecoverySpec is the persisted form of a per-action recovery override.
type RecoverySpec struct {
	Strategy       string         `json:"strategy"`
	Params         RecoveryParams `json:"params,omitempty"`
	FallbackAction *Action        `json:"fallback_action,omitempty"`
}

// RecoveryParams carries strategy tuning knobs.
type RecoveryParams struct {
	MaxRetries int     `json:"max_retries,omitempty"`
	WaitTime   float64 `json:"wait_time,omitempty"` // seconds
}

// ButtonOrDefault returns the configured mouse button, defaulting to left.
func (a Action) ButtonOrDefault() int {
	if a.Button == 0 {
		return 1
	}
	return a.Button
}

// WaitSeconds returns the wait duration, defaulting to one second.
func (a Action) WaitSeconds() float64 {
	if a.Duration <= 0 {
		return 1.0
	}
	return a.Duration
}

// ThresholdOrDefault returns the template match threshold, defaulting to 0.7.
func (a Action) ThresholdOrDefault() float64 {
	if a.Threshold <= 0 {
		return 0.7
	}
	return a.Threshold
}

// Validate checks structural constraints that should fail a load, not enter
// the retry machinery.
func (a Action) Validate() error {
	if !a.Kind.Known() {
		return fmt.Errorf("unknown action type %q", string(a.Kind))
	}
	if a.RetryCount < 0 {
		return fmt.Errorf("%s: retry_count must not be negative", a.Kind)
	}
	switch a.Kind {
	case KindClickText:
		if a.Text == "" {
			return fmt.Errorf("%s: text must not be empty", a.Kind)
		}
	case KindClickTemplate:
		if a.Template == "" {
			return fmt.Errorf("%s: template path must not be empty", a.Kind)
		}
	case KindWait:
		if a.Duration < 0 {
			return fmt.Errorf("%s: duration must not be negative", a.Kind)
		}
	}
	if a.OnFailure != nil && a.OnFailure.FallbackAction != nil {
		if err := a.OnFailure.FallbackAction.Validate(); err != nil {
			return fmt.Errorf("fallback action: %w", err)
		}
	}
	return nil
}

// Describe returns a short human-readable description of the action, used in
// per-attempt output and the run summary.
func (a Action) Describe() string {
	switch a.Kind {
	case KindClickText:
		return fmt.Sprintf("Click text: '%s'", a.Text)
	case KindClickTemplate:
		return fmt.Sprintf("Click template: '%s'", filepath.Base(a.Template))
	case KindClickPosition:
		return fmt.Sprintf("Click at position: (%d, %d)", a.X, a.Y)
	case KindTypeText:
		return fmt.Sprintf("Type text (%d chars)", len(a.Text))
	case KindWait:
		return fmt.Sprintf("Wait (%g seconds)", a.WaitSeconds())
	default:
		return fmt.Sprintf("Unknown action: %s", string(a.Kind))
	}
}

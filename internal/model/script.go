package model

import (
	"fmt"
)

// Script is an ordered action sequence plus its execution settings. It is the
// unit of persistence: load(save(x)) round-trips every field.
type Script struct {
	Actions        []Action `json:"actions"`
	LoopActions    bool     `json:"loop_actions"`
	ContinuousMode bool     `json:"continuous_mode"`
	ClickInterval  float64  `json:"click_interval"` // seconds between actions
}

// Validate checks every action in the script.
func (s *Script) Validate() error {
	for i, a := range s.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}
	return nil
}

// Normalize drops invalid recovery overrides so the execution loop only ever
// sees a valid strategy or none at all. Unknown strategy names fall back to
// the kind default; this happens once at load time.
func (s *Script) Normalize(validStrategy func(string) bool) {
	for i := range s.Actions {
		of := s.Actions[i].OnFailure
		if of == nil {
			continue
		}
		if !validStrategy(of.Strategy) {
			s.Actions[i].OnFailure = nil
		}
	}
}

package vision

import (
	"strings"

	"github.com/Kblack0610/clickytheclicker/internal/window"
)

// heuristicConfidence is deliberately low so heuristic guesses can never be
// mistaken for real OCR hits in statistics or logs.
const heuristicConfidence = 0.2

// phraseGuess places a known UI phrase at a fraction of the window's size.
type phraseGuess struct {
	substr string
	fx, fy float64
}

// Guesses for dialog phrases that tend to sit in predictable places. These
// are unverified field hacks, kept separate from the vision-confirmed path.
var phraseGuesses = []phraseGuess{
	{substr: "try again", fx: 0.5, fy: 0.6},
	{substr: "accept", fx: 0.5, fy: 0.85},
	{substr: "resume", fx: 0.5, fy: 0.5},
}

// Heuristic guesses positions for well-known UI phrases without consulting a
// capture. Every returned Match is tagged Unverified.
type Heuristic struct{}

// Lookup returns a low-trust position guess for text, or nil when no phrase
// matches.
func (Heuristic) Lookup(text string, win *window.Window) *Match {
	if win == nil || win.Width <= 0 || win.Height <= 0 {
		return nil
	}
	lower := strings.ToLower(text)
	for _, g := range phraseGuesses {
		if strings.Contains(lower, g.substr) {
			return &Match{
				X:          int(float64(win.Width) * g.fx),
				Y:          int(float64(win.Height) * g.fy),
				Confidence: heuristicConfidence,
				Unverified: true,
			}
		}
	}
	return nil
}

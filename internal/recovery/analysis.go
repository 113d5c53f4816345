package recovery

import (
	"fmt"

	"github.com/Kblack0610/clickytheclicker/internal/model"
)

// Analysis summarizes failure patterns from the recovery history.
type Analysis struct {
	Patterns        []string
	Recommendations []string
	KindFailures    map[model.Kind]int
	StrategyUsage   map[Strategy]int
}

// AnalyzeFailures counts directive applications per kind and strategy and
// derives textual recommendations. Purely diagnostic; the execution loop
// never consults it.
func (r *Resolver) AnalyzeFailures() Analysis {
	a := Analysis{
		KindFailures:  make(map[model.Kind]int),
		StrategyUsage: make(map[Strategy]int),
	}
	if len(r.history) == 0 {
		return a
	}

	for _, entry := range r.history {
		a.KindFailures[entry.Kind]++
		a.StrategyUsage[entry.Strategy]++
	}

	for kind, count := range a.KindFailures {
		if count < 3 {
			continue
		}
		a.Patterns = append(a.Patterns, fmt.Sprintf("Action type '%s' failed %d times", kind, count))
		switch kind {
		case model.KindClickText:
			a.Recommendations = append(a.Recommendations,
				"Text recognition failures are common. Consider using template matching instead.")
		case model.KindClickTemplate:
			a.Recommendations = append(a.Recommendations,
				"Template matching failures may indicate UI changes. Consider updating templates.")
		case model.KindClickPosition:
			a.Recommendations = append(a.Recommendations,
				"Position-based clicking is fragile. Consider using text or template matching.")
		}
	}

	if n := a.StrategyUsage[StrategyRetry]; n >= 5 {
		a.Patterns = append(a.Patterns, fmt.Sprintf("Simple retry used %d times", n))
		a.Recommendations = append(a.Recommendations,
			"Simple retries are being used frequently. Consider adding wait times between retries.")
	}
	if n := a.StrategyUsage[StrategyCheckpoint]; n >= 3 {
		a.Patterns = append(a.Patterns, fmt.Sprintf("Checkpoint recovery used %d times", n))
		a.Recommendations = append(a.Recommendations,
			"Frequent checkpoint usage suggests unstable UI elements. Consider more robust detection methods.")
	}

	return a
}

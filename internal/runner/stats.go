package runner

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/Kblack0610/clickytheclicker/internal/model"
)

// KindCount tracks successes and failures for one action kind.
type KindCount struct {
	Success int
	Fail    int
}

// Stats accumulates the outcome of one run. It is owned and mutated only by
// the Runner; the reporter reads it.
type Stats struct {
	StartTime       time.Time
	Successful      int
	Failed          int
	CyclesCompleted int
	KindCounts      map[model.Kind]KindCount
	SuccessLog      []string
	FailureLog      []string
}

func NewStats() *Stats {
	return &Stats{
		StartTime:  time.Now(),
		KindCounts: make(map[model.Kind]KindCount),
	}
}

func (s *Stats) RecordSuccess(kind model.Kind, desc string) {
	s.Successful++
	c := s.KindCounts[kind]
	c.Success++
	s.KindCounts[kind] = c
	s.SuccessLog = append(s.SuccessLog, desc)
}

func (s *Stats) RecordFailure(kind model.Kind, desc string) {
	s.Failed++
	c := s.KindCounts[kind]
	c.Fail++
	s.KindCounts[kind] = c
	s.FailureLog = append(s.FailureLog, desc)
}

// RecentSuccesses returns the last n success descriptions, i.e. the current
// cycle's worth when n is the action count.
func (s *Stats) RecentSuccesses(n int) []string {
	return tail(s.SuccessLog, n)
}

// RecentFailures returns the last n failure descriptions.
func (s *Stats) RecentFailures(n int) []string {
	return tail(s.FailureLog, n)
}

func tail(log []string, n int) []string {
	if n <= 0 || len(log) == 0 {
		return nil
	}
	if len(log) <= n {
		return log
	}
	return log[len(log)-n:]
}

// Report writes the end-of-run summary. cycleLen bounds the per-action detail
// to the most recent cycle; verbose adds the per-kind breakdown.
func (s *Stats) Report(w io.Writer, cycleLen int, verbose bool) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	runTime := time.Since(s.StartTime)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, "Automation Summary")
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Total run time: %.1f seconds\n", runTime.Seconds())
	fmt.Fprintf(w, "Cycles completed: %d\n", s.CyclesCompleted)
	fmt.Fprintf(w, "Successful actions: %d\n", s.Successful)
	fmt.Fprintf(w, "Failed actions: %d\n", s.Failed)

	if verbose && len(s.KindCounts) > 0 {
		fmt.Fprintln(w, "\nAction type breakdown:")
		for kind, counts := range s.KindCounts {
			total := counts.Success + counts.Fail
			if total == 0 {
				continue
			}
			rate := float64(counts.Success) / float64(total) * 100
			fmt.Fprintf(w, "  %s: %d successes, %d failures (%.1f%% success rate)\n",
				kind, counts.Success, counts.Fail, rate)
		}
	}

	if recent := s.RecentSuccesses(cycleLen); len(recent) > 0 {
		fmt.Fprintln(w, "\nSuccessful actions:")
		for _, desc := range recent {
			fmt.Fprintf(w, "  %s %s\n", green("✓"), desc)
		}
	}
	if recent := s.RecentFailures(cycleLen); len(recent) > 0 {
		fmt.Fprintln(w, "\nFailed actions:")
		for _, desc := range recent {
			fmt.Fprintf(w, "  %s %s\n", red("✗"), desc)
		}
	}
	fmt.Fprintln(w, "----------------------------------------")
}

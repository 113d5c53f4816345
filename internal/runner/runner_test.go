package runner

import (
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kblack0610/clickytheclicker/internal/model"
	"github.com/Kblack0610/clickytheclicker/internal/recovery"
	"github.com/Kblack0610/clickytheclicker/internal/vision"
	"github.com/Kblack0610/clickytheclicker/internal/window"
)

type fakeTracker struct {
	err error
}

func (f *fakeTracker) Refresh(w *window.Window) error { return f.err }

type fakeVision struct {
	textMatches   map[string]*vision.Match
	templateMatch *vision.Match
	noText        bool
	onCapture     func()
}

func (f *fakeVision) Capture(win *window.Window) (image.Image, error) {
	if f.onCapture != nil {
		f.onCapture()
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (f *fakeVision) FindText(text string, img image.Image) *vision.Match {
	return f.textMatches[text]
}

func (f *fakeVision) FindTemplate(path string, img image.Image, threshold float64) *vision.Match {
	return f.templateMatch
}

func (f *fakeVision) Supports(s vision.Strategy) bool {
	if s == vision.StrategyText {
		return !f.noText
	}
	return true
}

type clickRec struct {
	x, y, button int
}

type fakeInput struct {
	clicks  []clickRec
	typed   []string
	results []bool // consumed per click; once exhausted every click succeeds
}

func (f *fakeInput) Click(x, y, button int, win *window.Window) bool {
	f.clicks = append(f.clicks, clickRec{x, y, button})
	if len(f.results) == 0 {
		return true
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

func (f *fakeInput) TypeText(text string, win *window.Window) bool {
	f.typed = append(f.typed, text)
	return true
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Interval = 0
	return cfg
}

func newTestRunner(t *testing.T, cfg Config, actions []model.Action, vis *fakeVision, in *fakeInput) *Runner {
	t.Helper()
	if vis == nil {
		vis = &fakeVision{}
	}
	logger := zerolog.Nop()
	deps := Deps{
		Window:      &window.Window{ID: 7, Title: "target", X: 100, Y: 50, Width: 800, Height: 600},
		Windows:     &fakeTracker{},
		Vision:      vis,
		Input:       in,
		Resolver:    recovery.NewResolver(logger),
		Checkpoints: recovery.NewCheckpointStore(t.TempDir(), logger),
		Logger:      logger,
		Out:         io.Discard,
	}
	r, err := New(cfg, actions, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestRunSinglePassStopsWhenLoopDisabled(t *testing.T) {
	t.Parallel()

	actions := []model.Action{
		{Kind: model.KindClickPosition, X: 10, Y: 20},
		{Kind: model.KindTypeText, Text: "hello"},
		{Kind: model.KindWait, Duration: 0.01},
	}
	in := &fakeInput{}
	r := newTestRunner(t, testConfig(), actions, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Successful != 3 || stats.Failed != 0 {
		t.Errorf("stats = %d ok / %d failed, want 3 / 0", stats.Successful, stats.Failed)
	}
	if stats.CyclesCompleted != 1 {
		t.Errorf("CyclesCompleted = %d, want 1", stats.CyclesCompleted)
	}
	if len(in.clicks) != 1 || in.clicks[0] != (clickRec{10, 20, 1}) {
		t.Errorf("clicks = %+v, want one left click at (10, 20)", in.clicks)
	}
	if len(in.typed) != 1 || in.typed[0] != "hello" {
		t.Errorf("typed = %+v, want [hello]", in.typed)
	}
}

func TestRunTextClickAppliesOffset(t *testing.T) {
	t.Parallel()

	vis := &fakeVision{textMatches: map[string]*vision.Match{
		"Submit": {X: 50, Y: 60, Confidence: 0.9},
	}}
	in := &fakeInput{}
	cfg := testConfig()
	cfg.ClickOffset = 10
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickText, Text: "Submit"},
	}, vis, in)

	_, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if len(in.clicks) != 1 || in.clicks[0] != (clickRec{50, 70, 1}) {
		t.Errorf("clicks = %+v, want one click at (50, 70)", in.clicks)
	}
}

func TestRunTextMissFailsWithoutHeuristics(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RecoveryEnabled = false
	in := &fakeInput{}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickText, Text: "Try Again"},
	}, &fakeVision{}, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Failed != 1 || len(in.clicks) != 0 {
		t.Errorf("stats.Failed = %d, clicks = %+v; want 1 failure and no clicks", stats.Failed, in.clicks)
	}
}

func TestRunTextMissUsesHeuristicWhenEnabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Heuristics = true
	in := &fakeInput{}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickText, Text: "Try Again"},
	}, &fakeVision{}, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Successful != 1 {
		t.Fatalf("Successful = %d, want 1", stats.Successful)
	}
	// Window is 800x600; "try again" guesses (0.5, 0.6) with no click offset.
	if len(in.clicks) != 1 || in.clicks[0] != (clickRec{400, 360, 1}) {
		t.Errorf("clicks = %+v, want one click at (400, 360)", in.clicks)
	}
	if len(stats.SuccessLog) != 1 || !strings.Contains(stats.SuccessLog[0], "unverified") {
		t.Errorf("success log = %v, want the heuristic flagged", stats.SuccessLog)
	}
}

func TestRunRequiredActionFailedAfterRetries(t *testing.T) {
	t.Parallel()

	in := &fakeInput{results: []bool{false, false, false, false, false}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1, Required: true},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopRequiredActionFailed {
		t.Fatalf("reason = %s, want %s", reason, StopRequiredActionFailed)
	}
	// Initial attempt plus the click_position default of two directive retries.
	if len(in.clicks) != 3 {
		t.Errorf("clicks = %d, want 3", len(in.clicks))
	}
	if stats.Failed != 3 || stats.Successful != 0 {
		t.Errorf("stats = %d ok / %d failed, want 0 / 3", stats.Successful, stats.Failed)
	}
}

func TestRunMaxConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Loop = true
	cfg.RecoveryEnabled = false
	cfg.MaxConsecutiveFailures = 3
	in := &fakeInput{results: []bool{false, false, false, false, false, false}}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1},
		{Kind: model.KindClickPosition, X: 2, Y: 2},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopMaxConsecutiveFailures {
		t.Fatalf("reason = %s, want %s", reason, StopMaxConsecutiveFailures)
	}
	if stats.Failed != 3 {
		t.Errorf("Failed = %d, want 3", stats.Failed)
	}
}

func TestRunConsecutiveFailureCounterResetsOnSuccess(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RecoveryEnabled = false
	cfg.MaxConsecutiveFailures = 2
	// fail, succeed, fail, succeed: never two failures in a row.
	in := &fakeInput{results: []bool{false, true, false, true}}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1},
		{Kind: model.KindClickPosition, X: 2, Y: 2},
		{Kind: model.KindClickPosition, X: 3, Y: 3},
		{Kind: model.KindClickPosition, X: 4, Y: 4},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Failed != 2 || stats.Successful != 2 {
		t.Errorf("stats = %d ok / %d failed, want 2 / 2", stats.Successful, stats.Failed)
	}
}

func TestRunMaxCyclesAtCycleBoundary(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Loop = true
	cfg.MaxCycles = 2
	in := &fakeInput{}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1},
		{Kind: model.KindClickPosition, X: 2, Y: 2},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopMaxCycles {
		t.Fatalf("reason = %s, want %s", reason, StopMaxCycles)
	}
	if stats.CyclesCompleted != 2 || stats.Successful != 4 {
		t.Errorf("cycles = %d, successes = %d; want 2 cycles, 4 successes",
			stats.CyclesCompleted, stats.Successful)
	}
}

func TestRunAbortDirective(t *testing.T) {
	t.Parallel()

	in := &fakeInput{results: []bool{false}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{
			Kind: model.KindClickPosition, X: 1, Y: 1,
			OnFailure: &model.RecoverySpec{Strategy: "abort"},
		},
	}, nil, in)

	_, reason := r.Run(context.Background())

	if reason != StopAbortDirective {
		t.Fatalf("reason = %s, want %s", reason, StopAbortDirective)
	}
}

func TestRunSkipDirectiveMovesOn(t *testing.T) {
	t.Parallel()

	in := &fakeInput{results: []bool{false, true}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{
			Kind: model.KindClickPosition, X: 1, Y: 1, Required: true,
			OnFailure: &model.RecoverySpec{Strategy: "skip"},
		},
		{Kind: model.KindClickPosition, X: 2, Y: 2},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Failed != 1 || stats.Successful != 1 {
		t.Errorf("stats = %d ok / %d failed, want 1 / 1", stats.Successful, stats.Failed)
	}
	if len(in.clicks) != 2 {
		t.Errorf("clicks = %+v, want both actions attempted once", in.clicks)
	}
}

func TestRunFallbackSubstitution(t *testing.T) {
	t.Parallel()

	in := &fakeInput{results: []bool{false, true}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{
			Kind: model.KindClickPosition, X: 1, Y: 1, Required: true,
			OnFailure: &model.RecoverySpec{
				Strategy:       "fallback",
				FallbackAction: &model.Action{Kind: model.KindClickPosition, X: 99, Y: 98},
			},
		},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Successful != 1 || stats.Failed != 1 {
		t.Errorf("stats = %d ok / %d failed, want 1 / 1", stats.Successful, stats.Failed)
	}
	want := []clickRec{{1, 1, 1}, {99, 98, 1}}
	if len(in.clicks) != 2 || in.clicks[0] != want[0] || in.clicks[1] != want[1] {
		t.Errorf("clicks = %+v, want %+v", in.clicks, want)
	}
}

func TestRunFallbackFailureIsTerminalForRequiredAction(t *testing.T) {
	t.Parallel()

	in := &fakeInput{results: []bool{false, false}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{
			Kind: model.KindClickPosition, X: 1, Y: 1, Required: true,
			OnFailure: &model.RecoverySpec{
				Strategy:       "fallback",
				FallbackAction: &model.Action{Kind: model.KindClickPosition, X: 99, Y: 98},
			},
		},
	}, nil, in)

	_, reason := r.Run(context.Background())

	// The fallback is tried once; its failure must not loop forever.
	if reason != StopRequiredActionFailed {
		t.Fatalf("reason = %s, want %s", reason, StopRequiredActionFailed)
	}
	if len(in.clicks) != 2 {
		t.Errorf("clicks = %d, want 2 (original plus one fallback attempt)", len(in.clicks))
	}
}

func TestRunCheckpointRewind(t *testing.T) {
	t.Parallel()

	// Succeed at 0 and 1, fail once at 2 with checkpoint recovery, then
	// succeed everywhere: the run should rewind to the checkpoint at 0 and
	// replay to completion.
	in := &fakeInput{results: []bool{true, true, false}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1},
		{Kind: model.KindClickPosition, X: 2, Y: 2},
		{
			Kind: model.KindClickPosition, X: 3, Y: 3, Required: true,
			OnFailure: &model.RecoverySpec{Strategy: "checkpoint"},
		},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	want := []clickRec{{1, 1, 1}, {2, 2, 1}, {3, 3, 1}, {1, 1, 1}, {2, 2, 1}, {3, 3, 1}}
	if len(in.clicks) != len(want) {
		t.Fatalf("clicks = %+v, want %+v", in.clicks, want)
	}
	for i := range want {
		if in.clicks[i] != want[i] {
			t.Fatalf("clicks = %+v, want %+v", in.clicks, want)
		}
	}
	if stats.CyclesCompleted != 1 {
		t.Errorf("CyclesCompleted = %d, want 1", stats.CyclesCompleted)
	}
}

func TestRunCheckpointWithoutPriorCheckpointFails(t *testing.T) {
	t.Parallel()

	// The only checkpoint is at index 0; a failure at index 0 has nothing
	// strictly earlier to rewind to, so recovery fails and the required flag
	// decides.
	in := &fakeInput{results: []bool{false}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{
			Kind: model.KindClickPosition, X: 1, Y: 1, Required: true,
			OnFailure: &model.RecoverySpec{Strategy: "checkpoint"},
		},
	}, nil, in)

	_, reason := r.Run(context.Background())

	if reason != StopRequiredActionFailed {
		t.Fatalf("reason = %s, want %s", reason, StopRequiredActionFailed)
	}
}

func TestRunMissingTemplateFailsWithoutDispatch(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RecoveryEnabled = false
	in := &fakeInput{}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickTemplate, Template: "/nonexistent/button.png", RetryCount: 3},
	}, &fakeVision{}, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Failed != 1 || len(in.clicks) != 0 {
		t.Errorf("Failed = %d, clicks = %+v; a missing template must fail fast", stats.Failed, in.clicks)
	}
}

func TestRunTemplateClickAtMatchCenter(t *testing.T) {
	t.Parallel()

	tmpl := filepath.Join(t.TempDir(), "button.png")
	if err := os.WriteFile(tmpl, []byte("not really a png"), 0o600); err != nil {
		t.Fatal(err)
	}

	vis := &fakeVision{templateMatch: &vision.Match{X: 120, Y: 80, Confidence: 0.95}}
	in := &fakeInput{}
	r := newTestRunner(t, testConfig(), []model.Action{
		{Kind: model.KindClickTemplate, Template: tmpl},
	}, vis, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if stats.Successful != 1 {
		t.Fatalf("Successful = %d, want 1", stats.Successful)
	}
	if len(in.clicks) != 1 || in.clicks[0] != (clickRec{120, 80, 1}) {
		t.Errorf("clicks = %+v, want one click at (120, 80)", in.clicks)
	}
}

func TestRunImmediateRetriesWithinOneDispatch(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RecoveryEnabled = false
	in := &fakeInput{results: []bool{false, true}}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1, RetryCount: 1},
	}, nil, in)

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	// The inner retry absorbed the miss: one success, no recorded failure.
	if stats.Successful != 1 || stats.Failed != 0 {
		t.Errorf("stats = %d ok / %d failed, want 1 / 0", stats.Successful, stats.Failed)
	}
	if len(in.clicks) != 2 {
		t.Errorf("clicks = %d, want 2", len(in.clicks))
	}
}

func TestRunContinuousModeInterruptible(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Continuous = true
	cfg.RecoveryEnabled = false
	cfg.MaxConsecutiveFailures = 0

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	in := &fakeInput{results: []bool{false, false, false, false}}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1, Required: true},
	}, nil, in)

	stats, reason := r.Run(ctx)

	if reason != StopUserInterrupt {
		t.Fatalf("reason = %s, want %s", reason, StopUserInterrupt)
	}
	if stats.Failed == 0 {
		t.Error("expected at least one recorded failure before the interrupt")
	}
}

func TestRunWindowGoneIsFatalForDispatch(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RecoveryEnabled = false
	in := &fakeInput{}
	r := newTestRunner(t, cfg, []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1, RetryCount: 5},
	}, nil, in)
	r.deps.Windows = &fakeTracker{err: window.ErrWindowGone}

	stats, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	// No dispatch and no inner retries once the window is gone.
	if stats.Failed != 1 || len(in.clicks) != 0 {
		t.Errorf("Failed = %d, clicks = %+v", stats.Failed, in.clicks)
	}
}

func TestCheckpointInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		actions int
		want    int
	}{
		{1, 5},   // floor of 5
		{10, 5},  // ceil(10/5)=2, floored
		{25, 5},  // ceil(25/5)=5, exactly the floor
		{26, 6},  // ceil(26/5)=6
		{50, 10}, // ceil(50/5)=10
	}
	for _, tt := range tests {
		actions := make([]model.Action, tt.actions)
		for i := range actions {
			actions[i] = model.Action{Kind: model.KindClickPosition, X: 1, Y: 1}
		}
		r := newTestRunner(t, testConfig(), actions, nil, &fakeInput{})
		if got := r.checkpointInterval(); got != tt.want {
			t.Errorf("checkpointInterval() with %d actions = %d, want %d", tt.actions, got, tt.want)
		}
	}
}

func TestRunCheckpointCadence(t *testing.T) {
	t.Parallel()

	// 26 actions: interval is ceil(26/5)=6, so checkpoints land at indexes
	// 0, 6, 12, 18, 24. Checkpoint creation is the only capture in an
	// all-position-click run, and it happens before that index dispatches,
	// so the click count at capture time equals the checkpointed index.
	actions := make([]model.Action, 26)
	for i := range actions {
		actions[i] = model.Action{Kind: model.KindClickPosition, X: i + 1, Y: 1}
	}
	in := &fakeInput{}
	var capturedAt []int
	vis := &fakeVision{onCapture: func() { capturedAt = append(capturedAt, len(in.clicks)) }}
	r := newTestRunner(t, testConfig(), actions, vis, in)

	_, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	want := []int{0, 6, 12, 18, 24}
	if len(capturedAt) != len(want) {
		t.Fatalf("checkpoints created at %v, want %v", capturedAt, want)
	}
	for i := range want {
		if capturedAt[i] != want[i] {
			t.Fatalf("checkpoints created at %v, want %v", capturedAt, want)
		}
	}
}

func TestRunNoCheckpointWhileRetrying(t *testing.T) {
	t.Parallel()

	// One action stuck in directive retries: the index stays at 0, which is
	// always checkpoint-due, but only the first visit may create one.
	var captures int
	vis := &fakeVision{onCapture: func() { captures++ }}
	in := &fakeInput{results: []bool{false, false, false}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{Kind: model.KindClickPosition, X: 1, Y: 1},
	}, vis, in)

	_, reason := r.Run(context.Background())

	if reason != StopLoopDisabled {
		t.Fatalf("reason = %s, want %s", reason, StopLoopDisabled)
	}
	if len(in.clicks) != 3 {
		t.Fatalf("clicks = %d, want the initial attempt plus two directive retries", len(in.clicks))
	}
	if captures != 1 {
		t.Errorf("checkpoints created = %d, want 1 (none mid-retry)", captures)
	}
}

func TestRunInterruptDuringRecoveryBackoff(t *testing.T) {
	t.Parallel()

	// Cancellation while blocked in a wait-and-retry backoff is a user
	// interrupt, not a required-action failure.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	in := &fakeInput{results: []bool{false}}
	r := newTestRunner(t, testConfig(), []model.Action{
		{
			Kind: model.KindClickPosition, X: 1, Y: 1, Required: true,
			OnFailure: &model.RecoverySpec{
				Strategy: "wait",
				Params:   model.RecoveryParams{WaitTime: 5},
			},
		},
	}, nil, in)

	_, reason := r.Run(ctx)

	if reason != StopUserInterrupt {
		t.Fatalf("reason = %s, want %s", reason, StopUserInterrupt)
	}
}

func TestNewRejectsEmptyScripts(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig(), nil, Deps{Window: &window.Window{ID: 1}})
	if err == nil {
		t.Fatal("New() with no actions should fail")
	}
}

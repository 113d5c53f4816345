package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kblack0610/clickytheclicker/internal/input"
	"github.com/Kblack0610/clickytheclicker/internal/recovery"
	"github.com/Kblack0610/clickytheclicker/internal/runner"
	"github.com/Kblack0610/clickytheclicker/internal/store"
	"github.com/Kblack0610/clickytheclicker/internal/vision"
	"github.com/Kblack0610/clickytheclicker/internal/window"
)

var (
	runConfig      string
	runInterval    float64
	runLoop        bool
	runContinuous  bool
	runMaxCycles   int
	runMaxFailures int
	runNoRecovery  bool
	runHeuristics  bool
	runClickOffset int
	runJitter      int
	runDryRun      bool
	runVerbose     bool
)

var runCmd = &cobra.Command{
	Use:   "run [script]",
	Short: "Execute an action script against the target window",
	Long: `Run loads a JSON action script and executes it against the target window.
The script comes from the positional argument or --config; bare names are
resolved in the config directory. Failures are handled per action through
the recovery strategies.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runConfig, "config", "", "path to the action script")
	f.Float64Var(&runInterval, "interval", 0, "seconds between actions (overrides the script's click_interval)")
	f.BoolVar(&runLoop, "loop", false, "restart from the first action after the last")
	f.BoolVar(&runContinuous, "continuous", false, "retry failed required actions forever instead of stopping")
	f.IntVar(&runMaxCycles, "max-cycles", 0, "stop after this many completed cycles (0 = unlimited)")
	f.IntVar(&runMaxFailures, "max-consecutive-failures", 10, "stop after this many failures in a row (0 = unlimited)")
	f.BoolVar(&runNoRecovery, "no-recovery", false, "disable recovery strategies; failures only count toward limits")
	f.BoolVar(&runHeuristics, "heuristics", false, "allow unverified position guesses for well-known phrases")
	f.IntVar(&runClickOffset, "click-offset", 10, "pixels below a text match to click")
	f.IntVar(&runJitter, "jitter", 0, "max random pixel offset per click")
	f.BoolVar(&runDryRun, "dry-run", false, "log actions without dispatching input")
	f.BoolVarP(&runVerbose, "verbose", "v", false, "per-kind breakdown and failure analysis in the summary")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	path := runConfig
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("an action script is required: pass it as an argument or with --config")
	}

	script, err := store.Load(path)
	if err != nil {
		return err
	}

	locator := window.NewLocator(logger)
	win, err := resolveWindow(locator)
	if err != nil {
		return err
	}
	logger.Info().Int64("window_id", win.ID).Str("title", win.Title).Msg("target window resolved")
	if err := locator.Activate(win); err != nil {
		logger.Warn().Err(err).Msg("could not activate window, continuing anyway")
	}

	cfg := runner.DefaultConfig()
	cfg.Loop = runLoop || script.LoopActions
	cfg.Continuous = runContinuous || script.ContinuousMode
	cfg.MaxCycles = runMaxCycles
	cfg.MaxConsecutiveFailures = runMaxFailures
	cfg.RecoveryEnabled = !runNoRecovery
	cfg.Heuristics = runHeuristics
	cfg.ClickOffset = runClickOffset
	cfg.Verbose = runVerbose
	switch {
	case runInterval > 0:
		cfg.Interval = time.Duration(runInterval * float64(time.Second))
	case script.ClickInterval > 0:
		cfg.Interval = time.Duration(script.ClickInterval * float64(time.Second))
	}

	var dispatcher input.Dispatcher = input.NewRobot(logger, runJitter)
	if runDryRun {
		dispatcher = input.NewDryRun(logger)
	}

	resolver := recovery.NewResolver(logger)
	deps := runner.Deps{
		Window:      win,
		Windows:     locator,
		Vision:      vision.NewScreen(logger),
		Input:       dispatcher,
		Resolver:    resolver,
		Checkpoints: recovery.NewCheckpointStore(store.CheckpointDir(), logger),
		Logger:      logger,
		Out:         cmd.OutOrStdout(),
	}

	r, err := runner.New(cfg, script.Actions, deps)
	if err != nil {
		return err
	}

	_, reason := r.Run(cmd.Context())

	if runVerbose {
		printAnalysis(cmd, resolver)
	}

	switch reason {
	case runner.StopUserInterrupt:
		return errInterrupted
	case runner.StopRequiredActionFailed, runner.StopMaxConsecutiveFailures, runner.StopAbortDirective:
		return fmt.Errorf("automation stopped: %s", reason)
	}
	return nil
}

func printAnalysis(cmd *cobra.Command, resolver *recovery.Resolver) {
	analysis := resolver.AnalyzeFailures()
	if len(analysis.Patterns) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nFailure patterns:")
	for _, p := range analysis.Patterns {
		fmt.Fprintf(out, "  - %s\n", p)
	}
	if len(analysis.Recommendations) > 0 {
		fmt.Fprintln(out, "Recommendations:")
		for _, rec := range analysis.Recommendations {
			fmt.Fprintf(out, "  - %s\n", rec)
		}
	}
}

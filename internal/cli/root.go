// Package cli wires the command-line surface: run, record, windows and
// test-click subcommands over the automation engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Kblack0610/clickytheclicker/internal/window"
)

// errInterrupted distinguishes a user interrupt from an ordinary failure so
// the process can exit 130 like a shell would.
var errInterrupted = errors.New("interrupted")

var (
	debug      bool
	windowID   int64
	windowName string
)

var rootCmd = &cobra.Command{
	Use:   "clickytheclicker",
	Short: "Automate clicks and keystrokes against an X11 window",
	Long: `clickytheclicker replays scripted mouse and keyboard actions against a
target X11 window, recovering from transient failures along the way.
Scripts are JSON files of click, type and wait actions; targets are
resolved by coordinates, on-screen text (OCR) or template images.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int64Var(&windowID, "window-id", 0, "target window by X11 id")
	rootCmd.PersistentFlags().StringVar(&windowName, "window-name", "", "target window by title or process name")

	rootCmd.AddCommand(runCmd, recordCmd, windowsCmd, testClickCmd)
}

// Execute runs the CLI and returns the process exit code: 0 on success, 1 on
// failure, 130 on interrupt.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errInterrupted) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
			return 130
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().
		Logger()
}

// resolveWindow turns the persistent --window-id / --window-name flags into a
// live window.
func resolveWindow(locator *window.Locator) (*window.Window, error) {
	switch {
	case windowID != 0:
		return locator.ByID(windowID)
	case windowName != "":
		return locator.ByName(windowName)
	default:
		return nil, errors.New("a target window is required: pass --window-id or --window-name")
	}
}

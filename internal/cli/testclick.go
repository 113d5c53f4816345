package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Kblack0610/clickytheclicker/internal/input"
	"github.com/Kblack0610/clickytheclicker/internal/window"
)

var (
	testClickButton int
	testClickDryRun bool
)

var testClickCmd = &cobra.Command{
	Use:   "test-click <x> <y>",
	Short: "Send a single click at window-relative coordinates",
	Long: `Test-click dispatches one click at the given window-relative coordinates.
Useful for verifying coordinates before writing or recording a script.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		x, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("x coordinate must be an integer: %w", err)
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("y coordinate must be an integer: %w", err)
		}

		locator := window.NewLocator(logger)
		win, err := resolveWindow(locator)
		if err != nil {
			return err
		}
		if err := locator.Activate(win); err != nil {
			logger.Warn().Err(err).Msg("could not activate window, continuing anyway")
		}

		var dispatcher input.Dispatcher = input.NewRobot(logger, 0)
		if testClickDryRun {
			dispatcher = input.NewDryRun(logger)
		}
		if !dispatcher.Click(x, y, testClickButton, win) {
			return fmt.Errorf("click at (%d, %d) failed", x, y)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Clicked at (%d, %d) in window %d\n", x, y, win.ID)
		return nil
	},
}

func init() {
	testClickCmd.Flags().IntVar(&testClickButton, "button", 1, "mouse button: 1=left, 2=middle, 3=right")
	testClickCmd.Flags().BoolVar(&testClickDryRun, "dry-run", false, "log the click without dispatching it")
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kblack0610/clickytheclicker/internal/recorder"
	"github.com/Kblack0610/clickytheclicker/internal/store"
	"github.com/Kblack0610/clickytheclicker/internal/window"
)

var recordOut string

var recordCmd = &cobra.Command{
	Use:   "record [script]",
	Short: "Record clicks and keystrokes into a replayable script",
	Long: `Record listens to mouse and keyboard input until interrupted (Ctrl+C) and
writes the captured actions as a script. Only clicks inside the target
window are kept; pauses over a second become wait actions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		out := recordOut
		if len(args) == 1 {
			out = args[0]
		}
		if out == "" {
			return errors.New("an output script name is required: pass it as an argument or with --out")
		}

		locator := window.NewLocator(logger)
		win, err := resolveWindow(locator)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Recording input for window %d (%s). Press Ctrl+C to finish.\n",
			win.ID, win.Title)

		rec := recorder.New(win, logger)
		script, err := rec.Record(cmd.Context())
		if err != nil {
			return err
		}
		if len(script.Actions) == 0 {
			return errors.New("nothing recorded")
		}

		if err := store.Save(out, script); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d actions to %s\n",
			len(script.Actions), store.ResolvePath(out))
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordOut, "out", "", "script name to write the recording to")
}

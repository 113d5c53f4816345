package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kblack0610/clickytheclicker/internal/store"
	"github.com/Kblack0610/clickytheclicker/internal/window"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List visible windows and saved scripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		out := cmd.OutOrStdout()

		windows, err := window.NewLocator(logger).List()
		if err != nil {
			return err
		}
		if len(windows) == 0 {
			fmt.Fprintln(out, "No visible windows found")
		} else {
			fmt.Fprintln(out, "Visible windows:")
			for _, w := range windows {
				fmt.Fprintf(out, "  %d  %dx%d at (%d, %d)  %s\n",
					w.ID, w.Width, w.Height, w.X, w.Y, w.Title)
			}
		}

		scripts, err := store.List()
		if err != nil {
			return err
		}
		if len(scripts) > 0 {
			fmt.Fprintln(out, "\nSaved scripts:")
			for _, name := range scripts {
				fmt.Fprintf(out, "  %s\n", name)
			}
		}
		return nil
	},
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the active run and all partials from the local slot",
	Long: `Clear the active run and all partials from the local slot.

Only the local copy is cleared. When remote sync is enabled the next server
start follows the shared current-run pointer again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("reset requires --yes")
		}

		snap := snapshots.Load()
		snapshots.Clear()
		snapshots.ClearLastShift()

		if snap.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to reset.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s cleared (%d partials).\n", snap.Run.ID, len(snap.Partials))
		return nil
	},
}

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pinvault/internal/remote"
	syncpkg "pinvault/internal/sync"
)

var cleanupTombstones bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the remote store",
	Long: `Runs one full sync cycle: local changes go up, foreign changes
come down, last write wins. Requires a signed-in identity token; without
one the vault keeps working locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanupTombstones {
			removed, err := engine.CleanupTombstones(cmd.Context())
			if err != nil {
				return fmt.Errorf("tombstone cleanup failed: %w", err)
			}
			color.Green("Removed %d expired tombstone(s).", removed)
			return nil
		}

		result, err := engine.SyncToCloud(cmd.Context())
		if err != nil {
			switch {
			case errors.Is(err, remote.ErrNotSignedIn), errors.Is(err, syncpkg.ErrSyncUnavailable):
				color.Yellow("Not signed in; working locally only.")
				return nil
			case errors.Is(err, syncpkg.ErrSyncInProgress):
				color.Yellow("A sync is already running.")
				return nil
			}
			return fmt.Errorf("sync failed: %w", err)
		}

		color.Green("Sync finished in %s.", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
		fmt.Printf("Uploaded:   %d\n", result.Uploaded)
		fmt.Printf("Downloaded: %d\n", result.Downloaded)
		fmt.Printf("Deleted:    %d\n", result.Deleted)
		if result.Conflicts > 0 {
			color.Yellow("Conflicts resolved (last write wins): %d", result.Conflicts)
		}
		for _, syncErr := range result.Errors {
			color.Red("record %d: %s failed: %v",
				syncErr.RecordID, syncErr.Operation, syncErr.Error)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&cleanupTombstones, "cleanup", false, "remove tombstones older than 24h instead of syncing")
	rootCmd.AddCommand(syncCmd)
}

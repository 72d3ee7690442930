package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pinvault/internal/remote"
	syncpkg "pinvault/internal/sync"
)

var pollInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow remote changes and keep the local vault current",
	Long: `Polls the remote change feed and syncs whenever another device
writes something. Changes made by this device are ignored. Runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		httpStore := remote.NewHTTPStore(cfg, log)
		listener := syncpkg.NewListener(engine, cfg.DeviceID, log)

		results := engine.Subscribe()
		go func() {
			for result := range results {
				color.Green("Synced: %d up, %d down, %d deleted.",
					result.Uploaded, result.Downloaded, result.Deleted)
			}
		}()

		color.Cyan("Watching for remote changes (Ctrl+C to stop)...")
		listener.Run(ctx, httpStore.Poll(ctx, pollInterval))
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&pollInterval, "interval", 5*time.Second, "change feed poll interval")
	rootCmd.AddCommand(watchCmd)
}

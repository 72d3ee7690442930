package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault state",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := st.LoadMeta(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load vault state: %w", err)
		}
		if meta == nil {
			color.Yellow("Vault is not set up yet. Run: vault setup")
			return nil
		}

		color.Cyan("=== pinvault status ===")
		fmt.Printf("Device:        %s\n", cfg.DeviceID)
		fmt.Printf("Storage:       %s\n", cfg.DataPath)
		fmt.Printf("KDF:           PBKDF2-SHA256, %d iterations\n", meta.KDFIterations)
		fmt.Printf("Auto-lock:     %s\n", time.Duration(meta.AutoLockSeconds)*time.Second)

		failed, err := gate.FailedAttempts(cmd.Context())
		if err == nil && failed > 0 {
			color.Yellow("Failed unlock attempts: %d", failed)
		}

		now := time.Now()
		if meta.LockUntil != nil && now.Before(*meta.LockUntil) {
			color.Red("Lockout active: retry in %s",
				meta.LockUntil.Sub(now).Round(time.Second))
		}

		records, err := svc.ListRecords(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Records:       %d\n", len(records))

		cursor, err := st.LoadCursor(cmd.Context())
		if err == nil && !cursor.LastSyncTime.IsZero() {
			fmt.Printf("Last sync:     %s\n", cursor.LastSyncTime.Local().Format(time.RFC822))
		} else {
			fmt.Println("Last sync:     never")
		}

		return nil
	},
}

var autolockCmd = &cobra.Command{
	Use:   "autolock",
	Short: "Set the inactivity timeout",
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := cmd.Flags().GetInt("minutes")
		if err != nil {
			return err
		}

		if err := gate.SetAutoLock(cmd.Context(), time.Duration(minutes)*time.Minute); err != nil {
			return fmt.Errorf("failed to update auto-lock: %w", err)
		}

		color.Green("Auto-lock set to %d minute(s).", minutes)
		return nil
	},
}

func init() {
	autolockCmd.Flags().Int("minutes", 2, "minutes of inactivity before the vault locks (1-60)")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(autolockCmd)
}

package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pinvault/internal/vault/keyring"
)

// newCredentialStore is the seam for a platform biometric provider.
// Builds without one keep the escrow API reachable but report the
// missing provider instead of pretending a prompt happened.
var newCredentialStore func() (keyring.CredentialStore, error)

func platformEscrow() (*keyring.Escrow, error) {
	if newCredentialStore == nil {
		return nil, fmt.Errorf("no platform biometric provider on this build")
	}
	store, err := newCredentialStore()
	if err != nil {
		return nil, err
	}
	return keyring.NewEscrow(store), nil
}

var biometricCmd = &cobra.Command{
	Use:   "biometric",
	Short: "Manage biometric unlock",
	Long: `Biometric unlock keeps a second copy of the master key sealed
behind the platform biometric credential. It is a convenience path next
to the PIN, not a replacement for it.`,
}

var biometricEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enroll biometric unlock",
	RunE: func(cmd *cobra.Command, args []string) error {
		escrow, err := platformEscrow()
		if err != nil {
			return err
		}

		if err := ensureUnlocked(cmd); err != nil {
			return err
		}
		master, err := gate.Key()
		if err != nil {
			return err
		}

		if err := escrow.Enable(master); err != nil {
			return fmt.Errorf("failed to enroll biometric unlock: %w", err)
		}
		color.Green("Biometric unlock enabled.")
		return nil
	},
}

var biometricDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove biometric unlock",
	RunE: func(cmd *cobra.Command, args []string) error {
		escrow, err := platformEscrow()
		if err != nil {
			return err
		}
		if !escrow.Enabled() {
			color.Yellow("Biometric unlock is not enabled.")
			return nil
		}

		if err := escrow.Disable(); err != nil {
			return fmt.Errorf("failed to remove biometric unlock: %w", err)
		}
		color.Green("Biometric unlock disabled. The PIN path is unaffected.")
		return nil
	},
}

var biometricUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock through the platform biometric prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		escrow, err := platformEscrow()
		if err != nil {
			return err
		}

		ok, err := gate.AuthenticateBiometric(cmd.Context(), escrow)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("biometric unlock failed")
		}
		color.Green("Vault unlocked.")
		return nil
	},
}

func init() {
	biometricCmd.AddCommand(biometricEnableCmd)
	biometricCmd.AddCommand(biometricDisableCmd)
	biometricCmd.AddCommand(biometricUnlockCmd)
	rootCmd.AddCommand(biometricCmd)
}

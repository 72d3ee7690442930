package cmd

import (
	"fmt"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const minPINLength = 4

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the vault and choose a PIN",
	Long: `Generates the master key and seals it under a key derived from
your PIN. The PIN never leaves this machine; losing it means losing
access to every private record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := promptPIN("Choose a PIN: ")
		if err != nil {
			return err
		}
		if err := validatePIN(pin); err != nil {
			return err
		}

		confirm, err := promptPIN("Repeat the PIN: ")
		if err != nil {
			return err
		}
		if pin != confirm {
			return fmt.Errorf("PINs do not match")
		}

		if err := gate.Setup(cmd.Context(), pin); err != nil {
			return fmt.Errorf("failed to create vault: %w", err)
		}

		color.Green("Vault created. It is unlocked for this session.")
		fmt.Println("Add your first record with: vault record add")
		return nil
	},
}

func validatePIN(pin string) error {
	if len(pin) < minPINLength {
		return fmt.Errorf("PIN must be at least %d digits", minPINLength)
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("PIN must contain digits only")
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

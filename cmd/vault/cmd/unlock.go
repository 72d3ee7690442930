package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pinvault/internal/vault/authgate"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Verify the PIN",
	Long: `Checks the PIN against the vault. A successful check clears the
failed-attempt counter and any pending lockout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := promptPIN("PIN: ")
		if err != nil {
			return err
		}

		ok, err := gate.Authenticate(cmd.Context(), pin)
		if err != nil {
			if errors.Is(err, authgate.ErrLockoutActive) {
				color.Red("%v", err)
				return nil
			}
			return err
		}
		if !ok {
			failed, _ := gate.FailedAttempts(cmd.Context())
			color.Red("Wrong PIN (%d failed attempts).", failed)
			return fmt.Errorf("wrong PIN")
		}

		color.Green("PIN accepted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an encrypted snapshot",
	Long: `Writes a snapshot of the wrapped master key, the KDF parameters
and every record in its stored form. Private records stay encrypted;
the snapshot is only useful together with the PIN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := svc.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to build export snapshot: %w", err)
		}

		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize snapshot: %w", err)
		}

		if exportPath == "" {
			fmt.Println(string(data))
			return nil
		}

		if err := os.WriteFile(exportPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		color.Green("Exported %d record(s) to %s.", len(snap.Records), exportPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "", "output file (stdout when empty)")
	rootCmd.AddCommand(exportCmd)
}

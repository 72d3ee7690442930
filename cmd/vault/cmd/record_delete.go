package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deleteYes bool

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record",
	Long: `Removes the record locally right away and propagates a tombstone
so other devices drop their copies on their next sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRecordID(args[0])
		if err != nil {
			return err
		}

		if !deleteYes {
			answer := promptLine(fmt.Sprintf("Delete record %d? [y/N]: ", id))
			if strings.ToLower(answer) != "y" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := svc.DeleteRecord(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}

		color.Green("Record %d deleted.", id)
		return nil
	},
}

func init() {
	recordDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip confirmation")
	recordCmd.AddCommand(recordDeleteCmd)
}

package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pinvault/internal/domain/record"
)

var listTypeFilter string

var recordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	Long: `Lists record metadata. Tags and timestamps live outside the
ciphertext, so listing works while the vault is locked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := svc.ListRecords(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}

		if listTypeFilter != "" {
			recType, err := parseRecType(listTypeFilter)
			if err != nil {
				return err
			}
			filtered := records[:0]
			for _, rec := range records {
				if rec.Type == recType {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}

		if len(records) == 0 {
			color.Yellow("No records.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tACCESS\tTAGS\tUPDATED")
		for _, rec := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				rec.ID,
				rec.Type,
				accessLabel(rec),
				strings.Join(rec.Tags, ","),
				rec.UpdatedAt.Local().Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func accessLabel(rec record.Record) string {
	if rec.IsPrivate {
		return "private"
	}
	return "public"
}

func init() {
	recordListCmd.Flags().StringVarP(&listTypeFilter, "type", "t", "", "filter by record type")
	recordCmd.AddCommand(recordListCmd)
}

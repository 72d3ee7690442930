package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pinvault/internal/domain/record"
)

var getJSON bool

var recordGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRecordID(args[0])
		if err != nil {
			return err
		}

		rec, err := st.GetRecord(cmd.Context(), id)
		if err != nil {
			return err
		}
		if rec.IsPrivate {
			if err := ensureUnlocked(cmd); err != nil {
				return err
			}
		}

		rec, payload, err := svc.GetRecord(cmd.Context(), id)
		if err != nil {
			return err
		}

		if getJSON {
			out := struct {
				*record.Record
				Payload record.Payload `json:"payload"`
			}{rec, payload}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		color.Cyan("=== %s record %d ===", rec.Type.DisplayName(), rec.ID)
		if len(rec.Tags) > 0 {
			fmt.Printf("Tags:     %s\n", strings.Join(rec.Tags, ", "))
		}
		fmt.Printf("Created:  %s\n", rec.CreatedAt.Local().Format(time.RFC822))
		fmt.Printf("Updated:  %s\n", rec.UpdatedAt.Local().Format(time.RFC822))
		fmt.Println()
		printPayload(payload)
		return nil
	},
}

func printPayload(p record.Payload) {
	switch v := p.(type) {
	case *record.CardPayload:
		fmt.Printf("Number:   %s\n", v.CardNumber)
		fmt.Printf("Holder:   %s\n", v.CardHolder)
		fmt.Printf("Expires:  %s/%s\n", v.ExpiryMonth, v.ExpiryYear)
		fmt.Printf("CVV:      %s\n", v.CVV)
		if v.Issuer != "" {
			fmt.Printf("Issuer:   %s\n", v.Issuer)
		}
	case *record.BankPayload:
		fmt.Printf("Bank:     %s\n", v.BankName)
		fmt.Printf("Account:  %s\n", v.AccountNumber)
		if v.RoutingNumber != "" {
			fmt.Printf("Routing:  %s\n", v.RoutingNumber)
		}
		if v.IBAN != "" {
			fmt.Printf("IBAN:     %s\n", v.IBAN)
		}
		if v.Notes != "" {
			fmt.Printf("Notes:    %s\n", v.Notes)
		}
	case *record.LoginPayload:
		fmt.Printf("Site:     %s\n", v.Site)
		fmt.Printf("Username: %s\n", v.Username)
		fmt.Printf("Password: %s\n", v.Password)
		if v.TOTPSeed != "" {
			fmt.Printf("TOTP:     %s\n", v.TOTPSeed)
		}
	case *record.NotePayload:
		fmt.Printf("Title:    %s\n", v.Title)
		if v.Body != "" {
			fmt.Println(v.Body)
		}
	}
}

func init() {
	recordGetCmd.Flags().BoolVar(&getJSON, "json", false, "print as JSON")
	recordCmd.AddCommand(recordGetCmd)
}

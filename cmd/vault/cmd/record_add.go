package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pinvault/internal/domain/record"
	"pinvault/internal/vault"
)

var (
	addType   string
	addTags   []string
	addPublic bool

	cardNumber  string
	cardHolder  string
	expiryMonth string
	expiryYear  string
	cardCVV     string
	cardIssuer  string

	bankName      string
	accountNumber string
	routingNumber string
	bankIBAN      string
	bankNotes     string

	loginSite     string
	loginUsername string
	loginPassword string
	loginTOTP     string

	noteTitle string
	noteBody  string
)

var recordAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new record",
	Long: `Adds a record of one of the supported types:
- card  - payment card
- bank  - banking details
- login - site credentials
- note  - free-form note

Records are private by default and stored encrypted; --public keeps the
body in clear text so it stays readable while the vault is locked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addType == "" {
			addType = promptLine("Record type (card, bank, login, note): ")
		}
		recType, err := parseRecType(addType)
		if err != nil {
			return err
		}

		payload, err := buildPayload(recType)
		if err != nil {
			return err
		}

		if !addPublic {
			if err := ensureUnlocked(cmd); err != nil {
				return err
			}
		}

		rec, err := svc.CreateRecord(cmd.Context(), vault.RecordInput{
			Type:      recType,
			IsPrivate: !addPublic,
			Tags:      addTags,
			Payload:   payload,
		})
		if err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}

		color.Green("Created %s record %d.", recType.DisplayName(), rec.ID)
		return nil
	},
}

func buildPayload(t record.RecType) (record.Payload, error) {
	switch t {
	case record.RecTypeCard:
		return buildCardPayload()
	case record.RecTypeBank:
		return buildBankPayload()
	case record.RecTypeLogin:
		return buildLoginPayload()
	case record.RecTypeNote:
		return buildNotePayload()
	}
	return nil, fmt.Errorf("unsupported record type: %s", t)
}

func buildCardPayload() (record.Payload, error) {
	number, err := requireField(cardNumber, "Card number")
	if err != nil {
		return nil, err
	}
	holder, err := requireField(cardHolder, "Card holder")
	if err != nil {
		return nil, err
	}
	month, err := requireField(expiryMonth, "Expiry month (MM)")
	if err != nil {
		return nil, err
	}
	year, err := requireField(expiryYear, "Expiry year (YYYY)")
	if err != nil {
		return nil, err
	}
	cvv := cardCVV
	if cvv == "" {
		cvv, err = promptPIN("CVV: ")
		if err != nil {
			return nil, err
		}
	}

	return &record.CardPayload{
		CardNumber:  number,
		CardHolder:  holder,
		ExpiryMonth: month,
		ExpiryYear:  year,
		CVV:         cvv,
		Issuer:      cardIssuer,
	}, nil
}

func buildBankPayload() (record.Payload, error) {
	name, err := requireField(bankName, "Bank name")
	if err != nil {
		return nil, err
	}
	account, err := requireField(accountNumber, "Account number")
	if err != nil {
		return nil, err
	}

	return &record.BankPayload{
		BankName:      name,
		AccountNumber: account,
		RoutingNumber: routingNumber,
		IBAN:          bankIBAN,
		Notes:         bankNotes,
	}, nil
}

func buildLoginPayload() (record.Payload, error) {
	site, err := requireField(loginSite, "Site")
	if err != nil {
		return nil, err
	}
	username, err := requireField(loginUsername, "Username")
	if err != nil {
		return nil, err
	}
	password := loginPassword
	if password == "" {
		password, err = promptPIN("Password: ")
		if err != nil {
			return nil, err
		}
		if password == "" {
			return nil, fmt.Errorf("password is required")
		}
	}

	return &record.LoginPayload{
		Site:     site,
		Username: username,
		Password: password,
		TOTPSeed: loginTOTP,
	}, nil
}

func buildNotePayload() (record.Payload, error) {
	title, err := requireField(noteTitle, "Title")
	if err != nil {
		return nil, err
	}
	body := noteBody
	if body == "" {
		body = promptLine("Note text: ")
	}

	return &record.NotePayload{
		Title: title,
		Body:  body,
	}, nil
}

func init() {
	recordAddCmd.Flags().StringVarP(&addType, "type", "t", "", "record type (card, bank, login, note)")
	recordAddCmd.Flags().StringSliceVar(&addTags, "tags", nil, "tags, comma separated")
	recordAddCmd.Flags().BoolVar(&addPublic, "public", false, "store the body unencrypted")

	recordAddCmd.Flags().StringVar(&cardNumber, "card-number", "", "card number")
	recordAddCmd.Flags().StringVar(&cardHolder, "card-holder", "", "card holder")
	recordAddCmd.Flags().StringVar(&expiryMonth, "expiry-month", "", "expiry month (MM)")
	recordAddCmd.Flags().StringVar(&expiryYear, "expiry-year", "", "expiry year (YYYY)")
	recordAddCmd.Flags().StringVar(&cardCVV, "cvv", "", "CVV code")
	recordAddCmd.Flags().StringVar(&cardIssuer, "issuer", "", "issuing bank")

	recordAddCmd.Flags().StringVar(&bankName, "bank", "", "bank name")
	recordAddCmd.Flags().StringVar(&accountNumber, "account", "", "account number")
	recordAddCmd.Flags().StringVar(&routingNumber, "routing", "", "routing number")
	recordAddCmd.Flags().StringVar(&bankIBAN, "iban", "", "IBAN")
	recordAddCmd.Flags().StringVar(&bankNotes, "notes", "", "notes")

	recordAddCmd.Flags().StringVar(&loginSite, "site", "", "site or service")
	recordAddCmd.Flags().StringVar(&loginUsername, "username", "", "username")
	recordAddCmd.Flags().StringVar(&loginPassword, "password", "", "password")
	recordAddCmd.Flags().StringVar(&loginTOTP, "totp", "", "TOTP seed")

	recordAddCmd.Flags().StringVar(&noteTitle, "title", "", "note title")
	recordAddCmd.Flags().StringVar(&noteBody, "body", "", "note text")

	recordCmd.AddCommand(recordAddCmd)
}

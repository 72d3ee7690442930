package record

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

type RecType string

const (
	RecTypeCard  RecType = "card"
	RecTypeBank  RecType = "bank"
	RecTypeLogin RecType = "login"
	RecTypeNote  RecType = "note"
)

func (RecType) Schema() huma.Schema {
	return huma.Schema{
		Type: "string",
		Enum: []any{
			string(RecTypeCard),
			string(RecTypeBank),
			string(RecTypeLogin),
			string(RecTypeNote),
		},
		Description: "Type of stored record",
		Examples:    []any{RecTypeCard},
	}
}

// Validate implements the huma.Validatable interface.
func (t RecType) Validate() error {
	switch t {
	case RecTypeCard, RecTypeBank, RecTypeLogin, RecTypeNote:
		return nil
	}
	return fmt.Errorf("invalid record type: %s", t)
}

// String returns the string representation of the type.
func (t RecType) String() string {
	return string(t)
}

// DisplayName returns a human-readable name for the type.
func (t RecType) DisplayName() string {
	switch t {
	case RecTypeCard:
		return "Payment card"
	case RecTypeBank:
		return "Bank credentials"
	case RecTypeLogin:
		return "Login secret"
	case RecTypeNote:
		return "Secure note"
	default:
		return "Unknown type"
	}
}

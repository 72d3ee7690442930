package record

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Payload is the typed, decrypted body of a record. Everything except
// id, tags and timestamps lives inside the payload and is what gets
// encrypted for private records.
type Payload interface {
	RecordType() RecType
	Validate() error
}

// CardPayload holds payment card details.
type CardPayload struct {
	CardNumber  string `json:"card_number" validate:"required,min=13,max=19"`
	CardHolder  string `json:"card_holder" validate:"required"`
	ExpiryMonth string `json:"expiry_month" validate:"required,len=2"`
	ExpiryYear  string `json:"expiry_year" validate:"required,len=4"`
	CVV         string `json:"cvv" validate:"required,min=3,max=4"`
	Issuer      string `json:"issuer,omitempty"`
}

func (c *CardPayload) RecordType() RecType { return RecTypeCard }

func (c *CardPayload) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// BankPayload holds banking credentials.
type BankPayload struct {
	BankName      string `json:"bank_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required"`
	RoutingNumber string `json:"routing_number,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

func (b *BankPayload) RecordType() RecType { return RecTypeBank }

func (b *BankPayload) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// LoginPayload holds a login secret.
type LoginPayload struct {
	Site     string `json:"site" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	TOTPSeed string `json:"totp_seed,omitempty"`
}

func (l *LoginPayload) RecordType() RecType { return RecTypeLogin }

func (l *LoginPayload) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// NotePayload holds a free-form note.
type NotePayload struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body"`
}

func (n *NotePayload) RecordType() RecType { return RecTypeNote }

func (n *NotePayload) Validate() error {
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// NewPayload returns an empty payload for the given type.
func NewPayload(t RecType) (Payload, error) {
	switch t {
	case RecTypeCard:
		return &CardPayload{}, nil
	case RecTypeBank:
		return &BankPayload{}, nil
	case RecTypeLogin:
		return &LoginPayload{}, nil
	case RecTypeNote:
		return &NotePayload{}, nil
	default:
		return nil, fmt.Errorf("invalid record type: %s", t)
	}
}

// MarshalPayload validates and serializes a payload for storage.
func MarshalPayload(p Payload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}
	return data, nil
}

// UnmarshalPayload parses stored payload bytes back into the typed form.
func UnmarshalPayload(t RecType, data []byte) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	return p, nil
}

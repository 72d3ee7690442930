package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{
			name: "card",
			payload: &CardPayload{
				CardNumber:  "4111111111111111",
				CardHolder:  "JANE DOE",
				ExpiryMonth: "09",
				ExpiryYear:  "2030",
				CVV:         "123",
			},
		},
		{
			name: "bank",
			payload: &BankPayload{
				BankName:      "First National",
				AccountNumber: "000123456789",
			},
		},
		{
			name: "login",
			payload: &LoginPayload{
				Site:     "example.com",
				Username: "jane",
				Password: "hunter2",
			},
		},
		{
			name:    "note",
			payload: &NotePayload{Title: "wifi", Body: "the password is on the router"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalPayload(tt.payload)
			require.NoError(t, err)

			parsed, err := UnmarshalPayload(tt.payload.RecordType(), data)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, parsed)
		})
	}
}

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{name: "card missing cvv", payload: &CardPayload{CardNumber: "4111111111111111", CardHolder: "X", ExpiryMonth: "01", ExpiryYear: "2030"}},
		{name: "card number too short", payload: &CardPayload{CardNumber: "4111", CardHolder: "X", ExpiryMonth: "01", ExpiryYear: "2030", CVV: "123"}},
		{name: "login missing password", payload: &LoginPayload{Site: "a", Username: "b"}},
		{name: "bank missing account", payload: &BankPayload{BankName: "b"}},
		{name: "note missing title", payload: &NotePayload{Body: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalPayload(tt.payload)
			assert.ErrorIs(t, err, ErrInvalidData)
		})
	}
}

func TestNewPayloadUnknownType(t *testing.T) {
	_, err := NewPayload(RecType("video"))
	assert.Error(t, err)
}

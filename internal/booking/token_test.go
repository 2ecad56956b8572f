package booking

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	appt := &Appointment{
		ID:         uuid.New(),
		PersonID:   uuid.New(),
		LocationID: uuid.New(),
		VaccineID:  "VAX-COVID-19",
	}

	token, err := EncodeToken(appt)
	require.NoError(t, err)
	assert.Contains(t, token, TokenType)

	id, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, id)
}

func TestDecodeTokenLegacyPrefix(t *testing.T) {
	want := uuid.New()

	id, err := DecodeToken("appt:" + want.String())
	require.NoError(t, err)
	assert.Equal(t, want, id)
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"random text", "hello world"},
		{"wrong type tag", fmt.Sprintf(`{"type":"gift_card","appointment_id":%q}`, uuid.New())},
		{"structured without id", `{"type":"vaccination_appointment"}`},
		{"legacy prefix without uuid", "appt:not-a-uuid"},
		{"raw uuid without prefix", uuid.NewString()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeToken(tt.raw)
			assert.ErrorIs(t, err, ErrBadToken)
		})
	}
}

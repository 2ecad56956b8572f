package booking

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// TokenType tags the structured check-in payload so a scanner can tell it
// apart from other codes in the wild.
const TokenType = "vaccination_appointment"

// legacyTokenPrefix is the plain-text form older clients render: the prefix
// immediately followed by the raw appointment id.
const legacyTokenPrefix = "appt:"

// TokenPayload is the structured check-in token. It is rendered to a
// scannable image by an external service and handed back verbatim at
// check-in time.
type TokenPayload struct {
	Type          string    `json:"type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	LocationID    uuid.UUID `json:"location_id"`
	PersonID      uuid.UUID `json:"person_id"`
	VaccineID     string    `json:"vaccine_id"`
}

// EncodeToken renders the check-in payload for an appointment.
func EncodeToken(a *Appointment) (string, error) {
	data, err := json.Marshal(TokenPayload{
		Type:          TokenType,
		AppointmentID: a.ID,
		LocationID:    a.LocationID,
		PersonID:      a.PersonID,
		VaccineID:     a.VaccineID,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeToken extracts the appointment id from a scanned token. Decoders run
// in a fixed order: the structured payload first, then the legacy prefixed
// form. Anything else is a validation failure.
func DecodeToken(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrBadToken
	}

	var payload TokenPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		if payload.Type != TokenType || payload.AppointmentID == uuid.Nil {
			return uuid.Nil, ErrBadToken
		}
		return payload.AppointmentID, nil
	}

	if suffix, ok := strings.CutPrefix(raw, legacyTokenPrefix); ok {
		id, err := uuid.Parse(suffix)
		if err != nil {
			return uuid.Nil, ErrBadToken
		}
		return id, nil
	}

	return uuid.Nil, ErrBadToken
}

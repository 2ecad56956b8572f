// Package history hands completed vaccinations to the external
// vaccination-history system. Recording is best-effort by contract: callers
// log failures and move on, they never fail a check-in over it.
package history

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Fact is one administered vaccine, emitted exactly once per appointment.
type Fact struct {
	AppointmentID  uuid.UUID `json:"appointment_id"`
	PersonID       uuid.UUID `json:"person_id"`
	LocationID     uuid.UUID `json:"location_id"`
	VaccineID      string    `json:"vaccine_id"`
	VaccineName    string    `json:"vaccine_name"`
	AdministeredAt time.Time `json:"administered_at"`
}

type Recorder interface {
	RecordAdministered(ctx context.Context, f Fact) error
}

// LogRecorder is the fallback when no brokers are configured; it keeps the
// fact visible in the service log.
type LogRecorder struct{}

func (LogRecorder) RecordAdministered(_ context.Context, f Fact) error {
	log.Printf("vaccine administered: appointment=%s person=%s vaccine=%s (%s) at=%s",
		f.AppointmentID, f.PersonID, f.VaccineID, f.VaccineName, f.AdministeredAt.Format(time.RFC3339))
	return nil
}

package booking

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/vaxline/booking-engine/internal/history"
)

// CheckInRequest carries either a direct appointment id or a scanned token.
// CallerLocationID is the location on the caller's credential; uuid.Nil
// means the credential carries none.
type CheckInRequest struct {
	AppointmentID    string
	ScanToken        string
	CallerLocationID uuid.UUID
}

// resolveAppointmentID picks the direct id when supplied, otherwise runs the
// token decoders in their fixed order.
func resolveAppointmentID(req CheckInRequest) (uuid.UUID, error) {
	if req.AppointmentID != "" {
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: appointment_id must be a valid UUID", ErrValidation)
		}
		return id, nil
	}
	if req.ScanToken != "" {
		return DecodeToken(req.ScanToken)
	}
	return uuid.Nil, fmt.Errorf("%w: appointment_id or scan_token is required", ErrValidation)
}

// CheckIn completes an appointment. The transition to done happens through a
// conditional store update, so only the first check-in emits the
// administered-vaccine fact; repeats are no-ops that return the stored row.
// A failing history emission is logged and counted, never surfaced to the
// caller.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*Appointment, error) {
	id, err := resolveAppointmentID(req)
	if err != nil {
		s.metrics.ObserveCheckIn("invalid")
		return nil, err
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		s.metrics.ObserveCheckIn("not_found")
		return nil, err
	}

	if req.CallerLocationID != uuid.Nil && appt.LocationID != req.CallerLocationID {
		s.metrics.ObserveCheckIn("wrong_location")
		return nil, ErrLocationMismatch
	}

	if err := ValidateTransition(appt.Status, StatusDone, ActorCheckIn); err != nil {
		s.metrics.ObserveCheckIn("conflict")
		return nil, err
	}

	checkedInAt := s.now()
	updated, first, err := s.repo.MarkDone(ctx, id, checkedInAt)
	if err != nil {
		s.metrics.ObserveCheckIn("error")
		return nil, fmt.Errorf("mark appointment done: %w", err)
	}

	if !first {
		s.metrics.ObserveCheckIn("repeat")
		return updated, nil
	}

	fact := history.Fact{
		AppointmentID:  updated.ID,
		PersonID:       updated.PersonID,
		LocationID:     updated.LocationID,
		VaccineID:      updated.VaccineID,
		VaccineName:    updated.VaccineName,
		AdministeredAt: checkedInAt,
	}
	if err := s.history.RecordAdministered(ctx, fact); err != nil {
		log.Printf("failed to record vaccination history for appointment %s: %v", updated.ID, err)
		s.metrics.ObserveHistoryFailure()
	}

	s.metrics.ObserveCheckIn("completed")
	return updated, nil
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vaxline/booking-engine/internal/history"
	"github.com/vaxline/booking-engine/internal/metrics"
	redisclient "github.com/vaxline/booking-engine/internal/redis"
)

// Service owns the appointment lifecycle: booking against capacity, person
// cancellation, location scheduling decisions, and check-in.
type Service struct {
	repo    Repository
	locker  redisclient.Locker
	history history.Recorder
	metrics *metrics.BookingMetrics
	tz      *time.Location
	now     func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, recorder history.Recorder, m *metrics.BookingMetrics, tz *time.Location) *Service {
	if recorder == nil {
		recorder = history.LogRecorder{}
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		history: recorder,
		metrics: m,
		tz:      tz,
		now:     time.Now,
	}
}

type BookRequest struct {
	PersonID    uuid.UUID
	VaccineID   string
	VaccineName string
	LocationID  uuid.UUID
	Date        time.Time
	TimeOfDay   string
}

func (r BookRequest) validate() error {
	switch {
	case r.PersonID == uuid.Nil:
		return fmt.Errorf("%w: person_id is required", ErrValidation)
	case r.VaccineID == "":
		return fmt.Errorf("%w: vaccine_id is required", ErrValidation)
	case r.VaccineName == "":
		return fmt.Errorf("%w: vaccine_name is required", ErrValidation)
	case r.LocationID == uuid.Nil:
		return fmt.Errorf("%w: location_id is required", ErrValidation)
	case r.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrValidation)
	case r.TimeOfDay == "":
		return fmt.Errorf("%w: time is required", ErrValidation)
	}
	return nil
}

// Book creates an appointment in status requested with its check-in token
// attached. Capacity is enforced at write time: the insert only succeeds if
// the day's booking-pressure count stays within the location's capacity.
// The per-day lock keeps concurrent bookings from contending on the store;
// the conditional insert is what carries the invariant.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}

	appt := &Appointment{
		ID:          uuid.New(),
		PersonID:    req.PersonID,
		VaccineID:   req.VaccineID,
		VaccineName: req.VaccineName,
		LocationID:  req.LocationID,
		Date:        req.Date,
		TimeOfDay:   req.TimeOfDay,
		Status:      StatusRequested,
	}

	token, err := EncodeToken(appt)
	if err != nil {
		return nil, fmt.Errorf("encode check-in token: %w", err)
	}
	appt.CheckInToken = token

	var created *Appointment

	err = s.locker.WithCapacityLock(ctx, req.LocationID, DayKey(req.Date), func(lockCtx context.Context) error {
		c, err := s.repo.CreateWithinCapacity(lockCtx, appt)
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("contended")
			return nil, ErrDayBeingBooked
		}
		if errors.Is(err, ErrCapacityExhausted) {
			s.metrics.ObserveBooking("capacity_exhausted")
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	s.metrics.ObserveBooking("created")
	return created, nil
}

// Cancel is the person-actor transition to cancelled. Only the appointment's
// own person may cancel, and only from an open status.
func (s *Service) Cancel(ctx context.Context, id, personID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.PersonID != personID {
		return nil, ErrPersonMismatch
	}

	if err := ValidateTransition(appt.Status, StatusCancelled, ActorPerson); err != nil {
		return nil, err
	}

	return s.transition(ctx, appt, StatusCancelled)
}

// SetStatus is the location-actor transition to scheduled or missed.
func (s *Service) SetStatus(ctx context.Context, id, locationID uuid.UUID, to Status) (*Appointment, error) {
	if to != StatusScheduled && to != StatusMissed {
		return nil, fmt.Errorf("%w: status must be %s or %s", ErrValidation, StatusScheduled, StatusMissed)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.LocationID != locationID {
		return nil, ErrLocationMismatch
	}

	if err := ValidateTransition(appt.Status, to, ActorLocation); err != nil {
		return nil, err
	}

	return s.transition(ctx, appt, to)
}

// transition applies a validated status change. The conditional update can
// still miss if the status moved after our read; that race surfaces as a
// transition conflict, never as a silent overwrite.
func (s *Service) transition(ctx context.Context, appt *Appointment, to Status) (*Appointment, error) {
	updated, err := s.repo.TransitionStatus(ctx, appt.ID, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrTransitionNotAllowed
		}
		return nil, fmt.Errorf("transition to %s: %w", to, err)
	}
	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	if f.PersonID == uuid.Nil && f.LocationID == uuid.Nil {
		return nil, fmt.Errorf("%w: person or location filter is required", ErrValidation)
	}
	return s.repo.ListAppointments(ctx, f)
}

// Capacity registry

func (s *Service) SetCapacity(ctx context.Context, locationID uuid.UUID, capacity int) (*CapacityRecord, error) {
	if locationID == uuid.Nil {
		return nil, fmt.Errorf("%w: location_id is required", ErrValidation)
	}
	if capacity < 0 {
		return nil, ErrNegativeCapacity
	}
	return s.repo.SetCapacity(ctx, locationID, capacity)
}

func (s *Service) GetCapacityRecord(ctx context.Context, locationID uuid.UUID) (*CapacityRecord, error) {
	return s.repo.GetCapacityRecord(ctx, locationID)
}

// MarkMissedAppointments sweeps appointments still open past their date to
// missed. Called periodically by the missed-worker.
func (s *Service) MarkMissedAppointments(ctx context.Context) error {
	today := startOfDay(s.now(), s.tz)

	stale, err := s.repo.FindOpenBefore(ctx, today)
	if err != nil {
		return fmt.Errorf("find open appointments: %w", err)
	}

	for _, appt := range stale {
		if _, err := s.repo.TransitionStatus(ctx, appt.ID, appt.Status, StatusMissed); err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			log.Printf("failed to mark appointment %s as missed: %v", appt.ID, err)
		}
	}

	return nil
}

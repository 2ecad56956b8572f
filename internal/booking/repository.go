package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrValidation           = errors.New("invalid request")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrCapacityNotFound     = errors.New("capacity not registered for location")
	ErrNegativeCapacity     = errors.New("capacity must be non-negative")
	ErrCapacityExhausted    = errors.New("no remaining capacity for that day")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrBadToken             = errors.New("unrecognized check-in token")
	ErrPersonMismatch       = errors.New("appointment belongs to a different person")
	ErrLocationMismatch     = errors.New("appointment belongs to a different location")
	ErrDayBeingBooked       = errors.New("day is currently being booked, please retry")
)

// ListFilter narrows appointment queries. Zero values mean "no filter" for
// the optional fields.
type ListFilter struct {
	PersonID   uuid.UUID
	LocationID uuid.UUID
	Status     Status
	TimeOfDay  string
}

// Repository contains all store interactions needed by the services.
//
// CreateWithinCapacity and the conditional status updates are the two spots
// where the store's atomicity carries the correctness of the whole system;
// implementations must not replace them with read-then-write sequences.
type Repository interface {
	// Capacity registry
	SetCapacity(ctx context.Context, locationID uuid.UUID, capacity int) (*CapacityRecord, error)
	GetCapacityRecord(ctx context.Context, locationID uuid.UUID) (*CapacityRecord, error)
	// GetCapacity treats an absent record as 0, not an error.
	GetCapacity(ctx context.Context, locationID uuid.UUID) (int, error)

	// CreateWithinCapacity persists appt only if the booking-pressure count
	// for its location and day stays within capacity after the insert;
	// otherwise it returns ErrCapacityExhausted. The check and the insert
	// are a single atomic operation against the store.
	CreateWithinCapacity(ctx context.Context, appt *Appointment) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)

	// CountByDay aggregates appointments store-side, grouped by calendar
	// day, for the inclusive range [from, to] and the given statuses. Keys
	// use DayFormat.
	CountByDay(ctx context.Context, locationID uuid.UUID, from, to time.Time, statuses []Status) (map[string]int, error)

	// TransitionStatus updates the status only if the current value equals
	// from; a missing row (wrong id or lost race) surfaces as
	// ErrAppointmentNotFound.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// MarkDone moves the appointment to done unless it already is. The
	// returned flag is true only for the call that performed the first
	// transition; repeats return the stored row unchanged.
	MarkDone(ctx context.Context, id uuid.UUID, at time.Time) (*Appointment, bool, error)

	// FindOpenBefore lists requested/scheduled appointments dated strictly
	// before day, for the missed sweep.
	FindOpenBefore(ctx context.Context, day time.Time) ([]Appointment, error)
}

package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusScheduled Status = "scheduled"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusMissed    Status = "missed"
)

// DayFormat is the wire and map-key format for calendar days. Capacity is
// day-granular; the appointment time string is informational only.
const DayFormat = "2006-01-02"

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusRequested, StatusScheduled, StatusDone, StatusCancelled, StatusMissed:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further caller-initiated transition exists.
// Done can still be re-entered idempotently by check-in.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled || s == StatusMissed
}

type Appointment struct {
	ID           uuid.UUID
	PersonID     uuid.UUID
	VaccineID    string
	VaccineName  string
	LocationID   uuid.UUID
	Date         time.Time // day granularity
	TimeOfDay    string
	Status       Status
	CheckInToken string // rendered once at creation, immutable
	CheckedInAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CapacityRecord struct {
	LocationID uuid.UUID
	Capacity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DayAvailability is one entry of the person-facing availability window.
type DayAvailability struct {
	Date      time.Time
	Remaining int
}

func DayKey(t time.Time) string {
	return t.Format(DayFormat)
}

package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository for tests and local
// development. CreateWithinCapacity holds the mutex across the count and the
// insert, giving it the same atomicity the Postgres implementation gets from
// its transaction.
type MemoryRepository struct {
	mu    sync.Mutex
	caps  map[uuid.UUID]*CapacityRecord
	appts map[uuid.UUID]*Appointment
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		caps:  make(map[uuid.UUID]*CapacityRecord),
		appts: make(map[uuid.UUID]*Appointment),
	}
}

func cloneAppt(a *Appointment) *Appointment {
	c := *a
	if a.CheckedInAt != nil {
		t := *a.CheckedInAt
		c.CheckedInAt = &t
	}
	return &c
}

func statusIn(s Status, statuses []Status) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) SetCapacity(_ context.Context, locationID uuid.UUID, capacity int) (*CapacityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	rec, ok := r.caps[locationID]
	if !ok {
		rec = &CapacityRecord{LocationID: locationID, CreatedAt: now}
		r.caps[locationID] = rec
	}
	rec.Capacity = capacity
	rec.UpdatedAt = now

	c := *rec
	return &c, nil
}

func (r *MemoryRepository) GetCapacityRecord(_ context.Context, locationID uuid.UUID) (*CapacityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.caps[locationID]
	if !ok {
		return nil, ErrCapacityNotFound
	}
	c := *rec
	return &c, nil
}

func (r *MemoryRepository) GetCapacity(ctx context.Context, locationID uuid.UUID) (int, error) {
	rec, err := r.GetCapacityRecord(ctx, locationID)
	if err != nil {
		return 0, nil
	}
	return rec.Capacity, nil
}

func (r *MemoryRepository) CreateWithinCapacity(_ context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := 0
	if rec, ok := r.caps[appt.LocationID]; ok {
		capacity = rec.Capacity
	}

	pressure := 0
	for _, existing := range r.appts {
		if existing.LocationID == appt.LocationID &&
			DayKey(existing.Date) == DayKey(appt.Date) &&
			statusIn(existing.Status, PressureStatuses) {
			pressure++
		}
	}
	if pressure >= capacity {
		return nil, ErrCapacityExhausted
	}

	now := time.Now()
	stored := cloneAppt(appt)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.appts[stored.ID] = stored

	return cloneAppt(stored), nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return cloneAppt(appt), nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if f.PersonID != uuid.Nil && a.PersonID != f.PersonID {
			continue
		}
		if f.LocationID != uuid.Nil && a.LocationID != f.LocationID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.TimeOfDay != "" && a.TimeOfDay != f.TimeOfDay {
			continue
		}
		result = append(result, *cloneAppt(a))
	}
	return result, nil
}

func (r *MemoryRepository) CountByDay(_ context.Context, locationID uuid.UUID, from, to time.Time, statuses []Status) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range r.appts {
		if a.LocationID != locationID || !statusIn(a.Status, statuses) {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		counts[DayKey(a.Date)]++
	}
	return counts, nil
}

func (r *MemoryRepository) TransitionStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok || appt.Status != from {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = to
	appt.UpdatedAt = time.Now()
	return cloneAppt(appt), nil
}

func (r *MemoryRepository) MarkDone(_ context.Context, id uuid.UUID, at time.Time) (*Appointment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil, false, ErrAppointmentNotFound
	}
	if appt.Status == StatusDone {
		return cloneAppt(appt), false, nil
	}
	appt.Status = StatusDone
	appt.CheckedInAt = &at
	appt.UpdatedAt = time.Now()
	return cloneAppt(appt), true, nil
}

func (r *MemoryRepository) FindOpenBefore(_ context.Context, day time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if a.Date.Before(day) && (a.Status == StatusRequested || a.Status == StatusScheduled) {
			result = append(result, *cloneAppt(a))
		}
	}
	return result, nil
}

// NoopLocker runs the critical section without coordination, for callers
// whose Repository is already atomic (the MemoryRepository, single-node
// setups).
type NoopLocker struct{}

func (NoopLocker) WithCapacityLock(ctx context.Context, _ uuid.UUID, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

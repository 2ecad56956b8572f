package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxline/booking-engine/internal/history"
)

// recordingHistory captures emitted facts and can be told to fail.
type recordingHistory struct {
	mu    sync.Mutex
	facts []history.Fact
	fail  error
}

func (r *recordingHistory) RecordAdministered(_ context.Context, f history.Fact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.facts = append(r.facts, f)
	return nil
}

func (r *recordingHistory) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.facts)
}

func newTestService(repo Repository, recorder history.Recorder) *Service {
	return NewService(repo, NoopLocker{}, recorder, nil, time.UTC)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validBookRequest(locationID uuid.UUID) BookRequest {
	return BookRequest{
		PersonID:    uuid.New(),
		VaccineID:   "VAX-COVID-19",
		VaccineName: "SARS-CoV-2 mRNA",
		LocationID:  locationID,
		Date:        day(2025, 6, 10),
		TimeOfDay:   "10:00",
	}
}

func TestBookCreatesRequestedWithToken(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 5)
	require.NoError(t, err)

	req := validBookRequest(locationID)
	appt, err := svc.Book(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, StatusRequested, appt.Status)
	assert.Equal(t, req.PersonID, appt.PersonID)
	assert.NotEmpty(t, appt.CheckInToken)

	id, err := DecodeToken(appt.CheckInToken)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, id)
}

func TestBookValidatesRequiredFields(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 5)
	require.NoError(t, err)

	mutations := map[string]func(*BookRequest){
		"person":       func(r *BookRequest) { r.PersonID = uuid.Nil },
		"vaccine id":   func(r *BookRequest) { r.VaccineID = "" },
		"vaccine name": func(r *BookRequest) { r.VaccineName = "" },
		"location":     func(r *BookRequest) { r.LocationID = uuid.Nil },
		"date":         func(r *BookRequest) { r.Date = time.Time{} },
		"time":         func(r *BookRequest) { r.TimeOfDay = "" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			req := validBookRequest(locationID)
			mutate(&req)
			_, err := svc.Book(ctx, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBookRejectsWhenCapacityExhausted(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.Book(ctx, validBookRequest(locationID))
		require.NoError(t, err)
	}

	_, err = svc.Book(ctx, validBookRequest(locationID))
	assert.ErrorIs(t, err, ErrCapacityExhausted)

	// A different day is unaffected.
	other := validBookRequest(locationID)
	other.Date = day(2025, 6, 11)
	_, err = svc.Book(ctx, other)
	assert.NoError(t, err)
}

func TestBookRejectsUnregisteredLocation(t *testing.T) {
	svc := newTestService(NewMemoryRepository(), nil)

	_, err := svc.Book(context.Background(), validBookRequest(uuid.New()))
	assert.ErrorIs(t, err, ErrCapacityExhausted)
}

func TestBookCancelledSlotIsFreed(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 1)
	require.NoError(t, err)

	req := validBookRequest(locationID)
	appt, err := svc.Book(ctx, req)
	require.NoError(t, err)

	_, err = svc.Book(ctx, validBookRequest(locationID))
	require.ErrorIs(t, err, ErrCapacityExhausted)

	_, err = svc.Cancel(ctx, appt.ID, req.PersonID)
	require.NoError(t, err)

	_, err = svc.Book(ctx, validBookRequest(locationID))
	assert.NoError(t, err)
}

func TestConcurrentBookingNeverExceedsCapacity(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	const capacity = 2
	_, err := repo.SetCapacity(ctx, locationID, capacity)
	require.NoError(t, err)

	const attempts = 24
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(ctx, validBookRequest(locationID))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrCapacityExhausted)
		}
	}
	assert.Equal(t, capacity, created)

	counts, err := repo.CountByDay(ctx, locationID, day(2025, 6, 10), day(2025, 6, 10), PressureStatuses)
	require.NoError(t, err)
	assert.Equal(t, capacity, counts["2025-06-10"])
}

func TestCancelRequiresOwner(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 5)
	require.NoError(t, err)

	appt, err := svc.Book(ctx, validBookRequest(locationID))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, appt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrPersonMismatch)

	got, err := repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, got.Status)
}

func TestCancelTerminalStateConflicts(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 5)
	require.NoError(t, err)

	req := validBookRequest(locationID)
	appt, err := svc.Book(ctx, req)
	require.NoError(t, err)

	_, _, err = repo.MarkDone(ctx, appt.ID, time.Now())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, appt.ID, req.PersonID)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestSetStatus(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 5)
	require.NoError(t, err)

	appt, err := svc.Book(ctx, validBookRequest(locationID))
	require.NoError(t, err)

	// Wrong location may not touch it.
	_, err = svc.SetStatus(ctx, appt.ID, uuid.New(), StatusScheduled)
	assert.ErrorIs(t, err, ErrLocationMismatch)

	// Only scheduled and missed are settable.
	_, err = svc.SetStatus(ctx, appt.ID, locationID, StatusDone)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.SetStatus(ctx, appt.ID, locationID, StatusCancelled)
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.SetStatus(ctx, appt.ID, locationID, StatusScheduled)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, updated.Status)

	updated, err = svc.SetStatus(ctx, appt.ID, locationID, StatusMissed)
	require.NoError(t, err)
	assert.Equal(t, StatusMissed, updated.Status)

	// Missed is terminal for the location actor.
	_, err = svc.SetStatus(ctx, appt.ID, locationID, StatusScheduled)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestListAppointmentsRequiresFilter(t *testing.T) {
	svc := newTestService(NewMemoryRepository(), nil)

	_, err := svc.ListAppointments(context.Background(), ListFilter{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetCapacityRejectsNegative(t *testing.T) {
	svc := newTestService(NewMemoryRepository(), nil)

	_, err := svc.SetCapacity(context.Background(), uuid.New(), -1)
	assert.ErrorIs(t, err, ErrNegativeCapacity)
}

func TestMarkMissedAppointments(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo, nil)
	svc.now = func() time.Time { return day(2025, 6, 15) }
	ctx := context.Background()

	locationID := uuid.New()
	_, err := repo.SetCapacity(ctx, locationID, 10)
	require.NoError(t, err)

	past := validBookRequest(locationID) // 2025-06-10
	pastAppt, err := svc.Book(ctx, past)
	require.NoError(t, err)

	future := validBookRequest(locationID)
	future.Date = day(2025, 6, 20)
	futureAppt, err := svc.Book(ctx, future)
	require.NoError(t, err)

	donePast := validBookRequest(locationID)
	doneAppt, err := svc.Book(ctx, donePast)
	require.NoError(t, err)
	_, _, err = repo.MarkDone(ctx, doneAppt.ID, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.MarkMissedAppointments(ctx))

	got, _ := repo.GetAppointmentByID(ctx, pastAppt.ID)
	assert.Equal(t, StatusMissed, got.Status)

	got, _ = repo.GetAppointmentByID(ctx, futureAppt.ID)
	assert.Equal(t, StatusRequested, got.Status)

	got, _ = repo.GetAppointmentByID(ctx, doneAppt.ID)
	assert.Equal(t, StatusDone, got.Status)
}

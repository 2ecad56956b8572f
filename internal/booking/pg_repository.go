package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PressureStatuses are the statuses that keep a calendar slot occupied for
// availability purposes. Cancelled appointments free their slot; missed ones
// stay counted because their day has already passed by the time the status
// lands.
var PressureStatuses = []Status{StatusRequested, StatusScheduled, StatusDone, StatusMissed}

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentCols = `id, person_id, vaccine_id, vaccine_name, location_id, appt_date, appt_time, status, checkin_token, checked_in_at, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var checkedInAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.PersonID,
		&a.VaccineID,
		&a.VaccineName,
		&a.LocationID,
		&a.Date,
		&a.TimeOfDay,
		&a.Status,
		&a.CheckInToken,
		&checkedInAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CheckedInAt = checkedInAt
	return &a, nil
}

func scanCapacity(row pgx.Row) (*CapacityRecord, error) {
	var c CapacityRecord

	err := row.Scan(
		&c.LocationID,
		&c.Capacity,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCapacityNotFound
		}
		return nil, err
	}

	return &c, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) SetCapacity(ctx context.Context, locationID uuid.UUID, capacity int) (*CapacityRecord, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO location_capacities (location_id, capacity, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (location_id)
		DO UPDATE SET capacity = EXCLUDED.capacity, updated_at = now()
		RETURNING location_id, capacity, created_at, updated_at
	`, locationID, capacity)
	return scanCapacity(row)
}

func (r *PgRepository) GetCapacityRecord(ctx context.Context, locationID uuid.UUID) (*CapacityRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT location_id, capacity, created_at, updated_at
		FROM location_capacities
		WHERE location_id = $1
	`, locationID)
	return scanCapacity(row)
}

func (r *PgRepository) GetCapacity(ctx context.Context, locationID uuid.UUID) (int, error) {
	rec, err := r.GetCapacityRecord(ctx, locationID)
	if err != nil {
		if errors.Is(err, ErrCapacityNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Capacity, nil
}

// CreateWithinCapacity serializes all bookings for a location on the
// capacity row lock, so the count-and-insert below cannot interleave with a
// concurrent booking for the same location.
func (r *PgRepository) CreateWithinCapacity(ctx context.Context, appt *Appointment) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var capacity int
	err = tx.QueryRow(ctx, `
		SELECT capacity FROM location_capacities
		WHERE location_id = $1
		FOR UPDATE
	`, appt.LocationID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No record means no bookable slots.
			return nil, ErrCapacityExhausted
		}
		return nil, fmt.Errorf("lock capacity row: %w", err)
	}

	var pressure int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE location_id = $1
		  AND appt_date = $2
		  AND status = ANY($3)
	`, appt.LocationID, appt.Date, statusStrings(PressureStatuses)).Scan(&pressure)
	if err != nil {
		return nil, fmt.Errorf("count booking pressure: %w", err)
	}

	if pressure >= capacity {
		return nil, ErrCapacityExhausted
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, person_id, vaccine_id, vaccine_name, location_id, appt_date, appt_time, status, checkin_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentCols+`
	`, appt.ID, appt.PersonID, appt.VaccineID, appt.VaccineName, appt.LocationID, appt.Date, appt.TimeOfDay, appt.Status, appt.CheckInToken)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + appointmentCols + ` FROM appointments WHERE 1=1`)

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.PersonID != uuid.Nil {
		sb.WriteString(` AND person_id = ` + arg(f.PersonID))
	}
	if f.LocationID != uuid.Nil {
		sb.WriteString(` AND location_id = ` + arg(f.LocationID))
	}
	if f.Status != "" {
		sb.WriteString(` AND status = ` + arg(string(f.Status)))
	}
	if f.TimeOfDay != "" {
		sb.WriteString(` AND appt_time = ` + arg(f.TimeOfDay))
	}
	sb.WriteString(` ORDER BY appt_date, appt_time, created_at`)

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountByDay(ctx context.Context, locationID uuid.UUID, from, to time.Time, statuses []Status) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appt_date, count(*)
		FROM appointments
		WHERE location_id = $1
		  AND appt_date BETWEEN $2 AND $3
		  AND status = ANY($4)
		GROUP BY appt_date
	`, locationID, from, to, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[DayKey(day)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *PgRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentCols+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) MarkDone(ctx context.Context, id uuid.UUID, at time.Time) (*Appointment, bool, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    checked_in_at = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status <> $2
		RETURNING `+appointmentCols+`
	`, id, StatusDone, at)

	appt, err := scanAppointment(row)
	if err == nil {
		return appt, true, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, false, err
	}

	// Either the id is unknown or the appointment was already done; a plain
	// read tells the two apart.
	appt, err = r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return appt, false, nil
}

func (r *PgRepository) FindOpenBefore(ctx context.Context, day time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE appt_date < $1
		  AND status = ANY($2)
	`, day, statusStrings([]Status{StatusRequested, StatusScheduled}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxline/booking-engine/internal/booking"
	"github.com/vaxline/booking-engine/internal/db"
)

var vaccines = []struct {
	id   string
	name string
}{
	{"VAX-COVID-19", "SARS-CoV-2 mRNA"},
	{"VAX-INFLUENZA", "Seasonal Influenza"},
	{"VAX-HEPATITIS-B", "Hepatitis B"},
	{"VAX-MEASLES", "Measles-Mumps-Rubella"},
	{"VAX-TETANUS", "Tetanus-Diphtheria"},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	locations, err := seedCapacities(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed capacities: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, locations, 2000); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedCapacities(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d location capacities", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	locations := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		capacity := gofakeit.Number(20, 200)

		_, err := tx.Exec(ctx, `
			INSERT INTO location_capacities (location_id, capacity, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, id, capacity)
		if err != nil {
			return nil, err
		}
		locations = append(locations, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("capacities seeded")
	return locations, nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, locations []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	const batchSize = 500

	times := []string{"08:30", "09:00", "10:15", "11:00", "13:30", "14:45", "16:00"}
	statuses := []booking.Status{booking.StatusRequested, booking.StatusScheduled, booking.StatusDone, booking.StatusCancelled, booking.StatusMissed}

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			vaccine := vaccines[gofakeit.Number(0, len(vaccines)-1)]
			appt := &booking.Appointment{
				ID:          uuid.New(),
				PersonID:    uuid.New(),
				VaccineID:   vaccine.id,
				VaccineName: vaccine.name,
				LocationID:  locations[gofakeit.Number(0, len(locations)-1)],
				Date:        time.Now().AddDate(0, 0, gofakeit.Number(-14, 28)),
				TimeOfDay:   times[gofakeit.Number(0, len(times)-1)],
				Status:      statuses[gofakeit.Number(0, len(statuses)-1)],
			}

			token, err := booking.EncodeToken(appt)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO appointments (id, person_id, vaccine_id, vaccine_name, location_id, appt_date, appt_time, status, checkin_token, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			`, appt.ID, appt.PersonID, appt.VaccineID, appt.VaccineName, appt.LocationID, appt.Date, appt.TimeOfDay, appt.Status, token)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	log.Println("appointments seeded")
	return nil
}

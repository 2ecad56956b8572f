package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaxline/booking-engine/internal/booking"
)

type BookAppointmentRequest struct {
	PersonID    string `json:"person_id"`
	VaccineID   string `json:"vaccine_id"`
	VaccineName string `json:"vaccine_name"`
	LocationID  string `json:"location_id"`
	Date        string `json:"date"` // 2006-01-02
	Time        string `json:"time"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type CheckInRequest struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	ScanToken     string `json:"scan_token,omitempty"`
}

type CapacityRequest struct {
	LocationID string `json:"location_id,omitempty"`
	Capacity   *int   `json:"capacity"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PersonID     uuid.UUID  `json:"person_id"`
	VaccineID    string     `json:"vaccine_id"`
	VaccineName  string     `json:"vaccine_name"`
	LocationID   uuid.UUID  `json:"location_id"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Status       string     `json:"status"`
	CheckInToken string     `json:"checkin_token,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PersonID:     a.PersonID,
		VaccineID:    a.VaccineID,
		VaccineName:  a.VaccineName,
		LocationID:   a.LocationID,
		Date:         booking.DayKey(a.Date),
		Time:         a.TimeOfDay,
		Status:       string(a.Status),
		CheckInToken: a.CheckInToken,
		CheckedInAt:  a.CheckedInAt,
	}
}

type CapacityResponse struct {
	LocationID uuid.UUID `json:"location_id"`
	Capacity   int       `json:"capacity"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type AvailableDayResponse struct {
	Date      string `json:"date"`
	Remaining int    `json:"remaining"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vaxline/booking-engine/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleDomainError maps domain errors onto the HTTP taxonomy: validation
// 400, authorization 403, not-found 404, conflict 409. Anything unmapped is
// internal; its details go to the log, not the caller.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrBadToken):
		writeError(w, http.StatusBadRequest, "invalid_token", "scan token could not be decoded")
	case errors.Is(err, booking.ErrNegativeCapacity):
		writeError(w, http.StatusBadRequest, "negative_capacity", err.Error())
	case errors.Is(err, booking.ErrPersonMismatch),
		errors.Is(err, booking.ErrLocationMismatch):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrCapacityNotFound):
		writeError(w, http.StatusNotFound, "capacity_not_found", err.Error())
	case errors.Is(err, booking.ErrTransitionNotAllowed):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrCapacityExhausted):
		writeError(w, http.StatusConflict, "capacity_exhausted", err.Error())
	case errors.Is(err, booking.ErrDayBeingBooked):
		writeError(w, http.StatusConflict, "day_being_booked", "day is currently being booked, please retry shortly")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected failure")
	}
}

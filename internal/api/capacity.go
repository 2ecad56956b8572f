package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaxline/booking-engine/internal/booking"
)

// locationFromCaller enforces that location-scoped capacity operations stay
// within the caller's own location; the central authority may touch any.
func locationFromCaller(w http.ResponseWriter, r *http.Request, locationID uuid.UUID) bool {
	ident, _ := IdentityFromContext(r.Context())
	if ident.Role == RoleCentralAuthority {
		return true
	}
	if ident.LocationID != locationID {
		writeError(w, http.StatusForbidden, "forbidden", "credential is for a different location")
		return false
	}
	return true
}

func registerCapacityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CapacityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		locationID, err := uuid.Parse(req.LocationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
			return
		}
		if req.Capacity == nil {
			writeError(w, http.StatusBadRequest, "validation_error", "capacity is required")
			return
		}
		if !locationFromCaller(w, r, locationID) {
			return
		}

		rec, err := svc.SetCapacity(r.Context(), locationID, *req.Capacity)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CapacityResponse{
			LocationID: rec.LocationID,
			Capacity:   rec.Capacity,
			UpdatedAt:  rec.UpdatedAt,
		})
	}
}

func updateCapacityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := uuid.Parse(chi.URLParam(r, "location"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location must be a valid UUID")
			return
		}

		var req CapacityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Capacity == nil {
			writeError(w, http.StatusBadRequest, "validation_error", "capacity is required")
			return
		}
		if !locationFromCaller(w, r, locationID) {
			return
		}

		// Creates the record if absent, otherwise overwrites.
		rec, err := svc.SetCapacity(r.Context(), locationID, *req.Capacity)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CapacityResponse{
			LocationID: rec.LocationID,
			Capacity:   rec.Capacity,
			UpdatedAt:  rec.UpdatedAt,
		})
	}
}

func getCapacityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := uuid.Parse(chi.URLParam(r, "location"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location must be a valid UUID")
			return
		}

		rec, err := svc.GetCapacityRecord(r.Context(), locationID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CapacityResponse{
			LocationID: rec.LocationID,
			Capacity:   rec.Capacity,
			UpdatedAt:  rec.UpdatedAt,
		})
	}
}

func scheduleWindowHandler(calc *booking.AvailabilityCalculator, windowDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := uuid.Parse(chi.URLParam(r, "location"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location must be a valid UUID")
			return
		}
		if !locationFromCaller(w, r, locationID) {
			return
		}

		counts, err := calc.ScheduledCountsWindow(r.Context(), locationID, windowDays)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, counts)
	}
}

func availableWindowHandler(calc *booking.AvailabilityCalculator, windowDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := uuid.Parse(chi.URLParam(r, "location"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location must be a valid UUID")
			return
		}

		days, err := calc.AvailableDays(r.Context(), locationID, windowDays)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]AvailableDayResponse, 0, len(days))
		for _, d := range days {
			resp = append(resp, AvailableDayResponse{Date: booking.DayKey(d.Date), Remaining: d.Remaining})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

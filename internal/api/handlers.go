package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaxline/booking-engine/internal/booking"
)

func bookAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		personID, err := uuid.Parse(req.PersonID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_person_id", "person_id must be a valid UUID")
			return
		}

		ident, _ := IdentityFromContext(r.Context())
		if ident.PersonID != personID {
			writeError(w, http.StatusForbidden, "forbidden", "a person may only book for themselves")
			return
		}

		locationID, err := uuid.Parse(req.LocationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
			return
		}

		date, err := time.Parse(booking.DayFormat, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted "+booking.DayFormat)
			return
		}

		appt, err := svc.Book(r.Context(), booking.BookRequest{
			PersonID:    personID,
			VaccineID:   req.VaccineID,
			VaccineName: req.VaccineName,
			LocationID:  locationID,
			Date:        date,
			TimeOfDay:   req.Time,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFromContext(r.Context())
		q := r.URL.Query()

		var filter booking.ListFilter

		if p := q.Get("person"); p != "" {
			personID, err := uuid.Parse(p)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_person_id", "person must be a valid UUID")
				return
			}
			if ident.Role == RolePerson && ident.PersonID != personID {
				writeError(w, http.StatusForbidden, "forbidden", "a person may only list their own appointments")
				return
			}
			if ident.ActsForLocation() {
				writeError(w, http.StatusForbidden, "forbidden", "locations list by location, not person")
				return
			}
			filter.PersonID = personID
		}

		if l := q.Get("location"); l != "" {
			locationID, err := uuid.Parse(l)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_location_id", "location must be a valid UUID")
				return
			}
			if ident.Role == RolePerson {
				writeError(w, http.StatusForbidden, "forbidden", "persons may not list a location's roster")
				return
			}
			if ident.ActsForLocation() && ident.LocationID != locationID {
				writeError(w, http.StatusForbidden, "forbidden", "credential is for a different location")
				return
			}
			filter.LocationID = locationID
		}

		if s := q.Get("status"); s != "" {
			status, ok := booking.ParseStatus(s)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown status value")
				return
			}
			filter.Status = status
		}
		filter.TimeOfDay = q.Get("time")

		appts, err := svc.ListAppointments(r.Context(), filter)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		ident, _ := IdentityFromContext(r.Context())
		appt, err := svc.Cancel(r.Context(), id, ident.PersonID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func setStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req SetStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status, ok := booking.ParseStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown status value")
			return
		}

		ident, _ := IdentityFromContext(r.Context())
		appt, err := svc.SetStatus(r.Context(), id, ident.LocationID, status)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func checkInHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ident, _ := IdentityFromContext(r.Context())
		appt, err := svc.CheckIn(r.Context(), booking.CheckInRequest{
			AppointmentID:    req.AppointmentID,
			ScanToken:        req.ScanToken,
			CallerLocationID: ident.LocationID,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// Package handler contains HTTP request handlers for the carpool seat
// allocation API.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/example/carpool/internal/service"
)

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// pathUUID parses the named path variable as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

// writeAllocationError maps engine errors onto HTTP responses.
//
// Response codes:
//
//	404: unknown trip / request / passenger / location
//	409: duplicate active request, or transition not permitted from the
//	     current status
//	422: no seats left for an accept
//	400: missing rejection reason
//	403: actor does not own the request
//	500: everything else (storage failures)
func writeAllocationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTripNotFound):
		writeError(w, http.StatusNotFound, "trip_not_found", "Trip not found.")
	case errors.Is(err, service.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "request_not_found", "Seat request not found.")
	case errors.Is(err, service.ErrPassengerNotFound):
		writeError(w, http.StatusNotFound, "passenger_not_found", "Passenger not found.")
	case errors.Is(err, service.ErrLocationNotFound):
		writeError(w, http.StatusNotFound, "location_not_found", "Pickup location not found.")
	case errors.Is(err, service.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate_request", "You already have an active request for this trip.")
	case errors.Is(err, service.ErrSeatUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "seat_unavailable", "The trip has no available seats.")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_state", "The request is not in a state that permits this action.")
	case errors.Is(err, service.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, "reason_required", "A reason is required to reject a request.")
	case errors.Is(err, service.ErrNotRequestOwner):
		writeError(w, http.StatusForbidden, "forbidden", "You can only cancel your own request.")
	default:
		log.Printf("[handler] allocation error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Unexpected error.")
	}
}

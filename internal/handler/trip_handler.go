package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/model"
	"github.com/example/carpool/internal/repository"
	"github.com/example/carpool/internal/service"
)

// TripBody is the JSON body for trip create/update.
type TripBody struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Capacity  int       `json:"capacity"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// TripHandler handles trip management. The allocation engine treats trips
// as read-only input; this handler is the surface that owns the rows.
type TripHandler struct {
	trips  *repository.TripRepository
	engine *service.AllocationEngine
}

// NewTripHandler creates a new trip handler.
func NewTripHandler(trips *repository.TripRepository, engine *service.AllocationEngine) *TripHandler {
	return &TripHandler{trips: trips, engine: engine}
}

// CreateTrip handles POST /api/v1/trips
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body TripBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if body.DriverID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "driver_id is required")
		return
	}
	if body.Capacity < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "capacity must be >= 0")
		return
	}

	trip := &model.Trip{
		ID:        uuid.New(),
		DriverID:  body.DriverID,
		Capacity:  body.Capacity,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Status:    model.TripPlanned,
	}
	if err := h.trips.CreateTrip(r.Context(), trip); err != nil {
		log.Printf("[handler] create trip: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create trip")
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// GetTrip handles GET /api/v1/trips/{id}
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trip id")
		return
	}

	trip, err := h.trips.GetTrip(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip_not_found", "Trip not found.")
			return
		}
		log.Printf("[handler] get trip: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load trip")
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// ListTrips handles GET /api/v1/trips
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.trips.ListTrips(r.Context())
	if err != nil {
		log.Printf("[handler] list trips: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list trips")
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// UpdateTrip handles PUT /api/v1/trips/{id}
func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trip id")
		return
	}

	var body TripBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if body.Capacity < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "capacity must be >= 0")
		return
	}

	trip, err := h.trips.GetTrip(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip_not_found", "Trip not found.")
			return
		}
		log.Printf("[handler] update trip: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load trip")
		return
	}

	prevCapacity := trip.Capacity

	trip.DriverID = body.DriverID
	trip.Capacity = body.Capacity
	trip.StartTime = body.StartTime
	trip.EndTime = body.EndTime
	if err := h.trips.UpdateTrip(r.Context(), trip); err != nil {
		log.Printf("[handler] update trip: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update trip")
		return
	}

	// A capacity raise frees seats without any request transition, so the
	// waiting list must be offered the new seats here. The update is already
	// committed; a promotion failure is logged and retried by the next
	// seat-freeing transition.
	if trip.Capacity > prevCapacity {
		if _, err := h.engine.PromoteForTrip(r.Context(), trip.ID); err != nil {
			log.Printf("[handler] update trip %s: promote after capacity raise: %v", trip.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, trip)
}

// DeleteTrip handles DELETE /api/v1/trips/{id}
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trip id")
		return
	}

	if err := h.trips.DeleteTrip(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip_not_found", "Trip not found.")
			return
		}
		log.Printf("[handler] delete trip: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete trip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelTrip handles POST /api/v1/trips/{id}/cancel
//
// Cancels every active request on the trip and marks the trip cancelled.
// The external penalty/rebooking workflow listens for the
// trip.requests_canceled event this produces.
func (h *TripHandler) CancelTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trip id")
		return
	}

	canceled, err := h.engine.CancelAllActiveForTrip(r.Context(), id)
	if err != nil {
		writeAllocationError(w, err)
		return
	}

	if err := h.trips.SetTripStatus(r.Context(), id, model.TripCancelled); err != nil {
		log.Printf("[handler] cancel trip %s: set status: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "requests canceled but trip status update failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trip_id":           id,
		"canceled_requests": len(canceled),
		"requests":          canceled,
	})
}

// AvailableSeats handles GET /api/v1/trips/{id}/seats
//
// Exposes the derived free seat count.
func (h *TripHandler) AvailableSeats(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trip id")
		return
	}

	seats, err := h.engine.AvailableSeats(r.Context(), id)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trip_id":         id,
		"available_seats": seats,
	})
}

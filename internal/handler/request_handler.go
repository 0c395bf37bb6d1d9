package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/service"
)

// ─── Request/Response DTOs ──────────────────────────────────

// CreateRequestBody is the JSON body for POST /api/v1/requests.
type CreateRequestBody struct {
	TripID           uuid.UUID `json:"trip_id"`
	PassengerID      uuid.UUID `json:"passenger_id"`
	PickupLocationID uuid.UUID `json:"pickup_location_id"`
}

// CancelRequestBody is the JSON body for POST /api/v1/requests/{id}/cancel.
// The acting passenger id comes from the gateway that authenticated the
// caller; this service does not own identity.
type CancelRequestBody struct {
	PassengerID uuid.UUID `json:"passenger_id"`
}

// ─── RequestHandler ─────────────────────────────────────────

// RequestHandler handles the passenger-facing request lifecycle.
type RequestHandler struct {
	engine *service.AllocationEngine
}

// NewRequestHandler creates a new request handler.
func NewRequestHandler(engine *service.AllocationEngine) *RequestHandler {
	return &RequestHandler{engine: engine}
}

// CreateRequest handles POST /api/v1/requests
//
// Files a new seat request. If the trip is full the request is placed on
// the waiting list instead of failing.
//
//	Request body:
//	{
//	  "trip_id": "…", "passenger_id": "…", "pickup_location_id": "…"
//	}
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if body.TripID == uuid.Nil || body.PassengerID == uuid.Nil || body.PickupLocationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "trip_id, passenger_id and pickup_location_id are required")
		return
	}

	req, err := h.engine.CreateRequest(r.Context(), body.TripID, body.PassengerID, body.PickupLocationID)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// GetRequest handles GET /api/v1/requests/{id}
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request id")
		return
	}

	req, err := h.engine.GetRequest(r.Context(), id)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListByPassenger handles GET /api/v1/passengers/{id}/requests
func (h *RequestHandler) ListByPassenger(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid passenger id")
		return
	}

	requests, err := h.engine.ListByPassenger(r.Context(), id)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// CancelRequest handles POST /api/v1/requests/{id}/cancel
//
// Withdraws the caller's own request. Cancelling an accepted request frees
// the seat and promotes from the waiting list atomically.
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request id")
		return
	}

	var body CancelRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PassengerID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "passenger_id is required")
		return
	}

	req, err := h.engine.Cancel(r.Context(), id, body.PassengerID)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/example/carpool/internal/model"
	"github.com/example/carpool/internal/service"
)

// RejectBody is the JSON body for POST /api/v1/requests/{id}/reject.
type RejectBody struct {
	Reason string `json:"reason"`
}

// DecisionHandler handles the driver-facing accept / reject / defer
// decisions on seat requests.
type DecisionHandler struct {
	engine *service.AllocationEngine
}

// NewDecisionHandler creates a new decision handler.
func NewDecisionHandler(engine *service.AllocationEngine) *DecisionHandler {
	return &DecisionHandler{engine: engine}
}

// Accept handles POST /api/v1/requests/{id}/accept
//
// Allocates a seat to a pending request. Returns 422 seat_unavailable if
// the trip is full; the request stays pending.
func (h *DecisionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request id")
		return
	}

	req, err := h.engine.Accept(r.Context(), id)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Reject handles POST /api/v1/requests/{id}/reject
//
// Refuses a request with a mandatory reason. Rejecting an accepted request
// frees the seat and triggers waitlist promotion.
func (h *DecisionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request id")
		return
	}

	var body RejectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	req, err := h.engine.Reject(r.Context(), id, body.Reason)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// MoveToWaitingList handles POST /api/v1/requests/{id}/waitlist
//
// Defers the decision on a pending request.
func (h *DecisionHandler) MoveToWaitingList(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request id")
		return
	}

	req, err := h.engine.MoveToWaitingList(r.Context(), id)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListTripRequests handles GET /api/v1/trips/{id}/requests
//
// Lists a trip's requests, optionally filtered with ?status=pending etc.
func (h *DecisionHandler) ListTripRequests(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trip id")
		return
	}

	var status model.RequestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = model.RequestStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "bad_request", "unknown status filter")
			return
		}
	}

	requests, err := h.engine.ListByTrip(r.Context(), id, status)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

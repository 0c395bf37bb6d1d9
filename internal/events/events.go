// Package events publishes allocation facts for external collaborators.
//
// The engine produces an event after every committed transition; delivery
// (notifications, the trip-cancellation penalty workflow, rebooking) is
// owned by the consumers. Publishing is best-effort and never fails a
// transition.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/model"
)

// Type names an allocation event.
type Type string

const (
	RequestCreated       Type = "request.created"
	RequestAccepted      Type = "request.accepted"
	RequestRejected      Type = "request.rejected"
	RequestCanceled      Type = "request.canceled"
	RequestWaitlisted    Type = "request.waitlisted"
	RequestPromoted      Type = "request.promoted"
	TripRequestsCanceled Type = "trip.requests_canceled"
)

// AllocationEvent is the wire record for a committed transition.
type AllocationEvent struct {
	Type        Type                `json:"type"`
	RequestID   uuid.UUID           `json:"request_id,omitempty"`
	TripID      uuid.UUID           `json:"trip_id"`
	PassengerID uuid.UUID           `json:"passenger_id,omitempty"`
	Status      model.RequestStatus `json:"status,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	Canceled    int                 `json:"canceled_count,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// FromRequest builds an event of the given type from a request record.
func FromRequest(t Type, req *model.Request) AllocationEvent {
	return AllocationEvent{
		Type:        t,
		RequestID:   req.ID,
		TripID:      req.TripID,
		PassengerID: req.PassengerID,
		Status:      req.Status,
		Reason:      req.Reason,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher emits allocation events.
type Publisher interface {
	Publish(ctx context.Context, event AllocationEvent) error
}

// NopPublisher drops every event. Used when no broker is configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AllocationEvent) error { return nil }

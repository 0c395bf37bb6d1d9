// Package model contains domain models for the carpool seat-allocation
// service. These structs map to the PostgreSQL schema defined in
// migrations/001_create_schema.up.sql.
package model

import (
	"time"

	"github.com/google/uuid"
)

// ─── Enums ──────────────────────────────────────────────────

// RequestStatus is the lifecycle state of a seat request.
//
// Active states (Pending, Accepted, WaitingList) block a passenger from
// filing a second request on the same trip. Rejected and Canceled are
// terminal: the record is kept as history and never mutated again.
type RequestStatus string

const (
	StatusPending     RequestStatus = "pending"
	StatusAccepted    RequestStatus = "accepted"
	StatusRejected    RequestStatus = "rejected"
	StatusWaitingList RequestStatus = "waiting_list"
	StatusCanceled    RequestStatus = "canceled"
)

// Active reports whether the status is non-terminal.
func (s RequestStatus) Active() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusWaitingList:
		return true
	case StatusRejected, StatusCanceled:
		return false
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCanceled
}

// Valid reports whether s is one of the five known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusWaitingList, StatusCanceled:
		return true
	}
	return false
}

type TripStatus string

const (
	TripPlanned   TripStatus = "planned"
	TripCancelled TripStatus = "cancelled"
	TripCompleted TripStatus = "completed"
)

// ─── Domain Models ──────────────────────────────────────────

// Trip maps to the `trips` table. Capacity is immutable after creation as
// far as the allocation engine is concerned; the engine only ever reads it.
type Trip struct {
	ID        uuid.UUID  `json:"id"`
	DriverID  uuid.UUID  `json:"driver_id"`
	Capacity  int        `json:"capacity"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    TripStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Request maps to the `seat_requests` table: one passenger asking for one
// seat on one trip.
//
// RequestedAt is assigned once at creation and is the sole ordering key for
// waitlist promotion; Seq (a ledger-assigned creation sequence) breaks ties
// so promotion order is total. Reason is set if and only if the request was
// rejected.
type Request struct {
	ID               uuid.UUID     `json:"id"`
	TripID           uuid.UUID     `json:"trip_id"`
	PassengerID      uuid.UUID     `json:"passenger_id"`
	PickupLocationID uuid.UUID     `json:"pickup_location_id"`
	Status           RequestStatus `json:"status"`
	Reason           string        `json:"reason,omitempty"`
	RequestedAt      time.Time     `json:"requested_at"`
	Seq              int64         `json:"-"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Passenger maps to the `passengers` table. Only existence matters to the
// allocation engine; profile data is owned elsewhere.
type Passenger struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Location maps to the `locations` table. Creation and deduplication of
// locations is owned by an external collaborator; the engine only resolves
// ids.
type Location struct {
	ID         uuid.UUID `json:"id"`
	Address    string    `json:"address"`
	PostalCode string    `json:"postal_code"`
}

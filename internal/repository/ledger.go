// Package repository provides persistence for the carpool seat-allocation
// service.
//
// The RequestLedger is a pure storage contract: it creates, reads and
// updates seat-request records and knows nothing about business rules.
// All invariants (capacity, duplicate requests, legal transitions) live in
// the service layer, which is the only writer.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/model"
)

// ErrNotFound is returned when a record does not exist. Implementations map
// their driver-level "no rows" result onto this sentinel so callers can use
// errors.Is without knowing the backend.
var ErrNotFound = errors.New("record not found")

// RequestLedger is the durable store of seat-request records.
//
// Ordering contract: ListWaiting returns records in ascending
// (requested_at, seq) order; seq is a creation sequence assigned by the
// ledger, so the order is total even when two requests share a timestamp.
type RequestLedger interface {
	// Create persists a new request. The caller assigns ID, status and
	// RequestedAt; the ledger assigns Seq.
	Create(ctx context.Context, req *model.Request) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]model.Request, error)
	ListByTripAndStatus(ctx context.Context, tripID uuid.UUID, status model.RequestStatus) ([]model.Request, error)
	ListByPassenger(ctx context.Context, passengerID uuid.UUID) ([]model.Request, error)

	// ListWaiting returns the waiting-list queue for a trip in promotion
	// order (ascending requested_at, then seq).
	ListWaiting(ctx context.Context, tripID uuid.UUID) ([]model.Request, error)

	// CountAccepted returns the number of requests in status accepted for
	// the trip. Available seats are always derived from this count, never
	// stored.
	CountAccepted(ctx context.Context, tripID uuid.UUID) (int, error)

	// HasActive reports whether the passenger already holds a request in a
	// non-terminal status for the trip.
	HasActive(ctx context.Context, tripID, passengerID uuid.UUID) (bool, error)

	// UpdateStatus moves a request to the given status. Reason is stored
	// only when the new status is rejected and cleared otherwise. Returns
	// the updated record.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus, reason string) (*model.Request, error)
}

// TripDirectory resolves trips. The allocation engine only reads capacity
// through it; trip rows are owned by the trip-management surface.
type TripDirectory interface {
	GetTrip(ctx context.Context, id uuid.UUID) (*model.Trip, error)
}

// PassengerDirectory reports whether a passenger id is known.
type PassengerDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// LocationResolver reports whether a pickup location id is known. Location
// creation and deduplication are owned by an external collaborator.
type LocationResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) error
}

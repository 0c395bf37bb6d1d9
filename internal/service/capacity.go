package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/repository"
)

// CapacityTracker derives a trip's free seat count from the ledger.
//
// Availability is never stored: it is always capacity minus the current
// count of accepted requests, recomputed on every call.
type CapacityTracker struct {
	trips  repository.TripDirectory
	ledger repository.RequestLedger
}

// NewCapacityTracker creates a tracker over the given directory and ledger.
func NewCapacityTracker(trips repository.TripDirectory, ledger repository.RequestLedger) *CapacityTracker {
	return &CapacityTracker{trips: trips, ledger: ledger}
}

// AvailableSeats returns capacity minus the accepted count for the trip.
// Side-effect-free.
func (t *CapacityTracker) AvailableSeats(ctx context.Context, tripID uuid.UUID) (int, error) {
	trip, err := t.trips.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrTripNotFound
		}
		return 0, err
	}

	accepted, err := t.ledger.CountAccepted(ctx, tripID)
	if err != nil {
		return 0, err
	}

	return trip.Capacity - accepted, nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool/internal/model"
	"github.com/example/carpool/internal/repository"
)

func newTrackerFixture(t *testing.T, capacity int) (*CapacityTracker, *repository.MemoryLedger, uuid.UUID) {
	t.Helper()

	ledger := repository.NewMemoryLedger()
	trips := repository.NewMemoryTripDirectory()
	tripID := uuid.New()
	trips.Put(&model.Trip{ID: tripID, Capacity: capacity, Status: model.TripPlanned})

	return NewCapacityTracker(trips, ledger), ledger, tripID
}

func seedRequest(t *testing.T, ledger *repository.MemoryLedger, tripID uuid.UUID, status model.RequestStatus) {
	t.Helper()
	require.NoError(t, ledger.Create(context.Background(), &model.Request{
		ID:               uuid.New(),
		TripID:           tripID,
		PassengerID:      uuid.New(),
		PickupLocationID: uuid.New(),
		Status:           status,
		RequestedAt:      time.Now().UTC(),
	}))
}

func TestAvailableSeats_DerivedFromAcceptedCount(t *testing.T) {
	tracker, ledger, tripID := newTrackerFixture(t, 3)

	seedRequest(t, ledger, tripID, model.StatusAccepted)
	seedRequest(t, ledger, tripID, model.StatusAccepted)

	seats, err := tracker.AvailableSeats(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 1, seats)
}

func TestAvailableSeats_IgnoresNonAcceptedStatuses(t *testing.T) {
	tracker, ledger, tripID := newTrackerFixture(t, 2)

	seedRequest(t, ledger, tripID, model.StatusPending)
	seedRequest(t, ledger, tripID, model.StatusWaitingList)
	seedRequest(t, ledger, tripID, model.StatusRejected)
	seedRequest(t, ledger, tripID, model.StatusCanceled)

	seats, err := tracker.AvailableSeats(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, seats, "only accepted requests occupy seats")
}

func TestAvailableSeats_UnknownTrip(t *testing.T) {
	tracker, _, _ := newTrackerFixture(t, 2)

	_, err := tracker.AvailableSeats(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestAvailableSeats_ZeroCapacityTrip(t *testing.T) {
	tracker, _, tripID := newTrackerFixture(t, 0)

	seats, err := tracker.AvailableSeats(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 0, seats)
}

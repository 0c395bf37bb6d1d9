package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool/internal/model"
)

func newRequest(tripID, passengerID uuid.UUID, status model.RequestStatus, requestedAt time.Time) *model.Request {
	return &model.Request{
		ID:               uuid.New(),
		TripID:           tripID,
		PassengerID:      passengerID,
		PickupLocationID: uuid.New(),
		Status:           status,
		RequestedAt:      requestedAt,
	}
}

func TestMemoryLedger_CreateAssignsMonotonicSeq(t *testing.T) {
	ledger := NewMemoryLedger()
	tripID := uuid.New()
	at := time.Now().UTC()

	a := newRequest(tripID, uuid.New(), model.StatusPending, at)
	b := newRequest(tripID, uuid.New(), model.StatusPending, at)
	require.NoError(t, ledger.Create(context.Background(), a))
	require.NoError(t, ledger.Create(context.Background(), b))

	assert.Greater(t, b.Seq, a.Seq)
}

func TestMemoryLedger_GetByIDReturnsCopy(t *testing.T) {
	ledger := NewMemoryLedger()
	req := newRequest(uuid.New(), uuid.New(), model.StatusPending, time.Now().UTC())
	require.NoError(t, ledger.Create(context.Background(), req))

	got, err := ledger.GetByID(context.Background(), req.ID)
	require.NoError(t, err)

	// Mutating the returned value must not leak into the ledger.
	got.Status = model.StatusCanceled

	again, err := ledger.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, again.Status)
}

func TestMemoryLedger_GetByIDUnknown(t *testing.T) {
	ledger := NewMemoryLedger()
	_, err := ledger.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLedger_ListWaitingOrderedByRequestedAtThenSeq(t *testing.T) {
	ledger := NewMemoryLedger()
	tripID := uuid.New()
	base := time.Now().UTC()

	late := newRequest(tripID, uuid.New(), model.StatusWaitingList, base.Add(time.Minute))
	early := newRequest(tripID, uuid.New(), model.StatusWaitingList, base)
	tied := newRequest(tripID, uuid.New(), model.StatusWaitingList, base)
	for _, r := range []*model.Request{late, early, tied} {
		require.NoError(t, ledger.Create(context.Background(), r))
	}

	waiting, err := ledger.ListWaiting(context.Background(), tripID)
	require.NoError(t, err)
	require.Len(t, waiting, 3)

	// Equal timestamps fall back to insertion order.
	assert.Equal(t, early.ID, waiting[0].ID)
	assert.Equal(t, tied.ID, waiting[1].ID)
	assert.Equal(t, late.ID, waiting[2].ID)
}

func TestMemoryLedger_ListByTripAndStatusFilters(t *testing.T) {
	ledger := NewMemoryLedger()
	tripID := uuid.New()
	at := time.Now().UTC()

	pending := newRequest(tripID, uuid.New(), model.StatusPending, at)
	accepted := newRequest(tripID, uuid.New(), model.StatusAccepted, at)
	otherTrip := newRequest(uuid.New(), uuid.New(), model.StatusPending, at)
	for _, r := range []*model.Request{pending, accepted, otherTrip} {
		require.NoError(t, ledger.Create(context.Background(), r))
	}

	got, err := ledger.ListByTripAndStatus(context.Background(), tripID, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)

	all, err := ledger.ListByTrip(context.Background(), tripID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryLedger_CountAcceptedPerTrip(t *testing.T) {
	ledger := NewMemoryLedger()
	tripID := uuid.New()
	at := time.Now().UTC()

	require.NoError(t, ledger.Create(context.Background(), newRequest(tripID, uuid.New(), model.StatusAccepted, at)))
	require.NoError(t, ledger.Create(context.Background(), newRequest(tripID, uuid.New(), model.StatusPending, at)))
	require.NoError(t, ledger.Create(context.Background(), newRequest(uuid.New(), uuid.New(), model.StatusAccepted, at)))

	n, err := ledger.CountAccepted(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryLedger_HasActive(t *testing.T) {
	ledger := NewMemoryLedger()
	tripID := uuid.New()
	passengerID := uuid.New()

	req := newRequest(tripID, passengerID, model.StatusWaitingList, time.Now().UTC())
	require.NoError(t, ledger.Create(context.Background(), req))

	active, err := ledger.HasActive(context.Background(), tripID, passengerID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = ledger.UpdateStatus(context.Background(), req.ID, model.StatusCanceled, "")
	require.NoError(t, err)

	active, err = ledger.HasActive(context.Background(), tripID, passengerID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMemoryLedger_UpdateStatusReasonOnlyWhenRejected(t *testing.T) {
	ledger := NewMemoryLedger()
	req := newRequest(uuid.New(), uuid.New(), model.StatusPending, time.Now().UTC())
	require.NoError(t, ledger.Create(context.Background(), req))

	rejected, err := ledger.UpdateStatus(context.Background(), req.ID, model.StatusRejected, "trip rerouted")
	require.NoError(t, err)
	assert.Equal(t, "trip rerouted", rejected.Reason)

	// Any other transition clears the reason.
	canceled, err := ledger.UpdateStatus(context.Background(), req.ID, model.StatusCanceled, "ignored")
	require.NoError(t, err)
	assert.Empty(t, canceled.Reason)
}

func TestMemoryLedger_UpdateStatusUnknown(t *testing.T) {
	ledger := NewMemoryLedger()
	_, err := ledger.UpdateStatus(context.Background(), uuid.New(), model.StatusAccepted, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDirectories(t *testing.T) {
	trips := NewMemoryTripDirectory()
	tripID := uuid.New()
	trips.Put(&model.Trip{ID: tripID, Capacity: 2, Status: model.TripPlanned})

	trip, err := trips.GetTrip(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, trip.Capacity)

	_, err = trips.GetTrip(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	passengers := NewMemoryPassengerDirectory()
	passengerID := uuid.New()
	passengers.Add(passengerID)

	ok, err := passengers.Exists(context.Background(), passengerID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = passengers.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	locations := NewMemoryLocationResolver()
	locationID := uuid.New()
	locations.Add(locationID)

	assert.NoError(t, locations.Resolve(context.Background(), locationID))
	assert.ErrorIs(t, locations.Resolve(context.Background(), uuid.New()), ErrNotFound)
}

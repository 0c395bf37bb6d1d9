package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool/internal/events"
	"github.com/example/carpool/internal/model"
	"github.com/example/carpool/internal/repository"
)

// promoterFixture drives the promoter directly against the ledger, with
// full control over requested_at timestamps.
type promoterFixture struct {
	promoter *WaitlistPromoter
	ledger   *repository.MemoryLedger
	tripID   uuid.UUID
}

func newPromoterFixture(t *testing.T, capacity int) *promoterFixture {
	t.Helper()

	ledger := repository.NewMemoryLedger()
	trips := repository.NewMemoryTripDirectory()
	tripID := uuid.New()
	trips.Put(&model.Trip{ID: tripID, Capacity: capacity, Status: model.TripPlanned})

	tracker := NewCapacityTracker(trips, ledger)
	return &promoterFixture{
		promoter: NewWaitlistPromoter(ledger, tracker, events.NopPublisher{}),
		ledger:   ledger,
		tripID:   tripID,
	}
}

func (f *promoterFixture) add(t *testing.T, status model.RequestStatus, requestedAt time.Time) uuid.UUID {
	t.Helper()
	req := &model.Request{
		ID:               uuid.New(),
		TripID:           f.tripID,
		PassengerID:      uuid.New(),
		PickupLocationID: uuid.New(),
		Status:           status,
		RequestedAt:      requestedAt,
	}
	require.NoError(t, f.ledger.Create(context.Background(), req))
	return req.ID
}

func (f *promoterFixture) status(t *testing.T, id uuid.UUID) model.RequestStatus {
	t.Helper()
	req, err := f.ledger.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req.Status
}

func TestPromote_HonorsRequestedAtOrder(t *testing.T) {
	f := newPromoterFixture(t, 1)
	base := time.Now().UTC()

	late := f.add(t, model.StatusWaitingList, base.Add(2*time.Minute))
	early := f.add(t, model.StatusWaitingList, base)
	mid := f.add(t, model.StatusWaitingList, base.Add(time.Minute))

	promoted, err := f.promoter.Promote(context.Background(), f.tripID)
	require.NoError(t, err)
	require.Len(t, promoted, 1)

	assert.Equal(t, model.StatusPending, f.status(t, early))
	assert.Equal(t, model.StatusWaitingList, f.status(t, mid))
	assert.Equal(t, model.StatusWaitingList, f.status(t, late))
}

func TestPromote_TieBrokenByCreationSequence(t *testing.T) {
	f := newPromoterFixture(t, 1)
	at := time.Now().UTC()

	first := f.add(t, model.StatusWaitingList, at)
	second := f.add(t, model.StatusWaitingList, at)

	promoted, err := f.promoter.Promote(context.Background(), f.tripID)
	require.NoError(t, err)
	require.Len(t, promoted, 1)

	assert.Equal(t, model.StatusPending, f.status(t, first))
	assert.Equal(t, model.StatusWaitingList, f.status(t, second))
}

func TestPromote_NeverExceedsFreedSeats(t *testing.T) {
	f := newPromoterFixture(t, 2)
	base := time.Now().UTC()

	a := f.add(t, model.StatusWaitingList, base)
	b := f.add(t, model.StatusWaitingList, base.Add(time.Second))
	c := f.add(t, model.StatusWaitingList, base.Add(2*time.Second))

	promoted, err := f.promoter.Promote(context.Background(), f.tripID)
	require.NoError(t, err)
	assert.Len(t, promoted, 2)

	assert.Equal(t, model.StatusPending, f.status(t, a))
	assert.Equal(t, model.StatusPending, f.status(t, b))
	assert.Equal(t, model.StatusWaitingList, f.status(t, c))
}

func TestPromote_LandsOnPendingNotAccepted(t *testing.T) {
	f := newPromoterFixture(t, 3)
	id := f.add(t, model.StatusWaitingList, time.Now().UTC())

	promoted, err := f.promoter.Promote(context.Background(), f.tripID)
	require.NoError(t, err)
	require.Len(t, promoted, 1)

	// Promotion restores driver-decision eligibility; it never allocates.
	assert.Equal(t, model.StatusPending, f.status(t, id))
}

func TestPromote_NoFreeSeatsIsNoOp(t *testing.T) {
	f := newPromoterFixture(t, 1)
	f.add(t, model.StatusAccepted, time.Now().UTC())
	waiting := f.add(t, model.StatusWaitingList, time.Now().UTC())

	promoted, err := f.promoter.Promote(context.Background(), f.tripID)
	require.NoError(t, err)
	assert.Empty(t, promoted)
	assert.Equal(t, model.StatusWaitingList, f.status(t, waiting))
}

func TestPromote_EmptyWaitlistIsNoOp(t *testing.T) {
	f := newPromoterFixture(t, 2)

	promoted, err := f.promoter.Promote(context.Background(), f.tripID)
	require.NoError(t, err)
	assert.Empty(t, promoted)

	// Idempotent: running it again changes nothing.
	promoted, err = f.promoter.Promote(context.Background(), f.tripID)
	require.NoError(t, err)
	assert.Empty(t, promoted)
}

func TestPromote_UnknownTrip(t *testing.T) {
	f := newPromoterFixture(t, 1)
	_, err := f.promoter.Promote(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTripNotFound)
}

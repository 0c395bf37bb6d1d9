// Package service contains the core business logic for carpool seat
// allocation: the request lifecycle state machine, derived seat capacity
// and waitlist promotion.
package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/events"
	"github.com/example/carpool/internal/model"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/repository"
)

// AllocationEngine owns every seat-request state transition.
//
// Concurrency model: all transitions for one trip run under that trip's
// mutex, covering the read of current status and seat count, the write of
// the new status, and any waitlist promotion the write triggered. Trips
// never block each other. The seat count is always re-derived from the
// ledger; there is no stored counter.
type AllocationEngine struct {
	ledger     repository.RequestLedger
	trips      repository.TripDirectory
	passengers repository.PassengerDirectory
	locations  repository.LocationResolver
	capacity   *CapacityTracker
	promoter   *WaitlistPromoter
	events     events.Publisher

	mu        sync.Mutex
	tripLocks map[uuid.UUID]*sync.Mutex
}

// NewAllocationEngine wires the engine to its collaborators.
func NewAllocationEngine(
	ledger repository.RequestLedger,
	trips repository.TripDirectory,
	passengers repository.PassengerDirectory,
	locations repository.LocationResolver,
	capacity *CapacityTracker,
	promoter *WaitlistPromoter,
	publisher events.Publisher,
) *AllocationEngine {
	return &AllocationEngine{
		ledger:     ledger,
		trips:      trips,
		passengers: passengers,
		locations:  locations,
		capacity:   capacity,
		promoter:   promoter,
		events:     publisher,
		tripLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// tripLock returns the mutex serializing transitions for one trip,
// creating it on first use. The table grows with the number of trips seen;
// entries are a mutex each and are never contended across trips.
func (e *AllocationEngine) tripLock(tripID uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.tripLocks[tripID]
	if !ok {
		l = &sync.Mutex{}
		e.tripLocks[tripID] = l
	}
	return l
}

// ─── Creation ───────────────────────────────────────────────

// CreateRequest files a new seat request for a passenger on a trip.
//
// If the trip currently has free seats the request starts pending,
// otherwise it goes straight onto the waiting list. Pending requests are
// not capped against capacity; the capacity check binds at accept time,
// when a seat is actually allocated.
func (e *AllocationEngine) CreateRequest(ctx context.Context, tripID, passengerID, locationID uuid.UUID) (*model.Request, error) {
	ok, err := e.passengers.Exists(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPassengerNotFound
	}

	if err := e.locations.Resolve(ctx, locationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}

	lock := e.tripLock(tripID)
	lock.Lock()
	defer lock.Unlock()

	seats, err := e.capacity.AvailableSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}

	active, err := e.ledger.HasActive(ctx, tripID, passengerID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrDuplicateRequest
	}

	status := model.StatusPending
	if seats <= 0 {
		status = model.StatusWaitingList
	}

	req := &model.Request{
		ID:               uuid.New(),
		TripID:           tripID,
		PassengerID:      passengerID,
		PickupLocationID: locationID,
		Status:           status,
		RequestedAt:      time.Now().UTC(),
	}
	if err := e.ledger.Create(ctx, req); err != nil {
		return nil, err
	}

	observability.RequestsCreated.WithLabelValues(string(status)).Inc()
	e.publish(ctx, events.FromRequest(events.RequestCreated, req))

	log.Printf("[allocation] request %s created on trip %s (%s)", req.ID, tripID, status)
	return req, nil
}

// ─── Reads ──────────────────────────────────────────────────

// GetRequest returns a single request record.
func (e *AllocationEngine) GetRequest(ctx context.Context, requestID uuid.UUID) (*model.Request, error) {
	req, err := e.ledger.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListByTrip returns every request for a trip, optionally filtered by
// status, in (requested_at, seq) order.
func (e *AllocationEngine) ListByTrip(ctx context.Context, tripID uuid.UUID, status model.RequestStatus) ([]model.Request, error) {
	if _, err := e.trips.GetTrip(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	if status != "" {
		return e.ledger.ListByTripAndStatus(ctx, tripID, status)
	}
	return e.ledger.ListByTrip(ctx, tripID)
}

// ListByPassenger returns every request filed by a passenger.
func (e *AllocationEngine) ListByPassenger(ctx context.Context, passengerID uuid.UUID) ([]model.Request, error) {
	return e.ledger.ListByPassenger(ctx, passengerID)
}

// AvailableSeats exposes the derived free seat count.
func (e *AllocationEngine) AvailableSeats(ctx context.Context, tripID uuid.UUID) (int, error) {
	return e.capacity.AvailableSeats(ctx, tripID)
}

// ─── Transitions ────────────────────────────────────────────

// Accept allocates a seat to a pending request.
//
// Fails with ErrSeatUnavailable (status unchanged) when the derived free
// count is zero. A promotion only restores eligibility; it does not reserve
// the seat it was triggered by.
func (e *AllocationEngine) Accept(ctx context.Context, requestID uuid.UUID) (*model.Request, error) {
	req, err := e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	lock := e.tripLock(req.TripID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; the status may have moved since the lookup.
	req, err = e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.StatusPending:
		// Accept is only legal from pending.
	case model.StatusAccepted, model.StatusWaitingList, model.StatusRejected, model.StatusCanceled:
		return nil, ErrInvalidTransition
	default:
		return nil, ErrInvalidTransition
	}

	seats, err := e.capacity.AvailableSeats(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if seats <= 0 {
		observability.SeatConflicts.Inc()
		return nil, ErrSeatUnavailable
	}

	updated, err := e.ledger.UpdateStatus(ctx, requestID, model.StatusAccepted, "")
	if err != nil {
		return nil, err
	}
	e.auditSeats(ctx, req.TripID)

	observability.Transitions.WithLabelValues(string(model.StatusAccepted)).Inc()
	e.publish(ctx, events.FromRequest(events.RequestAccepted, updated))

	log.Printf("[allocation] request %s accepted on trip %s (%d seat(s) left)", requestID, req.TripID, seats-1)
	return updated, nil
}

// Reject refuses a request with a mandatory reason. Rejecting an accepted
// request frees its seat and immediately runs waitlist promotion for the
// trip, inside the same critical section.
func (e *AllocationEngine) Reject(ctx context.Context, requestID uuid.UUID, reason string) (*model.Request, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	req, err := e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	lock := e.tripLock(req.TripID)
	lock.Lock()
	defer lock.Unlock()

	req, err = e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.StatusPending, model.StatusAccepted, model.StatusWaitingList:
		// Rejectable.
	case model.StatusRejected, model.StatusCanceled:
		return nil, ErrInvalidTransition
	default:
		return nil, ErrInvalidTransition
	}

	freesSeat := req.Status == model.StatusAccepted

	updated, err := e.ledger.UpdateStatus(ctx, requestID, model.StatusRejected, reason)
	if err != nil {
		return nil, err
	}

	observability.Transitions.WithLabelValues(string(model.StatusRejected)).Inc()
	e.publish(ctx, events.FromRequest(events.RequestRejected, updated))

	if freesSeat {
		e.auditSeats(ctx, req.TripID)
		if _, err := e.promoter.Promote(ctx, req.TripID); err != nil {
			return nil, err
		}
	}

	log.Printf("[allocation] request %s rejected on trip %s", requestID, req.TripID)
	return updated, nil
}

// MoveToWaitingList defers a driver decision on a pending request. No seat
// is consumed or freed.
func (e *AllocationEngine) MoveToWaitingList(ctx context.Context, requestID uuid.UUID) (*model.Request, error) {
	req, err := e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	lock := e.tripLock(req.TripID)
	lock.Lock()
	defer lock.Unlock()

	req, err = e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.StatusPending:
		// Only a pending decision can be deferred.
	case model.StatusAccepted, model.StatusWaitingList, model.StatusRejected, model.StatusCanceled:
		return nil, ErrInvalidTransition
	default:
		return nil, ErrInvalidTransition
	}

	updated, err := e.ledger.UpdateStatus(ctx, requestID, model.StatusWaitingList, "")
	if err != nil {
		return nil, err
	}

	observability.Transitions.WithLabelValues(string(model.StatusWaitingList)).Inc()
	e.publish(ctx, events.FromRequest(events.RequestWaitlisted, updated))
	return updated, nil
}

// Cancel withdraws a request on behalf of the passenger who filed it.
// Cancelling an accepted request frees its seat and runs waitlist
// promotion.
func (e *AllocationEngine) Cancel(ctx context.Context, requestID, byPassengerID uuid.UUID) (*model.Request, error) {
	req, err := e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.PassengerID != byPassengerID {
		return nil, ErrNotRequestOwner
	}

	lock := e.tripLock(req.TripID)
	lock.Lock()
	defer lock.Unlock()

	req, err = e.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.StatusPending, model.StatusAccepted, model.StatusWaitingList:
		// Cancellable.
	case model.StatusRejected, model.StatusCanceled:
		return nil, ErrInvalidTransition
	default:
		return nil, ErrInvalidTransition
	}

	freesSeat := req.Status == model.StatusAccepted

	updated, err := e.ledger.UpdateStatus(ctx, requestID, model.StatusCanceled, "")
	if err != nil {
		return nil, err
	}

	observability.Transitions.WithLabelValues(string(model.StatusCanceled)).Inc()
	e.publish(ctx, events.FromRequest(events.RequestCanceled, updated))

	if freesSeat {
		e.auditSeats(ctx, req.TripID)
		if _, err := e.promoter.Promote(ctx, req.TripID); err != nil {
			return nil, err
		}
	}

	log.Printf("[allocation] request %s canceled by passenger %s", requestID, byPassengerID)
	return updated, nil
}

// PromoteForTrip runs waitlist promotion for a trip under its allocation
// lock. Seat-freeing transitions run promotion themselves; this is the
// entry point for capacity growing outside the engine, e.g. a trip update
// raising the seat count.
func (e *AllocationEngine) PromoteForTrip(ctx context.Context, tripID uuid.UUID) ([]model.Request, error) {
	if _, err := e.trips.GetTrip(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	lock := e.tripLock(tripID)
	lock.Lock()
	defer lock.Unlock()

	return e.promoter.Promote(ctx, tripID)
}

// CancelAllActiveForTrip cancels every pending, accepted and waitlisted
// request on a trip. Called by the trip-cancellation workflow before it
// runs its own penalty/rebooking steps. No promotion runs; the trip is
// going away.
func (e *AllocationEngine) CancelAllActiveForTrip(ctx context.Context, tripID uuid.UUID) ([]model.Request, error) {
	if _, err := e.trips.GetTrip(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	lock := e.tripLock(tripID)
	lock.Lock()
	defer lock.Unlock()

	requests, err := e.ledger.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	// Each cancellation commits individually. On a mid-loop ledger failure
	// the aggregate event still reports the requests that did cancel, so
	// the penalty workflow hears about every committed cancellation; the
	// caller retries the remainder.
	var canceled []model.Request
	var failed error
	for _, req := range requests {
		if !req.Status.Active() {
			continue
		}
		updated, err := e.ledger.UpdateStatus(ctx, req.ID, model.StatusCanceled, "")
		if err != nil {
			failed = err
			break
		}
		canceled = append(canceled, *updated)
		observability.Transitions.WithLabelValues(string(model.StatusCanceled)).Inc()
	}

	if len(canceled) > 0 || failed == nil {
		e.publish(ctx, events.AllocationEvent{
			Type:       events.TripRequestsCanceled,
			TripID:     tripID,
			Canceled:   len(canceled),
			OccurredAt: time.Now().UTC(),
		})
	}
	if failed != nil {
		return canceled, failed
	}

	log.Printf("[allocation] canceled %d active request(s) on trip %s", len(canceled), tripID)
	return canceled, nil
}

// ─── Internal helpers ───────────────────────────────────────

// auditSeats re-derives the free seat count after a seat-affecting write.
// A negative value means an accepted count above capacity, which the
// per-trip lock is supposed to make impossible.
func (e *AllocationEngine) auditSeats(ctx context.Context, tripID uuid.UUID) {
	seats, err := e.capacity.AvailableSeats(ctx, tripID)
	if err != nil {
		log.Printf("[allocation] seat audit for trip %s: %v", tripID, err)
		return
	}
	if seats < 0 {
		observability.CapacityViolations.Inc()
		log.Printf("[allocation] seat audit for trip %s: derived availability %d < 0", tripID, seats)
	}
}

// publish sends an allocation event, best-effort.
func (e *AllocationEngine) publish(ctx context.Context, ev events.AllocationEvent) {
	if err := e.events.Publish(ctx, ev); err != nil {
		log.Printf("[allocation] publish %s: %v", ev.Type, err)
	}
}

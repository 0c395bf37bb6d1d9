package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/events"
	"github.com/example/carpool/internal/model"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/repository"
)

// WaitlistPromoter moves waitlisted requests back to pending when seats
// free up.
//
// Promotion restores eligibility for a driver decision. It never accepts
// anyone directly: a freed seat can still be refused by the driver.
//
// Callers must hold the trip's allocation lock: Promote reads the free seat
// count and the waiting queue as one consistent snapshot taken after the
// freeing transition committed.
type WaitlistPromoter struct {
	ledger   repository.RequestLedger
	capacity *CapacityTracker
	events   events.Publisher
}

// NewWaitlistPromoter creates a promoter.
func NewWaitlistPromoter(ledger repository.RequestLedger, capacity *CapacityTracker, publisher events.Publisher) *WaitlistPromoter {
	return &WaitlistPromoter{ledger: ledger, capacity: capacity, events: publisher}
}

// Promote moves the oldest waitlisted requests to pending, one per free
// seat.
//
// The free count is the current derived availability, not a delta passed by
// the caller, so Promote stays correct when several seats were freed before
// it ran. Re-invoking with no free seats is a no-op.
func (p *WaitlistPromoter) Promote(ctx context.Context, tripID uuid.UUID) ([]model.Request, error) {
	freed, err := p.capacity.AvailableSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if freed <= 0 {
		return nil, nil
	}

	waiting, err := p.ledger.ListWaiting(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(waiting) == 0 {
		return nil, nil
	}

	n := freed
	if len(waiting) < n {
		n = len(waiting)
	}

	promoted := make([]model.Request, 0, n)
	for _, candidate := range waiting[:n] {
		updated, err := p.ledger.UpdateStatus(ctx, candidate.ID, model.StatusPending, "")
		if err != nil {
			// Already-promoted entries stay promoted; report what happened.
			return promoted, err
		}
		promoted = append(promoted, *updated)

		observability.Promotions.Inc()
		if err := p.events.Publish(ctx, events.FromRequest(events.RequestPromoted, updated)); err != nil {
			log.Printf("[waitlist] publish promoted event: %v", err)
		}
	}

	log.Printf("[waitlist] promoted %d of %d waiting request(s) on trip %s", len(promoted), len(waiting), tripID)
	return promoted, nil
}

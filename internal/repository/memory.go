package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/model"
)

// MemoryLedger is an in-memory RequestLedger. It backs unit tests and local
// development without a database; the service layer treats it exactly like
// the Postgres ledger.
type MemoryLedger struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*model.Request
	nextSeq  int64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{requests: make(map[uuid.UUID]*model.Request)}
}

func (m *MemoryLedger) Create(_ context.Context, req *model.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	req.Seq = m.nextSeq
	req.UpdatedAt = time.Now().UTC()

	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *MemoryLedger) GetByID(_ context.Context, id uuid.UUID) (*model.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *MemoryLedger) ListByTrip(_ context.Context, tripID uuid.UUID) ([]model.Request, error) {
	return m.collect(func(r *model.Request) bool { return r.TripID == tripID }), nil
}

func (m *MemoryLedger) ListByTripAndStatus(_ context.Context, tripID uuid.UUID, status model.RequestStatus) ([]model.Request, error) {
	return m.collect(func(r *model.Request) bool {
		return r.TripID == tripID && r.Status == status
	}), nil
}

func (m *MemoryLedger) ListByPassenger(_ context.Context, passengerID uuid.UUID) ([]model.Request, error) {
	return m.collect(func(r *model.Request) bool { return r.PassengerID == passengerID }), nil
}

func (m *MemoryLedger) ListWaiting(_ context.Context, tripID uuid.UUID) ([]model.Request, error) {
	return m.collect(func(r *model.Request) bool {
		return r.TripID == tripID && r.Status == model.StatusWaitingList
	}), nil
}

func (m *MemoryLedger) CountAccepted(_ context.Context, tripID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.requests {
		if r.TripID == tripID && r.Status == model.StatusAccepted {
			n++
		}
	}
	return n, nil
}

func (m *MemoryLedger) HasActive(_ context.Context, tripID, passengerID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.requests {
		if r.TripID == tripID && r.PassengerID == passengerID && r.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryLedger) UpdateStatus(_ context.Context, id uuid.UUID, status model.RequestStatus, reason string) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}

	req.Status = status
	if status == model.StatusRejected {
		req.Reason = reason
	} else {
		req.Reason = ""
	}
	req.UpdatedAt = time.Now().UTC()

	cp := *req
	return &cp, nil
}

// collect returns copies of matching requests in (requested_at, seq) order.
func (m *MemoryLedger) collect(match func(*model.Request) bool) []model.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Request
	for _, r := range m.requests {
		if match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

// ─── In-memory directories ──────────────────────────────────

// MemoryTripDirectory holds trip records in a map. Used in tests in place
// of the Postgres-backed trip repository.
type MemoryTripDirectory struct {
	mu    sync.RWMutex
	trips map[uuid.UUID]*model.Trip
}

func NewMemoryTripDirectory() *MemoryTripDirectory {
	return &MemoryTripDirectory{trips: make(map[uuid.UUID]*model.Trip)}
}

func (d *MemoryTripDirectory) Put(trip *model.Trip) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *trip
	d.trips[trip.ID] = &cp
}

func (d *MemoryTripDirectory) GetTrip(_ context.Context, id uuid.UUID) (*model.Trip, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	trip, ok := d.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *trip
	return &cp, nil
}

// MemoryPassengerDirectory is a set of known passenger ids.
type MemoryPassengerDirectory struct {
	mu  sync.RWMutex
	ids map[uuid.UUID]struct{}
}

func NewMemoryPassengerDirectory() *MemoryPassengerDirectory {
	return &MemoryPassengerDirectory{ids: make(map[uuid.UUID]struct{})}
}

func (d *MemoryPassengerDirectory) Add(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[id] = struct{}{}
}

func (d *MemoryPassengerDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ids[id]
	return ok, nil
}

// MemoryLocationResolver is a set of known location ids.
type MemoryLocationResolver struct {
	mu  sync.RWMutex
	ids map[uuid.UUID]struct{}
}

func NewMemoryLocationResolver() *MemoryLocationResolver {
	return &MemoryLocationResolver{ids: make(map[uuid.UUID]struct{})}
}

func (d *MemoryLocationResolver) Add(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[id] = struct{}{}
}

func (d *MemoryLocationResolver) Resolve(_ context.Context, id uuid.UUID) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.ids[id]; !ok {
		return ErrNotFound
	}
	return nil
}

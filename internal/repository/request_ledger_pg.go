package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/carpool/internal/model"
)

// DefaultTxTimeout caps a single ledger transaction, including lock wait.
const DefaultTxTimeout = 5 * time.Second

// PostgresLedger is the production RequestLedger, backed by pgx. It stores
// seat requests in the seat_requests table. Every status change runs in its
// own transaction with a SELECT ... FOR UPDATE on the request row;
// serialization of whole transitions is owned by the allocation engine's
// per-trip critical section.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger creates a ledger backed by the given pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const requestColumns = `
	id, trip_id, passenger_id, pickup_location_id,
	status, COALESCE(reason, ''), requested_at, seq, updated_at
`

func scanRequest(row pgx.Row) (*model.Request, error) {
	req := &model.Request{}
	err := row.Scan(
		&req.ID, &req.TripID, &req.PassengerID, &req.PickupLocationID,
		&req.Status, &req.Reason, &req.RequestedAt, &req.Seq, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (l *PostgresLedger) Create(ctx context.Context, req *model.Request) error {
	err := l.pool.QueryRow(ctx, `
		INSERT INTO seat_requests (
			id, trip_id, passenger_id, pickup_location_id,
			status, requested_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq, updated_at
	`,
		req.ID, req.TripID, req.PassengerID, req.PickupLocationID,
		req.Status, req.RequestedAt,
	).Scan(&req.Seq, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ledger: create request: %w", err)
	}
	return nil
}

func (l *PostgresLedger) GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, err := scanRequest(l.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM seat_requests
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ledger: get request %s: %w", id, err)
	}
	return req, nil
}

func (l *PostgresLedger) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]model.Request, error) {
	return l.list(ctx, `
		SELECT `+requestColumns+`
		FROM seat_requests
		WHERE trip_id = $1
		ORDER BY requested_at ASC, seq ASC
	`, tripID)
}

func (l *PostgresLedger) ListByTripAndStatus(ctx context.Context, tripID uuid.UUID, status model.RequestStatus) ([]model.Request, error) {
	return l.list(ctx, `
		SELECT `+requestColumns+`
		FROM seat_requests
		WHERE trip_id = $1 AND status = $2
		ORDER BY requested_at ASC, seq ASC
	`, tripID, status)
}

func (l *PostgresLedger) ListByPassenger(ctx context.Context, passengerID uuid.UUID) ([]model.Request, error) {
	return l.list(ctx, `
		SELECT `+requestColumns+`
		FROM seat_requests
		WHERE passenger_id = $1
		ORDER BY requested_at ASC, seq ASC
	`, passengerID)
}

func (l *PostgresLedger) ListWaiting(ctx context.Context, tripID uuid.UUID) ([]model.Request, error) {
	return l.ListByTripAndStatus(ctx, tripID, model.StatusWaitingList)
}

func (l *PostgresLedger) CountAccepted(ctx context.Context, tripID uuid.UUID) (int, error) {
	var n int
	err := l.pool.QueryRow(ctx, `
		SELECT COUNT(*)::int
		FROM seat_requests
		WHERE trip_id = $1 AND status = 'accepted'
	`, tripID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ledger: count accepted for trip %s: %w", tripID, err)
	}
	return n, nil
}

func (l *PostgresLedger) HasActive(ctx context.Context, tripID, passengerID uuid.UUID) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM seat_requests
			WHERE trip_id = $1
			  AND passenger_id = $2
			  AND status IN ('pending', 'accepted', 'waiting_list')
		)
	`, tripID, passengerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ledger: active check for trip %s: %w", tripID, err)
	}
	return exists, nil
}

// UpdateStatus moves a request to the given status inside a transaction.
//
// The SELECT ... FOR UPDATE acquires an exclusive row-level lock, so a
// concurrent writer to the same row blocks until this transaction completes
// and then re-reads the committed state. Reason is stored only for
// rejections and cleared on every other transition.
func (l *PostgresLedger) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus, reason string) (*model.Request, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTxTimeout)
	defer cancel()

	tx, err := l.pool.BeginTx(txCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("ledger: begin tx: %w", err)
	}
	// Rollback is a no-op if the tx was already committed. It runs on a
	// fresh context so a canceled caller still releases the row lock.
	defer tx.Rollback(context.Background())

	var current model.RequestStatus
	err = tx.QueryRow(txCtx, `
		SELECT status FROM seat_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ledger: lock request %s: %w", id, err)
	}

	var reasonArg *string
	if status == model.StatusRejected {
		reasonArg = &reason
	}

	req, err := scanRequest(tx.QueryRow(txCtx, `
		UPDATE seat_requests
		SET status = $2, reason = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+requestColumns+`
	`, id, status, reasonArg))
	if err != nil {
		return nil, fmt.Errorf("ledger: update request %s: %w", id, err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, fmt.Errorf("ledger: commit: %w", err)
	}
	return req, nil
}

func (l *PostgresLedger) list(ctx context.Context, query string, args ...any) ([]model.Request, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list requests: %w", err)
	}
	defer rows.Close()

	var out []model.Request
	for rows.Next() {
		var req model.Request
		if err := rows.Scan(
			&req.ID, &req.TripID, &req.PassengerID, &req.PickupLocationID,
			&req.Status, &req.Reason, &req.RequestedAt, &req.Seq, &req.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ledger: scan request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

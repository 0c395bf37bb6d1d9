package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/example/carpool/internal/model"
)

// TripRepository owns trip rows and implements TripDirectory for the
// allocation engine.
//
// Reads go through a Redis cache: capacity is immutable after creation as
// far as the engine is concerned, so a cached trip record cannot drift from
// the derived seat count. Writes from the trip-management surface
// invalidate the cached entry.
type TripRepository struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

// NewTripRepository creates a trip repository. The redis client is optional;
// with a nil client every read hits Postgres.
func NewTripRepository(pool *pgxpool.Pool, redisClient *redis.Client) *TripRepository {
	return &TripRepository{pool: pool, redis: redisClient}
}

const (
	tripCacheKeyPrefix = "trip:"
	tripCacheTTL       = 5 * time.Minute
)

func tripCacheKey(id uuid.UUID) string {
	return tripCacheKeyPrefix + id.String()
}

// GetTrip fetches a trip, Redis first, Postgres on a miss.
func (r *TripRepository) GetTrip(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	if r.redis != nil {
		if raw, err := r.redis.Get(ctx, tripCacheKey(id)).Bytes(); err == nil {
			trip := &model.Trip{}
			if err := json.Unmarshal(raw, trip); err == nil {
				return trip, nil
			}
			// Unreadable cache entry; fall through to the DB.
		}
	}

	trip := &model.Trip{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, driver_id, capacity, start_time, end_time, status,
		       created_at, updated_at
		FROM trips
		WHERE id = $1
	`, id).Scan(
		&trip.ID, &trip.DriverID, &trip.Capacity,
		&trip.StartTime, &trip.EndTime, &trip.Status,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("trips: get %s: %w", id, err)
	}

	r.cache(ctx, trip)
	return trip, nil
}

// CreateTrip inserts a new trip. Capacity must be non-negative; the handler
// validates, this is the backstop (matches the DB CHECK).
func (r *TripRepository) CreateTrip(ctx context.Context, trip *model.Trip) error {
	if trip.Capacity < 0 {
		return fmt.Errorf("trips: capacity must be >= 0, got %d", trip.Capacity)
	}
	if trip.Status == "" {
		trip.Status = model.TripPlanned
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO trips (id, driver_id, capacity, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`,
		trip.ID, trip.DriverID, trip.Capacity,
		trip.StartTime, trip.EndTime, trip.Status,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("trips: create: %w", err)
	}
	r.cache(ctx, trip)
	return nil
}

// ListTrips returns all trips ordered by departure time.
func (r *TripRepository) ListTrips(ctx context.Context) ([]model.Trip, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, driver_id, capacity, start_time, end_time, status,
		       created_at, updated_at
		FROM trips
		ORDER BY start_time ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("trips: list: %w", err)
	}
	defer rows.Close()

	var out []model.Trip
	for rows.Next() {
		var t model.Trip
		if err := rows.Scan(
			&t.ID, &t.DriverID, &t.Capacity,
			&t.StartTime, &t.EndTime, &t.Status,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("trips: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTrip rewrites the mutable trip fields and invalidates the cache.
func (r *TripRepository) UpdateTrip(ctx context.Context, trip *model.Trip) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE trips
		SET driver_id = $2, capacity = $3, start_time = $4, end_time = $5,
		    status = $6, updated_at = now()
		WHERE id = $1
	`,
		trip.ID, trip.DriverID, trip.Capacity,
		trip.StartTime, trip.EndTime, trip.Status,
	)
	if err != nil {
		return fmt.Errorf("trips: update %s: %w", trip.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, trip.ID)
	return nil
}

// SetTripStatus flips the trip status (used by trip cancellation).
func (r *TripRepository) SetTripStatus(ctx context.Context, id uuid.UUID, status model.TripStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE trips SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("trips: set status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, id)
	return nil
}

// DeleteTrip removes a trip row.
func (r *TripRepository) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("trips: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, id)
	return nil
}

// cache stores the trip in Redis, fire-and-forget.
func (r *TripRepository) cache(ctx context.Context, trip *model.Trip) {
	if r.redis == nil {
		return
	}
	if raw, err := json.Marshal(trip); err == nil {
		_ = r.redis.Set(ctx, tripCacheKey(trip.ID), raw, tripCacheTTL).Err()
	}
}

func (r *TripRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, tripCacheKey(id)).Err()
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPassengerDirectory answers passenger existence checks from the
// `passengers` table.
type PostgresPassengerDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresPassengerDirectory(pool *pgxpool.Pool) *PostgresPassengerDirectory {
	return &PostgresPassengerDirectory{pool: pool}
}

func (d *PostgresPassengerDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM passengers WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("passengers: exists %s: %w", id, err)
	}
	return exists, nil
}

// PostgresLocationResolver resolves pickup location ids against the
// `locations` table.
type PostgresLocationResolver struct {
	pool *pgxpool.Pool
}

func NewPostgresLocationResolver(pool *pgxpool.Pool) *PostgresLocationResolver {
	return &PostgresLocationResolver{pool: pool}
}

func (d *PostgresLocationResolver) Resolve(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("locations: resolve %s: %w", id, err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

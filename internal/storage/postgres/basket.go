package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
)

const (
	getBasketSQL = `SELECT snapshot FROM baskets WHERE id = $1`

	saveBasketSQL = `INSERT INTO baskets (id, snapshot, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`

	deleteBasketSQL = `DELETE FROM baskets WHERE id = $1`
)

var _ basket.Store = (*BasketRepository)(nil)

// BasketRepository stores encoded basket snapshots in a JSONB column.
type BasketRepository struct {
	pool *pgxpool.Pool
}

// NewBasketRepository returns a BasketRepository that uses the given pool.
func NewBasketRepository(pool *pgxpool.Pool) *BasketRepository {
	return &BasketRepository{pool: pool}
}

// Load returns basket.ErrNotFound when the basket does not exist.
func (r *BasketRepository) Load(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	if err := r.pool.QueryRow(ctx, getBasketSQL, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, basket.ErrNotFound
		}
		return nil, fmt.Errorf("loading basket %q: %w", id, err)
	}
	return data, nil
}

// Save inserts or replaces the basket snapshot.
func (r *BasketRepository) Save(ctx context.Context, id string, data []byte) error {
	if _, err := r.pool.Exec(ctx, saveBasketSQL, id, data); err != nil {
		return fmt.Errorf("saving basket %q: %w", id, err)
	}
	return nil
}

// Delete removes the basket. Deleting an unknown basket is not an error.
func (r *BasketRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteBasketSQL, id); err != nil {
		return fmt.Errorf("deleting basket %q: %w", id, err)
	}
	return nil
}

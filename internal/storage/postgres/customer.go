package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/oolio-kart-basket/internal/domain/customer"
)

const (
	getCustomerSQL = `SELECT id, name, email FROM customers WHERE id = $1`

	getAddressSQL = `SELECT id, customer_id, name, street, city, postal_code, country
		FROM addresses WHERE id = $1`

	upsertCustomerSQL = `INSERT INTO customers (id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`

	upsertAddressSQL = `INSERT INTO addresses (id, customer_id, name, street, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			name = EXCLUDED.name,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			postal_code = EXCLUDED.postal_code,
			country = EXCLUDED.country`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns customer.ErrNotFound when no customer matches.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.pool.QueryRow(ctx, getCustomerSQL, id).Scan(&c.ID, &c.Name, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// GetAddress returns customer.ErrAddressNotFound when no address matches.
func (r *CustomerRepository) GetAddress(ctx context.Context, id string) (*customer.Address, error) {
	var a customer.Address
	err := r.pool.QueryRow(ctx, getAddressSQL, id).Scan(
		&a.ID, &a.CustomerID, &a.Name, &a.Street, &a.City, &a.PostalCode, &a.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrAddressNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	return &a, nil
}

// Upsert inserts or replaces a customer.
func (r *CustomerRepository) Upsert(ctx context.Context, c customer.Customer) error {
	if _, err := r.pool.Exec(ctx, upsertCustomerSQL, c.ID, c.Name, c.Email); err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.ID, err)
	}
	return nil
}

// UpsertAddress inserts or replaces an address.
func (r *CustomerRepository) UpsertAddress(ctx context.Context, a customer.Address) error {
	_, err := r.pool.Exec(ctx, upsertAddressSQL,
		a.ID, a.CustomerID, a.Name, a.Street, a.City, a.PostalCode, a.Country,
	)
	if err != nil {
		return fmt.Errorf("upserting address %q: %w", a.ID, err)
	}
	return nil
}

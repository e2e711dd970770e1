package customer

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a customer does not exist.
	ErrNotFound = errors.New("customer not found")
	// ErrAddressNotFound is returned when an address does not exist.
	ErrAddressNotFound = errors.New("address not found")
)

// Customer is the owner of a basket.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// CustomerID returns the durable customer identifier.
func (c *Customer) CustomerID() string { return c.ID }

// Address is a postal address belonging to a customer.
type Address struct {
	ID         string
	CustomerID string
	Name       string
	Street     string
	City       string
	PostalCode string
	Country    string
}

// AddressID returns the durable address identifier.
func (a *Address) AddressID() string { return a.ID }

// Repository provides lookup of customers and their addresses.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	GetAddress(ctx context.Context, id string) (*Address, error)
}

// Package memory provides in-process implementations of the storage
// interfaces for tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
	"github.com/xenking/oolio-kart-basket/internal/domain/customer"
	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

// Compile-time checks.
var (
	_ product.Repository  = (*Products)(nil)
	_ customer.Repository = (*Customers)(nil)
	_ basket.Store        = (*Baskets)(nil)
)

// Products is an in-memory product catalog.
type Products struct {
	mu       sync.RWMutex
	products map[string]product.Product
}

func NewProducts(products ...product.Product) *Products {
	r := &Products{products: make(map[string]product.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Put inserts or replaces a product.
func (r *Products) Put(p product.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

// Remove deletes a product from the catalog.
func (r *Products) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

// List returns products ordered by id.
func (r *Products) List(_ context.Context) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *Products) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs skips unknown ids.
func (r *Products) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Customers stores customers and their addresses.
type Customers struct {
	mu        sync.RWMutex
	customers map[string]customer.Customer
	addresses map[string]customer.Address
}

func NewCustomers() *Customers {
	return &Customers{
		customers: make(map[string]customer.Customer),
		addresses: make(map[string]customer.Address),
	}
}

// Put stores c with its addresses. Addresses get c as owner.
func (r *Customers) Put(c customer.Customer, addresses ...customer.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = c
	for _, a := range addresses {
		a.CustomerID = c.ID
		r.addresses[a.ID] = a
	}
}

func (r *Customers) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

func (r *Customers) GetAddress(_ context.Context, id string) (*customer.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addresses[id]
	if !ok {
		return nil, customer.ErrAddressNotFound
	}
	return &a, nil
}

// Baskets keeps encoded snapshots in a map.
type Baskets struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewBaskets() *Baskets {
	return &Baskets{data: make(map[string][]byte)}
}

func (s *Baskets) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, basket.ErrNotFound
	}
	return slices.Clone(data), nil
}

func (s *Baskets) Save(_ context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = slices.Clone(data)
	return nil
}

func (s *Baskets) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// Len returns the number of stored baskets.
func (s *Baskets) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

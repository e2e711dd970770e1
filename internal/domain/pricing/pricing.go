// Package pricing holds the per-product-type basket providers.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

// Compile-time checks.
var (
	_ basket.Provider = Standard{}
	_ basket.Provider = Subscription{}
)

// NewPool returns a pool with the default providers registered for their
// product types.
func NewPool() *basket.Pool {
	pool := basket.NewPool()
	pool.Register(product.TypeStandard, Standard{})
	pool.Register(product.TypeSubscription, Subscription{})
	return pool
}

// Standard prices an element at its catalog price and enforces the
// product's per-basket quantity limit.
type Standard struct{}

// IsAddable accepts an optional int quantity argument, defaulting to 1.
func (Standard) IsAddable(b *basket.Basket, p *product.Product, args ...any) bool {
	qty := quantityArg(args)
	if qty <= 0 {
		return false
	}
	if p.MaxPerBasket == 0 {
		return true
	}
	return inBasket(b, p.ID)+qty <= p.MaxPerBasket
}

func (Standard) CalculatePrice(_ *basket.Basket, e *basket.Element) (decimal.Decimal, error) {
	return e.Product().Price, nil
}

// Subscription allows a single unit of each recurring product per basket.
type Subscription struct{}

func (Subscription) IsAddable(b *basket.Basket, p *product.Product, args ...any) bool {
	return quantityArg(args) == 1 && !b.HasProduct(p)
}

func (Subscription) CalculatePrice(_ *basket.Basket, e *basket.Element) (decimal.Decimal, error) {
	return e.Product().Price, nil
}

func quantityArg(args []any) int {
	if len(args) == 0 {
		return 1
	}
	if q, ok := args[0].(int); ok {
		return q
	}
	return 1
}

// inBasket returns the quantity of the product across all elements.
func inBasket(b *basket.Basket, productID string) int {
	total := 0
	for _, e := range b.Elements() {
		if e.ProductID() == productID {
			total += e.Quantity()
		}
	}
	return total
}

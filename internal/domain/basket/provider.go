package basket

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

// ErrProviderNotFound is returned when no provider is registered for a
// product type.
var ErrProviderNotFound = errors.New("no provider for product type")

// Provider implements per-product-type business rules: whether a product may
// be added to a basket and what an element costs in the context of a basket.
type Provider interface {
	// IsAddable decides whether p may be added to b. Extra arguments are
	// passed through from Basket.IsAddable untouched.
	IsAddable(b *Basket, p *product.Product, args ...any) bool
	// CalculatePrice returns the unit price of e, excluding VAT.
	CalculatePrice(b *Basket, e *Element) (decimal.Decimal, error)
}

// Pool resolves providers by product type.
type Pool struct {
	providers map[string]Provider
}

// NewPool creates an empty provider pool.
func NewPool() *Pool {
	return &Pool{providers: make(map[string]Provider)}
}

// Register binds a provider to a product type, replacing any previous one.
func (p *Pool) Register(productType string, provider Provider) {
	p.providers[productType] = provider
}

// Provider returns the provider registered for the product type.
func (p *Pool) Provider(productType string) (Provider, error) {
	provider, ok := p.providers[productType]
	if !ok {
		return nil, errors.Wrapf(ErrProviderNotFound, "type %q", productType)
	}
	return provider, nil
}

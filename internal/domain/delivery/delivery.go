// Package delivery provides the delivery strategies a basket can select.
package delivery

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
)

var hundred = decimal.NewFromInt(100)

// Compile-time checks.
var (
	_ basket.DeliveryMethod  = (*FlatRate)(nil)
	_ basket.DeliveryMethods = (*Registry)(nil)
)

// FlatRate charges a fixed price per basket, waived once the basket
// subtotal reaches FreeOver.
type FlatRate struct {
	code            string
	price           decimal.Decimal
	vatRate         decimal.Decimal
	freeOver        decimal.Decimal
	addressRequired bool
}

// NewFlatRate creates a flat rate method requiring a delivery address. A
// zero freeOver never waives the price.
func NewFlatRate(code string, price, vatRate, freeOver decimal.Decimal) *FlatRate {
	return &FlatRate{
		code:            code,
		price:           price,
		vatRate:         vatRate,
		freeOver:        freeOver,
		addressRequired: true,
	}
}

// NewPickup creates a free method collected in store, without address.
func NewPickup(code string) *FlatRate {
	return &FlatRate{code: code}
}

func (m *FlatRate) Code() string { return m.code }

func (m *FlatRate) IsAddressRequired() bool { return m.addressRequired }

// Total returns the delivery price for b, VAT included when requested.
func (m *FlatRate) Total(b *basket.Basket, includeVat bool) decimal.Decimal {
	price := m.net(b)
	if includeVat {
		price = price.Add(price.Mul(m.vatRate).Div(hundred))
	}
	return price
}

// VatAmount returns the VAT charged on delivery.
func (m *FlatRate) VatAmount(b *basket.Basket) decimal.Decimal {
	return m.net(b).Mul(m.vatRate).Div(hundred)
}

func (m *FlatRate) net(b *basket.Basket) decimal.Decimal {
	if m.freeOver.IsPositive() && b.Subtotal(false).GreaterThanOrEqual(m.freeOver) {
		return decimal.Zero
	}
	return m.price
}

// Registry resolves delivery methods by code.
type Registry struct {
	methods map[string]basket.DeliveryMethod
}

// NewRegistry creates a registry holding the given methods.
func NewRegistry(methods ...basket.DeliveryMethod) *Registry {
	r := &Registry{methods: make(map[string]basket.DeliveryMethod, len(methods))}
	for _, m := range methods {
		r.methods[m.Code()] = m
	}
	return r
}

// Lookup returns the method registered under code.
func (r *Registry) Lookup(code string) (basket.DeliveryMethod, error) {
	m, ok := r.methods[code]
	if !ok {
		return nil, errors.Wrapf(basket.ErrUnknownMethod, "delivery %q", code)
	}
	return m, nil
}

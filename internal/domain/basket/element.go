package basket

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

var hundred = decimal.NewFromInt(100)

// Element is a basket line item: one product with a quantity and the unit
// price computed by the product's provider during the last rebuild.
type Element struct {
	product     *product.Product
	productID   string
	productType string
	quantity    int
	price       decimal.Decimal
	vatRate     decimal.Decimal
	slot        int
	deleted     bool
	options     map[string]any
}

// NewElement creates an element for the given product and quantity. The
// price stays zero until the basket rebuilds prices.
func NewElement(p *product.Product, quantity int) *Element {
	e := &Element{quantity: quantity, slot: -1}
	e.SetProduct(p)
	return e
}

// Product returns the resolved product, or nil when the element is orphaned
// or has not been rehydrated yet.
func (e *Element) Product() *product.Product { return e.product }

// SetProduct attaches a resolved product. A nil product orphans the element
// but keeps its durable product id.
func (e *Element) SetProduct(p *product.Product) {
	e.product = p
	if p == nil {
		return
	}
	e.productID = p.ID
	e.productType = p.Type
	e.vatRate = p.VatRate
}

// ProductID returns the durable product identifier.
func (e *Element) ProductID() string { return e.productID }

// ProductType returns the product type the element was priced with.
func (e *Element) ProductType() string { return e.productType }

func (e *Element) Quantity() int { return e.quantity }

// SetQuantity changes the quantity. The price is not recomputed until the
// next rebuild.
func (e *Element) SetQuantity(q int) { e.quantity = q }

// Price returns the unit price, excluding VAT.
func (e *Element) Price() decimal.Decimal { return e.price }

func (e *Element) SetPrice(p decimal.Decimal) { e.price = p }

// VatRate returns the VAT percentage applied to the element.
func (e *Element) VatRate() decimal.Decimal { return e.vatRate }

// Slot returns the index under which the basket stores the element, or -1
// when the element is not in a basket.
func (e *Element) Slot() int { return e.slot }

// MarkDeleted flags the element for removal by Basket.Clean.
func (e *Element) MarkDeleted() { e.deleted = true }

func (e *Element) IsDeleted() bool { return e.deleted }

// IsRecurrent reports whether the element's product is billed periodically.
func (e *Element) IsRecurrent() bool {
	return e.product != nil && e.product.RecurrentPayment
}

// Total returns unit price times quantity, VAT included when requested.
func (e *Element) Total(includeVat bool) decimal.Decimal {
	total := e.price.Mul(decimal.NewFromInt(int64(e.quantity)))
	if includeVat {
		total = total.Add(e.VatAmount())
	}
	return total
}

// VatAmount returns the VAT part of the element total.
func (e *Element) VatAmount() decimal.Decimal {
	return e.price.Mul(decimal.NewFromInt(int64(e.quantity))).Mul(e.vatRate).Div(hundred)
}

// IsValid reports whether the element can be ordered.
func (e *Element) IsValid() bool {
	return e.product != nil && e.quantity > 0 && !e.price.IsNegative()
}

// Option returns an element option or def when it is not set.
func (e *Element) Option(name string, def any) any {
	if v, ok := e.options[name]; ok {
		return v
	}
	return def
}

func (e *Element) SetOption(name string, value any) {
	if e.options == nil {
		e.options = make(map[string]any)
	}
	e.options[name] = NormalizeOption(value)
}

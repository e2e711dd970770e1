// Package basket implements the shopping basket aggregate: line items keyed
// by stable slots, checkout selections and the derived totals.
//
// A Basket is not safe for concurrent use. Service serialises access to a
// stored basket; callers using Basket directly own the synchronisation.
package basket

import (
	"maps"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

var (
	// ErrElementNotFound is returned when the basket has no element for a
	// product.
	ErrElementNotFound = errors.New("basket element not found")
	// ErrInvalidState is returned when an element is not held by the basket
	// at the slot it claims.
	ErrInvalidState = errors.New("element is not in the basket")
)

// Address is a delivery or payment address.
type Address interface {
	AddressID() string
}

// Customer owns a basket.
type Customer interface {
	CustomerID() string
}

// DeliveryMethod computes delivery cost for a basket.
type DeliveryMethod interface {
	Code() string
	IsAddressRequired() bool
	Total(b *Basket, includeVat bool) decimal.Decimal
	VatAmount(b *Basket) decimal.Decimal
}

// PaymentMethod is a payment strategy identified by its code.
type PaymentMethod interface {
	Code() string
}

// Basket aggregates elements, checkout selections and options.
type Basket struct {
	pool *Pool

	elements  map[int]*Element
	positions map[string]int
	nextSlot  int

	deliveryAddress Ref[Address]
	deliveryMethod  Ref[DeliveryMethod]
	paymentAddress  Ref[Address]
	paymentMethod   Ref[PaymentMethod]
	customer        Ref[Customer]

	options  map[string]any
	locale   string
	currency string
}

// New creates an empty basket pricing its elements with providers from pool.
func New(pool *Pool) *Basket {
	return &Basket{
		pool:      pool,
		elements:  make(map[int]*Element),
		positions: make(map[string]int),
		options:   make(map[string]any),
	}
}

// Elements returns the elements ordered by slot.
func (b *Basket) Elements() []*Element {
	out := make([]*Element, 0, len(b.elements))
	for _, slot := range slices.Sorted(maps.Keys(b.elements)) {
		out = append(out, b.elements[slot])
	}
	return out
}

func (b *Basket) CountElements() int { return len(b.elements) }

func (b *Basket) HasElements() bool { return len(b.elements) > 0 }

func (b *Basket) IsEmpty() bool { return len(b.elements) == 0 }

// NextSlot returns the slot the next added element will receive.
func (b *Basket) NextSlot() int { return b.nextSlot }

// Positions returns a copy of the product id to slot index.
func (b *Basket) Positions() map[string]int { return maps.Clone(b.positions) }

// AddElement stores e under the next slot and rebuilds prices. The same
// product may be added more than once; the position index then points to the
// latest element.
func (b *Basket) AddElement(e *Element) error {
	e.slot = b.nextSlot
	b.elements[e.slot] = e
	b.positions[e.productID] = e.slot
	b.nextSlot++

	return b.BuildPrices()
}

// RemoveElement removes e and rebuilds prices. The slot is taken from e
// itself and must still hold e, otherwise ErrInvalidState is returned.
func (b *Basket) RemoveElement(e *Element) (*Element, error) {
	if !b.detach(e) {
		return nil, errors.Wrapf(ErrInvalidState, "slot %d", e.slot)
	}
	if err := b.BuildPrices(); err != nil {
		return e, err
	}
	return e, nil
}

// detach drops e from the element map and the position index without
// rebuilding prices.
func (b *Basket) detach(e *Element) bool {
	held, ok := b.elements[e.slot]
	if !ok || held != e {
		return false
	}
	delete(b.elements, e.slot)
	if slot, ok := b.positions[e.productID]; ok && slot == e.slot {
		delete(b.positions, e.productID)
	}
	return true
}

// Element returns the element holding p.
func (b *Basket) Element(p *product.Product) (*Element, error) {
	return b.ElementByProductID(p.ID)
}

// ElementByProductID returns the element holding the product id.
func (b *Basket) ElementByProductID(id string) (*Element, error) {
	if !b.HasProductID(id) {
		return nil, errors.Wrapf(ErrElementNotFound, "product %s", id)
	}
	return b.elements[b.positions[id]], nil
}

// ElementBySlot returns the element stored under slot.
func (b *Basket) ElementBySlot(slot int) (*Element, bool) {
	e, ok := b.elements[slot]
	return e, ok
}

// HasProduct reports whether p is in the basket.
func (b *Basket) HasProduct(p *product.Product) bool {
	return b.HasProductID(p.ID)
}

// HasProductID reports whether the position index knows the product id and
// an element actually sits at the indexed slot.
func (b *Basket) HasProductID(id string) bool {
	slot, ok := b.positions[id]
	if !ok {
		return false
	}
	_, ok = b.elements[slot]
	return ok
}

// Clean removes every element flagged for deletion.
func (b *Basket) Clean() error {
	removed := false
	for _, e := range b.Elements() {
		if e.IsDeleted() && b.detach(e) {
			removed = true
		}
	}
	if !removed {
		return nil
	}
	return b.BuildPrices()
}

// BuildPrices recomputes every element price with its provider. Elements
// without a product are dropped once the scan completes. A provider error
// stops the rebuild; elements visited before it keep their new price.
func (b *Basket) BuildPrices() error {
	var orphans []*Element
	for _, e := range b.Elements() {
		if e.product == nil {
			orphans = append(orphans, e)
			continue
		}

		provider, err := b.pool.Provider(e.product.Type)
		if err != nil {
			return errors.Wrapf(err, "price product %s", e.productID)
		}
		price, err := provider.CalculatePrice(b, e)
		if err != nil {
			return errors.Wrapf(err, "price product %s", e.productID)
		}
		e.SetPrice(price)
	}

	for _, e := range orphans {
		b.detach(e)
	}
	return nil
}

// IsValid reports whether the basket can be checked out. With elementsOnly
// only the elements are considered.
func (b *Basket) IsValid(elementsOnly bool) bool {
	if b.IsEmpty() {
		return false
	}
	for _, e := range b.elements {
		if !e.IsValid() {
			return false
		}
	}
	if elementsOnly {
		return true
	}

	if !b.paymentAddress.IsResolved() || !b.paymentMethod.IsResolved() {
		return false
	}
	method, ok := b.deliveryMethod.Get()
	if !ok {
		return false
	}
	if !b.deliveryAddress.IsResolved() && method.IsAddressRequired() {
		return false
	}
	return true
}

// IsAddable asks the provider of p whether p can be added. Extra arguments,
// typically the requested quantity, are passed to the provider as is.
func (b *Basket) IsAddable(p *product.Product, args ...any) (bool, error) {
	provider, err := b.pool.Provider(p.Type)
	if err != nil {
		return false, err
	}
	return provider.IsAddable(b, p, args...), nil
}

// HasRecurrentPayment reports whether any element is billed periodically.
func (b *Basket) HasRecurrentPayment() bool {
	for _, e := range b.elements {
		if e.IsRecurrent() {
			return true
		}
	}
	return false
}

// Subtotal returns the sum of element totals without delivery.
func (b *Basket) Subtotal(includeVat bool) decimal.Decimal {
	return b.elementsTotal(includeVat, nil)
}

func (b *Basket) elementsTotal(includeVat bool, recurrentOnly *bool) decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.elements {
		if recurrentOnly != nil && e.IsRecurrent() != *recurrentOnly {
			continue
		}
		total = total.Add(e.Total(includeVat))
	}
	return total
}

// Total returns element totals plus the delivery price rounded to cents.
// recurrentOnly filters elements: nil keeps all, true keeps recurring ones
// and false keeps the others. Delivery is added in every case.
func (b *Basket) Total(includeVat bool, recurrentOnly *bool) decimal.Decimal {
	total := b.elementsTotal(includeVat, recurrentOnly)
	total = total.Add(b.DeliveryPrice(includeVat))
	return total.Round(2)
}

// VatAmount returns element VAT plus delivery VAT.
func (b *Basket) VatAmount() decimal.Decimal {
	vat := decimal.Zero
	for _, e := range b.elements {
		vat = vat.Add(e.VatAmount())
	}
	if method, ok := b.deliveryMethod.Get(); ok {
		vat = vat.Add(method.VatAmount(b))
	}
	return vat
}

// DeliveryPrice returns the delivery cost, zero without a delivery method.
func (b *Basket) DeliveryPrice(includeVat bool) decimal.Decimal {
	method, ok := b.deliveryMethod.Get()
	if !ok {
		return decimal.Zero
	}
	return method.Total(b, includeVat)
}

// SetDeliveryMethod selects the delivery method; nil clears it.
func (b *Basket) SetDeliveryMethod(m DeliveryMethod) {
	if m == nil {
		b.deliveryMethod = Ref[DeliveryMethod]{}
		return
	}
	b.deliveryMethod = resolvedRef(m, m.Code())
}

func (b *Basket) DeliveryMethod() Ref[DeliveryMethod] { return b.deliveryMethod }

// SetDeliveryAddress selects the delivery address; nil clears it.
func (b *Basket) SetDeliveryAddress(a Address) {
	if a == nil {
		b.deliveryAddress = Ref[Address]{}
		return
	}
	b.deliveryAddress = resolvedRef(a, a.AddressID())
}

func (b *Basket) DeliveryAddress() Ref[Address] { return b.deliveryAddress }

// SetDeliveryAddressID stores only the durable address id.
func (b *Basket) SetDeliveryAddressID(id string) {
	b.deliveryAddress = unresolvedRef[Address](id)
}

// SetPaymentMethod selects the payment method; nil clears it.
func (b *Basket) SetPaymentMethod(m PaymentMethod) {
	if m == nil {
		b.paymentMethod = Ref[PaymentMethod]{}
		return
	}
	b.paymentMethod = resolvedRef(m, m.Code())
}

func (b *Basket) PaymentMethod() Ref[PaymentMethod] { return b.paymentMethod }

// SetPaymentAddress selects the billing address; nil clears it.
func (b *Basket) SetPaymentAddress(a Address) {
	if a == nil {
		b.paymentAddress = Ref[Address]{}
		return
	}
	b.paymentAddress = resolvedRef(a, a.AddressID())
}

func (b *Basket) PaymentAddress() Ref[Address] { return b.paymentAddress }

// SetPaymentAddressID stores only the durable address id.
func (b *Basket) SetPaymentAddressID(id string) {
	b.paymentAddress = unresolvedRef[Address](id)
}

// SetCustomer sets the basket owner; nil clears it.
func (b *Basket) SetCustomer(c Customer) {
	if c == nil {
		b.customer = Ref[Customer]{}
		return
	}
	b.customer = resolvedRef(c, c.CustomerID())
}

func (b *Basket) Customer() Ref[Customer] { return b.customer }

// SetCustomerID stores only the durable customer id.
func (b *Basket) SetCustomerID(id string) {
	b.customer = unresolvedRef[Customer](id)
}

// Option returns the option value or def when it is not set.
func (b *Basket) Option(name string, def any) any {
	if v, ok := b.options[name]; ok {
		return v
	}
	return def
}

// SetOption stores value after NormalizeOption.
func (b *Basket) SetOption(name string, value any) {
	b.options[name] = NormalizeOption(value)
}

// Options returns a copy of all options.
func (b *Basket) Options() map[string]any { return maps.Clone(b.options) }

// SetOptions replaces all options.
func (b *Basket) SetOptions(options map[string]any) {
	b.options = normalizeOptions(options)
	if b.options == nil {
		b.options = make(map[string]any)
	}
}

func (b *Basket) Locale() string { return b.locale }

func (b *Basket) SetLocale(locale string) { b.locale = locale }

func (b *Basket) Currency() string { return b.currency }

func (b *Basket) SetCurrency(currency string) { b.currency = currency }

// Reset clears delivery and payment selections. A full reset also clears
// elements, the slot counter, the customer and options.
func (b *Basket) Reset(full bool) {
	b.deliveryAddress = Ref[Address]{}
	b.deliveryMethod = Ref[DeliveryMethod]{}
	b.paymentAddress = Ref[Address]{}
	b.paymentMethod = Ref[PaymentMethod]{}

	if !full {
		return
	}
	b.elements = make(map[int]*Element)
	b.positions = make(map[string]int)
	b.nextSlot = 0
	b.customer = Ref[Customer]{}
	b.options = make(map[string]any)
}

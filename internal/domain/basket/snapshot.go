package basket

import (
	"maps"

	"github.com/shopspring/decimal"
)

// SnapshotVersion is the schema version written by Basket.Snapshot.
const SnapshotVersion = 1

// Snapshot is the durable form of a basket. Live collaborators are reduced
// to their identifiers. Nil fields are absent: Restore leaves the matching
// basket state untouched.
type Snapshot struct {
	Version            int
	Elements           []ElementSnapshot
	Positions          map[string]int
	DeliveryAddressID  *string
	PaymentAddressID   *string
	PaymentMethodCode  *string
	NextSlot           *int
	DeliveryMethodCode *string
	CustomerID         *string
	Options            map[string]any
	Locale             *string
	Currency           *string
}

// ElementSnapshot is the durable form of an element.
type ElementSnapshot struct {
	Slot        int
	ProductID   string
	ProductType string
	Quantity    int
	Price       decimal.Decimal
	VatRate     decimal.Decimal
	Deleted     bool
	Options     map[string]any
}

// Snapshot captures the basket state. Unset identifiers are left nil.
func (b *Basket) Snapshot() Snapshot {
	elements := make([]ElementSnapshot, 0, len(b.elements))
	for _, e := range b.Elements() {
		elements = append(elements, ElementSnapshot{
			Slot:        e.slot,
			ProductID:   e.productID,
			ProductType: e.productType,
			Quantity:    e.quantity,
			Price:       e.price,
			VatRate:     e.vatRate,
			Deleted:     e.deleted,
			Options:     maps.Clone(e.options),
		})
	}
	nextSlot := b.nextSlot

	return Snapshot{
		Version:            SnapshotVersion,
		Elements:           elements,
		Positions:          maps.Clone(b.positions),
		DeliveryAddressID:  optional(b.deliveryAddress.ID()),
		PaymentAddressID:   optional(b.paymentAddress.ID()),
		PaymentMethodCode:  optional(b.paymentMethod.ID()),
		NextSlot:           &nextSlot,
		DeliveryMethodCode: optional(b.deliveryMethod.ID()),
		CustomerID:         optional(b.customer.ID()),
		Options:            maps.Clone(b.options),
		Locale:             optional(b.locale),
		Currency:           optional(b.currency),
	}
}

// Restore loads the fields present in s. Restored elements carry only their
// product id; Service.Rehydrate resolves products, addresses, methods and
// the customer afterwards. Call Reset(true) first for a clean slate.
func (b *Basket) Restore(s Snapshot) {
	if s.Elements != nil {
		b.elements = make(map[int]*Element, len(s.Elements))
		for _, es := range s.Elements {
			b.elements[es.Slot] = &Element{
				productID:   es.ProductID,
				productType: es.ProductType,
				quantity:    es.Quantity,
				price:       es.Price,
				vatRate:     es.VatRate,
				slot:        es.Slot,
				deleted:     es.Deleted,
				options:     maps.Clone(es.Options),
			}
		}
	}
	if s.Positions != nil {
		b.positions = maps.Clone(s.Positions)
	}
	if s.NextSlot != nil {
		b.nextSlot = *s.NextSlot
	}
	if s.DeliveryAddressID != nil {
		b.deliveryAddress = unresolvedRef[Address](*s.DeliveryAddressID)
	}
	if s.DeliveryMethodCode != nil {
		b.deliveryMethod = unresolvedRef[DeliveryMethod](*s.DeliveryMethodCode)
	}
	if s.PaymentAddressID != nil {
		b.paymentAddress = unresolvedRef[Address](*s.PaymentAddressID)
	}
	if s.PaymentMethodCode != nil {
		b.paymentMethod = unresolvedRef[PaymentMethod](*s.PaymentMethodCode)
	}
	if s.CustomerID != nil {
		b.customer = unresolvedRef[Customer](*s.CustomerID)
	}
	if s.Options != nil {
		b.options = maps.Clone(s.Options)
	}
	if s.Locale != nil {
		b.locale = *s.Locale
	}
	if s.Currency != nil {
		b.currency = *s.Currency
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product types known to the default pricing providers.
const (
	TypeStandard     = "standard"
	TypeSubscription = "subscription"
)

// Product represents a catalog item that can be put into a basket.
type Product struct {
	ID   string
	Name string
	// Type selects the pricing provider responsible for the product.
	Type  string
	Price decimal.Decimal
	// VatRate is a percentage, e.g. 20 for 20%.
	VatRate decimal.Decimal
	// RecurrentPayment marks products billed on every period.
	RecurrentPayment bool
	// MaxPerBasket limits the quantity of the product in a single basket.
	// Zero means unlimited.
	MaxPerBasket int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

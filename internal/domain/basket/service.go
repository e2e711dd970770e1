package basket

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/oolio-kart-basket/internal/domain/customer"
	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

// Sentinel errors returned by Service.
var (
	ErrNotFound        = errors.New("basket not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrUnknownMethod   = errors.New("unknown method")
	ErrForeignAddress  = errors.New("address belongs to another customer")
)

// NotAddableError indicates that the product's provider vetoed the addition.
type NotAddableError struct {
	ProductID string
	Quantity  int
}

func (e *NotAddableError) Error() string {
	return fmt.Sprintf("product %s cannot be added with quantity %d", e.ProductID, e.Quantity)
}

// Store persists encoded basket snapshots by basket id. Load returns
// ErrNotFound for unknown ids.
type Store interface {
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
}

// DeliveryMethods resolves delivery methods by code.
type DeliveryMethods interface {
	Lookup(code string) (DeliveryMethod, error)
}

// PaymentMethods resolves payment methods by code.
type PaymentMethods interface {
	Lookup(code string) (PaymentMethod, error)
}

// Option configures a Service.
type Option func(s *Service)

// WithCache puts a session cache in front of the durable store.
func WithCache(cache Store) Option {
	return func(s *Service) { s.cache = cache }
}

// WithDefaults sets the currency and locale of newly created baskets.
func WithDefaults(currency, locale string) Option {
	return func(s *Service) {
		s.currency = currency
		s.locale = locale
	}
}

// WithTracerProvider sets the tracer provider used for basket spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for basket metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service loads baskets from storage, applies mutations and saves them
// back. Calls on the same basket id are serialised.
type Service struct {
	pool       *Pool
	products   product.Repository
	customers  customer.Repository
	deliveries DeliveryMethods
	payments   PaymentMethods
	store      Store
	cache      Store

	currency string
	locale   string

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	operations     metric.Int64Counter

	locks *keyedMutex
}

// NewService creates a basket Service with the required domain dependencies.
func NewService(
	pool *Pool,
	products product.Repository,
	customers customer.Repository,
	deliveries DeliveryMethods,
	payments PaymentMethods,
	store Store,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		pool:           pool,
		products:       products,
		customers:      customers,
		deliveries:     deliveries,
		payments:       payments,
		store:          store,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		locks:          newKeyedMutex(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer("kart.basket")
	counter, err := s.meterProvider.Meter("kart.basket").Int64Counter("basket.operations",
		metric.WithDescription("Number of completed basket operations"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create operations counter")
	}
	s.operations = counter

	return s, nil
}

// Create stores a new empty basket and returns its id.
func (s *Service) Create(ctx context.Context) (string, *Basket, error) {
	id := uuid.New().String()
	b := s.newBasket()
	if err := s.save(ctx, id, b); err != nil {
		return "", nil, err
	}
	s.operations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "create")))
	return id, b, nil
}

// Get loads a basket, rehydrates its references and rebuilds prices.
func (s *Service) Get(ctx context.Context, id string) (*Basket, error) {
	ctx, span := s.tracer.Start(ctx, "basket.get", trace.WithAttributes(attribute.String("basket.id", id)))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.load(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return b, nil
}

// AddProduct adds quantity of the product to the basket. An existing
// element for the product has its quantity increased.
func (s *Service) AddProduct(ctx context.Context, id, productID string, quantity int) (*Basket, error) {
	return s.update(ctx, "add_product", id, func(ctx context.Context, b *Basket) error {
		if quantity <= 0 {
			return ErrInvalidQuantity
		}
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return errors.Wrap(err, "get product")
		}

		ok, err := b.IsAddable(p, quantity)
		if err != nil {
			return errors.Wrap(err, "check addable")
		}
		if !ok {
			return &NotAddableError{ProductID: p.ID, Quantity: quantity}
		}

		if e, err := b.ElementByProductID(p.ID); err == nil {
			e.SetProduct(p)
			e.SetQuantity(e.Quantity() + quantity)
			return b.BuildPrices()
		}
		return b.AddElement(NewElement(p, quantity))
	})
}

// UpdateQuantity sets the quantity of a product already in the basket. A
// non-positive quantity removes the element.
func (s *Service) UpdateQuantity(ctx context.Context, id, productID string, quantity int) (*Basket, error) {
	return s.update(ctx, "update_quantity", id, func(_ context.Context, b *Basket) error {
		e, err := b.ElementByProductID(productID)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			_, err := b.RemoveElement(e)
			return err
		}

		if delta := quantity - e.Quantity(); delta > 0 && e.Product() != nil {
			ok, err := b.IsAddable(e.Product(), delta)
			if err != nil {
				return errors.Wrap(err, "check addable")
			}
			if !ok {
				return &NotAddableError{ProductID: productID, Quantity: quantity}
			}
		}
		e.SetQuantity(quantity)
		return b.BuildPrices()
	})
}

// RemoveProduct removes the element holding the product.
func (s *Service) RemoveProduct(ctx context.Context, id, productID string) (*Basket, error) {
	return s.update(ctx, "remove_product", id, func(_ context.Context, b *Basket) error {
		e, err := b.ElementByProductID(productID)
		if err != nil {
			return err
		}
		_, err = b.RemoveElement(e)
		return err
	})
}

// SetDelivery selects the delivery method and address. An empty code clears
// both; an empty address id clears the address only.
func (s *Service) SetDelivery(ctx context.Context, id, code, addressID string) (*Basket, error) {
	return s.update(ctx, "set_delivery", id, func(ctx context.Context, b *Basket) error {
		if code == "" {
			b.SetDeliveryMethod(nil)
			b.SetDeliveryAddress(nil)
			return nil
		}
		m, err := s.deliveries.Lookup(code)
		if err != nil {
			return err
		}
		var addr Address
		if addressID != "" {
			a, err := s.ownedAddress(ctx, b, addressID)
			if err != nil {
				return err
			}
			addr = a
		}
		b.SetDeliveryMethod(m)
		b.SetDeliveryAddress(addr)
		return nil
	})
}

// SetPayment selects the payment method and billing address. An empty code
// clears both.
func (s *Service) SetPayment(ctx context.Context, id, code, addressID string) (*Basket, error) {
	return s.update(ctx, "set_payment", id, func(ctx context.Context, b *Basket) error {
		if code == "" {
			b.SetPaymentMethod(nil)
			b.SetPaymentAddress(nil)
			return nil
		}
		m, err := s.payments.Lookup(code)
		if err != nil {
			return err
		}
		var addr Address
		if addressID != "" {
			a, err := s.ownedAddress(ctx, b, addressID)
			if err != nil {
				return err
			}
			addr = a
		}
		b.SetPaymentMethod(m)
		b.SetPaymentAddress(addr)
		return nil
	})
}

// SetCustomer assigns the basket owner. An empty id clears it.
func (s *Service) SetCustomer(ctx context.Context, id, customerID string) (*Basket, error) {
	return s.update(ctx, "set_customer", id, func(ctx context.Context, b *Basket) error {
		if customerID == "" {
			b.SetCustomer(nil)
			return nil
		}
		c, err := s.customers.GetByID(ctx, customerID)
		if err != nil {
			return errors.Wrap(err, "get customer")
		}
		b.SetCustomer(c)
		return nil
	})
}

// SetOption stores an extension value on the basket.
func (s *Service) SetOption(ctx context.Context, id, name string, value any) (*Basket, error) {
	return s.update(ctx, "set_option", id, func(_ context.Context, b *Basket) error {
		b.SetOption(name, value)
		return nil
	})
}

// Reset clears checkout selections, or everything when full is set.
func (s *Service) Reset(ctx context.Context, id string, full bool) (*Basket, error) {
	return s.update(ctx, "reset", id, func(_ context.Context, b *Basket) error {
		b.Reset(full)
		return nil
	})
}

// Delete removes the basket from the cache and the durable store.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			return errors.Wrap(err, "delete cached basket")
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete basket")
	}
	s.operations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "delete")))
	return nil
}

// Rehydrate resolves products, addresses, the customer and the checkout
// methods from the identifiers kept by a restored basket. Products and
// references that no longer exist stay unresolved; orphaned elements are
// dropped by the next price rebuild.
func (s *Service) Rehydrate(ctx context.Context, b *Basket) error {
	lg := zctx.From(ctx)

	var missing []string
	for _, e := range b.Elements() {
		if e.Product() == nil {
			missing = append(missing, e.ProductID())
		}
	}

	var (
		products        []product.Product
		deliveryAddress *customer.Address
		paymentAddress  *customer.Address
		owner           *customer.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	if len(missing) > 0 {
		g.Go(func() error {
			ps, err := s.products.GetByIDs(gctx, missing)
			if err != nil {
				return errors.Wrap(err, "get products")
			}
			products = ps
			return nil
		})
	}
	if ref := b.DeliveryAddress(); !ref.IsResolved() && ref.ID() != "" {
		g.Go(func() (err error) {
			deliveryAddress, err = s.findAddress(gctx, ref.ID())
			return err
		})
	}
	if ref := b.PaymentAddress(); !ref.IsResolved() && ref.ID() != "" {
		g.Go(func() (err error) {
			paymentAddress, err = s.findAddress(gctx, ref.ID())
			return err
		})
	}
	if ref := b.Customer(); !ref.IsResolved() && ref.ID() != "" {
		g.Go(func() error {
			c, err := s.customers.GetByID(gctx, ref.ID())
			switch {
			case errors.Is(err, customer.ErrNotFound):
				lg.Warn("Basket customer not found", zap.String("customer_id", ref.ID()))
				return nil
			case err != nil:
				return errors.Wrap(err, "get customer")
			}
			owner = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "rehydrate basket")
	}

	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, e := range b.Elements() {
		if e.Product() != nil {
			continue
		}
		if p, ok := byID[e.ProductID()]; ok {
			e.SetProduct(&p)
		} else {
			lg.Warn("Basket product no longer exists", zap.String("product_id", e.ProductID()))
		}
	}

	if deliveryAddress != nil {
		b.SetDeliveryAddress(deliveryAddress)
	}
	if paymentAddress != nil {
		b.SetPaymentAddress(paymentAddress)
	}
	if owner != nil {
		b.SetCustomer(owner)
	}

	if ref := b.DeliveryMethod(); !ref.IsResolved() && ref.ID() != "" {
		m, err := s.deliveries.Lookup(ref.ID())
		if err != nil {
			if !errors.Is(err, ErrUnknownMethod) {
				return errors.Wrap(err, "lookup delivery method")
			}
			lg.Warn("Dropping unknown delivery method", zap.String("code", ref.ID()))
		}
		b.SetDeliveryMethod(m)
	}
	if ref := b.PaymentMethod(); !ref.IsResolved() && ref.ID() != "" {
		m, err := s.payments.Lookup(ref.ID())
		if err != nil {
			if !errors.Is(err, ErrUnknownMethod) {
				return errors.Wrap(err, "lookup payment method")
			}
			lg.Warn("Dropping unknown payment method", zap.String("code", ref.ID()))
		}
		b.SetPaymentMethod(m)
	}
	return nil
}

func (s *Service) findAddress(ctx context.Context, id string) (*customer.Address, error) {
	a, err := s.customers.GetAddress(ctx, id)
	switch {
	case errors.Is(err, customer.ErrAddressNotFound):
		zctx.From(ctx).Warn("Basket address not found", zap.String("address_id", id))
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "get address")
	}
	return a, nil
}

// ownedAddress loads an address and checks it belongs to the basket owner,
// when the basket has one.
func (s *Service) ownedAddress(ctx context.Context, b *Basket, id string) (*customer.Address, error) {
	a, err := s.customers.GetAddress(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get address")
	}
	if owner := b.Customer().ID(); owner != "" && a.CustomerID != owner {
		return nil, ErrForeignAddress
	}
	return a, nil
}

func (s *Service) newBasket() *Basket {
	b := New(s.pool)
	b.SetCurrency(s.currency)
	b.SetLocale(s.locale)
	return b
}

// update runs fn on the stored basket under the basket lock and saves the
// result when fn succeeds.
func (s *Service) update(ctx context.Context, op, id string, fn func(ctx context.Context, b *Basket) error) (*Basket, error) {
	ctx, span := s.tracer.Start(ctx, "basket."+op, trace.WithAttributes(attribute.String("basket.id", id)))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.load(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := fn(ctx, b); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.save(ctx, id, b); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.operations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	zctx.From(ctx).Debug("Basket updated",
		zap.String("basket_id", id),
		zap.String("op", op),
		zap.Int("elements", b.CountElements()),
	)
	return b, nil
}

func (s *Service) load(ctx context.Context, id string) (*Basket, error) {
	data, err := s.loadData(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, errors.Wrapf(err, "basket %s", id)
	}

	b := s.newBasket()
	b.Restore(snap)
	if err := s.Rehydrate(ctx, b); err != nil {
		return nil, err
	}
	if err := b.BuildPrices(); err != nil {
		return nil, errors.Wrap(err, "build prices")
	}
	return b, nil
}

func (s *Service) loadData(ctx context.Context, id string) ([]byte, error) {
	if s.cache != nil {
		data, err := s.cache.Load(ctx, id)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			zctx.From(ctx).Warn("Basket cache read failed", zap.String("basket_id", id), zap.Error(err))
		}
	}

	data, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load basket")
	}
	return data, nil
}

func (s *Service) save(ctx context.Context, id string, b *Basket) error {
	data, err := EncodeSnapshot(b.Snapshot())
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, id, data); err != nil {
		return errors.Wrap(err, "save basket")
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Save(ctx, id, data); err != nil {
		lg := zctx.From(ctx)
		lg.Warn("Basket cache write failed", zap.String("basket_id", id), zap.Error(err))
		if err := s.cache.Delete(ctx, id); err != nil {
			lg.Error("Basket cache invalidation failed", zap.String("basket_id", id), zap.Error(err))
		}
	}
	return nil
}

// Package payment provides the payment methods a basket can select.
package payment

import (
	"github.com/go-faster/errors"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
)

var _ basket.PaymentMethods = (*Registry)(nil)

// Method is a payment method. The basket only needs its code; execution
// belongs to the checkout flow.
type Method struct {
	code string
	name string
}

// NewMethod creates a payment method.
func NewMethod(code, name string) Method {
	return Method{code: code, name: name}
}

func (m Method) Code() string { return m.code }

func (m Method) Name() string { return m.name }

// Registry resolves payment methods by code.
type Registry struct {
	methods map[string]Method
}

// NewRegistry creates a registry holding the given methods.
func NewRegistry(methods ...Method) *Registry {
	r := &Registry{methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		r.methods[m.code] = m
	}
	return r
}

// Lookup returns the method registered under code.
func (r *Registry) Lookup(code string) (basket.PaymentMethod, error) {
	m, ok := r.methods[code]
	if !ok {
		return nil, errors.Wrapf(basket.ErrUnknownMethod, "payment %q", code)
	}
	return m, nil
}

package delivery

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
	"github.com/xenking/oolio-kart-basket/internal/domain/pricing"
	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func basketWorth(t *testing.T, net string) *basket.Basket {
	t.Helper()
	b := basket.New(pricing.NewPool())
	if net == "0" {
		return b
	}
	p := &product.Product{ID: "p", Type: product.TypeStandard, Price: d(net)}
	require.NoError(t, b.AddElement(basket.NewElement(p, 1)))
	return b
}

func TestFlatRate(t *testing.T) {
	m := NewFlatRate("standard", d("5.00"), d("20"), d("50"))

	tests := []struct {
		name      string
		net       string
		wantNet   string
		wantGross string
		wantVat   string
	}{
		{name: "empty basket", net: "0", wantNet: "5", wantGross: "6", wantVat: "1"},
		{name: "below threshold", net: "49.99", wantNet: "5", wantGross: "6", wantVat: "1"},
		{name: "at threshold", net: "50", wantNet: "0", wantGross: "0", wantVat: "0"},
		{name: "above threshold", net: "120", wantNet: "0", wantGross: "0", wantVat: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := basketWorth(t, tt.net)
			assert.Equal(t, tt.wantNet, m.Total(b, false).String())
			assert.Equal(t, tt.wantGross, m.Total(b, true).String())
			assert.Equal(t, tt.wantVat, m.VatAmount(b).String())
		})
	}
	assert.True(t, m.IsAddressRequired())
}

func TestFlatRate_NoThreshold(t *testing.T) {
	m := NewFlatRate("standard", d("3"), decimal.Zero, decimal.Zero)
	assert.Equal(t, "3", m.Total(basketWorth(t, "1000"), true).String())
}

func TestPickup(t *testing.T) {
	m := NewPickup("pickup")
	b := basketWorth(t, "10")

	assert.Equal(t, "pickup", m.Code())
	assert.False(t, m.IsAddressRequired())
	assert.True(t, m.Total(b, true).IsZero())
	assert.True(t, m.VatAmount(b).IsZero())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewPickup("pickup"), NewFlatRate("standard", d("1"), d("0"), d("0")))

	m, err := r.Lookup("standard")
	require.NoError(t, err)
	assert.Equal(t, "standard", m.Code())

	_, err = r.Lookup("drone")
	require.ErrorIs(t, err, basket.ErrUnknownMethod)
}

func TestBasketDeliveryPrice(t *testing.T) {
	b := basketWorth(t, "10")
	b.SetDeliveryMethod(NewFlatRate("standard", d("4.90"), d("20"), d("50")))

	assert.Equal(t, "4.9", b.DeliveryPrice(false).String())
	assert.Equal(t, "14.9", b.Total(false, nil).String())
	assert.Equal(t, "15.88", b.Total(true, nil).String())
}

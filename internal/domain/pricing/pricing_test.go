package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

func TestStandard_IsAddable(t *testing.T) {
	limited := &product.Product{ID: "waffle", Type: product.TypeStandard, Price: decimal.NewFromInt(6), MaxPerBasket: 3}
	unlimited := &product.Product{ID: "cake", Type: product.TypeStandard, Price: decimal.NewFromInt(5)}

	tests := []struct {
		name     string
		inBasket int
		p        *product.Product
		args     []any
		want     bool
	}{
		{name: "default quantity", p: limited, want: true},
		{name: "within limit", p: limited, args: []any{3}, want: true},
		{name: "over limit", p: limited, args: []any{4}, want: false},
		{name: "limit counts basket content", p: limited, inBasket: 2, args: []any{2}, want: false},
		{name: "fills limit", p: limited, inBasket: 2, args: []any{1}, want: true},
		{name: "unlimited", p: unlimited, inBasket: 100, args: []any{1000}, want: true},
		{name: "non positive", p: unlimited, args: []any{0}, want: false},
		{name: "non int argument", p: limited, args: []any{"many"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := basket.New(NewPool())
			if tt.inBasket > 0 {
				require.NoError(t, b.AddElement(basket.NewElement(tt.p, tt.inBasket)))
			}
			ok, err := b.IsAddable(tt.p, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSubscription_IsAddable(t *testing.T) {
	club := &product.Product{ID: "club", Type: product.TypeSubscription, Price: decimal.NewFromInt(20), RecurrentPayment: true}
	b := basket.New(NewPool())

	ok, err := b.IsAddable(club)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.IsAddable(club, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.AddElement(basket.NewElement(club, 1)))
	ok, err = b.IsAddable(club, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCalculatePrice(t *testing.T) {
	b := basket.New(NewPool())
	cake := &product.Product{ID: "cake", Type: product.TypeStandard, Price: decimal.RequireFromString("5.25")}
	club := &product.Product{ID: "club", Type: product.TypeSubscription, Price: decimal.RequireFromString("19.90")}

	require.NoError(t, b.AddElement(basket.NewElement(cake, 2)))
	require.NoError(t, b.AddElement(basket.NewElement(club, 1)))

	assert.Equal(t, "30.4", b.Total(false, nil).String())
}

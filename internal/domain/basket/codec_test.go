package basket

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSnapshot(t *testing.T) {
	next := 2
	customer := "c-1"
	s := Snapshot{
		Version: SnapshotVersion,
		Elements: []ElementSnapshot{
			{Slot: 1, ProductID: "A", ProductType: "standard", Quantity: 2, Price: d("5.50"), VatRate: d("20")},
		},
		Positions:  map[string]int{"A": 1},
		NextSlot:   &next,
		CustomerID: &customer,
		Options:    map[string]any{"gift": true, "tags": []any{"x", 1}},
	}

	data, err := EncodeSnapshot(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"version": 1,
		"basketElements": [
			{"slot": 1, "productId": "A", "productType": "standard", "quantity": 2,
			 "price": "5.5", "vatRate": "20", "delete": false}
		],
		"positions": {"A": 1},
		"deliveryAddressId": null,
		"paymentAddressId": null,
		"paymentMethodCode": null,
		"cptElement": 2,
		"deliveryMethodCode": null,
		"customerId": "c-1",
		"options": {"gift": true, "tags": ["x", 1]},
		"locale": null,
		"currency": null
	}`, string(data))
}

func TestEncodeSnapshot_UnsupportedOption(t *testing.T) {
	_, err := EncodeSnapshot(Snapshot{Options: map[string]any{"ch": make(chan int)}})
	require.Error(t, err)
}

func TestEncodeSnapshot_OptionNumbers(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "integral float", value: 2.0, want: `"v":2.0`},
		{name: "negative integral float", value: -40.0, want: `"v":-40.0`},
		{name: "fraction", value: 0.5, want: `"v":0.5`},
		{name: "int", value: 3, want: `"v":3`},
		{name: "int64", value: int64(4), want: `"v":4`},
		{name: "int32", value: int32(5), want: `"v":5`},
		{name: "float32", value: float32(0.25), want: `"v":0.25`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeSnapshot(Snapshot{Options: map[string]any{"v": tt.value}})
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)

			s, err := DecodeSnapshot(data)
			require.NoError(t, err)
			assert.Equal(t, NormalizeOption(tt.value), s.Options["v"])
		})
	}
}

func TestEncodeSnapshot_NonFiniteOption(t *testing.T) {
	_, err := EncodeSnapshot(Snapshot{Options: map[string]any{"v": math.Inf(1)}})
	require.Error(t, err)
}

func TestNormalizeOption(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{name: "int64", value: int64(5), want: 5},
		{name: "uint8", value: uint8(6), want: 6},
		{name: "huge uint64", value: uint64(math.MaxUint64), want: float64(math.MaxUint64)},
		{name: "float32", value: float32(0.5), want: 0.5},
		{name: "decimal", value: d("10.50"), want: "10.5"},
		{name: "string", value: "x", want: "x"},
		{name: "slice", value: []any{int16(1), "y"}, want: []any{1, "y"}},
		{name: "map", value: map[string]any{"n": uint32(2)}, want: map[string]any{"n": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOption(tt.value))
		})
	}
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, s Snapshot)
	}{
		{
			name:  "absent fields stay nil",
			input: `{"version": 1}`,
			check: func(t *testing.T, s Snapshot) {
				assert.Nil(t, s.Elements)
				assert.Nil(t, s.Positions)
				assert.Nil(t, s.NextSlot)
				assert.Nil(t, s.CustomerID)
				assert.Nil(t, s.Options)
			},
		},
		{
			name:  "null fields stay nil",
			input: `{"basketElements": null, "positions": null, "cptElement": null, "customerId": null, "options": null}`,
			check: func(t *testing.T, s Snapshot) {
				assert.Nil(t, s.Elements)
				assert.Nil(t, s.Positions)
				assert.Nil(t, s.NextSlot)
				assert.Nil(t, s.CustomerID)
				assert.Nil(t, s.Options)
			},
		},
		{
			name:  "unknown fields skipped",
			input: `{"legacy": {"a": [1, 2]}, "paymentMethodCode": "card"}`,
			check: func(t *testing.T, s Snapshot) {
				require.NotNil(t, s.PaymentMethodCode)
				assert.Equal(t, "card", *s.PaymentMethodCode)
			},
		},
		{
			name:  "option numbers",
			input: `{"options": {"count": 3, "ratio": 0.5, "nested": {"ok": true}}}`,
			check: func(t *testing.T, s Snapshot) {
				assert.Equal(t, 3, s.Options["count"])
				assert.Equal(t, 0.5, s.Options["ratio"])
				assert.Equal(t, map[string]any{"ok": true}, s.Options["nested"])
			},
		},
		{
			name:  "elements",
			input: `{"basketElements": [{"slot": 4, "productId": "B", "quantity": 1, "price": "0.10", "vatRate": "5.5", "delete": true}]}`,
			check: func(t *testing.T, s Snapshot) {
				require.Len(t, s.Elements, 1)
				es := s.Elements[0]
				assert.Equal(t, 4, es.Slot)
				assert.Equal(t, "B", es.ProductID)
				assert.True(t, d("0.10").Equal(es.Price))
				assert.True(t, d("5.5").Equal(es.VatRate))
				assert.True(t, es.Deleted)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSnapshot([]byte(tt.input))
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"version": 2}`))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeSnapshot([]byte(`{"basketElements": [{"price": "abc"}]}`))
	require.Error(t, err)

	_, err = DecodeSnapshot([]byte(`[]`))
	require.Error(t, err)
}

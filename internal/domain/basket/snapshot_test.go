package basket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	src := newTestBasket()
	a := addProduct(t, src, newProduct("A", "10.00"), 1)
	gone := addProduct(t, src, newProduct("B", "5.00"), 2)
	addProduct(t, src, newProduct("C", "1.00"), 4)
	_, err := src.RemoveElement(gone)
	require.NoError(t, err)
	a.SetOption("engraving", "hi")
	fillSelections(src)
	src.SetLocale("fr_FR")
	src.SetCurrency("EUR")

	data, err := EncodeSnapshot(src.Snapshot())
	require.NoError(t, err)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)

	dst := newTestBasket()
	dst.Restore(snap)

	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Equal(t, src.CountElements(), dst.CountElements())
	assert.Equal(t, src.Positions(), dst.Positions())
	assert.Equal(t, src.NextSlot(), dst.NextSlot())
	assert.Equal(t, src.DeliveryMethod().ID(), dst.DeliveryMethod().ID())
	assert.Equal(t, src.DeliveryAddress().ID(), dst.DeliveryAddress().ID())
	assert.Equal(t, src.PaymentMethod().ID(), dst.PaymentMethod().ID())
	assert.Equal(t, src.PaymentAddress().ID(), dst.PaymentAddress().ID())
	assert.Equal(t, src.Customer().ID(), dst.Customer().ID())
	assert.Equal(t, src.Options(), dst.Options())
	assert.Equal(t, "fr_FR", dst.Locale())
	assert.Equal(t, "EUR", dst.Currency())

	// Refs come back unresolved and elements without products.
	assert.False(t, dst.DeliveryMethod().IsResolved())
	restored, ok := dst.ElementBySlot(0)
	require.True(t, ok)
	assert.Nil(t, restored.Product())
	assert.Equal(t, "A", restored.ProductID())
	assert.Equal(t, "standard", restored.ProductType())
	assert.True(t, d("10.00").Equal(restored.Price()))
	assert.Equal(t, "hi", restored.Option("engraving", nil))

	_, ok = dst.ElementBySlot(1)
	assert.False(t, ok, "gap left by removal is kept")

	// Restoring then snapshotting yields the same encoding.
	again, err := EncodeSnapshot(dst.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestRestore_KeepsAbsentFields(t *testing.T) {
	b := newTestBasket()
	addProduct(t, b, newProduct("A", "1"), 1)
	fillSelections(b)
	b.SetLocale("en_US")

	code := "invoice"
	b.Restore(Snapshot{PaymentMethodCode: &code})

	assert.Equal(t, "invoice", b.PaymentMethod().ID())
	assert.False(t, b.PaymentMethod().IsResolved())
	assert.Equal(t, 1, b.CountElements())
	assert.Equal(t, 1, b.NextSlot())
	assert.Equal(t, "std", b.DeliveryMethod().ID())
	assert.True(t, b.DeliveryMethod().IsResolved())
	assert.Equal(t, "c-1", b.Customer().ID())
	assert.Equal(t, "en_US", b.Locale())
	assert.Equal(t, true, b.Option("gift", false))
}

func TestSnapshot_EmptyBasket(t *testing.T) {
	s := newTestBasket().Snapshot()

	assert.Empty(t, s.Elements)
	assert.NotNil(t, s.Elements)
	assert.Nil(t, s.DeliveryMethodCode)
	assert.Nil(t, s.CustomerID)
	require.NotNil(t, s.NextSlot)
	assert.Zero(t, *s.NextSlot)
}

func TestSnapshot_RoundTripOptionKinds(t *testing.T) {
	src := newTestBasket()
	src.SetOption("ratio", 2.0)
	src.SetOption("share", 0.25)
	src.SetOption("big", int64(5))
	src.SetOption("small", int32(-3))
	src.SetOption("count", uint(7))
	src.SetOption("weight", float32(1.5))
	src.SetOption("fee", d("1.20"))
	src.SetOption("list", []any{1.0, int8(2), "x"})
	src.SetOption("nested", map[string]any{"limit": uint16(9), "scale": 3.0})

	data, err := EncodeSnapshot(src.Snapshot())
	require.NoError(t, err)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)

	dst := newTestBasket()
	dst.Restore(snap)

	assert.Equal(t, src.Options(), dst.Options())
	assert.Equal(t, 2.0, dst.Option("ratio", nil))
	assert.Equal(t, 5, dst.Option("big", nil))
	assert.Equal(t, 1.5, dst.Option("weight", nil))
	assert.Equal(t, "1.2", dst.Option("fee", nil))
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "CONFIRMED", "SHIPPED", "DELIVERED", "CANCELLED"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, OrderStatus(s), st)
	}

	for _, s := range []string{"", "pending", "REFUNDED", "confirmed "} {
		_, err := ParseStatus(s)
		require.ErrorIs(t, err, ErrInvalidStatus, "input %q", s)
	}
}

func TestNewOrderItemSnapshotsPriceAndSubtotal(t *testing.T) {
	snap := &ProductSnapshot{
		ID:         "prod-a",
		Name:       "Widget",
		PriceCents: 10000,
		StoreID:    "store-1",
	}

	it := NewOrderItem(snap, 3)
	assert.Equal(t, "prod-a", it.ProductID)
	assert.Equal(t, "Widget", it.ProductName)
	assert.Equal(t, int64(3), it.Quantity)
	assert.Equal(t, int64(10000), it.PriceCents)
	assert.Equal(t, int64(30000), it.Subtotal)
	assert.Equal(t, "store-1", it.StoreID)
}

func TestComputeTotal(t *testing.T) {
	o := &Order{Items: []OrderItem{
		{PriceCents: 10000, Quantity: 2},
		{PriceCents: 5000, Quantity: 1},
	}}
	assert.Equal(t, int64(25000), o.ComputeTotal())

	empty := &Order{}
	assert.Equal(t, int64(0), empty.ComputeTotal())
}

func TestProductAvailable(t *testing.T) {
	assert.True(t, (&ProductSnapshot{Active: true}).Available())
	assert.False(t, (&ProductSnapshot{Active: false}).Available())
	assert.False(t, (&ProductSnapshot{Active: true, Deleted: true}).Available())
}

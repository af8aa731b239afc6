package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusSpending, OrderStatusApprove, true},
		{OrderStatusSpending, OrderStatusReject, true},
		{OrderStatusApprove, OrderStatusShipping, true},
		{OrderStatusApprove, OrderStatusCancel, true},
		{OrderStatusShipping, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusSpending, false},
		{OrderStatusSpending, OrderStatusShipped, false},
		{OrderStatusReject, OrderStatusApprove, false},
		{OrderStatusCancel, OrderStatusApprove, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus("approve")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusApprove, st)

	st, ok = ParseOrderStatus(" 4 ")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusShipping, st)

	_, ok = ParseOrderStatus("7")
	assert.False(t, ok)
	_, ok = ParseOrderStatus("Delivered")
	assert.False(t, ok)

	assert.Equal(t, "Unknown", OrderStatus(0).String())
}

func TestOrderDetailRevenue(t *testing.T) {
	d := OrderDetail{UnitPrice: decimal.NewFromInt(10), Quantity: 2, Discount: 0.1}
	assert.True(t, decimal.NewFromInt(18).Equal(d.Revenue()), d.Revenue().String())

	d = OrderDetail{UnitPrice: decimal.RequireFromString("9.99"), Quantity: 3}
	assert.True(t, decimal.RequireFromString("29.97").Equal(d.Revenue()), d.Revenue().String())
}

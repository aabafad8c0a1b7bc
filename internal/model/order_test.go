package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from     OrderStatus
		to       OrderStatus
		expected bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())

	assert.True(t, OrderStatusPending.Cancellable())
	assert.True(t, OrderStatusProcessing.Cancellable())
	assert.False(t, OrderStatusShipped.Cancellable())
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusShipped, status)

	_, ok = ParseOrderStatus("return-requested")
	assert.False(t, ok)
}

func TestParseReturnReason(t *testing.T) {
	for _, reason := range []string{"defective", "wrong-item", "damaged", "not-as-expected", "other"} {
		_, ok := ParseReturnReason(reason)
		assert.True(t, ok, reason)
	}

	_, ok := ParseReturnReason("changed-my-mind")
	assert.False(t, ok)
}

func TestOrderLineSnapshot_LineTotal(t *testing.T) {
	line := OrderLineSnapshot{Price: decimal.RequireFromString("19.99"), Quantity: 3}
	assert.Equal(t, "59.97", line.LineTotal().String())
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "10.01", RoundMoney(decimal.RequireFromString("10.005")).String())
	assert.Equal(t, int64(180000), MinorUnits(decimal.NewFromInt(1800)))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
}

func TestDomainError_Is(t *testing.T) {
	err := ErrBelowMinimum.WithMessage("Minimum purchase of %s required", "500")

	assert.True(t, errors.Is(err, ErrBelowMinimum))
	assert.False(t, errors.Is(err, ErrLimitReached))
	assert.Equal(t, "Minimum purchase of 500 required", err.Error())

	wrapped := fmt.Errorf("checkout: %w", ErrInvalidShipping.WithFields("city", "phone"))
	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, []string{"city", "phone"}, de.Fields)
	assert.Equal(t, KindValidation, de.Kind)
}

func TestPaymentMethodType(t *testing.T) {
	assert.True(t, PaymentCOD.Valid())
	assert.False(t, PaymentCOD.RequiresGateway())
	assert.True(t, PaymentCard.RequiresGateway())
	assert.True(t, PaymentUPI.RequiresGateway())
	assert.False(t, PaymentMethodType("cheque").Valid())
	assert.False(t, PaymentMethodType("cheque").RequiresGateway())
}

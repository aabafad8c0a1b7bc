// Package checkout turns a cart and the checkout form into a priced order
// request.
package checkout

import (
	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/validation"

	"github.com/shopspring/decimal"
)

// Pricing holds the shipping rule applied to every order.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// AppliedDiscount is a coupon that has already been validated for the cart.
type AppliedDiscount struct {
	Code   string
	Amount decimal.Decimal
}

// Assembler builds OrderCreateRequests. It holds no state besides its
// configuration and is safe for concurrent use.
type Assembler struct {
	pricing   Pricing
	validator *validation.Validator
}

// NewAssembler creates a new checkout assembler.
func NewAssembler(pricing Pricing, validator *validation.Validator) *Assembler {
	return &Assembler{pricing: pricing, validator: validator}
}

// Assemble checks the cart and shipping form and prices the order.
// The returned request carries a copy of every cart line.
func (a *Assembler) Assemble(
	userID string,
	c *cart.Cart,
	shipping model.ShippingAddress,
	payment model.PaymentSelection,
	discount *AppliedDiscount,
) (*model.OrderCreateRequest, error) {
	if c == nil || c.IsEmpty() {
		return nil, model.ErrEmptyCart
	}

	fields, err := a.validator.Fields(shipping)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, model.ErrInvalidShipping.WithFields(fields...)
	}

	amount := decimal.Zero
	var voucher *string
	if discount != nil {
		amount = discount.Amount
		code := discount.Code
		voucher = &code
	}

	return &model.OrderCreateRequest{
		UserID:        userID,
		Items:         c.Snapshot(),
		Shipping:      shipping,
		PaymentMethod: payment.Method,
		PaymentStatus: model.PaymentStatusPending,
		Summary:       a.Summarize(c.Subtotal(), amount),
		VoucherCode:   voucher,
	}, nil
}

// Summarize prices an order: shipping is free strictly above the threshold,
// and the total never drops below zero.
func (a *Assembler) Summarize(subtotal, discount decimal.Decimal) model.OrderSummary {
	shipping := a.pricing.FlatShippingFee
	if subtotal.GreaterThan(a.pricing.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}

	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return model.OrderSummary{
		Subtotal: model.RoundMoney(subtotal),
		Shipping: model.RoundMoney(shipping),
		Discount: model.RoundMoney(discount),
		Total:    model.RoundMoney(total),
	}
}

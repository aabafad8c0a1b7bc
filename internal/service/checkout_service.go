package service

import (
	"context"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/coupon"
	"storefront/internal/model"
	"storefront/internal/payment"

	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	products   ProductService
	carts      cart.Store
	coupons    coupon.Validator
	assembler  *checkout.Assembler
	dispatcher PaymentDispatcher
	logger     zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	products ProductService,
	carts cart.Store,
	coupons coupon.Validator,
	assembler *checkout.Assembler,
	dispatcher PaymentDispatcher,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		products:   products,
		carts:      carts,
		coupons:    coupons,
		assembler:  assembler,
		dispatcher: dispatcher,
		logger:     logger.With().Str("service", "checkout").Logger(),
	}
}

// PlaceOrder builds the cart to check out, validates the voucher against
// its subtotal, assembles the order and hands it to the payment dispatcher.
// The stored cart is cleared only when it was the source of the order.
func (s *checkoutService) PlaceOrder(ctx context.Context, actor model.Actor, cartOwner string, req *model.OrderRequest) (*payment.Outcome, error) {
	if actor.UserID == "" {
		return nil, model.ErrUnauthorised
	}
	if req == nil {
		return nil, model.ErrInvalidInput
	}

	c, clearOwner, err := s.cartFor(ctx, cartOwner, req.Items)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, model.ErrEmptyCart
	}

	var discount *checkout.AppliedDiscount
	if req.VoucherCode != nil && strings.TrimSpace(*req.VoucherCode) != "" {
		res, err := s.coupons.Validate(ctx, *req.VoucherCode, c.Subtotal())
		if err != nil {
			return nil, err
		}
		if !res.OK {
			s.logger.Info().
				Str("coupon_code", *req.VoucherCode).
				Str("reason", string(res.Reason)).
				Msg("voucher rejected at checkout")
			return nil, res.Err()
		}
		discount = &checkout.AppliedDiscount{Code: res.Code, Amount: res.Discount}
	}

	createReq, err := s.assembler.Assemble(actor.UserID, c, req.Shipping, req.Payment, discount)
	if err != nil {
		return nil, err
	}
	createReq.ContactEmail = actor.Email

	if !createReq.PaymentMethod.Valid() {
		return nil, model.ErrPaymentMethodUnavailable.WithFields("payment.method")
	}

	outcome, err := s.dispatcher.Dispatch(ctx, createReq, clearOwner)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", actor.UserID).
			Str("payment_method", string(createReq.PaymentMethod)).
			Msg("checkout dispatch failed")
		return nil, err
	}

	return outcome, nil
}

// cartFor returns the cart being checked out and the owner whose stored cart
// should be cleared once the order exists.
func (s *checkoutService) cartFor(ctx context.Context, cartOwner string, items []model.OrderItemRequest) (*cart.Cart, string, error) {
	if len(items) == 0 {
		c, err := s.carts.Get(ctx, cartOwner)
		if err != nil {
			return nil, "", err
		}
		return c, cartOwner, nil
	}

	lines, err := s.products.Lines(ctx, items)
	if err != nil {
		return nil, "", err
	}

	c := cart.New(cartOwner)
	for _, line := range lines {
		if err := c.Add(line); err != nil {
			return nil, "", err
		}
	}
	return c, "", nil
}

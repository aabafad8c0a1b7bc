package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// validator implements Validator on top of a coupon Store.
type validator struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a validator.
type Option func(*validator)

// WithClock overrides the time source used for validity windows.
func WithClock(now func() time.Time) Option {
	return func(v *validator) {
		v.now = now
	}
}

// NewValidator creates a new coupon validator.
func NewValidator(store Store, logger zerolog.Logger, opts ...Option) Validator {
	v := &validator{
		store:  store,
		now:    time.Now,
		logger: logger.With().Str("component", "coupon-validator").Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks, in order: existence among active coupons, the validity
// window (inclusive at both ends), the minimum purchase, and the usage limit.
func (v *validator) Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return reject(ReasonInvalidCode, "Coupon code is invalid"), nil
	}

	c, err := v.store.GetActiveByCode(ctx, code)
	if err != nil {
		v.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to look up coupon")
		return Result{}, fmt.Errorf("failed to look up coupon: %w", err)
	}

	if c == nil {
		v.logger.Debug().Str("coupon_code", code).Msg("coupon not found")
		return reject(ReasonInvalidCode, "Coupon code is invalid"), nil
	}

	now := v.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		v.logger.Debug().
			Str("coupon_code", c.Code).
			Time("valid_from", c.ValidFrom).
			Time("valid_until", c.ValidUntil).
			Msg("coupon outside validity window")
		return reject(ReasonExpired, "Coupon is not valid at this time"), nil
	}

	if cartTotal.LessThan(c.MinPurchase) {
		return reject(ReasonBelowMinimum,
			fmt.Sprintf("Minimum purchase of %s required for this coupon", c.MinPurchase.StringFixed(model.MoneyPlaces))), nil
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		v.logger.Debug().
			Str("coupon_code", c.Code).
			Int("used_count", c.UsedCount).
			Int("usage_limit", *c.UsageLimit).
			Msg("coupon usage limit reached")
		return reject(ReasonLimitReached, "Coupon usage limit has been reached"), nil
	}

	discount := Discount(c, cartTotal)

	v.logger.Debug().
		Str("coupon_code", c.Code).
		Str("discount", discount.String()).
		Msg("coupon validated successfully")

	return Result{
		OK:       true,
		Code:     c.Code,
		Discount: discount,
	}, nil
}

// Discount computes what c takes off cartTotal. Percentage coupons take
// value% of the total, fixed coupons take value. Either is capped at
// MaxDiscount when set, and never exceeds the cart total.
func Discount(c *model.Coupon, cartTotal decimal.Decimal) decimal.Decimal {
	if !cartTotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.Kind {
	case model.CouponKindPercentage:
		discount = cartTotal.Mul(c.Value).Div(hundred)
	case model.CouponKindFixed:
		discount = c.Value
	default:
		return decimal.Zero
	}

	if c.MaxDiscount != nil {
		discount = decimal.Min(discount, *c.MaxDiscount)
	}
	discount = decimal.Min(discount, cartTotal)
	if discount.IsNegative() {
		return decimal.Zero
	}

	return model.RoundMoney(discount)
}

func reject(reason Reason, message string) Result {
	return Result{Reason: reason, Message: message}
}

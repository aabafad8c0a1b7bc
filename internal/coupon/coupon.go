package coupon

import (
	"context"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Validator defines the interface for coupon validation.
type Validator interface {
	// Validate decides whether code applies to a cart worth cartTotal and,
	// if so, how much it takes off. It never changes the coupon.
	Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (Result, error)
}

// Store looks coupons up for validation.
type Store interface {
	// GetActiveByCode returns the active coupon whose code matches
	// case-insensitively, or nil when there is none.
	GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// Loader defines the interface for loading coupon catalogue files.
type Loader interface {
	// Load reads a gzipped JSON-lines coupon file and returns its definitions.
	Load(ctx context.Context, filePath string) ([]model.CouponInput, error)
}

// Reason explains why a code was rejected.
type Reason string

const (
	ReasonInvalidCode  Reason = model.ErrCodeInvalidCode
	ReasonExpired      Reason = model.ErrCodeExpired
	ReasonBelowMinimum Reason = model.ErrCodeBelowMinimum
	ReasonLimitReached Reason = model.ErrCodeLimitReached
)

// Result is the outcome of validating a code against a cart total.
type Result struct {
	OK       bool
	Code     string
	Discount decimal.Decimal
	Reason   Reason
	Message  string
}

// Err converts a rejected result into its domain error; nil when OK.
func (r Result) Err() error {
	if r.OK {
		return nil
	}

	var base *model.DomainError
	switch r.Reason {
	case ReasonExpired:
		base = model.ErrCouponExpired
	case ReasonBelowMinimum:
		base = model.ErrBelowMinimum
	case ReasonLimitReached:
		base = model.ErrLimitReached
	default:
		base = model.ErrInvalidCouponCode
	}

	if r.Message == "" {
		return base
	}
	return base.WithMessage("%s", r.Message)
}

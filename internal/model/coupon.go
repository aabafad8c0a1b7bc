package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponKind selects how a coupon's value is applied.
type CouponKind string

const (
	CouponKindPercentage CouponKind = "percentage"
	CouponKindFixed      CouponKind = "fixed"
)

// Coupon is an admin-defined discount code.
type Coupon struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Code        string           `json:"code" db:"code"`
	Kind        CouponKind       `json:"kind" db:"kind"`
	Value       decimal.Decimal  `json:"value" db:"value"`
	MinPurchase decimal.Decimal  `json:"minPurchase" db:"min_purchase"`
	MaxDiscount *decimal.Decimal `json:"maxDiscount,omitempty" db:"max_discount"`
	UsageLimit  *int             `json:"usageLimit,omitempty" db:"usage_limit"`
	UsedCount   int              `json:"usedCount" db:"used_count"`
	ValidFrom   time.Time        `json:"validFrom" db:"valid_from"`
	ValidUntil  time.Time        `json:"validUntil" db:"valid_until"`
	Active      bool             `json:"active" db:"active"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// CouponInput is the admin payload for creating or replacing a coupon.
type CouponInput struct {
	Code        string           `json:"code" validate:"required,notblank,max=32"`
	Kind        CouponKind       `json:"kind" validate:"required,oneof=percentage fixed"`
	Value       decimal.Decimal  `json:"value"`
	MinPurchase decimal.Decimal  `json:"minPurchase"`
	MaxDiscount *decimal.Decimal `json:"maxDiscount,omitempty"`
	UsageLimit  *int             `json:"usageLimit,omitempty" validate:"omitempty,min=1"`
	ValidFrom   time.Time        `json:"validFrom" validate:"required"`
	ValidUntil  time.Time        `json:"validUntil" validate:"required"`
	Active      *bool            `json:"active,omitempty"`
}

// CouponValidationRequest is the storefront payload for checking a code.
type CouponValidationRequest struct {
	Code      string          `json:"code"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

// CouponValidationResponse is returned for an applicable code.
type CouponValidationResponse struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

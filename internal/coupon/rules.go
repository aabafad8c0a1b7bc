package coupon

import (
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// NormalizeCode canonicalises a code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Build turns a definition into a coupon, checking the rules struct tags
// cannot express. Fields that break a rule are named in the returned error.
func Build(in model.CouponInput, now time.Time) (*model.Coupon, error) {
	var fields []string

	switch in.Kind {
	case model.CouponKindPercentage:
		if !in.Value.IsPositive() || in.Value.GreaterThan(hundred) {
			fields = append(fields, "value")
		}
	case model.CouponKindFixed:
		if !in.Value.IsPositive() {
			fields = append(fields, "value")
		}
	default:
		fields = append(fields, "kind")
	}

	if in.MinPurchase.IsNegative() {
		fields = append(fields, "minPurchase")
	}
	if in.MaxDiscount != nil && !in.MaxDiscount.IsPositive() {
		fields = append(fields, "maxDiscount")
	}
	if in.UsageLimit != nil && *in.UsageLimit < 1 {
		fields = append(fields, "usageLimit")
	}
	if in.ValidUntil.Before(in.ValidFrom) {
		fields = append(fields, "validUntil")
	}

	code := NormalizeCode(in.Code)
	if code == "" {
		fields = append([]string{"code"}, fields...)
	}

	if len(fields) > 0 {
		return nil, model.ErrInvalidInput.WithFields(fields...)
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	return &model.Coupon{
		ID:          uuid.New(),
		Code:        code,
		Kind:        in.Kind,
		Value:       in.Value,
		MinPurchase: in.MinPurchase,
		MaxDiscount: in.MaxDiscount,
		UsageLimit:  in.UsageLimit,
		ValidFrom:   in.ValidFrom,
		ValidUntil:  in.ValidUntil,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

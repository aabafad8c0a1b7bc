package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/coupon"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// couponService implements CouponService.
type couponService struct {
	couponRepo repository.CouponRepository
	validator  coupon.Validator
	inputs     *validation.Validator
	now        func() time.Time
	logger     zerolog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(
	couponRepo repository.CouponRepository,
	validator coupon.Validator,
	inputs *validation.Validator,
	logger zerolog.Logger,
) CouponService {
	return &couponService{
		couponRepo: couponRepo,
		validator:  validator,
		inputs:     inputs,
		now:        time.Now,
		logger:     logger.With().Str("service", "coupon").Logger(),
	}
}

// Validate checks code against cartTotal. A rejected code is returned as
// the matching domain error.
func (s *couponService) Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*model.CouponValidationResponse, error) {
	if cartTotal.IsNegative() {
		return nil, model.ErrInvalidInput.WithFields("cartTotal")
	}

	res, err := s.validator.Validate(ctx, code, cartTotal)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		s.logger.Debug().
			Str("coupon_code", code).
			Str("reason", string(res.Reason)).
			Msg("coupon rejected")
		return nil, res.Err()
	}

	return &model.CouponValidationResponse{Code: res.Code, Discount: res.Discount}, nil
}

func (s *couponService) List(ctx context.Context) ([]model.Coupon, error) {
	return s.couponRepo.List(ctx)
}

func (s *couponService) Create(ctx context.Context, in model.CouponInput) (*model.Coupon, error) {
	c, err := s.build(in)
	if err != nil {
		return nil, err
	}

	if err := s.couponRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Str("coupon_code", c.Code).Msg("coupon created")
	return c, nil
}

// Update replaces the coupon's definition. Its usage count is kept.
func (s *couponService) Update(ctx context.Context, id uuid.UUID, in model.CouponInput) (*model.Coupon, error) {
	c, err := s.build(in)
	if err != nil {
		return nil, err
	}
	c.ID = id

	ok, err := s.couponRepo.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrCouponNotFound
	}

	s.logger.Info().Str("coupon_id", id.String()).Str("coupon_code", c.Code).Msg("coupon updated")
	return c, nil
}

func (s *couponService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.couponRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrCouponNotFound
	}

	s.logger.Info().Str("coupon_id", id.String()).Msg("coupon deleted")
	return nil
}

func (s *couponService) build(in model.CouponInput) (*model.Coupon, error) {
	fields, err := s.inputs.Fields(in)
	if err != nil {
		return nil, fmt.Errorf("failed to validate coupon: %w", err)
	}
	if len(fields) > 0 {
		return nil, model.ErrInvalidInput.WithFields(fields...)
	}

	return coupon.Build(in, s.now().UTC())
}

package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// paymentMethodService implements PaymentMethodService.
type paymentMethodService struct {
	repo   repository.PaymentMethodRepository
	inputs *validation.Validator
	now    func() time.Time
	logger zerolog.Logger
}

// NewPaymentMethodService creates a new payment method service.
func NewPaymentMethodService(
	repo repository.PaymentMethodRepository,
	inputs *validation.Validator,
	logger zerolog.Logger,
) PaymentMethodService {
	return &paymentMethodService{
		repo:   repo,
		inputs: inputs,
		now:    time.Now,
		logger: logger.With().Str("service", "payment_method").Logger(),
	}
}

func (s *paymentMethodService) List(ctx context.Context, enabledOnly bool) ([]model.PaymentMethod, error) {
	return s.repo.List(ctx, enabledOnly)
}

func (s *paymentMethodService) Create(ctx context.Context, in model.PaymentMethodInput) (*model.PaymentMethod, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := apply(&model.PaymentMethod{ID: uuid.New(), Enabled: true, CreatedAt: now}, in, now)

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info().Str("payment_type", string(m.Type)).Msg("payment method created")
	return m, nil
}

func (s *paymentMethodService) Update(ctx context.Context, id uuid.UUID, in model.PaymentMethodInput) (*model.PaymentMethod, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, model.ErrPaymentMethodNotFound
	}

	m := apply(existing, in, s.now().UTC())
	ok, err := s.repo.Update(ctx, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrPaymentMethodNotFound
	}

	s.logger.Info().
		Str("payment_method_id", id.String()).
		Bool("enabled", m.Enabled).
		Msg("payment method updated")
	return m, nil
}

func (s *paymentMethodService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPaymentMethodNotFound
	}
	return nil
}

func (s *paymentMethodService) check(in model.PaymentMethodInput) error {
	fields, err := s.inputs.Fields(in)
	if err != nil {
		return fmt.Errorf("failed to validate payment method: %w", err)
	}
	if len(fields) > 0 {
		return model.ErrInvalidInput.WithFields(fields...)
	}
	return nil
}

// apply copies the admin input onto m. Enabled is only changed when given.
func apply(m *model.PaymentMethod, in model.PaymentMethodInput, now time.Time) *model.PaymentMethod {
	m.Name = in.Name
	m.Type = in.Type
	m.Icon = in.Icon
	m.Description = in.Description
	m.SortOrder = in.SortOrder
	if in.Enabled != nil {
		m.Enabled = *in.Enabled
	}
	m.UpdatedAt = now
	return m
}

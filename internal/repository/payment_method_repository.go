package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// paymentMethodRepository implements the PaymentMethodRepository interface using PostgreSQL.
type paymentMethodRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentMethodRepository creates a new PostgreSQL-backed payment method repository.
func NewPaymentMethodRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentMethodRepository {
	return &paymentMethodRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment_method").Logger(),
	}
}

const paymentMethodColumns = `id, name, type, icon, description, enabled, sort_order, created_at, updated_at`

func scanPaymentMethod(row pgx.Row) (*model.PaymentMethod, error) {
	var (
		m          model.PaymentMethod
		methodType string
	)
	err := row.Scan(&m.ID, &m.Name, &methodType, &m.Icon, &m.Description, &m.Enabled, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Type = model.PaymentMethodType(methodType)
	return &m, nil
}

// List returns payment methods in display order.
func (r *paymentMethodRepository) List(ctx context.Context, enabledOnly bool) ([]model.PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + `
		FROM payment_methods
		WHERE enabled OR NOT $1
		ORDER BY sort_order, name
	`

	rows, err := r.pool.Query(ctx, query, enabledOnly)
	if err != nil {
		r.logger.Error().Err(err).Bool("enabled_only", enabledOnly).Msg("failed to query payment methods")
		return nil, fmt.Errorf("failed to query payment methods: %w", err)
	}
	defer rows.Close()

	methods := []model.PaymentMethod{}
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan payment method row")
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment methods: %w", err)
	}

	return methods, nil
}

// GetByID retrieves a payment method by ID.
func (r *paymentMethodRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error) {
	m, err := scanPaymentMethod(r.pool.QueryRow(ctx,
		`SELECT `+paymentMethodColumns+` FROM payment_methods WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_method_id", id.String()).Msg("failed to query payment method")
		return nil, fmt.Errorf("failed to query payment method: %w", err)
	}
	return m, nil
}

// GetByType retrieves the payment method of the given type.
func (r *paymentMethodRepository) GetByType(ctx context.Context, methodType model.PaymentMethodType) (*model.PaymentMethod, error) {
	m, err := scanPaymentMethod(r.pool.QueryRow(ctx,
		`SELECT `+paymentMethodColumns+` FROM payment_methods WHERE type = $1`, string(methodType)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_type", string(methodType)).Msg("failed to query payment method")
		return nil, fmt.Errorf("failed to query payment method: %w", err)
	}
	return m, nil
}

// Create inserts a payment method. Only one method per type may exist.
func (r *paymentMethodRepository) Create(ctx context.Context, m *model.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (id, name, type, icon, description, enabled, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query, m.ID, m.Name, string(m.Type), m.Icon, m.Description, m.Enabled, m.SortOrder, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrInvalidInput.WithMessage("A payment method of type %s already exists", m.Type).WithFields("type")
		}
		r.logger.Error().Err(err).Str("payment_type", string(m.Type)).Msg("failed to create payment method")
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

// Update replaces a payment method.
func (r *paymentMethodRepository) Update(ctx context.Context, m *model.PaymentMethod) (bool, error) {
	query := `
		UPDATE payment_methods
		SET name = $2, type = $3, icon = $4, description = $5, enabled = $6, sort_order = $7, updated_at = $8
		WHERE id = $1
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, m.ID, m.Name, string(m.Type), m.Icon, m.Description, m.Enabled, m.SortOrder, m.UpdatedAt).
		Scan(&m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if isUniqueViolation(err) {
			return false, model.ErrInvalidInput.WithMessage("A payment method of type %s already exists", m.Type).WithFields("type")
		}
		r.logger.Error().Err(err).Str("payment_method_id", m.ID.String()).Msg("failed to update payment method")
		return false, fmt.Errorf("failed to update payment method: %w", err)
	}
	return true, nil
}

// Delete removes a payment method.
func (r *paymentMethodRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_method_id", id.String()).Msg("failed to delete payment method")
		return false, fmt.Errorf("failed to delete payment method: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

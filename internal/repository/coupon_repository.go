package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

const couponColumns = `id, code, kind, value, min_purchase, max_discount, usage_limit, used_count,
	valid_from, valid_until, active, created_at, updated_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var (
		c           model.Coupon
		kind        string
		maxDiscount decimal.NullDecimal
	)
	err := row.Scan(&c.ID, &c.Code, &kind, &c.Value, &c.MinPurchase, &maxDiscount, &c.UsageLimit, &c.UsedCount,
		&c.ValidFrom, &c.ValidUntil, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Kind = model.CouponKind(kind)
	if maxDiscount.Valid {
		c.MaxDiscount = &maxDiscount.Decimal
	}
	return &c, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// GetActiveByCode returns the active coupon with the given code.
func (r *couponRepository) GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = upper($1) AND active`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return c, nil
}

// GetByID retrieves a coupon by ID.
func (r *couponRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return c, nil
}

// List returns every coupon ordered by code.
func (r *couponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY code`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query coupons")
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}
	return coupons, nil
}

// Create inserts a new coupon.
func (r *couponRepository) Create(ctx context.Context, c *model.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, kind, value, min_purchase, max_discount, usage_limit, used_count,
			valid_from, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Code, string(c.Kind), c.Value, c.MinPurchase, nullDecimal(c.MaxDiscount),
		c.UsageLimit, c.UsedCount, c.ValidFrom, c.ValidUntil, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateCoupon
		}
		r.logger.Error().Err(err).Str("coupon_code", c.Code).Msg("failed to create coupon")
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	r.logger.Debug().Str("coupon_code", c.Code).Msg("coupon created")
	return nil
}

// Update replaces a coupon's definition.
func (r *couponRepository) Update(ctx context.Context, c *model.Coupon) (bool, error) {
	query := `
		UPDATE coupons
		SET code = $2, kind = $3, value = $4, min_purchase = $5, max_discount = $6, usage_limit = $7,
			valid_from = $8, valid_until = $9, active = $10, updated_at = $11
		WHERE id = $1
		RETURNING used_count, created_at
	`

	err := r.pool.QueryRow(ctx, query, c.ID, c.Code, string(c.Kind), c.Value, c.MinPurchase, nullDecimal(c.MaxDiscount),
		c.UsageLimit, c.ValidFrom, c.ValidUntil, c.Active, c.UpdatedAt).Scan(&c.UsedCount, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if isUniqueViolation(err) {
			return false, model.ErrDuplicateCoupon
		}
		r.logger.Error().Err(err).Str("coupon_id", c.ID.String()).Msg("failed to update coupon")
		return false, fmt.Errorf("failed to update coupon: %w", err)
	}
	return true, nil
}

// Delete removes a coupon.
func (r *couponRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to delete coupon")
		return false, fmt.Errorf("failed to delete coupon: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Upsert inserts a coupon or replaces the definition of the one with the
// same code. The usage count of an existing coupon is kept.
func (r *couponRepository) Upsert(ctx context.Context, c *model.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, kind, value, min_purchase, max_discount, usage_limit, used_count,
			valid_from, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $11)
		ON CONFLICT (code) DO UPDATE SET
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			min_purchase = EXCLUDED.min_purchase,
			max_discount = EXCLUDED.max_discount,
			usage_limit = EXCLUDED.usage_limit,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Code, string(c.Kind), c.Value, c.MinPurchase, nullDecimal(c.MaxDiscount),
		c.UsageLimit, c.ValidFrom, c.ValidUntil, c.Active, c.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_code", c.Code).Msg("failed to upsert coupon")
		return fmt.Errorf("failed to upsert coupon: %w", err)
	}
	return nil
}

// Redeem increments the usage count of an active coupon within tx.
func (r *couponRepository) Redeem(ctx context.Context, tx pgx.Tx, code string) error {
	query := `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE code = upper($1) AND active AND (usage_limit IS NULL OR used_count < usage_limit)
	`

	tag, err := tx.Exec(ctx, query, code)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to redeem coupon")
		return fmt.Errorf("failed to redeem coupon: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Info().Str("coupon_code", code).Msg("coupon could not be redeemed")
		return model.ErrLimitReached
	}
	return nil
}

package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// CouponRepository defines the interface for coupon data access operations.
type CouponRepository interface {
	// GetActiveByCode returns the active coupon with the given code, matched
	// case-insensitively, or nil.
	GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)

	// Create inserts a coupon. A duplicate code yields model.ErrDuplicateCoupon.
	Create(ctx context.Context, c *model.Coupon) error

	// Update replaces a coupon's definition, keeping its usage count.
	// Returns false when the coupon does not exist.
	Update(ctx context.Context, c *model.Coupon) (bool, error)

	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Upsert inserts or replaces a coupon by code.
	Upsert(ctx context.Context, c *model.Coupon) error

	// Redeem increments the usage count within tx, refusing once the usage
	// limit is reached.
	Redeem(ctx context.Context, tx pgx.Tx, code string) error
}

// PaymentMethodRepository defines the interface for payment method data access.
type PaymentMethodRepository interface {
	List(ctx context.Context, enabledOnly bool) ([]model.PaymentMethod, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error)
	GetByType(ctx context.Context, methodType model.PaymentMethodType) (*model.PaymentMethod, error)
	Create(ctx context.Context, m *model.PaymentMethod) error
	Update(ctx context.Context, m *model.PaymentMethod) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts an order, its line snapshots and its first
	// timeline entry within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetByID retrieves an order with its items and timeline, or nil.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByGatewayOrderID retrieves the order paid through a gateway order, or nil.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error)

	// List returns orders matching filter, newest first, and the total match count.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)

	// UpdateStatus moves an order from one status to another. It only
	// applies while the order is still in from; false means it was not.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.OrderStatus) (bool, error)

	// AppendTimeline records a status change.
	AppendTimeline(ctx context.Context, tx pgx.Tx, id uuid.UUID, entry model.TimelineEntry) error

	// RequestReturn stores a return request on a delivered order that has
	// none yet. False means the order did not qualify.
	RequestReturn(ctx context.Context, id uuid.UUID, req model.ReturnRequest) (bool, error)
}

package service

import (
	"context"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductService defines operations for the product catalogue.
type ProductService interface {
	// GetAll retrieves all products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Lines prices the requested items at current catalogue prices.
	Lines(ctx context.Context, items []model.OrderItemRequest) ([]cart.Line, error)
}

// CartService defines operations on carts and wishlists. Owners are the
// keys produced by cart.UserOwner and cart.GuestOwner.
type CartService interface {
	Get(ctx context.Context, owner string) (*cart.Cart, error)
	AddItem(ctx context.Context, owner, productID string, quantity int) (*cart.Cart, error)
	UpdateItem(ctx context.Context, owner, productID string, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, owner, productID string) (*cart.Cart, error)
	Clear(ctx context.Context, owner string) error

	// Merge folds the guest cart into the user cart and drops the guest cart.
	Merge(ctx context.Context, guestOwner, userOwner string) (*cart.Cart, error)

	Wishlist(ctx context.Context, owner string) ([]model.Product, error)
	AddToWishlist(ctx context.Context, owner, productID string) error
	RemoveFromWishlist(ctx context.Context, owner, productID string) error
}

// CouponService defines storefront validation and admin management of coupons.
type CouponService interface {
	// Validate checks code against cartTotal without redeeming it.
	Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*model.CouponValidationResponse, error)

	List(ctx context.Context) ([]model.Coupon, error)
	Create(ctx context.Context, in model.CouponInput) (*model.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, in model.CouponInput) (*model.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentMethodService defines operations on the payment method catalogue.
type PaymentMethodService interface {
	List(ctx context.Context, enabledOnly bool) ([]model.PaymentMethod, error)
	Create(ctx context.Context, in model.PaymentMethodInput) (*model.PaymentMethod, error)
	Update(ctx context.Context, id uuid.UUID, in model.PaymentMethodInput) (*model.PaymentMethod, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder persists an assembled order, redeeming its coupon in the
	// same transaction.
	CreateOrder(ctx context.Context, req *model.OrderCreateRequest) (*model.Order, error)

	// GetByGatewayOrderID returns nil when no order references the id.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error)

	// GetByID retrieves an order visible to actor.
	GetByID(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error)

	// List returns the actor's own orders, newest first.
	List(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, int, error)

	// ListAll returns every order matching filter. Admin only.
	ListAll(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)

	// Cancel cancels a pending or processing order owned by actor.
	Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error)

	// UpdateStatus advances an order along the lifecycle. Admin only.
	UpdateStatus(ctx context.Context, id uuid.UUID, req model.StatusUpdateRequest) (*model.Order, error)

	// RequestReturn records a return on a delivered order owned by actor.
	RequestReturn(ctx context.Context, actor model.Actor, id uuid.UUID, in model.ReturnRequestInput) (*model.Order, error)

	// Close waits for in-flight customer notifications.
	Close()
}

// PaymentDispatcher routes an assembled order to its payment method.
type PaymentDispatcher interface {
	Dispatch(ctx context.Context, req *model.OrderCreateRequest, cartOwner string) (*payment.Outcome, error)
}

// PaymentService completes gateway payments started by checkout.
type PaymentService interface {
	// CreateGatewayOrder asks the gateway for a bare authorisation of amount.
	CreateGatewayOrder(ctx context.Context, userID string, amount decimal.Decimal) (*model.GatewayHandle, error)

	// Verify handles the client callback after the gateway step.
	Verify(ctx context.Context, userID string, payload model.VerificationPayload) (*payment.VerifyResult, error)

	// HandleWebhook processes a signed gateway push.
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}

// CheckoutService turns a cart into an order or a pending payment.
type CheckoutService interface {
	// PlaceOrder prices req.Items, or the stored cart of cartOwner when no
	// items are given, applies the voucher and dispatches payment.
	PlaceOrder(ctx context.Context, actor model.Actor, cartOwner string, req *model.OrderRequest) (*payment.Outcome, error)
}

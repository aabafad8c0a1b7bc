package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cart"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MethodCatalogue looks up configured payment methods.
type MethodCatalogue interface {
	// GetByType returns nil when no method of that type is configured.
	GetByType(ctx context.Context, methodType model.PaymentMethodType) (*model.PaymentMethod, error)
}

// OrderWriter persists orders once payment is settled.
type OrderWriter interface {
	CreateOrder(ctx context.Context, req *model.OrderCreateRequest) (*model.Order, error)
	// GetByGatewayOrderID returns nil when no order references the id.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error)
}

// Outcome is either a created order or a gateway handle the client must
// complete. Exactly one field is set.
type Outcome struct {
	Order    *model.Order         `json:"order,omitempty"`
	Redirect *model.GatewayHandle `json:"redirect,omitempty"`
}

// VerifyResult is returned from the client callback. Pending is set while
// the gateway has not settled the payment; the checkout stays open and the
// client may call again or wait for the webhook.
type VerifyResult struct {
	Verified         bool         `json:"verified"`
	Pending          bool         `json:"pending,omitempty"`
	GatewayPaymentID string       `json:"gatewayPaymentId,omitempty"`
	Order            *model.Order `json:"order,omitempty"`
}

// Dispatcher decides how an assembled order is paid for.
type Dispatcher struct {
	methods  MethodCatalogue
	orders   OrderWriter
	carts    cart.Store
	sessions SessionStore
	gateway  Gateway
	currency string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewDispatcher creates a payment dispatcher. gateway may be nil, in which
// case only cash on delivery is accepted.
func NewDispatcher(
	methods MethodCatalogue,
	orders OrderWriter,
	carts cart.Store,
	sessions SessionStore,
	gateway Gateway,
	currency string,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		methods:  methods,
		orders:   orders,
		carts:    carts,
		sessions: sessions,
		gateway:  gateway,
		currency: currency,
		now:      time.Now,
		logger:   logger.With().Str("service", "payment").Logger(),
	}
}

// GatewayEnabled reports whether online payment methods can be used.
func (d *Dispatcher) GatewayEnabled() bool {
	return d.gateway != nil
}

// Dispatch routes req by its payment method. Cash on delivery writes the
// order immediately; gateway methods start a checkout session and return
// the handle the client pays against.
func (d *Dispatcher) Dispatch(ctx context.Context, req *model.OrderCreateRequest, cartOwner string) (*Outcome, error) {
	method, err := d.methods.GetByType(ctx, req.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment method: %w", err)
	}
	if method == nil || !method.Enabled {
		return nil, model.ErrPaymentMethodUnavailable
	}

	if req.PaymentMethod == model.PaymentCOD {
		return d.dispatchCOD(ctx, req, cartOwner)
	}
	if !req.PaymentMethod.RequiresGateway() {
		return nil, model.ErrPaymentMethodUnavailable
	}
	return d.dispatchGateway(ctx, req, cartOwner)
}

func (d *Dispatcher) dispatchCOD(ctx context.Context, req *model.OrderCreateRequest, cartOwner string) (*Outcome, error) {
	req.PaymentStatus = model.PaymentStatusPending

	order, err := d.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	if cartOwner != "" {
		if err := d.carts.Delete(ctx, cartOwner); err != nil {
			d.logger.Warn().Err(err).Str("owner", cartOwner).Msg("failed to clear cart after order")
		}
	}

	d.logger.Info().
		Str("order_id", order.ID.String()).
		Str("total", order.Summary.Total.String()).
		Msg("cash on delivery order created")

	return &Outcome{Order: order}, nil
}

func (d *Dispatcher) dispatchGateway(ctx context.Context, req *model.OrderCreateRequest, cartOwner string) (*Outcome, error) {
	if d.gateway == nil {
		return nil, model.ErrPaymentMethodUnavailable.WithMessage("Online payment is not available")
	}

	amount := model.MinorUnits(req.Summary.Total)
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	handle, err := d.gateway.CreateOrder(ctx, amount, d.currency, map[string]string{
		"user_id":        req.UserID,
		"payment_method": string(req.PaymentMethod),
		checkoutMetadata: "true",
	})
	if err != nil {
		d.logger.Error().Err(err).Str("user_id", req.UserID).Msg("gateway order creation failed")
		return nil, model.ErrGatewayUnavailable
	}

	sess := &Session{
		GatewayOrderID: handle.GatewayOrderID,
		UserID:         req.UserID,
		CartOwner:      cartOwner,
		Request:        *req,
		Amount:         handle.Amount,
		Currency:       handle.Currency,
		State:          model.CheckoutInitiated,
		CreatedAt:      d.now().UTC(),
	}
	if err := d.sessions.Save(ctx, sess); err != nil {
		d.cancel(ctx, handle.GatewayOrderID)
		return nil, err
	}

	d.logger.Info().
		Str("gateway_order_id", handle.GatewayOrderID).
		Int64("amount", handle.Amount).
		Str("user_id", req.UserID).
		Msg("checkout session initiated")

	return &Outcome{Redirect: handle}, nil
}

// CreateGatewayOrder registers a standalone authorisation for amount without
// an attached checkout.
func (d *Dispatcher) CreateGatewayOrder(ctx context.Context, userID string, amount decimal.Decimal) (*model.GatewayHandle, error) {
	if d.gateway == nil {
		return nil, model.ErrGatewayUnavailable
	}

	minor := model.MinorUnits(amount)
	if minor <= 0 {
		return nil, model.ErrInvalidAmount
	}

	handle, err := d.gateway.CreateOrder(ctx, minor, d.currency, map[string]string{"user_id": userID})
	if err != nil {
		d.logger.Error().Err(err).Str("user_id", userID).Msg("gateway order creation failed")
		return nil, model.ErrGatewayUnavailable
	}
	return handle, nil
}

// Verify handles the client callback after the gateway step. For a checkout
// session it creates the order; calling it again after the order exists
// returns that order. A payment the gateway has not settled yet leaves the
// session open and reports Pending.
func (d *Dispatcher) Verify(ctx context.Context, userID string, payload model.VerificationPayload) (*VerifyResult, error) {
	if d.gateway == nil {
		return nil, model.ErrGatewayUnavailable
	}
	if payload.GatewayOrderID == "" {
		return nil, model.ErrInvalidInput.WithFields("gatewayOrderId")
	}

	sess, err := d.sessions.Get(ctx, payload.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	if sess == nil {
		existing, err := d.orders.GetByGatewayOrderID(ctx, payload.GatewayOrderID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.UserID != userID {
				return nil, model.ErrForbidden
			}
			return &VerifyResult{Verified: true, GatewayPaymentID: deref(existing.GatewayPaymentID), Order: existing}, nil
		}
	} else if sess.UserID != userID {
		return nil, model.ErrForbidden
	}

	logger := d.logger.With().Str("gateway_order_id", payload.GatewayOrderID).Logger()

	conf, err := d.gateway.Verify(ctx, payload)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotSettled):
		logger.Info().Err(err).Msg("payment not settled yet")
		if sess != nil {
			// Saving again restarts the session TTL.
			if err := d.sessions.Save(ctx, sess); err != nil {
				logger.Warn().Err(err).Msg("failed to extend checkout session")
			}
		}
		return &VerifyResult{Pending: true}, nil
	case errors.Is(err, ErrSignature), errors.Is(err, ErrPaymentClosed):
		logger.Warn().Err(err).Msg("payment verification failed")
		if sess != nil {
			d.fail(ctx, sess, !errors.Is(err, ErrPaymentClosed))
		}
		return nil, model.ErrPaymentFailed
	default:
		logger.Error().Err(err).Msg("payment could not be checked with the gateway")
		return nil, model.ErrGatewayUnavailable
	}

	if sess == nil {
		return &VerifyResult{Verified: true, GatewayPaymentID: conf.GatewayPaymentID}, nil
	}

	order, err := d.complete(ctx, sess, conf)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Verified: true, GatewayPaymentID: conf.GatewayPaymentID, Order: order}, nil
}

// HandleWebhook processes a gateway push. Events for unknown or already
// completed checkouts are acknowledged without effect.
func (d *Dispatcher) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if d.gateway == nil {
		return model.ErrGatewayUnavailable
	}

	event, err := d.gateway.ParseWebhook(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, ErrSignature) {
			return model.ErrInvalidSignature
		}
		return model.ErrInvalidInput.WithMessage("Webhook payload could not be decoded")
	}

	logger := d.logger.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()
	if event.Kind == EventIgnored {
		logger.Debug().Msg("ignoring webhook event")
		return nil
	}

	sess, err := d.sessions.Get(ctx, event.Confirmation.GatewayOrderID)
	if err != nil {
		return err
	}
	if sess == nil {
		if event.Kind == EventSucceeded && event.Confirmation.FromCheckout {
			return d.settleOrphan(ctx, &event.Confirmation)
		}
		logger.Info().Str("gateway_order_id", event.Confirmation.GatewayOrderID).Msg("no open checkout for webhook event")
		return nil
	}

	switch event.Kind {
	case EventFailed:
		d.fail(ctx, sess, true)
		return nil
	case EventCanceled:
		d.fail(ctx, sess, false)
		return nil
	}

	_, err = d.complete(ctx, sess, &event.Confirmation)
	if errors.Is(err, model.ErrPaymentFailed) {
		return nil
	}
	return err
}

// complete turns a confirmed payment into an order. A fresh session is
// advanced through AUTHORIZED and VERIFIED, and the amount must match what
// was asked for. A session left VERIFIED by an earlier failed write goes
// straight to order creation.
func (d *Dispatcher) complete(ctx context.Context, sess *Session, conf *Confirmation) (*model.Order, error) {
	logger := d.logger.With().Str("gateway_order_id", sess.GatewayOrderID).Logger()

	switch sess.State {
	case model.CheckoutInitiated:
		if err := sess.Advance(model.CheckoutAuthorized); err != nil {
			return nil, err
		}

		if conf.Amount != sess.Amount {
			logger.Error().
				Int64("expected", sess.Amount).
				Int64("received", conf.Amount).
				Msg("gateway amount mismatch")
			d.fail(ctx, sess, false)
			d.refund(ctx, sess.GatewayOrderID)
			return nil, model.ErrPaymentFailed
		}

		if err := sess.Advance(model.CheckoutVerified); err != nil {
			return nil, err
		}
		if err := d.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
	case model.CheckoutVerified:
		logger.Info().Msg("retrying order creation for verified checkout")
	default:
		return d.existingOrder(ctx, sess)
	}

	req := sess.Request
	req.PaymentStatus = model.PaymentStatusPaid
	gatewayOrderID := sess.GatewayOrderID
	paymentID := conf.GatewayPaymentID
	req.GatewayOrderID = &gatewayOrderID
	req.GatewayPaymentID = &paymentID

	order, err := d.orders.CreateOrder(ctx, &req)
	if err != nil {
		if existing, lookupErr := d.orders.GetByGatewayOrderID(ctx, gatewayOrderID); lookupErr == nil && existing != nil {
			logger.Info().Msg("checkout already completed")
			_ = d.sessions.Delete(ctx, gatewayOrderID)
			return existing, nil
		}
		logger.Error().Err(err).Msg("failed to create order for verified payment")
		return nil, err
	}

	if err := sess.Advance(model.CheckoutOrderCreated); err != nil {
		return nil, err
	}

	d.removeOrdered(ctx, sess.CartOwner, req.Items)
	if err := d.sessions.Delete(ctx, gatewayOrderID); err != nil {
		logger.Warn().Err(err).Msg("failed to delete completed checkout session")
	}

	logger.Info().
		Str("order_id", order.ID.String()).
		Str("payment_id", paymentID).
		Msg("gateway order created")

	return order, nil
}

func (d *Dispatcher) existingOrder(ctx context.Context, sess *Session) (*model.Order, error) {
	existing, err := d.orders.GetByGatewayOrderID(ctx, sess.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, model.ErrSessionNotFound
	}
	return existing, nil
}

// settleOrphan handles a captured checkout payment whose session is gone,
// typically because it expired before the payment settled. With no order
// to attach it to, the payment is refunded. A refund error is returned so
// the gateway redelivers the event.
func (d *Dispatcher) settleOrphan(ctx context.Context, conf *Confirmation) error {
	logger := d.logger.With().Str("gateway_order_id", conf.GatewayOrderID).Logger()

	existing, err := d.orders.GetByGatewayOrderID(ctx, conf.GatewayOrderID)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Debug().Msg("checkout already completed")
		return nil
	}

	logger.Error().
		Str("payment_id", conf.GatewayPaymentID).
		Int64("amount", conf.Amount).
		Msg("payment captured without an open checkout, refunding")
	if err := d.gateway.Refund(ctx, conf.GatewayOrderID); err != nil {
		return fmt.Errorf("failed to refund orphaned payment: %w", err)
	}
	return nil
}

// fail marks the session FAILED and drops it. The cart is left alone so the
// shopper can retry. With cancelIntent the gateway order is closed too, so
// it cannot be paid after the checkout is gone.
func (d *Dispatcher) fail(ctx context.Context, sess *Session, cancelIntent bool) {
	if err := sess.Advance(model.CheckoutFailed); err != nil {
		d.logger.Warn().Err(err).Msg("cannot fail checkout session")
		return
	}
	if err := d.sessions.Delete(ctx, sess.GatewayOrderID); err != nil {
		d.logger.Warn().Err(err).Str("gateway_order_id", sess.GatewayOrderID).Msg("failed to delete failed checkout session")
	}
	if cancelIntent {
		d.cancel(ctx, sess.GatewayOrderID)
	}
	d.logger.Info().Str("gateway_order_id", sess.GatewayOrderID).Msg("checkout session failed")
}

func (d *Dispatcher) cancel(ctx context.Context, gatewayOrderID string) {
	if err := d.gateway.Cancel(ctx, gatewayOrderID); err != nil {
		d.logger.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("failed to cancel gateway order")
	}
}

func (d *Dispatcher) refund(ctx context.Context, gatewayOrderID string) {
	if err := d.gateway.Refund(ctx, gatewayOrderID); err != nil {
		d.logger.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("failed to refund gateway payment")
	}
}

// removeOrdered takes the ordered lines out of the owner's cart, keeping
// anything added while the payment was in flight.
func (d *Dispatcher) removeOrdered(ctx context.Context, owner string, items []model.OrderLineSnapshot) {
	if owner == "" {
		return
	}

	c, err := d.carts.Get(ctx, owner)
	if err != nil {
		d.logger.Warn().Err(err).Str("owner", owner).Msg("failed to load cart after order")
		return
	}

	c.Subtract(items)
	if c.IsEmpty() {
		err = d.carts.Delete(ctx, owner)
	} else {
		err = d.carts.Save(ctx, c)
	}
	if err != nil {
		d.logger.Warn().Err(err).Str("owner", owner).Msg("failed to update cart after order")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

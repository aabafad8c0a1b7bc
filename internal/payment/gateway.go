// Package payment routes a priced order to cash on delivery or to the
// external payment gateway and completes gateway checkouts.
package payment

import (
	"context"
	"errors"

	"storefront/internal/model"
)

var (
	// ErrSignature is returned when a callback or webhook fails authentication.
	ErrSignature = errors.New("invalid payment signature")
	// ErrNotSettled is returned while the payment can still complete.
	ErrNotSettled = errors.New("payment not settled")
	// ErrPaymentClosed is returned once the payment can no longer complete.
	ErrPaymentClosed = errors.New("payment closed without capture")
)

// checkoutMetadata tags gateway orders that belong to a checkout session.
const checkoutMetadata = "checkout"

// Gateway is an external payment processor.
type Gateway interface {
	// CreateOrder registers an authorisation for amount minor units.
	CreateOrder(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.GatewayHandle, error)
	// Verify checks a client callback against the gateway's record of the
	// payment. It wraps ErrSignature, ErrNotSettled or ErrPaymentClosed when
	// the payment is not confirmed.
	Verify(ctx context.Context, payload model.VerificationPayload) (*Confirmation, error)
	// ParseWebhook authenticates and decodes a pushed gateway event.
	ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
	// Cancel closes an uncaptured gateway order so it can no longer be paid.
	Cancel(ctx context.Context, gatewayOrderID string) error
	// Refund returns a captured payment in full.
	Refund(ctx context.Context, gatewayOrderID string) error
}

// Confirmation is the gateway's view of a completed payment.
type Confirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           int64
	Currency         string
	// FromCheckout is set when the gateway order was opened by Dispatch.
	FromCheckout bool
}

// EventKind classifies webhook events the dispatcher acts on.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventSucceeded
	EventFailed
	EventCanceled
)

// WebhookEvent is a decoded, authenticated gateway push.
type WebhookEvent struct {
	ID           string
	Type         string
	Kind         EventKind
	Confirmation Confirmation
}

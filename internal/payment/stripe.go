package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/webhook"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Stripe-Signature"

// stripeGateway implements Gateway with Stripe PaymentIntents. The gateway
// order id is the PaymentIntent id and the client secret doubles as the
// callback signature.
type stripeGateway struct {
	webhookSecret string
	logger        zerolog.Logger
}

// NewStripeGateway configures the Stripe client with secretKey.
func NewStripeGateway(secretKey, webhookSecret string, logger zerolog.Logger) Gateway {
	stripe.Key = secretKey
	return &stripeGateway{
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("component", "stripe-gateway").Logger(),
	}
}

func (g *stripeGateway) CreateOrder(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.GatewayHandle, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		g.logger.Error().Err(err).Int64("amount", amount).Msg("failed to create payment intent")
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	g.logger.Info().
		Str("payment_intent", intent.ID).
		Int64("amount", intent.Amount).
		Msg("payment intent created")

	return &model.GatewayHandle{
		GatewayOrderID: intent.ID,
		ClientSecret:   intent.ClientSecret,
		Amount:         intent.Amount,
		Currency:       string(intent.Currency),
	}, nil
}

func (g *stripeGateway) Verify(ctx context.Context, payload model.VerificationPayload) (*Confirmation, error) {
	intent, err := paymentintent.Get(payload.GatewayOrderID, nil)
	if err != nil {
		g.logger.Error().Err(err).Str("payment_intent", payload.GatewayOrderID).Msg("failed to retrieve payment intent")
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(intent.ClientSecret), []byte(payload.Signature)) != 1 {
		return nil, fmt.Errorf("payment intent %s: %w", intent.ID, ErrSignature)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return confirmationFrom(intent), nil
	case stripe.PaymentIntentStatusCanceled:
		return nil, fmt.Errorf("payment intent %s: %w", intent.ID, ErrPaymentClosed)
	default:
		return nil, fmt.Errorf("payment intent %s has status %s: %w", intent.ID, intent.Status, ErrNotSettled)
	}
}

func (g *stripeGateway) Cancel(ctx context.Context, gatewayOrderID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := paymentintent.Cancel(gatewayOrderID, params); err != nil {
		g.logger.Error().Err(err).Str("payment_intent", gatewayOrderID).Msg("failed to cancel payment intent")
		return fmt.Errorf("failed to cancel payment intent: %w", err)
	}

	g.logger.Info().Str("payment_intent", gatewayOrderID).Msg("payment intent cancelled")
	return nil
}

func (g *stripeGateway) Refund(ctx context.Context, gatewayOrderID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(gatewayOrderID)}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		g.logger.Error().Err(err).Str("payment_intent", gatewayOrderID).Msg("failed to refund payment intent")
		return fmt.Errorf("failed to refund payment intent: %w", err)
	}

	g.logger.Info().
		Str("payment_intent", gatewayOrderID).
		Str("refund", r.ID).
		Int64("amount", r.Amount).
		Msg("payment refunded")
	return nil
}

func (g *stripeGateway) ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn().Err(err).Msg("rejected webhook")
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	ev := &WebhookEvent{ID: event.ID, Type: string(event.Type)}

	switch event.Type {
	case "payment_intent.succeeded":
		ev.Kind = EventSucceeded
	case "payment_intent.payment_failed":
		ev.Kind = EventFailed
	case "payment_intent.canceled":
		ev.Kind = EventCanceled
	default:
		return ev, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	ev.Confirmation = *confirmationFrom(&intent)

	return ev, nil
}

func confirmationFrom(intent *stripe.PaymentIntent) *Confirmation {
	paymentID := intent.ID
	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		paymentID = intent.LatestCharge.ID
	}

	return &Confirmation{
		GatewayOrderID:   intent.ID,
		GatewayPaymentID: paymentID,
		Amount:           intent.Amount,
		Currency:         string(intent.Currency),
		FromCheckout:     intent.Metadata[checkoutMetadata] != "",
	}
}

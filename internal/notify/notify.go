// Package notify sends order emails to customers.
package notify

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Notifier tells customers about their orders.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *model.Order) error
	OrderStatusChanged(ctx context.Context, order *model.Order) error
}

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpNotifier struct {
	cfg    SMTPConfig
	logger zerolog.Logger
}

// NewSMTPNotifier creates a notifier that delivers through an SMTP relay.
func NewSMTPNotifier(cfg SMTPConfig, logger zerolog.Logger) Notifier {
	return &smtpNotifier{
		cfg:    cfg,
		logger: logger.With().Str("component", "smtp-notifier").Logger(),
	}
}

func (n *smtpNotifier) OrderPlaced(ctx context.Context, order *model.Order) error {
	return n.send(ctx, order, fmt.Sprintf("Order %s confirmed", shortID(order)), placedBody(order))
}

func (n *smtpNotifier) OrderStatusChanged(ctx context.Context, order *model.Order) error {
	return n.send(ctx, order, fmt.Sprintf("Order %s is now %s", shortID(order), order.Status), statusBody(order))
}

func (n *smtpNotifier) send(ctx context.Context, order *model.Order, subject, body string) error {
	if order.ContactEmail == "" {
		n.logger.Debug().Str("order_id", order.ID.String()).Msg("no contact email, skipping notification")
		return nil
	}

	msg, err := newMessage(n.cfg.From, order.ContactEmail, subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to send order email")
		return fmt.Errorf("failed to send order email: %w", err)
	}

	n.logger.Info().Str("order_id", order.ID.String()).Str("subject", subject).Msg("order email sent")
	return nil
}

func newMessage(from, to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func shortID(order *model.Order) string {
	id := order.ID.String()
	return strings.ToUpper(id[:8])
}

func placedBody(order *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order %s.\n\n", order.Shipping.Name, shortID(order))
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %d x %s @ %s = %s\n", item.Quantity, item.Name,
			item.Price.StringFixed(model.MoneyPlaces), item.LineTotal().StringFixed(model.MoneyPlaces))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", order.Summary.Subtotal.StringFixed(model.MoneyPlaces))
	fmt.Fprintf(&b, "Shipping: %s\n", order.Summary.Shipping.StringFixed(model.MoneyPlaces))
	if order.Summary.Discount.IsPositive() {
		fmt.Fprintf(&b, "Discount: -%s\n", order.Summary.Discount.StringFixed(model.MoneyPlaces))
	}
	fmt.Fprintf(&b, "Total:    %s\n\n", order.Summary.Total.StringFixed(model.MoneyPlaces))
	fmt.Fprintf(&b, "Payment: %s (%s)\n", order.PaymentMethod, order.PaymentStatus)
	return b.String()
}

func statusBody(order *model.Order) string {
	return fmt.Sprintf("Hi %s,\n\nYour order %s is now %s.\n", order.Shipping.Name, shortID(order), order.Status)
}

type nopNotifier struct{}

// NewNop returns a Notifier that does nothing.
func NewNop() Notifier {
	return nopNotifier{}
}

func (nopNotifier) OrderPlaced(context.Context, *model.Order) error        { return nil }
func (nopNotifier) OrderStatusChanged(context.Context, *model.Order) error { return nil }

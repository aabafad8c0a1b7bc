package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethodType identifies how a customer pays.
type PaymentMethodType string

const (
	PaymentCard       PaymentMethodType = "card"
	PaymentUPI        PaymentMethodType = "upi"
	PaymentNetBanking PaymentMethodType = "netbanking"
	PaymentWallet     PaymentMethodType = "wallet"
	PaymentCOD        PaymentMethodType = "cod"
	PaymentEMI        PaymentMethodType = "emi"
)

// Valid reports whether t is a known method type.
func (t PaymentMethodType) Valid() bool {
	switch t {
	case PaymentCard, PaymentUPI, PaymentNetBanking, PaymentWallet, PaymentCOD, PaymentEMI:
		return true
	}
	return false
}

// RequiresGateway reports whether payment must be authorised externally
// before an order is written.
func (t PaymentMethodType) RequiresGateway() bool {
	return t.Valid() && t != PaymentCOD
}

// PaymentMethod is an admin-configured payment option shown at checkout.
type PaymentMethod struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Type        PaymentMethodType `json:"type" db:"type"`
	Icon        string            `json:"icon,omitempty" db:"icon"`
	Description string            `json:"description,omitempty" db:"description"`
	Enabled     bool              `json:"enabled" db:"enabled"`
	SortOrder   int               `json:"sortOrder" db:"sort_order"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
}

// PaymentMethodInput is the admin payload for payment methods.
type PaymentMethodInput struct {
	Name        string            `json:"name" validate:"required,notblank,max=64"`
	Type        PaymentMethodType `json:"type" validate:"required,oneof=card upi netbanking wallet cod emi"`
	Icon        string            `json:"icon" validate:"max=255"`
	Description string            `json:"description" validate:"max=255"`
	Enabled     *bool             `json:"enabled,omitempty"`
	SortOrder   int               `json:"sortOrder"`
}

// CheckoutState is the progress of a gateway-backed checkout.
type CheckoutState string

const (
	CheckoutInitiated    CheckoutState = "INITIATED"
	CheckoutAuthorized   CheckoutState = "AUTHORIZED"
	CheckoutVerified     CheckoutState = "VERIFIED"
	CheckoutOrderCreated CheckoutState = "ORDER_CREATED"
	CheckoutFailed       CheckoutState = "FAILED"
)

// GatewayHandle is what a client needs to complete payment with the gateway.
type GatewayHandle struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// VerificationPayload is the client callback after the gateway step.
type VerificationPayload struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// CreateGatewayOrderRequest asks the gateway for a bare authorisation.
type CreateGatewayOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

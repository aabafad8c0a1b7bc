package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

// Order statuses. Delivered and cancelled are terminal.
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending: {
		OrderStatusProcessing: true,
		OrderStatusCancelled:  true,
	},
	OrderStatusProcessing: {
		OrderStatusShipped:   true,
		OrderStatusCancelled: true,
	},
	OrderStatusShipped: {
		OrderStatusDelivered: true,
	},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return orderTransitions[from][to]
}

// ParseOrderStatus validates a status string.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch status := OrderStatus(s); status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return status, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions exist.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// Cancellable reports whether a customer may still cancel.
func (s OrderStatus) Cancellable() bool {
	return CanTransition(s, OrderStatusCancelled)
}

// PaymentStatus tracks whether funds for an order were collected.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// ReturnReason is the customer supplied cause of a return.
type ReturnReason string

const (
	ReturnReasonDefective     ReturnReason = "defective"
	ReturnReasonWrongItem     ReturnReason = "wrong-item"
	ReturnReasonDamaged       ReturnReason = "damaged"
	ReturnReasonNotAsExpected ReturnReason = "not-as-expected"
	ReturnReasonOther         ReturnReason = "other"
)

// ParseReturnReason validates a return reason.
func ParseReturnReason(s string) (ReturnReason, bool) {
	switch r := ReturnReason(s); r {
	case ReturnReasonDefective, ReturnReasonWrongItem, ReturnReasonDamaged, ReturnReasonNotAsExpected, ReturnReasonOther:
		return r, true
	}
	return "", false
}

// OrderLineSnapshot is a copy of a cart line taken at checkout. It is never
// joined back to the live product, so later catalogue edits do not change
// historical orders.
type OrderLineSnapshot struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// LineTotal returns price × quantity.
func (l OrderLineSnapshot) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ShippingAddress is the delivery destination captured at checkout.
type ShippingAddress struct {
	Name       string `json:"name" validate:"required,notblank"`
	Address    string `json:"address" validate:"required,notblank"`
	City       string `json:"city" validate:"required,notblank"`
	State      string `json:"state" validate:"required,notblank"`
	PostalCode string `json:"postalCode" validate:"required,notblank"`
	Phone      string `json:"phone" validate:"required,notblank"`
}

// OrderSummary holds the monetary breakdown of an order.
type OrderSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ReturnRequest records a customer return on a delivered order.
type ReturnRequest struct {
	Reason      ReturnReason `json:"reason"`
	Comments    string       `json:"comments,omitempty"`
	RequestedAt time.Time    `json:"requestedAt"`
}

// TimelineEntry is one status change in an order's history.
type TimelineEntry struct {
	Status OrderStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
	At     time.Time   `json:"at"`
}

// Order represents a placed customer order.
type Order struct {
	ID               uuid.UUID           `json:"orderId" db:"id"`
	UserID           string              `json:"userId" db:"user_id"`
	ContactEmail     string              `json:"contactEmail,omitempty" db:"contact_email"`
	Items            []OrderLineSnapshot `json:"items"`
	Shipping         ShippingAddress     `json:"shippingAddress"`
	PaymentMethod    PaymentMethodType   `json:"paymentMethod" db:"payment_method"`
	PaymentStatus    PaymentStatus       `json:"paymentStatus" db:"payment_status"`
	GatewayOrderID   *string             `json:"gatewayOrderId,omitempty" db:"gateway_order_id"`
	GatewayPaymentID *string             `json:"gatewayPaymentId,omitempty" db:"gateway_payment_id"`
	Summary          OrderSummary        `json:"summary"`
	Status           OrderStatus         `json:"status" db:"status"`
	VoucherCode      *string             `json:"voucherCode,omitempty" db:"voucher_code"`
	// VoucherOverLimit marks a paid order whose voucher could not be
	// redeemed when the order was written. The discount was still honoured.
	VoucherOverLimit bool                `json:"voucherOverLimit,omitempty" db:"voucher_over_limit"`
	Return           *ReturnRequest      `json:"returnRequest,omitempty"`
	Timeline         []TimelineEntry     `json:"timeline,omitempty"`
	CreatedAt        time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time           `json:"updatedAt" db:"updated_at"`
}

// OrderCreateRequest is the fully assembled, priced order ready to persist.
type OrderCreateRequest struct {
	UserID           string              `json:"userId"`
	ContactEmail     string              `json:"contactEmail,omitempty"`
	Items            []OrderLineSnapshot `json:"items"`
	Shipping         ShippingAddress     `json:"shipping"`
	PaymentMethod    PaymentMethodType   `json:"paymentMethod"`
	PaymentStatus    PaymentStatus       `json:"paymentStatus"`
	GatewayOrderID   *string             `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string             `json:"gatewayPaymentId,omitempty"`
	Summary          OrderSummary        `json:"summary"`
	VoucherCode      *string             `json:"voucherCode,omitempty"`
}

// OrderRequest represents the request payload for placing an order.
// Items are optional; the caller's stored cart is used when omitted.
type OrderRequest struct {
	Items       []OrderItemRequest `json:"items,omitempty"`
	Shipping    ShippingAddress    `json:"shipping"`
	Payment     PaymentSelection   `json:"payment"`
	VoucherCode *string            `json:"voucherCode,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PaymentSelection is the payment method chosen at checkout.
type PaymentSelection struct {
	Method PaymentMethodType `json:"method"`
}

// StatusUpdateRequest is the admin payload for advancing an order.
type StatusUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// ReturnRequestInput is the customer payload for requesting a return.
type ReturnRequestInput struct {
	Reason   string `json:"reason"`
	Comments string `json:"comments"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status *OrderStatus
	UserID string
	Limit  int
	Offset int
}

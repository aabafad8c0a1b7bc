package model

import "fmt"

// ErrorKind classifies a domain error for transport mapping.
type ErrorKind string

// Error kinds surfaced to API callers.
const (
	KindValidation    ErrorKind = "VALIDATION_ERROR"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindStateConflict ErrorKind = "STATE_CONFLICT"
	KindExternal      ErrorKind = "EXTERNAL_FAILURE"
	KindAuthorization ErrorKind = "AUTHORIZATION_ERROR"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInvalidCode          = "INVALID_CODE"
	ErrCodeExpired              = "EXPIRED"
	ErrCodeBelowMinimum         = "BELOW_MINIMUM"
	ErrCodeLimitReached         = "LIMIT_REACHED"
	ErrCodeDuplicateCoupon      = "DUPLICATE_COUPON"
	ErrCodeCouponNotFound       = "COUPON_NOT_FOUND"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeInvalidShipping      = "INVALID_SHIPPING"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeCartLineNotFound     = "CART_LINE_NOT_FOUND"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeNotCancellable       = "NOT_CANCELLABLE"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeNotReturnable        = "NOT_RETURNABLE"
	ErrCodeInvalidReturnReason  = "INVALID_RETURN_REASON"
	ErrCodePaymentMethodInvalid = "PAYMENT_METHOD_UNAVAILABLE"
	ErrCodePaymentMethodMissing = "PAYMENT_METHOD_NOT_FOUND"
	ErrCodeSessionNotFound      = "CHECKOUT_SESSION_NOT_FOUND"
	ErrCodePaymentFailed        = "PAYMENT_FAILED"
	ErrCodeGatewayUnavailable   = "GATEWAY_UNAVAILABLE"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// DomainError is a business rule failure with a stable code.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  []string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on kind and code so errors carrying a formatted message still
// compare equal to the sentinel they were derived from.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithMessage returns a copy of the error with a new message.
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithFields returns a copy of the error naming the offending fields.
func (e *DomainError) WithFields(fields ...string) *DomainError {
	cp := *e
	cp.Fields = append([]string(nil), fields...)
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidInput = NewDomainError(KindValidation, ErrCodeInvalidInput, "Request is invalid")

	ErrInvalidCouponCode = NewDomainError(KindNotFound, ErrCodeInvalidCode, "Coupon code is invalid")
	ErrCouponExpired     = NewDomainError(KindValidation, ErrCodeExpired, "Coupon is not valid at this time")
	ErrBelowMinimum      = NewDomainError(KindValidation, ErrCodeBelowMinimum, "Cart total is below the coupon minimum")
	ErrLimitReached      = NewDomainError(KindValidation, ErrCodeLimitReached, "Coupon usage limit has been reached")
	ErrDuplicateCoupon   = NewDomainError(KindStateConflict, ErrCodeDuplicateCoupon, "A coupon with this code already exists")
	ErrCouponNotFound    = NewDomainError(KindNotFound, ErrCodeCouponNotFound, "Coupon not found")

	ErrEmptyCart       = NewDomainError(KindValidation, ErrCodeEmptyCart, "Cart is empty")
	ErrInvalidShipping = NewDomainError(KindValidation, ErrCodeInvalidShipping, "Shipping details are incomplete")
	ErrInvalidQuantity = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrProductNotFound = NewDomainError(KindNotFound, ErrCodeProductNotFound, "One or more products not found")
	ErrCartLineMissing = NewDomainError(KindNotFound, ErrCodeCartLineNotFound, "Product is not in the cart")

	ErrOrderNotFound       = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrNotCancellable      = NewDomainError(KindStateConflict, ErrCodeNotCancellable, "Order can no longer be cancelled")
	ErrInvalidTransition   = NewDomainError(KindStateConflict, ErrCodeInvalidTransition, "Order status change is not allowed")
	ErrInvalidStatus       = NewDomainError(KindValidation, ErrCodeInvalidStatus, "Unknown order status")
	ErrNotReturnable       = NewDomainError(KindStateConflict, ErrCodeNotReturnable, "Only delivered orders can be returned once")
	ErrInvalidReturnReason = NewDomainError(KindValidation, ErrCodeInvalidReturnReason, "Return reason must be one of defective, wrong-item, damaged, not-as-expected, other")

	ErrPaymentMethodUnavailable = NewDomainError(KindValidation, ErrCodePaymentMethodInvalid, "Payment method is not available")
	ErrPaymentMethodNotFound    = NewDomainError(KindNotFound, ErrCodePaymentMethodMissing, "Payment method not found")
	ErrSessionNotFound          = NewDomainError(KindNotFound, ErrCodeSessionNotFound, "Checkout session not found or expired")
	ErrPaymentFailed            = NewDomainError(KindExternal, ErrCodePaymentFailed, "Payment could not be verified")
	ErrGatewayUnavailable       = NewDomainError(KindExternal, ErrCodeGatewayUnavailable, "Payment gateway is unavailable")
	ErrInvalidSignature         = NewDomainError(KindValidation, ErrCodeInvalidSignature, "Webhook signature is invalid")
	ErrInvalidAmount            = NewDomainError(KindValidation, ErrCodeInvalidAmount, "Amount must be greater than zero")

	ErrUnauthorised = NewDomainError(KindAuthorization, ErrCodeUnauthorised, "Authentication required")
	ErrForbidden    = NewDomainError(KindAuthorization, ErrCodeForbidden, "You are not allowed to perform this action")
)

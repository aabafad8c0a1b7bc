package handler

import (
	"io"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

const maxWebhookBytes = 64 << 10

// PaymentHandler handles gateway payment requests and callbacks.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// CreateOrder handles POST /api/payments/create-order requests.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.CreateGatewayOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	handle, err := h.service.CreateGatewayOrder(r.Context(), actor.UserID, req.Amount)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, handle)
}

// Verify handles POST /api/payments/verify-payment requests.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var payload model.VerificationPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err, h.logger)
		return
	}

	res, err := h.service.Verify(r.Context(), actor.UserID, payload)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if res.Pending {
		writeJSON(w, http.StatusAccepted, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Webhook handles POST /api/payments/webhook requests. The raw body is
// passed on untouched so the signature can be checked against it.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, model.ErrInvalidInput.WithMessage("Webhook payload could not be read"), h.logger)
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(payment.SignatureHeader)); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

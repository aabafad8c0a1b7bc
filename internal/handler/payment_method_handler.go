package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// PaymentMethodHandler exposes the payment method catalogue.
type PaymentMethodHandler struct {
	service service.PaymentMethodService
	logger  zerolog.Logger
}

// NewPaymentMethodHandler creates a new payment method handler.
func NewPaymentMethodHandler(service service.PaymentMethodService, logger zerolog.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment-method").Logger(),
	}
}

// ListEnabled handles GET /api/payment-methods requests.
func (h *PaymentMethodHandler) ListEnabled(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// ListAll handles GET /api/admin/payment-methods requests.
func (h *PaymentMethodHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *PaymentMethodHandler) list(w http.ResponseWriter, r *http.Request, enabledOnly bool) {
	methods, err := h.service.List(r.Context(), enabledOnly)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if methods == nil {
		methods = []model.PaymentMethod{}
	}

	writeJSON(w, http.StatusOK, methods)
}

// Create handles POST /api/admin/payment-methods requests.
func (h *PaymentMethodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.PaymentMethodInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, h.logger)
		return
	}

	m, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// Update handles PUT /api/admin/payment-methods/{id} requests.
func (h *PaymentMethodHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var in model.PaymentMethodInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, h.logger)
		return
	}

	m, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /api/admin/payment-methods/{id} requests.
func (h *PaymentMethodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

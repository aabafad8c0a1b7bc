package handler

import (
	"net/http"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	orders   service.OrderService
	checkout service.CheckoutService
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders service.OrderService, checkout service.CheckoutService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		checkout: checkout,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests. Cash on delivery answers 201
// with the order; gateway methods answer 202 with the payment handle.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	outcome, err := h.checkout.PlaceOrder(r.Context(), actor, cart.UserOwner(actor.UserID), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	status := http.StatusCreated
	if outcome.Order == nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orders, total, err := h.orders.List(r.Context(), actor, limit, offset)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newOrderPage(orders, total, limit, offset))
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.orders.GetByID(r.Context(), actor, orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles PUT /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.orders.Cancel(r.Context(), actor, orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// RequestReturn handles POST /api/orders/{id}/return requests.
func (h *OrderHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var in model.ReturnRequestInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.orders.RequestReturn(r.Context(), actor, orderID, in)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/orders/{id}/status requests. Admin only.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListAll handles GET /api/admin/orders requests with optional status and
// userId filters.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	filter := model.OrderFilter{
		UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := model.ParseOrderStatus(raw)
		if !ok {
			writeError(w, model.ErrInvalidStatus.WithFields("status"), h.logger)
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.orders.ListAll(r.Context(), filter)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newOrderPage(orders, total, limit, offset))
}

func newOrderPage(orders []model.Order, total, limit, offset int) Page[model.Order] {
	if orders == nil {
		orders = []model.Order{}
	}
	return Page[model.Order]{Items: orders, Total: total, Limit: limit, Offset: offset}
}

package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// CouponHandler handles coupon validation and admin coupon management.
type CouponHandler struct {
	service service.CouponService
	logger  zerolog.Logger
}

// NewCouponHandler creates a new coupon handler.
func NewCouponHandler(service service.CouponService, logger zerolog.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		logger:  logger.With().Str("handler", "coupon").Logger(),
	}
}

// Validate handles POST /api/coupons/validate requests.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.CouponValidationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	res, err := h.service.Validate(r.Context(), req.Code, req.CartTotal)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// List handles GET /api/admin/coupons requests.
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if coupons == nil {
		coupons = []model.Coupon{}
	}

	writeJSON(w, http.StatusOK, coupons)
}

// Create handles POST /api/admin/coupons requests.
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.CouponInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, h.logger)
		return
	}

	c, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/admin/coupons/{id} requests.
func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var in model.CouponInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, h.logger)
		return
	}

	c, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/admin/coupons/{id} requests.
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

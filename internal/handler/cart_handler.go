package handler

import (
	"net/http"
	"strings"
	"time"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartHandler handles cart and wishlist requests for users and guests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// CartResponse is a cart with its derived totals.
type CartResponse struct {
	Owner     string          `json:"owner"`
	Lines     []cart.Line     `json:"lines"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

func newCartResponse(c *cart.Cart) CartResponse {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return CartResponse{
		Owner:     c.Owner,
		Lines:     lines,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
		UpdatedAt: c.UpdatedAt,
	}
}

// cartOwner resolves whose cart a request addresses: the bearer's when
// authenticated, otherwise the guest session.
func cartOwner(r *http.Request) (string, error) {
	if actor, ok := middleware.ActorFrom(r.Context()); ok && actor.UserID != "" {
		return cart.UserOwner(actor.UserID), nil
	}
	if session := strings.TrimSpace(r.Header.Get(middleware.SessionHeader)); session != "" {
		return cart.GuestOwner(session), nil
	}
	return "", model.ErrUnauthorised.WithMessage("Sign in or send an %s header", middleware.SessionHeader)
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	c, err := h.service.Get(r.Context(), owner)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// AddItem handles POST /api/cart/items requests.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		writeError(w, model.ErrInvalidInput.WithMessage("productId is required").WithFields("productId"), h.logger)
		return
	}

	c, err := h.service.AddItem(r.Context(), owner, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// UpdateItem handles PUT /api/cart/items/{productId} requests.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	c, err := h.service.UpdateItem(r.Context(), owner, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// RemoveItem handles DELETE /api/cart/items/{productId} requests.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	c, err := h.service.RemoveItem(r.Context(), owner, chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// Clear handles DELETE /api/cart requests.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.Clear(r.Context(), owner); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(cart.New(owner)))
}

// Merge handles POST /api/cart/merge requests. It needs both a bearer token
// and the guest session that built the cart before sign-in.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	session := strings.TrimSpace(r.Header.Get(middleware.SessionHeader))
	if session == "" {
		writeError(w, model.ErrInvalidInput.WithMessage("%s header is required", middleware.SessionHeader).WithFields(middleware.SessionHeader), h.logger)
		return
	}

	c, err := h.service.Merge(r.Context(), cart.GuestOwner(session), cart.UserOwner(actor.UserID))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// Wishlist handles GET /api/wishlist requests.
func (h *CartHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.writeWishlist(w, r, owner)
}

// AddToWishlist handles POST /api/wishlist requests.
func (h *CartHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req wishlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.AddToWishlist(r.Context(), owner, req.ProductID); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.writeWishlist(w, r, owner)
}

// RemoveFromWishlist handles DELETE /api/wishlist/{productId} requests.
func (h *CartHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.RemoveFromWishlist(r.Context(), owner, chi.URLParam(r, "productId")); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.writeWishlist(w, r, owner)
}

func (h *CartHandler) writeWishlist(w http.ResponseWriter, r *http.Request, owner string) {
	products, err := h.service.Wishlist(r.Context(), owner)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

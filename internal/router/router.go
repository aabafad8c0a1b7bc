package router

import (
	"net/http"
	"time"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/payment"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Health        *handler.HealthHandler
	Product       *handler.ProductHandler
	Cart          *handler.CartHandler
	Coupon        *handler.CouponHandler
	PaymentMethod *handler.PaymentMethodHandler
	Order         *handler.OrderHandler
	Payment       *handler.PaymentHandler
}

// Options configures cross-cutting router behaviour.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, auth *middleware.Auth, opts Options, logger zerolog.Logger) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.SessionHeader, payment.SignatureHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		// Catalogue and coupon checks are open to everyone.
		r.Get("/products", h.Product.GetAll)
		r.Get("/products/{id}", h.Product.GetByID)
		r.Post("/coupons/validate", h.Coupon.Validate)
		r.Get("/payment-methods", h.PaymentMethod.ListEnabled)

		// Signed by the gateway, not by a shopper.
		r.Post("/payments/webhook", h.Payment.Webhook)

		// Guests address their cart with X-Session-ID.
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)

			r.Get("/cart", h.Cart.Get)
			r.Delete("/cart", h.Cart.Clear)
			r.Post("/cart/items", h.Cart.AddItem)
			r.Put("/cart/items/{productId}", h.Cart.UpdateItem)
			r.Delete("/cart/items/{productId}", h.Cart.RemoveItem)

			r.Get("/wishlist", h.Cart.Wishlist)
			r.Post("/wishlist", h.Cart.AddToWishlist)
			r.Delete("/wishlist/{productId}", h.Cart.RemoveFromWishlist)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Required)

			r.Post("/cart/merge", h.Cart.Merge)

			r.Post("/orders", h.Order.Create)
			r.Get("/orders", h.Order.List)
			r.Get("/orders/{id}", h.Order.GetByID)
			r.Put("/orders/{id}/cancel", h.Order.Cancel)
			r.Post("/orders/{id}/return", h.Order.RequestReturn)

			r.Post("/payments/create-order", h.Payment.CreateOrder)
			r.Post("/payments/verify-payment", h.Payment.Verify)

			r.With(middleware.RequireAdmin).Put("/orders/{id}/status", h.Order.UpdateStatus)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/orders", h.Order.ListAll)

				r.Get("/coupons", h.Coupon.List)
				r.Post("/coupons", h.Coupon.Create)
				r.Put("/coupons/{id}", h.Coupon.Update)
				r.Delete("/coupons/{id}", h.Coupon.Delete)

				r.Get("/payment-methods", h.PaymentMethod.ListAll)
				r.Post("/payment-methods", h.PaymentMethod.Create)
				r.Put("/payment-methods/{id}", h.PaymentMethod.Update)
				r.Delete("/payment-methods/{id}", h.PaymentMethod.Delete)
			})
		})
	})

	return r
}

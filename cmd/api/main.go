package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/coupon"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/validation"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Repositories and stores
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	paymentMethodRepo := repository.NewPaymentMethodRepository(pool, logger)

	cartStore := cart.NewRedisStore(rdb, cfg.Checkout.CartTTL, logger)
	wishlist := cart.NewRedisWishlist(rdb)
	sessionStore := payment.NewRedisSessionStore(rdb, cfg.Checkout.SessionTTL)

	if len(cfg.Coupon.ImportFiles) > 0 {
		if err := importCoupons(ctx, cfg, couponRepo, logger); err != nil {
			return err
		}
	}

	var gateway payment.Gateway
	if cfg.Stripe.Enabled() {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, logger)
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set, only cash on delivery is accepted")
	}

	notifier := notify.NewNop()
	if cfg.SMTP.Enabled {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger)
	}

	// Services
	inputs := validation.New()
	couponValidator := coupon.NewValidator(couponRepo, logger)
	assembler := checkout.NewAssembler(checkout.Pricing{
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		FlatShippingFee:       cfg.Checkout.FlatShippingFee,
	}, inputs)

	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartStore, wishlist, productRepo, logger)
	couponService := service.NewCouponService(couponRepo, couponValidator, inputs, logger)
	paymentMethodService := service.NewPaymentMethodService(paymentMethodRepo, inputs, logger)
	orderService := service.NewOrderService(orderRepo, couponRepo, notifier, logger)
	defer orderService.Close()

	dispatcher := payment.NewDispatcher(paymentMethodRepo, orderService, cartStore, sessionStore, gateway, cfg.Checkout.Currency, logger)
	checkoutService := service.NewCheckoutService(productService, cartStore, couponValidator, assembler, dispatcher, logger)

	// HTTP
	handlers := router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, logger),
		Product:       handler.NewProductHandler(productService, logger),
		Cart:          handler.NewCartHandler(cartService, logger),
		Coupon:        handler.NewCouponHandler(couponService, logger),
		PaymentMethod: handler.NewPaymentMethodHandler(paymentMethodService, logger),
		Order:         handler.NewOrderHandler(orderService, checkoutService, logger),
		Payment:       handler.NewPaymentHandler(dispatcher, logger),
	}

	mux := router.New(handlers, middleware.NewAuth(cfg.Auth.JWTSecret, logger), router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Bool("gateway_enabled", dispatcher.GatewayEnabled()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// importCoupons upserts the configured coupon catalogue files, reading them
// from S3 when enabled and from the local file system otherwise.
func importCoupons(ctx context.Context, cfg *config.Config, store coupon.Upserter, logger zerolog.Logger) error {
	var remote coupon.Loader
	if cfg.S3.Enabled {
		l, err := coupon.NewS3Loader(ctx, coupon.S3Location{
			Bucket: cfg.S3.Bucket,
			Region: cfg.S3.Region,
			Prefix: cfg.S3.Prefix,
		}, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			remote = l
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}

	loader := coupon.NewFallbackLoader(remote, coupon.NewFileLoader(logger), logger)

	stats, err := coupon.NewImporter(loader, store, logger).Import(ctx, cfg.Coupon.ImportFiles)
	if err != nil {
		return fmt.Errorf("failed to import coupon catalogue: %w", err)
	}

	logger.Info().
		Int("files", stats.Files).
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Msg("coupon catalogue imported")
	return nil
}

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

	"github.com/bastianbarami/aibe-checkout/internal"
	"github.com/bastianbarami/aibe-checkout/internal/billing"
	"github.com/bastianbarami/aibe-checkout/internal/handler"
	"github.com/bastianbarami/aibe-checkout/internal/handler/webhook"
	"github.com/bastianbarami/aibe-checkout/internal/middleware"
	"github.com/bastianbarami/aibe-checkout/internal/relay"
	"github.com/bastianbarami/aibe-checkout/internal/router"
	"github.com/bastianbarami/aibe-checkout/internal/routes"
	"github.com/bastianbarami/aibe-checkout/internal/service"
	"github.com/bastianbarami/aibe-checkout/internal/telemetry"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Stripe billing provider
	stripeConfig := billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}
	billingProvider, err := billing.NewStripeProvider(stripeConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize Stripe provider: %w", err)
	}
	logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())

	// Metrics
	telemetry.InitBusinessMetrics("checkout")
	httpMetrics := middleware.NewMetrics("checkout")

	// Plan catalog
	catalog := service.NewPlanCatalog(
		service.PlanPrices{
			OneTimePriceID: cfg.Plans.OneTimePriceID,
			Split2PriceID:  cfg.Plans.Split2PriceID,
			Split3PriceID:  cfg.Plans.Split3PriceID,
		},
		service.PlanAmounts{
			OneTimeCents: cfg.Plans.OneTimeAmountCents,
			Split2Cents:  cfg.Plans.Split2AmountCents,
			Split3Cents:  cfg.Plans.Split3AmountCents,
			Currency:     cfg.Plans.Currency,
		},
	)

	// Downstream relay for confirmed purchases
	var notifier relay.Notifier
	if cfg.Relay.URL != "" {
		notifier = relay.NewWebhookNotifier(cfg.Relay.URL, time.Duration(cfg.Relay.TimeoutSeconds)*time.Second, logger)
	} else {
		logger.Warn("no relay URL configured, confirmed purchases will not be relayed")
		notifier = relay.NoopNotifier{}
	}

	// Services
	checkoutService := service.NewCheckoutService(billingProvider, catalog, service.CheckoutConfig{BaseURL: cfg.BaseURL}, logger)
	confirmService := service.NewConfirmationService(billingProvider, catalog, notifier, logger)
	reconciler := service.NewReconciler(billingProvider, logger)

	// Handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	confirmHandler := handler.NewConfirmHandler(confirmService)
	webhookHandler := webhook.NewStripeHandler(billingProvider, reconciler, logger)

	// Router with global middleware
	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		middleware.Recover,
		middleware.AccessLog,
		httpMetrics.Middleware,
	)

	routes.Register(r, routes.Deps{
		Checkout:       checkoutHandler,
		Confirm:        confirmHandler,
		Webhook:        webhookHandler,
		CORS:           middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}),
		MetricsHandler: httpMetrics.Handler(),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

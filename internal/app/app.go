// Package app wires configuration, storage, domain services, and the HTTP
// server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lavandier/parfum-shop/internal/carrier"
	"github.com/lavandier/parfum-shop/internal/domain/coupon"
	"github.com/lavandier/parfum-shop/internal/domain/order"
	"github.com/lavandier/parfum-shop/internal/domain/payment"
	"github.com/lavandier/parfum-shop/internal/domain/shipping"
	"github.com/lavandier/parfum-shop/internal/gateway/sandbox"
	"github.com/lavandier/parfum-shop/internal/handler"
	"github.com/lavandier/parfum-shop/internal/repository"
	"github.com/lavandier/parfum-shop/pkg/health"
	"github.com/lavandier/parfum-shop/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabaseCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	variantRepo := repository.NewVariantRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	addressRepo := repository.NewAddressRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Carrier rate lookup is optional; without it the estimator quotes only
	// its fallback tiers.
	var rateClient shipping.RateClient
	if cfg.Carrier.BaseURL != "" {
		c, err := carrier.New(carrier.Config{
			BaseURL: cfg.Carrier.BaseURL,
			Timeout: cfg.Carrier.Timeout,
		})
		if err != nil {
			return errors.Wrap(err, "create carrier client")
		}
		rateClient = c
	}
	estimator := shipping.NewEstimator(rateClient, estimatorConfig(cfg.Shipping))

	var gateway payment.Gateway
	if cfg.Payment.BaseURL != "" {
		gateway, err = sandbox.New(sandbox.Config{
			BaseURL: cfg.Payment.BaseURL,
			Token:   cfg.Payment.Token,
			Timeout: cfg.Payment.Timeout,
		})
		if err != nil {
			return errors.Wrap(err, "create payment gateway")
		}
	} else {
		lg.Warn("Payment gateway not configured, orders will report payment errors")
		gateway = unconfiguredGateway{}
	}

	// Domain services.
	couponValidator := coupon.NewValidator(couponRepo)
	orderService := order.NewService(
		addressRepo, variantRepo, estimator, couponValidator,
		orderRepo, paymentRepo, gateway,
	)

	// HTTP handlers.
	h := handler.NewHandler(variantRepo, estimator, cartRepo, orderService, paymentRepo)
	securityHandler := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))

	apiMux := http.NewServeMux()
	h.Routes(apiMux)

	// Probes stay outside the API prefix: no auth, no rate limit.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", httpmiddleware.Wrap(apiMux,
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		securityHandler.RequireAPIKey,
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "api_key"},
				MaxAge:       86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("parfum-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// estimatorConfig converts the flat configuration knobs into the estimator's
// tier table.
func estimatorConfig(cfg ShippingConfig) shipping.Config {
	return shipping.Config{
		OriginPostalCode:      cfg.OriginPostalCode,
		FreeShippingThreshold: decimal.NewFromFloat(cfg.FreeShippingThreshold),
		DefaultLeadTimeDays:   cfg.DefaultLeadTimeDays,
		FallbackTiers: []shipping.Tier{
			{
				Carrier:      "parfum-shop",
				Service:      "economy",
				Base:         decimal.NewFromFloat(cfg.EconomyBase),
				PerKg:        decimal.NewFromFloat(cfg.EconomyPerKg),
				ValueRate:    decimal.NewFromFloat(cfg.EconomyValueRate),
				LeadTimeDays: cfg.EconomyLeadDays,
			},
			{
				Carrier:      "parfum-shop",
				Service:      "express",
				Base:         decimal.NewFromFloat(cfg.ExpressBase),
				PerKg:        decimal.NewFromFloat(cfg.ExpressPerKg),
				ValueRate:    decimal.NewFromFloat(cfg.ExpressValueRate),
				LeadTimeDays: cfg.ExpressLeadDays,
			},
		},
		DefaultOption: shipping.Option{
			Carrier:      "parfum-shop",
			Service:      "flat-rate",
			Price:        decimal.NewFromFloat(cfg.FlatRatePrice),
			LeadTimeDays: cfg.FlatRateLeadDays,
		},
	}
}

// unconfiguredGateway fails every call; the order workflow absorbs the
// failure and reports it as a payment error on the created order.
type unconfiguredGateway struct{}

func (unconfiguredGateway) CreatePreference(context.Context, payment.PreferenceRequest) (*payment.Preference, error) {
	return nil, errors.New("payment gateway not configured")
}

func (unconfiguredGateway) CheckStatus(context.Context, string) (payment.Status, error) {
	return "", errors.New("payment gateway not configured")
}

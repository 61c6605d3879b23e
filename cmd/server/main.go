package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/promoforge/promoforge/internal"
	"github.com/promoforge/promoforge/internal/ai"
	"github.com/promoforge/promoforge/internal/ai/gateway"
	"github.com/promoforge/promoforge/internal/ai/mock"
	"github.com/promoforge/promoforge/internal/billing"
	"github.com/promoforge/promoforge/internal/coupon"
	"github.com/promoforge/promoforge/internal/handler"
	"github.com/promoforge/promoforge/internal/metrics"
	"github.com/promoforge/promoforge/internal/middleware"
	"github.com/promoforge/promoforge/internal/repository"
	"github.com/promoforge/promoforge/internal/service"
	"github.com/promoforge/promoforge/internal/storage"
)

// sessionCleanupInterval is how often expired sessions are purged.
const sessionCleanupInterval = time.Hour

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Migrations run through database/sql; the application itself uses
	// a pgx pool.
	migrationDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := internal.RunMigrations(migrationDB); err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	_ = migrationDB.Close()

	pool, err := repository.Connect(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database pool failed: %w", err)
	}
	defer pool.Close()
	logger.Info("database ready")

	// Stores
	usageStore := repository.NewUsageStore(pool)
	userStore := repository.NewUserStore(pool)
	generationStore := repository.NewGenerationStore(pool)
	productStore := repository.NewProductStore(pool)

	// Asset storage
	assets, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("storage ready", "provider", cfg.StorageProvider)

	// AI provider
	provider, err := newAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("ai provider initialization failed: %w", err)
	}
	logger.Info("ai provider ready", "provider", cfg.AIProvider)

	// Billing is optional; without Stripe keys every user stays on the
	// free tier unless a coupon says otherwise.
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.ProductConfig{
			ProProductID: cfg.StripeProProductID,
			MaxProductID: cfg.StripeMaxProductID,
		})
		logger.Info("stripe billing enabled")
	} else {
		logger.Warn("stripe billing disabled, tiers come from coupons only")
	}

	// Services
	userService := service.NewUserService(userStore, logger)
	quotaService := service.NewQuotaService(usageStore, logger)
	entitlementService := service.NewEntitlementService(usageStore, userStore, billingService, logger)
	couponService := service.NewCouponService(coupon.NewValidator(cfg.ValidCouponCodes), usageStore, logger)
	generationService := service.NewGenerationService(quotaService, provider, generationStore, assets, logger)
	productService := service.NewProductService(quotaService, productStore, logger)

	// Middleware
	isSecure := cfg.Env != internal.EnvDevelopment
	authMw := middleware.NewAuthMiddleware(userService, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Handlers
	authHandler := handler.NewAuthHandler(userService, authLimiter, logger)
	usageHandler := handler.NewUsageHandler(quotaService, entitlementService, couponService, logger)
	generateHandler := handler.NewGenerateHandler(generationService, logger)
	productHandler := handler.NewProductHandler(productService, logger)
	billingHandler := handler.NewBillingHandler(billingService, usageStore, handler.BillingConfig{
		ProPriceID: cfg.StripeProPriceID,
		MaxPriceID: cfg.StripeMaxPriceID,
		AppBaseURL: cfg.AppBaseURL,
	}, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, entitlementService, usageStore, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Public routes
	public := middleware.Stack(loggingMw.Handler, securityMw.Handler, metrics.Middleware)
	mux.Handle("POST /api/auth/register", public(authLimiter.LimitRegister(http.HandlerFunc(authHandler.HandleRegister))))
	mux.Handle("POST /api/auth/login", public(authLimiter.LimitLogin(http.HandlerFunc(authHandler.HandleLogin))))
	mux.Handle("POST /webhooks/stripe", public(http.HandlerFunc(webhookHandler.HandleStripeWebhook)))

	// Authenticated routes
	private := middleware.Stack(loggingMw.Handler, securityMw.Handler, metrics.Middleware,
		authMw.WithUser, authMw.RequireUser)

	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, private(h))
	}

	route("POST /api/auth/logout", authHandler.HandleLogout)
	route("GET /api/auth/me", authHandler.HandleMe)

	route("GET /api/usage", usageHandler.HandleGetUsage)
	route("GET /api/subscription", usageHandler.HandleGetSubscription)
	route("POST /api/coupon", usageHandler.HandleRedeemCoupon)

	route("POST /api/generate/copy", generateHandler.HandleGenerateCopy)
	route("POST /api/generate/content-marketing", generateHandler.HandleGenerateContentMarketing)
	route("POST /api/generate/brainstorm", generateHandler.HandleBrainstorm)
	route("POST /api/generate/image", generateHandler.HandleGenerateImage)
	route("GET /api/generations", generateHandler.HandleListGenerations)

	route("POST /api/products", productHandler.HandleCreateProduct)
	route("GET /api/products", productHandler.HandleListProducts)
	route("DELETE /api/products/{id}", productHandler.HandleDeleteProduct)

	route("POST /api/billing/checkout", billingHandler.HandleCreateCheckout)
	route("POST /api/billing/portal", billingHandler.HandleCreatePortal)

	// Locally stored assets are served straight off disk.
	if local, ok := assets.(*storage.LocalStorage); ok {
		mux.Handle("GET /files/", http.StripPrefix("/files/", local.FileServer()))
	}

	// Background loops
	if cfg.RefresherEnabled {
		refresher := service.NewRefresher(entitlementService, userStore, service.RefresherConfig{
			Interval: cfg.RefresherInterval,
			Window:   cfg.RefresherWindow,
		}, logger)
		go refresher.Run(ctx)
	}
	go sessionCleanupLoop(ctx, userService, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("graceful shutdown complete")
	return nil
}

func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

func newAIProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	if cfg.AIProvider == "gateway" {
		return gateway.New(gateway.Config{
			URL:        cfg.AIGatewayURL,
			APIKey:     cfg.AIGatewayAPIKey,
			TextModel:  cfg.AITextModel,
			ImageModel: cfg.AIImageModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
	}
	return mock.New(), nil
}

// sessionCleanupLoop purges expired sessions on a fixed cadence.
func sessionCleanupLoop(ctx context.Context, users service.UserService, logger *slog.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := users.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("expired sessions deleted", "count", deleted)
			}
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage
	LocalStorageURL  string // Base URL for accessing local files

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // Optional custom domain URL

	// AI Gateway Configuration
	AIProvider       string // "gateway" or "mock"
	AIGatewayURL     string
	AIGatewayAPIKey  string
	AITextModel      string
	AIImageModel     string
	AIMaxRetries     int
	AIRetryBaseDelay time.Duration
	AIRequestTimeout time.Duration

	// Coupon codes granting pro access outside Stripe
	ValidCouponCodes []string

	// Stripe Billing Configuration
	// Required in production; billing degrades to the free tier when empty.
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	// Stripe product IDs mapped to tiers
	StripeProProductID string
	StripeMaxProductID string

	// Stripe price IDs used when creating checkout sessions
	StripeProPriceID string
	StripeMaxPriceID string

	// AppBaseURL is the public URL of the frontend, used for checkout
	// and billing portal redirects.
	AppBaseURL string

	// Entitlement refresher (periodic re-resolution of tiers)
	RefresherEnabled  bool
	RefresherInterval time.Duration
	RefresherWindow   time.Duration // how far back "recently active" reaches

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", EnvDevelopment),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		// AI gateway defaults
		AIProvider:       getEnv("AI_PROVIDER", "mock"),
		AIGatewayURL:     getEnv("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		AIGatewayAPIKey:  getEnv("AI_GATEWAY_API_KEY", ""),
		AITextModel:      getEnv("AI_TEXT_MODEL", "google/gemini-2.5-flash"),
		AIImageModel:     getEnv("AI_IMAGE_MODEL", "google/gemini-2.5-flash-image-preview"),
		AIMaxRetries:     getEnvInt("AI_MAX_RETRIES", 3),
		AIRetryBaseDelay: getEnvDuration("AI_RETRY_BASE_DELAY", 1*time.Second),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),

		// Stripe billing (optional in development)
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeProProductID:  getEnv("STRIPE_PRO_PRODUCT_ID", ""),
		StripeMaxProductID:  getEnv("STRIPE_MAX_PRODUCT_ID", ""),
		StripeProPriceID:    getEnv("STRIPE_PRO_PRICE_ID", ""),
		StripeMaxPriceID:    getEnv("STRIPE_MAX_PRICE_ID", ""),
		AppBaseURL:          getEnv("APP_BASE_URL", "http://localhost:3000"),

		// Refresher defaults: re-resolve entitlements every minute for
		// users active in the last 24h, matching the client's 60s poll.
		RefresherEnabled:  getEnvBool("REFRESHER_ENABLED", true),
		RefresherInterval: getEnvDuration("REFRESHER_INTERVAL", 60*time.Second),
		RefresherWindow:   getEnvDuration("REFRESHER_WINDOW", 24*time.Hour),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Parse coupon codes from comma-separated environment variable
	couponsStr := getEnv("VALID_COUPON_CODES", "JESUSINTECH")
	for _, code := range strings.Split(couponsStr, ",") {
		trimmed := strings.TrimSpace(strings.ToUpper(code))
		if trimmed != "" {
			cfg.ValidCouponCodes = append(cfg.ValidCouponCodes, trimmed)
		}
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	// Validate AI provider configuration
	if cfg.AIProvider == "gateway" {
		if cfg.AIGatewayAPIKey == "" {
			return nil, fmt.Errorf("AI_GATEWAY_API_KEY is required when AI_PROVIDER is 'gateway'")
		}
	} else if cfg.AIProvider != "mock" {
		return nil, fmt.Errorf("AI_PROVIDER must be either 'gateway' or 'mock', got: %s", cfg.AIProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

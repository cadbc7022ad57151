package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string

	LemonWebhookSecret string
	LemonStoreURL      string

	GenerationBackendURL string
	DirectAPIKey         string
	DirectBaseURL        string
	DirectModel          string
	EnableLocalFallback  bool

	SiteURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load reads configuration from the environment and applies defaults where
// needed. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SupabaseURL:          os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:      os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceKey:   os.Getenv("SUPABASE_SERVICE_KEY"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceID:        os.Getenv("STRIPE_PRICE_ID"),
		LemonWebhookSecret:   os.Getenv("LEMON_WEBHOOK_SECRET"),
		LemonStoreURL:        os.Getenv("LEMON_STORE_URL"),
		GenerationBackendURL: os.Getenv("GENERATION_BACKEND_URL"),
		DirectAPIKey:         os.Getenv("DIRECT_API_KEY"),
		DirectBaseURL:        getEnv("DIRECT_BASE_URL", "https://api.openai.com/v1"),
		DirectModel:          getEnv("DIRECT_MODEL", "gpt-4o-mini"),
		EnableLocalFallback:  getEnvBool("ENABLE_LOCAL_FALLBACK", false),
		SiteURL:              getEnv("SITE_URL", "http://localhost:3000"),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}

	return cfg, nil
}

// StripeEnabled reports whether the Stripe integration is configured.
func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}

// LemonEnabled reports whether the Lemon Squeezy integration is configured.
func (c *Config) LemonEnabled() bool {
	return c.LemonWebhookSecret != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

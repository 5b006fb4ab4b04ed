package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds environment-driven configuration.
type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	Payment  PaymentConfig
	Checkout CheckoutConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Mock     MockConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Name        string
	Env         string
	Addr        string
	CORSOrigins string
}

// BackendConfig points at the FastAPI service that owns catalogue, orders and users.
type BackendConfig struct {
	BaseURL    string
	APIPrefix  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	RateLimit  float64 // requests per second, 0 = unlimited
	RateBurst  int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	Currency       string
	TestMode       bool
}

type PaymentConfig struct {
	Provider string // backend, stripe or mock
}

type CheckoutConfig struct {
	StepAttempts          int
	StepRetryDelay        time.Duration
	IdempotencyTTL        time.Duration
	ShippingFee           string
	FreeShippingThreshold string
	TaxRate               string
	DiscountCodes         map[string]string // code -> percent
}

// DatabaseConfig is optional; an empty URL keeps carts and mock data in memory.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig is optional; an empty Addr keeps idempotency keys in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MockConfig struct {
	Enabled    bool
	Seed       int64
	Products   int
	AllowReset bool
	Persist    bool
}

type MetricsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

const (
	ProviderBackend = "backend"
	ProviderStripe  = "stripe"
	ProviderMock    = "mock"
)

// Load reads configuration from .env, config.toml and FRESHCART_* environment
// variables, in increasing order of priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FRESHCART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Env:         v.GetString("app.env"),
			Addr:        v.GetString("app.addr"),
			CORSOrigins: v.GetString("app.cors_origins"),
		},
		Backend: BackendConfig{
			BaseURL:    v.GetString("backend.base_url"),
			APIPrefix:  v.GetString("backend.api_prefix"),
			Timeout:    v.GetDuration("backend.timeout"),
			MaxRetries: v.GetInt("backend.max_retries"),
			RetryDelay: v.GetDuration("backend.retry_delay"),
			MaxDelay:   v.GetDuration("backend.max_delay"),
			RateLimit:  v.GetFloat64("backend.rate_limit"),
			RateBurst:  v.GetInt("backend.rate_burst"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("stripe.secret_key"),
			PublishableKey: v.GetString("stripe.publishable_key"),
			Currency:       v.GetString("stripe.currency"),
			TestMode:       v.GetBool("stripe.test_mode"),
		},
		Payment: PaymentConfig{
			Provider: v.GetString("payment.provider"),
		},
		Checkout: CheckoutConfig{
			StepAttempts:          v.GetInt("checkout.step_attempts"),
			StepRetryDelay:        v.GetDuration("checkout.step_retry_delay"),
			IdempotencyTTL:        v.GetDuration("checkout.idempotency_ttl"),
			ShippingFee:           v.GetString("checkout.shipping_fee"),
			FreeShippingThreshold: v.GetString("checkout.free_shipping_threshold"),
			TaxRate:               v.GetString("checkout.tax_rate"),
			DiscountCodes:         v.GetStringMapString("checkout.discount_codes"),
		},
		Database: DatabaseConfig{
			URL:          v.GetString("database.url"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Mock: MockConfig{
			Enabled:    v.GetBool("mock.enabled"),
			Seed:       v.GetInt64("mock.seed"),
			Products:   v.GetInt("mock.products"),
			AllowReset: v.GetBool("mock.allow_reset"),
			Persist:    v.GetBool("mock.persist"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
		},
	}

	// mock fallback is on unless explicitly disabled
	if !v.IsSet("mock.enabled") {
		cfg.Mock.Enabled = true
	}
	if !v.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = true
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "freshcart-storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Addr == "" {
		cfg.App.Addr = ":8080"
	}
	if cfg.App.CORSOrigins == "" {
		cfg.App.CORSOrigins = "http://localhost:3000"
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
	}
	if cfg.Backend.APIPrefix == "" {
		cfg.Backend.APIPrefix = "/api/v1"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Backend.MaxRetries == 0 {
		cfg.Backend.MaxRetries = 2
	}
	if cfg.Backend.RetryDelay == 0 {
		cfg.Backend.RetryDelay = 300 * time.Millisecond
	}
	if cfg.Backend.MaxDelay == 0 {
		cfg.Backend.MaxDelay = 3 * time.Second
	}
	if cfg.Auth.JWTSecret == "" && cfg.App.Env == "development" {
		cfg.Auth.JWTSecret = "freshcart-dev-secret"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 72 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "freshcart-storefront"
	}
	if cfg.Stripe.Currency == "" {
		cfg.Stripe.Currency = "usd"
	}
	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = ProviderBackend
	}
	if cfg.Checkout.StepAttempts == 0 {
		cfg.Checkout.StepAttempts = 3
	}
	if cfg.Checkout.StepRetryDelay == 0 {
		cfg.Checkout.StepRetryDelay = 500 * time.Millisecond
	}
	if cfg.Checkout.IdempotencyTTL == 0 {
		cfg.Checkout.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Checkout.ShippingFee == "" {
		cfg.Checkout.ShippingFee = "5.99"
	}
	if cfg.Checkout.FreeShippingThreshold == "" {
		cfg.Checkout.FreeShippingThreshold = "50"
	}
	if cfg.Checkout.TaxRate == "" {
		cfg.Checkout.TaxRate = "0"
	}
	if len(cfg.Checkout.DiscountCodes) == 0 {
		cfg.Checkout.DiscountCodes = map[string]string{
			"FRESH10": "10",
			"WELCOME": "15",
		}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Mock.Seed == 0 {
		cfg.Mock.Seed = 42
	}
	if cfg.Mock.Products == 0 {
		cfg.Mock.Products = 48
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required outside development")
	}
	switch c.Payment.Provider {
	case ProviderBackend, ProviderMock:
	case ProviderStripe:
		if c.Stripe.SecretKey == "" {
			return errors.New("config: stripe.secret_key is required for the stripe payment provider")
		}
	default:
		return fmt.Errorf("config: unknown payment provider %q", c.Payment.Provider)
	}
	if err := c.validateStripe(); err != nil {
		return err
	}
	if c.Backend.RateLimit < 0 {
		return errors.New("config: backend.rate_limit must not be negative")
	}
	if c.Checkout.StepAttempts <= 0 {
		return errors.New("config: checkout.step_attempts must be positive")
	}
	if strings.HasPrefix(strings.TrimSpace(c.Checkout.TaxRate), "-") {
		return errors.New("config: checkout.tax_rate must not be negative")
	}
	return nil
}

// validateStripe keeps production from confirming real intents with the mock
// confirmer or with test keys.
func (c *Config) validateStripe() error {
	key := c.Stripe.SecretKey
	if c.Stripe.TestMode && strings.HasPrefix(key, "sk_live_") {
		return errors.New("config: stripe.test_mode is set but stripe.secret_key is a live key")
	}
	if !c.IsProduction() {
		return nil
	}
	switch {
	case c.Payment.Provider == ProviderMock:
		return errors.New("config: payment.provider mock is not allowed in production")
	case c.Payment.Provider == ProviderBackend && key == "":
		return errors.New("config: stripe.secret_key is required in production")
	case c.Stripe.TestMode || strings.HasPrefix(key, "sk_test_"):
		return errors.New("config: stripe.test_mode and test keys are not allowed in production")
	}
	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Package config reads process configuration from the environment once at
// startup. Nothing else in the module reads environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	GatewayPaystack = "paystack"
	GatewayStripe   = "stripe"
)

const minJWTSecretLen = 32

type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int

	DatabaseURL      string
	DatabaseMaxConns int

	RedisURL      string
	RedisPassword string

	JWTSecret string

	Currency      string
	MinWithdrawal decimal.Decimal

	GatewayProvider     string
	PaystackSecretKey   string
	PaystackBaseURL     string
	PaystackCallbackURL string
	StripeSecretKey     string
	StripeSuccessURL    string
	StripeCancelURL     string

	// No brokers disables event publishing
	KafkaBrokers []string
	KafkaTopic   string

	ReconcileInterval   time.Duration
	OrphanPositionGrace time.Duration
}

// Load reads the environment, after a .env file in the working directory
// when one exists, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	minWithdrawal, err := lookup("MIN_WITHDRAWAL", decimal.NewFromInt(1000), decimal.NewFromString)
	if err != nil {
		return nil, fmt.Errorf("MIN_WITHDRAWAL must be a decimal amount: %w", err)
	}

	cfg := &Config{
		Port:           str("PORT", "8080"),
		Env:            str("ENV", "development"),
		AllowedOrigins: list("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitRPS:   integer("RATE_LIMIT_RPS", 20),
		RateLimitBurst: integer("RATE_LIMIT_BURST", 40),

		DatabaseURL:      str("DATABASE_URL", ""),
		DatabaseMaxConns: integer("DATABASE_MAX_CONNS", 25),

		RedisURL:      str("REDIS_URL", "localhost:6379"),
		RedisPassword: str("REDIS_PASSWORD", ""),

		JWTSecret: str("JWT_SECRET", ""),

		Currency:      strings.ToUpper(str("CURRENCY", "NGN")),
		MinWithdrawal: minWithdrawal,

		GatewayProvider:     strings.ToLower(str("GATEWAY_PROVIDER", GatewayPaystack)),
		PaystackSecretKey:   str("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL:     str("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackCallbackURL: str("PAYSTACK_CALLBACK_URL", ""),
		StripeSecretKey:     str("STRIPE_SECRET_KEY", ""),
		StripeSuccessURL:    str("STRIPE_SUCCESS_URL", ""),
		StripeCancelURL:     str("STRIPE_CANCEL_URL", ""),

		KafkaBrokers: list("KAFKA_BROKERS", nil),
		KafkaTopic:   str("KAFKA_TOPIC", "ledger.entries"),

		ReconcileInterval:   duration("RECONCILE_INTERVAL", 10*time.Minute),
		OrphanPositionGrace: duration("ORPHAN_POSITION_GRACE", 15*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once so a misconfigured deploy fails
// with the full list.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.DatabaseURL == "" {
		fail("DATABASE_URL is required")
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		fail("JWT_SECRET must be at least %d characters long", minJWTSecretLen)
	}
	if c.MinWithdrawal.IsNegative() {
		fail("MIN_WITHDRAWAL cannot be negative")
	}
	if c.ReconcileInterval <= 0 {
		fail("RECONCILE_INTERVAL must be positive")
	}

	switch c.GatewayProvider {
	case GatewayPaystack:
		if c.PaystackSecretKey == "" {
			fail("PAYSTACK_SECRET_KEY is required for %s", GatewayPaystack)
		}
	case GatewayStripe:
		if c.StripeSecretKey == "" {
			fail("STRIPE_SECRET_KEY is required for %s", GatewayStripe)
		}
		if c.StripeSuccessURL == "" || c.StripeCancelURL == "" {
			fail("STRIPE_SUCCESS_URL and STRIPE_CANCEL_URL are required for %s", GatewayStripe)
		}
	default:
		fail("unsupported GATEWAY_PROVIDER %q", c.GatewayProvider)
	}

	return errors.Join(errs...)
}

func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// lookup parses key with parse, returning def when the variable is unset
func lookup[T any](key string, def T, parse func(string) (T, error)) (T, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	return parse(raw)
}

func str(key, def string) string {
	v, _ := lookup(key, def, func(s string) (string, error) { return s, nil })
	return v
}

// integer and duration fall back to def on malformed input
func integer(key string, def int) int {
	v, err := lookup(key, def, strconv.Atoi)
	if err != nil {
		return def
	}
	return v
}

func duration(key string, def time.Duration) time.Duration {
	v, err := lookup(key, def, time.ParseDuration)
	if err != nil {
		return def
	}
	return v
}

// list splits a comma separated variable, dropping blank items
func list(key string, def []string) []string {
	v, _ := lookup(key, def, func(s string) ([]string, error) {
		var out []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	})
	return v
}

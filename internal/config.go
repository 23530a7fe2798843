package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env            string
	LogLevel       string
	Port           uint16
	BaseURL        string
	AllowedOrigins []string
	Stripe         StripeConfig
	Plans          PlanConfig
	Relay          RelayConfig
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// PlanConfig maps each supported plan identifier to its Stripe price ID
// and per-installment amount. Amounts feed the analytics value on the
// return URL and the relayed event; the price object is what charges.
type PlanConfig struct {
	OneTimePriceID string // one_time: single charge
	Split2PriceID  string // split_2: 2 monthly installments
	Split3PriceID  string // split_3: 3 monthly installments

	OneTimeAmountCents int64
	Split2AmountCents  int64
	Split3AmountCents  int64
	Currency           string
}

// RelayConfig configures the downstream automation webhook that receives
// normalized purchase-confirmed events from the confirmation endpoint.
type RelayConfig struct {
	URL            string
	TimeoutSeconds int
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvInt("PORT", 3000),
		BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Plans: PlanConfig{
			OneTimePriceID: getEnv("STRIPE_PRICE_ONE_TIME", ""),
			Split2PriceID:  getEnv("STRIPE_PRICE_SPLIT_2", ""),
			Split3PriceID:  getEnv("STRIPE_PRICE_SPLIT_3", ""),

			OneTimeAmountCents: getEnvInt64("PLAN_AMOUNT_ONE_TIME_CENTS", 79900),
			Split2AmountCents:  getEnvInt64("PLAN_AMOUNT_SPLIT_2_CENTS", 42000),
			Split3AmountCents:  getEnvInt64("PLAN_AMOUNT_SPLIT_3_CENTS", 29900),
			Currency:           getEnv("PLAN_CURRENCY", "eur"),
		},
		Relay: RelayConfig{
			URL:            getEnv("RELAY_WEBHOOK_URL", ""),
			TimeoutSeconds: int(getEnvInt("RELAY_TIMEOUT_SECONDS", 10)),
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	// Fail closed before any request is served: every handler depends on
	// these and there is no degraded mode without them.
	if cfg.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY must be set")
	}
	if cfg.Stripe.WebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET must be set")
	}
	if cfg.Plans.OneTimePriceID == "" || cfg.Plans.Split2PriceID == "" || cfg.Plans.Split3PriceID == "" {
		return nil, fmt.Errorf("STRIPE_PRICE_ONE_TIME, STRIPE_PRICE_SPLIT_2 and STRIPE_PRICE_SPLIT_3 must be set")
	}
	if cfg.Env == "prod" && cfg.Relay.URL == "" {
		return nil, fmt.Errorf("RELAY_WEBHOOK_URL must be set in production")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		var intValue int64
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// splitList parses a comma-separated env value, trimming whitespace and
// dropping empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

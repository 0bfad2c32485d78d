package config

import (
	"os"
	"strconv"

	"storefront-service/internal/entity"
)

// Config carries every env-driven setting the service reads. Provider
// credentials are validated at call time, not at startup, so the
// storefront can boot and serve reads even while a credential is being
// rotated.
type Config struct {
	Currency string

	StripeSecretKey     string
	StripeWebhookSecret string

	PrintifyAPIKey        string
	PrintifyShopID        string
	PrintifyWebhookSecret string

	AdminJWTSecret string

	// Flat checkout amounts, cents. Tax falls back to the rate below
	// when no calculator is injected.
	ShippingFlat int64
	TaxPercent   int
}

func Load() *Config {
	return &Config{
		Currency:              envOr("CURRENCY", "usd"),
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PrintifyAPIKey:        os.Getenv("PRINTIFY_API_KEY"),
		PrintifyShopID:        os.Getenv("PRINTIFY_SHOP_ID"),
		PrintifyWebhookSecret: os.Getenv("PRINTIFY_WEBHOOK_SECRET"),
		AdminJWTSecret:        os.Getenv("ADMIN_JWT_SECRET"),
		ShippingFlat:          intEnv("SHIPPING_FLAT_CENTS", 590),
		TaxPercent:            int(intEnv("TAX_PERCENT", 0)),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Require returns a ConfigurationError naming the missing setting.
func Require(name, value string) error {
	if value == "" {
		return &entity.ConfigurationError{Msg: "missing required setting " + name}
	}
	return nil
}

package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL           string `env:"DATABASE_URL,required"`
	SessionJWTSecret      string `env:"SESSION_JWT_SECRET,required"`
	IdentityWebhookSecret string `env:"IDENTITY_WEBHOOK_SECRET,required"`
	BillingWebhookSecret  string `env:"BILLING_WEBHOOK_SECRET,required"`

	BillingAPIURL      string `env:"BILLING_API_URL" envDefault:"http://mock-billing:8081"`
	CheckoutSuccessURL string `env:"CHECKOUT_SUCCESS_URL" envDefault:"https://app.tradecove.io/billing/success"`
	CheckoutCancelURL  string `env:"CHECKOUT_CANCEL_URL" envDefault:"https://app.tradecove.io/billing/cancel"`

	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	// Webhook timestamps older than this are rejected as stale.
	WebhookToleranceS int `env:"WEBHOOK_TOLERANCE_S" envDefault:"300"`

	RedisAddr        string `env:"REDIS_ADDR"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	RateLimitMax     int    `env:"RATE_LIMIT_MAX" envDefault:"120"`
	RateLimitWindowS int    `env:"RATE_LIMIT_WINDOW_S" envDefault:"60"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

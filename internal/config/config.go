// Package config loads all runtime configuration from the environment into
// explicit structs. Nothing reads the environment after startup; each
// component receives the piece it needs through its constructor.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTP   HTTP
	DB     DB
	Stripe Stripe
	PayPal PayPal
}

type HTTP struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
}

type DB struct {
	URL            string `envconfig:"DATABASE_URL" required:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
}

type Stripe struct {
	SecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	BaseURL       string `envconfig:"STRIPE_BASE_URL"`
}

type PayPal struct {
	ClientID      string `envconfig:"PAYPAL_CLIENT_ID" required:"true"`
	ClientSecret  string `envconfig:"PAYPAL_CLIENT_SECRET" required:"true"`
	WebhookSecret string `envconfig:"PAYPAL_WEBHOOK_SECRET" required:"true"`
	BaseURL       string `envconfig:"PAYPAL_BASE_URL"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("envconfig.Process: %w", err)
	}
	return cfg, nil
}

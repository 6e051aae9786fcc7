package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	appenv "github.com/garrettladley/settle/internal/env"
)

type Config struct {
	Port       string             `env:"PORT" envDefault:"8080"`
	Env        appenv.Environment `env:"ENV" envDefault:"development"`
	SiteURL    string             `env:"SITE_URL,required"`
	SuccessURL string             `env:"SUCCESS_URL"`
	CancelURL  string             `env:"CANCEL_URL"`

	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`

	SignatureTolerance time.Duration `env:"SIGNATURE_TOLERANCE" envDefault:"5m"`
	PriceCacheTTL      time.Duration `env:"PRICE_CACHE_TTL" envDefault:"10m"`
}

type Stripe struct {
	SecretKey         string `env:"SECRET_KEY,required"`
	PublishableKey    string `env:"PUBLISHABLE_KEY"`
	WebhookSecret     string `env:"WEBHOOK_SECRET,required"`
	WebhookEndpointID string `env:"WEBHOOK_ENDPOINT_ID"`
	MaxNetworkRetries int64  `env:"MAX_NETWORK_RETRIES" envDefault:"2"`
	CABundle          string `env:"CA_BUNDLE"`
	TLSMinVersion     string `env:"TLS_MIN_VERSION" envDefault:"1.2"`
	Telemetry         bool   `env:"TELEMETRY" envDefault:"false"`
}

type Database struct {
	URL string `env:"URL,required"`
}

type Redis struct {
	// URL is optional; when empty the price cache runs without Redis.
	URL string `env:"URL"`
}

func Read() (Config, error) {
	return env.ParseAs[Config]()
}

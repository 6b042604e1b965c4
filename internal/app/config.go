package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (PARFUM_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (PARFUM_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (PARFUM_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Shipping     ShippingConfig
	Carrier      CarrierConfig
	Payment      PaymentConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// ShippingConfig controls quote computation and the fallback rate tables.
type ShippingConfig struct {
	OriginPostalCode      string  `default:"01310-100" usage:"Warehouse postal code quotes originate from" flag:"origin-postal-code"`
	FreeShippingThreshold float64 `default:"350"       usage:"Order value from which a free shipping option is offered" flag:"free-shipping-threshold"`
	DefaultLeadTimeDays   int     `default:"7"         usage:"Lead time for the free shipping option" flag:"default-lead-time"`

	EconomyBase      float64 `default:"19.90"  usage:"Economy fallback tier base price"`
	EconomyPerKg     float64 `default:"4.50"   usage:"Economy fallback tier price per kg"`
	EconomyValueRate float64 `default:"0.01"   usage:"Economy fallback tier declared-value rate"`
	EconomyLeadDays  int     `default:"9"      usage:"Economy fallback tier lead time in days"`

	ExpressBase      float64 `default:"39.90"  usage:"Express fallback tier base price"`
	ExpressPerKg     float64 `default:"7.50"   usage:"Express fallback tier price per kg"`
	ExpressValueRate float64 `default:"0.015"  usage:"Express fallback tier declared-value rate"`
	ExpressLeadDays  int     `default:"3"      usage:"Express fallback tier lead time in days"`

	FlatRatePrice    float64 `default:"24.90"  usage:"Flat-rate option used when every other source fails"`
	FlatRateLeadDays int     `default:"10"     usage:"Flat-rate option lead time in days"`
}

// CarrierConfig controls the external carrier rate lookup.
type CarrierConfig struct {
	BaseURL string        `default:""    usage:"Carrier rate API base URL; empty disables the lookup" flag:"carrier-base-url"`
	Timeout time.Duration `default:"10s" usage:"Carrier request timeout" flag:"carrier-timeout"`
}

// PaymentConfig controls the payment gateway client.
type PaymentConfig struct {
	BaseURL string        `default:""    usage:"Payment gateway base URL" flag:"payment-base-url"`
	Token   string        `default:""    usage:"Payment gateway access token" flag:"payment-token"`
	Timeout time.Duration `default:"15s" usage:"Payment gateway request timeout" flag:"payment-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PARFUM",
		Files:     []string{"config.yaml", "/etc/parfum/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set PARFUM_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's PARFUM_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

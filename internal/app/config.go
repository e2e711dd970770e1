package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
	"github.com/xenking/oolio-kart-basket/internal/domain/delivery"
	"github.com/xenking/oolio-kart-basket/internal/domain/payment"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string        `usage:"PostgreSQL connection URL (KART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisAddr   string        `default:"" usage:"Redis address for the basket session cache; empty disables caching" flag:"redis-addr"`
	SessionTTL  time.Duration `default:"72h" usage:"Lifetime of cached baskets" flag:"session-ttl"`
	Currency    string        `default:"EUR" usage:"Currency of new baskets"`
	Locale      string        `default:"en_US" usage:"Locale of new baskets"`
	Delivery    DeliveryConfig
	Payment     PaymentConfig
	Graceful    GracefulConfig
}

// DeliveryConfig describes the delivery methods offered at checkout.
type DeliveryConfig struct {
	Code       string `default:"standard" usage:"Code of the flat rate delivery method"`
	Price      string `default:"4.90" usage:"Flat rate delivery price without VAT"`
	VatRate    string `default:"20" usage:"Delivery VAT rate in percent" flag:"delivery-vat-rate"`
	FreeOver   string `default:"50" usage:"Net subtotal from which delivery is free; 0 disables" flag:"delivery-free-over"`
	PickupCode string `default:"pickup" usage:"Code of the in-store pickup method; empty disables" flag:"pickup-code"`
}

// PaymentConfig lists the accepted payment method codes.
type PaymentConfig struct {
	Methods []string `default:"card,paypal,invoice" usage:"Accepted payment method codes" flag:"payment-methods"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set KART_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Delivery.Methods(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (DATABASE_URL, REDIS_ADDR, PORT) to the KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisAddr == "" {
		if v := os.Getenv("REDIS_ADDR"); v != "" {
			c.RedisAddr = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// Methods builds the configured delivery methods.
func (c DeliveryConfig) Methods() ([]basket.DeliveryMethod, error) {
	price, err := decimal.NewFromString(c.Price)
	if err != nil {
		return nil, errors.Wrap(err, "parse delivery price")
	}
	vat, err := decimal.NewFromString(c.VatRate)
	if err != nil {
		return nil, errors.Wrap(err, "parse delivery vat rate")
	}
	freeOver, err := decimal.NewFromString(c.FreeOver)
	if err != nil {
		return nil, errors.Wrap(err, "parse delivery free threshold")
	}
	if price.IsNegative() || vat.IsNegative() || freeOver.IsNegative() {
		return nil, errors.New("delivery amounts must not be negative")
	}

	if c.Code == "" {
		return nil, errors.New("delivery code is required")
	}
	if c.PickupCode == c.Code {
		return nil, errors.Errorf("pickup code %q collides with delivery code", c.PickupCode)
	}

	methods := []basket.DeliveryMethod{delivery.NewFlatRate(c.Code, price, vat, freeOver)}
	if c.PickupCode != "" {
		methods = append(methods, delivery.NewPickup(c.PickupCode))
	}
	return methods, nil
}

// Registry builds the registry of accepted payment methods.
func (c PaymentConfig) Registry() *payment.Registry {
	methods := make([]payment.Method, 0, len(c.Methods))
	for _, code := range c.Methods {
		if code == "" {
			continue
		}
		methods = append(methods, payment.NewMethod(code, code))
	}
	return payment.NewRegistry(methods...)
}

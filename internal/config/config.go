package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Sessions  SessionsConfig  `koanf:"sessions"`
	Providers ProvidersConfig `koanf:"providers"`
	Logger    LoggerConfig    `koanf:"logger"`
	Worker    WorkerConfig    `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// SessionsConfig selects where redirect tokenization sessions live and how
// long each provider's redirect window stays open.
type SessionsConfig struct {
	Store        string        `koanf:"store" validate:"oneof=postgres redis"`
	TransbankTTL time.Duration `koanf:"transbank_ttl"`
	StripeTTL    time.Duration `koanf:"stripe_ttl"`
}

// ProvidersConfig holds caller-supplied vendor credentials. A provider with
// no credentials and no public test profile is simply unavailable.
type ProvidersConfig struct {
	Transbank   TransbankConfig   `koanf:"transbank"`
	MercadoPago MercadoPagoConfig `koanf:"mercadopago"`
	Stripe      StripeConfig      `koanf:"stripe"`
}

// TransbankConfig is tri-state on Enabled: unset falls back to the public
// integration profile, an explicit false switches the provider off.
type TransbankConfig struct {
	Enabled       *bool  `koanf:"enabled"`
	CommerceCode  string `koanf:"commerce_code"`
	ChildCommerce string `koanf:"child_commerce_code"`
	APIKey        string `koanf:"api_key"`
	BaseURL       string `koanf:"base_url"`
}

type MercadoPagoConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AccessToken   string `koanf:"access_token"`
	PublicKey     string `koanf:"public_key"`
	WebhookSecret string `koanf:"webhook_secret"`
	BaseURL       string `koanf:"base_url"`
}

type StripeConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SecretKey     string `koanf:"secret_key"`
	WebhookSecret string `koanf:"webhook_secret"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
	StuckFor  time.Duration `koanf:"stuck_for" validate:"required"`
}

// NewLogger builds the process logger at the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("SERVIPAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "SERVIPAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	mainConfig.applyDefaults()

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

func (c *Config) applyDefaults() {
	if c.Sessions.Store == "" {
		c.Sessions.Store = "postgres"
	}
	if c.Sessions.TransbankTTL == 0 {
		c.Sessions.TransbankTTL = 10 * time.Minute
	}
	if c.Sessions.StripeTTL == 0 {
		c.Sessions.StripeTTL = 24 * time.Hour
	}
}

// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

type AuthConfig struct {
	Secret string `yaml:"secret"` // HS256 signing key
}

type WorkersConfig struct {
	ExpiryInterval       time.Duration `yaml:"expiry_interval"`
	WebhookRetryInterval time.Duration `yaml:"webhook_retry_interval"`
	ReconcileInterval    time.Duration `yaml:"reconcile_interval"`
	ReconcileAfter       time.Duration `yaml:"reconcile_after"` // open payment age before polling
	CleanupInterval      time.Duration `yaml:"cleanup_interval"`
	PaymentRetention     time.Duration `yaml:"payment_retention"`
	WebhookRetention     time.Duration `yaml:"webhook_retention"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Auth     AuthConfig     `yaml:"auth"`
	Workers  WorkersConfig  `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Workers.ExpiryInterval = normalizeInterval(cfg.Workers.ExpiryInterval, time.Hour)
	cfg.Workers.WebhookRetryInterval = normalizeInterval(cfg.Workers.WebhookRetryInterval, 5*time.Minute)
	cfg.Workers.ReconcileInterval = normalizeInterval(cfg.Workers.ReconcileInterval, 15*time.Minute)
	cfg.Workers.ReconcileAfter = normalizeInterval(cfg.Workers.ReconcileAfter, time.Hour)
	cfg.Workers.CleanupInterval = normalizeInterval(cfg.Workers.CleanupInterval, 24*time.Hour)
	cfg.Workers.PaymentRetention = normalizeInterval(cfg.Workers.PaymentRetention, 90*24*time.Hour)
	cfg.Workers.WebhookRetention = normalizeInterval(cfg.Workers.WebhookRetention, 30*24*time.Hour)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required")
	}
	// Dev mode may run without provider credentials (noop gateway).
	if !dev {
		if cfg.Stripe.SecretKey == "" {
			return nil, errors.New("stripe.secret_key is required")
		}
		if cfg.Stripe.WebhookSecret == "" {
			return nil, errors.New("stripe.webhook_secret is required")
		}
	}
	if cfg.Auth.Secret == "" {
		return nil, errors.New("auth.secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeInterval(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

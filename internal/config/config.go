// Package config loads gateway settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingSecretKey = errors.New("STRIPE_SECRET_KEY is not set")

type Config struct {
	StripeSecretKey      string `mapstructure:"stripe_secret_key"`
	StripePublishableKey string `mapstructure:"stripe_publishable_key"`
	StripeAPIURL         string `mapstructure:"stripe_api_url"`

	HTTPAddr          string        `mapstructure:"http_addr"`
	CORSEnabled       bool          `mapstructure:"cors_enabled"`
	CORSAllowedOrigin string        `mapstructure:"cors_allowed_origin"`
	ProcessorTimeout  time.Duration `mapstructure:"processor_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level"`

	KafkaBrokers     string `mapstructure:"kafka_brokers"`
	KafkaEventsTopic string `mapstructure:"kafka_events_topic"`

	GRPCAddr string `mapstructure:"grpc_addr"`
}

var defaults = map[string]any{
	"stripe_secret_key":      "",
	"stripe_publishable_key": "",
	"stripe_api_url":         "",
	"http_addr":              ":3000",
	"cors_enabled":           true,
	"cors_allowed_origin":    "http://localhost:3001",
	"processor_timeout":      "10s",
	"shutdown_timeout":       "10s",
	"log_level":              "info",
	"kafka_brokers":          "",
	"kafka_events_topic":     "payments.intents",
	"grpc_addr":              "",
}

// NewViper returns a viper instance with defaults registered and every key
// bound to its upper-case environment variable.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	return v
}

// LoadDotEnv seeds the process environment from path. Variables already set
// win. A missing default .env is not an error; a missing explicit path is.
func LoadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.StripeSecretKey) == "" {
		return ErrMissingSecretKey
	}
	if c.ProcessorTimeout <= 0 {
		return fmt.Errorf("processor_timeout must be positive, got %s", c.ProcessorTimeout)
	}
	if c.CORSEnabled && c.CORSAllowedOrigin == "" {
		return errors.New("cors_allowed_origin is required when CORS is enabled")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Brokers splits the comma-separated broker list, dropping blanks.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

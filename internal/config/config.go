package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Hospital dataset sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	BindAddress     string   `mapstructure:"BIND_ADDRESS"`
	Env             string   `mapstructure:"ENV"`
	GinMode         string   `mapstructure:"GIN_MODE"`
	LogLevel        string   `mapstructure:"LOG_LEVEL"`
	ModelPath       string   `mapstructure:"MODEL_PATH"`
	HospitalsSource string   `mapstructure:"HOSPITALS_SOURCE"`
	HospitalsPath   string   `mapstructure:"HOSPITALS_PATH"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	MaxBodyBytes    int64    `mapstructure:"MAX_BODY_BYTES"`
	SentryDSN       string   `mapstructure:"SENTRY_DSN"`
}

var keys = []string{
	"PORT",
	"BIND_ADDRESS",
	"ENV",
	"GIN_MODE",
	"LOG_LEVEL",
	"MODEL_PATH",
	"HOSPITALS_SOURCE",
	"HOSPITALS_PATH",
	"DATABASE_URL",
	"CORS_ORIGINS",
	"MAX_BODY_BYTES",
	"SENTRY_DSN",
}

// Load reads .env (if present) into the environment, then resolves every key
// against the environment and the defaults below.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("BIND_ADDRESS", "0.0.0.0")
	v.SetDefault("ENV", "production")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MODEL_PATH", "model/tb_risk_model.json")
	v.SetDefault("HOSPITALS_SOURCE", SourceCSV)
	v.SetDefault("HOSPITALS_PATH", "data/hospitals.csv")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	cfg.HospitalsSource = strings.ToLower(strings.TrimSpace(cfg.HospitalsSource))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	switch c.HospitalsSource {
	case SourceCSV:
		if c.HospitalsPath == "" {
			return fmt.Errorf("HOSPITALS_PATH is required when HOSPITALS_SOURCE=%s", SourceCSV)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when HOSPITALS_SOURCE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("HOSPITALS_SOURCE must be %q or %q, got %q", SourceCSV, SourcePostgres, c.HospitalsSource)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Addr is the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	JuvonnoAPIKey    string   `mapstructure:"JUVONNO_API_KEY"`
	JuvonnoSubdomain string   `mapstructure:"JUVONNO_SUBDOMAIN"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	RequestTimeout   int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	UpstreamTimeout  int      `mapstructure:"UPSTREAM_TIMEOUT_SECONDS"`
	BodyLimit        string   `mapstructure:"BODY_LIMIT"`
}

// Load reads configuration once at process start from the environment and an
// optional .env file. JUVONNO_API_KEY and JUVONNO_SUBDOMAIN are optional
// process-wide credential defaults; the HTTP routes always carry explicit
// per-request credentials and never fall back to them.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("UPSTREAM_TIMEOUT_SECONDS", 10)
	v.SetDefault("BODY_LIMIT", "1M")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("JUVONNO_API_KEY")
	v.BindEnv("JUVONNO_SUBDOMAIN")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("UPSTREAM_TIMEOUT_SECONDS")
	v.BindEnv("BODY_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RequestTimeoutDuration returns the per-request deadline for inbound calls.
func (c *Config) RequestTimeoutDuration() time.Duration {
	if c.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// UpstreamTimeoutDuration returns the timeout applied to outbound Juvonno calls.
func (c *Config) UpstreamTimeoutDuration() time.Duration {
	if c.UpstreamTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.UpstreamTimeout) * time.Second
}

// Validate checks values that would otherwise fail deep inside the server
// loop. Credentials are deliberately not required here: the HTTP surface
// expects per-request credentials and only the CLI validate command falls
// back to the process-wide defaults.
func (c *Config) Validate() error {
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be >= 0, got %d", c.RequestTimeout)
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS must be >= 0, got %d", c.UpstreamTimeout)
	}
	return nil
}

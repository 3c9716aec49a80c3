// Package config loads runtime configuration from the environment, with an
// optional .env file for local development. The loaded Config is constructed
// once in main and passed down explicitly — no singletons.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr     string `mapstructure:"SERVER_ADDR"`
	AllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// MPAccessToken empty means "payment processor unconfigured": payment
	// endpoints answer 503 but the rest of the service still runs.
	MPAccessToken   string `mapstructure:"MP_ACCESS_TOKEN"`
	MPBaseURL       string `mapstructure:"MP_BASE_URL"`
	MPWebhookSecret string `mapstructure:"MP_WEBHOOK_SECRET"`

	EventLogPath string `mapstructure:"EVENT_LOG_PATH"`
}

// Origins splits the comma-separated CORS origin list.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Load reads the optional .env file at envFile (skipped when absent), lets
// real environment variables override it, and unmarshals into Config.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	// Defaults double as the key registry: AutomaticEnv only surfaces keys
	// viper already knows about when unmarshalling.
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("MP_ACCESS_TOKEN", "")
	v.SetDefault("MP_BASE_URL", "")
	v.SetDefault("MP_WEBHOOK_SECRET", "")
	v.SetDefault("EVENT_LOG_PATH", "./data/payment-events.db")

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

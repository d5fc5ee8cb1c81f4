// Package config loads server settings from the environment.
//
// A `.env` file in the working directory is read first (godotenv), then
// viper binds each key to its environment variable with a default, and
// the result is validated.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Port           int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel       string        `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error fatal"`
	Storage        string        `mapstructure:"storage" validate:"required,oneof=sqlite memory"`
	DBPath         string        `mapstructure:"db_path" validate:"required_if=Storage sqlite"`
	JWTSecret      string        `mapstructure:"jwt_secret" validate:"required"`
	JWTExpiresDays int           `mapstructure:"jwt_expires_days" validate:"gt=0"`
	CookieName     string        `mapstructure:"cookie_name" validate:"required"`
	ClientOrigin   string        `mapstructure:"client_origin" validate:"required"`
	DailySalt      string        `mapstructure:"daily_salt" validate:"required"`
	AppEnv         string        `mapstructure:"app_env"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c *Config) Production() bool { return c.AppEnv == "production" }

var defaults = map[string]any{
	"port":             5175,
	"log_level":        "info",
	"storage":          "sqlite",
	"db_path":          "./data/app.db",
	"jwt_secret":       "dev_secret_change_me",
	"jwt_expires_days": 14,
	"cookie_name":      "memory_token",
	"client_origin":    "http://localhost:5173",
	"daily_salt":       "local_dev_salt",
	"app_env":          "development",
	"session_ttl":      "2h",
}

// Load reads `.env` (if present) and the environment.
// Environment variables use the upper-case key names (PORT, LOG_LEVEL, ...).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Storage = strings.ToLower(cfg.Storage)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devSecret = "dev_secret"

// Config holds application configuration values.
type Config struct {
	Secret          string
	DatabaseDSN     string
	HTTPPort        string
	ServiceName     string
	Env             string
	LogLevel        string
	ConflictRetries int
	SalesTimeout    time.Duration
	ShutdownTimeout time.Duration
	CatalogCSV      string
	AdminUsername   string
	AdminPassword   string
	CORSOrigins     []string
}

// Load reads configuration from the environment, after merging any .env
// files found in the working directory. Values already present in the
// environment win over .env entries.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SECRET", devSecret)
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", "file:pharmpos.db")
	v.SetDefault("SERVICE_NAME", "pharmpos")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SALES_CONFLICT_RETRIES", 1)
	v.SetDefault("SALES_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("CATALOG_CSV", "")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	cfg := Config{
		Secret:          v.GetString("SECRET"),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		HTTPPort:        v.GetString("HTTP_PORT"),
		ServiceName:     v.GetString("SERVICE_NAME"),
		Env:             v.GetString("ENV"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		ConflictRetries: v.GetInt("SALES_CONFLICT_RETRIES"),
		SalesTimeout:    v.GetDuration("SALES_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		CatalogCSV:      v.GetString("CATALOG_CSV"),
		AdminUsername:   v.GetString("ADMIN_USERNAME"),
		AdminPassword:   v.GetString("ADMIN_PASSWORD"),
		CORSOrigins:     splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("invalid HTTP_PORT value %q", c.HTTPPort)
	}
	if c.ConflictRetries < 0 {
		return fmt.Errorf("SALES_CONFLICT_RETRIES must not be negative, got %d", c.ConflictRetries)
	}
	if c.SalesTimeout < 0 {
		return fmt.Errorf("SALES_TIMEOUT must not be negative, got %s", c.SalesTimeout)
	}
	if c.Env == "production" && (c.Secret == "" || c.Secret == devSecret) {
		return errors.New("SECRET must be set in production")
	}
	return nil
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

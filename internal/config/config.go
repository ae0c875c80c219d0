// Package config loads settings from the environment, with an optional
// .env file for local development. All commands share one configuration
// surface; the exporter-only knobs are ignored by the batch tools.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
)

// Database holds connection settings for the DMARC report database.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// DSN assembles the MySQL driver connection string. Autocommit is turned
// off because every writer here manages transactions explicitly.
func (d Database) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&autocommit=0",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Config is the process configuration.
type Config struct {
	DB            Database
	Listen        string        // exporter bind address
	DayOffset     int           // days before today the exporter reports on
	CacheTTL      time.Duration // metrics cache time-to-live
	RetryInterval time.Duration // pause between reconnect attempts
	LogLevel      string
	LogFormat     string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, apperrors.WrapConfig("load_env_file", err)
	}

	cfg := &Config{
		DB: Database{
			Host:     envString("DMARC_DB_HOST", "localhost"),
			User:     envString("DMARC_DB_USER", ""),
			Password: envString("DMARC_DB_PASSWORD", ""),
			Name:     envString("DMARC_DB_NAME", "dmarc"),
		},
		Listen:    envString("DMARC_LISTEN", ":9225"),
		LogLevel:  envString("DMARC_LOG_LEVEL", "info"),
		LogFormat: envString("DMARC_LOG_FORMAT", "auto"),
	}

	var err error
	if cfg.DB.Port, err = envInt("DMARC_DB_PORT", 3306); err != nil {
		return nil, err
	}
	if cfg.DayOffset, err = envInt("DMARC_DAY_OFFSET", 1); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("DMARC_CACHE_TTL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryInterval, err = envDuration("DMARC_RETRY_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.DB.User == "" {
		return nil, apperrors.Configf("load_config", "DMARC_DB_USER must be set")
	}
	if cfg.DayOffset < 0 {
		return nil, apperrors.Configf("load_config", "DMARC_DAY_OFFSET must not be negative")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.Configf("load_config", "%s: expected integer, got %q", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, apperrors.Configf("load_config", "%s: expected duration such as 10s, got %q", key, v)
	}
	return d, nil
}

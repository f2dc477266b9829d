package database

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/ndrohith09/Zerobase/pkg/config"
)

// Discrete connection variables, used when DATABASE_URL is not set.
var pgEnvKeys = []string{"PG_HOST", "PG_PORT", "PG_DATABASE", "PG_USER", "PG_PASSWORD"}

// URLFromEnv returns DATABASE_URL, or a postgres URL assembled from the PG_* variables.
// Every PG_* variable is required in the second form.
func URLFromEnv() (string, error) {
	if dsn := config.GetEnv("DATABASE_URL", ""); dsn != "" {
		return dsn, nil
	}
	if missing := config.MissingEnv(pgEnvKeys...); len(missing) > 0 {
		return "", fmt.Errorf("database configuration incomplete: set DATABASE_URL or %s", strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config.GetEnv("PG_USER", ""), config.GetEnv("PG_PASSWORD", "")),
		Host:   net.JoinHostPort(config.GetEnv("PG_HOST", ""), config.GetEnv("PG_PORT", "")),
		Path:   "/" + config.GetEnv("PG_DATABASE", ""),
	}
	q := url.Values{}
	q.Set("sslmode", config.GetEnv("PG_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ConfigFromEnv builds a Config from DefaultConfig overridden by DB_* variables.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	dsn, err := URLFromEnv()
	if err != nil {
		return cfg, err
	}
	cfg.URL = dsn
	cfg.MaxOpenConns = config.GetEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.MaxIdleConns = config.GetEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.ConnectAttempts = config.GetEnvInt("DB_CONNECT_ATTEMPTS", cfg.ConnectAttempts)
	cfg.RetryDelay = config.GetEnvDuration("DB_CONNECT_RETRY_DELAY", cfg.RetryDelay)
	return cfg, nil
}

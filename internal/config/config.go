package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "change_me_in_production"

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

type Config struct {
	Port string
	Env  string

	DatabaseDriver string
	DatabaseDSN    string
	MongoDatabase  string

	JWTSecret string
	JWTExpiry time.Duration

	PasswordHash  string
	CORSOrigins   []string
	AuthRateLimit float64
	AuthRateBurst int

	AMQPURL      string
	AMQPExchange string

	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. Parse failures are
// reported by Validate rather than silently replaced by defaults.
func Load() (Config, error) {
	var errs []error

	expiry, err := ParseDuration(getEnv("JWT_EXPIRES_IN", "7d"))
	if err != nil {
		errs = append(errs, fmt.Errorf("JWT_EXPIRES_IN: %w", err))
	}

	rps, err := strconv.ParseFloat(getEnv("AUTH_RATE_LIMIT", "5"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("AUTH_RATE_LIMIT: %w", err))
	}

	burst, err := strconv.Atoi(getEnv("AUTH_RATE_BURST", "10"))
	if err != nil {
		errs = append(errs, fmt.Errorf("AUTH_RATE_BURST: %w", err))
	}

	cfg := Config{
		Port:           getEnv("PORT", "3000"),
		Env:            getEnv("ENV", "development"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:    getEnv("DATABASE_DSN", "./data/spendlog.db"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "spendlog"),
		JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiry:      expiry,
		PasswordHash:   strings.ToLower(getEnv("PASSWORD_HASH", "bcrypt")),
		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS"), defaultCORSOrigins),
		AuthRateLimit:  rps,
		AuthRateBurst:  burst,
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "spendlog.events"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg, errors.Join(errs...)
}

// IsProduction reports whether internal details must be hidden from clients.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate collects every configuration problem into a single error.
func (c Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	drivers := []string{"mysql", "postgres", "sqlite", "mongo"}
	if !slices.Contains(drivers, c.DatabaseDriver) {
		problems = append(problems, fmt.Sprintf("invalid database driver %q: must be one of %v", c.DatabaseDriver, drivers))
	}
	if c.DatabaseDSN == "" {
		problems = append(problems, "DATABASE_DSN cannot be empty")
	}
	if c.DatabaseDriver == "mongo" && c.MongoDatabase == "" {
		problems = append(problems, "MONGO_DATABASE cannot be empty when using the mongo driver")
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET cannot be empty")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		problems = append(problems, "JWT_SECRET must be set in production environment")
	}
	if c.JWTExpiry <= 0 {
		problems = append(problems, "JWT_EXPIRES_IN must be positive")
	}

	if c.PasswordHash != "bcrypt" && c.PasswordHash != "argon2id" {
		problems = append(problems, fmt.Sprintf("invalid password hash %q: must be bcrypt or argon2id", c.PasswordHash))
	}

	if c.AuthRateLimit <= 0 {
		problems = append(problems, "AUTH_RATE_LIMIT must be positive")
	}
	if c.AuthRateBurst < 1 {
		problems = append(problems, "AUTH_RATE_BURST must be at least 1")
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE cannot be empty when AMQP_URL is set")
		}
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be text or json", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// ParseDuration accepts Go durations ("12h"), a day suffix ("7d") and bare
// integers, which are read as seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return scaleDuration(s, n, 24*time.Hour)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return scaleDuration(s, n, time.Second)
	}

	return time.ParseDuration(s)
}

func scaleDuration(s string, n int64, unit time.Duration) (time.Duration, error) {
	limit := int64(math.MaxInt64 / unit)
	if n > limit || n < -limit {
		return 0, fmt.Errorf("duration %q out of range", s)
	}
	return time.Duration(n) * unit, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string, fallback []string) []string {
	if strings.TrimSpace(raw) == "" {
		return slices.Clone(fallback)
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

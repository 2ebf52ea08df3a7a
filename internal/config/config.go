package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "InstanTransferBridge"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultHTTPTimeout   = 15 * time.Second
	defaultMinimumUSD    = 2.0
	defaultExchangeRate  = 129.0
	defaultPollInterval  = 5 * time.Second
	defaultMaxPolls      = 60
	defaultMaxPollFails  = 5
	sessionKeyEnvVar     = "SESSION_CIPHER_KEY"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	GatewayBaseURL string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	HTTPTimeout    time.Duration

	// Withdrawal/deposit policy.
	MinimumUSD      float64
	ExchangeRateKES float64
	PollInterval    time.Duration
	MaxPolls        int
	MaxPollFailures int

	// 32-byte key used to seal session tokens at rest. Optional; tokens are
	// stored in the clear when absent.
	SessionCipherKey []byte
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		GatewayBaseURL:  strings.TrimRight(os.Getenv("GATEWAY_BASE_URL"), "/"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		HTTPTimeout:     defaultHTTPTimeout,
		MinimumUSD:      defaultMinimumUSD,
		ExchangeRateKES: defaultExchangeRate,
		PollInterval:    defaultPollInterval,
		MaxPolls:        defaultMaxPolls,
		MaxPollFailures: defaultMaxPollFails,
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %q", v)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT: %q", v)
		}
		cfg.HTTPTimeout = d
	}

	if v := os.Getenv("MINIMUM_USD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("invalid MINIMUM_USD: %q", v)
		}
		cfg.MinimumUSD = f
	}

	if v := os.Getenv("EXCHANGE_RATE_KES"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("invalid EXCHANGE_RATE_KES: %q", v)
		}
		cfg.ExchangeRateKES = f
	}

	// A zero interval would make the poll ticker panic on the first attempt.
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid POLL_INTERVAL: %q", v)
		}
		cfg.PollInterval = d
	}

	if v := os.Getenv("MAX_POLLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_POLLS: %q", v)
		}
		cfg.MaxPolls = n
	}

	if v := os.Getenv("MAX_POLL_FAILURES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_POLL_FAILURES: %q", v)
		}
		cfg.MaxPollFailures = n
	}

	if v := os.Getenv(sessionKeyEnvVar); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", sessionKeyEnvVar, err)
		}
		if len(key) != 32 {
			return Config{}, fmt.Errorf("%s must decode to 32 bytes, got %d", sessionKeyEnvVar, len(key))
		}
		cfg.SessionCipherKey = key
	}

	if cfg.GatewayBaseURL == "" {
		return Config{}, fmt.Errorf("GATEWAY_BASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

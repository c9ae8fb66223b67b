// Package config loads server settings from an optional TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults
const (
	DefaultPort              = 8080
	DefaultDBPath            = "./data/flicksplit.db"
	DefaultExchangeTimeout   = 10 * time.Second
	DefaultRequestsPerMinute = 60
	DefaultBurst             = 10
	DefaultLogLevel          = "info"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the server configuration.
type Config struct {
	Port      int             `toml:"port"`
	DBPath    string          `toml:"db_path"`
	LogLevel  string          `toml:"log_level"`
	LogFile   string          `toml:"log_file"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ExchangeConfig points at the remote exchange rate function.
type ExchangeConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// RateLimitConfig bounds GetRate calls per client.
// RequestsPerMinute of zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	Burst             int `toml:"burst"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Port:     DefaultPort,
		DBPath:   DefaultDBPath,
		LogLevel: DefaultLogLevel,
		Exchange: ExchangeConfig{Timeout: DefaultExchangeTimeout},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: DefaultRequestsPerMinute,
			Burst:             DefaultBurst,
		},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file named by FLICKSPLIT_CONFIG, or fallback.
func Path(fallback string) string {
	return getEnv("FLICKSPLIT_CONFIG", fallback)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalid, v)
		}
		c.Port = port
	}
	if v := os.Getenv("EXCHANGE_RATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: EXCHANGE_RATE_TIMEOUT=%q: %v", ErrInvalid, v, err)
		}
		c.Exchange.Timeout = d
	}
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.Exchange.URL = getEnv("EXCHANGE_RATE_URL", c.Exchange.URL)
	return nil
}

// Validate checks value ranges. It does not require an exchange URL;
// callers that fetch rates check that with RequireExchange.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is empty", ErrInvalid)
	}
	if c.Exchange.Timeout <= 0 {
		return fmt.Errorf("%w: exchange timeout must be positive", ErrInvalid)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate limit values cannot be negative", ErrInvalid)
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("%w: rate limit burst must be at least 1", ErrInvalid)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// RequireExchange reports an error when no exchange rate URL is set.
func (c *Config) RequireExchange() error {
	if strings.TrimSpace(c.Exchange.URL) == "" {
		return fmt.Errorf("%w: exchange url is required (set [exchange] url or EXCHANGE_RATE_URL)", ErrInvalid)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

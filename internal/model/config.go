package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the complete claimaudit configuration.
// Precedence: CLI flags > CLAIMAUDIT_* env > config file > DefaultConfig.
type Config struct {
	Service      ServiceConfig      `mapstructure:"service" yaml:"service"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Breaker      BreakerConfig      `mapstructure:"breaker" yaml:"breaker"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency" yaml:"concurrency"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Output       OutputConfig       `mapstructure:"output" yaml:"output"`
}

// ServiceConfig locates and shapes calls to the claims/verification service
type ServiceConfig struct {
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout" yaml:"verify_timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy"`
}

// CacheConfig controls the in-memory cache for claim reads.
// Verification responses are never cached.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// BreakerConfig tunes the circuit breaker in front of the service
type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests" yaml:"max_requests"`
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests" yaml:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio" yaml:"failure_ratio"`
}

// RateLimitingConfig bounds the request rate per operation class
type RateLimitingConfig struct {
	ReadsPerSecond  float64 `mapstructure:"reads_per_second" yaml:"reads_per_second"`
	VerifyPerSecond float64 `mapstructure:"verify_per_second" yaml:"verify_per_second"`
	BurstSize       int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// ServerConfig configures the web front
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxSessions    int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// LoggingConfig selects logrus level and formatter
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// OutputConfig controls CLI rendering
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format"` // text, json, yaml, md
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:       "http://localhost:8000",
			Timeout:       15 * time.Second,
			VerifyTimeout: 3 * time.Minute, // the audit pipeline calls an LLM
			UserAgent:     "claimaudit/0.1",
			MaxBodyBytes:  4 << 20,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			MaxRequests:  1,
			Interval:     30 * time.Second,
			Timeout:      30 * time.Second,
			MinRequests:  5,
			FailureRatio: 0.6,
		},
		RateLimiting: RateLimitingConfig{
			ReadsPerSecond:  20,
			VerifyPerSecond: 2,
			BurstSize:       5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxSessions:    256,
			SessionTTL:     2 * time.Hour,
			AllowedOrigins: []string{"http://localhost:3000"},
			PollInterval:   2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Validate checks the settings that cannot be defaulted safely
func (c *Config) Validate() error {
	if err := ValidateBaseURL(c.Service.BaseURL); err != nil {
		return err
	}
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("service.timeout must be positive")
	}
	if c.Service.VerifyTimeout <= 0 {
		return fmt.Errorf("service.verify_timeout must be positive")
	}
	if c.Service.MaxBodyBytes <= 0 {
		return fmt.Errorf("service.max_body_bytes must be positive")
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("server.allowed_origins: %q must start with http:// or https://", origin)
		}
	}
	switch c.Output.Format {
	case "text", "json", "yaml", "md":
	default:
		return fmt.Errorf("output.format: unknown format %q (text, json, yaml, md)", c.Output.Format)
	}
	return nil
}

// ValidateBaseURL requires an absolute http(s) URL
func ValidateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("service.base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("service.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("service.base_url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("service.base_url: missing host")
	}
	return nil
}

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores explorer server runtime configuration.
type Config struct {
	ListenAddress   string
	RPCURL          string
	OpsAddress      string
	LogLevel        string
	LogFormat       string
	Compression     bool
	ShutdownTimeout time.Duration

	Discovery DiscoveryConfig

	RateLimit RateLimitConfig
}

// DiscoveryConfig controls Kubernetes lookup of the JSON-RPC node. When
// disabled RPCURL is used as given.
type DiscoveryConfig struct {
	Enabled     bool
	Namespace   string
	RPCSelector string
	Timeout     time.Duration
}

// RateLimitConfig controls global and per-client limits. RPS of zero disables
// limiting.
type RateLimitConfig struct {
	RPS            float64
	Burst          int
	TrustForwarded bool
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory when present. Callers run Validate once flag
// overrides have been applied.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddress:   getEnv("LISTEN_ADDRESS", "127.0.0.1:3000"),
		RPCURL:          getEnv("RPC_URL", "http://localhost:8545"),
		OpsAddress:      getEnv("OPS_ADDR", ""),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
		Compression:     getEnvBool("COMPRESSION_ENABLED", true),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Discovery: DiscoveryConfig{
			Enabled:     getEnvBool("K8S_DISCOVERY_ENABLED", false),
			Namespace:   getEnv("K8S_NAMESPACE", "default"),
			RPCSelector: getEnv("K8S_SERVICE_SELECTOR_RPC", "app.kubernetes.io/name=erigon"),
			Timeout:     getEnvDuration("K8S_DISCOVERY_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:            getEnvFloat("RATE_LIMIT_RPS", 0),
			Burst:          getEnvInt("RATE_LIMIT_BURST", 100),
			TrustForwarded: getEnvBool("RATE_LIMIT_TRUST_FORWARDED", false),
		},
	}

	return cfg, nil
}

// Validate checks the merged environment and flag values.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("LISTEN_ADDRESS must be host:port: %w", err)
	}

	if c.OpsAddress != "" {
		if _, _, err := net.SplitHostPort(c.OpsAddress); err != nil {
			return fmt.Errorf("OPS_ADDR must be host:port: %w", err)
		}
	}

	if !c.Discovery.Enabled && strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("RPC_URL is required when K8S_DISCOVERY_ENABLED=false")
	}

	if c.Discovery.Timeout <= 0 {
		return fmt.Errorf("K8S_DISCOVERY_TIMEOUT must be positive")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

// Package config loads gateway configuration from an optional YAML file
// overlaid with environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/market-agent-gateway/internal/agentcore"
	"github.com/market-agent-gateway/internal/gateway"
	"github.com/market-agent-gateway/internal/logging"
)

// Runtime backends.
const (
	RuntimeHTTP      = "http"
	RuntimeAnthropic = "anthropic"
)

// Memory backends.
const (
	MemoryRuntime = "runtime"
	MemoryRedis   = "redis"
	MemoryNone    = "none"
)

// Config is the complete gateway process configuration.
type Config struct {
	Port    string         `yaml:"port"`
	Gateway GatewayConfig  `yaml:"gateway"`
	Runtime RuntimeConfig  `yaml:"runtime"`
	Memory  MemoryConfig   `yaml:"memory"`
	NATS    NATSConfig     `yaml:"nats"`
	Log     logging.Config `yaml:"log"`
}

// GatewayConfig holds the opaque runtime identifiers.
type GatewayConfig struct {
	MemoryID         string        `yaml:"memory_id"`
	RuntimeID        string        `yaml:"runtime_id"`
	MaxMemoryResults int           `yaml:"max_memory_results"`
	InvokeTimeout    time.Duration `yaml:"invoke_timeout"`
}

// RuntimeConfig selects and configures the agent runtime backend.
type RuntimeConfig struct {
	Backend   string        `yaml:"backend"`
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int64         `yaml:"max_tokens"`
}

// MemoryConfig selects where actor memory is read from.
type MemoryConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddress  string `yaml:"redis_address"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// NATSConfig enables turn event publishing when URL is set.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	gw := gateway.DefaultConfig()
	return Config{
		Port: "8080",
		Gateway: GatewayConfig{
			MemoryID:         gw.MemoryID,
			RuntimeID:        gw.RuntimeID,
			MaxMemoryResults: gw.MaxMemoryResults,
			InvokeTimeout:    gw.InvokeTimeout,
		},
		Runtime: RuntimeConfig{
			Backend: RuntimeHTTP,
			URL:     "http://localhost:9090",
			Timeout: agentcore.DefaultHTTPTimeout,
			Model:   agentcore.DefaultModel,
		},
		Memory: MemoryConfig{
			Backend:   MemoryRuntime,
			KeyPrefix: agentcore.DefaultRedisKeyPrefix,
		},
		Log: logging.Config{Level: "info"},
	}
}

// Load reads the YAML file at path, if any, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)

	c.Gateway.MemoryID = getEnv("MEMORY_ID", c.Gateway.MemoryID)
	c.Gateway.RuntimeID = getEnv("RUNTIME_ID", c.Gateway.RuntimeID)
	if v := os.Getenv("INVOKE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INVOKE_TIMEOUT %q: %w", v, err)
		}
		c.Gateway.InvokeTimeout = d
	}

	c.Runtime.Backend = getEnv("RUNTIME_BACKEND", c.Runtime.Backend)
	c.Runtime.URL = getEnv("RUNTIME_URL", c.Runtime.URL)
	c.Runtime.APIKey = getEnv("ANTHROPIC_API_KEY", c.Runtime.APIKey)
	c.Runtime.Model = getEnv("MODEL_ID", c.Runtime.Model)

	c.Memory.Backend = getEnv("MEMORY_BACKEND", c.Memory.Backend)
	c.Memory.RedisAddress = getEnv("REDIS_ADDRESS", c.Memory.RedisAddress)
	c.Memory.RedisPassword = getEnv("REDIS_PASSWORD", c.Memory.RedisPassword)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_DEVELOPMENT %q: %w", v, err)
		}
		c.Log.Development = dev
	}
	return nil
}

// Validate rejects unknown backends and missing backend settings.
func (c Config) Validate() error {
	switch c.Runtime.Backend {
	case RuntimeHTTP:
		if c.Runtime.URL == "" {
			return fmt.Errorf("runtime backend %q requires a url", c.Runtime.Backend)
		}
	case RuntimeAnthropic:
	default:
		return fmt.Errorf("unknown runtime backend %q", c.Runtime.Backend)
	}

	switch c.Memory.Backend {
	case MemoryRuntime, MemoryNone:
	case MemoryRedis:
		if c.Memory.RedisAddress == "" {
			return fmt.Errorf("memory backend %q requires redis_address", c.Memory.Backend)
		}
	default:
		return fmt.Errorf("unknown memory backend %q", c.Memory.Backend)
	}

	if c.Gateway.MaxMemoryResults < 0 {
		return fmt.Errorf("max_memory_results must not be negative")
	}
	return nil
}

// ForGateway converts the file settings into the gateway's own config.
func (c Config) ForGateway() gateway.Config {
	return gateway.Config{
		MemoryID:         c.Gateway.MemoryID,
		RuntimeID:        c.Gateway.RuntimeID,
		MaxMemoryResults: c.Gateway.MaxMemoryResults,
		InvokeTimeout:    c.Gateway.InvokeTimeout,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

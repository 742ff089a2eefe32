// Package config loads server configuration from TOML files with
// defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/gloria-ai/gloria-mcp/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig         `toml:"server"`
	Upstream UpstreamConfig       `toml:"upstream"`
	Payment  PaymentConfig        `toml:"payment"`
	Logging  common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	Name      string `toml:"name"`
	Port      string `toml:"port"`
	Transport string `toml:"transport"` // "stdio" or "streamable-http"
}

// UpstreamConfig contains the ai-hub API client settings.
type UpstreamConfig struct {
	BaseURL         string `toml:"base_url"`
	Token           string `toml:"token"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxRetries      int    `toml:"max_retries"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// PaymentConfig contains x402 payment gate settings.
type PaymentConfig struct {
	PayTo               string            `toml:"pay_to"`
	Network             string            `toml:"network"`
	Asset               string            `toml:"asset"`
	Scheme              string            `toml:"scheme"`
	FacilitatorURL      string            `toml:"facilitator_url"`
	ChallengeTTLSeconds int               `toml:"challenge_ttl_seconds"`
	AllowRetry          bool              `toml:"allow_retry"`
	Store               string            `toml:"store"`      // "memory" or "bolt"
	StorePath           string            `toml:"store_path"` // bolt database file

	Prices              map[string]string `toml:"prices"`        // tool name -> USDC amount
	TickerPrices        map[string]string `toml:"ticker_prices"` // ticker symbol -> USDC amount override
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// A missing file is not an error; defaults plus env apply.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if token := os.Getenv("GLORIA_API_TOKEN"); token != "" {
		config.Upstream.Token = token
	}
	if url := os.Getenv("AI_HUB_BASE_URL"); url != "" {
		config.Upstream.BaseURL = url
	}
	if port := os.Getenv("MCP_PORT"); port != "" {
		config.Server.Port = port
	}
	if transport := os.Getenv("MCP_TRANSPORT"); transport != "" {
		config.Server.Transport = transport
	}
	if payTo := os.Getenv("GLORIA_PAY_TO"); payTo != "" {
		config.Payment.PayTo = payTo
	}
	if url := os.Getenv("X402_FACILITATOR_URL"); url != "" {
		config.Payment.FacilitatorURL = url
	}
	if ttl := os.Getenv("X402_CHALLENGE_TTL_SECONDS"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil && n > 0 {
			config.Payment.ChallengeTTLSeconds = n
		}
	}
	if level := os.Getenv("GLORIA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Upstream.Token == "" {
		return fmt.Errorf("upstream token is required (set GLORIA_API_TOKEN or [upstream] token)")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base_url is required")
	}
	if c.Payment.PayTo == "" {
		return fmt.Errorf("payment pay_to address is required (set GLORIA_PAY_TO or [payment] pay_to)")
	}
	return nil
}

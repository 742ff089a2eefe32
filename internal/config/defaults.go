package config

import "github.com/gloria-ai/gloria-mcp/internal/common"

// Base mainnet USDC. Amounts are decimal USDC strings.
const (
	defaultNetwork = "eip155:8453"
	defaultAsset   = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "Gloria AI",
			Port:      "8005",
			Transport: "stdio",
		},
		Upstream: UpstreamConfig{
			BaseURL:         "https://ai-hub.cryptobriefing.com",
			TimeoutSeconds:  30,
			MaxRetries:      3,
			CacheTTLSeconds: 300,
		},
		Payment: PaymentConfig{
			Network:             defaultNetwork,
			Asset:               defaultAsset,
			Scheme:              "exact",
			FacilitatorURL:      "https://x402.org/facilitator",
			ChallengeTTLSeconds: 600,
			AllowRetry:          true,
			Store:               "memory",
			StorePath:           "data/challenges.db",
			Prices: map[string]string{
				"get_enriched_news":  "0.01",
				"get_ticker_summary": "0.05",
			},
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}

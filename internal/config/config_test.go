package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Transport != "stdio" {
		t.Errorf("expected stdio default transport, got %q", cfg.Server.Transport)
	}
	if cfg.Upstream.BaseURL == "" {
		t.Error("default upstream base URL must be set")
	}
	if cfg.Payment.Network != "eip155:8453" {
		t.Errorf("expected Base network default, got %q", cfg.Payment.Network)
	}
	if cfg.Payment.Prices["get_enriched_news"] == "" {
		t.Error("default price for get_enriched_news must be set")
	}
	if !cfg.Payment.AllowRetry {
		t.Error("challenge retry should default to allowed")
	}
	if cfg.Payment.Store != "memory" {
		t.Errorf("expected memory store default, got %q", cfg.Payment.Store)
	}
}

func TestLoadFromFileMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Server.Port != "8005" {
		t.Errorf("expected default port, got %q", cfg.Server.Port)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gloria-mcp.toml")
	content := `
[server]
transport = "streamable-http"
port = "9000"

[upstream]
token = "file-token"

[payment]
pay_to = "0xmerchant"
store = "bolt"

[payment.prices]
get_enriched_news = "0.02"

[payment.ticker_prices]
BTC = "0.10"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.Transport != "streamable-http" || cfg.Server.Port != "9000" {
		t.Errorf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Upstream.Token != "file-token" {
		t.Errorf("upstream token not applied: %q", cfg.Upstream.Token)
	}
	if cfg.Payment.Store != "bolt" {
		t.Errorf("payment store not applied: %q", cfg.Payment.Store)
	}
	if cfg.Payment.Prices["get_enriched_news"] != "0.02" {
		t.Errorf("price override not applied: %v", cfg.Payment.Prices)
	}
	if cfg.Payment.TickerPrices["BTC"] != "0.10" {
		t.Errorf("ticker price not applied: %v", cfg.Payment.TickerPrices)
	}
	// Base URL keeps its default when the file does not set it.
	if cfg.Upstream.BaseURL == "" {
		t.Error("unset fields must keep defaults")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GLORIA_API_TOKEN", "env-token")
	t.Setenv("MCP_TRANSPORT", "streamable-http")
	t.Setenv("GLORIA_PAY_TO", "0xenv")
	t.Setenv("X402_CHALLENGE_TTL_SECONDS", "120")

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Upstream.Token != "env-token" {
		t.Errorf("GLORIA_API_TOKEN not applied: %q", cfg.Upstream.Token)
	}
	if cfg.Server.Transport != "streamable-http" {
		t.Errorf("MCP_TRANSPORT not applied: %q", cfg.Server.Transport)
	}
	if cfg.Payment.PayTo != "0xenv" {
		t.Errorf("GLORIA_PAY_TO not applied: %q", cfg.Payment.PayTo)
	}
	if cfg.Payment.ChallengeTTLSeconds != 120 {
		t.Errorf("X402_CHALLENGE_TTL_SECONDS not applied: %d", cfg.Payment.ChallengeTTLSeconds)
	}
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("config without a token must not validate")
	}

	cfg.Upstream.Token = "token"
	if err := cfg.Validate(); err == nil {
		t.Error("config without a pay_to address must not validate")
	}

	cfg.Payment.PayTo = "0xmerchant"
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete config should validate: %v", err)
	}
}

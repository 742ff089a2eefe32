package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gloria-ai/gloria-mcp/internal/catalog"
	"github.com/gloria-ai/gloria-mcp/internal/common"
	"github.com/gloria-ai/gloria-mcp/internal/config"
	"github.com/gloria-ai/gloria-mcp/internal/dispatch"
	"github.com/gloria-ai/gloria-mcp/internal/gloria"
	"github.com/gloria-ai/gloria-mcp/internal/payment"
)

func main() {
	stdio := flag.Bool("stdio", false, "Use stdio transport (for Claude Desktop)")
	configFile := flag.String("config", "gloria-mcp.toml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	common.LoadVersionFromFile()

	logger := common.NewLoggerFromConfig(cfg.Logging)

	client := gloria.New(gloria.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		Token:      cfg.Upstream.Token,
		Timeout:    time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Upstream.MaxRetries,
		CacheTTL:   time.Duration(cfg.Upstream.CacheTTLSeconds) * time.Second,
	}, logger)

	var store payment.ChallengeStore
	if cfg.Payment.Store == "bolt" {
		boltStore, err := payment.NewBoltStore(cfg.Payment.StorePath, logger)
		if err != nil {
			log.Fatalf("Failed to open challenge store: %v", err)
		}
		defer boltStore.Close()
		store = boltStore
	} else {
		store = payment.NewMemoryStore()
	}

	verifier := payment.NewFacilitatorClient(cfg.Payment.FacilitatorURL,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second, logger)
	pricing := payment.NewTablePricing(cfg.Payment.Prices, cfg.Payment.TickerPrices)
	gate := payment.NewGate(store, verifier, pricing, payment.GateConfig{
		PayTo:        cfg.Payment.PayTo,
		Network:      cfg.Payment.Network,
		Asset:        cfg.Payment.Asset,
		Scheme:       cfg.Payment.Scheme,
		ChallengeTTL: time.Duration(cfg.Payment.ChallengeTTLSeconds) * time.Second,
		AllowRetry:   cfg.Payment.AllowRetry,
	}, logger)

	cat := catalog.New()
	dispatcher := dispatch.New(cat, client, gate, logger)

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		common.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
	)

	registerTools(mcpServer, cat, dispatcher, logger)
	registerResources(mcpServer, client, logger)

	if *stdio || cfg.Server.Transport == "stdio" {
		if err := server.ServeStdio(mcpServer); err != nil {
			fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	port := cfg.Server.Port

	httpServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)

	logger.Info().Str("port", port).Msg("Starting MCP Streamable HTTP")
	fmt.Fprintf(os.Stderr, "Starting MCP Streamable HTTP on :%s\n", port)

	if err := httpServer.Start(":" + port); err != nil {
		fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		os.Exit(1)
	}
}

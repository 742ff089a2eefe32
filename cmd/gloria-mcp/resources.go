package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gloria-ai/gloria-mcp/internal/common"
	"github.com/gloria-ai/gloria-mcp/internal/gloria"
)

// registerResources registers the read-only MCP resources: a server
// overview and the live category listing.
func registerResources(s *server.MCPServer, client *gloria.Client, logger *common.Logger) {
	s.AddResource(
		mcp.NewResource("gloria://about", "About Gloria AI",
			mcp.WithResourceDescription("What this server provides and how the paid tools work."),
			mcp.WithMIMEType("text/markdown"),
		),
		handleAboutResource(),
	)

	s.AddResource(
		mcp.NewResource("gloria://categories", "News Categories",
			mcp.WithResourceDescription("All available news feed categories with recap timeframes."),
			mcp.WithMIMEType("text/markdown"),
		),
		handleCategoriesResource(client, logger),
	)
}

func handleAboutResource() server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var sb strings.Builder
		sb.WriteString("# Gloria AI News Server\n\n")
		sb.WriteString(fmt.Sprintf("Version: %s\n\n", common.GetVersion()))
		sb.WriteString("Curated crypto news with AI sentiment, recaps, and search.\n\n")
		sb.WriteString("## Free tools\n\n")
		sb.WriteString("- `get_latest_news` — latest headlines, optionally filtered by category\n")
		sb.WriteString("- `search_news` — keyword search over curated news\n")
		sb.WriteString("- `get_news_recap` — AI recap for a category and timeframe\n")
		sb.WriteString("- `get_categories` — list feed categories\n")
		sb.WriteString("- `get_news_item` — fetch one item by ID\n\n")
		sb.WriteString("## Paid tools (x402, USDC on Base)\n\n")
		sb.WriteString("- `get_enriched_news` — full AI context and entity analysis for an item\n")
		sb.WriteString("- `get_ticker_summary` — 24-hour AI summary for a ticker or topic\n\n")
		sb.WriteString("Paid tools return a payment challenge on first call. Settle it and retry with the proof in the `x402/payment` _meta field.\n")

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		}, nil
	}
}

func handleCategoriesResource(client *gloria.Client, logger *common.Logger) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		cats, err := client.Categories(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Categories Resource Failed")
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/markdown",
				Text:     formatCategories(cats),
			},
		}, nil
	}
}

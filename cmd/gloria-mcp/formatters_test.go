package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gloria-ai/gloria-mcp/internal/dispatch"
	"github.com/gloria-ai/gloria-mcp/internal/gloria"
)

func TestFormatNewsItems(t *testing.T) {
	items := []gloria.NewsItem{
		{
			"id":              "news-1",
			"signal":          "Bitcoin breaks resistance",
			"sentiment":       "positive",
			"sentiment_value": 0.82,
			"timestamp":       "2026-08-30T12:00:00Z",
			"feed_categories": []any{"bitcoin", "markets"},
			"tokens":          []any{"BTC"},
			"sources":         []any{"crypto briefing"},
		},
		{
			"id":     "news-2",
			"signal": "ETH staking update",
		},
	}

	text := formatNewsItems(items)

	if !strings.Contains(text, "2 items") {
		t.Error("Header should show the item count")
	}
	if !strings.Contains(text, "## 1. Bitcoin breaks resistance") {
		t.Error("First item should be numbered with its headline")
	}
	if !strings.Contains(text, "positive (0.82)") {
		t.Error("Sentiment should include the numeric value")
	}
	if !strings.Contains(text, "bitcoin, markets") {
		t.Error("Categories should be comma-joined")
	}
	if !strings.Contains(text, "## 2. ETH staking update") {
		t.Error("Second item should render")
	}
}

func TestFormatNewsItemsEmpty(t *testing.T) {
	text := formatNewsItems(nil)
	if !strings.Contains(text, "No news items") {
		t.Errorf("Empty listing should say so, got %q", text)
	}
}

func TestFormatNewsItemWithContext(t *testing.T) {
	item := gloria.NewsItem{
		"id":           "news-1",
		"signal":       "Bitcoin breaks resistance",
		"long_context": "Full analysis of the breakout.",
	}

	text := formatNewsItem(item)

	if !strings.Contains(text, "### Context") {
		t.Error("Enriched item should have a context section")
	}
	if !strings.Contains(text, "Full analysis of the breakout.") {
		t.Error("Context body should be included")
	}
}

func TestFormatNewsItemShortContextFallback(t *testing.T) {
	item := gloria.NewsItem{
		"id":            "news-1",
		"signal":        "ETH staking update",
		"short_context": "Brief note.",
	}

	text := formatNewsItem(item)
	if !strings.Contains(text, "Brief note.") {
		t.Error("short_context should render when long_context is absent")
	}
}

func TestFormatRecap(t *testing.T) {
	recap := &gloria.Recap{
		FeedCategory: "defi",
		Timeframe:    "12h",
		Recap:        "TVL rose across major protocols.",
		CreatedAt:    "2026-08-30T12:00:00Z",
	}

	text := formatRecap(recap)

	if !strings.Contains(text, "# Defi Recap (12h)") {
		t.Errorf("Unexpected recap header in %q", text)
	}
	if !strings.Contains(text, "TVL rose") {
		t.Error("Recap body should be included")
	}
	if !strings.Contains(text, "Generated: 2026-08-30") {
		t.Error("Generation time should be included")
	}
}

func TestFormatRecapEmpty(t *testing.T) {
	text := formatRecap(&gloria.Recap{FeedCategory: "defi"})
	if !strings.Contains(text, "No recap available") {
		t.Errorf("Empty recap should say so, got %q", text)
	}
}

func TestFormatCategoriesSortedTable(t *testing.T) {
	cats := []gloria.Category{
		{Code: "ethereum", Name: "Ethereum", RecapTimeframe: "12h"},
		{Code: "bitcoin", Name: "Bitcoin", RecapTimeframe: "8h"},
	}

	text := formatCategories(cats)

	if !strings.Contains(text, "| Code | Name |") {
		t.Error("Categories should render as a table")
	}
	bitcoinIdx := strings.Index(text, "`bitcoin`")
	ethereumIdx := strings.Index(text, "`ethereum`")
	if bitcoinIdx < 0 || ethereumIdx < 0 {
		t.Fatal("Both categories should appear")
	}
	if bitcoinIdx > ethereumIdx {
		t.Error("Categories should be sorted by code")
	}
}

func TestFormatRawJSON(t *testing.T) {
	raw := json.RawMessage(`{"ticker":"SOL","summary":"up 4% on the day"}`)

	text := formatRawJSON(raw)

	if !strings.Contains(text, "```json") {
		t.Error("Raw payload should render inside a code fence")
	}
	if !strings.Contains(text, `"ticker": "SOL"`) {
		t.Error("Payload should be pretty-printed")
	}
}

func TestFormatRawJSONInvalid(t *testing.T) {
	text := formatRawJSON(json.RawMessage("not json"))
	if text != "not json" {
		t.Errorf("Unparseable payload should pass through, got %q", text)
	}
}

func TestFormatResultPaidFooter(t *testing.T) {
	result := &dispatch.ToolResult{
		Status: dispatch.StatusOK,
		Body:   gloria.NewsItem{"id": "news-1", "signal": "headline"},
		Payer:  "0xalice",
	}

	text := formatResult("get_enriched_news", result)

	if !strings.Contains(text, "headline") {
		t.Error("Body should render")
	}
	if !strings.Contains(text, "settled by 0xalice") {
		t.Error("Paid results should note the settling payer")
	}
}

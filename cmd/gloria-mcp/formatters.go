package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gloria-ai/gloria-mcp/internal/dispatch"
	"github.com/gloria-ai/gloria-mcp/internal/gloria"
)

// formatResult renders a successful dispatch result as markdown for the
// tool's content payload.
func formatResult(tool string, result *dispatch.ToolResult) string {
	var text string
	switch body := result.Body.(type) {
	case []gloria.NewsItem:
		text = formatNewsItems(body)
	case gloria.NewsItem:
		text = formatNewsItem(body)
	case *gloria.Recap:
		text = formatRecap(body)
	case []gloria.Category:
		text = formatCategories(body)
	case json.RawMessage:
		text = formatRawJSON(body)
	default:
		text = formatFallback(body)
	}

	if result.Payer != "" {
		text += fmt.Sprintf("\n---\n*Paid content — settled by %s*\n", result.Payer)
	}
	return text
}

// formatNewsItems formats a news listing as markdown.
func formatNewsItems(items []gloria.NewsItem) string {
	if len(items) == 0 {
		return "No news items found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Latest Crypto News (%d items)\n\n", len(items)))
	for i, item := range items {
		sb.WriteString(formatNewsEntry(i+1, item))
	}
	return sb.String()
}

func formatNewsEntry(n int, item gloria.NewsItem) string {
	var sb strings.Builder

	signal, _ := item["signal"].(string)
	if signal == "" {
		signal = "(no headline)"
	}
	sb.WriteString(fmt.Sprintf("## %d. %s\n", n, signal))

	if id, ok := item["id"].(string); ok && id != "" {
		sb.WriteString(fmt.Sprintf("**ID:** `%s`\n", id))
	}
	if ts, ok := item["timestamp"].(string); ok && ts != "" {
		sb.WriteString(fmt.Sprintf("**Time:** %s\n", ts))
	}
	sb.WriteString(formatSentimentLine(item))
	if cats := stringList(item["feed_categories"]); len(cats) > 0 {
		sb.WriteString(fmt.Sprintf("**Categories:** %s\n", strings.Join(cats, ", ")))
	}
	if tokens := stringList(item["tokens"]); len(tokens) > 0 {
		sb.WriteString(fmt.Sprintf("**Tokens:** %s\n", strings.Join(tokens, ", ")))
	}
	if author, ok := item["author"].(string); ok && author != "" {
		sb.WriteString(fmt.Sprintf("**Author:** %s\n", author))
	}
	if sources := stringList(item["sources"]); len(sources) > 0 {
		sb.WriteString(fmt.Sprintf("**Sources:** %s\n", strings.Join(sources, ", ")))
	}
	if tweet, ok := item["tweet_url"].(string); ok && tweet != "" {
		sb.WriteString(fmt.Sprintf("**Link:** %s\n", tweet))
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatSentimentLine(item gloria.NewsItem) string {
	sentiment, _ := item["sentiment"].(string)
	if sentiment == "" {
		return ""
	}
	if v, ok := item["sentiment_value"].(float64); ok {
		return fmt.Sprintf("**Sentiment:** %s (%.2f)\n", sentiment, v)
	}
	return fmt.Sprintf("**Sentiment:** %s\n", sentiment)
}

// formatNewsItem formats a single item, including enrichment fields when
// present.
func formatNewsItem(item gloria.NewsItem) string {
	if len(item) == 0 {
		return "No news item found."
	}

	var sb strings.Builder
	sb.WriteString(formatNewsEntry(1, item))

	if long, ok := item["long_context"].(string); ok && long != "" {
		sb.WriteString("### Context\n\n")
		sb.WriteString(long)
		sb.WriteString("\n\n")
	} else if short, ok := item["short_context"].(string); ok && short != "" {
		sb.WriteString("### Context\n\n")
		sb.WriteString(short)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// formatRecap formats a category recap as markdown.
func formatRecap(recap *gloria.Recap) string {
	if recap == nil || recap.Recap == "" {
		return "No recap available for this category and timeframe."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s Recap (%s)\n\n", titleCase(recap.FeedCategory), recap.Timeframe))
	sb.WriteString(recap.Recap)
	sb.WriteString("\n")
	if recap.CreatedAt != "" {
		sb.WriteString(fmt.Sprintf("\n*Generated: %s*\n", recap.CreatedAt))
	}
	return sb.String()
}

// formatCategories formats the category listing as a markdown table.
func formatCategories(cats []gloria.Category) string {
	if len(cats) == 0 {
		return "No categories available."
	}

	sorted := make([]gloria.Category, len(cats))
	copy(sorted, cats)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	var sb strings.Builder
	sb.WriteString("# Available News Categories\n\n")
	sb.WriteString("| Code | Name | Recap Timeframe |\n")
	sb.WriteString("|------|------|------------------|\n")
	for _, c := range sorted {
		name := c.Name
		if name == "" {
			name = c.Code
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", c.Code, name, c.RecapTimeframe))
	}
	return sb.String()
}

// formatRawJSON pretty-prints an upstream JSON payload inside a code fence.
func formatRawJSON(raw json.RawMessage) string {
	var buf strings.Builder
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	buf.WriteString("```json\n")
	buf.Write(pretty)
	buf.WriteString("\n```\n")
	return buf.String()
}

func formatFallback(body any) string {
	pretty, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(pretty)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

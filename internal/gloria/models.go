// Package gloria wraps the ai-hub REST API: curated crypto news, recaps,
// categories, and the paid enriched/ticker-summary endpoints.
package gloria

// NewsItem is an upstream news record. Items are passed through
// upstream-shaped; the free tier strips the paid analysis fields.
type NewsItem map[string]any

// freeNewsFields is the free-tier field allowlist. Enriched fields
// (long_context, short_context, entity analysis) are paid-only.
var freeNewsFields = []string{
	"id",
	"signal",
	"sentiment",
	"sentiment_value",
	"timestamp",
	"feed_categories",
	"sources",
	"author",
	"tokens",
	"tweet_url",
}

// FreeTier returns a copy of the item holding only free-tier fields.
func (n NewsItem) FreeTier() NewsItem {
	out := make(NewsItem, len(freeNewsFields))
	for _, k := range freeNewsFields {
		if v, ok := n[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Recap is an AI-generated category summary.
type Recap struct {
	FeedCategory string `json:"feed_category"`
	Timeframe    string `json:"timeframe"`
	Recap        string `json:"recap"`
	CreatedAt    string `json:"created_at"`
}

// Category describes one news feed category.
type Category struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	RecapTimeframe string `json:"recap_timeframe,omitempty"`
}

// Package catalog holds the static tool registry: every tool's name, tier,
// and declared parameters. Built once at startup and never mutated.
package catalog

import "regexp"

// Tier marks whether a tool is free or payment-gated.
type Tier int

const (
	TierFree Tier = iota
	TierPaid
)

func (t Tier) String() string {
	if t == TierPaid {
		return "paid"
	}
	return "free"
}

// Kind is the closed set of tool variants the dispatcher routes on.
type Kind int

const (
	KindLatestNews Kind = iota
	KindNewsRecap
	KindSearchNews
	KindCategories
	KindNewsItem
	KindEnrichedNews
	KindTickerSummary
)

// ParamType is the declared wire type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Param declares a single tool parameter and its constraints.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
	Enum     []string
	Min      float64
	Max      float64
	HasRange bool
	Pattern  *regexp.Regexp
	Desc     string
}

// ToolDefinition describes one tool: immutable after startup.
type ToolDefinition struct {
	Name        string
	Kind        Kind
	Tier        Tier
	Description string
	Params      []Param
}

// Catalog is the closed tool registry, looked up by name.
type Catalog struct {
	byName  map[string]*ToolDefinition
	ordered []*ToolDefinition
}

// tickerPattern accepts symbols and topic names like SOL, ETH, LayerZero.
var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,19}$`)

// idPattern accepts news item identifiers.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ProofParams are the optional parameters declared on every paid tool so a
// caller that cannot set the x402 _meta field can still supply a payment
// proof inline. They are stripped before pricing and upstream calls.
var ProofParams = []string{"challenge_id", "transaction", "payer"}

// New builds the fixed Gloria tool set.
func New() *Catalog {
	defs := []*ToolDefinition{
		{
			Name:        "get_latest_news",
			Kind:        KindLatestNews,
			Tier:        TierFree,
			Description: "Get the latest curated crypto news headlines with sentiment, categories, and sources.",
			Params: []Param{
				{Name: "category", Type: TypeString, Desc: "Filter by category code (e.g. 'bitcoin', 'ethereum', 'defi', 'ai'). Omit for all categories."},
				{Name: "limit", Type: TypeNumber, Min: 1, Max: 10, HasRange: true, Desc: "Number of items to return (1-10, default 5)."},
			},
		},
		{
			Name:        "get_news_recap",
			Kind:        KindNewsRecap,
			Tier:        TierFree,
			Description: "Get an AI-generated news recap for a category.",
			Params: []Param{
				{Name: "category", Type: TypeString, Required: true, Desc: "Category code. Use get_categories to see options."},
				{Name: "timeframe", Type: TypeString, Enum: []string{"1h", "8h", "12h", "24h"}, Desc: "Time window for the recap (default '12h')."},
			},
		},
		{
			Name:        "search_news",
			Kind:        KindSearchNews,
			Tier:        TierFree,
			Description: "Search curated crypto news by keyword.",
			Params: []Param{
				{Name: "query", Type: TypeString, Required: true, Desc: "Search keyword or phrase (e.g. 'ETF', 'SEC', 'Uniswap')."},
				{Name: "limit", Type: TypeNumber, Min: 1, Max: 5, HasRange: true, Desc: "Number of results to return (1-5, default 5)."},
			},
		},
		{
			Name:        "get_categories",
			Kind:        KindCategories,
			Tier:        TierFree,
			Description: "List all available news categories with their recap timeframes.",
		},
		{
			Name:        "get_news_item",
			Kind:        KindNewsItem,
			Tier:        TierFree,
			Description: "Get a specific news item by its ID.",
			Params: []Param{
				{Name: "id", Type: TypeString, Required: true, Pattern: idPattern, Desc: "The news item ID from get_latest_news or search_news results."},
			},
		},
		{
			Name:        "get_enriched_news",
			Kind:        KindEnrichedNews,
			Tier:        TierPaid,
			Description: "Get enriched news with full AI-generated context and entity analysis (paid via x402, USDC on Base).",
			Params: append([]Param{
				{Name: "id", Type: TypeString, Required: true, Pattern: idPattern, Desc: "The news item ID to enrich."},
			}, proofParamDefs()...),
		},
		{
			Name:        "get_ticker_summary",
			Kind:        KindTickerSummary,
			Tier:        TierPaid,
			Description: "Get a 24-hour AI-generated summary for a crypto ticker or topic (paid via x402, USDC on Base).",
			Params: append([]Param{
				{Name: "ticker", Type: TypeString, Required: true, Pattern: tickerPattern, Desc: "Ticker symbol or topic name (e.g. 'SOL', 'LayerZero', 'ETH')."},
			}, proofParamDefs()...),
		},
	}

	c := &Catalog{byName: make(map[string]*ToolDefinition, len(defs)), ordered: defs}
	for _, d := range defs {
		c.byName[d.Name] = d
	}
	return c
}

func proofParamDefs() []Param {
	return []Param{
		{Name: "challenge_id", Type: TypeString, Desc: "x402 challenge ID from a prior payment-required response."},
		{Name: "transaction", Type: TypeString, Desc: "On-chain transaction reference proving payment."},
		{Name: "payer", Type: TypeString, Desc: "Payer address that funded the transaction."},
	}
}

// Lookup returns the definition for a tool name.
func (c *Catalog) Lookup(name string) (*ToolDefinition, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// List returns all tool definitions in registration order.
func (c *Catalog) List() []*ToolDefinition {
	return c.ordered
}

// IsProofParam reports whether name is a reserved payment-proof parameter.
func IsProofParam(name string) bool {
	for _, p := range ProofParams {
		if p == name {
			return true
		}
	}
	return false
}

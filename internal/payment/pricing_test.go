package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablePricingBaseAmount(t *testing.T) {
	pricing := NewTablePricing(map[string]string{
		"get_enriched_news":  "0.01",
		"get_ticker_summary": "0.05",
	}, nil)

	amount, err := pricing.Quote("get_enriched_news", map[string]any{"id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "0.01", amount)
}

func TestTablePricingUnpricedTool(t *testing.T) {
	pricing := NewTablePricing(map[string]string{}, nil)

	_, err := pricing.Quote("get_enriched_news", nil)
	assert.Error(t, err)
}

func TestTablePricingTickerOverride(t *testing.T) {
	pricing := NewTablePricing(
		map[string]string{"get_ticker_summary": "0.05"},
		map[string]string{"btc": "0.10"},
	)

	amount, err := pricing.Quote("get_ticker_summary", map[string]any{"ticker": "BTC"})
	require.NoError(t, err)
	assert.Equal(t, "0.10", amount, "override keys match case-insensitively")

	amount, err = pricing.Quote("get_ticker_summary", map[string]any{"ticker": "ETH"})
	require.NoError(t, err)
	assert.Equal(t, "0.05", amount, "unlisted tickers fall back to the base amount")
}

func TestTablePricingOverrideIgnoredWithoutTicker(t *testing.T) {
	pricing := NewTablePricing(
		map[string]string{"get_enriched_news": "0.01"},
		map[string]string{"BTC": "0.10"},
	)

	amount, err := pricing.Quote("get_enriched_news", map[string]any{"id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "0.01", amount)
}

package payment

import (
	"fmt"
	"strings"
)

// Pricing computes the USDC amount for a tool call. The amount may depend
// on the arguments, so it is computed at challenge-mint time and recomputed
// at redemption to prevent paying for a cheap variant and redeeming a
// costlier one.
type Pricing interface {
	Quote(tool string, args map[string]any) (string, error)
}

// TablePricing prices tools from a config-backed table: a base amount per
// tool, with optional per-ticker overrides applied when the call carries a
// "ticker" argument.
type TablePricing struct {
	base            map[string]string
	tickerOverrides map[string]string
}

// NewTablePricing builds a pricing table. Ticker override keys are matched
// case-insensitively.
func NewTablePricing(base, tickerOverrides map[string]string) *TablePricing {
	overrides := make(map[string]string, len(tickerOverrides))
	for k, v := range tickerOverrides {
		overrides[strings.ToUpper(k)] = v
	}
	return &TablePricing{base: base, tickerOverrides: overrides}
}

func (p *TablePricing) Quote(tool string, args map[string]any) (string, error) {
	amount, ok := p.base[tool]
	if !ok {
		return "", fmt.Errorf("no price configured for tool %s", tool)
	}

	if ticker, ok := args["ticker"].(string); ok && ticker != "" {
		if override, ok := p.tickerOverrides[strings.ToUpper(ticker)]; ok {
			amount = override
		}
	}

	return amount, nil
}

var _ Pricing = (*TablePricing)(nil)

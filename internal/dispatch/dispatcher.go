// Package dispatch routes validated tool calls to the upstream news API,
// interposing the payment gate for paid tools. It is transport-agnostic:
// the MCP layer translates wire requests into ToolCallRequest and renders
// ToolResult back out.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gloria-ai/gloria-mcp/internal/catalog"
	"github.com/gloria-ai/gloria-mcp/internal/common"
	"github.com/gloria-ai/gloria-mcp/internal/gloria"
	"github.com/gloria-ai/gloria-mcp/internal/payment"
)

// Upstream is the subset of the news API client the dispatcher calls.
type Upstream interface {
	LatestNews(ctx context.Context, category string, limit int) ([]gloria.NewsItem, error)
	Search(ctx context.Context, query string, limit int) ([]gloria.NewsItem, error)
	NewsItem(ctx context.Context, id string) (gloria.NewsItem, error)
	Recap(ctx context.Context, category, timeframe string) (*gloria.Recap, error)
	Categories(ctx context.Context) ([]gloria.Category, error)
	EnrichedNews(ctx context.Context, id string) (gloria.NewsItem, error)
	TickerSummary(ctx context.Context, ticker string) (json.RawMessage, error)
}

// PaymentGate mints and redeems x402 challenges for paid tools.
type PaymentGate interface {
	Require(ctx context.Context, tool string, args map[string]any, reason string) (*payment.Required, error)
	Redeem(ctx context.Context, tool string, args map[string]any, proof payment.Proof) (string, error)
}

// Status classifies a tool call outcome.
type Status int

const (
	StatusOK Status = iota
	StatusPaymentRequired
	StatusError
)

// ErrorCode identifies why a tool call failed.
type ErrorCode string

const (
	CodeUnknownTool         ErrorCode = "unknown_tool"
	CodeInvalidArguments    ErrorCode = "invalid_arguments"
	CodeNotFound            ErrorCode = "not_found"
	CodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	CodeUpstreamError       ErrorCode = "upstream_error"
	CodePaymentRejected     ErrorCode = "payment_rejected"
	CodePaymentPending      ErrorCode = "payment_pending"
	CodeVerifierUnavailable ErrorCode = "verifier_unavailable"
	CodeInternal            ErrorCode = "internal"
)

// ToolError carries a machine-readable failure code plus detail text.
type ToolError struct {
	Code   ErrorCode
	Detail string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// ToolCallRequest is one decoded tool invocation.
type ToolCallRequest struct {
	Tool   string
	Args   map[string]any
	CallID string
	Proof  *payment.Proof
}

// ToolResult is the dispatcher's answer. Exactly one of Body, Payment, or
// Err is populated, matching Status.
type ToolResult struct {
	Status  Status
	Body    any
	Payment *payment.Required
	Payer   string
	Err     *ToolError
}

func errResult(code ErrorCode, detail string) *ToolResult {
	return &ToolResult{Status: StatusError, Err: &ToolError{Code: code, Detail: detail}}
}

// Dispatcher validates, gates, and executes tool calls.
type Dispatcher struct {
	catalog  *catalog.Catalog
	upstream Upstream
	gate     PaymentGate
	logger   *common.Logger
}

// New creates a dispatcher over the given upstream and payment gate.
func New(cat *catalog.Catalog, upstream Upstream, gate PaymentGate, logger *common.Logger) *Dispatcher {
	return &Dispatcher{catalog: cat, upstream: upstream, gate: gate, logger: logger}
}

// Handle executes one tool call end to end: resolve the tool, split out any
// inline payment proof, validate arguments, settle payment for paid tiers,
// then invoke the upstream operation.
func (d *Dispatcher) Handle(ctx context.Context, req ToolCallRequest) *ToolResult {
	def, ok := d.catalog.Lookup(req.Tool)
	if !ok {
		return errResult(CodeUnknownTool, fmt.Sprintf("unknown tool: %s", req.Tool))
	}

	args, proof := splitProof(req.Args)
	if req.Proof != nil {
		proof = req.Proof
	}

	if err := validateArgs(def, args); err != nil {
		return errResult(CodeInvalidArguments, err.Error())
	}

	log := d.logger
	if req.CallID != "" {
		log = log.WithCorrelationId(req.CallID)
	}
	log.Info().
		Str("tool", req.Tool).
		Str("tier", def.Tier.String()).
		Msg("Tool Call")

	if def.Tier == catalog.TierPaid {
		return d.handlePaid(ctx, def, args, proof, log)
	}
	return d.handleFree(ctx, def, args)
}

// handlePaid settles payment before touching the upstream. A call without a
// proof gets a fresh challenge; a call with one redeems it.
func (d *Dispatcher) handlePaid(ctx context.Context, def *catalog.ToolDefinition, args map[string]any, proof *payment.Proof, log *common.Logger) *ToolResult {
	if proof == nil {
		required, err := d.gate.Require(ctx, def.Name,
			args, fmt.Sprintf("%s requires payment. Pay the quoted amount and retry with the challenge proof.", def.Name))
		if err != nil {
			return errResult(CodeInternal, err.Error())
		}
		return &ToolResult{Status: StatusPaymentRequired, Payment: required}
	}

	payer, err := d.gate.Redeem(ctx, def.Name, args, *proof)
	if err != nil {
		return d.redeemFailure(ctx, def, args, err, log)
	}

	result := d.callUpstream(ctx, def, args)
	if result.Status == StatusOK {
		result.Payer = payer
	}
	return result
}

// redeemFailure maps a redemption error onto the result taxonomy. A missing
// or expired challenge yields a fresh payment challenge rather than a dead
// end.
func (d *Dispatcher) redeemFailure(ctx context.Context, def *catalog.ToolDefinition, args map[string]any, err error, log *common.Logger) *ToolResult {
	var rejected *payment.RejectedError
	switch {
	case errors.Is(err, payment.ErrChallengeNotFound), errors.Is(err, payment.ErrChallengeExpired):
		log.Warn().Str("tool", def.Name).Err(err).Msg("Payment Challenge Unusable")
		required, rerr := d.gate.Require(ctx, def.Name,
			args, fmt.Sprintf("%v. A new payment challenge has been issued.", err))
		if rerr != nil {
			return errResult(CodeInternal, rerr.Error())
		}
		return &ToolResult{Status: StatusPaymentRequired, Payment: required}
	case errors.Is(err, payment.ErrChallengeAlreadyConsumed):
		return errResult(CodePaymentRejected, "challenge already consumed")
	case errors.As(err, &rejected):
		return errResult(CodePaymentRejected, rejected.Reason)
	case errors.Is(err, payment.ErrPaymentPending):
		return errResult(CodePaymentPending, "payment not yet confirmed, retry with the same proof shortly")
	case errors.Is(err, payment.ErrVerifierUnavailable):
		return errResult(CodeVerifierUnavailable, "payment verification is temporarily unavailable, retry with the same proof")
	default:
		return errResult(CodeInternal, err.Error())
	}
}

func (d *Dispatcher) handleFree(ctx context.Context, def *catalog.ToolDefinition, args map[string]any) *ToolResult {
	return d.callUpstream(ctx, def, args)
}

// callUpstream invokes the upstream operation for the tool kind. Arguments
// are already validated; defaults are applied here.
func (d *Dispatcher) callUpstream(ctx context.Context, def *catalog.ToolDefinition, args map[string]any) *ToolResult {
	var (
		body any
		err  error
	)

	switch def.Kind {
	case catalog.KindLatestNews:
		var items []gloria.NewsItem
		items, err = d.upstream.LatestNews(ctx, argString(args, "category", ""), argInt(args, "limit", 5))
		body = freeTierItems(items)
	case catalog.KindSearchNews:
		var items []gloria.NewsItem
		items, err = d.upstream.Search(ctx, argString(args, "query", ""), argInt(args, "limit", 5))
		body = freeTierItems(items)
	case catalog.KindNewsRecap:
		body, err = d.upstream.Recap(ctx, argString(args, "category", ""), argString(args, "timeframe", "12h"))
	case catalog.KindCategories:
		body, err = d.upstream.Categories(ctx)
	case catalog.KindNewsItem:
		var item gloria.NewsItem
		item, err = d.upstream.NewsItem(ctx, argString(args, "id", ""))
		body = item.FreeTier()
	case catalog.KindEnrichedNews:
		body, err = d.upstream.EnrichedNews(ctx, argString(args, "id", ""))
	case catalog.KindTickerSummary:
		body, err = d.upstream.TickerSummary(ctx, argString(args, "ticker", ""))
	default:
		return errResult(CodeInternal, fmt.Sprintf("unroutable tool kind %d", def.Kind))
	}

	if err != nil {
		return upstreamFailure(err)
	}
	return &ToolResult{Status: StatusOK, Body: body}
}

func upstreamFailure(err error) *ToolResult {
	switch {
	case gloria.IsNotFound(err):
		return errResult(CodeNotFound, "no matching item upstream")
	case errors.Is(err, gloria.ErrUnavailable), errors.Is(err, gloria.ErrTimeout):
		return errResult(CodeUpstreamUnavailable, "news service is temporarily unavailable")
	default:
		var statusErr *gloria.StatusError
		if errors.As(err, &statusErr) {
			return errResult(CodeUpstreamError, fmt.Sprintf("news service returned status %d", statusErr.Code))
		}
		return errResult(CodeInternal, err.Error())
	}
}

// splitProof removes the reserved proof parameters from args and assembles
// them into a Proof when a challenge ID is present. The returned map is a
// copy; the caller's map is never mutated.
func splitProof(args map[string]any) (map[string]any, *payment.Proof) {
	cleaned := make(map[string]any, len(args))
	proof := payment.Proof{}
	for k, v := range args {
		if !catalog.IsProofParam(k) {
			cleaned[k] = v
			continue
		}
		s, _ := v.(string)
		switch k {
		case "challenge_id":
			proof.ChallengeID = s
		case "transaction":
			proof.Transaction = s
		case "payer":
			proof.Payer = s
		}
	}
	if proof.ChallengeID == "" {
		return cleaned, nil
	}
	return cleaned, &proof
}

// freeTierItems strips paid-only fields from every item in a listing.
func freeTierItems(items []gloria.NewsItem) []gloria.NewsItem {
	out := make([]gloria.NewsItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.FreeTier())
	}
	return out
}

func argString(args map[string]any, key, fallback string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gloria-ai/gloria-mcp/internal/common"
	"github.com/gloria-ai/gloria-mcp/internal/dispatch"
	"github.com/gloria-ai/gloria-mcp/internal/payment"
)

// paymentMetaKey is the x402 _meta key clients use to attach a payment
// proof to a tool call.
const paymentMetaKey = "x402/payment"

// paymentRequiredMetaKey is the _meta key carrying the structured
// payment-required payload on a 402 result.
const paymentRequiredMetaKey = "x402/payment-required"

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// proofFromMeta extracts an x402 payment proof from the request _meta
// field. Both the flat shape and the payload-nested shape are accepted.
func proofFromMeta(request mcp.CallToolRequest) *payment.Proof {
	if request.Params.Meta == nil {
		return nil
	}
	raw, ok := request.Params.Meta.AdditionalFields[paymentMetaKey]
	if !ok {
		return nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	if nested, ok := fields["payload"].(map[string]any); ok {
		fields = nested
	}

	proof := payment.Proof{}
	if s, ok := fields["challengeId"].(string); ok {
		proof.ChallengeID = s
	}
	if s, ok := fields["transaction"].(string); ok {
		proof.Transaction = s
	}
	if s, ok := fields["payer"].(string); ok {
		proof.Payer = s
	}
	if proof.ChallengeID == "" {
		return nil
	}
	return &proof
}

// paymentRequiredResult renders a 402 as an error result whose text is the
// JSON payment-required payload, with the structured payload mirrored in
// _meta for clients that read it there.
func paymentRequiredResult(required *payment.Required) *mcp.CallToolResult {
	payload, err := json.MarshalIndent(required, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Error encoding payment requirements: %v", err))
	}

	result := errorResult(fmt.Sprintf("Payment required.\n\n```json\n%s\n```\n\nPay the quoted amount, then retry the call with the challenge proof in the x402/payment _meta field (or the challenge_id, transaction, and payer arguments).", payload))
	result.Meta = &mcp.Meta{AdditionalFields: map[string]any{
		paymentRequiredMetaKey: required,
	}}
	return result
}

// handleToolCall bridges one MCP tool to the dispatcher.
func handleToolCall(tool string, d *dispatch.Dispatcher, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := uuid.New().String()

		result := d.Handle(ctx, dispatch.ToolCallRequest{
			Tool:   tool,
			Args:   request.GetArguments(),
			CallID: callID,
			Proof:  proofFromMeta(request),
		})

		switch result.Status {
		case dispatch.StatusOK:
			return textResult(formatResult(tool, result)), nil
		case dispatch.StatusPaymentRequired:
			return paymentRequiredResult(result.Payment), nil
		default:
			logger.WithCorrelationId(callID).Warn().
				Str("tool", tool).
				Str("code", string(result.Err.Code)).
				Msg("Tool Call Failed")
			return errorResult(fmt.Sprintf("Error (%s): %s", result.Err.Code, result.Err.Detail)), nil
		}
	}
}

// Package payment implements the x402 gate for paid tools: challenge
// minting, proof verification through an external settlement facilitator,
// and single-use consumption tracking.
package payment

import "time"

// Requirements defines what payment is acceptable for a gated tool call.
// Field names follow the x402 wire format.
type Requirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	Asset             string `json:"asset"`
	Amount            string `json:"amount"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
}

// ResourceInfo describes the resource being paid for.
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Required is the x402 payment-required payload returned to callers.
type Required struct {
	X402Version int            `json:"x402Version"`
	Error       string         `json:"error,omitempty"`
	Resource    *ResourceInfo  `json:"resource,omitempty"`
	Accepts     []Requirements `json:"accepts"`
	Extensions  map[string]any `json:"extensions,omitempty"`
}

// Proof is caller-supplied evidence of payment against one challenge.
type Proof struct {
	ChallengeID string `json:"challengeId"`
	Transaction string `json:"transaction"`
	Payer       string `json:"payer"`
}

// Challenge is a minted, time-bounded, single-use payment request tied to
// one tool invocation. The amount is fixed at mint time from the tool and
// its arguments, and re-validated at redemption.
type Challenge struct {
	ID           string
	Tool         string
	Requirements Requirements
	ExpiresAt    time.Time
}

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gloria-ai/gloria-mcp/internal/common"
)

// ErrVerifierUnavailable signals the settlement verifier could not be
// reached or answered abnormally; the challenge remains redeemable.
var ErrVerifierUnavailable = errors.New("settlement verifier unavailable")

// VerificationStatus is the settlement verifier's verdict on a proof.
type VerificationStatus string

const (
	StatusConfirmed    VerificationStatus = "confirmed"
	StatusInsufficient VerificationStatus = "insufficient"
	StatusInvalid      VerificationStatus = "invalid"
	StatusPending      VerificationStatus = "pending"
)

// VerifyResult is the outcome of verifying a payment proof.
type VerifyResult struct {
	Status VerificationStatus
	Payer  string
	Reason string
}

// SettlementVerifier confirms that a payment proof settles the given
// requirements. Verification may block awaiting chain finality; callers
// bound it with a context.
type SettlementVerifier interface {
	Verify(ctx context.Context, proof Proof, reqs Requirements) (*VerifyResult, error)
}

// FacilitatorClient verifies proofs against a remote x402 facilitator
// service over HTTP.
type FacilitatorClient struct {
	url        string
	httpClient *http.Client
	logger     *common.Logger
}

// NewFacilitatorClient creates a client for the facilitator at url.
func NewFacilitatorClient(url string, timeout time.Duration, logger *common.Logger) *FacilitatorClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FacilitatorClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// verifyRequest is the facilitator /verify wire format.
type verifyRequest struct {
	X402Version         int            `json:"x402Version"`
	PaymentPayload      paymentPayload `json:"paymentPayload"`
	PaymentRequirements Requirements   `json:"paymentRequirements"`
}

type paymentPayload struct {
	X402Version int            `json:"x402Version"`
	Payload     map[string]any `json:"payload"`
}

// verifyResponse is the facilitator's verdict.
type verifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// Verify posts the proof to the facilitator's /verify endpoint.
func (c *FacilitatorClient) Verify(ctx context.Context, proof Proof, reqs Requirements) (*VerifyResult, error) {
	reqBody := verifyRequest{
		X402Version: 1,
		PaymentPayload: paymentPayload{
			X402Version: 1,
			Payload: map[string]any{
				"challengeId": proof.ChallengeID,
				"transaction": proof.Transaction,
				"payer":       proof.Payer,
			},
		},
		PaymentRequirements: reqs,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/verify", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error().Err(err).Dur("duration", duration).Msg("Facilitator Verify Failed")
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrVerifierUnavailable, err)
	}

	c.logger.Debug().
		Int("status_code", resp.StatusCode).
		Dur("duration", duration).
		Msg("Facilitator Verify Response")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: facilitator returned %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrVerifierUnavailable, err)
	}

	if vr.IsValid {
		return &VerifyResult{Status: StatusConfirmed, Payer: vr.Payer}, nil
	}

	return &VerifyResult{
		Status: classifyReason(vr.InvalidReason),
		Payer:  vr.Payer,
		Reason: vr.InvalidReason,
	}, nil
}

// classifyReason maps the facilitator's free-form invalid reason onto the
// verdict taxonomy.
func classifyReason(reason string) VerificationStatus {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "insufficient"):
		return StatusInsufficient
	case strings.Contains(lower, "pending") || strings.Contains(lower, "not_confirmed") || strings.Contains(lower, "finality"):
		return StatusPending
	default:
		return StatusInvalid
	}
}

var _ SettlementVerifier = (*FacilitatorClient)(nil)

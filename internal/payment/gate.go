package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gloria-ai/gloria-mcp/internal/common"
)

// RejectedError reports a proof that was checked and definitively
// refused. Whether the challenge may be retried with a new proof
// depends on the gate's retry policy.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment rejected: %s", e.Reason)
}

// ErrPaymentPending signals the proof could not be confirmed yet; the
// caller should retry the same proof after settlement finalizes.
var ErrPaymentPending = errors.New("payment pending confirmation")

// GateConfig carries the payment terms the gate quotes on every
// challenge it mints.
type GateConfig struct {
	PayTo        string
	Network      string
	Asset        string
	Scheme       string
	ChallengeTTL time.Duration
	AllowRetry   bool
}

// Gate mints payment challenges for paid tools and redeems proofs
// against them. All state transitions route through the challenge
// store so each challenge settles at most one call.
type Gate struct {
	store    ChallengeStore
	verifier SettlementVerifier
	pricing  Pricing
	cfg      GateConfig
	logger   *common.Logger
	now      func() time.Time
}

// NewGate creates a payment gate.
func NewGate(store ChallengeStore, verifier SettlementVerifier, pricing Pricing, cfg GateConfig, logger *common.Logger) *Gate {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 10 * time.Minute
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "exact"
	}
	return &Gate{
		store:    store,
		verifier: verifier,
		pricing:  pricing,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Require mints a fresh challenge for the given tool call and returns
// the payment-required payload to surface to the caller. reason is the
// human-readable explanation carried on the payload.
func (g *Gate) Require(ctx context.Context, tool string, args map[string]any, reason string) (*Required, error) {
	amount, err := g.pricing.Quote(tool, args)
	if err != nil {
		return nil, err
	}

	now := g.now()
	expiresAt := now.Add(g.cfg.ChallengeTTL)
	challengeID := uuid.New().String()

	reqs := Requirements{
		Scheme:            g.cfg.Scheme,
		Network:           g.cfg.Network,
		Asset:             g.cfg.Asset,
		Amount:            amount,
		PayTo:             g.cfg.PayTo,
		MaxTimeoutSeconds: int(g.cfg.ChallengeTTL / time.Second),
	}

	ch := &Challenge{
		ID:           challengeID,
		Tool:         tool,
		Requirements: reqs,
		ExpiresAt:    expiresAt,
	}
	g.store.Put(ch)

	g.logger.Info().
		Str("tool", tool).
		Str("challenge_id", challengeID).
		Str("amount", amount).
		Msg("Payment Challenge Minted")

	return &Required{
		X402Version: 1,
		Error:       reason,
		Resource: &ResourceInfo{
			URL:         "mcp://tool/" + tool,
			Description: reason,
		},
		Accepts: []Requirements{reqs},
		Extensions: map[string]any{
			"challengeId": challengeID,
			"expiresAt":   expiresAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

// Redeem checks a proof against its challenge and, if settlement is
// confirmed, consumes the challenge. Exactly one concurrent redeemer
// wins; the rest observe ErrChallengeAlreadyConsumed.
//
// On a definitive rejection the challenge is retained for retry with a
// new proof when the retry policy allows it, and discarded otherwise.
// A pending or unverifiable proof always leaves the challenge intact.
func (g *Gate) Redeem(ctx context.Context, tool string, args map[string]any, proof Proof) (payer string, err error) {
	ch, err := g.store.Begin(proof.ChallengeID, g.now())
	if err != nil {
		return "", err
	}

	reject := func(reason string) (string, error) {
		if g.cfg.AllowRetry {
			g.store.Release(proof.ChallengeID)
		} else {
			g.store.Evict(proof.ChallengeID)
		}
		g.logger.Warn().
			Str("tool", tool).
			Str("challenge_id", proof.ChallengeID).
			Str("reason", reason).
			Msg("Payment Rejected")
		return "", &RejectedError{Reason: reason}
	}

	if ch.Tool != tool {
		return reject(fmt.Sprintf("challenge was minted for tool %s", ch.Tool))
	}

	// The quoted amount must still match the live arguments so a
	// challenge minted for one price cannot settle a pricier call.
	amount, err := g.pricing.Quote(tool, args)
	if err != nil {
		g.store.Release(proof.ChallengeID)
		return "", err
	}
	if amount != ch.Requirements.Amount {
		return reject("quoted amount no longer matches request")
	}

	result, err := g.verifier.Verify(ctx, proof, ch.Requirements)
	if err != nil {
		g.store.Release(proof.ChallengeID)
		return "", err
	}

	switch result.Status {
	case StatusConfirmed:
		g.store.Commit(proof.ChallengeID)
		g.logger.Info().
			Str("tool", tool).
			Str("challenge_id", proof.ChallengeID).
			Str("payer", result.Payer).
			Msg("Payment Confirmed")
		return result.Payer, nil
	case StatusPending:
		g.store.Release(proof.ChallengeID)
		return "", ErrPaymentPending
	case StatusInsufficient:
		return reject(nonEmpty(result.Reason, "payment amount insufficient"))
	default:
		return reject(nonEmpty(result.Reason, "payment proof invalid"))
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloria-ai/gloria-mcp/internal/common"
)

var testProof = Proof{
	ChallengeID: "ch-1",
	Transaction: "0xabc123",
	Payer:       "0xpayer",
}

var testReqs = Requirements{
	Scheme:            "exact",
	Network:           "eip155:8453",
	Asset:             "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	Amount:            "0.01",
	PayTo:             "0xmerchant",
	MaxTimeoutSeconds: 600,
}

func TestFacilitatorVerifyConfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/verify", r.URL.Path)

		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.X402Version)
		assert.Equal(t, "ch-1", req.PaymentPayload.Payload["challengeId"])
		assert.Equal(t, "0xabc123", req.PaymentPayload.Payload["transaction"])
		assert.Equal(t, "0.01", req.PaymentRequirements.Amount)

		json.NewEncoder(w).Encode(verifyResponse{IsValid: true, Payer: "0xpayer"})
	}))
	defer srv.Close()

	client := NewFacilitatorClient(srv.URL, 5*time.Second, common.NewSilentLogger())
	result, err := client.Verify(context.Background(), testProof, testReqs)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Equal(t, "0xpayer", result.Payer)
}

func TestFacilitatorVerifyRejectedReasons(t *testing.T) {
	cases := []struct {
		reason string
		want   VerificationStatus
	}{
		{"insufficient_funds", StatusInsufficient},
		{"amount insufficient for requirements", StatusInsufficient},
		{"transaction pending confirmation", StatusPending},
		{"awaiting finality", StatusPending},
		{"invalid_signature", StatusInvalid},
		{"unknown transaction", StatusInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(verifyResponse{IsValid: false, InvalidReason: tc.reason})
			}))
			defer srv.Close()

			client := NewFacilitatorClient(srv.URL, 5*time.Second, common.NewSilentLogger())
			result, err := client.Verify(context.Background(), testProof, testReqs)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Status)
			assert.Equal(t, tc.reason, result.Reason)
		})
	}
}

func TestFacilitatorVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewFacilitatorClient(srv.URL, 5*time.Second, common.NewSilentLogger())
	_, err := client.Verify(context.Background(), testProof, testReqs)
	assert.ErrorIs(t, err, ErrVerifierUnavailable)
}

func TestFacilitatorVerifyUnreachable(t *testing.T) {
	client := NewFacilitatorClient("http://127.0.0.1:1", time.Second, common.NewSilentLogger())
	_, err := client.Verify(context.Background(), testProof, testReqs)
	assert.ErrorIs(t, err, ErrVerifierUnavailable)
}

func TestFacilitatorVerifyContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	client := NewFacilitatorClient(srv.URL, 30*time.Second, common.NewSilentLogger())
	go func() {
		_, err := client.Verify(ctx, testProof, testReqs)
		done <- err
	}()

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFacilitatorVerifyMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewFacilitatorClient(srv.URL, 5*time.Second, common.NewSilentLogger())
	_, err := client.Verify(context.Background(), testProof, testReqs)
	assert.ErrorIs(t, err, ErrVerifierUnavailable)
}

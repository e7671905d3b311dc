package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cresca-pay/vaultgate/internal/config"
	"github.com/cresca-pay/vaultgate/internal/custody"
	"github.com/cresca-pay/vaultgate/internal/ledger"
	"github.com/cresca-pay/vaultgate/internal/middleware"
	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/cresca-pay/vaultgate/internal/signer"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signedRelayerKey = "sk-signed-relayer"

// newSignedGateway wires a relayer whose authorize traffic must carry a
// terminal countersignature.
func newSignedGateway(t *testing.T) (*gin.Engine, *signer.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	term, err := signer.NewSigner(hex.EncodeToString(seed))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.RequireAPIKey = true
	cfg.Relayers = []config.RelayerConfig{{
		ID:      "signed-relayer",
		Name:    "Signed Relayer",
		APIKey:  signedRelayerKey,
		Signers: []string{term.PublicKeyHex()},
	}}

	bank := custody.NewMemoryBank(true)
	engine := ledger.NewEngine(bank)
	_, err = engine.InitializeProtocol(context.Background(), testAuthority, testTreasury, model.DefaultLTVBps, model.DefaultBaseInterestBps)
	require.NoError(t, err)
	_, err = engine.InitializeVault(context.Background(), testOwner, 0)
	require.NoError(t, err)
	_, err = engine.DepositCollateral(context.Background(), testOwner, 0, 1_000_000_000)
	require.NoError(t, err)

	rm := service.NewRelayerManager(cfg)
	svc := service.NewVaultService(cfg, engine, nil)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, rm))
	v1.POST("/payments/authorize", NewPaymentHandler(svc).Authorize)

	return r, term
}

func postAuthorize(t *testing.T, r *gin.Engine, req model.AuthorizePaymentRequest) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))
	httpReq := httptest.NewRequest(http.MethodPost, "/v1/payments/authorize", &buf)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(middleware.HeaderGatewayKey, signedRelayerKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	return w
}

func TestAuthorizeRequiresSignature(t *testing.T) {
	r, _ := newSignedGateway(t)

	w := postAuthorize(t, r, model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

func TestAuthorizeWithValidSignature(t *testing.T) {
	r, term := newSignedGateway(t)

	req := model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
		Nonce: 1, IssuedAt: 1756400000,
	}
	sig, err := term.SignPayment(&signer.Payment{
		Owner:    req.Owner,
		VaultID:  req.VaultID,
		Merchant: req.Merchant,
		Amount:   req.Amount,
		Nonce:    req.Nonce,
		IssuedAt: req.IssuedAt,
	})
	require.NoError(t, err)
	req.Signature = sig

	w := postAuthorize(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.AuthorizePaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Approved)
}

func TestAuthorizeRejectsReplayedNonce(t *testing.T) {
	r, term := newSignedGateway(t)

	req := model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
		Nonce: 5, IssuedAt: 1756400000,
	}
	sig, err := term.SignPayment(&signer.Payment{
		Owner:    req.Owner,
		VaultID:  req.VaultID,
		Merchant: req.Merchant,
		Amount:   req.Amount,
		Nonce:    req.Nonce,
		IssuedAt: req.IssuedAt,
	})
	require.NoError(t, err)
	req.Signature = sig

	w := postAuthorize(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Same signed request again: replay
	w = postAuthorize(t, r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

func TestAuthorizeRejectsTamperedSignature(t *testing.T) {
	r, term := newSignedGateway(t)

	req := model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
		Nonce: 1, IssuedAt: 1756400000,
	}
	sig, err := term.SignPayment(&signer.Payment{
		Owner:    req.Owner,
		VaultID:  req.VaultID,
		Merchant: req.Merchant,
		Amount:   2_000_000, // signed for a different amount
		Nonce:    req.Nonce,
		IssuedAt: req.IssuedAt,
	})
	require.NoError(t, err)
	req.Signature = sig

	w := postAuthorize(t, r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

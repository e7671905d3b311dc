package handler

import (
	"net/http"
	"testing"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeApproved(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 50_000_000,
	}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.AuthorizePaymentResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Approved)
	assert.Equal(t, uint64(50_000_000), resp.NewOutstanding)
	assert.Equal(t, uint64(1_450_000_000), resp.AvailableCredit)
	assert.Equal(t, "50.000000", resp.AmountDisplay)
}

func TestAuthorizeSoftDecline(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	// Over the 1500 USDC credit limit but under the raised daily cap:
	// a decline, not an HTTP error.
	w := g.do(t, http.MethodPut, "/v1/admin/vaults/owner-wallet/0/daily-limit", model.DailyLimitRequest{DailyLimit: 10_000_000_000}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 2_000_000_000,
	}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.AuthorizePaymentResponse
	decodeBody(t, w, &resp)
	assert.False(t, resp.Approved)
	assert.Equal(t, model.DeclineInsufficientCredit, resp.Reason)
	assert.Equal(t, uint64(0), resp.NewOutstanding)
}

func TestAuthorizeDailyLimitIsHardError(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	// Default daily limit is 1000 USDC; within credit but over the cap.
	w := g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_100_000_000,
	}, false)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestAuthorizeValidation(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	// missing merchant
	w := g.do(t, http.MethodPost, "/v1/payments/authorize", map[string]interface{}{
		"owner": testOwner, "amount": 100,
	}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown vault
	w = g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: "stranger", VaultID: 0, Merchant: "merchant-cafe", Amount: 100,
	}, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthorizeWhilePaused(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodPost, "/v1/admin/pause", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
	}, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/admin/unpause", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
	}, false)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAdminRequiresKey(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(t, http.MethodPost, "/v1/admin/pause", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = g.do(t, http.MethodGet, "/v1/admin/protocol", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminDeactivateBlocksPayments(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodPost, "/v1/admin/vaults/owner-wallet/0/deactivate", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
	}, false)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/admin/vaults/owner-wallet/0/reactivate", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 1_000_000,
	}, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminSetVaultRisk(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodPut, "/v1/admin/vaults/owner-wallet/0/risk", model.VaultRiskRequest{
		LTVBps: 12_000, InterestRateBps: 500,
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var vault model.CreditVault
	decodeBody(t, w, &vault)
	assert.Equal(t, uint64(12_000), vault.LTVBps)
	assert.Equal(t, uint64(1_200_000_000), vault.CreditLimit)

	// Out of range
	w = g.do(t, http.MethodPut, "/v1/admin/vaults/owner-wallet/0/risk", model.VaultRiskRequest{
		LTVBps: 25_000,
	}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(t, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["paused"])
}

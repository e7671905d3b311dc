package handler

import (
	"net/http"
	"testing"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDeposit(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(t, http.MethodPost, "/v1/vaults", model.CreateVaultRequest{Owner: testOwner, VaultID: 0}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/vaults/owner-wallet/0/deposit", model.CollateralRequest{Amount: 1_000_000_000}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.CollateralResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, uint64(1_000_000_000), resp.CollateralAmount)
	// 150% LTV on 1000 USDC
	assert.Equal(t, uint64(1_500_000_000), resp.CreditLimit)
	assert.Equal(t, "1000.000000", resp.CollateralDisplay)
}

func TestCreateVaultValidation(t *testing.T) {
	g := newTestGateway(t)

	// missing owner
	w := g.do(t, http.MethodPost, "/v1/vaults", map[string]interface{}{"vault_id": 1}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// duplicate
	w = g.do(t, http.MethodPost, "/v1/vaults", model.CreateVaultRequest{Owner: testOwner}, false)
	require.Equal(t, http.StatusCreated, w.Code)
	w = g.do(t, http.MethodPost, "/v1/vaults", model.CreateVaultRequest{Owner: testOwner}, false)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestDepositBelowMinimum(t *testing.T) {
	g := newTestGateway(t)
	w := g.do(t, http.MethodPost, "/v1/vaults", model.CreateVaultRequest{Owner: testOwner}, false)
	require.Equal(t, http.StatusCreated, w.Code)

	w = g.do(t, http.MethodPost, "/v1/vaults/owner-wallet/0/deposit", model.CollateralRequest{Amount: 999}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestGetVaultAndHealth(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodGet, "/v1/vaults/owner-wallet/0", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var vault model.CreditVault
	decodeBody(t, w, &vault)
	assert.Equal(t, testOwner, vault.Owner)
	assert.True(t, vault.Active)

	w = g.do(t, http.MethodGet, "/v1/vaults/owner-wallet/0/health", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var health model.HealthResponse
	decodeBody(t, w, &health)
	assert.True(t, health.Infinite) // nothing borrowed yet
	assert.False(t, health.Liquidatable)
}

func TestVaultNotFound(t *testing.T) {
	g := newTestGateway(t)
	w := g.do(t, http.MethodGet, "/v1/vaults/owner-wallet/9", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = g.do(t, http.MethodGet, "/v1/vaults/owner-wallet/not-a-number", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWithdrawKeepsCollateralization(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	// Borrow most of the limit, then an aggressive withdrawal must fail
	w := g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 900_000_000,
	}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/vaults/owner-wallet/0/withdraw", model.CollateralRequest{Amount: 900_000_000}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// A modest withdrawal passes
	w = g.do(t, http.MethodPost, "/v1/vaults/owner-wallet/0/withdraw", model.CollateralRequest{Amount: 100_000_000}, false)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRepayClampsToOutstanding(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodPost, "/v1/payments/authorize", model.AuthorizePaymentRequest{
		Owner: testOwner, VaultID: 0, Merchant: "merchant-cafe", Amount: 100_000_000,
	}, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = g.do(t, http.MethodPost, "/v1/vaults/owner-wallet/0/repay", model.CollateralRequest{Amount: 500_000_000}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.CollateralResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, uint64(0), resp.OutstandingBalance)
}

func TestRepayWithoutDebt(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodPost, "/v1/vaults/owner-wallet/0/repay", model.CollateralRequest{Amount: 1_000_000}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestListByOwner(t *testing.T) {
	g := newTestGateway(t)
	g.createFundedVault(t, 1_000_000_000)

	w := g.do(t, http.MethodPost, "/v1/vaults", model.CreateVaultRequest{Owner: testOwner, VaultID: 1}, false)
	require.Equal(t, http.StatusCreated, w.Code)

	w = g.do(t, http.MethodGet, "/v1/vaults/owner-wallet", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var vaults []*model.CreditVault
	decodeBody(t, w, &vaults)
	assert.Len(t, vaults, 2)
}

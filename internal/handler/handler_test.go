package handler

import (
	"bytes"
	"context"
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
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testAuthority = "authority-wallet"
	testTreasury  = "treasury-wallet"
	testOwner     = "owner-wallet"
	testAdminKey  = "adm-test-key"
)

type testGateway struct {
	router *gin.Engine
	engine *ledger.Engine
	bank   *custody.MemoryBank
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Auth.AdminKey = testAdminKey

	bank := custody.NewMemoryBank(true)
	engine := ledger.NewEngine(bank)
	_, err := engine.InitializeProtocol(context.Background(), testAuthority, testTreasury, model.DefaultLTVBps, model.DefaultBaseInterestBps)
	require.NoError(t, err)

	rm := service.NewRelayerManager(cfg)
	svc := service.NewVaultService(cfg, engine, nil)

	vaultH := NewVaultHandler(svc)
	paymentH := NewPaymentHandler(svc)
	adminH := NewAdminHandler(svc)
	healthH := NewHealthHandler(svc)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/health", healthH.Check)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, rm))
	v1.POST("/vaults", vaultH.Create)
	v1.GET("/vaults/:owner", vaultH.ListByOwner)
	v1.GET("/vaults/:owner/:id", vaultH.Get)
	v1.GET("/vaults/:owner/:id/health", vaultH.Health)
	v1.POST("/vaults/:owner/:id/deposit", vaultH.Deposit)
	v1.POST("/vaults/:owner/:id/withdraw", vaultH.Withdraw)
	v1.POST("/vaults/:owner/:id/repay", vaultH.Repay)
	v1.POST("/payments/authorize", paymentH.Authorize)

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	admin.GET("/protocol", adminH.Protocol)
	admin.POST("/pause", adminH.Pause)
	admin.POST("/unpause", adminH.Unpause)
	admin.PUT("/vaults/:owner/:id/risk", adminH.SetVaultRisk)
	admin.PUT("/vaults/:owner/:id/daily-limit", adminH.SetDailyLimit)
	admin.POST("/vaults/:owner/:id/deactivate", adminH.Deactivate)
	admin.POST("/vaults/:owner/:id/reactivate", adminH.Reactivate)

	return &testGateway{router: r, engine: engine, bank: bank}
}

func (g *testGateway) do(t *testing.T, method, path string, body interface{}, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(middleware.HeaderAdminKey, testAdminKey)
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func (g *testGateway) createFundedVault(t *testing.T, collateral uint64) {
	t.Helper()
	w := g.do(t, http.MethodPost, "/v1/vaults", model.CreateVaultRequest{Owner: testOwner, VaultID: 0}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = g.do(t, http.MethodPost, "/v1/vaults/owner-wallet/0/deposit", model.CollateralRequest{Amount: collateral}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

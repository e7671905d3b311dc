package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cresca-pay/vaultgate/internal/middleware"
	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/gin-gonic/gin"
)

type VaultHandler struct {
	svc *service.VaultService
}

func NewVaultHandler(svc *service.VaultService) *VaultHandler {
	return &VaultHandler{svc: svc}
}

// parseVaultRef pulls the owner/:id pair every per-vault route carries.
func parseVaultRef(c *gin.Context) (string, uint64, bool) {
	owner := c.Param("owner")
	if owner == "" {
		c.Error(apperrors.NewInvalidRequest("owner is required"))
		return "", 0, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(apperrors.NewInvalidRequest("vault id must be an unsigned integer"))
		return "", 0, false
	}
	return owner, id, true
}

func (h *VaultHandler) Create(c *gin.Context) {
	var req model.CreateVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	vault, err := h.svc.CreateVault(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "vault", vault.Key())
	c.JSON(http.StatusCreated, vault)
}

func (h *VaultHandler) Get(c *gin.Context) {
	owner, id, ok := parseVaultRef(c)
	if !ok {
		return
	}
	vault, err := h.svc.Engine().GetVault(owner, id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, vault)
}

func (h *VaultHandler) Health(c *gin.Context) {
	owner, id, ok := parseVaultRef(c)
	if !ok {
		return
	}
	vault, err := h.svc.Engine().GetVault(owner, id)
	if err != nil {
		c.Error(err)
		return
	}

	hf := vault.HealthFactorBps()
	c.JSON(http.StatusOK, model.HealthResponse{
		Owner:           vault.Owner,
		VaultID:         vault.VaultID,
		HealthFactorBps: hf,
		UtilizationBps:  vault.UtilizationBps(),
		Liquidatable:    vault.Liquidatable(),
		Infinite:        hf == model.MaxHealthFactor,
	})
}

func (h *VaultHandler) Deposit(c *gin.Context) {
	h.collateralOp(c, "deposit", h.svc.Deposit)
}

func (h *VaultHandler) Withdraw(c *gin.Context) {
	h.collateralOp(c, "withdraw", h.svc.Withdraw)
}

func (h *VaultHandler) Repay(c *gin.Context) {
	h.collateralOp(c, "repay", h.svc.Repay)
}

type collateralFn func(ctx context.Context, owner string, vaultID, amount uint64) (*model.CreditVault, error)

func (h *VaultHandler) collateralOp(c *gin.Context, action string, fn collateralFn) {
	owner, id, ok := parseVaultRef(c)
	if !ok {
		return
	}

	var req model.CollateralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	vault, err := fn(c.Request.Context(), owner, id, req.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "action", action)
	middleware.AddAuditContext(c, "vault", vault.Key())
	middleware.AddAuditContext(c, "amount", req.Amount)

	c.JSON(http.StatusOK, model.CollateralResponse{
		Owner:              vault.Owner,
		VaultID:            vault.VaultID,
		CollateralAmount:   vault.CollateralAmount,
		CreditLimit:        vault.CreditLimit,
		OutstandingBalance: vault.OutstandingBalance,
		CollateralDisplay:  model.FormatUnits(vault.CollateralAmount),
		CreditLimitDisplay: model.FormatUnits(vault.CreditLimit),
	})
}

func (h *VaultHandler) ListByOwner(c *gin.Context) {
	owner := c.Param("owner")
	if owner == "" {
		c.Error(apperrors.NewInvalidRequest("owner is required"))
		return
	}
	vaults := make([]*model.CreditVault, 0)
	for _, v := range h.svc.Engine().ListVaults() {
		if v.Owner == owner {
			vaults = append(vaults, v)
		}
	}
	c.JSON(http.StatusOK, vaults)
}

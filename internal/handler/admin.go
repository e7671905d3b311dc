package handler

import (
	"net/http"

	"github.com/cresca-pay/vaultgate/internal/middleware"
	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	svc *service.VaultService
}

func NewAdminHandler(svc *service.VaultService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Protocol(c *gin.Context) {
	p, err := h.svc.Engine().Protocol()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) Pause(c *gin.Context) {
	if err := h.svc.Pause(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "pause")
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (h *AdminHandler) Unpause(c *gin.Context) {
	if err := h.svc.Unpause(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "unpause")
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (h *AdminHandler) SetAuthority(c *gin.Context) {
	var req model.SetAuthorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if err := h.svc.SetAuthority(c.Request.Context(), req.NewAuthority); err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "set_authority")
	c.JSON(http.StatusOK, gin.H{"authority": req.NewAuthority})
}

func (h *AdminHandler) SetVaultRisk(c *gin.Context) {
	owner, id, ok := parseVaultRef(c)
	if !ok {
		return
	}
	var req model.VaultRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	vault, err := h.svc.SetVaultRisk(c.Request.Context(), owner, id, req.LTVBps, req.InterestRateBps)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "set_vault_risk")
	middleware.AddAuditContext(c, "vault", vault.Key())
	c.JSON(http.StatusOK, vault)
}

func (h *AdminHandler) SetDailyLimit(c *gin.Context) {
	owner, id, ok := parseVaultRef(c)
	if !ok {
		return
	}
	var req model.DailyLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	vault, err := h.svc.SetDailyLimit(c.Request.Context(), owner, id, req.DailyLimit)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "set_daily_limit")
	middleware.AddAuditContext(c, "vault", vault.Key())
	c.JSON(http.StatusOK, vault)
}

func (h *AdminHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AdminHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	owner, id, ok := parseVaultRef(c)
	if !ok {
		return
	}
	vault, err := h.svc.SetVaultActive(c.Request.Context(), owner, id, active)
	if err != nil {
		c.Error(err)
		return
	}
	action := "deactivate_vault"
	if active {
		action = "reactivate_vault"
	}
	middleware.AddAuditContext(c, "action", action)
	middleware.AddAuditContext(c, "vault", vault.Key())
	c.JSON(http.StatusOK, vault)
}

func (h *AdminHandler) RefreshRate(c *gin.Context) {
	owner, id, ok := parseVaultRef(c)
	if !ok {
		return
	}
	vault, err := h.svc.RefreshInterestRate(c.Request.Context(), owner, id)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "refresh_rate")
	middleware.AddAuditContext(c, "vault", vault.Key())
	c.JSON(http.StatusOK, vault)
}

func (h *AdminHandler) ListVaults(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Engine().ListVaults())
}

package handler

import (
	"net/http"
	"time"

	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	svc     *service.VaultService
	started time.Time
}

func NewHealthHandler(svc *service.VaultService) *HealthHandler {
	return &HealthHandler{svc: svc, started: time.Now()}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if p, err := h.svc.Engine().Protocol(); err == nil {
		status["paused"] = p.Paused
		status["total_vaults"] = p.TotalVaults
	} else {
		status["status"] = "initializing"
	}
	c.JSON(http.StatusOK, status)
}

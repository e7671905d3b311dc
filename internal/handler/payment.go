package handler

import (
	"net/http"

	"github.com/cresca-pay/vaultgate/internal/middleware"
	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	svc *service.VaultService
}

func NewPaymentHandler(svc *service.VaultService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) Authorize(c *gin.Context) {
	// 1. Get Relayer from Context (set by AuthMiddleware)
	relayerVal, exists := c.Get(middleware.ContextRelayerKey)
	if !exists {
		c.Error(apperrors.New(apperrors.ErrUnauthorized, "unauthorized: missing relayer context", nil))
		return
	}
	relayer := relayerVal.(*model.Relayer)

	// 2. Bind Request
	var req model.AuthorizePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	// 3. Call Service
	resp, err := h.svc.Authorize(c.Request.Context(), relayer, req)
	if err != nil {
		middleware.AddAuditContext(c, "vault", model.VaultKey(req.Owner, req.VaultID))
		middleware.AddAuditContext(c, "merchant", req.Merchant)
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "vault", model.VaultKey(req.Owner, req.VaultID))
	middleware.AddAuditContext(c, "merchant", req.Merchant)
	middleware.AddAuditContext(c, "approved", resp.Approved)
	if !resp.Approved {
		middleware.AddAuditContext(c, "decline_reason", resp.Reason)
	}

	c.JSON(http.StatusOK, resp)
}

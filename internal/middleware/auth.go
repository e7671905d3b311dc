package middleware

import (
	"net/http"

	"github.com/cresca-pay/vaultgate/internal/config"
	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	HeaderGatewayKey  = "X-Gateway-Key"
	ContextRelayerKey = "relayer"
)

func AuthMiddleware(cfg *config.Config, rm *service.RelayerManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderGatewayKey)
		if apiKey == "" {
			if cfg != nil && !cfg.Auth.RequireAPIKey {
				if relayer := rm.DefaultRelayer(); relayer != nil {
					c.Set(ContextRelayerKey, relayer)
					c.Next()
					return
				}
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		relayer, ok := rm.GetByApiKey(apiKey)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		// 将中继方信息存入上下文
		c.Set(ContextRelayerKey, relayer)
		c.Next()
	}
}

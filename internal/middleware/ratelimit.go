package middleware

import (
	"net/http"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/gin-gonic/gin"
)

func RateLimitMiddleware(rm *service.RelayerManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 获取当前中继方 (必须在 AuthMiddleware 之后使用)
		relayerVal, exists := c.Get(ContextRelayerKey)
		if !exists {
			// 如果没有中继方信息，理论上应该由 AuthMiddleware 拦截，但为了安全起见
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		relayer := relayerVal.(*model.Relayer)

		// 2. 获取限流器
		limiter := rm.GetLimiter(relayer.ID)
		if limiter == nil {
			// 只有极其罕见的情况才会发生（RelayerManager 数据不一致）
			c.Next()
			return
		}

		// 3. 尝试获取令牌
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

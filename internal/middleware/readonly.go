package middleware

import (
	"net/http"

	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		// 熔断开关在只读模式下也必须可用
		if c.Request.Method == http.MethodPost && c.FullPath() == "/v1/admin/pause" {
			c.Next()
			return
		}

		method := c.Request.Method
		switch method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		default:
			c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
			return
		}
	}
}
